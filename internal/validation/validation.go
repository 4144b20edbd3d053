// Package validation collects per-field violations for form input.
package validation

import (
	"errors"
	"math"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Violations maps a form field to a violation code.
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Fields returns the violated field names in sorted order.
func (v Violations) Fields() []string {
	out := make([]string, 0, len(v))
	for f := range v {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// First returns "field: code" for the first violated field, or "".
func (v Violations) First() string {
	fields := v.Fields()
	if len(fields) == 0 {
		return ""
	}
	return fields[0] + ": " + v[fields[0]]
}

// PositiveFloat flags val unless it is finite and above zero.
func PositiveFloat(field string, val float64, v Violations) {
	if math.IsNaN(val) || math.IsInf(val, 0) || val <= 0 {
		v[field] = "must_be_positive"
	}
}

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// Struct runs the `validate` tags of s and reports violations keyed by the
// `form` tag of each field.
func Struct(s any) Violations {
	v := Violations{}
	err := instance().Struct(s)
	if err == nil {
		return v
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		v["_"] = "invalid"
		return v
	}
	for _, fe := range verrs {
		if _, seen := v[fe.Field()]; !seen {
			v[fe.Field()] = code(fe.Tag())
		}
	}
	return v
}

func code(tag string) string {
	switch tag {
	case "required", "required_without":
		return "required"
	case "email":
		return "invalid_email"
	case "min":
		return "too_short"
	case "max":
		return "too_long"
	case "eqfield":
		return "mismatch"
	case "oneof":
		return "invalid_choice"
	case "gt", "gte":
		return "must_be_positive"
	case "numeric", "number":
		return "not_a_number"
	}
	return "invalid"
}
