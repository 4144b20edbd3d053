package validation

import (
	"math"
	"reflect"
	"testing"
)

func TestPositiveFloat(t *testing.T) {
	v := Violations{}
	PositiveFloat("offer", 0, v)
	PositiveFloat("nan", math.NaN(), v)
	PositiveFloat("inf", math.Inf(1), v)
	PositiveFloat("ok", 12.5, v)

	want := Violations{"offer": "must_be_positive", "nan": "must_be_positive", "inf": "must_be_positive"}
	if !reflect.DeepEqual(v, want) {
		t.Errorf("violations = %v", v)
	}
	if v.First() != "inf: must_be_positive" {
		t.Errorf("First = %q", v.First())
	}
}

type signup struct {
	Username string `form:"username" validate:"required,max=20"`
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required,min=6"`
	Confirm  string `form:"confirmPassword" validate:"eqfield=Password"`
	Note     string `form:"-"`
}

func TestStruct(t *testing.T) {
	got := Struct(signup{Username: "budi", Email: "nope", Password: "abc", Confirm: "abd"})
	want := Violations{"email": "invalid_email", "password": "too_short", "confirmPassword": "mismatch"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Struct = %v, want %v", got, want)
	}
	if ok := Struct(signup{Username: "budi", Email: "b@x.id", Password: "secret", Confirm: "secret"}); !ok.Empty() {
		t.Errorf("valid input reported %v", ok)
	}
}
