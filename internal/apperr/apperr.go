// Package apperr is the application error taxonomy. Every failure that
// reaches a handler is one of these kinds; handlers turn them into a flash
// message plus a redirect.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the handler boundary.
type Kind int

const (
	KindUnknown Kind = iota
	// KindNotFound: the referenced entity does not exist.
	KindNotFound
	// KindUnauthorized: no session, wrong role or not the owner.
	KindUnauthorized
	// KindValidation: malformed user input; nothing was written.
	KindValidation
	// KindConflict: a uniqueness or optimistic-concurrency check failed.
	KindConflict
	// KindStore: the store was unreachable or rejected the operation.
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindStore:
		return "store"
	default:
		return "unknown"
	}
}

// Sentinels usable with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrStore        = errors.New("store failure")
)

func (k Kind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindUnauthorized:
		return ErrUnauthorized
	case KindValidation:
		return ErrValidation
	case KindConflict:
		return ErrConflict
	case KindStore:
		return ErrStore
	}
	return nil
}

// Error carries a Kind, the failing operation, an optional user-facing
// message and the underlying cause.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Message != "":
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the Kind sentinel so errors.Is(err, apperr.ErrNotFound) works
// regardless of the wrapped cause.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && s == target
}

func newErr(kind Kind, op string, err error, msg string) *Error {
	return &Error{Kind: kind, Op: op, Message: msg, Err: err}
}

// NotFound builds a KindNotFound error.
func NotFound(op, msg string) *Error { return newErr(KindNotFound, op, nil, msg) }

// Unauthorized builds a KindUnauthorized error.
func Unauthorized(op, msg string) *Error { return newErr(KindUnauthorized, op, nil, msg) }

// Validation builds a KindValidation error.
func Validation(op, msg string) *Error { return newErr(KindValidation, op, nil, msg) }

// Conflict builds a KindConflict error.
func Conflict(op, msg string, err error) *Error { return newErr(KindConflict, op, err, msg) }

// Store wraps a store-level cause.
func Store(op string, err error) *Error { return newErr(KindStore, op, err, "") }

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// MessageOf returns the user-facing message of the first *Error in the chain
// that carries one, or fallback.
func MessageOf(err error, fallback string) string {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			break
		}
		if e.Message != "" {
			return e.Message
		}
		err = e.Err
	}
	return fallback
}

func IsNotFound(err error) bool     { return errors.Is(err, ErrNotFound) }
func IsUnauthorized(err error) bool { return errors.Is(err, ErrUnauthorized) }
func IsValidation(err error) bool   { return errors.Is(err, ErrValidation) }
func IsConflict(err error) bool     { return errors.Is(err, ErrConflict) }
