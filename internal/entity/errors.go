package entity

import (
	"errors"
	"fmt"
)

// Error kinds. Business failures wrap exactly one of them.
var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("conflict")
	ErrPolicyViolation = errors.New("policy violation")
	ErrValidation      = errors.New("validation failed")
)

// Error is an expected business failure. It unwraps to its kind so callers
// can match with errors.Is(err, entity.ErrConflict).
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) error {
	return newError(ErrNotFound, format, args...)
}

func Forbidden(format string, args ...interface{}) error {
	return newError(ErrForbidden, format, args...)
}

func Conflict(format string, args ...interface{}) error {
	return newError(ErrConflict, format, args...)
}

func PolicyViolation(format string, args ...interface{}) error {
	return newError(ErrPolicyViolation, format, args...)
}

func Validation(format string, args ...interface{}) error {
	return newError(ErrValidation, format, args...)
}

// IsBusiness reports whether err is an expected business failure rather than
// an infrastructure fault.
func IsBusiness(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// KindOf names the business kind of err, or "internal".
func KindOf(err error) string {
	for _, kind := range []error{ErrNotFound, ErrForbidden, ErrConflict, ErrPolicyViolation, ErrValidation} {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	return "internal"
}
