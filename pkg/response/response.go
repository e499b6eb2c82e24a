package response

import (
	"errors"
	"fmt"
)

// Error is a domain error carrying the HTTP status it maps to.
type Error struct {
	Code int
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code && e.Err.Error() == t.Err.Error()
}

func NewError(code int, err string) error {
	return &Error{code, errors.New(err)}
}

// Wrap annotates a sentinel *Error with extra context while keeping its code,
// so errors.Is against the sentinel still matches.
func Wrap(sentinel error, format string, args ...any) error {
	var e *Error
	if !errors.As(sentinel, &e) {
		return fmt.Errorf(format+": %w", append(args, sentinel)...)
	}
	return &Error{Code: e.Code, Err: fmt.Errorf(format+": %w", append(args, sentinel)...)}
}
