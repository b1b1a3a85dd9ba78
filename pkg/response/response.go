package response

import (
	"errors"
)

// Error carries the HTTP status an error should be reported with. Details is
// optional diagnostic text returned next to the message.
type Error struct {
	Code    int
	Err     error
	Details string
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on code and message, so an Error carrying details still
// matches the sentinel it was derived from.
func (e *Error) Is(target error) bool {
	var t *Error
	ok := errors.As(target, &t)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Err.Error() == t.Err.Error()
}

func NewError(code int, err string) error {
	return &Error{Code: code, Err: errors.New(err)}
}

// WithDetails copies base (which must be an *Error) and attaches details.
// Any other base is returned untouched.
func WithDetails(base error, details string) error {
	var e *Error
	if !errors.As(base, &e) {
		return base
	}
	return &Error{Code: e.Code, Err: e.Err, Details: details}
}
