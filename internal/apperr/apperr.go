// Package apperr defines the error kinds shared by the booking services and
// the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrBadRequest      = errors.New("bad request")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrTooManyRequests = errors.New("too many requests")
)

// Error is a classified failure. Message is safe to show to clients; Err is
// the underlying cause and is only logged.
type Error struct {
	Kind    error
	Message string
	Detail  any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func BadRequest(format string, args ...any) *Error {
	return &Error{Kind: ErrBadRequest, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) *Error {
	return &Error{Kind: ErrForbidden, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(format string, args ...any) *Error {
	return &Error{Kind: ErrUnauthorized, Message: fmt.Sprintf(format, args...)}
}

// Conflict carries the conflicting records so handlers can return them.
func Conflict(detail any, format string, args ...any) *Error {
	return &Error{Kind: ErrConflict, Message: fmt.Sprintf(format, args...), Detail: detail}
}

func TooManyRequests(detail any, format string, args ...any) *Error {
	return &Error{Kind: ErrTooManyRequests, Message: fmt.Sprintf(format, args...), Detail: detail}
}

// Wrap attaches a cause to a classified error.
func Wrap(kind error, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Message returns the client-facing message for err, or "" when err was not
// produced by this package.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return ""
}

// Detail returns the detail payload attached to err, if any.
func Detail(err error) any {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Detail
	}
	return nil
}
