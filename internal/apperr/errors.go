package apperr

import (
	"errors"
	"fmt"
)

// Code classifies a failure so HTTP handlers and callers can branch on
// it instead of matching message text.
type Code string

const (
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeValidation   Code = "validation"
	CodeInternal     Code = "internal"
)

// Error is a classified application error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func Unauthorized(msg string) error { return &Error{Code: CodeUnauthorized, Message: msg} }
func Forbidden(msg string) error    { return &Error{Code: CodeForbidden, Message: msg} }
func NotFound(msg string) error     { return &Error{Code: CodeNotFound, Message: msg} }
func Conflict(msg string) error     { return &Error{Code: CodeConflict, Message: msg} }
func Validation(msg string) error   { return &Error{Code: CodeValidation, Message: msg} }

// Internal wraps an unexpected failure (storage, transport) so the
// original cause stays inspectable while the caller sees a stable code.
func Internal(msg string, err error) error {
	return &Error{Code: CodeInternal, Message: msg, Err: err}
}

// CodeOf extracts the classification from err, defaulting to internal
// for errors that were never classified.
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

// MessageOf returns the user-facing message for err. Unclassified
// errors get a generic message so internals never leak to clients.
func MessageOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Code != CodeInternal {
		return ae.Message
	}
	return "internal error"
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool { return CodeOf(err) == code }
