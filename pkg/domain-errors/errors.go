// Package domainerrors provides coded errors for the service boundary.
//
// Stores return sentinel errors (pkg/platform/sentinel) describing
// infrastructure facts; services translate those into coded errors so
// transports and clients can branch on the code without string matching.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies the class of a domain error.
type Code string

const (
	// CodeValidation marks malformed or missing input.
	CodeValidation Code = "validation"
	// CodeInvalidTransition marks a status edge not present in the
	// proposal transition table.
	CodeInvalidTransition Code = "invalid_transition"
	// CodeConflict marks a conditional write lost to a concurrent writer.
	CodeConflict Code = "conflict"
	// CodeNotFound marks a missing proposal, notification or user.
	CodeNotFound Code = "not_found"
	// CodeTimeout marks an operation cancelled by its deadline.
	CodeTimeout Code = "timeout"
	// CodeUnavailable marks a transient infrastructure failure. Callers
	// may retry.
	CodeUnavailable Code = "unavailable"
	// CodeInternal marks everything else. Not retryable, details are not
	// exposed to clients.
	CodeInternal Code = "internal"
)

// Error is a coded domain error. It optionally wraps a cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs a coded error without a cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is an alias for HasCode, matching call-site ergonomics.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf extracts the code from err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the client-safe message from err. Internal errors
// yield an empty message so causes never leak to clients.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) && de.Code != CodeInternal {
		return de.Message
	}
	return ""
}
