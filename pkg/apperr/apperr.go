// Copyright 2024-2026 Aiku AI

// Package apperr defines the error taxonomy shared by the relay core and
// the pairing store. Every error crossing a component boundary carries one
// of these types so callers can branch on the category without inspecting
// messages.
package apperr

import (
	"errors"
	"fmt"
)

// Type is the error category.
type Type string

const (
	// NotFound covers missing rows and conditional updates that affected
	// zero rows. The latter is how an accept/reject race loser learns the
	// proposal was already resolved.
	NotFound Type = "not_found"
	// Internal covers store connectivity problems and unexpected
	// constraint violations. Retryable.
	Internal Type = "internal"
	// BadRequest covers unique-constraint violations on creation, such as
	// declaring the same pair twice.
	BadRequest Type = "bad_request"
	// DistantServer covers failed calls to the remote chat transport.
	DistantServer Type = "distant_server"
	// Unauthorized covers actions attempted by a user other than the
	// recorded owner of a pairing proposal.
	Unauthorized Type = "unauthorized"
)

// Error is a categorized error with an optional wrapped cause.
type Error struct {
	Type    Type
	Message string
	cause   error
}

// New creates an Error without a cause.
func New(t Type, message string) *Error {
	return &Error{Type: t, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(t Type, format string, args ...any) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error wrapping a cause.
func Wrap(t Type, message string, cause error) *Error {
	return &Error{Type: t, Message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// TypeOf returns the error's category, or the empty string if err is not
// (wrapping) an *Error.
func TypeOf(err error) Type {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsType reports whether err carries the given category.
func IsType(err error, t Type) bool {
	return TypeOf(err) == t
}
