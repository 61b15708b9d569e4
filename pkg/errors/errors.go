// Package errors provides structured error and diagnostic types for engraver.
//
// Two kinds of failure flow through the engine:
//
//   - Hard errors ([Error]) stop the processing of a tune: unreadable input,
//     invalid configuration, internal invariants broken by a caller.
//   - Diagnostics ([Diagnostic]) are recoverable irregularities found while
//     laying out a tune. The engine applies a local best-effort fix and keeps
//     going; every diagnostic is collected per tune and raises the process-wide
//     severity flag (see [Raise]) so that the caller can report after all tunes
//     are finished.
//
// # Error Codes
//
// Layout diagnostics use the following codes:
//   - STRUCTURAL_WARNING: measure-length mismatch, overflowing chord, bad tie target
//   - LAYOUT_OVERFLOW: a line cannot fit even at maximum shrink ("overfull")
//   - LAYOUT_UNDERFLOW: a line is looser than maximum stretch ("underfull")
//   - GEOMETRY_DEGENERATE: a beam spans two staves, slur anchors are incoherent
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidInput, "voice %q has no symbols", id)
//	if errors.Is(err, errors.ErrCodeInvalidInput) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInvalidConfig, origErr, "read %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidPath   Code = "INVALID_PATH"

	// Layout diagnostics (recoverable)
	ErrCodeStructural Code = "STRUCTURAL_WARNING"
	ErrCodeOverflow   Code = "LAYOUT_OVERFLOW"
	ErrCodeUnderflow  Code = "LAYOUT_UNDERFLOW"
	ErrCodeDegenerate Code = "GEOMETRY_DEGENERATE"

	// Resource errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
