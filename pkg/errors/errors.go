// Package errors provides custom error types for the CVSS toolkit.
// Every failure carries a Kind so callers can branch on the category
// without string matching.
package errors

import (
	"context"
	"errors"
	"fmt"
)

// =============================================================================
// Base Error Types
// =============================================================================

// Error is the base error type for all toolkit errors.
type Error struct {
	// Kind indicates the category of error
	Kind Kind

	// Op is the operation being performed (e.g., "cvss.ParseVector")
	Op string

	// Message is a human-readable description
	Message string

	// Err is the underlying error
	Err error
}

// Kind represents the kind/category of error.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindInvalidMetric
	KindMalformedVector
	KindNotFound
	KindCanceled
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindInvalidMetric:
		return "invalid_metric"
	case KindMalformedVector:
		return "malformed_vector"
	case KindNotFound:
		return "not_found"
	case KindCanceled:
		return "canceled"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		if e.Message == "" && e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Op, e.Err)
		}
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target.
// Two *Error values match when their kinds are equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// =============================================================================
// Constructors
// =============================================================================

// E constructs an Error from the given arguments.
// Arguments can be: Kind, string (Op first, then Message), error.
func E(args ...interface{}) error {
	e := &Error{}
	for _, arg := range args {
		switch a := arg.(type) {
		case Kind:
			e.Kind = a
		case string:
			if e.Op == "" {
				e.Op = a
			} else {
				e.Message = a
			}
		case error:
			e.Err = a
		}
	}
	if e.Kind == KindUnknown && e.Err != nil {
		e.Kind = GetKind(e.Err)
	}
	return e
}

// New creates a new simple error.
func New(message string) error {
	return &Error{Message: message}
}

// Wrap wraps an error with additional context. The kind of the wrapped
// error is preserved.
func Wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: GetKind(err), Op: op, Err: err}
}

// WrapWithMessage wraps an error with a message.
func WrapWithMessage(err error, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: GetKind(err), Message: message, Err: err}
}

// =============================================================================
// Error Checkers
// =============================================================================

// GetKind returns the Kind of the error, or KindUnknown.
// Context cancellation is reported as KindCanceled.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCanceled
	}
	return KindUnknown
}

// IsInvalidInput reports whether err was caused by bad caller input,
// including invalid metrics and malformed vectors.
func IsInvalidInput(err error) bool {
	switch GetKind(err) {
	case KindInvalidInput, KindInvalidMetric, KindMalformedVector:
		return true
	default:
		return false
	}
}

// IsMalformedVector checks if the error is a vector parse failure.
func IsMalformedVector(err error) bool {
	return GetKind(err) == KindMalformedVector
}

// IsNotFoundError checks if the error is a not found error.
func IsNotFoundError(err error) bool {
	return GetKind(err) == KindNotFound
}

// IsCanceled checks if the error is a cancellation.
func IsCanceled(err error) bool {
	return GetKind(err) == KindCanceled
}

// =============================================================================
// Common Errors
// =============================================================================

var (
	// ErrInvalidMetric is returned when a metric holds a value outside its domain.
	ErrInvalidMetric = &Error{Kind: KindInvalidMetric, Message: "invalid metric value"}

	// ErrMalformedVector is returned when a vector string does not match
	// the canonical CVSS v3.1 encoding.
	ErrMalformedVector = &Error{Kind: KindMalformedVector, Message: "malformed CVSS vector"}

	// ErrInvalidConfig is returned for invalid configuration.
	ErrInvalidConfig = &Error{Kind: KindInvalidInput, Message: "invalid configuration"}

	// ErrUnsupportedFormat is returned for unknown file formats.
	ErrUnsupportedFormat = &Error{Kind: KindInvalidInput, Message: "unsupported format"}
)
