// Package apperrors provides the unified error type used across the engine.
// Every failure surfaced by the coordinator or the remote adapter is one of
// these, so callers branch on Kind rather than on message strings.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for programmatic handling.
type Kind string

const (
	// Business errors
	KindValidation Kind = "VALIDATION"
	KindNotFound   Kind = "NOT_FOUND"
	KindConflict   Kind = "CONFLICT"
	KindQuota      Kind = "QUOTA_EXCEEDED"

	// Infrastructure errors
	KindTimeout  Kind = "TIMEOUT"
	KindNetwork  Kind = "NETWORK"
	KindInternal Kind = "INTERNAL"
)

// Error is the single error type shared by all layers of the engine.
type Error struct {
	Kind      Kind   `json:"kind"`
	Code      string `json:"code"`    // Specific error code for programmatic handling
	Message   string `json:"message"` // Human-readable message
	Operation string `json:"operation,omitempty"`
	Resource  string `json:"resource,omitempty"`
	Retryable bool   `json:"retryable"`
	Cause     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("[%s:%s] %s: %s", e.Kind, e.Code, e.Operation, e.Message)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Kind, e.Code, e.Message)
}

// Unwrap allows errors.Is and errors.As to reach the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Builder provides fluent construction of Error values.
type Builder struct {
	err *Error
}

// New creates a builder with the given kind, code and message.
func New(kind Kind, code, message string) *Builder {
	return &Builder{err: &Error{
		Kind:    kind,
		Code:    code,
		Message: message,
	}}
}

func (b *Builder) WithOperation(op string) *Builder {
	b.err.Operation = op
	return b
}

func (b *Builder) WithResource(resource string) *Builder {
	b.err.Resource = resource
	return b
}

func (b *Builder) WithRetryable(retryable bool) *Builder {
	b.err.Retryable = retryable
	return b
}

func (b *Builder) WithCause(cause error) *Builder {
	b.err.Cause = cause
	return b
}

// Build returns the constructed Error.
func (b *Builder) Build() *Error {
	return b.err
}

// Convenience constructors. Retryability defaults follow the error class:
// infrastructure failures can be retried, business rejections cannot.

func Validation(code, message string) *Builder {
	return New(KindValidation, code, message)
}

func NotFound(code, message string) *Builder {
	return New(KindNotFound, code, message)
}

func Conflict(code, message string) *Builder {
	return New(KindConflict, code, message).WithRetryable(true)
}

func Quota(code, message string) *Builder {
	return New(KindQuota, code, message)
}

func Timeout(code, message string) *Builder {
	return New(KindTimeout, code, message).WithRetryable(true)
}

func Network(code, message string) *Builder {
	return New(KindNetwork, code, message).WithRetryable(true)
}

func Internal(code, message string) *Builder {
	return New(KindInternal, code, message)
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

func IsValidation(err error) bool { return IsKind(err, KindValidation) }
func IsNotFound(err error) bool   { return IsKind(err, KindNotFound) }
func IsConflict(err error) bool   { return IsKind(err, KindConflict) }
func IsQuota(err error) bool      { return IsKind(err, KindQuota) }
func IsTimeout(err error) bool    { return IsKind(err, KindTimeout) }
func IsNetwork(err error) bool    { return IsKind(err, KindNetwork) }

// IsRetryable reports whether the failed operation may be retried as-is.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// Wrap adds operation context to an existing error while preserving its
// classification. Non-Error causes become KindInternal.
func Wrap(err error, operation, message string) *Error {
	if err == nil {
		return nil
	}

	var existing *Error
	if errors.As(err, &existing) {
		return &Error{
			Kind:      existing.Kind,
			Code:      existing.Code,
			Message:   message,
			Operation: operation,
			Resource:  existing.Resource,
			Retryable: existing.Retryable,
			Cause:     err,
		}
	}

	return &Error{
		Kind:      KindInternal,
		Code:      "WRAP_ERROR",
		Message:   message,
		Operation: operation,
		Cause:     err,
	}
}
