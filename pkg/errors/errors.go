// Package errors provides the domain error type shared across the fraud
// scoring services.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
)

// Standard error functions
var (
	Is     = errors.Is
	As     = errors.As
	Join   = errors.Join
	Unwrap = errors.Unwrap
)

// Well-known error kinds.
const (
	KindValidation       = "Validation"
	KindNotFound         = "NotFound"
	KindModelUnavailable = "ModelUnavailable"
	KindFeatureMissing   = "FeatureMissing"
	KindDatasetEmpty     = "DatasetEmpty"
	KindStorage          = "Storage"
	KindStream           = "Stream"
	KindInternal         = "Internal"
)

// FieldError represents a validation error for a specific field
type FieldError struct {
	Kind    string `json:"kind"`
	Field   string `json:"field"`
	Message string `json:"message,omitempty"`
}

func (f *FieldError) Error() string {
	return fmt.Sprintf("%s (%s): %s", f.Field, f.Kind, f.Message)
}

func NewFieldError(kind, field, reason string) FieldError {
	return FieldError{Kind: kind, Field: field, Message: reason}
}

// Error is a custom error type for passing more information
type Error struct {
	// Kind is the returned error type
	Kind string `json:"kind"`
	// Message is the human readable string that indicates the error
	Message string `json:"message"`
	// Fields used when there's a validation error for a field.
	Fields []FieldError `json:"fields,omitempty"`

	trace []byte
	cause error
}

var _ error = (*Error)(nil)

func New(message string) *Error {
	return &Error{Kind: KindInternal, Message: message}
}

func NewWithKind(kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(err error) *Error {
	return &Error{Kind: KindInternal, cause: err}
}

// Error implements error
func (e *Error) Error() string {
	str := fmt.Sprintf("[%s] ", e.Kind)
	if e.Message != "" {
		str += e.Message
	}
	if e.cause != nil {
		str += fmt.Sprintf(" (%s)", e.cause)
	}
	if len(e.trace) > 0 {
		str += fmt.Sprintf("\n\nTrace: %s", string(e.trace))
	}
	return str
}

// Reason returns a copy of the error with kind set to the given value
func (e *Error) Reason(kind string) *Error {
	err := *e
	err.Kind = kind
	return &err
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Wrap sets the error cause
func (e *Error) Wrap(cause error) *Error {
	e.cause = cause
	return e
}

// Explain makes a copy of the error with the given message
func (e *Error) Explain(message string, args ...any) *Error {
	err := *e
	err.Message = fmt.Sprintf(message, args...)
	return &err
}

// Trace sets the error stack trace
func (e *Error) Trace() *Error {
	stack := make([]byte, 2048)
	n := runtime.Stack(stack, false)
	e.trace = stack[:n]
	return e
}

// WithField returns a copy of the error with the field error appended.
func (e *Error) WithField(kind, field, message string) *Error {
	err := *e
	err.Fields = append(err.Fields, NewFieldError(kind, field, message))
	return &err
}

// Is implements the needed interface for errors.Is.
// It checks kind for equality.
func (e *Error) Is(target error) bool {
	if e == nil {
		return target == nil
	}
	if other, ok := target.(*Error); ok {
		return other.Kind == e.Kind
	}
	if e.cause != nil {
		return Is(e.cause, target)
	}
	return false
}

// Sentinel errors used across the scoring pipeline.
var (
	ErrModelUnavailable = NewWithKind(KindModelUnavailable, "model not available for evaluation")
	ErrFeatureMissing   = NewWithKind(KindFeatureMissing, "feature not found")
	ErrDatasetEmpty     = NewWithKind(KindDatasetEmpty, "dataset contains no rows")
	ErrNotFound         = NewWithKind(KindNotFound, http.StatusText(http.StatusNotFound))
)

// HTTPStatus maps an error to the HTTP status code API handlers should return.
func HTTPStatus(err error) int {
	var e *Error
	if !As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindValidation, KindFeatureMissing, KindDatasetEmpty:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindModelUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
