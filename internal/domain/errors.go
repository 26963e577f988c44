// Package domain defines the schema registry, result shapes, ports and errors
// shared by the query pipeline.
package domain

import "fmt"

// NotFoundError indicates a dataset, column or record was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ValidationError indicates invalid input, such as an empty query or a plan
// missing a field required by its shape.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// BackendError indicates the text-generation backend was unreachable or
// returned something unusable. It never reaches callers of the parser; the
// parser absorbs it into the rule-based fallback.
type BackendError struct {
	Message string
	Err     error
}

func (e *BackendError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *BackendError) Unwrap() error { return e.Err }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrBackend wraps err as a BackendError with a formatted message.
func ErrBackend(err error, format string, args ...interface{}) *BackendError {
	return &BackendError{Message: fmt.Sprintf(format, args...), Err: err}
}
