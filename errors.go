package reporter

import (
	"errors"
	"fmt"
)

// RuntimeError represents an operational error that should lead to exit
// code 2. Examples include configuration errors or an unreadable results
// file.
type RuntimeError struct {
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error: %v", e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// NewRuntimeError creates a new RuntimeError
func NewRuntimeError(err error) *RuntimeError {
	return &RuntimeError{Err: err}
}

// IsRuntimeError checks if the error is or wraps a RuntimeError
func IsRuntimeError(err error) bool {
	var runtimeErr *RuntimeError
	return err != nil && errors.As(err, &runtimeErr)
}

// ReportError represents a degraded reporting outcome (exit code 1): the
// test run itself finished, but results could not be delivered to any
// backend.
type ReportError struct {
	Message string
}

func (e *ReportError) Error() string {
	return fmt.Sprintf("report failure: %s", e.Message)
}

// NewReportError creates a new ReportError
func NewReportError(message string) *ReportError {
	return &ReportError{Message: message}
}

// IsReportError checks if the error is or wraps a ReportError
func IsReportError(err error) bool {
	var reportErr *ReportError
	return err != nil && errors.As(err, &reportErr)
}
