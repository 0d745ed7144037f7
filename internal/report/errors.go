package report

import (
	"errors"
	"fmt"
)

// Common report generation errors
var (
	// ErrTemplateFailed is returned when the report template cannot be executed.
	ErrTemplateFailed = errors.New("report template execution failed")
)

// ReportError wraps errors with additional context about report generation failures.
type ReportError struct {
	// Op is the operation that failed (e.g., "Generate").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *ReportError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("report: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("report: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ReportError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *ReportError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewReportError creates a new ReportError with the specified operation and underlying error.
func NewReportError(op string, err error, details string) *ReportError {
	return &ReportError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// WrapReportError wraps an error as a ReportError if it isn't already one.
func WrapReportError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var repErr *ReportError
	if errors.As(err, &repErr) {
		return err // Already wrapped
	}

	return NewReportError(op, err, details)
}
