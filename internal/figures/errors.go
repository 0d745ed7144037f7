package figures

import (
	"errors"
	"fmt"
)

// Common figure extraction errors
var (
	// ErrExtractionFailed is returned when the embedded image pass over the
	// document cannot run at all.
	ErrExtractionFailed = errors.New("figure extraction failed")
)

// FigureError wraps errors with additional context about figure extraction failures.
type FigureError struct {
	// Op is the operation that failed (e.g., "Extract", "ExtractEnhanced").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *FigureError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("figures: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("figures: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *FigureError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *FigureError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewFigureError creates a new FigureError with the specified operation and underlying error.
func NewFigureError(op string, err error, details string) *FigureError {
	return &FigureError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// WrapFigureError wraps an error as a FigureError if it isn't already one.
func WrapFigureError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var figErr *FigureError
	if errors.As(err, &figErr) {
		return err // Already wrapped
	}

	return NewFigureError(op, err, details)
}
