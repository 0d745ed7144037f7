package highlight

import (
	"errors"
	"fmt"
)

// Common highlight rendering errors
var (
	// ErrRenderFailed is returned when a page raster or crop cannot be produced.
	ErrRenderFailed = errors.New("highlight rendering failed")
)

// HighlightError wraps errors with additional context about rendering failures.
type HighlightError struct {
	// Op is the operation that failed (e.g., "Capture").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *HighlightError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("highlight: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("highlight: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *HighlightError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *HighlightError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewHighlightError creates a new HighlightError with the specified operation and underlying error.
func NewHighlightError(op string, err error, details string) *HighlightError {
	return &HighlightError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// WrapHighlightError wraps an error as a HighlightError if it isn't already one.
func WrapHighlightError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var hlErr *HighlightError
	if errors.As(err, &hlErr) {
		return err // Already wrapped
	}

	return NewHighlightError(op, err, details)
}
