package extract

import (
	"errors"
	"fmt"
)

// ExtractError wraps errors with additional context about text extraction failures.
// The package declares no sentinels of its own: every failure it reports wraps a
// document, engine, or context error that callers match with errors.Is.
type ExtractError struct {
	// Op is the operation that failed (e.g., "TextWithLayout", "ChunksForLLM").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *ExtractError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("extract: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("extract: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ExtractError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *ExtractError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewExtractError creates a new ExtractError with the specified operation and underlying error.
func NewExtractError(op string, err error, details string) *ExtractError {
	return &ExtractError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// WrapExtractError wraps an error as an ExtractError if it isn't already one.
func WrapExtractError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var extErr *ExtractError
	if errors.As(err, &extErr) {
		return err // Already wrapped
	}

	return NewExtractError(op, err, details)
}
