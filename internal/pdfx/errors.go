package pdfx

import (
	"errors"
	"fmt"
)

// Common document access errors
var (
	// ErrDocumentTooLarge is returned when the PDF exceeds the maximum file size limit.
	ErrDocumentTooLarge = errors.New("PDF file size exceeds the maximum limit (20MB)")

	// ErrInvalidPDF is returned when the provided data is not a valid PDF document.
	ErrInvalidPDF = errors.New("invalid or corrupted PDF document")

	// ErrPageOutOfRange is returned when a requested page number does not exist.
	ErrPageOutOfRange = errors.New("page number out of range")

	// ErrDocumentClosed is returned when a document is used after Close.
	ErrDocumentClosed = errors.New("document is closed")
)

// DocumentError wraps errors with additional context about the failed access.
type DocumentError struct {
	// Op is the operation that failed (e.g., "Open", "Words").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *DocumentError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("pdfx: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("pdfx: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *DocumentError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *DocumentError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewDocumentError creates a new DocumentError with the specified operation and underlying error.
func NewDocumentError(op string, err error, details string) *DocumentError {
	return &DocumentError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// WrapDocumentError wraps an error as a DocumentError if it isn't already one.
func WrapDocumentError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var docErr *DocumentError
	if errors.As(err, &docErr) {
		return err // Already wrapped
	}

	return NewDocumentError(op, err, details)
}
