package qa

import (
	"errors"
	"fmt"
)

var (
	// ErrBrowserLaunch indicates the Chrome instance could not be started
	// or connected to.
	ErrBrowserLaunch = errors.New("browser launch failed")

	// ErrNavigationFailed indicates the viewer app could not be loaded.
	ErrNavigationFailed = errors.New("navigation failed")

	// ErrElementNotFound indicates an expected UI element never appeared.
	ErrElementNotFound = errors.New("element not found")

	// ErrInteractionFailed indicates an element was found but could not be
	// driven.
	ErrInteractionFailed = errors.New("interaction failed")

	// ErrUnknownScenario indicates the scenario filter matched nothing.
	ErrUnknownScenario = errors.New("unknown scenario")

	// ErrScenarioFailed indicates at least one scenario did not pass.
	ErrScenarioFailed = errors.New("scenario failed")
)

// QAError represents an error that occurred while driving the browser.
type QAError struct {
	// Op is the operation that failed (e.g., "Run", "navigate").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *QAError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("qa: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("qa: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *QAError) Unwrap() error {
	return e.Err
}

// Is enables errors.Is comparisons against the sentinel values.
func (e *QAError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewQAError creates a new QAError.
func NewQAError(op string, err error, details string) *QAError {
	return &QAError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// WrapQAError wraps an error in a QAError unless it already is one.
func WrapQAError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var qaErr *QAError
	if errors.As(err, &qaErr) {
		// Already wrapped
		return err
	}

	return NewQAError(op, err, details)
}
