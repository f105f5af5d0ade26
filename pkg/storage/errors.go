// Package storage provides standardized error types for storage operations.
package storage

import (
	"errors"
	"fmt"
)

// Standard storage error types that all implementations should use.
var (
	// ErrFindingNotFound indicates a finding was not found by the given identifier.
	ErrFindingNotFound = errors.New("finding not found")

	// ErrInvalidFindingStatus indicates a status value outside the triage enum.
	ErrInvalidFindingStatus = errors.New("invalid finding status")
)

// FindingError wraps finding-related errors with additional context.
type FindingError struct {
	Op        string // Operation being performed (e.g., "Save", "ByID", "UpdateStatus")
	FindingID string // Finding ID if applicable
	Err       error  // Underlying error
}

func (e *FindingError) Error() string {
	return fmt.Sprintf("%s operation failed for finding %s: %v", e.Op, e.FindingID, e.Err)
}

func (e *FindingError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for finding errors.
func (e *FindingError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewFindingError creates a new finding error with context.
func NewFindingError(op, findingID string, err error) *FindingError {
	return &FindingError{
		Op:        op,
		FindingID: findingID,
		Err:       err,
	}
}

// IsFindingNotFound checks if an error indicates a finding was not found.
func IsFindingNotFound(err error) bool {
	return errors.Is(err, ErrFindingNotFound)
}
