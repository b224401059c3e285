package models

import (
	"errors"
	"strings"
)

var (
	// ErrValidation is wrapped by every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates a duplicate case number.
	ErrConflict = errors.New("conflict")
	// ErrNotFound is returned by operations that require an existing record.
	ErrNotFound = errors.New("not found")
	// ErrQueueCorruption marks a queue entry without a resolvable record.
	ErrQueueCorruption = errors.New("queue entry corrupt")
)

// ValidationError lists every problem found in a record before persistence.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError returns nil when there are no problems.
func NewValidationError(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: problems}
}
