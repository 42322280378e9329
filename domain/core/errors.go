package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound            = errors.New("resource not found")
	ErrApplicationNotFound = fmt.Errorf("%w: application", ErrNotFound)
	ErrAuditNotFound       = fmt.Errorf("%w: audit", ErrNotFound)

	// Validation errors
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidParameters = errors.New("invalid scoring parameters")

	// Lifecycle errors
	ErrConflict        = errors.New("resource already exists")
	ErrNotDecided      = errors.New("application has no final decision")
	ErrStageFailed     = errors.New("stage evaluation failed")
	ErrNonFiniteMetric = errors.New("non-finite metric")
)

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewValidationError(field string, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidInput, field, reason)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrInvalidParameters)
}

func IsConflictError(err error) bool {
	return errors.Is(err, ErrConflict)
}
