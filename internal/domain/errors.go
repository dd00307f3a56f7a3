package domain

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrNotFound   = errors.New("record not found")
	ErrInvalidID  = errors.New("invalid id")
	ErrValidation = errors.New("validation failed")
	ErrPersist    = errors.New("failed to persist changes")
	ErrLoad       = errors.New("failed to load data")
)

// ValidationError reports bad or missing input. Nothing is mutated when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Is lets errors.Is(err, ErrValidation) match any *ValidationError
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// PersistError wraps a store failure on a write
func PersistError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersist, op, err)
}

// LoadError wraps a store failure on a read
func LoadError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrLoad, op, err)
}
