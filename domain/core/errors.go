package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound       = errors.New("resource not found")
	ErrColumnNotFound = fmt.Errorf("%w: column", ErrNotFound)

	// Validation errors
	ErrInvalidRequest   = errors.New("invalid analysis request")
	ErrNonNumeric       = errors.New("column is not numeric")
	ErrInsufficientData = errors.New("insufficient data for analysis")
)

// NewColumnNotFoundError reports a column missing from a table
func NewColumnNotFoundError(column string) error {
	return fmt.Errorf("%w %q", ErrColumnNotFound, column)
}

func NewValidationError(field string, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidRequest, field, reason)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrNonNumeric) ||
		errors.Is(err, ErrInsufficientData)
}
