package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates user-correctable bad input.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates a uniqueness or lifecycle conflict.
	ErrConflict = errors.New("conflict")
	// ErrConsistency indicates derived state violated an internal invariant.
	// Treated as a programming error, never a user-facing condition.
	ErrConsistency = errors.New("consistency violation")
)

// Validationf wraps ErrValidation with a descriptive message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf wraps ErrNotFound with a descriptive message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Conflictf wraps ErrConflict with a descriptive message.
func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}
