package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for validation failures.
var (
	ErrEmptyInput      = errors.New("input is empty")
	ErrInputTooLong    = errors.New("input too long")
	ErrInvalidEncoding = errors.New("input is not valid UTF-8")
	ErrInputInjection  = errors.New("input contains suspicious content")
	ErrLimitOutOfRange = errors.New("limit out of range")
)

// ValidationError wraps a sentinel with context.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError. Long values are truncated.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	if r := []rune(value); len(r) > 64 {
		value = string(r[:64]) + "…"
	}
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}
