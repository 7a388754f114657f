package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by repositories when an aggregate or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the caller does not own the aggregate.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError describes a malformed create or update payload.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func fieldf(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
