package entity

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrAuth is returned for any failed login, whether the email or the credential was wrong
	ErrAuth = errors.New("invalid email or password")

	// ErrDuplicateEmail is returned when registering an email that is already taken
	ErrDuplicateEmail = errors.New("a user with this email already exists")

	// ErrNotFound is returned when a referenced user or expense does not exist
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the actor may not perform the action
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidTransition is returned for state machine violations, including a lost race
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrMissingReason is returned when rejecting without a comment
	ErrMissingReason = errors.New("a reason is required to reject an expense")

	// ErrValidation is returned for malformed drafts, patches and registrations
	ErrValidation = errors.New("validation failed")
)

// ValidationError lists the offending fields of a request
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError creates a validation error for a single field
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: reason}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %s", k, e.Fields[k]))
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

// Unwrap lets errors.Is match ErrValidation
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
