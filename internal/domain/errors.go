package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when input fails validation.
	// It is usually reached through a *ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidStatus is returned when a status string is not one of the
	// known task statuses.
	ErrInvalidStatus = errors.New("invalid task status")

	// ErrInvalidTransition is returned when a requested status change is not
	// allowed from the task's current status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrUnauthorized is returned when an operation has no caller identity.
	ErrUnauthorized = errors.New("unauthorized operation")
)

// ValidationError describes a single invalid input field.
// It matches both ErrValidation and its underlying cause under errors.Is.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, message string, err error) *ValidationError {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidation, e.Field, e.Message)
}

func (e *ValidationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrValidation}
	}
	return []error{ErrValidation, e.Err}
}

// TransitionError records a rejected status change.
type TransitionError struct {
	From TaskStatus
	To   TaskStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s", ErrInvalidTransition, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
