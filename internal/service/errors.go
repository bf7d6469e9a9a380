package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/tasktracker-api/internal/domain"
	"github.com/phrazzld/tasktracker-api/internal/store"
)

// Service sentinel errors. The API layer maps them to HTTP status codes.
var (
	// ErrTaskNotFound indicates the caller has no task with the given id.
	ErrTaskNotFound = errors.New("task not found")

	// ErrConcurrentUpdate indicates the task's status kept changing underneath
	// a status update, typically because the expiry sweep raced with it.
	ErrConcurrentUpdate = errors.New("task was modified concurrently")
)

// TaskServiceError wraps unexpected errors from the task service with context.
type TaskServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for TaskServiceError.
func (e *TaskServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("task service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("task service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *TaskServiceError) Unwrap() error {
	return e.Err
}

// NewTaskServiceError returns expected conditions unchanged (domain errors)
// or as service sentinels (store not-found), and wraps everything else.
func NewTaskServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrTaskNotFound), errors.Is(err, store.ErrTaskNotFound):
		return ErrTaskNotFound
	case errors.Is(err, ErrConcurrentUpdate):
		return ErrConcurrentUpdate
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrUnauthorized):
		return err
	}

	return &TaskServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
