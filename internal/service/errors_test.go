package service

import (
	"errors"
	"testing"

	"github.com/phrazzld/tasktracker-api/internal/domain"
	"github.com/phrazzld/tasktracker-api/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestNewTaskServiceError(t *testing.T) {
	assert.Nil(t, NewTaskServiceError("op", "msg", nil))

	assert.Equal(t, ErrTaskNotFound, NewTaskServiceError("update", "read", store.ErrTaskNotFound))
	assert.Equal(t, ErrConcurrentUpdate, NewTaskServiceError("update", "write", ErrConcurrentUpdate))

	validation := domain.NewValidationError("TaskName", "empty", nil)
	assert.Same(t, validation, NewTaskServiceError("create", "validate", validation))

	transition := &domain.TransitionError{From: domain.TaskStatusExpired, To: domain.TaskStatusPending}
	assert.Same(t, transition, NewTaskServiceError("update", "transition", transition))

	cause := errors.New("connection reset")
	err := NewTaskServiceError("list", "failed to list tasks", cause)
	var svcErr *TaskServiceError
	assert.ErrorAs(t, err, &svcErr)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "task service list failed: failed to list tasks: connection reset", err.Error())
}
