package mocks

import (
	"context"

	"github.com/phrazzld/tasktracker-api/internal/domain"
	"github.com/phrazzld/tasktracker-api/internal/service"
)

// MockTaskService implements service.TaskService for handler tests.
type MockTaskService struct {
	CreateFn func(ctx context.Context, in service.CreateTaskInput) (*domain.Task, error)
	ListFn   func(ctx context.Context, ownerID string) ([]*domain.Task, error)
	UpdateFn func(ctx context.Context, in service.UpdateTaskInput) (*domain.Task, error)
	DeleteFn func(ctx context.Context, ownerID, taskID string) error

	DefaultError error
}

var _ service.TaskService = (*MockTaskService)(nil)

func (m *MockTaskService) Create(ctx context.Context, in service.CreateTaskInput) (*domain.Task, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, in)
	}
	return nil, m.DefaultError
}

func (m *MockTaskService) List(ctx context.Context, ownerID string) ([]*domain.Task, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, ownerID)
	}
	return nil, m.DefaultError
}

func (m *MockTaskService) Update(ctx context.Context, in service.UpdateTaskInput) (*domain.Task, error) {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, in)
	}
	return nil, m.DefaultError
}

func (m *MockTaskService) Delete(ctx context.Context, ownerID, taskID string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, ownerID, taskID)
	}
	return m.DefaultError
}
