package mocks

import (
	"context"

	"github.com/phrazzld/tasktracker-api/internal/domain"
	"github.com/phrazzld/tasktracker-api/internal/store"
)

// MockTaskStore implements store.TaskStore for testing. A method without a
// hook returns DefaultError.
type MockTaskStore struct {
	PutFn          func(ctx context.Context, task *domain.Task) error
	GetFn          func(ctx context.Context, ownerID, taskID string) (*domain.Task, error)
	GetByOwnerFn   func(ctx context.Context, ownerID string) ([]*domain.Task, error)
	UpdateFieldsFn func(ctx context.Context, ownerID, taskID string, update store.TaskUpdate) (*domain.Task, error)
	DeleteFn       func(ctx context.Context, ownerID, taskID string) error
	ScanFn         func(ctx context.Context, query store.ScanQuery) (store.ScanPage, error)

	DefaultError error
}

var _ store.TaskStore = (*MockTaskStore)(nil)

func (m *MockTaskStore) Put(ctx context.Context, task *domain.Task) error {
	if m.PutFn != nil {
		return m.PutFn(ctx, task)
	}
	return m.DefaultError
}

func (m *MockTaskStore) Get(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, ownerID, taskID)
	}
	return nil, m.DefaultError
}

func (m *MockTaskStore) GetByOwner(ctx context.Context, ownerID string) ([]*domain.Task, error) {
	if m.GetByOwnerFn != nil {
		return m.GetByOwnerFn(ctx, ownerID)
	}
	return nil, m.DefaultError
}

func (m *MockTaskStore) UpdateFields(ctx context.Context, ownerID, taskID string, update store.TaskUpdate) (*domain.Task, error) {
	if m.UpdateFieldsFn != nil {
		return m.UpdateFieldsFn(ctx, ownerID, taskID, update)
	}
	return nil, m.DefaultError
}

func (m *MockTaskStore) Delete(ctx context.Context, ownerID, taskID string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, ownerID, taskID)
	}
	return m.DefaultError
}

func (m *MockTaskStore) Scan(ctx context.Context, query store.ScanQuery) (store.ScanPage, error) {
	if m.ScanFn != nil {
		return m.ScanFn(ctx, query)
	}
	return store.ScanPage{}, m.DefaultError
}
