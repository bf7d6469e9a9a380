package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/phrazzld/tasktracker-api/internal/domain"
	"github.com/phrazzld/tasktracker-api/internal/store"
)

// TaskService provides the caller-facing task operations. Every operation is
// scoped to OwnerID, which comes from the authenticated caller.
type TaskService interface {
	// Create stores a new Pending task, replacing any task with the same id.
	Create(ctx context.Context, in CreateTaskInput) (*domain.Task, error)

	// List returns all of the owner's tasks.
	List(ctx context.Context, ownerID string) ([]*domain.Task, error)

	// Update renames a task and/or changes its status.
	Update(ctx context.Context, in UpdateTaskInput) (*domain.Task, error)

	// Delete removes a task. Deleting an absent task succeeds.
	Delete(ctx context.Context, ownerID, taskID string) error
}

// CreateTaskInput holds the fields for Create.
type CreateTaskInput struct {
	OwnerID    string
	OwnerEmail string
	TaskID     string
	Name       string
	// ExpiryHours defaults to the configured default when nil.
	ExpiryHours *float64
}

// UpdateTaskInput holds the fields for Update. Nil fields are unchanged.
type UpdateTaskInput struct {
	OwnerID string
	TaskID  string
	Status  *string
	Name    *string
}

// TaskServiceConfig holds creation defaults and limits.
type TaskServiceConfig struct {
	DefaultExpiryHours float64
	MaxExpiryHours     float64
}

// DefaultTaskServiceConfig returns a 24 hour default expiry with a one year cap.
func DefaultTaskServiceConfig() TaskServiceConfig {
	return TaskServiceConfig{DefaultExpiryHours: 24, MaxExpiryHours: 8760}
}

// TaskServiceOption customises a task service.
type TaskServiceOption func(*taskServiceImpl)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) TaskServiceOption {
	return func(s *taskServiceImpl) { s.now = now }
}

// statusUpdateAttempts bounds retries when the stored status changes
// between read and conditional write.
const statusUpdateAttempts = 2

type taskServiceImpl struct {
	store  store.TaskStore
	config TaskServiceConfig
	logger *slog.Logger
	now    func() time.Time
}

var _ TaskService = (*taskServiceImpl)(nil)

// NewTaskService creates a TaskService. Zero config values take the defaults.
func NewTaskService(taskStore store.TaskStore, config TaskServiceConfig, logger *slog.Logger, opts ...TaskServiceOption) (TaskService, error) {
	if taskStore == nil {
		return nil, domain.NewValidationError("taskStore", "cannot be nil", nil)
	}
	if logger == nil {
		return nil, domain.NewValidationError("logger", "cannot be nil", nil)
	}

	defaults := DefaultTaskServiceConfig()
	if config.DefaultExpiryHours <= 0 {
		config.DefaultExpiryHours = defaults.DefaultExpiryHours
	}
	if config.MaxExpiryHours <= 0 {
		config.MaxExpiryHours = defaults.MaxExpiryHours
	}
	if config.MaxExpiryHours < config.DefaultExpiryHours {
		return nil, domain.NewValidationError("MaxExpiryHours", "must not be below the default expiry", nil)
	}

	s := &taskServiceImpl{
		store:  taskStore,
		config: config,
		logger: logger.With("component", "task_service"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *taskServiceImpl) Create(ctx context.Context, in CreateTaskInput) (*domain.Task, error) {
	if strings.TrimSpace(in.OwnerID) == "" {
		return nil, domain.ErrUnauthorized
	}
	if strings.TrimSpace(in.TaskID) == "" || strings.TrimSpace(in.Name) == "" {
		return nil, domain.NewValidationError("", "TaskId and TaskName are required", nil)
	}

	hours := s.config.DefaultExpiryHours
	if in.ExpiryHours != nil {
		hours = *in.ExpiryHours
	}
	if math.IsNaN(hours) || hours <= 0 || hours > s.config.MaxExpiryHours {
		return nil, domain.NewValidationError("ExpiryHours",
			fmt.Sprintf("ExpiryHours must be greater than 0 and at most %g", s.config.MaxExpiryHours), nil)
	}

	ttl := time.Duration(hours * float64(time.Hour))
	task, err := domain.NewTask(in.OwnerID, in.OwnerEmail, in.TaskID, in.Name, s.now(), ttl)
	if err != nil {
		return nil, err
	}

	if err := s.store.Put(ctx, task); err != nil {
		s.logger.ErrorContext(ctx, "failed to store task",
			"owner_id", in.OwnerID,
			"task_id", in.TaskID,
			"error", err)
		return nil, NewTaskServiceError("create", "failed to store task", err)
	}

	s.logger.DebugContext(ctx, "task created",
		"owner_id", task.OwnerID,
		"task_id", task.TaskID,
		"expires_at", task.ExpiresAt)
	return task, nil
}

func (s *taskServiceImpl) List(ctx context.Context, ownerID string) ([]*domain.Task, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, domain.ErrUnauthorized
	}

	tasks, err := s.store.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, NewTaskServiceError("list", "failed to list tasks", err)
	}
	return tasks, nil
}

func (s *taskServiceImpl) Update(ctx context.Context, in UpdateTaskInput) (*domain.Task, error) {
	if strings.TrimSpace(in.OwnerID) == "" {
		return nil, domain.ErrUnauthorized
	}
	if strings.TrimSpace(in.TaskID) == "" {
		return nil, domain.NewValidationError("TaskId", "TaskId is required", nil)
	}
	if in.Status == nil && in.Name == nil {
		return nil, domain.NewValidationError("", "Nothing to update", nil)
	}

	update := store.TaskUpdate{Name: in.Name, UpdatedAt: s.now()}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, domain.NewValidationError("TaskName", "TaskName cannot be empty", nil)
	}

	if in.Status == nil {
		task, err := s.store.UpdateFields(ctx, in.OwnerID, in.TaskID, update)
		if err != nil {
			return nil, NewTaskServiceError("update", "failed to rename task", err)
		}
		return task, nil
	}

	target, err := domain.ParseTaskStatus(*in.Status)
	if err != nil {
		return nil, domain.NewValidationError("Status", fmt.Sprintf("Status %q is not one of Pending, Completed, Cancelled", *in.Status), err)
	}
	return s.changeStatus(ctx, in, target, update)
}

// changeStatus reads the current status, checks the transition, and writes
// conditionally on that status so a concurrent sweep cannot be overwritten.
// changeStatus applies a caller status change with a conditional write.
// The write only succeeds while the stored status is the one the transition
// was checked against. On a conflict the task is re-read and the transition
// re-checked, up to statusUpdateAttempts times, before ErrConcurrentUpdate.
func (s *taskServiceImpl) changeStatus(
	ctx context.Context,
	in UpdateTaskInput,
	target domain.TaskStatus,
	update store.TaskUpdate,
) (*domain.Task, error) {
	for attempt := 1; attempt <= statusUpdateAttempts; attempt++ {
		// Read the current status
		current, err := s.store.Get(ctx, in.OwnerID, in.TaskID)
		if err != nil {
			return nil, NewTaskServiceError("update", "failed to read task", err)
		}
		// Validate the transition against what is stored now
		if err := domain.CheckTransition(current.Status, target); err != nil {
			return nil, err
		}

		// Write only if the status is unchanged since the read
		from := current.Status
		update.Status = &target
		update.IfStatus = &from

		task, err := s.store.UpdateFields(ctx, in.OwnerID, in.TaskID, update)
		if errors.Is(err, store.ErrStatusConflict) {
			// The sweep or another request got there first
			s.logger.InfoContext(ctx, "task status changed during update, retrying",
				"owner_id", in.OwnerID,
				"task_id", in.TaskID,
				"attempt", attempt)
			continue
		}
		if err != nil {
			return nil, NewTaskServiceError("update", "failed to update task", err)
		}
		return task, nil
	}
	return nil, ErrConcurrentUpdate
}

func (s *taskServiceImpl) Delete(ctx context.Context, ownerID, taskID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return domain.ErrUnauthorized
	}
	if strings.TrimSpace(taskID) == "" {
		return domain.NewValidationError("TaskId", "TaskId is required", nil)
	}

	if err := s.store.Delete(ctx, ownerID, taskID); err != nil {
		return NewTaskServiceError("delete", "failed to delete task", err)
	}
	return nil
}
