// Package memory provides an in-process store.TaskStore used for tests,
// demos, and single-instance runs where durability is not required.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/phrazzld/tasktracker-api/internal/domain"
	"github.com/phrazzld/tasktracker-api/internal/store"
)

type taskKey struct {
	ownerID string
	taskID  string
}

// TaskStore keeps tasks in a map guarded by a mutex. Returned tasks are
// copies, so callers never alias stored state.
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[taskKey]domain.Task
}

var _ store.TaskStore = (*TaskStore)(nil)

// NewTaskStore returns an empty store.
func NewTaskStore() *TaskStore {
	return &TaskStore{tasks: make(map[taskKey]domain.Task)}
}

func (s *TaskStore) Put(ctx context.Context, task *domain.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[taskKey{task.OwnerID, task.TaskID}] = *task
	return nil
}

func (s *TaskStore) Get(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[taskKey{ownerID, taskID}]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return &task, nil
}

func (s *TaskStore) GetByOwner(ctx context.Context, ownerID string) ([]*domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	result := make([]*domain.Task, 0)
	for key, task := range s.tasks {
		if key.ownerID == ownerID {
			task := task
			result = append(result, &task)
		}
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return result[i].TaskID < result[j].TaskID })
	return result, nil
}

func (s *TaskStore) UpdateFields(ctx context.Context, ownerID, taskID string, update store.TaskUpdate) (*domain.Task, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := taskKey{ownerID, taskID}
	task, ok := s.tasks[key]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	if update.IfStatus != nil && task.Status != *update.IfStatus {
		return nil, store.ErrStatusConflict
	}
	update.Apply(&task)
	s.tasks[key] = task
	return &task, nil
}

func (s *TaskStore) Delete(ctx context.Context, ownerID, taskID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, taskKey{ownerID, taskID})
	return nil
}

// Scan sorts matching tasks on every call, which is fine at the sizes this
// store is meant for.
func (s *TaskStore) Scan(ctx context.Context, query store.ScanQuery) (store.ScanPage, error) {
	if err := ctx.Err(); err != nil {
		return store.ScanPage{}, err
	}
	s.mu.RLock()
	matched := make([]*domain.Task, 0)
	for _, task := range s.tasks {
		if query.Matches(&task) {
			task := task
			matched = append(matched, &task)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return store.CursorFor(matched[i]).Before(matched[j])
	})

	limit := query.EffectiveLimit()
	if len(matched) > limit+1 {
		matched = matched[:limit+1]
	}
	return store.NewScanPage(matched, limit), nil
}

// Len returns the number of stored tasks.
func (s *TaskStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}
