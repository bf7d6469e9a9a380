package domain

import (
	"fmt"
	"strings"
	"time"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

// Possible task status values. The string forms are part of the API.
const (
	TaskStatusPending   TaskStatus = "Pending"
	TaskStatusCompleted TaskStatus = "Completed"
	TaskStatusExpired   TaskStatus = "Expired"
	TaskStatusCancelled TaskStatus = "Cancelled"
)

// transitions lists the statuses a caller may move a task to from each state.
// Expired is absent as a target: only the expiry sweep produces it.
var transitions = map[TaskStatus][]TaskStatus{
	TaskStatusPending:   {TaskStatusPending, TaskStatusCompleted, TaskStatusCancelled},
	TaskStatusCompleted: {TaskStatusCompleted, TaskStatusPending},
	TaskStatusCancelled: {TaskStatusCancelled, TaskStatusPending},
	TaskStatusExpired:   {},
}

// ParseTaskStatus converts s into a TaskStatus. Matching is case-insensitive
// so "completed" and "Completed" are the same status.
func ParseTaskStatus(s string) (TaskStatus, error) {
	for status := range transitions {
		if strings.EqualFold(string(status), strings.TrimSpace(s)) {
			return status, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// IsValid reports whether s is one of the known statuses.
func (s TaskStatus) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether a caller may change a task from one status
// to another. Keeping the same status is allowed except for Expired.
func CanTransition(from, to TaskStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CheckTransition returns a *TransitionError when CanTransition is false.
func CheckTransition(from, to TaskStatus) error {
	if !CanTransition(from, to) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}

// Task is a unit of work owned by a single caller. It is identified by the
// pair (OwnerID, TaskID); the same TaskID may exist under different owners.
type Task struct {
	OwnerID    string     `json:"owner_id"`
	TaskID     string     `json:"task_id"`
	Name       string     `json:"name"`
	Status     TaskStatus `json:"status"`
	OwnerEmail string     `json:"owner_email,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// NewTask creates a Pending task whose expiry is createdAt plus ttl.
// The expiry is fixed here and never recomputed. Both timestamps are held
// at microsecond precision, the finest the SQL backends store.
func NewTask(ownerID, ownerEmail, taskID, name string, createdAt time.Time, ttl time.Duration) (*Task, error) {
	createdAt = createdAt.UTC().Truncate(time.Microsecond)
	task := &Task{
		OwnerID:    ownerID,
		TaskID:     taskID,
		Name:       name,
		Status:     TaskStatusPending,
		OwnerEmail: ownerEmail,
		CreatedAt:  createdAt,
		ExpiresAt:  createdAt.Add(ttl).Truncate(time.Microsecond),
		UpdatedAt:  createdAt,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}
	if ttl <= 0 {
		return nil, NewValidationError("ExpiryHours", "must be greater than zero", nil)
	}
	return task, nil
}

// Validate checks the fields every stored task must have.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.OwnerID) == "" {
		return ErrUnauthorized
	}
	if strings.TrimSpace(t.TaskID) == "" {
		return NewValidationError("TaskId", "is required", nil)
	}
	if strings.TrimSpace(t.Name) == "" {
		return NewValidationError("TaskName", "is required", nil)
	}
	if !t.Status.IsValid() {
		return NewValidationError("Status", fmt.Sprintf("unknown status %q", t.Status), ErrInvalidStatus)
	}
	return nil
}

// IsOverdue reports whether the sweep should expire the task at now.
// Only Pending tasks with a set expiry strictly before now qualify.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.Status == TaskStatusPending && !t.ExpiresAt.IsZero() && t.ExpiresAt.Before(now)
}
