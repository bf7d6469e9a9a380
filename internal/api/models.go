package api

import (
	"time"

	"github.com/phrazzld/tasktracker-api/internal/domain"
)

// Field names follow the wire format existing clients already send, so they
// are PascalCase rather than the snake_case used elsewhere.

// CreateTaskRequest is the body of POST /tasks.
type CreateTaskRequest struct {
	TaskID   string `json:"TaskId"   validate:"required"`
	TaskName string `json:"TaskName" validate:"required"`
	// ExpiryHours defaults to the configured default when omitted.
	ExpiryHours *float64 `json:"ExpiryHours,omitempty" validate:"omitempty,gt=0"`
}

// UpdateTaskRequest is the body of PUT /tasks. At least one of Status and
// TaskName must be present.
type UpdateTaskRequest struct {
	TaskID   string  `json:"TaskId"             validate:"required"`
	Status   *string `json:"Status,omitempty"`
	TaskName *string `json:"TaskName,omitempty"`
}

// DeleteTaskRequest is the body of DELETE /tasks.
type DeleteTaskRequest struct {
	TaskID string `json:"TaskId" validate:"required"`
}

// TaskResponse is the wire form of a task.
type TaskResponse struct {
	UserID     string `json:"UserId"`
	TaskID     string `json:"TaskId"`
	TaskName   string `json:"TaskName"`
	Status     string `json:"Status"`
	UserEmail  string `json:"UserEmail,omitempty"`
	CreatedAt  string `json:"CreatedAt"`
	ExpiryDate string `json:"ExpiryDate"`
	UpdatedAt  string `json:"UpdatedAt,omitempty"`
}

// TaskListResponse is the body of a successful GET /tasks.
type TaskListResponse struct {
	Message string         `json:"message"`
	Tasks   []TaskResponse `json:"tasks"`
}

// TaskEnvelope is the body of a successful create or update.
type TaskEnvelope struct {
	Message string       `json:"message"`
	Task    TaskResponse `json:"task"`
}

// NewTaskResponse converts a domain task. Times are RFC 3339 in UTC.
func NewTaskResponse(t *domain.Task) TaskResponse {
	return TaskResponse{
		UserID:     t.OwnerID,
		TaskID:     t.TaskID,
		TaskName:   t.Name,
		Status:     string(t.Status),
		UserEmail:  t.OwnerEmail,
		CreatedAt:  formatTime(t.CreatedAt),
		ExpiryDate: formatTime(t.ExpiresAt),
		UpdatedAt:  formatTime(t.UpdatedAt),
	}
}

// NewTaskResponses converts a slice, never returning nil so an empty list
// renders as [].
func NewTaskResponses(tasks []*domain.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, NewTaskResponse(t))
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
