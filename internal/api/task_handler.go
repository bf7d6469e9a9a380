package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/phrazzld/tasktracker-api/internal/api/shared"
	"github.com/phrazzld/tasktracker-api/internal/domain"
	"github.com/phrazzld/tasktracker-api/internal/platform/logger"
	"github.com/phrazzld/tasktracker-api/internal/service"
)

// TaskHandler serves the /tasks endpoints. Every request is scoped to the
// owner placed in the context by the auth middleware.
type TaskHandler struct {
	taskService service.TaskService
	logger      *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(taskService service.TaskService, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{
		taskService: taskService,
		logger:      logger.With("component", "task_handler"),
	}
}

// ListTasks handles GET /tasks.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	ownerID, _, ok := h.owner(w, r)
	if !ok {
		return
	}

	tasks, err := h.taskService.List(r.Context(), ownerID)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TaskListResponse{
		Message: "Tasks retrieved successfully",
		Tasks:   NewTaskResponses(tasks),
	})
}

// CreateTask handles POST /tasks.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	ownerID, email, ok := h.owner(w, r)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.taskService.Create(r.Context(), service.CreateTaskInput{
		OwnerID:     ownerID,
		OwnerEmail:  email,
		TaskID:      req.TaskID,
		Name:        req.TaskName,
		ExpiryHours: req.ExpiryHours,
	})
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	h.log(r).Info("task created", "owner_id", ownerID, "task_id", task.TaskID)
	shared.RespondWithJSON(w, r, http.StatusCreated, TaskEnvelope{
		Message: "Task created successfully",
		Task:    NewTaskResponse(task),
	})
}

// UpdateTask handles PUT /tasks.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	ownerID, _, ok := h.owner(w, r)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.taskService.Update(r.Context(), service.UpdateTaskInput{
		OwnerID: ownerID,
		TaskID:  req.TaskID,
		Status:  req.Status,
		Name:    req.TaskName,
	})
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	h.log(r).Info("task updated", "owner_id", ownerID, "task_id", task.TaskID, "status", task.Status)
	shared.RespondWithJSON(w, r, http.StatusOK, TaskEnvelope{
		Message: fmt.Sprintf("Task %s updated successfully", task.TaskID),
		Task:    NewTaskResponse(task),
	})
}

// DeleteTask handles DELETE /tasks. Deleting a task that does not exist
// succeeds.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	ownerID, _, ok := h.owner(w, r)
	if !ok {
		return
	}

	var req DeleteTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.taskService.Delete(r.Context(), ownerID, req.TaskID); err != nil {
		HandleAPIError(w, r, err)
		return
	}

	h.log(r).Info("task deleted", "owner_id", ownerID, "task_id", req.TaskID)
	shared.RespondWithJSON(w, r, http.StatusOK, shared.MessageResponse{
		Message: fmt.Sprintf("Task %s deleted successfully", req.TaskID),
	})
}

func (h *TaskHandler) owner(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	ownerID, email, ok := shared.OwnerFromContext(r.Context())
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized)
		return "", "", false
	}
	return ownerID, email, true
}

// log prefers the request-scoped logger so lines carry the trace id.
func (h *TaskHandler) log(r *http.Request) *slog.Logger {
	if l := logger.FromContext(r.Context()); l != nil {
		return l.With("component", "task_handler")
	}
	return h.logger
}

// decodeAndValidate reads a JSON body into v and runs its validation tags,
// answering 400 itself on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := shared.DecodeJSON(r, v); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := shared.ValidateRequest(v); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, shared.ValidationMessage(err), err)
		return false
	}
	return true
}
