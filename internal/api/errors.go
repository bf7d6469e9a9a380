package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/phrazzld/tasktracker-api/internal/api/shared"
	"github.com/phrazzld/tasktracker-api/internal/domain"
	"github.com/phrazzld/tasktracker-api/internal/service"
	"github.com/phrazzld/tasktracker-api/internal/service/auth"
	"github.com/phrazzld/tasktracker-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, shared.ErrEmptyBody),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrMissingSubject):
		return http.StatusUnauthorized

	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, service.ErrConcurrentUpdate),
		errors.Is(err, store.ErrConflict):
		return http.StatusConflict

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-safe message for err. Validation and
// transition messages are built from request data only, so they are passed
// through; everything unexpected becomes a generic message.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var validationErr *domain.ValidationError
	var transitionErr *domain.TransitionError

	switch {
	case errors.As(err, &validationErr):
		return validationMessage(validationErr)

	case errors.Is(err, shared.ErrEmptyBody):
		return "Request body is required"

	case errors.As(err, &transitionErr):
		return fmt.Sprintf("Cannot change status from %s to %s", transitionErr.From, transitionErr.To)

	case errors.Is(err, domain.ErrUnauthorized):
		return "Unauthorized"

	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, store.ErrNotFound):
		return "Task not found"

	case errors.Is(err, service.ErrConcurrentUpdate),
		errors.Is(err, store.ErrConflict):
		return "Task was modified concurrently, please retry"

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid task data"

	default:
		return "An unexpected error occurred"
	}
}

func validationMessage(err *domain.ValidationError) string {
	switch {
	case err.Message == "":
		return "Invalid request"
	case err.Field == "" || strings.HasPrefix(err.Message, err.Field):
		return err.Message
	default:
		return err.Field + " " + err.Message
	}
}

// HandleAPIError writes the status and safe message for err. Conflicts are
// logged at WARN since they usually mean a client raced the expiry sweep.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error) {
	status := MapErrorToStatusCode(err)

	var opts []shared.ResponseOption
	if status == http.StatusConflict {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, GetSafeErrorMessage(err), err, opts...)
}
