package shared

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/tasktracker-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requestWithLogger returns a request whose context carries a trace ID and a
// capturing logger.
func requestWithLogger(t *testing.T) (*http.Request, *logger.TestLogBuffer) {
	t.Helper()
	buf, log := logger.NewTestLogger(t)
	ctx := context.WithValue(context.Background(), TraceIDKey, "test-trace-id")
	ctx = logger.WithLogger(ctx, log)
	req := httptest.NewRequest(http.MethodGet, "/test", nil).WithContext(ctx)
	return req, buf
}

func TestRespondWithJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()

	RespondWithJSON(w, req, http.StatusCreated, MessageResponse{Message: "done"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"message":"done"}`, w.Body.String())
}

type unencodable struct {
	Fn func() `json:"fn"`
}

func TestRespondWithJSONEncodingError(t *testing.T) {
	req, buf := requestWithLogger(t)
	w := httptest.NewRecorder()

	RespondWithJSON(w, req, http.StatusOK, unencodable{Fn: func() {}})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, buf.HasMessage("failed to encode JSON response"))
}

func TestRespondWithError(t *testing.T) {
	req, _ := requestWithLogger(t)
	w := httptest.NewRecorder()

	RespondWithError(w, req, http.StatusBadRequest, "Invalid request")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var response ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "Invalid request", response.Error)
	assert.Equal(t, "test-trace-id", response.TraceID)
}

func TestRespondWithErrorNoTraceID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()

	RespondWithError(w, req, http.StatusUnauthorized, "Unauthorized")

	assert.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String())
}

func TestRespondWithErrorAndLog(t *testing.T) {
	tests := []struct {
		name          string
		statusCode    int
		elevate       bool
		expectedLevel string
	}{
		{"server error", http.StatusInternalServerError, false, "ERROR"},
		{"client error", http.StatusBadRequest, false, "DEBUG"},
		{"elevated client error", http.StatusConflict, true, "WARN"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req, buf := requestWithLogger(t)
			w := httptest.NewRecorder()

			var opts []ResponseOption
			if tc.elevate {
				opts = append(opts, WithElevatedLogLevel())
			}
			cause := errors.New("connect to postgres://admin:hunter2@db:5432/tasks failed")
			RespondWithErrorAndLog(w, req, tc.statusCode, "Something went wrong", cause, opts...)

			assert.Equal(t, tc.statusCode, w.Code)
			assert.NotContains(t, w.Body.String(), "postgres", "raw error must not reach the client")

			entries, err := buf.GetLogEntries()
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, tc.expectedLevel, entries[0]["level"])
			assert.Equal(t, "Something went wrong", entries[0]["user_message"])
			assert.Equal(t, "*errors.errorString", entries[0]["error_type"])
			assert.NotContains(t, entries[0]["error"], "hunter2")
		})
	}
}
