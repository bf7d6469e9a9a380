package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/tasktracker-api/internal/api/shared"
	"github.com/phrazzld/tasktracker-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceMiddleware(t *testing.T) {
	buf, log := logger.NewTestLogger(t)

	var traceID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = shared.GetTraceID(r.Context())
		logger.FromContext(r.Context()).Info("inside handler")
	})

	rr := httptest.NewRecorder()
	TraceMiddleware(log)(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/tasks", nil))

	require.Len(t, traceID, shared.TraceIDLength)

	entries, err := buf.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, traceID, e["trace_id"])
	}
}

func TestCORS(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusTeapot)
	})
	h := CORS(DefaultCORSConfig("https://app.example.com"))(next)

	t.Run("preflight short-circuits", func(t *testing.T) {
		called = false
		req := httptest.NewRequest(http.MethodOptions, "/tasks", nil)
		req.Header.Set("Origin", "https://app.example.com")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Empty(t, rr.Body.String())
		assert.False(t, called)
		assert.Equal(t, "https://app.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), "PUT")
		assert.Contains(t, rr.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	})

	t.Run("unlisted origin gets no allow header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusTeapot, rr.Code)
		assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("wildcard", func(t *testing.T) {
		rr := httptest.NewRecorder()
		CORS(DefaultCORSConfig())(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/tasks", nil))
		assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
	})
}
