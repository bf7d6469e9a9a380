// Package metrics exports sweep and HTTP metrics to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/tasktracker-api/internal/sweep"
	"github.com/prometheus/client_golang/prometheus"
)

// PromMetrics implements sweep.Metrics with Prometheus collectors.
type PromMetrics struct {
	sweepRuns     *prometheus.CounterVec
	tasksExpired  prometheus.Counter
	expireFailed  prometheus.Counter
	notifyFailed  prometheus.Counter
	sweepDuration prometheus.Histogram
	httpRequests  *prometheus.CounterVec
	httpLatency   *prometheus.HistogramVec
}

var _ sweep.Metrics = (*PromMetrics)(nil)

// NewPromMetrics creates and registers the collectors on reg.
func NewPromMetrics(reg prometheus.Registerer) *PromMetrics {
	m := &PromMetrics{
		sweepRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tasktracker_sweep_runs_total",
			Help: "Number of expiry sweep runs by outcome",
		}, []string{"outcome"}),
		tasksExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tasktracker_tasks_expired_total",
			Help: "Number of tasks transitioned to Expired",
		}),
		expireFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tasktracker_task_expire_failures_total",
			Help: "Number of overdue tasks the sweep failed to write",
		}),
		notifyFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tasktracker_expiry_notifications_failed_total",
			Help: "Number of expiry notifications not accepted by the notifier",
		}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tasktracker_sweep_duration_seconds",
			Help:    "Duration of completed expiry sweeps",
			Buckets: prometheus.DefBuckets,
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tasktracker_http_requests_total",
			Help: "Number of HTTP requests by method and status code",
		}, []string{"method", "code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tasktracker_http_request_duration_seconds",
			Help:    "Latency of HTTP requests by method",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}
	reg.MustRegister(m.sweepRuns, m.tasksExpired, m.expireFailed, m.notifyFailed, m.sweepDuration, m.httpRequests, m.httpLatency)
	return m
}

func (m *PromMetrics) SweepCompleted(r sweep.Result) {
	m.sweepRuns.WithLabelValues("completed").Inc()
	m.tasksExpired.Add(float64(r.Expired))
	m.expireFailed.Add(float64(r.Failed))
	m.notifyFailed.Add(float64(r.NotifyFailed))
	m.sweepDuration.Observe(r.Duration.Seconds())
}

func (m *PromMetrics) SweepFailed() {
	m.sweepRuns.WithLabelValues("failed").Inc()
}

func (m *PromMetrics) SweepSkipped() {
	m.sweepRuns.WithLabelValues("skipped").Inc()
}

// methodLabel maps a request method onto a fixed label set. The method is
// client controlled, so anything outside the known verbs shares one series.
func methodLabel(method string) string {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete,
		http.MethodOptions, http.MethodHead, http.MethodPatch:
		return method
	default:
		return "other"
	}
}

// ObserveRequest records one served HTTP request.
func (m *PromMetrics) ObserveRequest(method string, code int, d time.Duration) {
	method = methodLabel(method)
	m.httpRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	m.httpLatency.WithLabelValues(method).Observe(d.Seconds())
}

// Middleware records request counts and latency.
func (m *PromMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		// A handler that never writes is an implicit 200
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.ObserveRequest(r.Method, status, time.Since(start))
	})
}
