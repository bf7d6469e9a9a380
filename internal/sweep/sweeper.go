package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasktracker-api/internal/domain"
	"github.com/phrazzld/tasktracker-api/internal/notify"
	"github.com/phrazzld/tasktracker-api/internal/store"
)

// Result summarises one sweep run.
type Result struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration

	// Scanned counts tasks returned by the store scan.
	Scanned int
	// Expired counts tasks transitioned to Expired by this run.
	Expired int
	// Skipped counts tasks that no longer qualified when written, usually
	// because a caller changed them mid-sweep.
	Skipped int
	// Failed counts tasks whose write failed for another reason.
	Failed int
	// NotifyFailed counts expired tasks whose notification was not accepted.
	NotifyFailed int
}

// LogAttrs returns the result as structured log attributes.
func (r Result) LogAttrs() []any {
	return []any{
		"run_id", r.RunID,
		"scanned", r.Scanned,
		"expired", r.Expired,
		"skipped", r.Skipped,
		"failed", r.Failed,
		"notify_failed", r.NotifyFailed,
		"duration_ms", r.Duration.Milliseconds(),
	}
}

// Sweeper performs expiry sweeps over a TaskStore.
type Sweeper struct {
	store    store.TaskStore
	notifier notify.Notifier
	metrics  Metrics
	logger   *slog.Logger
	now      func() time.Time
	pageSize int
}

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) { s.now = now }
}

// WithMetrics records run outcomes in m.
func WithMetrics(m Metrics) Option {
	return func(s *Sweeper) { s.metrics = m }
}

// WithPageSize sets the scan page size.
func WithPageSize(n int) Option {
	return func(s *Sweeper) { s.pageSize = n }
}

// NewSweeper creates a Sweeper. The store, notifier, and logger are required.
func NewSweeper(taskStore store.TaskStore, notifier notify.Notifier, logger *slog.Logger, opts ...Option) (*Sweeper, error) {
	if taskStore == nil {
		return nil, errors.New("sweep: task store cannot be nil")
	}
	if notifier == nil {
		return nil, errors.New("sweep: notifier cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("sweep: logger cannot be nil")
	}

	s := &Sweeper{
		store:    taskStore,
		notifier: notifier,
		metrics:  NopMetrics{},
		logger:   logger.With("component", "expiry_sweeper"),
		now:      time.Now,
		pageSize: store.DefaultScanLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run expires every Pending task whose expiry is before the run's start
// time. The start time is captured once so a long run does not chase tasks
// that become due while it is running.
//
// Per-task failures are logged and counted; Run only returns an error when
// the scan itself fails, together with the counts reached so far.
func (s *Sweeper) Run(ctx context.Context) (Result, error) {
	now := s.now().UTC()
	res := Result{RunID: uuid.NewString(), StartedAt: now}
	log := s.logger.With("run_id", res.RunID)

	log.Info("expiry sweep started", "now", now)

	query := store.ScanQuery{
		Status:        domain.TaskStatusPending,
		ExpiresBefore: now,
		Limit:         s.pageSize,
	}
	err := store.ScanAll(ctx, s.store, query, func(task *domain.Task) error {
		res.Scanned++
		s.expire(ctx, log, task, now, &res)
		return nil
	})

	res.Duration = s.now().Sub(now)
	if err != nil {
		s.metrics.SweepFailed()
		log.Error("expiry sweep aborted", append(res.LogAttrs(), "error", err)...)
		return res, fmt.Errorf("sweep: scan tasks: %w", err)
	}

	s.metrics.SweepCompleted(res)
	log.Info("expiry sweep finished", res.LogAttrs()...)
	return res, nil
}

// expire moves one overdue Pending task to Expired and notifies its owner.
// Every outcome is recorded in res; nothing here aborts the run.
func (s *Sweeper) expire(ctx context.Context, log *slog.Logger, task *domain.Task, now time.Time, res *Result) {
	// The scan filter already selects overdue Pending rows; re-check against
	// the run's fixed now in case a backend returned a boundary row.
	if !task.IsOverdue(now) {
		res.Skipped++
		return
	}

	log = log.With("owner_id", task.OwnerID, "task_id", task.TaskID)

	// Write Expired only if the task is still Pending
	expired := domain.TaskStatusExpired
	pending := domain.TaskStatusPending
	updated, err := s.store.UpdateFields(ctx, task.OwnerID, task.TaskID, store.TaskUpdate{
		Status:    &expired,
		IfStatus:  &pending,
		UpdatedAt: now,
	})
	switch {
	// A caller completed, cancelled or deleted the task after the scan read it
	case errors.Is(err, store.ErrStatusConflict), errors.Is(err, store.ErrTaskNotFound):
		log.Debug("task changed during sweep, skipping", "error", err)
		res.Skipped++
		return
	case err != nil:
		log.Error("failed to expire task", "error", err)
		res.Failed++
		return
	}
	res.Expired++

	// Notify the owner. The expiry is already committed, so a failed
	// notification is counted but never undone.
	if updated.OwnerEmail == "" {
		return
	}
	if err := s.notifier.Notify(ctx, notify.ExpiredNotification(updated)); err != nil {
		log.Warn("failed to notify owner of expired task", "error", err)
		res.NotifyFailed++
	}
}
