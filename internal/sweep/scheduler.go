package sweep

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// LockKey is the lease key shared by every instance's scheduler.
const LockKey = "tasktracker:sweep"

// Runner performs one sweep.
type Runner interface {
	Run(ctx context.Context) (Result, error)
}

// SchedulerConfig controls run cadence.
type SchedulerConfig struct {
	Interval   time.Duration
	Timeout    time.Duration
	LockTTL    time.Duration
	RunOnStart bool
}

// Scheduler runs a sweep every Interval until its context ends.
type Scheduler struct {
	runner  Runner
	locker  Locker
	metrics Metrics
	config  SchedulerConfig
	logger  *slog.Logger
}

// NewScheduler creates a Scheduler. A nil locker means LocalLocker and nil
// metrics means NopMetrics.
func NewScheduler(runner Runner, locker Locker, metrics Metrics, config SchedulerConfig, logger *slog.Logger) *Scheduler {
	if locker == nil {
		locker = LocalLocker{}
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if config.Timeout <= 0 {
		config.Timeout = config.Interval
	}
	if config.LockTTL < config.Timeout {
		config.LockTTL = config.Timeout
	}
	return &Scheduler{
		runner:  runner,
		locker:  locker,
		metrics: metrics,
		config:  config,
		logger:  logger.With("component", "sweep_scheduler"),
	}
}

// Run blocks, sweeping on every tick, and returns nil once ctx is done.
// Failed runs are logged; the next tick tries again.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("sweep scheduler started",
		"interval", s.config.Interval.String(),
		"run_on_start", s.config.RunOnStart)

	if s.config.RunOnStart {
		s.tick(ctx)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweep scheduler stopped")
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if _, _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("scheduled sweep failed", "error", err)
	}
}

// RunOnce performs a single sweep under the lease. ran is false when
// another instance held the lease.
func (s *Scheduler) RunOnce(ctx context.Context) (res Result, ran bool, err error) {
	unlock, err := s.locker.TryLock(ctx, LockKey, s.config.LockTTL)
	if errors.Is(err, ErrLockHeld) {
		s.metrics.SweepSkipped()
		s.logger.Info("sweep skipped, lease held elsewhere")
		return Result{}, false, nil
	}
	if err != nil {
		s.metrics.SweepFailed()
		return Result{}, false, err
	}
	defer func() {
		// Release with a fresh context so a cancelled run still frees the lease.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if uerr := unlock(releaseCtx); uerr != nil {
			s.logger.Warn("failed to release sweep lease", "error", uerr)
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	res, err = s.runner.Run(runCtx)
	return res, true, err
}
