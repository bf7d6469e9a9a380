package sweep

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/phrazzld/tasktracker-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRunner struct {
	runs     atomic.Int32
	err      error
	deadline atomic.Bool
}

func (r *countingRunner) Run(ctx context.Context) (Result, error) {
	r.runs.Add(1)
	if _, ok := ctx.Deadline(); ok {
		r.deadline.Store(true)
	}
	return Result{Expired: 1}, r.err
}

type fakeLocker struct {
	mu       sync.Mutex
	held     bool
	err      error
	released int
	ttl      time.Duration
}

func (l *fakeLocker) TryLock(_ context.Context, key string, ttl time.Duration) (UnlockFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ttl = ttl
	if l.err != nil {
		return nil, l.err
	}
	if l.held {
		return nil, ErrLockHeld
	}
	l.held = true
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.held = false
		l.released++
		return nil
	}, nil
}

func TestSchedulerRunOnce(t *testing.T) {
	t.Parallel()
	_, log := logger.NewTestLogger(t)
	runner := &countingRunner{}
	locker := &fakeLocker{}
	s := NewScheduler(runner, locker, nil, SchedulerConfig{Interval: time.Hour, Timeout: time.Minute}, log)

	res, ran, err := s.RunOnce(context.Background())

	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 1, res.Expired)
	assert.True(t, runner.deadline.Load(), "each run is bounded by a deadline")
	assert.Equal(t, 1, locker.released)
	assert.Equal(t, time.Minute, locker.ttl, "lease ttl is at least the run timeout")
}

func TestSchedulerSkipsWhenLeaseHeld(t *testing.T) {
	t.Parallel()
	_, log := logger.NewTestLogger(t)
	runner := &countingRunner{}
	metrics := &recordingMetrics{}
	s := NewScheduler(runner, &fakeLocker{held: true}, metrics, SchedulerConfig{Interval: time.Hour}, log)

	_, ran, err := s.RunOnce(context.Background())

	require.NoError(t, err)
	assert.False(t, ran)
	assert.Equal(t, int32(0), runner.runs.Load())
	assert.Equal(t, 1, metrics.skipped)
}

func TestSchedulerLockError(t *testing.T) {
	t.Parallel()
	_, log := logger.NewTestLogger(t)
	lockErr := errors.New("redis unavailable")
	metrics := &recordingMetrics{}
	s := NewScheduler(&countingRunner{}, &fakeLocker{err: lockErr}, metrics, SchedulerConfig{Interval: time.Hour}, log)

	_, ran, err := s.RunOnce(context.Background())

	assert.ErrorIs(t, err, lockErr)
	assert.False(t, ran)
	assert.Equal(t, 1, metrics.failed)
}

func TestSchedulerRunTicksUntilCancelled(t *testing.T) {
	t.Parallel()
	_, log := logger.NewTestLogger(t)
	runner := &countingRunner{err: errors.New("transient")}
	s := NewScheduler(runner, nil, nil, SchedulerConfig{Interval: 10 * time.Millisecond, RunOnStart: true}, log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return runner.runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond,
		"failed runs do not stop the schedule")
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestLocalLockerAlwaysGrants(t *testing.T) {
	t.Parallel()
	unlock, err := LocalLocker{}.TryLock(context.Background(), LockKey, time.Second)
	require.NoError(t, err)
	assert.NoError(t, unlock(context.Background()))
}
