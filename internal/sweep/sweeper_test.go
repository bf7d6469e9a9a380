package sweep

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/phrazzld/tasktracker-api/internal/domain"
	"github.com/phrazzld/tasktracker-api/internal/mocks"
	"github.com/phrazzld/tasktracker-api/internal/notify"
	"github.com/phrazzld/tasktracker-api/internal/platform/logger"
	"github.com/phrazzld/tasktracker-api/internal/platform/memory"
	"github.com/phrazzld/tasktracker-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sweepNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return sweepNow }

func putTask(t *testing.T, s store.TaskStore, owner, id, email string, status domain.TaskStatus, expiresAt time.Time) {
	t.Helper()
	require.NoError(t, s.Put(context.Background(), &domain.Task{
		OwnerID:    owner,
		TaskID:     id,
		Name:       "task " + id,
		Status:     status,
		OwnerEmail: email,
		CreatedAt:  expiresAt.Add(-24 * time.Hour),
		ExpiresAt:  expiresAt,
		UpdatedAt:  expiresAt.Add(-24 * time.Hour),
	}))
}

func status(t *testing.T, s store.TaskStore, owner, id string) domain.TaskStatus {
	t.Helper()
	task, err := s.Get(context.Background(), owner, id)
	require.NoError(t, err)
	return task.Status
}

// recordingMetrics captures calls for assertions.
type recordingMetrics struct {
	completed []Result
	failed    int
	skipped   int
}

func (m *recordingMetrics) SweepCompleted(r Result) { m.completed = append(m.completed, r) }
func (m *recordingMetrics) SweepFailed()            { m.failed++ }
func (m *recordingMetrics) SweepSkipped()           { m.skipped++ }

func TestNewSweeperValidatesDependencies(t *testing.T) {
	t.Parallel()
	_, log := logger.NewTestLogger(t)
	st := memory.NewTaskStore()
	n := &mocks.MockNotifier{}

	_, err := NewSweeper(nil, n, log)
	assert.Error(t, err)
	_, err = NewSweeper(st, nil, log)
	assert.Error(t, err)
	_, err = NewSweeper(st, n, nil)
	assert.Error(t, err)

	s, err := NewSweeper(st, n, log)
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestSweeperExpiresOnlyOverduePendingTasks(t *testing.T) {
	t.Parallel()
	_, log := logger.NewTestLogger(t)
	st := memory.NewTaskStore()
	n := &mocks.MockNotifier{}

	putTask(t, st, "alice", "overdue", "alice@example.com", domain.TaskStatusPending, sweepNow.Add(-time.Minute))
	putTask(t, st, "alice", "future", "alice@example.com", domain.TaskStatusPending, sweepNow.Add(time.Minute))
	putTask(t, st, "alice", "boundary", "alice@example.com", domain.TaskStatusPending, sweepNow)
	putTask(t, st, "bob", "done", "bob@example.com", domain.TaskStatusCompleted, sweepNow.Add(-time.Hour))
	putTask(t, st, "bob", "cancelled", "bob@example.com", domain.TaskStatusCancelled, sweepNow.Add(-time.Hour))
	putTask(t, st, "bob", "already", "bob@example.com", domain.TaskStatusExpired, sweepNow.Add(-time.Hour))

	metrics := &recordingMetrics{}
	s, err := NewSweeper(st, n, log, WithClock(fixedClock), WithMetrics(metrics))
	require.NoError(t, err)

	res, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Expired)
	assert.Equal(t, 1, res.Scanned)
	assert.Equal(t, 0, res.Failed)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, sweepNow, res.StartedAt)

	assert.Equal(t, domain.TaskStatusExpired, status(t, st, "alice", "overdue"))
	assert.Equal(t, domain.TaskStatusPending, status(t, st, "alice", "future"))
	assert.Equal(t, domain.TaskStatusPending, status(t, st, "alice", "boundary"))
	assert.Equal(t, domain.TaskStatusCompleted, status(t, st, "bob", "done"))
	assert.Equal(t, domain.TaskStatusCancelled, status(t, st, "bob", "cancelled"))

	sent := n.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "alice@example.com", sent[0].Address)
	assert.Equal(t, "Task Expired", sent[0].Subject)
	assert.Equal(t, "Your task 'task overdue' has expired.", sent[0].Message)

	require.Len(t, metrics.completed, 1)
	assert.Equal(t, 1, metrics.completed[0].Expired)
}

func TestSweeperIsIdempotent(t *testing.T) {
	t.Parallel()
	_, log := logger.NewTestLogger(t)
	st := memory.NewTaskStore()
	n := &mocks.MockNotifier{}
	putTask(t, st, "alice", "t1", "alice@example.com", domain.TaskStatusPending, sweepNow.Add(-time.Hour))

	s, err := NewSweeper(st, n, log, WithClock(fixedClock))
	require.NoError(t, err)

	first, err := s.Run(context.Background())
	require.NoError(t, err)
	second, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, first.Expired)
	assert.Equal(t, 0, second.Expired)
	assert.Len(t, n.Sent(), 1)
}

func TestSweeperSkipsNotificationWithoutEmail(t *testing.T) {
	t.Parallel()
	_, log := logger.NewTestLogger(t)
	st := memory.NewTaskStore()
	n := &mocks.MockNotifier{}
	putTask(t, st, "alice", "t1", "", domain.TaskStatusPending, sweepNow.Add(-time.Hour))

	s, err := NewSweeper(st, n, log, WithClock(fixedClock))
	require.NoError(t, err)

	res, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Expired)
	assert.Empty(t, n.Sent())
}

func TestSweeperNotifyFailureDoesNotRollBack(t *testing.T) {
	t.Parallel()
	buf, log := logger.NewTestLogger(t)
	st := memory.NewTaskStore()
	n := &mocks.MockNotifier{NotifyFn: func(_ context.Context, nt notify.Notification) error {
		return notify.NewDeliveryError(nt.Address, errors.New("transport down"))
	}}
	putTask(t, st, "alice", "t1", "alice@example.com", domain.TaskStatusPending, sweepNow.Add(-time.Hour))
	putTask(t, st, "alice", "t2", "alice@example.com", domain.TaskStatusPending, sweepNow.Add(-time.Minute))

	s, err := NewSweeper(st, n, log, WithClock(fixedClock))
	require.NoError(t, err)

	res, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Expired)
	assert.Equal(t, 2, res.NotifyFailed)
	assert.Equal(t, domain.TaskStatusExpired, status(t, st, "alice", "t1"))
	assert.Equal(t, domain.TaskStatusExpired, status(t, st, "alice", "t2"))
	assert.True(t, buf.HasMessage("failed to notify owner of expired task"))
}

func TestSweeperIsolatesPerTaskWriteFailures(t *testing.T) {
	t.Parallel()
	_, log := logger.NewTestLogger(t)
	backing := memory.NewTaskStore()
	putTask(t, backing, "alice", "bad", "alice@example.com", domain.TaskStatusPending, sweepNow.Add(-2*time.Hour))
	putTask(t, backing, "alice", "good", "alice@example.com", domain.TaskStatusPending, sweepNow.Add(-time.Hour))

	st := &mocks.MockTaskStore{
		ScanFn: backing.Scan,
		UpdateFieldsFn: func(ctx context.Context, ownerID, taskID string, u store.TaskUpdate) (*domain.Task, error) {
			if taskID == "bad" {
				return nil, errors.New("write timeout")
			}
			return backing.UpdateFields(ctx, ownerID, taskID, u)
		},
	}
	n := &mocks.MockNotifier{}
	s, err := NewSweeper(st, n, log, WithClock(fixedClock))
	require.NoError(t, err)

	res, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Expired)
	assert.Equal(t, domain.TaskStatusPending, status(t, backing, "alice", "bad"))
	assert.Equal(t, domain.TaskStatusExpired, status(t, backing, "alice", "good"))
	assert.Len(t, n.Sent(), 1)
}

func TestSweeperSkipsTasksChangedMidSweep(t *testing.T) {
	t.Parallel()
	_, log := logger.NewTestLogger(t)
	backing := memory.NewTaskStore()
	putTask(t, backing, "alice", "raced", "alice@example.com", domain.TaskStatusPending, sweepNow.Add(-time.Hour))
	putTask(t, backing, "alice", "gone", "alice@example.com", domain.TaskStatusPending, sweepNow.Add(-time.Hour))

	st := &mocks.MockTaskStore{
		ScanFn: func(ctx context.Context, q store.ScanQuery) (store.ScanPage, error) {
			page, err := backing.Scan(ctx, q)
			// A caller completes one task and deletes another after the
			// page was read but before the sweep writes.
			completed := domain.TaskStatusCompleted
			_, _ = backing.UpdateFields(ctx, "alice", "raced", store.TaskUpdate{Status: &completed})
			_ = backing.Delete(ctx, "alice", "gone")
			return page, err
		},
		UpdateFieldsFn: backing.UpdateFields,
	}
	n := &mocks.MockNotifier{}
	s, err := NewSweeper(st, n, log, WithClock(fixedClock))
	require.NoError(t, err)

	res, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Expired)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, domain.TaskStatusCompleted, status(t, backing, "alice", "raced"))
	assert.Empty(t, n.Sent())
}

func TestSweeperPagesThroughLargeBacklog(t *testing.T) {
	t.Parallel()
	_, log := logger.NewTestLogger(t)
	st := memory.NewTaskStore()
	for i := 0; i < 25; i++ {
		putTask(t, st, fmt.Sprintf("owner-%d", i%4), fmt.Sprintf("t%02d", i), "", domain.TaskStatusPending,
			sweepNow.Add(-time.Duration(i+1)*time.Minute))
	}

	s, err := NewSweeper(st, &mocks.MockNotifier{}, log, WithClock(fixedClock), WithPageSize(4))
	require.NoError(t, err)

	res, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 25, res.Expired)
	assert.Equal(t, 25, res.Scanned)
}

func TestSweeperReturnsScanErrors(t *testing.T) {
	t.Parallel()
	_, log := logger.NewTestLogger(t)
	scanErr := errors.New("connection refused")
	st := &mocks.MockTaskStore{DefaultError: scanErr}
	metrics := &recordingMetrics{}

	s, err := NewSweeper(st, &mocks.MockNotifier{}, log, WithClock(fixedClock), WithMetrics(metrics))
	require.NoError(t, err)

	_, err = s.Run(context.Background())
	assert.ErrorIs(t, err, scanErr)
	assert.Equal(t, 1, metrics.failed)
	assert.Empty(t, metrics.completed)
}
