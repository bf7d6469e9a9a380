package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/tasktracker-api/internal/domain"
	"github.com/phrazzld/tasktracker-api/internal/store"
	"github.com/phrazzld/tasktracker-api/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.TaskStore { return NewTaskStore() })
}

func TestTaskStoreReturnsCopies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewTaskStore()
	task := storetest.NewTask("alice", "t1", time.Hour)
	require.NoError(t, s.Put(ctx, task))

	task.Name = "mutated after put"
	got, err := s.Get(ctx, "alice", "t1")
	require.NoError(t, err)
	assert.Equal(t, "task t1", got.Name)

	got.Status = domain.TaskStatusCancelled
	again, err := s.Get(ctx, "alice", "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusPending, again.Status)
}

func TestTaskStoreConcurrentConditionalUpdates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewTaskStore()
	require.NoError(t, s.Put(ctx, storetest.NewTask("alice", "t1", time.Hour)))

	pending := domain.TaskStatusPending
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status := domain.TaskStatusCompleted
			if i%2 == 0 {
				status = domain.TaskStatusExpired
			}
			if _, err := s.UpdateFields(ctx, "alice", "t1", store.TaskUpdate{Status: &status, IfStatus: &pending}); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins, "exactly one conditional write succeeds")
}

func TestTaskStoreCancelledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewTaskStore()

	assert.ErrorIs(t, s.Put(ctx, storetest.NewTask("a", "b", time.Hour)), context.Canceled)
	_, err := s.Scan(ctx, store.ScanQuery{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, s.Len())
}

func BenchmarkScan(b *testing.B) {
	ctx := context.Background()
	s := NewTaskStore()
	for i := 0; i < 1000; i++ {
		_ = s.Put(ctx, storetest.NewTask(fmt.Sprintf("o%d", i%10), fmt.Sprintf("t%d", i), time.Duration(i)*time.Second))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = store.ScanAll(ctx, s, store.ScanQuery{Limit: 100}, func(*domain.Task) error { return nil })
	}
}
