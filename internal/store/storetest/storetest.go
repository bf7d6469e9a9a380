// Package storetest holds the behavioural test suite every store.TaskStore
// implementation must pass.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/phrazzld/tasktracker-api/internal/domain"
	"github.com/phrazzld/tasktracker-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store for one subtest.
type Factory func(t *testing.T) store.TaskStore

// Base is the reference time used by every fixture.
var Base = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

// NewTask returns a Pending fixture expiring at Base plus expiresIn.
func NewTask(ownerID, taskID string, expiresIn time.Duration) *domain.Task {
	return &domain.Task{
		OwnerID:    ownerID,
		TaskID:     taskID,
		Name:       "task " + taskID,
		Status:     domain.TaskStatusPending,
		OwnerEmail: ownerID + "@example.com",
		CreatedAt:  Base,
		ExpiresAt:  Base.Add(expiresIn),
		UpdatedAt:  Base,
	}
}

// AssertTaskEqual compares tasks field by field using time.Equal.
func AssertTaskEqual(t *testing.T, want, got *domain.Task) {
	t.Helper()
	require.NotNil(t, got)
	assert.Equal(t, want.OwnerID, got.OwnerID)
	assert.Equal(t, want.TaskID, got.TaskID)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.Status, got.Status)
	assert.Equal(t, want.OwnerEmail, got.OwnerEmail)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "created_at: want %s got %s", want.CreatedAt, got.CreatedAt)
	assert.True(t, want.ExpiresAt.Equal(got.ExpiresAt), "expires_at: want %s got %s", want.ExpiresAt, got.ExpiresAt)
	assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt), "updated_at: want %s got %s", want.UpdatedAt, got.UpdatedAt)
}

// Run exercises the full TaskStore contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("PutGet", func(t *testing.T) { testPutGet(t, newStore(t)) })
	t.Run("FractionalExpiryRoundTrips", func(t *testing.T) { testFractionalExpiryRoundTrips(t, newStore(t)) })
	t.Run("PutOverwrites", func(t *testing.T) { testPutOverwrites(t, newStore(t)) })
	t.Run("GetNotFound", func(t *testing.T) { testGetNotFound(t, newStore(t)) })
	t.Run("GetByOwner", func(t *testing.T) { testGetByOwner(t, newStore(t)) })
	t.Run("UpdateFields", func(t *testing.T) { testUpdateFields(t, newStore(t)) })
	t.Run("UpdateFieldsConditional", func(t *testing.T) { testUpdateFieldsConditional(t, newStore(t)) })
	t.Run("UpdateFieldsErrors", func(t *testing.T) { testUpdateFieldsErrors(t, newStore(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newStore(t)) })
	t.Run("ScanFilters", func(t *testing.T) { testScanFilters(t, newStore(t)) })
	t.Run("ScanPages", func(t *testing.T) { testScanPages(t, newStore(t)) })
	t.Run("ScanAllWhileUpdating", func(t *testing.T) { testScanAllWhileUpdating(t, newStore(t)) })
}

func testPutGet(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	task := NewTask("alice", "t1", time.Hour)

	require.NoError(t, s.Put(ctx, task))

	got, err := s.Get(ctx, "alice", "t1")
	require.NoError(t, err)
	AssertTaskEqual(t, task, got)
}

func testFractionalExpiryRoundTrips(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	// 0.1234567 hours is not a whole number of microseconds
	ttl := time.Duration(0.1234567 * float64(time.Hour))
	task, err := domain.NewTask("alice", "alice@example.com", "t1", "n", Base.Add(987654321*time.Nanosecond), ttl)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, task))

	got, err := s.Get(ctx, "alice", "t1")
	require.NoError(t, err)
	AssertTaskEqual(t, task, got)

	listed, err := s.GetByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.True(t, task.ExpiresAt.Equal(listed[0].ExpiresAt), "expires_at: want %s got %s", task.ExpiresAt, listed[0].ExpiresAt)
}

func testPutOverwrites(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	first := NewTask("alice", "t1", time.Hour)
	require.NoError(t, s.Put(ctx, first))

	second := NewTask("alice", "t1", 3*time.Hour)
	second.Name = "replacement"
	second.Status = domain.TaskStatusCompleted
	require.NoError(t, s.Put(ctx, second))

	got, err := s.Get(ctx, "alice", "t1")
	require.NoError(t, err)
	AssertTaskEqual(t, second, got)

	all, err := s.GetByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func testGetNotFound(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, NewTask("alice", "t1", time.Hour)))

	_, err := s.Get(ctx, "bob", "t1")
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
	assert.True(t, store.IsNotFoundError(err))
}

func testGetByOwner(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, NewTask("alice", "b", time.Hour)))
	require.NoError(t, s.Put(ctx, NewTask("alice", "a", 2*time.Hour)))
	require.NoError(t, s.Put(ctx, NewTask("bob", "a", time.Hour)))

	alice, err := s.GetByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, alice, 2)
	assert.Equal(t, "a", alice[0].TaskID)
	assert.Equal(t, "b", alice[1].TaskID)
	for _, task := range alice {
		assert.Equal(t, "alice", task.OwnerID)
	}

	none, err := s.GetByOwner(ctx, "carol")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func testUpdateFields(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	task := NewTask("alice", "t1", time.Hour)
	require.NoError(t, s.Put(ctx, task))

	at := Base.Add(10 * time.Minute)
	name := "renamed"
	got, err := s.UpdateFields(ctx, "alice", "t1", store.TaskUpdate{Name: &name, UpdatedAt: at})
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	assert.Equal(t, domain.TaskStatusPending, got.Status)
	assert.True(t, at.Equal(got.UpdatedAt))

	status := domain.TaskStatusCompleted
	got, err = s.UpdateFields(ctx, "alice", "t1", store.TaskUpdate{Status: &status, UpdatedAt: at})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, got.Status)
	assert.Equal(t, "renamed", got.Name)

	stored, err := s.Get(ctx, "alice", "t1")
	require.NoError(t, err)
	want := *task
	want.Name = "renamed"
	want.Status = domain.TaskStatusCompleted
	want.UpdatedAt = at
	AssertTaskEqual(t, &want, stored)
}

func testUpdateFieldsConditional(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, NewTask("alice", "t1", time.Hour)))

	pending := domain.TaskStatusPending
	expired := domain.TaskStatusExpired
	completed := domain.TaskStatusCompleted

	got, err := s.UpdateFields(ctx, "alice", "t1", store.TaskUpdate{Status: &completed, IfStatus: &pending})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, got.Status)

	_, err = s.UpdateFields(ctx, "alice", "t1", store.TaskUpdate{Status: &expired, IfStatus: &pending})
	assert.ErrorIs(t, err, store.ErrStatusConflict)

	stored, err := s.Get(ctx, "alice", "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, stored.Status, "failed precondition must not write")
}

func testUpdateFieldsErrors(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	name := "x"

	_, err := s.UpdateFields(ctx, "alice", "missing", store.TaskUpdate{Name: &name})
	assert.ErrorIs(t, err, store.ErrTaskNotFound)

	require.NoError(t, s.Put(ctx, NewTask("alice", "t1", time.Hour)))
	_, err = s.UpdateFields(ctx, "alice", "t1", store.TaskUpdate{})
	assert.ErrorIs(t, err, store.ErrInvalidEntity)

	_, err = s.UpdateFields(ctx, "bob", "t1", store.TaskUpdate{Name: &name})
	assert.ErrorIs(t, err, store.ErrTaskNotFound, "other owners cannot reach the record")
}

func testDelete(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, NewTask("alice", "t1", time.Hour)))
	require.NoError(t, s.Put(ctx, NewTask("bob", "t1", time.Hour)))

	require.NoError(t, s.Delete(ctx, "alice", "t1"))
	require.NoError(t, s.Delete(ctx, "alice", "t1"), "second delete succeeds")
	require.NoError(t, s.Delete(ctx, "alice", "never"))

	_, err := s.Get(ctx, "alice", "t1")
	assert.ErrorIs(t, err, store.ErrTaskNotFound)

	_, err = s.Get(ctx, "bob", "t1")
	assert.NoError(t, err)
}

func testScanFilters(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	overdue := NewTask("alice", "overdue", -time.Hour)
	future := NewTask("alice", "future", time.Hour)
	done := NewTask("bob", "done", -2*time.Hour)
	done.Status = domain.TaskStatusCompleted
	for _, task := range []*domain.Task{overdue, future, done} {
		require.NoError(t, s.Put(ctx, task))
	}

	all, err := s.Scan(ctx, store.ScanQuery{})
	require.NoError(t, err)
	require.Len(t, all.Tasks, 3)
	assert.Nil(t, all.Next)
	assert.Equal(t, []string{"done", "overdue", "future"}, taskIDs(all.Tasks), "ordered by expiry")

	due, err := s.Scan(ctx, store.ScanQuery{Status: domain.TaskStatusPending, ExpiresBefore: Base})
	require.NoError(t, err)
	assert.Equal(t, []string{"overdue"}, taskIDs(due.Tasks))
}

func testScanPages(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		// Pairs share an expiry so the cursor has to break ties on the key.
		task := NewTask(fmt.Sprintf("owner-%d", i%2), fmt.Sprintf("t%d", i), time.Duration(i/2)*time.Minute)
		require.NoError(t, s.Put(ctx, task))
	}

	var seen []string
	query := store.ScanQuery{Limit: 3}
	pages := 0
	for {
		page, err := s.Scan(ctx, query)
		require.NoError(t, err)
		pages++
		assert.LessOrEqual(t, len(page.Tasks), 3)
		seen = append(seen, taskIDs(page.Tasks)...)
		if page.Next == nil {
			break
		}
		query.After = page.Next
	}

	assert.Equal(t, 3, pages)
	assert.ElementsMatch(t, []string{"t0", "t1", "t2", "t3", "t4", "t5", "t6"}, seen)
	assert.Len(t, seen, 7, "no task returned twice")
}

func testScanAllWhileUpdating(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Put(ctx, NewTask("alice", fmt.Sprintf("t%d", i), -time.Duration(i+1)*time.Minute)))
	}

	expired := domain.TaskStatusExpired
	query := store.ScanQuery{Status: domain.TaskStatusPending, ExpiresBefore: Base, Limit: 2}
	visited := 0
	err := store.ScanAll(ctx, s, query, func(task *domain.Task) error {
		visited++
		_, err := s.UpdateFields(ctx, task.OwnerID, task.TaskID, store.TaskUpdate{Status: &expired})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 5, visited)

	rest, err := s.Scan(ctx, query)
	require.NoError(t, err)
	assert.Empty(t, rest.Tasks)
}

func taskIDs(tasks []*domain.Task) []string {
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.TaskID)
	}
	return ids
}
