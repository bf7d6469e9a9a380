package store

import (
	"context"
	"fmt"
	"time"

	"github.com/phrazzld/tasktracker-api/internal/domain"
)

// Scan page size limits.
const (
	DefaultScanLimit = 100
	MaxScanLimit     = 1000
)

// TaskStore is the persistence contract for tasks. Records are keyed by
// (OwnerID, TaskID); all single-record operations are atomic.
type TaskStore interface {
	// Put inserts or fully replaces the record with the task's key.
	Put(ctx context.Context, task *domain.Task) error

	// Get returns the record for the key or ErrTaskNotFound.
	Get(ctx context.Context, ownerID, taskID string) (*domain.Task, error)

	// GetByOwner returns every record of one owner, ordered by task id.
	// An owner with no tasks yields an empty slice.
	GetByOwner(ctx context.Context, ownerID string) ([]*domain.Task, error)

	// UpdateFields applies a partial update and returns the stored result.
	// It returns ErrTaskNotFound when the record is absent and
	// ErrStatusConflict when update.IfStatus is set and does not match.
	UpdateFields(ctx context.Context, ownerID, taskID string, update TaskUpdate) (*domain.Task, error)

	// Delete removes the record. Deleting an absent record succeeds.
	Delete(ctx context.Context, ownerID, taskID string) error

	// Scan returns one page of records across all owners ordered by
	// (ExpiresAt, OwnerID, TaskID).
	Scan(ctx context.Context, query ScanQuery) (ScanPage, error)
}

// TaskUpdate names the fields to change. Nil fields are left untouched.
type TaskUpdate struct {
	Status *domain.TaskStatus
	Name   *string

	// IfStatus makes the write conditional on the stored status.
	IfStatus *domain.TaskStatus

	// UpdatedAt is recorded on the row; zero means the current time.
	UpdatedAt time.Time
}

// Validate rejects updates that would change nothing.
func (u TaskUpdate) Validate() error {
	if u.Status == nil && u.Name == nil {
		return fmt.Errorf("%w: update has no fields", ErrInvalidEntity)
	}
	if u.Status != nil && !u.Status.IsValid() {
		return fmt.Errorf("%w: status %q", ErrInvalidEntity, *u.Status)
	}
	return nil
}

// Apply copies the update onto t. It does not check IfStatus.
func (u TaskUpdate) Apply(t *domain.Task) {
	if u.Status != nil {
		t.Status = *u.Status
	}
	if u.Name != nil {
		t.Name = *u.Name
	}
	t.UpdatedAt = u.Timestamp()
}

// Timestamp returns UpdatedAt, defaulting to now.
func (u TaskUpdate) Timestamp() time.Time {
	if u.UpdatedAt.IsZero() {
		return time.Now().UTC().Truncate(time.Microsecond)
	}
	return u.UpdatedAt.UTC().Truncate(time.Microsecond)
}

// Cursor is the position after the last record of a page.
type Cursor struct {
	ExpiresAt time.Time
	OwnerID   string
	TaskID    string
}

// CursorFor returns the cursor positioned at t.
func CursorFor(t *domain.Task) *Cursor {
	return &Cursor{ExpiresAt: t.ExpiresAt, OwnerID: t.OwnerID, TaskID: t.TaskID}
}

// Before reports whether the cursor sorts strictly before t.
func (c *Cursor) Before(t *domain.Task) bool {
	if !c.ExpiresAt.Equal(t.ExpiresAt) {
		return c.ExpiresAt.Before(t.ExpiresAt)
	}
	if c.OwnerID != t.OwnerID {
		return c.OwnerID < t.OwnerID
	}
	return c.TaskID < t.TaskID
}

// ScanQuery filters and positions a Scan.
type ScanQuery struct {
	// Status restricts results to one status when non-empty.
	Status domain.TaskStatus

	// ExpiresBefore restricts results to ExpiresAt strictly before it when non-zero.
	ExpiresBefore time.Time

	// After resumes a scan following a previous page.
	After *Cursor

	Limit int
}

// EffectiveLimit clamps Limit to (0, MaxScanLimit], defaulting to DefaultScanLimit.
func (q ScanQuery) EffectiveLimit() int {
	switch {
	case q.Limit <= 0:
		return DefaultScanLimit
	case q.Limit > MaxScanLimit:
		return MaxScanLimit
	default:
		return q.Limit
	}
}

// Matches reports whether t satisfies the query's filters and cursor.
func (q ScanQuery) Matches(t *domain.Task) bool {
	if q.Status != "" && t.Status != q.Status {
		return false
	}
	if !q.ExpiresBefore.IsZero() && !t.ExpiresAt.Before(q.ExpiresBefore) {
		return false
	}
	if q.After != nil && !q.After.Before(t) {
		return false
	}
	return true
}

// ScanPage is one page of a Scan. Next is nil on the last page.
type ScanPage struct {
	Tasks []*domain.Task
	Next  *Cursor
}

// NewScanPage builds a page from up to limit+1 ordered rows. The extra row,
// when present, only signals that another page exists.
func NewScanPage(rows []*domain.Task, limit int) ScanPage {
	if len(rows) <= limit {
		return ScanPage{Tasks: rows}
	}
	rows = rows[:limit]
	return ScanPage{Tasks: rows, Next: CursorFor(rows[len(rows)-1])}
}

// ScanAll walks every page of query, calling fn for each task in order.
// It stops at the first error from the store or fn.
func ScanAll(ctx context.Context, s TaskStore, query ScanQuery, fn func(*domain.Task) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := s.Scan(ctx, query)
		if err != nil {
			return err
		}
		for _, t := range page.Tasks {
			if err := fn(t); err != nil {
				return err
			}
		}
		if page.Next == nil {
			return nil
		}
		query.After = page.Next
	}
}
