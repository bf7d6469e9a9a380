package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/phrazzld/tasktracker-api/internal/domain"
	"github.com/phrazzld/tasktracker-api/internal/platform/logger"
	"github.com/phrazzld/tasktracker-api/internal/store"
)

const taskColumns = `owner_id, task_id, name, status, owner_email, created_at, expires_at, updated_at`

// PostgresTaskStore implements store.TaskStore using PostgreSQL.
type PostgresTaskStore struct {
	db *sql.DB
}

var _ store.TaskStore = (*PostgresTaskStore)(nil)

// NewPostgresTaskStore creates a new PostgresTaskStore.
func NewPostgresTaskStore(db *sql.DB) *PostgresTaskStore {
	return &PostgresTaskStore{db: db}
}

// Put upserts the task. A row with the same key is replaced entirely.
func (s *PostgresTaskStore) Put(ctx context.Context, task *domain.Task) error {
	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (owner_id, task_id) DO UPDATE SET
			name = EXCLUDED.name,
			status = EXCLUDED.status,
			owner_email = EXCLUDED.owner_email,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		task.OwnerID,
		task.TaskID,
		task.Name,
		string(task.Status),
		task.OwnerEmail,
		task.CreatedAt.UTC(),
		task.ExpiresAt.UTC(),
		task.UpdatedAt.UTC(),
	)
	if err != nil {
		logger.FromContextOrDefault(ctx).Error("failed to put task",
			"owner_id", task.OwnerID,
			"task_id", task.TaskID,
			"error", err)
		return store.NewStoreError("task", "put", "failed to write task", MapError(err))
	}
	return nil
}

// Get returns one task or store.ErrTaskNotFound.
func (s *PostgresTaskStore) Get(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	return getTask(ctx, s.db, ownerID, taskID, false)
}

// GetByOwner returns the owner's tasks ordered by task id.
func (s *PostgresTaskStore) GetByOwner(ctx context.Context, ownerID string) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE owner_id = $1 ORDER BY task_id`
	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, store.NewStoreError("task", "list", "failed to query tasks", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	return collectTasks(rows)
}

// UpdateFields locks the row, checks the precondition, and applies the
// update inside a single transaction.
func (s *PostgresTaskStore) UpdateFields(
	ctx context.Context,
	ownerID, taskID string,
	update store.TaskUpdate,
) (*domain.Task, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}

	var updated *domain.Task
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		// Lock the row for the rest of the transaction
		current, err := getTask(ctx, tx, ownerID, taskID, true)
		if err != nil {
			return err
		}

		// Check the status precondition against the locked row
		if update.IfStatus != nil && current.Status != *update.IfStatus {
			return store.ErrStatusConflict
		}

		// Apply the changes and write back the mutable columns
		update.Apply(current)
		query := `
			UPDATE tasks SET name = $3, status = $4, updated_at = $5
			WHERE owner_id = $1 AND task_id = $2
		`
		if _, err := tx.ExecContext(ctx, query, ownerID, taskID, current.Name, string(current.Status), current.UpdatedAt); err != nil {
			return store.NewStoreError("task", "update", "failed to update task", MapError(err))
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the task. Absent rows are not an error.
func (s *PostgresTaskStore) Delete(ctx context.Context, ownerID, taskID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE owner_id = $1 AND task_id = $2`, ownerID, taskID)
	if err != nil {
		return store.NewStoreError("task", "delete", "failed to delete task", MapError(err))
	}
	return nil
}

// Scan runs a keyset-paginated query ordered by (expires_at, owner_id, task_id).
// The status/expiry filter is served by tasks_status_expires_idx.
func (s *PostgresTaskStore) Scan(ctx context.Context, q store.ScanQuery) (store.ScanPage, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	// Build the filter clauses
	if q.Status != "" {
		conds = append(conds, "status = "+arg(string(q.Status)))
	}
	if !q.ExpiresBefore.IsZero() {
		conds = append(conds, "expires_at < "+arg(q.ExpiresBefore.UTC()))
	}
	// Resume strictly after the cursor row
	if q.After != nil {
		conds = append(conds, fmt.Sprintf("(expires_at, owner_id, task_id) > (%s, %s, %s)",
			arg(q.After.ExpiresAt.UTC()), arg(q.After.OwnerID), arg(q.After.TaskID)))
	}

	// Fetch one extra row to learn whether another page exists
	limit := q.EffectiveLimit()
	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY expires_at, owner_id, task_id LIMIT ` + arg(limit+1)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return store.ScanPage{}, store.NewStoreError("task", "scan", "failed to scan tasks", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	tasks, err := collectTasks(rows)
	if err != nil {
		return store.ScanPage{}, err
	}
	return store.NewScanPage(tasks, limit), nil
}

func getTask(ctx context.Context, db store.DBTX, ownerID, taskID string, forUpdate bool) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE owner_id = $1 AND task_id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	task, err := scanTask(db.QueryRowContext(ctx, query, ownerID, taskID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrTaskNotFound
	}
	if err != nil {
		return nil, store.NewStoreError("task", "get", "failed to read task", MapError(err))
	}
	return task, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task   domain.Task
		status string
	)
	if err := row.Scan(
		&task.OwnerID,
		&task.TaskID,
		&task.Name,
		&status,
		&task.OwnerEmail,
		&task.CreatedAt,
		&task.ExpiresAt,
		&task.UpdatedAt,
	); err != nil {
		return nil, err
	}
	task.Status = domain.TaskStatus(status)
	task.CreatedAt = task.CreatedAt.UTC()
	task.ExpiresAt = task.ExpiresAt.UTC()
	task.UpdatedAt = task.UpdatedAt.UTC()
	return &task, nil
}

func collectTasks(rows *sql.Rows) ([]*domain.Task, error) {
	tasks := make([]*domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, store.NewStoreError("task", "scan", "failed to decode task row", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("task", "scan", "failed while iterating rows", MapError(err))
	}
	return tasks, nil
}
