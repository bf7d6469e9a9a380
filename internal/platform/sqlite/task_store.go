// Package sqlite implements store.TaskStore on SQLite through GORM. It suits
// single-node deployments that want durability without running PostgreSQL.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/phrazzld/tasktracker-api/internal/domain"
	"github.com/phrazzld/tasktracker-api/internal/store"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// taskRecord is the GORM model for the tasks table.
type taskRecord struct {
	OwnerID    string    `gorm:"primaryKey;size:255"`
	TaskID     string    `gorm:"primaryKey;size:255"`
	Name       string    `gorm:"not null"`
	Status     string    `gorm:"size:16;not null;index:idx_tasks_status_expires,priority:1"`
	OwnerEmail string    `gorm:"not null;default:''"`
	CreatedAt  time.Time `gorm:"not null;autoCreateTime:false"`
	ExpiresAt  time.Time `gorm:"not null;index:idx_tasks_status_expires,priority:2"`
	UpdatedAt  time.Time `gorm:"not null;autoUpdateTime:false"`
}

// TableName returns the table name for taskRecord.
func (taskRecord) TableName() string {
	return "tasks"
}

func toRecord(t *domain.Task) *taskRecord {
	return &taskRecord{
		OwnerID:    t.OwnerID,
		TaskID:     t.TaskID,
		Name:       t.Name,
		Status:     string(t.Status),
		OwnerEmail: t.OwnerEmail,
		CreatedAt:  t.CreatedAt.UTC(),
		ExpiresAt:  t.ExpiresAt.UTC(),
		UpdatedAt:  t.UpdatedAt.UTC(),
	}
}

func (r *taskRecord) toDomain() *domain.Task {
	return &domain.Task{
		OwnerID:    r.OwnerID,
		TaskID:     r.TaskID,
		Name:       r.Name,
		Status:     domain.TaskStatus(r.Status),
		OwnerEmail: r.OwnerEmail,
		CreatedAt:  r.CreatedAt.UTC(),
		ExpiresAt:  r.ExpiresAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
}

// Open opens (or creates) the SQLite database at path and migrates the
// tasks table. Use ":memory:" for a throwaway database.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// SQLite serialises writers; one connection avoids "database is locked"
	// and keeps an in-memory database shared across calls.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sqlite handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&taskRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate sqlite database: %w", err)
	}
	return db, nil
}

// TaskStore provides task storage on a GORM SQLite connection.
type TaskStore struct {
	db *gorm.DB
}

var _ store.TaskStore = (*TaskStore)(nil)

// NewTaskStore creates a TaskStore on an opened database.
func NewTaskStore(db *gorm.DB) *TaskStore {
	return &TaskStore{db: db}
}

// Put upserts the task, replacing every column of an existing row.
func (s *TaskStore) Put(ctx context.Context, task *domain.Task) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_id"}, {Name: "task_id"}},
		UpdateAll: true,
	}).Create(toRecord(task)).Error
	if err != nil {
		return store.NewStoreError("task", "put", "failed to write task", err)
	}
	return nil
}

// Get returns one task or store.ErrTaskNotFound.
func (s *TaskStore) Get(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	record, err := s.find(s.db.WithContext(ctx), ownerID, taskID)
	if err != nil {
		return nil, err
	}
	return record.toDomain(), nil
}

func (s *TaskStore) find(tx *gorm.DB, ownerID, taskID string) (*taskRecord, error) {
	var record taskRecord
	if err := tx.First(&record, "owner_id = ? AND task_id = ?", ownerID, taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrTaskNotFound
		}
		return nil, store.NewStoreError("task", "get", "failed to read task", err)
	}
	return &record, nil
}

// GetByOwner returns the owner's tasks ordered by task id.
func (s *TaskStore) GetByOwner(ctx context.Context, ownerID string) ([]*domain.Task, error) {
	var records []taskRecord
	if err := s.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("task_id").Find(&records).Error; err != nil {
		return nil, store.NewStoreError("task", "list", "failed to query tasks", err)
	}
	return toDomainSlice(records), nil
}

// UpdateFields applies the update in a transaction so the precondition check
// and the write see the same row.
func (s *TaskStore) UpdateFields(ctx context.Context, ownerID, taskID string, update store.TaskUpdate) (*domain.Task, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}

	var updated *domain.Task
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Read the current row inside the transaction
		record, err := s.find(tx, ownerID, taskID)
		if err != nil {
			return err
		}

		// Check the status precondition
		if update.IfStatus != nil && record.Status != string(*update.IfStatus) {
			return store.ErrStatusConflict
		}

		// Apply the changes and write back the mutable columns
		task := record.toDomain()
		update.Apply(task)
		result := tx.Model(&taskRecord{}).
			Where("owner_id = ? AND task_id = ?", ownerID, taskID).
			Updates(map[string]any{
				"name":       task.Name,
				"status":     string(task.Status),
				"updated_at": task.UpdatedAt,
			})
		if result.Error != nil {
			return store.NewStoreError("task", "update", "failed to update task", result.Error)
		}
		updated = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the task. Absent rows are not an error.
func (s *TaskStore) Delete(ctx context.Context, ownerID, taskID string) error {
	err := s.db.WithContext(ctx).Where("owner_id = ? AND task_id = ?", ownerID, taskID).Delete(&taskRecord{}).Error
	if err != nil {
		return store.NewStoreError("task", "delete", "failed to delete task", err)
	}
	return nil
}

// Scan runs a keyset-paginated query ordered by (expires_at, owner_id, task_id).
func (s *TaskStore) Scan(ctx context.Context, q store.ScanQuery) (store.ScanPage, error) {
	tx := s.db.WithContext(ctx).Model(&taskRecord{})
	if q.Status != "" {
		tx = tx.Where("status = ?", string(q.Status))
	}
	if !q.ExpiresBefore.IsZero() {
		tx = tx.Where("expires_at < ?", q.ExpiresBefore.UTC())
	}
	// Resume strictly after the cursor row
	if c := q.After; c != nil {
		at := c.ExpiresAt.UTC()
		tx = tx.Where(
			"expires_at > ? OR (expires_at = ? AND (owner_id > ? OR (owner_id = ? AND task_id > ?)))",
			at, at, c.OwnerID, c.OwnerID, c.TaskID,
		)
	}

	// Fetch one extra row to learn whether another page exists
	limit := q.EffectiveLimit()
	var records []taskRecord
	err := tx.Order("expires_at, owner_id, task_id").Limit(limit + 1).Find(&records).Error
	if err != nil {
		return store.ScanPage{}, store.NewStoreError("task", "scan", "failed to scan tasks", err)
	}
	return store.NewScanPage(toDomainSlice(records), limit), nil
}

func toDomainSlice(records []taskRecord) []*domain.Task {
	tasks := make([]*domain.Task, 0, len(records))
	for i := range records {
		tasks = append(tasks, records[i].toDomain())
	}
	return tasks
}
