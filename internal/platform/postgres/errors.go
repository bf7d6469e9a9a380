package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/tasktracker-api/internal/store"
)

// PostgreSQL error codes
const (
	uniqueViolationCode  = "23505"
	checkViolationCode   = "23514"
	notNullViolationCode = "23502"
)

// MapError maps a database error to the store's error vocabulary, wrapping
// the original error for debugging.
//
// Mappings:
//   - sql.ErrNoRows becomes store.ErrTaskNotFound
//   - check and not-null violations become store.ErrInvalidEntity
//   - unique violations become store.ErrConflict
//
// Any other error is returned unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	// Handle "no rows" errors
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", store.ErrTaskNotFound, err)
	}

	// Handle PostgreSQL-specific errors
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case checkViolationCode:
			return fmt.Errorf("%w: check constraint violation (%s): %v", store.ErrInvalidEntity, pgErr.ConstraintName, err)
		case notNullViolationCode:
			return fmt.Errorf("%w: not null violation (%s): %v", store.ErrInvalidEntity, pgErr.ColumnName, err)
		case uniqueViolationCode:
			// Put upserts, so a unique violation means a concurrent insert won.
			return fmt.Errorf("%w: unique violation (%s): %v", store.ErrConflict, pgErr.ConstraintName, err)
		}
	}

	// Return the original error for everything else
	return err
}

// IsCheckConstraintViolation checks if the given error is a PostgreSQL check constraint violation.
func IsCheckConstraintViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == checkViolationCode
}
