// Package postgres implements store.TaskStore on PostgreSQL through the pgx
// database/sql driver, and owns the embedded goose migrations for its schema.
package postgres
