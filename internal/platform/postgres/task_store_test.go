package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/phrazzld/tasktracker-api/internal/platform/logger"
	"github.com/phrazzld/tasktracker-api/internal/store"
	"github.com/phrazzld/tasktracker-api/internal/store/storetest"
	"github.com/stretchr/testify/require"
)

// TestPostgresTaskStoreContract runs the shared store suite against a real
// database. It needs DATABASE_URL pointing at a disposable PostgreSQL.
func TestPostgresTaskStoreContract(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping PostgreSQL integration test")
	}

	ctx := context.Background()
	db, err := Open(ctx, url, 5)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, log := logger.NewTestLogger(t)
	require.NoError(t, Migrate(ctx, db, log))

	storetest.Run(t, func(t *testing.T) store.TaskStore {
		_, err := db.ExecContext(ctx, `TRUNCATE tasks`)
		require.NoError(t, err)
		return NewPostgresTaskStore(db)
	})
}
