// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/guardhire/guardhire-api/internal/database"
)

// OpenDB creates a migrated SQLite database in a per-test temp directory
// and closes it when the test ends.
func OpenDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db, "sqlite3"))
	return db
}
