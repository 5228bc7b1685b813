package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open("sqlite3", filepath.Join(t.TempDir(), "nested", "guardhire.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, Migrate(ctx, db, "sqlite3"))
	require.NoError(t, Migrate(ctx, db, "sqlite3"))

	for _, table := range []string{"profiles", "guards_details", "orders", "payments", "news", "notifications", "notification_reads", "comments", "reports"} {
		var n int
		err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n)
		assert.NoError(t, err, table)
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, Migrate(ctx, db, "sqlite3"))

	admin := &AdminSeed{Username: "admin", Mail: "admin@guardhire.pl", PasswordHash: "hash"}
	require.NoError(t, Seed(ctx, db, admin))
	require.NoError(t, Seed(ctx, db, admin))

	var admins, news int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM profiles WHERE role = 'admin'").Scan(&admins))
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM news").Scan(&news))
	assert.Equal(t, 1, admins)
	assert.Equal(t, len(seedNews), news)
}

func TestIsUniqueViolation(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, Migrate(ctx, db, "sqlite3"))

	insert := "INSERT INTO profiles (username, mail, password_hash) VALUES (?, ?, 'x')"
	_, err := db.ExecContext(ctx, insert, "jan", "jan@example.com")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, insert, "jan", "other@example.com")
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	require.NoError(t, Migrate(ctx, db, "sqlite3"))

	boom := errors.New("boom")
	err := WithTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO news (title) VALUES ('draft')"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM news").Scan(&n))
	assert.Zero(t, n)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("postgres", "x")
	require.Error(t, err)
}
