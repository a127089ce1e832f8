package storage

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openRawDB(t *testing.T) *sql.DB {
	db, err := sql.Open(DriverName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestApplyMigrations(t *testing.T) {
	db := openRawDB(t)
	ctx := context.Background()

	require.NoError(t, ApplyMigrations(ctx, db))

	version, err := currentSchemaVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version.Original())

	for _, table := range []string{"schema_version", "files", "batches"} {
		var name string
		err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		assert.NoError(t, err, "table %s should exist", table)
	}

	_, err = db.ExecContext(ctx, "SELECT naming_format FROM files LIMIT 1")
	assert.NoError(t, err)
}

func TestMigrationsIdempotent(t *testing.T) {
	db := openRawDB(t)
	ctx := context.Background()

	require.NoError(t, ApplyMigrations(ctx, db))
	require.NoError(t, ApplyMigrations(ctx, db))

	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_version").Scan(&count))
	assert.Equal(t, len(AllMigrations), count)
}

func TestRollbackMigration(t *testing.T) {
	db := openRawDB(t)
	ctx := context.Background()

	require.NoError(t, ApplyMigrations(ctx, db))
	require.NoError(t, RollbackMigration(ctx, db))

	version, err := currentSchemaVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0", version.Original())

	_, err = db.ExecContext(ctx, "SELECT path FROM files LIMIT 1")
	assert.Error(t, err)

	// Re-applying restores the schema
	require.NoError(t, ApplyMigrations(ctx, db))
	_, err = db.ExecContext(ctx, "SELECT naming_format FROM files LIMIT 1")
	assert.NoError(t, err)
	_, err = db.ExecContext(ctx, "SELECT id FROM batches LIMIT 1")
	assert.NoError(t, err)
}
