package database

import (
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "cred.db")}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrator_RunEmbeddedMigrations(t *testing.T) {
	db := openTestDB(t)
	migrator := NewMigrator(db, zap.NewNop())

	require.NoError(t, migrator.RunMigrations(Migrations()))
	// Second run is a no-op
	require.NoError(t, migrator.RunMigrations(Migrations()))

	for _, table := range []string{"workflow_templates", "task_templates", "payer_applications", "credentialing_tasks", "status_history"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
	}

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 2, count)

	var index string
	require.NoError(t, db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'index' AND name = 'idx_tasks_open_due'").Scan(&index))
}

func TestMigrator_AppliesInVersionOrder(t *testing.T) {
	db := openTestDB(t)
	fsys := fstest.MapFS{
		"002_add_column.sql": {Data: []byte("ALTER TABLE things ADD COLUMN label TEXT;")},
		"001_things.sql":     {Data: []byte("CREATE TABLE things (id INTEGER PRIMARY KEY);")},
		"README.md":          {Data: []byte("ignored")},
	}

	require.NoError(t, NewMigrator(db, zap.NewNop()).RunMigrations(fsys))

	rows, err := db.Query("SELECT version, name FROM schema_migrations ORDER BY version")
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var version int
		var name string
		require.NoError(t, rows.Scan(&version, &name))
		names = append(names, name)
	}
	assert.Equal(t, []string{"things", "add_column"}, names)
}

func TestLoadMigrations_Errors(t *testing.T) {
	_, err := loadMigrations(fstest.MapFS{
		"abc.sql": {Data: []byte("SELECT 1;")},
	})
	assert.ErrorContains(t, err, "invalid migration filename")

	_, err = loadMigrations(fstest.MapFS{
		"001_a.sql": {Data: []byte("SELECT 1;")},
		"1_b.sql":   {Data: []byte("SELECT 1;")},
	})
	assert.ErrorContains(t, err, "duplicate migration version 1")
}

func TestMigrator_FailedMigrationIsNotRecorded(t *testing.T) {
	db := openTestDB(t)
	fsys := fstest.MapFS{
		"001_broken.sql": {Data: []byte("CREATE TABLE nope (")},
	}

	err := NewMigrator(db, zap.NewNop()).RunMigrations(fsys)
	require.Error(t, err)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Zero(t, count)
}

func TestConfig_DSN(t *testing.T) {
	dsn := Config{Path: "/data/cred.db"}.DSN()
	assert.Contains(t, dsn, "file:/data/cred.db?")
	assert.Contains(t, dsn, "_txlock=immediate")
	assert.Contains(t, dsn, "_foreign_keys=on")
	assert.Contains(t, dsn, "_busy_timeout=5000")
}

func TestNew_RequiresPath(t *testing.T) {
	_, err := New(Config{}, zap.NewNop())
	assert.Error(t, err)
}
