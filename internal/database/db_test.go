package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCreatesDatabaseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "test.db")

	db, err := New(Config{Path: path, Name: "test"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	assert.Equal(t, "test", db.Name())
	assert.Equal(t, path, db.Path())
	require.NoError(t, db.Conn().Ping())
}

func TestInitSchemaIsIdempotent(t *testing.T) {
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "test.db"), Name: "test"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	schema := `CREATE TABLE IF NOT EXISTS things (id TEXT PRIMARY KEY);`
	require.NoError(t, db.InitSchema(schema))
	require.NoError(t, db.InitSchema(schema))

	_, err = db.Conn().Exec(`INSERT INTO things (id) VALUES ('a')`)
	require.NoError(t, err)
}

func TestBuildConnectionString(t *testing.T) {
	connStr := buildConnectionString("/tmp/x.db")
	assert.Contains(t, connStr, "journal_mode(WAL)")
	assert.Contains(t, connStr, "synchronous(NORMAL)")
	assert.Contains(t, connStr, "foreign_keys(1)")
}
