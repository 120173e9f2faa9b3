package parser

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// openCodeSchema mirrors the columns of OpenCode's session table
// that are read here, plus a dependent table to check cascades.
const openCodeSchema = `
CREATE TABLE session (
	id TEXT PRIMARY KEY,
	title TEXT,
	directory TEXT NOT NULL,
	time_created INTEGER NOT NULL DEFAULT 0,
	time_updated INTEGER NOT NULL,
	time_archived INTEGER
);

CREATE TABLE message (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES session(id) ON DELETE CASCADE,
	data TEXT NOT NULL
);
`

const kiroSchema = `
CREATE TABLE conversations_v2 (
	key TEXT NOT NULL,
	conversation_id TEXT NOT NULL,
	value TEXT NOT NULL,
	created_at INTEGER NOT NULL DEFAULT 0,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (key, conversation_id)
);
`

// createTestDB creates a sqlite file at path with the given schema
// and returns a writable handle closed on cleanup.
func createTestDB(t *testing.T, path, schema string) *sql.DB {
	t.Helper()
	mustMkdirAll(t, filepath.Dir(path))
	db, err := sql.Open("sqlite3", sqliteDSN(path, false))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(schema)
	require.NoError(t, err)
	return db
}

func mustExec(t *testing.T, db *sql.DB, query string, args ...any) {
	t.Helper()
	_, err := db.Exec(query, args...)
	require.NoError(t, err)
}

func countRows(t *testing.T, db *sql.DB, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRowContext(context.Background(), query, args...).Scan(&n))
	return n
}
