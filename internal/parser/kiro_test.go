package parser

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKiroScan(t *testing.T) {
	dir := t.TempDir()
	db := createTestDB(t, filepath.Join(dir, "data.sqlite3"), kiroSchema)
	mustExec(t, db, `INSERT INTO conversations_v2 (key, conversation_id, value, updated_at) VALUES
		('/work/app', 'c1', ?, ?),
		('/work/app', 'c2', ?, ?),
		('/work/lib', 'c3', ?, ?),
		('/work/lib', 'c4', 'not json', 0)`,
		`{"messages":[{"role":"assistant","content":"hi"},{"role":"user","content":"add tests"}]}`, msEarly,
		`{"messages":[{"role":"user","content":[{"type":"text","text":"block text"}]}]}`, msLate,
		`{"history":[{"user":{"content":{"Prompt":{"prompt":"from history"}}}}]}`, msLate,
	)

	sessions := scan(t, &KiroAdapter{Dir: dir})
	require.Len(t, sessions, 4)

	got := byID(sessions)
	assert.Equal(t, []string{"add tests"}, got["c1"].Summaries)
	assert.Equal(t, []string{"block text"}, got["c2"].Summaries)
	assert.Equal(t, []string{"from history"}, got["c3"].Summaries)
	assert.Empty(t, got["c4"].Summaries)
	assert.Equal(t, "/work/app", got["c1"].ProjectPath)
	assert.Equal(t, "app", got["c1"].ProjectName)
	assert.Equal(t, msEarly, got["c1"].Timestamp)
}

func TestKiroScan_MissingTableIsEmpty(t *testing.T) {
	dir := t.TempDir()
	createTestDB(t, filepath.Join(dir, "data.sqlite3"), `CREATE TABLE other (x INTEGER)`)

	assert.Empty(t, scan(t, &KiroAdapter{Dir: dir}))
}

func TestKiroDelete(t *testing.T) {
	dir := t.TempDir()
	db := createTestDB(t, filepath.Join(dir, "data.sqlite3"), kiroSchema)
	mustExec(t, db, `INSERT INTO conversations_v2 (key, conversation_id, value, updated_at)
		VALUES ('/p', 'c1', '{}', 1), ('/p', 'c2', '{}', 2)`)

	a := &KiroAdapter{Dir: dir}
	s := Session{Agent: AgentKiro, ID: "c1"}
	require.NoError(t, a.Delete(context.Background(), s))
	assert.Equal(t, 1, countRows(t, db, `SELECT count(*) FROM conversations_v2`))

	require.NoError(t, a.Delete(context.Background(), s))
	assert.Equal(t, 1, countRows(t, db, `SELECT count(*) FROM conversations_v2`))
}
