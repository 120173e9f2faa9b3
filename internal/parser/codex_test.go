package parser

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subinium/agf/internal/testjsonl"
)

const (
	codexUUID1 = "019a1b2c-3d4e-7f80-9a0b-1c2d3e4f5a6b"
	codexUUID2 = "019a1b2c-3d4e-7f80-9a0b-ffffffffffff"
)

func writeRollout(t *testing.T, dir, day, uuid string, lines ...string) string {
	t.Helper()
	return mustWriteFile(t,
		filepath.Join(dir, "sessions", day, "rollout-2024-01-01T10-00-00-"+uuid+".jsonl"),
		testjsonl.JoinJSONL(lines...),
	)
}

func TestCodexScan(t *testing.T) {
	dir := t.TempDir()
	writeRollout(t, dir, "2024/01/01", codexUUID1,
		testjsonl.CodexSessionMetaJSON(codexUUID1, "/work/api", tsEarly, "main"),
		testjsonl.CodexMsgJSON("user", "hello", tsEarly),
	)
	writeRollout(t, dir, "2024/01/02", codexUUID2,
		testjsonl.CodexMsgJSON("user", "no header", tsLate),
	)
	mustWriteFile(t, filepath.Join(dir, "sessions", "misc", "rollout-x.jsonl"),
		testjsonl.JoinJSONL(testjsonl.CodexSessionMetaJSON("stray", "/x", tsLate, "")))
	mustWriteFile(t, filepath.Join(dir, "history.jsonl"), testjsonl.NewSessionBuilder().
		AddCodexHistory(codexUUID1, 100, "older prompt").
		AddCodexHistory("unrelated", 150, "nope").
		AddCodexHistory(codexUUID1, 200, "newer prompt").
		String())

	sessions := scan(t, &CodexAdapter{Dir: dir})
	require.Len(t, sessions, 1)
	s := sessions[0]
	assert.Equal(t, AgentCodex, s.Agent)
	assert.Equal(t, codexUUID1, s.ID)
	assert.Equal(t, "/work/api", s.ProjectPath)
	assert.Equal(t, "api", s.ProjectName)
	assert.Equal(t, msEarly, s.Timestamp)
	assert.Equal(t, "main", s.GitBranch)
	assert.Equal(t, []string{"newer prompt", "older prompt"}, s.Summaries)
}

func TestCodexScan_RequiresIDAndCwd(t *testing.T) {
	dir := t.TempDir()
	writeRollout(t, dir, "2024/01/01", codexUUID1,
		testjsonl.CodexSessionMetaJSON(codexUUID1, "", tsEarly, ""))
	writeRollout(t, dir, "2024/01/01", codexUUID2,
		testjsonl.CodexSessionMetaJSON("", "/p", tsEarly, ""))

	assert.Empty(t, scan(t, &CodexAdapter{Dir: dir}))
}

func TestCodexScan_TimestampFallsBackToMtime(t *testing.T) {
	dir := t.TempDir()
	path := writeRollout(t, dir, "2024/01/01", codexUUID1,
		`{"type":"session_meta","payload":{"id":"`+codexUUID1+`","cwd":"/p"}}`)

	sessions := scan(t, &CodexAdapter{Dir: dir})
	require.Len(t, sessions, 1)
	assert.Equal(t, mtimeMillis(path), sessions[0].Timestamp)
	assert.NotZero(t, sessions[0].Timestamp)
}

func TestCodexDelete(t *testing.T) {
	dir := t.TempDir()
	byName := writeRollout(t, dir, "2024/01/01", codexUUID1,
		testjsonl.CodexSessionMetaJSON(codexUUID1, "/p", tsEarly, ""))
	byHeader := mustWriteFile(t, filepath.Join(dir, "sessions", "2024", "01", "02", "rollout-legacy.jsonl"),
		testjsonl.JoinJSONL(testjsonl.CodexSessionMetaJSON("legacy-id", "/p", tsEarly, "")))
	other := writeRollout(t, dir, "2024/01/02", codexUUID2,
		testjsonl.CodexSessionMetaJSON(codexUUID2, "/p", tsEarly, ""))
	history := mustWriteFile(t, filepath.Join(dir, "history.jsonl"), testjsonl.NewSessionBuilder().
		AddCodexHistory(codexUUID1, 1, "a").
		AddCodexHistory(codexUUID2, 2, "b").
		String())

	a := &CodexAdapter{Dir: dir}
	ctx := context.Background()
	require.NoError(t, a.Delete(ctx, Session{Agent: AgentCodex, ID: codexUUID1}))
	assertMissing(t, byName)
	assert.FileExists(t, other)
	assert.Equal(t,
		testjsonl.JoinJSONL(testjsonl.CodexHistoryJSON(codexUUID2, 2, "b")),
		readFile(t, history))

	require.NoError(t, a.Delete(ctx, Session{Agent: AgentCodex, ID: "legacy-id"}))
	assertMissing(t, byHeader)

	require.NoError(t, a.Delete(ctx, Session{Agent: AgentCodex, ID: codexUUID1}))
}

func TestExtractUUIDFromRollout(t *testing.T) {
	assert.Equal(t, codexUUID1,
		extractUUIDFromRollout("rollout-2024-01-01T10-00-00-"+codexUUID1+".jsonl"))
	assert.Empty(t, extractUUIDFromRollout("rollout-nouuid.jsonl"))
}

func TestCodexDelete_HistoryFailureStillRemovesRollout(t *testing.T) {
	dir := t.TempDir()
	rollout := writeRollout(t, dir, "2024/01/01", codexUUID1,
		testjsonl.CodexSessionMetaJSON(codexUUID1, "/p", tsEarly, ""))
	history := mustMkdirAll(t, filepath.Join(dir, "history.jsonl"))
	mustWriteFile(t, filepath.Join(history, "x"), "")

	err := (&CodexAdapter{Dir: dir}).Delete(context.Background(),
		Session{Agent: AgentCodex, ID: codexUUID1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "codex history")
	assertMissing(t, rollout)
}
