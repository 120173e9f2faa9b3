package parser

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// Timestamp constants for test data.
const (
	tsEarly = "2024-01-01T10:00:00Z"
	tsLate  = "2024-01-01T10:01:00Z"

	msEarly int64 = 1704103200000
	msLate  int64 = 1704103260000
)

func mustWriteFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func mustMkdirAll(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(path, 0o755))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func assertMissing(t *testing.T, path string) {
	t.Helper()
	_, err := os.Stat(path)
	if !os.IsNotExist(err) {
		t.Errorf("%s still exists (err=%v)", path, err)
	}
}

func scan(t *testing.T, a Adapter) []Session {
	t.Helper()
	sessions, err := a.Scan(context.Background(), DefaultOptions())
	require.NoError(t, err)
	return sessions
}

func byID(sessions []Session) map[string]Session {
	m := make(map[string]Session, len(sessions))
	for _, s := range sessions {
		m[s.ID] = s
	}
	return m
}
