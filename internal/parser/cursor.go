package parser

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// CursorAdapter reads Cursor CLI (cursor-agent) transcripts from
// projects/<dash-encoded path>/agent-transcripts and their chat
// metadata from chats/<md5(path)>/<id>/store.db.
type CursorAdapter struct {
	Dir string
	// IsDir is the existence oracle for path reconstruction; nil
	// checks the real filesystem.
	IsDir func(string) bool
}

func (a *CursorAdapter) Agent() AgentType { return AgentCursorAgent }

func (a *CursorAdapter) projectsDir() string {
	return filepath.Join(a.Dir, "projects")
}

func (a *CursorAdapter) chatsDir() string {
	return filepath.Join(a.Dir, "chats")
}

func (a *CursorAdapter) isDir() func(string) bool {
	if a.IsDir != nil {
		return a.IsDir
	}
	return isDir
}

// isTempProjectDir reports encoded names of scratch directories
// that cursor-agent was run from.
func isTempProjectDir(name string) bool {
	return strings.HasPrefix(name, "var-folders") ||
		strings.HasPrefix(name, "tmp-")
}

// Scan skips project directories whose name cannot be decoded
// back to an existing path.
func (a *CursorAdapter) Scan(
	ctx context.Context, opts Options,
) ([]Session, error) {
	opts = opts.withDefaults()
	entries, err := os.ReadDir(a.projectsDir())
	if err != nil {
		return nil, nil
	}

	var sessions []Session
	for _, entry := range entries {
		if !entry.IsDir() || isTempProjectDir(entry.Name()) {
			continue
		}
		transcripts := cursorTranscripts(filepath.Join(
			a.projectsDir(), entry.Name(), "agent-transcripts",
		))
		if len(transcripts) == 0 {
			continue
		}
		project := DecodeDashPath(entry.Name(), a.isDir())
		if project == "" {
			continue
		}

		for _, path := range transcripts {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			s := Session{
				Agent:       AgentCursorAgent,
				ID:          id,
				ProjectName: projectName(project),
				ProjectPath: project,
			}
			name, created := a.chatMeta(ctx, project, id)
			if t := summaryText(name, opts.SummaryLen); t != "" {
				s.Summaries = []string{t}
			}
			s.Timestamp = created
			if s.Timestamp == 0 {
				s.Timestamp = mtimeMillis(path)
			}
			sessions = append(sessions, s)
		}
	}
	return sessions, nil
}

// cursorTranscripts lists transcript files in dir, one per
// session id; .jsonl wins over .txt for the same id.
func cursorTranscripts(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	seen := make(map[string]string)
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || !isCursorTranscriptExt(name) {
			continue
		}
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		if !validSessionID(stem) {
			continue
		}
		if prev, ok := seen[stem]; ok &&
			!(strings.HasSuffix(prev, ".txt") && strings.HasSuffix(name, ".jsonl")) {
			continue
		}
		seen[stem] = filepath.Join(dir, name)
	}
	paths := make([]string, 0, len(seen))
	for _, p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func isCursorTranscriptExt(name string) bool {
	return strings.HasSuffix(name, ".txt") ||
		strings.HasSuffix(name, ".jsonl")
}

// cursorWorkspaceHash is the chats/ subdirectory name for a
// project path.
func cursorWorkspaceHash(path string) string {
	sum := md5.Sum([]byte(path))
	return hex.EncodeToString(sum[:])
}

// chatMeta returns the chat name and creation time (Unix ms) from
// the session's store.db, or zero values when none is found.
func (a *CursorAdapter) chatMeta(
	ctx context.Context, project, id string,
) (string, int64) {
	store := filepath.Join(
		a.chatsDir(), cursorWorkspaceHash(project), id, "store.db",
	)
	if _, err := os.Stat(store); err != nil {
		store = ""
		for _, dir := range subdirs(a.chatsDir()) {
			candidate := filepath.Join(dir, id, "store.db")
			if _, err := os.Stat(candidate); err == nil {
				store = candidate
				break
			}
		}
	}
	if store == "" {
		return "", 0
	}
	meta, err := readCursorStoreMeta(ctx, store)
	if err != nil {
		return "", 0
	}
	return gjson.Get(meta, "name").Str,
		nonNegative(gjson.Get(meta, "createdAt").Int())
}

// readCursorStoreMeta returns the decoded JSON metadata blob of a
// chat store. Current stores keep it hex-encoded in meta under
// key '0'; older ones use cursorDiskKV under 'composerData'.
func readCursorStoreMeta(ctx context.Context, store string) (string, error) {
	db, err := openSQLite(ctx, store, true)
	if err != nil {
		return "", err
	}
	if db == nil {
		return "", os.ErrNotExist
	}
	defer db.Close()

	queries := []struct{ table, query string }{
		{"meta", "SELECT value FROM meta WHERE key = '0'"},
		{"cursorDiskKV", "SELECT value FROM cursorDiskKV WHERE key = 'composerData'"},
	}
	for _, q := range queries {
		ok, err := hasTable(ctx, db, q.table)
		if err != nil {
			return "", err
		}
		if !ok {
			continue
		}
		var raw []byte
		if err := db.QueryRowContext(ctx, q.query).Scan(&raw); err != nil {
			continue
		}
		if meta, ok := decodeHexJSON(raw); ok {
			return meta, nil
		}
	}
	return "", fmt.Errorf("%s: no chat metadata", store)
}

// decodeHexJSON accepts a hex-encoded JSON document, or plain JSON
// for stores that never hex-encoded it.
func decodeHexJSON(raw []byte) (string, bool) {
	s := strings.TrimSpace(string(raw))
	if b, err := hex.DecodeString(s); err == nil && gjson.ValidBytes(b) {
		return string(b), true
	}
	if gjson.Valid(s) {
		return s, true
	}
	return "", false
}

// Delete removes every transcript of the session and its chat
// directories.
func (a *CursorAdapter) Delete(ctx context.Context, s Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkSessionID(AgentCursorAgent, s.ID); err != nil {
		return err
	}

	var errs []error
	for _, dir := range subdirs(a.projectsDir()) {
		for _, ext := range []string{".txt", ".jsonl"} {
			path := filepath.Join(dir, "agent-transcripts", s.ID+ext)
			if err := removeFile(path); err != nil {
				errs = append(errs, err)
			}
		}
	}
	for _, dir := range subdirs(a.chatsDir()) {
		if err := removeTree(filepath.Join(dir, s.ID)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
