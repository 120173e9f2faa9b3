package parser

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// geminiMaxRead caps how much of a session file is read. Gemini
// inlines tool output, so files grow to tens of megabytes while
// the fields needed here sit near the start.
const geminiMaxRead = 64 * 1024

// GeminiAdapter reads Gemini CLI chats from
// tmp/<project dir>/chats/session-*.json. The project dir is
// either a name registered in projects.json or the sha256 of the
// project path.
type GeminiAdapter struct {
	Dir string
}

func (a *GeminiAdapter) Agent() AgentType { return AgentGemini }

func (a *GeminiAdapter) tmpDir() string {
	return filepath.Join(a.Dir, "tmp")
}

// Scan returns one session per sessionId; the same chat can exist
// under both a hash dir and a named dir after Gemini migrates a
// project, and the newer copy wins.
func (a *GeminiAdapter) Scan(
	ctx context.Context, opts Options,
) ([]Session, error) {
	opts = opts.withDefaults()
	dirs := subdirs(a.tmpDir())
	if len(dirs) == 0 {
		return nil, nil
	}
	projects := BuildGeminiProjectMap(a.Dir)

	byID := make(map[string]Session)
	var order []string
	for _, dir := range dirs {
		path, name := ResolveGeminiProject(filepath.Base(dir), projects)
		for _, file := range geminiSessionFiles(dir) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			s, ok := parseGeminiSession(file, opts)
			if !ok {
				continue
			}
			s.ProjectPath, s.ProjectName = path, name
			prev, seen := byID[s.ID]
			if !seen {
				order = append(order, s.ID)
			}
			if !seen || s.Timestamp > prev.Timestamp {
				byID[s.ID] = s
			}
		}
	}

	sessions := make([]Session, 0, len(order))
	for _, id := range order {
		sessions = append(sessions, byID[id])
	}
	return sessions, nil
}

func geminiSessionFiles(projectDir string) []string {
	chats := filepath.Join(projectDir, "chats")
	entries, err := os.ReadDir(chats)
	if err != nil {
		return nil
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "session-") ||
			!strings.HasSuffix(name, ".json") {
			continue
		}
		files = append(files, filepath.Join(chats, name))
	}
	return files
}

// parseGeminiSession reads the capped prefix of a session file.
// Complete JSON is parsed normally; a prefix cut mid-document
// falls back to locating the fields by their key markers.
func parseGeminiSession(path string, opts Options) (Session, bool) {
	data, _, err := readCapped(path, geminiMaxRead)
	if err != nil {
		return Session{}, false
	}

	var id, ts, prompt string
	if gjson.ValidBytes(data) {
		doc := gjson.ParseBytes(data)
		id = doc.Get("sessionId").Str
		ts = doc.Get("lastUpdated").Str
		if ts == "" {
			ts = doc.Get("startTime").Str
		}
		doc.Get("messages").ForEach(func(_, msg gjson.Result) bool {
			if msg.Get("type").Str != "user" {
				return true
			}
			prompt = messageText(msg.Get("content"))
			return collapseSpace(prompt) == ""
		})
	} else {
		s := string(data)
		id, _ = extractStringField(s, "sessionId")
		var ok bool
		if ts, ok = extractStringField(s, "lastUpdated"); !ok {
			ts, _ = extractStringField(s, "startTime")
		}
		prompt, _ = extractUserTextPartial(s)
	}
	if id == "" {
		return Session{}, false
	}

	s := Session{
		Agent:     AgentGemini,
		ID:        id,
		Timestamp: parseTimestamp(ts),
	}
	if s.Timestamp == 0 {
		s.Timestamp = mtimeMillis(path)
	}
	if t := summaryText(prompt, opts.SummaryLen); t != "" {
		s.Summaries = []string{t}
	}
	return s, true
}

// Delete removes every session file, in any project dir, whose
// sessionId matches.
func (a *GeminiAdapter) Delete(ctx context.Context, s Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkSessionID(AgentGemini, s.ID); err != nil {
		return err
	}
	var errs []error
	for _, dir := range subdirs(a.tmpDir()) {
		for _, file := range geminiSessionFiles(dir) {
			if geminiFileSessionID(file) != s.ID {
				continue
			}
			if err := removeFile(file); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func geminiFileSessionID(path string) string {
	data, _, err := readCapped(path, geminiMaxRead)
	if err != nil {
		return ""
	}
	if gjson.ValidBytes(data) {
		return gjson.GetBytes(data, "sessionId").Str
	}
	id, _ := extractStringField(string(data), "sessionId")
	return id
}

// BuildGeminiProjectMap maps Gemini tmp/ directory names to
// project paths: both the registered short name from
// projects.json and the sha256 hash of every known path, including
// trustedFolders.json entries.
func BuildGeminiProjectMap(geminiDir string) map[string]string {
	result := make(map[string]string)

	if data, err := os.ReadFile(
		filepath.Join(geminiDir, "projects.json"),
	); err == nil && gjson.ValidBytes(data) {
		named := make(map[string]string)
		gjson.GetBytes(data, "projects").ForEach(
			func(path, name gjson.Result) bool {
				named[path.String()] = name.String()
				return true
			},
		)
		addProjectPaths(result, named)
	}

	if data, err := os.ReadFile(
		filepath.Join(geminiDir, "trustedFolders.json"),
	); err == nil && gjson.ValidBytes(data) {
		paths := make(map[string]string)
		doc := gjson.ParseBytes(data)
		if list := doc.Get("trustedFolders"); list.IsArray() {
			for _, p := range list.Array() {
				paths[p.String()] = ""
			}
		} else {
			doc.ForEach(func(path, _ gjson.Result) bool {
				paths[path.String()] = ""
				return true
			})
		}
		addProjectPaths(result, paths)
	}
	return result
}

// addProjectPaths adds hash and name entries for the given
// absolute paths. Earlier entries win on collision.
func addProjectPaths(
	result map[string]string,
	paths map[string]string,
) {
	sorted := make([]string, 0, len(paths))
	for absPath := range paths {
		if absPath != "" {
			sorted = append(sorted, absPath)
		}
	}
	sort.Strings(sorted)

	for _, absPath := range sorted {
		hash := geminiPathHash(absPath)
		if _, exists := result[hash]; !exists {
			result[hash] = absPath
		}
		if name := paths[absPath]; name != "" {
			if _, exists := result[name]; !exists {
				result[name] = absPath
			}
		}
	}
}

// geminiPathHash computes the SHA-256 hex hash of a path,
// matching Gemini CLI's project hash algorithm.
func geminiPathHash(path string) string {
	h := sha256.Sum256([]byte(path))
	return hex.EncodeToString(h[:])
}

// ResolveGeminiProject maps a tmp/ subdirectory name to a project
// path and display name. Unregistered dirs have no path and are
// shown by their first 8 characters.
func ResolveGeminiProject(
	dirName string, projectMap map[string]string,
) (path, name string) {
	if p := projectMap[dirName]; p != "" {
		return p, projectName(p)
	}
	short := dirName
	if r := []rune(short); len(r) > 8 {
		short = string(r[:8])
	}
	return "", short + "…"
}
