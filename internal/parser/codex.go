package parser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/tidwall/gjson"
)

// uuidRe matches a standard UUID (8-4-4-4-12 hex) at the end of a
// rollout filename stem.
var uuidRe = regexp.MustCompile(
	`^rollout-.*-([0-9a-fA-F]{8}-[0-9a-fA-F]{4}-` +
		`[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12})$`,
)

// CodexAdapter reads Codex rollout files, one session per file
// under sessions/YYYY/MM/DD, joined with the prompt log in
// history.jsonl.
type CodexAdapter struct {
	Dir string
}

func (a *CodexAdapter) Agent() AgentType { return AgentCodex }

func (a *CodexAdapter) sessionsDir() string {
	return filepath.Join(a.Dir, "sessions")
}

func (a *CodexAdapter) historyPath() string {
	return filepath.Join(a.Dir, "history.jsonl")
}

// Scan reads only the first line of each rollout; anything that
// is not a session_meta header is ignored.
func (a *CodexAdapter) Scan(
	ctx context.Context, opts Options,
) ([]Session, error) {
	opts = opts.withDefaults()
	prompts := a.readHistory(opts)

	var sessions []Session
	for _, path := range a.rolloutFiles() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, ok := parseCodexRollout(path)
		if !ok {
			continue
		}
		s.Summaries = capSummaries(prompts[s.ID], opts.MaxSummaries)
		sessions = append(sessions, s)
	}
	return sessions, nil
}

func parseCodexRollout(path string) (Session, bool) {
	line, ok := firstJSONLine(path)
	if !ok || gjson.Get(line, "type").Str != "session_meta" {
		return Session{}, false
	}
	r := gjson.GetMany(line,
		"payload.id", "payload.cwd", "payload.timestamp",
		"timestamp", "payload.git.branch",
	)
	id, cwd := r[0].Str, r[1].Str
	if id == "" || cwd == "" {
		return Session{}, false
	}

	ts := parseTimestamp(r[2].Str)
	if ts == 0 {
		ts = parseTimestamp(r[3].Str)
	}
	if ts == 0 {
		ts = mtimeMillis(path)
	}
	return Session{
		Agent:       AgentCodex,
		ID:          id,
		ProjectName: projectName(cwd),
		ProjectPath: cwd,
		Timestamp:   ts,
		GitBranch:   r[4].Str,
	}, true
}

// readHistory maps session_id to prompt texts, newest first.
func (a *CodexAdapter) readHistory(opts Options) map[string][]string {
	type prompt struct {
		ts   float64
		text string
	}
	byID := make(map[string][]prompt)
	_ = scanJSONL(a.historyPath(), 0, func(line string) bool {
		r := gjson.GetMany(line, "session_id", "ts", "text")
		id := r[0].Str
		text := summaryText(r[2].Str, opts.SummaryLen)
		if id == "" || text == "" {
			return true
		}
		byID[id] = append(byID[id], prompt{r[1].Float(), text})
		return true
	})

	out := make(map[string][]string, len(byID))
	for id, ps := range byID {
		sort.SliceStable(ps, func(i, j int) bool {
			return ps[i].ts > ps[j].ts
		})
		texts := make([]string, len(ps))
		for i, p := range ps {
			texts[i] = p.text
		}
		out[id] = texts
	}
	return out
}

func (a *CodexAdapter) rolloutFiles() []string {
	var files []string
	walkCodexDayDirs(a.sessionsDir(), func(dayPath string) bool {
		entries, err := os.ReadDir(dayPath)
		if err != nil {
			return true
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".jsonl") {
				continue
			}
			files = append(files, filepath.Join(dayPath, e.Name()))
		}
		return true
	})
	return files
}

// Delete removes the session's rollout file and its prompts in
// history.jsonl. Both steps are attempted even if one fails.
func (a *CodexAdapter) Delete(ctx context.Context, s Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkSessionID(AgentCodex, s.ID); err != nil {
		return err
	}

	var errs []error
	if path := a.findRollout(s.ID); path != "" {
		if err := removeFile(path); err != nil {
			errs = append(errs, err)
		}
	}
	if _, err := RewriteJSONLExcluding(
		a.historyPath(), "session_id", s.ID,
	); err != nil {
		errs = append(errs, fmt.Errorf("codex history: %w", err))
	}
	return errors.Join(errs...)
}

// findRollout locates a rollout by the UUID in its filename,
// falling back to the id in its header line.
func (a *CodexAdapter) findRollout(id string) string {
	files := a.rolloutFiles()
	for _, path := range files {
		if extractUUIDFromRollout(filepath.Base(path)) == id {
			return path
		}
	}
	for _, path := range files {
		line, ok := firstJSONLine(path)
		if ok && gjson.Get(line, "payload.id").Str == id {
			return path
		}
	}
	return ""
}

// walkCodexDayDirs traverses a Codex sessions directory with
// year/month/day structure, calling fn for each valid day directory.
// fn returns false to stop traversal.
func walkCodexDayDirs(
	root string, fn func(dayPath string) bool,
) {
	years, err := os.ReadDir(root)
	if err != nil {
		return
	}
	for _, year := range years {
		if !year.IsDir() || !IsDigits(year.Name()) {
			continue
		}
		yearPath := filepath.Join(root, year.Name())
		months, err := os.ReadDir(yearPath)
		if err != nil {
			continue
		}
		for _, month := range months {
			if !month.IsDir() || !IsDigits(month.Name()) {
				continue
			}
			monthPath := filepath.Join(yearPath, month.Name())
			days, err := os.ReadDir(monthPath)
			if err != nil {
				continue
			}
			for _, day := range days {
				if !day.IsDir() || !IsDigits(day.Name()) {
					continue
				}
				if !fn(filepath.Join(monthPath, day.Name())) {
					return
				}
			}
		}
	}
}

// extractUUIDFromRollout extracts the UUID from a Codex filename
// like rollout-{timestamp}-{uuid}.jsonl.
func extractUUIDFromRollout(filename string) string {
	stem := strings.TrimSuffix(filename, ".jsonl")
	match := uuidRe.FindStringSubmatch(stem)
	if len(match) < 2 {
		return ""
	}
	return match[1]
}

// IsDigits reports whether s is non-empty and contains only
// Unicode digit characters.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
