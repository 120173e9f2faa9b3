package parser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

const piFirstPromptMaxRead = 50

// PiAdapter reads pi coding-agent sessions, stored as
// <sessions>/<encoded-cwd>/<file>.jsonl with a session header on
// the first line. pi can only resume the newest session of a
// directory, so older ones are dropped.
type PiAdapter struct {
	Dir string
}

func (a *PiAdapter) Agent() AgentType { return AgentPi }

type piFile struct {
	path string
	id   string
}

func (a *PiAdapter) Scan(
	ctx context.Context, opts Options,
) ([]Session, error) {
	opts = opts.withDefaults()

	var sessions []Session
	for _, path := range a.sessionFiles() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, ok := parsePiSession(path, opts)
		if ok {
			sessions = append(sessions, s)
		}
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].Timestamp > sessions[j].Timestamp
	})
	seen := make(map[string]bool, len(sessions))
	kept := sessions[:0]
	for _, s := range sessions {
		if seen[s.ProjectPath] {
			continue
		}
		seen[s.ProjectPath] = true
		kept = append(kept, s)
	}
	return kept, nil
}

func parsePiSession(path string, opts Options) (Session, bool) {
	var (
		s      Session
		header bool
		prompt string
	)
	_ = scanJSONL(path, piFirstPromptMaxRead, func(line string) bool {
		if !header {
			r := gjson.GetMany(line, "type", "id", "cwd", "timestamp")
			if r[0].Str != "session" || r[1].Str == "" || r[2].Str == "" {
				return false
			}
			header = true
			s = Session{
				Agent:       AgentPi,
				ID:          r[1].Str,
				ProjectName: projectName(r[2].Str),
				ProjectPath: r[2].Str,
				Timestamp:   parseTimestamp(r[3].Str),
			}
			return true
		}
		if gjson.Get(line, "type").Str != "message" ||
			gjson.Get(line, "message.role").Str != "user" {
			return true
		}
		prompt = summaryText(
			messageText(gjson.Get(line, "message.content")),
			opts.SummaryLen,
		)
		return prompt == ""
	})
	if !header {
		return Session{}, false
	}
	if s.Timestamp == 0 {
		s.Timestamp = mtimeMillis(path)
	}
	if prompt != "" {
		s.Summaries = []string{prompt}
	}
	return s, true
}

func (a *PiAdapter) sessionFiles() []string {
	var files []string
	for _, dir := range subdirs(a.Dir) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".jsonl") {
				continue
			}
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files
}

// Delete removes every session file whose header carries the
// session's id.
func (a *PiAdapter) Delete(ctx context.Context, s Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkSessionID(AgentPi, s.ID); err != nil {
		return err
	}
	var errs []error
	for _, f := range a.headers() {
		if f.id != s.ID {
			continue
		}
		if err := removeFile(f.path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *PiAdapter) headers() []piFile {
	var out []piFile
	for _, path := range a.sessionFiles() {
		line, ok := firstJSONLine(path)
		if !ok || gjson.Get(line, "type").Str != "session" {
			continue
		}
		out = append(out, piFile{path: path, id: gjson.Get(line, "id").Str})
	}
	return out
}
