package parser

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/subinium/agf/internal/gitinfo"
)

const (
	claudeWorktreeMarker  = "/.claude/worktrees/"
	claudeWorktreeMaxRead = 50
)

// ClaudeAdapter reads Claude Code's global prompt history. Every
// prompt is one line of history.jsonl, so a session appears once
// per prompt and is collapsed here.
type ClaudeAdapter struct {
	Dir string
}

func (a *ClaudeAdapter) Agent() AgentType { return AgentClaude }

type claudePrompt struct {
	ts   int64
	text string
}

type claudeEntry struct {
	project string
	ts      int64
	prompts []claudePrompt
}

func (a *ClaudeAdapter) historyPath() string {
	return filepath.Join(a.Dir, "history.jsonl")
}

func (a *ClaudeAdapter) projectsDir() string {
	return filepath.Join(a.Dir, "projects")
}

// Scan keeps, per sessionId, the project and time of the newest
// line and every prompt text of every line.
func (a *ClaudeAdapter) Scan(
	ctx context.Context, opts Options,
) ([]Session, error) {
	opts = opts.withDefaults()
	entries := make(map[string]*claudeEntry)
	var order []string

	err := scanJSONL(a.historyPath(), 0, func(line string) bool {
		if ctx.Err() != nil {
			return false
		}
		r := gjson.GetMany(line, "sessionId", "project", "timestamp", "display")
		id, project := r[0].Str, r[1].Str
		if id == "" || project == "" {
			return true
		}
		ts := nonNegative(int64(r[2].Float()))

		e, ok := entries[id]
		if !ok {
			e = &claudeEntry{project: project, ts: ts}
			entries[id] = e
			order = append(order, id)
		} else if ts >= e.ts {
			e.project = project
			e.ts = ts
		}
		if text := summaryText(r[3].Str, opts.SummaryLen); text != "" {
			e.prompts = append(e.prompts, claudePrompt{ts, text})
		}
		return true
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", a.historyPath(), err)
	}

	branches := make(map[string]string)
	sessions := make([]Session, 0, len(order))
	for _, id := range order {
		e := entries[id]
		sort.SliceStable(e.prompts, func(i, j int) bool {
			return e.prompts[i].ts > e.prompts[j].ts
		})
		summaries := make([]string, 0, len(e.prompts))
		for _, p := range e.prompts {
			summaries = append(summaries, p.text)
		}

		branch, ok := branches[e.project]
		if !ok {
			branch = gitinfo.Branch(e.project)
			branches[e.project] = branch
		}

		sessions = append(sessions, Session{
			Agent:       AgentClaude,
			ID:          id,
			ProjectName: projectName(e.project),
			ProjectPath: e.project,
			Summaries:   capSummaries(summaries, opts.MaxSummaries),
			Timestamp:   e.ts,
			GitBranch:   branch,
			Worktree:    a.findWorktree(e.project, id),
		})
	}
	return sessions, nil
}

// findWorktree looks at the first lines of the session transcript
// for a cwd inside a Claude-managed worktree and returns that
// worktree's name.
func (a *ClaudeAdapter) findWorktree(project, id string) string {
	path := filepath.Join(
		a.projectsDir(), EncodeClaudeProjectDir(project), id+".jsonl",
	)
	var worktree string
	_ = scanJSONL(path, claudeWorktreeMaxRead, func(line string) bool {
		cwd := gjson.Get(line, "cwd").Str
		_, rest, found := strings.Cut(cwd, claudeWorktreeMarker)
		if !found {
			return true
		}
		worktree, _, _ = strings.Cut(rest, "/")
		return worktree == ""
	})
	return worktree
}

// Delete drops the session's prompts from history.jsonl and
// removes its transcript files and per-session directories.
func (a *ClaudeAdapter) Delete(ctx context.Context, s Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkSessionID(AgentClaude, s.ID); err != nil {
		return err
	}

	var errs []error
	if _, err := RewriteJSONLExcluding(
		a.historyPath(), "sessionId", s.ID,
	); err != nil {
		errs = append(errs, err)
	}

	for _, dir := range subdirs(a.projectsDir()) {
		if err := removeFile(filepath.Join(dir, s.ID+".jsonl")); err != nil {
			errs = append(errs, err)
		}
	}
	errs = append(errs, removeDirsNamed(a.projectsDir(), s.ID)...)
	return errors.Join(errs...)
}

// removeDirsNamed removes every directory called name anywhere
// under root.
func removeDirsNamed(root, name string) []error {
	var matches []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() && path != root && d.Name() == name {
			matches = append(matches, path)
			return filepath.SkipDir
		}
		return nil
	})

	var errs []error
	for _, m := range matches {
		if err := removeTree(m); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
