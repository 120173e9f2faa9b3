// Package sync aggregates every agent adapter into one
// newest-first session list and routes deletions back to the
// adapter that owns a session.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	gosync "sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/subinium/agf/internal/config"
	"github.com/subinium/agf/internal/gitinfo"
	"github.com/subinium/agf/internal/parser"
)

// maxGitWorkers bounds concurrent git status checks.
const maxGitWorkers = 16

// Engine runs adapters concurrently and enriches their sessions
// with git state.
type Engine struct {
	adapters       []parser.Adapter
	byAgent        map[parser.AgentType]parser.Adapter
	opts           parser.Options
	adapterTimeout time.Duration
	gitTimeout     time.Duration
	maxSessions    int

	branch func(dir string) string
	status func(ctx context.Context, dir string) parser.GitStatus

	mu        gosync.RWMutex
	lastScan  time.Time
	lastStats ScanStats
}

// NewEngine creates an engine over the given adapters. Adapters
// for agents in cfg.DisabledAgents are not scanned but still
// accept deletions.
func NewEngine(adapters []parser.Adapter, cfg config.Config) *Engine {
	e := &Engine{
		byAgent: make(map[parser.AgentType]parser.Adapter, len(adapters)),
		opts: parser.Options{
			MaxSummaries: cfg.MaxSummaries,
		},
		adapterTimeout: cfg.AdapterTimeout,
		gitTimeout:     cfg.GitTimeout,
		maxSessions:    cfg.MaxSessions,
		branch:         gitinfo.Branch,
		status:         gitinfo.Check,
	}
	for _, a := range adapters {
		e.byAgent[a.Agent()] = a
		if cfg.AgentEnabled(string(a.Agent())) {
			e.adapters = append(e.adapters, a)
		}
	}
	if e.adapterTimeout <= 0 {
		e.adapterTimeout = 10 * time.Second
	}
	if e.gitTimeout <= 0 {
		e.gitTimeout = 2 * time.Second
	}
	return e
}

// LastScan returns the time of the last completed scan.
func (e *Engine) LastScan() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastScan
}

// LastScanStats returns statistics from the last scan.
func (e *Engine) LastScanStats() ScanStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastStats
}

type scanResult struct {
	sessions []parser.Session
	err      error
}

// Scan collects sessions from every enabled adapter. A failing,
// panicking or slow adapter contributes nothing and is reported
// in the stats. The result is sorted by Timestamp, newest first.
func (e *Engine) Scan(ctx context.Context) ([]parser.Session, ScanStats) {
	start := time.Now()
	results := make([]scanResult, len(e.adapters))

	var g errgroup.Group
	for i, a := range e.adapters {
		g.Go(func() error {
			sessions, err := e.scanOne(ctx, a)
			results[i] = scanResult{sessions: sessions, err: err}
			return nil
		})
	}
	_ = g.Wait()

	var (
		stats    ScanStats
		sessions []parser.Session
	)
	for i, a := range e.adapters {
		r := results[i]
		if r.err != nil {
			slog.Warn("scan failed", "agent", a.Agent(), "err", r.err)
			stats.RecordFailed(a.Agent(), r.err.Error())
			continue
		}
		stats.RecordAgent(a.Agent(), len(r.sessions))
		sessions = append(sessions, r.sessions...)
	}

	stats.Projects = e.enrichGit(ctx, sessions)

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].Timestamp > sessions[j].Timestamp
	})
	if e.maxSessions > 0 && len(sessions) > e.maxSessions {
		sessions = sessions[:e.maxSessions]
	}
	stats.TotalSessions = len(sessions)
	stats.Duration = time.Since(start)

	e.mu.Lock()
	e.lastScan = time.Now()
	e.lastStats = stats
	e.mu.Unlock()

	slog.Debug("scan complete",
		"sessions", stats.TotalSessions,
		"projects", stats.Projects,
		"failed", len(stats.Failed),
		"duration", stats.Duration,
	)
	return sessions, stats
}

// scanOne runs one adapter under the adapter timeout. The adapter
// goroutine is abandoned on expiry; its result is discarded.
func (e *Engine) scanOne(
	ctx context.Context, a parser.Adapter,
) ([]parser.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, e.adapterTimeout)
	defer cancel()

	ch := make(chan scanResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- scanResult{err: fmt.Errorf("%s: panic: %v", a.Agent(), r)}
			}
		}()
		sessions, err := a.Scan(ctx, e.opts)
		if err != nil {
			err = fmt.Errorf("%s: %w", a.Agent(), err)
		}
		ch <- scanResult{sessions: sessions, err: err}
	}()

	select {
	case r := <-ch:
		return r.sessions, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", a.Agent(), ctx.Err())
	}
}

type gitState struct {
	branch string
	status parser.GitStatus
}

// enrichGit checks every distinct project path once and applies
// the result to all sessions of that path. Adapter-supplied
// branches are kept. Returns the number of paths checked.
func (e *Engine) enrichGit(ctx context.Context, sessions []parser.Session) int {
	var paths []string
	seen := make(map[string]bool)
	for _, s := range sessions {
		if s.ProjectPath == "" || seen[s.ProjectPath] {
			continue
		}
		seen[s.ProjectPath] = true
		paths = append(paths, s.ProjectPath)
	}

	states := make([]gitState, len(paths))
	g := new(errgroup.Group)
	g.SetLimit(maxGitWorkers)
	for i, path := range paths {
		g.Go(func() error {
			states[i] = e.checkGit(ctx, path)
			return nil
		})
	}
	_ = g.Wait()

	byPath := make(map[string]gitState, len(paths))
	for i, path := range paths {
		byPath[path] = states[i]
	}
	for i := range sessions {
		st, ok := byPath[sessions[i].ProjectPath]
		if !ok {
			continue
		}
		sessions[i].GitStatus = st.status
		if sessions[i].GitBranch == "" {
			sessions[i].GitBranch = st.branch
		}
	}
	return len(paths)
}

// checkGit bounds the whole lookup, including the filesystem reads
// behind the branch and the repository walk, by the git timeout. A
// lookup that does not finish in time is abandoned and reports an
// unknown status with no branch.
func (e *Engine) checkGit(ctx context.Context, path string) gitState {
	ctx, cancel := context.WithTimeout(ctx, e.gitTimeout)
	defer cancel()

	done := make(chan gitState, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Warn("git check panicked", "path", path, "panic", r)
				done <- gitState{status: parser.GitUnknown}
			}
		}()
		done <- gitState{
			branch: e.branch(path),
			status: e.status(ctx, path),
		}
	}()

	select {
	case st := <-done:
		return st
	case <-ctx.Done():
		slog.Debug("git check timed out", "path", path)
		return gitState{status: parser.GitUnknown}
	}
}

// Delete removes s through the adapter registered for its agent.
func (e *Engine) Delete(ctx context.Context, s parser.Session) error {
	a, ok := e.byAgent[s.Agent]
	if !ok {
		return fmt.Errorf("%w: %q", parser.ErrUnknownAgent, s.Agent)
	}
	if err := a.Delete(ctx, s); err != nil {
		return fmt.Errorf("deleting %s session %s: %w", s.Agent, s.ID, err)
	}
	slog.Debug("deleted session", "agent", s.Agent, "id", s.ID)
	return nil
}

// DeleteBatch deletes sessions in order and returns one error
// slot per input; nil means the session is gone.
func (e *Engine) DeleteBatch(
	ctx context.Context, sessions []parser.Session,
) []error {
	errs := make([]error, len(sessions))
	for i, s := range sessions {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			continue
		}
		errs[i] = e.Delete(ctx, s)
	}
	return errs
}
