package sync

import (
	"os"
	"path/filepath"
	"slices"
	gosync "sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subinium/agf/internal/config"
)

// changeLog collects every path passed to onChange.
type changeLog struct {
	mu    gosync.Mutex
	paths []string
	calls int
}

func (c *changeLog) record(paths []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths = append(c.paths, paths...)
	c.calls++
}

func (c *changeLog) has(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Contains(c.paths, path)
}

func (c *changeLog) snapshot() ([]string, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.paths), c.calls
}

// fakeClock is a settable time source for debounce tests.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

// offlineWatcher builds a Watcher without an fsnotify handle, for
// driving handleEvent and flush directly.
func offlineWatcher(debounce time.Duration, log *changeLog, clock *fakeClock) *Watcher {
	return &Watcher{
		onChange: log.record,
		debounce: debounce,
		pending:  make(map[string]time.Time),
		now:      clock.now,
	}
}

// liveWatcher watches the given roots and is stopped at cleanup.
func liveWatcher(t *testing.T, log *changeLog, roots ...string) *Watcher {
	t.Helper()
	w, err := NewWatcher(20*time.Millisecond, log.record)
	require.NoError(t, err)
	w.WatchRoots(roots)
	w.Start()
	t.Cleanup(w.Stop)
	return w
}

func TestNewWatcher_RequiresCallback(t *testing.T) {
	_, err := NewWatcher(time.Second, nil)
	assert.ErrorIs(t, err, os.ErrInvalid)
}

func TestHandleEvent_SessionOps(t *testing.T) {
	tests := []struct {
		op      fsnotify.Op
		pending bool
	}{
		{fsnotify.Write, true},
		{fsnotify.Create, true},
		{fsnotify.Remove, true},
		{fsnotify.Rename, true},
		{fsnotify.Chmod, false},
		{fsnotify.Write | fsnotify.Chmod, true},
	}
	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			log := &changeLog{}
			w := offlineWatcher(0, log, &fakeClock{t: time.Unix(100, 0)})
			w.handleEvent(fsnotify.Event{Name: "/home/u/.claude/history.jsonl", Op: tt.op})
			_, ok := w.pending["/home/u/.claude/history.jsonl"]
			assert.Equal(t, tt.pending, ok)
		})
	}
}

func TestFlush_WaitsForQuietPeriod(t *testing.T) {
	log := &changeLog{}
	clock := &fakeClock{t: time.Unix(1000, 0)}
	w := offlineWatcher(500*time.Millisecond, log, clock)

	w.handleEvent(fsnotify.Event{Name: "rollout-a.jsonl", Op: fsnotify.Write})
	clock.advance(300 * time.Millisecond)
	w.handleEvent(fsnotify.Event{Name: "rollout-b.jsonl", Op: fsnotify.Write})

	clock.advance(200 * time.Millisecond)
	w.flush()
	paths, calls := log.snapshot()
	assert.Equal(t, 1, calls)
	assert.Equal(t, []string{"rollout-a.jsonl"}, paths)
	assert.Len(t, w.pending, 1)

	// A repeated write restarts the quiet period for that path.
	w.handleEvent(fsnotify.Event{Name: "rollout-b.jsonl", Op: fsnotify.Write})
	clock.advance(400 * time.Millisecond)
	w.flush()
	_, calls = log.snapshot()
	assert.Equal(t, 1, calls)

	clock.advance(100 * time.Millisecond)
	w.flush()
	paths, calls = log.snapshot()
	assert.Equal(t, 2, calls)
	assert.Equal(t, []string{"rollout-a.jsonl", "rollout-b.jsonl"}, paths)
	assert.Empty(t, w.pending)

	// Nothing pending, no callback.
	w.flush()
	_, calls = log.snapshot()
	assert.Equal(t, 2, calls)
}

func TestWatchRoots_OnlyExistingDirectories(t *testing.T) {
	home := t.TempDir()
	loc := config.DefaultLocations(home)
	require.NoError(t, os.MkdirAll(filepath.Join(loc.CodexDir, "sessions", "2024", "01"), 0o755))
	require.NoError(t, os.MkdirAll(loc.GeminiDir, 0o755))
	// A regular file where a root should be is not watched.
	require.NoError(t, os.MkdirAll(filepath.Dir(loc.ClaudeDir), 0o755))
	require.NoError(t, os.WriteFile(loc.ClaudeDir, nil, 0o644))

	w, err := NewWatcher(time.Second, func([]string) {})
	require.NoError(t, err)
	t.Cleanup(func() { w.watcher.Close() })

	// codex, sessions, 2024, 01 and gemini.
	assert.Equal(t, 5, w.WatchRoots(loc.Roots()))
	assert.ElementsMatch(t, []string{
		loc.CodexDir,
		filepath.Join(loc.CodexDir, "sessions"),
		filepath.Join(loc.CodexDir, "sessions", "2024"),
		filepath.Join(loc.CodexDir, "sessions", "2024", "01"),
		loc.GeminiDir,
	}, w.watcher.WatchList())
}

func TestWatcher_ReportsNewDayDirectories(t *testing.T) {
	root := t.TempDir()
	sessions := filepath.Join(root, "sessions")
	require.NoError(t, os.Mkdir(sessions, 0o755))

	log := &changeLog{}
	w := liveWatcher(t, log, root)

	day := filepath.Join(sessions, "2024", "03", "09")
	require.NoError(t, os.MkdirAll(day, 0o755))
	require.Eventually(t, func() bool {
		return slices.Contains(w.watcher.WatchList(), day)
	}, 5*time.Second, 10*time.Millisecond, "new day directory not watched")

	rollout := filepath.Join(day, "rollout-x.jsonl")
	require.NoError(t, os.WriteFile(rollout, []byte("{}\n"), 0o644))
	assert.Eventually(t, func() bool { return log.has(rollout) },
		5*time.Second, 20*time.Millisecond, "rollout write not reported")
}

func TestWatcher_ReportsDeletes(t *testing.T) {
	root := t.TempDir()
	history := filepath.Join(root, "history.jsonl")
	require.NoError(t, os.WriteFile(history, []byte("{}\n"), 0o644))

	log := &changeLog{}
	liveWatcher(t, log, root)

	require.NoError(t, os.Remove(history))
	assert.Eventually(t, func() bool { return log.has(history) },
		5*time.Second, 20*time.Millisecond, "removal not reported")
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	root := t.TempDir()
	w, err := NewWatcher(10*time.Millisecond, func([]string) {})
	require.NoError(t, err)
	w.WatchRoots([]string{root})
	w.Start()

	require.NoError(t, os.WriteFile(filepath.Join(root, "busy.jsonl"), []byte("x"), 0o644))

	var wg gosync.WaitGroup
	for range 8 {
		wg.Go(w.Stop)
	}
	stopped := make(chan struct{})
	go func() {
		wg.Wait()
		w.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return")
	}
}
