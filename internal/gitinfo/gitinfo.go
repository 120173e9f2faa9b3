// Package gitinfo reads the live branch and working-tree state of a
// project directory. Branch lookups parse repository metadata
// directly; only the dirty check shells out to git.
package gitinfo

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Status is the working-tree state of a repository. Unknown
// covers "not a repository" and "check failed".
type Status int

const (
	Unknown Status = iota
	Clean
	Dirty
)

func (s Status) String() string {
	switch s {
	case Clean:
		return "clean"
	case Dirty:
		return "dirty"
	default:
		return "unknown"
	}
}

// gitCommand is swapped in tests.
var gitCommand = "git"

// Branch returns the checked-out branch of the repository
// containing dir, the short commit hash for a detached HEAD, or ""
// when dir is not inside a repository.
func Branch(dir string) string {
	gitDir := FindGitDir(dir)
	if gitDir == "" {
		return ""
	}
	b, err := os.ReadFile(filepath.Join(gitDir, "HEAD"))
	if err != nil {
		return ""
	}
	head := strings.TrimSpace(string(b))
	if ref, ok := strings.CutPrefix(head, "ref:"); ok {
		ref = strings.TrimSpace(ref)
		return strings.TrimPrefix(ref, "refs/heads/")
	}
	if len(head) >= 7 && isHex(head) {
		return head[:7]
	}
	return ""
}

// Check runs `git status --porcelain` in dir. A directory with no
// enclosing repository, a failing git, or an expired ctx all
// report Unknown.
func Check(ctx context.Context, dir string) Status {
	if dir == "" || FindGitDir(dir) == "" {
		return Unknown
	}
	cmd := exec.CommandContext(
		ctx, gitCommand, "-C", dir, "status", "--porcelain",
	)
	out, err := cmd.Output()
	if err != nil || ctx.Err() != nil {
		return Unknown
	}
	if len(bytes.TrimSpace(out)) > 0 {
		return Dirty
	}
	return Clean
}

// FindGitDir walks upward from dir to the nearest .git entry and
// returns the git directory it designates. A .git file (linked
// worktrees, submodules) is followed to its gitdir target.
func FindGitDir(dir string) string {
	if dir == "" {
		return ""
	}
	dir = filepath.Clean(dir)
	for {
		gitPath := filepath.Join(dir, ".git")
		info, err := os.Stat(gitPath)
		if err == nil {
			if info.IsDir() {
				return gitPath
			}
			if info.Mode().IsRegular() {
				return resolveGitFile(gitPath)
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func resolveGitFile(gitFilePath string) string {
	gitDir := readGitDirFromFile(gitFilePath)
	if gitDir == "" {
		return ""
	}
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(filepath.Dir(gitFilePath), gitDir)
	}
	return filepath.Clean(gitDir)
}

func readGitDirFromFile(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	for line := range strings.SplitSeq(string(b), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		const prefix = "gitdir:"
		if strings.HasPrefix(strings.ToLower(line), prefix) {
			return strings.TrimSpace(line[len(prefix):])
		}
	}
	return ""
}

func isHex(s string) bool {
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f':
		default:
			return false
		}
	}
	return true
}
