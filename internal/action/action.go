// Package action turns a session into the shell command that
// resumes it, starts a new session in its project, or changes to
// its directory. Commands are printed for a shell wrapper to eval;
// nothing here executes them.
package action

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/shlex"

	"github.com/subinium/agf/internal/parser"
)

// ErrNoProjectPath is returned for actions that need a directory
// when the session has none.
var ErrNoProjectPath = errors.New("session has no project path")

// Kind selects the command to generate.
type Kind int

const (
	Resume Kind = iota
	NewSession
	Cd
)

func (k Kind) String() string {
	switch k {
	case Resume:
		return "resume"
	case NewSession:
		return "new"
	case Cd:
		return "cd"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Quote wraps s in single quotes for POSIX shells.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// quoteWord quotes s only when a shell would otherwise split or
// expand it.
func quoteWord(s string) string {
	if s == "" {
		return "''"
	}
	for _, r := range s {
		if !isSafe(r) {
			return Quote(s)
		}
	}
	return s
}

func isSafe(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return strings.ContainsRune("-_=./:,@+%", r)
}

// Command returns the shell command for kind. For NewSession,
// agent picks the CLI to start (empty means the session's own)
// and flags is appended after being re-quoted word by word.
func Command(
	s parser.Session, kind Kind, agent parser.AgentType, flags string,
) (string, error) {
	switch kind {
	case Resume:
		cmd, err := ResumeCommand(s)
		if err != nil {
			return "", err
		}
		return inDir(s.ProjectPath, cmd), nil
	case NewSession:
		if agent == "" {
			agent = s.Agent
		}
		cmd, err := NewSessionCommand(agent, flags)
		if err != nil {
			return "", err
		}
		if s.ProjectPath == "" {
			return "", ErrNoProjectPath
		}
		return inDir(s.ProjectPath, cmd), nil
	case Cd:
		if s.ProjectPath == "" {
			return "", ErrNoProjectPath
		}
		return "cd " + Quote(s.ProjectPath), nil
	default:
		return "", fmt.Errorf("unknown action %v", kind)
	}
}

// ResumeCommand returns the agent invocation that resumes s,
// without changing directory.
func ResumeCommand(s parser.Session) (string, error) {
	def, ok := parser.AgentByType(s.Agent)
	if !ok {
		return "", fmt.Errorf("%w: %q", parser.ErrUnknownAgent, s.Agent)
	}
	if !strings.Contains(def.ResumeFmt, "%s") {
		return def.ResumeFmt, nil
	}
	if s.ID == "" {
		return "", errors.New("session has no id")
	}
	return fmt.Sprintf(def.ResumeFmt, Quote(s.ID)), nil
}

// NewSessionCommand returns the command that starts a fresh
// session of agent with the given extra flags.
func NewSessionCommand(agent parser.AgentType, flags string) (string, error) {
	def, ok := parser.AgentByType(agent)
	if !ok {
		return "", fmt.Errorf("%w: %q", parser.ErrUnknownAgent, agent)
	}
	words, err := shlex.Split(flags)
	if err != nil {
		return "", fmt.Errorf("parsing flags %q: %w", flags, err)
	}
	var b strings.Builder
	b.WriteString(def.NewCmd)
	for _, w := range words {
		b.WriteByte(' ')
		b.WriteString(quoteWord(w))
	}
	return b.String(), nil
}

func inDir(dir, cmd string) string {
	if dir == "" {
		return cmd
	}
	return "cd " + Quote(dir) + " && " + cmd
}
