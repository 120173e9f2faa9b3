package parser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/subinium/agf/internal/config"
	"github.com/subinium/agf/internal/gitinfo"
)

// AgentType identifies the AI agent that produced a session.
type AgentType string

const (
	AgentClaude      AgentType = "claude"
	AgentCodex       AgentType = "codex"
	AgentOpenCode    AgentType = "opencode"
	AgentPi          AgentType = "pi"
	AgentKiro        AgentType = "kiro"
	AgentCursorAgent AgentType = "cursor-agent"
	AgentGemini      AgentType = "gemini"
)

// ErrUnknownAgent is returned when a session names an agent
// that has no registered adapter.
var ErrUnknownAgent = errors.New("unknown agent")

// ErrInvalidSessionID is returned by Delete for ids that are empty
// or are not a single path element.
var ErrInvalidSessionID = errors.New("invalid session id")

// AgentDef describes how a supported agent is presented and
// launched. Sessions are resumed with ResumeFmt, where %s is the
// single-quoted session ID; agents that can only resume the most
// recent session for a directory have no %s.
type AgentDef struct {
	Type        AgentType
	DisplayName string
	CLIName     string
	NewCmd      string
	ResumeFmt   string
}

// Agents lists all supported agents. Order is stable and used
// for registry construction and help output.
var Agents = []AgentDef{
	{
		Type:        AgentClaude,
		DisplayName: "Claude Code",
		CLIName:     "claude",
		NewCmd:      "claude",
		ResumeFmt:   "claude --resume %s",
	},
	{
		Type:        AgentCodex,
		DisplayName: "Codex",
		CLIName:     "codex",
		NewCmd:      "codex",
		ResumeFmt:   "codex resume %s",
	},
	{
		Type:        AgentOpenCode,
		DisplayName: "OpenCode",
		CLIName:     "opencode",
		NewCmd:      "opencode",
		ResumeFmt:   "opencode -s %s",
	},
	{
		Type:        AgentPi,
		DisplayName: "pi",
		CLIName:     "pi",
		NewCmd:      "pi",
		ResumeFmt:   "pi --resume",
	},
	{
		Type:        AgentKiro,
		DisplayName: "Kiro",
		CLIName:     "kiro-cli",
		NewCmd:      "kiro-cli chat",
		ResumeFmt:   "kiro-cli chat --resume",
	},
	{
		Type:        AgentCursorAgent,
		DisplayName: "Cursor CLI",
		CLIName:     "cursor-agent",
		NewCmd:      "cursor-agent",
		ResumeFmt:   "cursor-agent --resume %s",
	},
	{
		Type:        AgentGemini,
		DisplayName: "Gemini",
		CLIName:     "gemini",
		NewCmd:      "gemini",
		ResumeFmt:   "gemini --resume %s",
	},
}

// AgentByType returns the AgentDef for the given type.
func AgentByType(t AgentType) (AgentDef, bool) {
	for _, def := range Agents {
		if def.Type == t {
			return def, true
		}
	}
	return AgentDef{}, false
}

// ParseAgentType maps a user-supplied name (type or CLI name,
// case-insensitive) to an AgentType.
func ParseAgentType(name string) (AgentType, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, def := range Agents {
		if n == string(def.Type) || n == def.CLIName {
			return def.Type, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAgent, name)
}

func (a AgentType) String() string {
	if def, ok := AgentByType(a); ok {
		return def.DisplayName
	}
	return string(a)
}

// GitStatus is the working-tree state of a session's project.
// GitUnknown covers "not a repository" and "check failed"; it is
// never reported as clean.
type GitStatus = gitinfo.Status

const (
	GitUnknown = gitinfo.Unknown
	GitClean   = gitinfo.Clean
	GitDirty   = gitinfo.Dirty
)

// Session is the canonical record every adapter produces.
type Session struct {
	Agent       AgentType
	ID          string
	ProjectName string
	ProjectPath string
	// Summaries is newest-first and capped by Options.MaxSummaries.
	Summaries []string
	// Timestamp is the last activity in Unix milliseconds; 0 means
	// unknown.
	Timestamp int64
	GitBranch string
	GitStatus GitStatus
	// Worktree names the linked work-tree the session ran in,
	// when it differs from ProjectPath's own checkout.
	Worktree string
}

// SessionKey identifies a session across all agents.
type SessionKey struct {
	Agent AgentType
	ID    string
}

// Key returns the (agent, id) identity of s.
func (s Session) Key() SessionKey {
	return SessionKey{Agent: s.Agent, ID: s.ID}
}

// FirstSummary returns the newest summary or "".
func (s Session) FirstSummary() string {
	if len(s.Summaries) == 0 {
		return ""
	}
	return s.Summaries[0]
}

// SearchText builds the string the fuzzy matcher runs against:
// project name and path, plus (when includeAll) the first
// maxSummaries summaries and the branch name.
func (s Session) SearchText(maxSummaries int, includeAll bool) string {
	var b strings.Builder
	b.WriteString(s.ProjectName)
	b.WriteByte(' ')
	b.WriteString(s.ProjectPath)
	if !includeAll {
		return b.String()
	}
	for i, sum := range s.Summaries {
		if i >= maxSummaries {
			break
		}
		b.WriteByte(' ')
		b.WriteString(sum)
	}
	if s.GitBranch != "" {
		b.WriteByte(' ')
		b.WriteString(s.GitBranch)
	}
	return b.String()
}

// RelativeTime renders the age of the session without "ago":
// now, 3m, 2h, 5d, 2w, 1mo.
func (s Session) RelativeTime(now time.Time) string {
	diff := (now.UnixMilli() - s.Timestamp) / 1000
	switch {
	case diff < 60:
		return "now"
	case diff < 3600:
		return fmt.Sprintf("%dm", diff/60)
	case diff < 86400:
		return fmt.Sprintf("%dh", diff/3600)
	case diff < 604800:
		return fmt.Sprintf("%dd", diff/86400)
	case diff < 2629800:
		return fmt.Sprintf("%dw", diff/604800)
	default:
		return fmt.Sprintf("%dmo", diff/2629800)
	}
}

// DisplayPath replaces a leading home directory with "~".
func (s Session) DisplayPath(home string) string {
	if home == "" || s.ProjectPath == "" {
		return s.ProjectPath
	}
	if s.ProjectPath == home {
		return "~"
	}
	if rest, ok := strings.CutPrefix(s.ProjectPath, home+"/"); ok {
		return "~/" + rest
	}
	return s.ProjectPath
}

// Options bounds what adapters collect per session.
type Options struct {
	MaxSummaries int // summaries kept per session
	SummaryLen   int // runes kept per summary
}

const (
	defaultMaxSummaries = 10
	defaultSummaryLen   = 100
)

// DefaultOptions returns the options used when the caller has no
// preference.
func DefaultOptions() Options {
	return Options{
		MaxSummaries: defaultMaxSummaries,
		SummaryLen:   defaultSummaryLen,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxSummaries <= 0 {
		o.MaxSummaries = defaultMaxSummaries
	}
	if o.SummaryLen <= 0 {
		o.SummaryLen = defaultSummaryLen
	}
	return o
}

// Adapter reads one agent's on-disk session store and knows how
// to erase a session from it.
//
// Scan returns an empty slice for a missing store. Malformed
// records are skipped; only a store that exists but cannot be
// opened or queried is reported as an error.
//
// Delete succeeds when the session is already absent.
type Adapter interface {
	Agent() AgentType
	Scan(ctx context.Context, opts Options) ([]Session, error)
	Delete(ctx context.Context, s Session) error
}

// NewRegistry builds one adapter per supported agent, in Agents
// order, rooted at the given locations.
func NewRegistry(loc config.Locations) []Adapter {
	return []Adapter{
		&ClaudeAdapter{Dir: loc.ClaudeDir},
		&CodexAdapter{Dir: loc.CodexDir},
		&OpenCodeAdapter{Dir: loc.OpenCodeDir},
		&PiAdapter{Dir: loc.PiSessionsDir},
		&KiroAdapter{Dir: loc.KiroDir},
		&CursorAdapter{Dir: loc.CursorDir},
		&GeminiAdapter{Dir: loc.GeminiDir},
	}
}
