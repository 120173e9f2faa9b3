package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Locations holds the resolved on-disk root of every supported
// agent's session store. Adapters only ever read paths derived
// from these fields.
type Locations struct {
	ClaudeDir     string `yaml:"claude_dir"`
	CodexDir      string `yaml:"codex_dir"`
	OpenCodeDir   string `yaml:"opencode_dir"`
	PiSessionsDir string `yaml:"pi_sessions_dir"`
	KiroDir       string `yaml:"kiro_dir"`
	CursorDir     string `yaml:"cursor_dir"`
	GeminiDir     string `yaml:"gemini_dir"`
}

// Search scopes for fuzzy matching.
const (
	ScopeNamePath = "name_path"
	ScopeAll      = "all"
)

// Config holds all application configuration.
type Config struct {
	Home      string
	Locations Locations
	Path      string // config file path, may not exist

	MaxSessions        int           // 0 = unlimited
	MaxSummaries       int           // summaries kept per session
	SummarySearchCount int           // summaries included in search text
	SearchScope        string        // ScopeNamePath or ScopeAll
	SortBy             string        // "time", "name", "agent"
	AdapterTimeout     time.Duration // per-adapter scan bound
	GitTimeout         time.Duration // per-project git check bound
	DisabledAgents     []string
}

// fileConfig is the YAML layout of config.yaml. Pointer and
// zero-value fields are only applied when present.
type fileConfig struct {
	MaxSessions        *int      `yaml:"max_sessions"`
	MaxSummaries       *int      `yaml:"max_summaries"`
	SummarySearchCount *int      `yaml:"summary_search_count"`
	SearchScope        string    `yaml:"search_scope"`
	SortBy             string    `yaml:"sort_by"`
	AdapterTimeout     string    `yaml:"adapter_timeout"`
	GitTimeout         string    `yaml:"git_timeout"`
	DisabledAgents     []string  `yaml:"disabled_agents"`
	Dirs               Locations `yaml:"dirs"`
}

// DefaultLocations returns the well-known per-agent roots under
// home.
func DefaultLocations(home string) Locations {
	kiro := filepath.Join(home, ".local", "share", "kiro-cli")
	if runtime.GOOS == "darwin" {
		kiro = filepath.Join(
			home, "Library", "Application Support", "kiro-cli",
		)
	}
	return Locations{
		ClaudeDir:     filepath.Join(home, ".claude"),
		CodexDir:      filepath.Join(home, ".codex"),
		OpenCodeDir:   filepath.Join(home, ".local", "share", "opencode"),
		PiSessionsDir: filepath.Join(home, ".pi", "agent", "sessions"),
		KiroDir:       kiro,
		CursorDir:     filepath.Join(home, ".cursor"),
		GeminiDir:     filepath.Join(home, ".gemini"),
	}
}

// Default returns a Config with default values. Failing to
// resolve the home directory is fatal: no location can be
// computed without it.
func Default() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf(
			"determining home directory: %w", err,
		)
	}
	return defaultFor(home), nil
}

func defaultFor(home string) Config {
	return Config{
		Home:               home,
		Locations:          DefaultLocations(home),
		Path:               defaultConfigPath(home),
		MaxSummaries:       10,
		SummarySearchCount: 5,
		SearchScope:        ScopeNamePath,
		SortBy:             "time",
		AdapterTimeout:     10 * time.Second,
		GitTimeout:         2 * time.Second,
	}
}

func defaultConfigPath(home string) string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "agf", "config.yaml")
	}
	return filepath.Join(home, ".config", "agf", "config.yaml")
}

// Load builds a Config by layering: defaults < config file < env.
func Load() (Config, error) {
	cfg, err := Default()
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("AGF_CONFIG"); v != "" {
		cfg.Path = v
	}
	if err := cfg.loadFile(); err != nil {
		return cfg, fmt.Errorf("loading config file: %w", err)
	}
	cfg.loadEnv()
	return cfg, nil
}

func (c *Config) loadFile() error {
	data, err := os.ReadFile(c.Path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing %s: %w", c.Path, err)
	}
	return c.apply(file)
}

func (c *Config) apply(file fileConfig) error {
	if file.MaxSessions != nil {
		c.MaxSessions = max(*file.MaxSessions, 0)
	}
	if file.MaxSummaries != nil && *file.MaxSummaries > 0 {
		c.MaxSummaries = *file.MaxSummaries
	}
	if file.SummarySearchCount != nil && *file.SummarySearchCount >= 0 {
		c.SummarySearchCount = *file.SummarySearchCount
	}
	switch file.SearchScope {
	case "":
	case ScopeNamePath, ScopeAll:
		c.SearchScope = file.SearchScope
	default:
		return fmt.Errorf(
			"search_scope must be %q or %q, got %q",
			ScopeNamePath, ScopeAll, file.SearchScope,
		)
	}
	switch file.SortBy {
	case "":
	case "time", "name", "agent":
		c.SortBy = file.SortBy
	default:
		return fmt.Errorf("invalid sort_by %q", file.SortBy)
	}
	if err := parseDuration(
		file.AdapterTimeout, "adapter_timeout", &c.AdapterTimeout,
	); err != nil {
		return err
	}
	if err := parseDuration(
		file.GitTimeout, "git_timeout", &c.GitTimeout,
	); err != nil {
		return err
	}
	if len(file.DisabledAgents) > 0 {
		c.DisabledAgents = file.DisabledAgents
	}
	c.Locations = mergeLocations(c.Locations, file.Dirs)
	return nil
}

func parseDuration(s, key string, dst *time.Duration) error {
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got %s", key, s)
	}
	*dst = d
	return nil
}

// mergeLocations overlays the non-empty fields of over onto base.
func mergeLocations(base, over Locations) Locations {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&base.ClaudeDir, over.ClaudeDir)
	set(&base.CodexDir, over.CodexDir)
	set(&base.OpenCodeDir, over.OpenCodeDir)
	set(&base.PiSessionsDir, over.PiSessionsDir)
	set(&base.KiroDir, over.KiroDir)
	set(&base.CursorDir, over.CursorDir)
	set(&base.GeminiDir, over.GeminiDir)
	return base
}

func (c *Config) loadEnv() {
	c.Locations = mergeLocations(c.Locations, Locations{
		ClaudeDir:     os.Getenv("CLAUDE_DIR"),
		CodexDir:      os.Getenv("CODEX_HOME"),
		OpenCodeDir:   os.Getenv("OPENCODE_DIR"),
		PiSessionsDir: os.Getenv("PI_SESSIONS_DIR"),
		KiroDir:       os.Getenv("KIRO_DIR"),
		CursorDir:     os.Getenv("CURSOR_DIR"),
		GeminiDir:     os.Getenv("GEMINI_DIR"),
	})
}

// IncludeAll reports whether branch and summary text take part
// in fuzzy matching.
func (c *Config) IncludeAll() bool {
	return c.SearchScope == ScopeAll
}

// AgentEnabled reports whether name is absent from
// DisabledAgents.
func (c *Config) AgentEnabled(name string) bool {
	for _, d := range c.DisabledAgents {
		if d == name {
			return false
		}
	}
	return true
}

// Roots returns every configured root, in agent registry order.
func (l Locations) Roots() []string {
	return []string{
		l.ClaudeDir,
		l.CodexDir,
		l.OpenCodeDir,
		l.PiSessionsDir,
		l.KiroDir,
		l.CursorDir,
		l.GeminiDir,
	}
}
