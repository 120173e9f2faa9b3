package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/subinium/agf/internal/parser"
)

// PruneFilter selects sessions for bulk deletion. Zero fields
// match everything.
type PruneFilter struct {
	Project string // substring of project path or name
	Before  time.Time
	Agent   parser.AgentType
}

// HasFilters reports whether any field is set.
func (f PruneFilter) HasFilters() bool {
	return f.Project != "" || !f.Before.IsZero() || f.Agent != ""
}

// Matches reports whether s satisfies every set field. Sessions
// with an unknown timestamp never match Before.
func (f PruneFilter) Matches(s parser.Session) bool {
	if f.Agent != "" && s.Agent != f.Agent {
		return false
	}
	if f.Project != "" &&
		!strings.Contains(s.ProjectPath, f.Project) &&
		!strings.Contains(s.ProjectName, f.Project) {
		return false
	}
	if !f.Before.IsZero() &&
		(s.Timestamp <= 0 || s.Timestamp >= f.Before.UnixMilli()) {
		return false
	}
	return true
}

// PruneConfig holds parsed CLI options for the prune command.
type PruneConfig struct {
	Filter PruneFilter
	DryRun bool
	Yes    bool
}

type pruneFlags struct {
	project string
	before  string
	agent   string
	dryRun  bool
	yes     bool
}

func (f pruneFlags) config() (PruneConfig, error) {
	cfg := PruneConfig{
		Filter: PruneFilter{Project: f.project},
		DryRun: f.dryRun,
		Yes:    f.yes,
	}
	if f.before != "" {
		t, err := time.ParseInLocation("2006-01-02", f.before, time.Local)
		if err != nil {
			return PruneConfig{}, fmt.Errorf(
				"invalid --before %q (want YYYY-MM-DD)", f.before,
			)
		}
		cfg.Filter.Before = t
	}
	if f.agent != "" {
		agent, err := parser.ParseAgentType(f.agent)
		if err != nil {
			return PruneConfig{}, err
		}
		cfg.Filter.Agent = agent
	}
	if !cfg.Filter.HasFilters() {
		return PruneConfig{}, errors.New(
			"at least one filter is required\n" +
				"use --project, --before, or --agent",
		)
	}
	return cfg, nil
}

func newPruneCmd(a *app) *cobra.Command {
	var flags pruneFlags
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete sessions matching filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.config()
			if err != nil {
				return err
			}
			sessions, err := a.scan(cmd.Context())
			if err != nil {
				return err
			}
			p := &Pruner{Deleter: a.engine, Out: a.out, In: a.in}
			return p.Prune(cmd.Context(), sessions, cfg)
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.project, "project", "",
		"Sessions whose project contains this substring")
	f.StringVar(&flags.before, "before", "",
		"Sessions last active before this date (YYYY-MM-DD)")
	f.StringVar(&flags.agent, "agent", "", "Sessions of this agent")
	f.BoolVar(&flags.dryRun, "dry-run", false,
		"Show what would be pruned without deleting")
	f.BoolVar(&flags.yes, "yes", false, "Skip confirmation prompt")
	return cmd
}

// batchDeleter deletes sessions and reports one error per input.
type batchDeleter interface {
	DeleteBatch(ctx context.Context, sessions []parser.Session) []error
}

// Pruner executes the prune workflow over scanned sessions.
type Pruner struct {
	Deleter batchDeleter
	Out     io.Writer
	In      io.Reader
}

// Prune finds matching sessions and deletes them.
func (p *Pruner) Prune(
	ctx context.Context, sessions []parser.Session, cfg PruneConfig,
) error {
	if !cfg.Filter.HasFilters() {
		return errors.New(
			"at least one filter is required " +
				"(refusing to prune all sessions)",
		)
	}

	var candidates []parser.Session
	for _, s := range sessions {
		if cfg.Filter.Matches(s) {
			candidates = append(candidates, s)
		}
	}

	if len(candidates) == 0 {
		fmt.Fprintln(p.Out,
			"No sessions match the given filters.")
		return nil
	}

	writeSummary(p.Out, candidates)

	if cfg.DryRun {
		fmt.Fprintln(p.Out, "\nDry run: no changes made.")
		return nil
	}

	if !cfg.Yes {
		msg := fmt.Sprintf(
			"\nDelete %d sessions?", len(candidates),
		)
		if !confirm(p.In, p.Out, msg) {
			fmt.Fprintln(p.Out, "Aborted.")
			return nil
		}
	}

	errs := p.Deleter.DeleteBatch(ctx, candidates)
	failed := 0
	for i, err := range errs {
		if err != nil {
			failed++
			slog.Warn("prune: delete failed",
				"agent", candidates[i].Agent,
				"id", candidates[i].ID,
				"err", err)
		}
	}

	fmt.Fprintf(p.Out, "\nDeleted %d sessions", len(candidates)-failed)
	if failed > 0 {
		fmt.Fprintf(p.Out, ", %d failed", failed)
	}
	fmt.Fprintln(p.Out)
	if failed > 0 {
		return fmt.Errorf("%d of %d deletions failed", failed, len(candidates))
	}
	return nil
}

func confirm(r io.Reader, w io.Writer, msg string) bool {
	fmt.Fprintf(w, "%s [y/N] ", msg)
	scanner := bufio.NewScanner(r)
	scanner.Scan()
	ans := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return ans == "y" || ans == "yes"
}

func writeSummary(w io.Writer, sessions []parser.Session) {
	byAgent := map[parser.AgentType]int{}
	byProject := map[string]int{}
	var projects []string
	for _, s := range sessions {
		byAgent[s.Agent]++
		proj := s.ProjectPath
		if proj == "" {
			proj = s.ProjectName
		}
		if byProject[proj] == 0 {
			projects = append(projects, proj)
		}
		byProject[proj]++
	}

	sort.Strings(projects)

	fmt.Fprintf(w, "Found %d sessions\n", len(sessions))
	fmt.Fprintln(w, "\nBy agent:")
	for _, def := range parser.Agents {
		if n := byAgent[def.Type]; n > 0 {
			fmt.Fprintf(w, "  %-40s %d\n", string(def.Type), n)
		}
	}
	fmt.Fprintln(w, "\nBy project:")
	for _, proj := range projects {
		fmt.Fprintf(w, "  %-40s %d\n", proj, byProject[proj])
	}
}
