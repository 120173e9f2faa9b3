package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/subinium/agf/internal/config"
	"github.com/subinium/agf/internal/fuzzy"
	"github.com/subinium/agf/internal/parser"
)

// listOptions are the filters shared by list, watch and the root
// command.
type listOptions struct {
	all   bool
	agent string
	limit int
}

func (o *listOptions) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.BoolVarP(&o.all, "all", "a", false,
		"Match against summaries and branch too")
	f.StringVar(&o.agent, "agent", "", "Only show sessions of this agent")
	f.IntVarP(&o.limit, "limit", "n", 0, "Show at most N sessions")
}

func newListCmd(a *app) *cobra.Command {
	var opts listOptions
	cmd := &cobra.Command{
		Use:   "list [query]",
		Short: "List sessions, ranked against an optional fuzzy query",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runList(cmd.Context(), args, opts)
		},
	}
	opts.register(cmd)
	return cmd
}

func (a *app) runList(
	ctx context.Context, args []string, opts listOptions,
) error {
	sessions, err := a.scan(ctx)
	if err != nil {
		return err
	}
	matches, err := a.filter(sessions, strings.Join(args, " "), opts)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		fmt.Fprintln(a.out, "No sessions found.")
		return nil
	}
	writeTable(a.out, matches, a.cfg.Home, a.now())
	return nil
}

// filter narrows sessions by agent, ranks them against query and
// applies the limit. Without a query the configured sort order is
// used.
func (a *app) filter(
	sessions []parser.Session, query string, opts listOptions,
) ([]fuzzy.Match, error) {
	if opts.agent != "" {
		agent, err := parser.ParseAgentType(opts.agent)
		if err != nil {
			return nil, err
		}
		sessions = slices.DeleteFunc(slices.Clone(sessions),
			func(s parser.Session) bool { return s.Agent != agent })
	}
	if strings.TrimSpace(query) == "" {
		sessions = sortSessions(sessions, a.cfg.SortBy)
	}

	scope := config.ScopeNamePath
	if opts.all || a.cfg.IncludeAll() {
		scope = config.ScopeAll
	}
	matches := fuzzy.Rank(sessions, query, fuzzy.Options{
		MaxSummaries: a.cfg.SummarySearchCount,
		Scope:        scope,
	})
	if opts.limit > 0 && len(matches) > opts.limit {
		matches = matches[:opts.limit]
	}
	return matches, nil
}

// sortSessions orders a newest-first list by name or agent,
// keeping recency within each group.
func sortSessions(sessions []parser.Session, by string) []parser.Session {
	out := slices.Clone(sessions)
	switch by {
	case "name":
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].ProjectName) <
				strings.ToLower(out[j].ProjectName)
		})
	case "agent":
		order := make(map[parser.AgentType]int, len(parser.Agents))
		for i, def := range parser.Agents {
			order[def.Type] = i
		}
		sort.SliceStable(out, func(i, j int) bool {
			return order[out[i].Agent] < order[out[j].Agent]
		})
	}
	return out
}

func writeTable(w io.Writer, matches []fuzzy.Match, home string, now time.Time) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "AGENT\tAGE\tPROJECT\tBRANCH\tSUMMARY")
	for _, m := range matches {
		s := m.Session
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			s.Agent,
			s.RelativeTime(now),
			projectLabel(s, home),
			branchLabel(s),
			s.FirstSummary(),
		)
	}
	tw.Flush()
}

func projectLabel(s parser.Session, home string) string {
	if p := s.DisplayPath(home); p != "" {
		return p
	}
	return s.ProjectName
}

func branchLabel(s parser.Session) string {
	b := s.GitBranch
	if s.Worktree != "" {
		b += " [" + s.Worktree + "]"
	}
	if s.GitStatus == parser.GitDirty {
		b += "*"
	}
	if b == "" {
		return "-"
	}
	return b
}
