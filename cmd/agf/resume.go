package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/subinium/agf/internal/action"
	"github.com/subinium/agf/internal/fuzzy"
	"github.com/subinium/agf/internal/parser"
)

type resumeOptions struct {
	listOptions
	newAgent string
	flags    string
	cd       bool
}

func newResumeCmd(a *app) *cobra.Command {
	var opts resumeOptions
	cmd := &cobra.Command{
		Use:   "resume <query...>",
		Short: "Print the command that resumes the best matching session",
		Long: `Print the shell command that resumes the best match for the
query. The output is meant to be evaluated by the calling shell:

  eval "$(agf resume myproject)"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runResume(cmd.Context(), strings.Join(args, " "), opts)
		},
	}
	opts.register(cmd)
	f := cmd.Flags()
	f.StringVar(&opts.newAgent, "new", "",
		"Start a new session of this agent in the project instead")
	f.StringVar(&opts.flags, "flags", "",
		"Extra flags for the new session, parsed like a shell would")
	f.BoolVar(&opts.cd, "cd", false, "Only change to the project directory")
	return cmd
}

func (a *app) runResume(
	ctx context.Context, query string, opts resumeOptions,
) error {
	sessions, err := a.scan(ctx)
	if err != nil {
		return err
	}
	matches, err := a.filter(sessions, query, opts.listOptions)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return fmt.Errorf("no session matches %q", query)
	}
	cmd, err := resumeCommand(matches[0], opts)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, cmd)
	return nil
}

func resumeCommand(m fuzzy.Match, opts resumeOptions) (string, error) {
	switch {
	case opts.cd:
		return action.Command(m.Session, action.Cd, "", "")
	case opts.newAgent != "" || opts.flags != "":
		var agent parser.AgentType
		if opts.newAgent != "" {
			t, err := parser.ParseAgentType(opts.newAgent)
			if err != nil {
				return "", err
			}
			agent = t
		}
		return action.Command(m.Session, action.NewSession, agent, opts.flags)
	default:
		cmd, err := action.Command(m.Session, action.Resume, "", "")
		if errors.Is(err, action.ErrNoProjectPath) {
			return "", fmt.Errorf("%s session %s: %w", m.Session.Agent, m.Session.ID, err)
		}
		return cmd, err
	}
}
