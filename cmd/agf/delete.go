package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/subinium/agf/internal/parser"
)

func newDeleteCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <agent> <session-id>",
		Short: "Delete one session from its agent's store",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDelete(cmd.Context(), args[0], args[1], yes)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation prompt")
	return cmd
}

func (a *app) runDelete(
	ctx context.Context, agentName, id string, yes bool,
) error {
	agent, err := parser.ParseAgentType(agentName)
	if err != nil {
		return err
	}
	sessions, err := a.scan(ctx)
	if err != nil {
		return err
	}

	target, ok := findSession(sessions, parser.SessionKey{Agent: agent, ID: id})
	if !ok {
		return fmt.Errorf("no %s session with id %q", agent, id)
	}

	if !yes {
		msg := fmt.Sprintf("Delete %s session %s (%s)?",
			target.Agent, target.ID, projectLabel(target, a.cfg.Home))
		if !confirm(a.in, a.out, msg) {
			fmt.Fprintln(a.out, "Aborted.")
			return nil
		}
	}
	if err := a.engine.Delete(ctx, target); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted %s session %s\n", target.Agent, target.ID)
	return nil
}

func findSession(
	sessions []parser.Session, key parser.SessionKey,
) (parser.Session, bool) {
	for _, s := range sessions {
		if s.Key() == key {
			return s, true
		}
	}
	return parser.Session{}, false
}
