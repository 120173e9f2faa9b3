package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/subinium/agf/internal/sync"
)

func newWatchCmd(a *app) *cobra.Command {
	var opts listOptions
	cmd := &cobra.Command{
		Use:   "watch [query]",
		Short: "Reprint the session list whenever an agent store changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWatch(cmd.Context(), args, opts)
		},
	}
	opts.register(cmd)
	return cmd
}

func (a *app) runWatch(
	ctx context.Context, args []string, opts listOptions,
) error {
	if err := a.refresh(ctx, args, opts); err != nil {
		return err
	}

	changed := make(chan struct{}, 1)
	w, err := sync.NewWatcher(watcherDebounce, func([]string) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return fmt.Errorf("starting file watcher: %w", err)
	}
	n := w.WatchRoots(a.cfg.Locations.Roots())
	slog.Debug("watching agent stores", "dirs", n)
	w.Start()
	defer w.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changed:
			fmt.Fprintln(a.out)
			if err := a.refresh(ctx, args, opts); err != nil {
				return err
			}
		}
	}
}

// refresh prints the list followed by a one-line scan footer.
func (a *app) refresh(
	ctx context.Context, args []string, opts listOptions,
) error {
	if err := a.runList(ctx, args, opts); err != nil {
		return err
	}
	writeScanFooter(a.out, a.engine.LastScan(), a.engine.LastScanStats())
	return nil
}

func writeScanFooter(w io.Writer, at time.Time, stats sync.ScanStats) {
	fmt.Fprintf(w, "Updated %s: %d sessions in %d projects",
		at.Format("15:04:05"), stats.TotalSessions, stats.Projects)
	if !stats.OK() {
		names := make([]string, len(stats.Failed))
		for i, agent := range stats.Failed {
			names[i] = agent.String()
		}
		fmt.Fprintf(w, " (failed: %s)", strings.Join(names, ", "))
	}
	fmt.Fprintln(w)
}
