package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/subinium/agf/internal/config"
	"github.com/subinium/agf/internal/parser"
	"github.com/subinium/agf/internal/sync"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = ""
)

const watcherDebounce = 500 * time.Millisecond

func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	root := newRootCmd(newApp(os.Stdout, os.Stdin))
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// app carries what every subcommand shares. The engine is built
// on first use so that commands like version never touch the
// filesystem.
type app struct {
	out io.Writer
	in  io.Reader
	now func() time.Time

	loadConfig func() (config.Config, error)
	registry   func(config.Locations) []parser.Adapter

	cfg    config.Config
	engine *sync.Engine
}

func newApp(out io.Writer, in io.Reader) *app {
	return &app{
		out:        out,
		in:         in,
		now:        time.Now,
		loadConfig: config.Load,
		registry:   parser.NewRegistry,
	}
}

func (a *app) ensureEngine() error {
	if a.engine != nil {
		return nil
	}
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.engine = sync.NewEngine(a.registry(cfg.Locations), cfg)
	return nil
}

// scan runs a full scan and logs adapters that failed.
func (a *app) scan(ctx context.Context) ([]parser.Session, error) {
	if err := a.ensureEngine(); err != nil {
		return nil, err
	}
	sessions, stats := a.engine.Scan(ctx)
	for _, w := range stats.Warnings {
		slog.Warn("partial scan", "detail", w)
	}
	return sessions, nil
}

func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(
		slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}),
	))
}

func newRootCmd(a *app) *cobra.Command {
	var (
		verbose bool
		opts    listOptions
	)
	root := &cobra.Command{
		Use:   "agf [query]",
		Short: "Find, resume and clean up AI coding agent sessions",
		Long: `agf finds the sessions that Claude Code, Codex, OpenCode, pi,
Kiro, Cursor CLI and Gemini CLI leave in your home directory,
ranks them against a fuzzy query, and prints the command that
resumes one. Running agf with no subcommand is the same as
"agf list".`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			setupLogging(cmd.ErrOrStderr(), verbose)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runList(cmd.Context(), args, opts)
		},
	}
	root.SetOut(a.out)
	root.SetIn(a.in)
	root.PersistentFlags().BoolVarP(
		&verbose, "verbose", "v", false, "Log debug output to stderr",
	)
	opts.register(root)

	root.AddCommand(
		newListCmd(a),
		newResumeCmd(a),
		newDeleteCmd(a),
		newPruneCmd(a),
		newWatchCmd(a),
		newVersionCmd(a),
	)
	return root
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			fmt.Fprintf(a.out, "agf %s (commit %s, built %s)\n",
				version, commit, buildDate)
		},
	}
}
