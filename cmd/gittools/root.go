package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/Akashdeep-Patra/git-tools/internal/app"
	"github.com/Akashdeep-Patra/git-tools/internal/config"
	"github.com/Akashdeep-Patra/git-tools/internal/logging"
)

// skipApp marks commands that run without configuration or git.
const skipApp = "gittools/skip-app"

// cli carries the global flags and the App shared by all subcommands.
type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	repo       string
	configPath string
	logLevel   string
	pretty     bool
	trace      bool

	app       *app.App
	finalizer []func(context.Context) error
}

func (c *cli) buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gittools",
		Short: "Git operation engine for editor front ends",
		Long: `gittools drives the git binary on behalf of an editor or review UI.

It reports status and structured diffs, stages single lines, detects
merges, rebases and cherry-picks in progress, reads and resolves conflicts,
and scripts interactive rebases. Output is JSON unless --pretty is set.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		Version:           version,
		PersistentPreRunE: c.setup,
	}
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"gittools %s\n  commit:  %s\n  built:   %s\n  go:      %s\n  os/arch: %s/%s\n",
		version, commit, date, runtime.Version(), runtime.GOOS, runtime.GOARCH,
	))

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&c.repo, "repo", "C", "", "Repository path (defaults to active_repo)")
	pf.StringVar(&c.configPath, "config", "", "Config file (defaults to ~/.config/gittools/config.yaml)")
	pf.BoolVar(&c.pretty, "pretty", false, "Render human-readable output instead of JSON")
	pf.BoolVar(&c.trace, "trace", false, "Write a span per git invocation to stderr")
	pf.StringVar(&c.logLevel, "log-level", "", "Override log.level (debug, info, warn, error)")

	rootCmd.AddCommand(
		c.buildStatusCmd(),
		c.buildDiffCmd(),
		c.buildShowCmd(),
		c.buildContentsCmd(),
		c.buildStageCmd(),
		c.buildUnstageCmd(),
		c.buildLineCmd("stage-line", "Stage a single changed line", false),
		c.buildLineCmd("unstage-line", "Unstage a single staged line", true),
		c.buildDiscardCmd(),
		c.buildCommitCmd(),
		c.buildLogCmd(),
		c.buildBranchCmd(),
		c.buildMergeCmd(),
		c.buildFetchCmd(),
		c.buildPullCmd(),
		c.buildPushCmd(),
		c.buildStashCmd(),
		c.buildStateCmd(),
		c.buildConflictsCmd(),
		c.buildRebaseCmd(),
		c.buildRunCmd(),
		c.buildDiagnosticsCmd(),
		c.buildReposCmd(),
		c.buildWatchCmd(),
		buildVersionCmd(),
		buildCompletionCmd(),
	)
	return rootCmd
}

// setup loads configuration and builds the App before any subcommand.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "help" {
		return nil
	}
	for p := cmd; p != nil; p = p.Parent() {
		if _, ok := p.Annotations[skipApp]; ok {
			return nil
		}
	}

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}

	logOpts := logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File}
	if cfg.Log.File == "" {
		logOpts.Writer = c.stderr
	}
	logger, closer, err := logging.New(logOpts)
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	c.finalizer = append(c.finalizer, func(context.Context) error { return closer.Close() })

	if c.trace || cfg.Trace {
		shutdown, err := app.EnableTracing(c.stderr)
		if err != nil {
			return fmt.Errorf("enabling tracing: %w", err)
		}
		c.finalizer = append(c.finalizer, shutdown)
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	c.app = a
	c.finalizer = append(c.finalizer, func(context.Context) error { a.Close(); return nil })
	return nil
}

// shutdown runs finalizers in reverse order.
func (c *cli) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(c.finalizer) - 1; i >= 0; i-- {
		_ = c.finalizer[i](ctx)
	}
	c.finalizer = nil
}

func (c *cli) dispatch(cmd *cobra.Command, op app.Operation) error {
	res, err := c.app.Dispatch(cmd.Context(), c.repo, op)
	if err != nil {
		return err
	}
	return c.emit(res)
}

// Sequencer steps that did not succeed. The result has already been
// printed; these only select the exit code.
var (
	errStopped    = errors.New("operation stopped on conflicts")
	errStepFailed = errors.New("operation failed")
)
