// Package app wires configuration, logging and the git engine together and
// dispatches front-end operations to the right repository.
package app

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Akashdeep-Patra/git-tools/internal/config"
	"github.com/Akashdeep-Patra/git-tools/internal/encoding"
	"github.com/Akashdeep-Patra/git-tools/internal/events"
	"github.com/Akashdeep-Patra/git-tools/internal/git"
	"github.com/Akashdeep-Patra/git-tools/internal/watcher"
	"github.com/Akashdeep-Patra/git-tools/internal/workspace"
)

// App is the process-wide context shared by every command. Services are
// opened once per repository root and reused.
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	runner   git.Runner
	binary   string
	bare     bareRunner
	decoder  *encoding.Decoder
	filter   *workspace.Exclusions
	resolver *workspace.Resolver
	events   *events.Broadcaster
	commits  *git.CommitCache

	mu       sync.Mutex
	services map[string]*git.CLIService
}

// bareRunner runs git outside any repository.
type bareRunner interface {
	RunBare(ctx context.Context, timeout time.Duration, args ...string) (*git.CommandOutcome, error)
}

// Option customises New.
type Option func(*App)

// WithRunner replaces the git executor. The runner must also implement
// RunBare for Diagnostics to report a version.
func WithRunner(r git.Runner) Option {
	return func(a *App) {
		a.runner = r
		if b, ok := r.(bareRunner); ok {
			a.bare = b
		}
	}
}

// New builds an App from cfg. The git binary is resolved here so a missing
// git fails before any command runs.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	a := &App{
		cfg:      cfg,
		logger:   logger,
		resolver: workspace.NewResolver(cfg.ActiveRepo),
		events:   events.NewBroadcaster(),
		commits:  git.NewCommitCache(cfg.CacheTTL),
		services: make(map[string]*git.CLIService),
	}
	for _, opt := range opts {
		opt(a)
	}

	var err error
	if a.decoder, err = encoding.New(encodingRules(cfg.FileEncodings)); err != nil {
		return nil, err
	}
	if a.filter, err = workspace.NewExclusions(cfg.ExcludedFiles); err != nil {
		return nil, err
	}
	if a.runner == nil {
		bin, err := git.ResolveBinary(cfg.GitBinary)
		if err != nil {
			return nil, err
		}
		exec := git.NewExecutor(bin, logger)
		a.runner, a.bare, a.binary = exec, exec, bin
	}
	return a, nil
}

func encodingRules(in []config.EncodingRule) []encoding.Rule {
	out := make([]encoding.Rule, len(in))
	for i, r := range in {
		out[i] = encoding.Rule{Pattern: r.Pattern, Encoding: r.Encoding}
	}
	return out
}

// Config returns the loaded configuration.
func (a *App) Config() *config.Config { return a.cfg }

// Logger returns the process logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// Events returns the change broadcaster every service notifies.
func (a *App) Events() *events.Broadcaster { return a.events }

// Service opens (or reuses) the engine for the repository named by
// explicit, falling back to the active repository.
func (a *App) Service(ctx context.Context, explicit string) (*git.CLIService, error) {
	dir, err := a.resolver.Resolve(explicit)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	svc, ok := a.services[dir]
	a.mu.Unlock()
	if ok {
		return svc, nil
	}

	svc, err = git.NewCLIService(ctx, dir, git.Options{
		Runner: a.runner,
		Timeouts: git.Timeouts{
			Quick:   a.cfg.Timeouts.Quick,
			Local:   a.cfg.Timeouts.Local,
			Network: a.cfg.Timeouts.Network,
		},
		Filter:   a.filter,
		Decoder:  a.decoder,
		Notifier: a.events,
		Commits:  a.commits,
		Logger:   a.logger,
	})
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if existing, ok := a.services[svc.RepoRoot()]; ok {
		a.services[dir] = existing
		return existing, nil
	}
	a.services[dir] = svc
	a.services[svc.RepoRoot()] = svc
	a.logger.Debug("repository opened", "root", svc.RepoRoot(), "git_dir", svc.GitDir())
	return svc, nil
}

// Diagnostics reports the git version and binary, plus the repository
// when one resolves. A repository that cannot be opened is not an error
// here; the version probe is.
func (a *App) Diagnostics(ctx context.Context, explicit string) (*git.Diagnostics, error) {
	d := &git.Diagnostics{GitBinary: a.binary}
	if a.bare != nil {
		out, err := a.bare.RunBare(ctx, a.cfg.Timeouts.Quick, "--version")
		if err != nil {
			return nil, err
		}
		d.GitVersion = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(string(out.Stdout)), "git version"))
	}
	if svc, err := a.Service(ctx, explicit); err == nil {
		d.RepoRoot, d.GitDir = svc.RepoRoot(), svc.GitDir()
	} else {
		a.logger.Debug("diagnostics without repository", "error", err)
	}
	return d, nil
}

// Watch publishes a change for every debounced update of the repository's
// git directory until ctx is done. Engine notifications from this process
// arrive on the same broadcaster.
func (a *App) Watch(ctx context.Context, explicit string) error {
	svc, err := a.Service(ctx, explicit)
	if err != nil {
		return err
	}
	w, err := watcher.New(watcher.Options{
		Repo:     svc.RepoRoot(),
		GitDir:   svc.GitDir(),
		Debounce: a.cfg.WatchDebounce,
		Logger:   a.logger,
	})
	if err != nil {
		return err
	}
	return w.Run(ctx, a.events)
}

// Close ends every event subscription.
func (a *App) Close() {
	a.events.Close()
}
