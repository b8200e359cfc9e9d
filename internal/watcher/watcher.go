// Package watcher turns changes to a repository's git directory into change
// events. Only the handful of paths inside .git that move on meaningful git
// operations are watched, never the working tree, so large repositories do
// not exhaust inotify/kqueue watches.
//
// Watched paths:
//   - .git (HEAD, index, MERGE_HEAD, REBASE_HEAD, packed-refs, ...)
//   - .git/refs, refs/heads, refs/tags
//   - .git/refs/remotes and one directory per remote
//   - .git/rebase-merge and .git/rebase-apply while a rebase runs
package watcher

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Akashdeep-Patra/git-tools/internal/events"
)

// Publisher receives debounced changes.
type Publisher interface {
	Publish(events.Change)
}

// Options configure a Watcher.
type Options struct {
	// Repo is the work tree root reported in each change.
	Repo string
	// GitDir is the absolute git directory (a worktree's .git may be a file
	// pointing elsewhere).
	GitDir string
	// Debounce coalesces bursts; up to half of it again is added as jitter
	// so several watchers on one repository do not refresh in lockstep.
	Debounce time.Duration
	Logger   *slog.Logger
}

// Watcher watches one git directory.
type Watcher struct {
	opts Options
	fs   *fsnotify.Watcher
	log  *slog.Logger
}

// New starts watching opts.GitDir. Call Run to deliver changes.
func New(opts Options) (*Watcher, error) {
	if opts.GitDir == "" {
		return nil, errors.New("watcher: git directory is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	wt := &Watcher{opts: opts, fs: w, log: opts.Logger.With("component", "watcher", "repo", opts.Repo)}

	added := 0
	for _, t := range targets(opts.GitDir) {
		if err := w.Add(t); err != nil {
			// Some directories appear only later (refs/remotes before the
			// first fetch).
			wt.log.Debug("watch skipped", "path", t, "error", err)
			continue
		}
		added++
	}
	if added == 0 {
		_ = w.Close()
		return nil, errors.New("watcher: nothing to watch in " + opts.GitDir)
	}
	return wt, nil
}

func targets(gitDir string) []string {
	out := []string{
		gitDir,
		filepath.Join(gitDir, "refs"),
		filepath.Join(gitDir, "refs", "heads"),
		filepath.Join(gitDir, "refs", "tags"),
	}
	remotes := filepath.Join(gitDir, "refs", "remotes")
	if info, err := os.Stat(remotes); err == nil && info.IsDir() {
		out = append(out, remotes)
		if entries, err := os.ReadDir(remotes); err == nil {
			for _, e := range entries {
				if e.IsDir() {
					out = append(out, filepath.Join(remotes, e.Name()))
				}
			}
		}
	}
	for _, dir := range []string{"rebase-merge", "rebase-apply"} {
		p := filepath.Join(gitDir, dir)
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			out = append(out, p)
		}
	}
	return out
}

// Run delivers debounced changes to pub until ctx is done or the underlying
// watcher fails, then releases it.
func (w *Watcher) Run(ctx context.Context, pub Publisher) error {
	defer w.fs.Close()

	debounce := w.opts.Debounce
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if shouldIgnore(ev.Name) {
				continue
			}
			w.follow(ev)
			d := debounce + jitter(debounce)
			if timer == nil {
				timer = time.NewTimer(d)
			} else {
				timer.Reset(d)
			}
		case <-timerChan(timer):
			timer = nil
			pub.Publish(events.Change{Repo: w.opts.Repo, Source: events.SourceWatcher})
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", "error", err)
		case <-ctx.Done():
			return nil
		}
	}
}

// follow adds directories created under the git dir that carry rebase
// progress or remote refs.
func (w *Watcher) follow(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) {
		return
	}
	base := filepath.Base(ev.Name)
	parent := filepath.Base(filepath.Dir(ev.Name))
	if base != "rebase-merge" && base != "rebase-apply" && base != "remotes" && parent != "remotes" {
		return
	}
	if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
		if err := w.fs.Add(ev.Name); err != nil {
			w.log.Debug("watch skipped", "path", ev.Name, "error", err)
		}
	}
}

func jitter(debounce time.Duration) time.Duration {
	r := int64(debounce / 2)
	if r <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(r))
}

func timerChan(t *time.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

// shouldIgnore reports events that must not trigger a refresh.
func shouldIgnore(path string) bool {
	base := filepath.Base(path)

	// Lock files are held mid-operation; refreshing then would race git.
	if strings.HasSuffix(base, ".lock") {
		return true
	}
	if strings.HasSuffix(base, ".swp") || strings.HasSuffix(base, ".swo") ||
		strings.HasSuffix(base, "~") || strings.HasPrefix(base, ".#") {
		return true
	}
	switch base {
	case "COMMIT_EDITMSG", "gc.log", "git-rebase-todo.backup":
		return true
	}
	return strings.HasPrefix(base, "fsmonitor")
}
