package git

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// StateDetector derives the in-progress operation state of a repository
// from the marker files git leaves in its metadata directory.
type StateDetector struct {
	runner  Runner
	root    string
	gitDir  string
	commits *CommitCache
	timeout time.Duration
	logger  *slog.Logger
}

// NewStateDetector returns a detector for the work tree at root whose
// metadata lives in gitDir.
func NewStateDetector(r Runner, root, gitDir string) *StateDetector {
	return &StateDetector{
		runner:  r,
		root:    root,
		gitDir:  gitDir,
		commits: NewCommitCache(0),
		timeout: DefaultTimeouts().Quick,
		logger:  slog.New(slog.DiscardHandler),
	}
}

// opMarkers records which sequencer markers exist.
type opMarkers struct {
	merging       bool
	rebasing      bool
	cherryPicking bool
	reverting     bool
	rebaseDir     string // rebase-merge or rebase-apply, when present
}

func (m opMarkers) any() bool {
	return m.merging || m.rebasing || m.cherryPicking || m.reverting
}

func readMarkers(gitDir string) opMarkers {
	m := opMarkers{
		merging:       exists(filepath.Join(gitDir, "MERGE_HEAD")),
		cherryPicking: exists(filepath.Join(gitDir, "CHERRY_PICK_HEAD")),
		reverting:     exists(filepath.Join(gitDir, "REVERT_HEAD")),
	}
	if dir := filepath.Join(gitDir, "rebase-merge"); isDir(dir) {
		m.rebaseDir = dir
	} else if dir := filepath.Join(gitDir, "rebase-apply"); isDir(dir) && !exists(filepath.Join(dir, "applying")) {
		// rebase-apply/applying means git am, not rebase.
		m.rebaseDir = dir
	}
	// REBASE_HEAD alone is not a marker: git can leave it behind after
	// a finished rebase.
	m.rebasing = m.rebaseDir != ""
	return m
}

// Detect reports merge/rebase/cherry-pick/revert progress and the conflicted
// paths. With no marker present it returns idle without running git. Probe
// failures leave the affected fields empty instead of failing the call.
func (d *StateDetector) Detect(ctx context.Context) (*OperationState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m := readMarkers(d.gitDir)
	state := &OperationState{
		IsMerging:       m.merging,
		IsRebasing:      m.rebasing,
		IsCherryPicking: m.cherryPicking,
		IsReverting:     m.reverting,
		ConflictPaths:   []string{},
	}
	if !m.any() {
		return state, nil
	}

	if paths, err := d.conflictPaths(ctx); err != nil {
		d.logger.Warn("conflict probe failed", "repo", d.root, "err", err)
	} else {
		state.ConflictPaths = paths
		state.HasConflicts = len(paths) > 0
	}

	switch {
	case m.rebasing:
		d.resolveRebase(ctx, m, state)
	case m.merging:
		d.resolveAgainstHead(ctx, "MERGE_HEAD", state)
		if b := mergeBranchFromMsg(d.readGitFile("MERGE_MSG")); b != "" {
			state.TheirsBranch = b
		}
	case m.cherryPicking:
		d.resolveAgainstHead(ctx, "CHERRY_PICK_HEAD", state)
	case m.reverting:
		d.resolveAgainstHead(ctx, "REVERT_HEAD", state)
	}
	return state, nil
}

func (d *StateDetector) conflictPaths(ctx context.Context) ([]string, error) {
	out, err := d.runner.Run(ctx, Invocation{
		Dir:     d.root,
		Args:    []string{"status", "--porcelain", "--untracked-files=no"},
		Env:     readEnv,
		Timeout: d.timeout,
	})
	if err != nil {
		return nil, err
	}
	return ParseConflictPaths(string(out.Stdout)), nil
}

// resolveAgainstHead fills ours from HEAD and theirs from the named
// *_HEAD marker file.
func (d *StateDetector) resolveAgainstHead(ctx context.Context, marker string, state *OperationState) {
	state.OursCommit = d.shortID(ctx, "HEAD")
	state.OursBranch = d.currentBranch(ctx)
	if sha := firstLine(d.readGitFile(marker)); sha != "" {
		state.TheirsCommit = d.shortID(ctx, sha)
		state.TheirsBranch = d.nameRev(ctx, sha)
	}
}

// resolveRebase fills ours from the onto commit and theirs from the commit
// being replayed.
func (d *StateDetector) resolveRebase(ctx context.Context, m opMarkers, state *OperationState) {
	if m.rebaseDir != "" {
		if onto := firstLine(readFile(filepath.Join(m.rebaseDir, "onto"))); onto != "" {
			state.OursCommit = d.shortID(ctx, onto)
			state.OursBranch = d.nameRev(ctx, onto)
		}
		state.TheirsBranch = branchFromHeadName(readFile(filepath.Join(m.rebaseDir, "head-name")))
	}
	sha := ""
	if m.rebaseDir != "" {
		sha = firstLine(readFile(filepath.Join(m.rebaseDir, "stopped-sha")))
	}
	if sha == "" {
		sha = firstLine(d.readGitFile("REBASE_HEAD"))
	}
	if sha != "" {
		state.TheirsCommit = d.shortID(ctx, sha)
	}
}

func (d *StateDetector) shortID(ctx context.Context, rev string) string {
	short, err := d.commits.ShortID(ctx, d.runner, d.root, rev, d.timeout)
	if err != nil {
		d.logger.Debug("short id unresolved", "rev", rev, "err", err)
		return ""
	}
	return short
}

func (d *StateDetector) currentBranch(ctx context.Context) string {
	out, err := d.runner.Run(ctx, Invocation{
		Dir:     d.root,
		Args:    []string{"symbolic-ref", "--short", "-q", "HEAD"},
		Env:     readEnv,
		Timeout: d.timeout,
	})
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out.Stdout))
}

// nameRev names a commit relative to the nearest ref, dropping ~N/^N
// suffixes so only the branch or tag name remains.
func (d *StateDetector) nameRev(ctx context.Context, sha string) string {
	out, err := d.runner.Run(ctx, Invocation{
		Dir:     d.root,
		Args:    []string{"name-rev", "--name-only", "--no-undefined", sha},
		Env:     readEnv,
		Timeout: d.timeout,
	})
	if err != nil {
		return ""
	}
	name := strings.TrimSpace(string(out.Stdout))
	if i := strings.IndexAny(name, "~^"); i >= 0 {
		name = name[:i]
	}
	name = strings.TrimPrefix(name, "tags/")
	return strings.TrimPrefix(name, "remotes/")
}

func (d *StateDetector) readGitFile(name string) string {
	return readFile(filepath.Join(d.gitDir, name))
}

var mergeMsgBranch = regexp.MustCompile(`^Merge (?:remote-tracking )?branch '([^']+)'`)

// mergeBranchFromMsg extracts the merged branch from a MERGE_MSG body.
func mergeBranchFromMsg(msg string) string {
	m := mergeMsgBranch.FindStringSubmatch(firstLine(msg))
	if m == nil {
		return ""
	}
	return m[1]
}

// branchFromHeadName turns a rebase head-name file into a branch name.
// A detached rebase records "detached HEAD", which yields "".
func branchFromHeadName(raw string) string {
	name := firstLine(raw)
	if !strings.HasPrefix(name, "refs/") {
		return ""
	}
	return strings.TrimPrefix(name, "refs/heads/")
}

// ── file helpers ────────────────────────────────────────────────────────────

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func readFile(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(b)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}
