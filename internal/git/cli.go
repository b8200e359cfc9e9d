package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Options wires the collaborators a CLIService needs. Zero fields get
// harmless defaults: no exclusions, lossy UTF-8, no notifications.
type Options struct {
	Runner   Runner
	Timeouts Timeouts
	Filter   PathFilter
	Decoder  Decoder
	Notifier ChangeNotifier
	Commits  *CommitCache
	Logger   *slog.Logger
}

// CLIService implements Service by shelling out to the git CLI.
// Optimised for large monorepos:
//   - GIT_OPTIONAL_LOCKS=0 on all read commands (no lock contention)
//   - metadata markers are read from disk instead of spawning git
//   - every command is bounded by a timeout class
//   - stdout/stderr separated so stderr noise doesn't corrupt output
type CLIService struct {
	root   string // Absolute path to the repo root.
	gitDir string // Absolute path to the (per-worktree) git directory.

	runner   Runner
	timeouts Timeouts
	filter   PathFilter
	decoder  Decoder
	notifier ChangeNotifier
	commits  *CommitCache
	logger   *slog.Logger
	detector *StateDetector
}

// Compile-time check that CLIService implements Service.
var _ Service = (*CLIService)(nil)

// NewCLIService opens the Git repository containing path.
func NewCLIService(ctx context.Context, path string, opts Options) (*CLIService, error) {
	if opts.Runner == nil {
		return nil, errors.New("git: nil runner")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	s := &CLIService{
		runner:   opts.Runner,
		timeouts: opts.Timeouts,
		filter:   opts.Filter,
		decoder:  opts.Decoder,
		notifier: opts.Notifier,
		commits:  opts.Commits,
		logger:   opts.Logger,
	}
	s.applyDefaults()

	out, err := s.runner.Run(ctx, Invocation{
		Dir:     abs,
		Args:    []string{"rev-parse", "--show-toplevel", "--absolute-git-dir"},
		Env:     readEnv,
		Timeout: s.timeouts.Quick,
	})
	if err != nil {
		return nil, err
	}
	lines := strings.Split(strings.TrimSpace(string(out.Stdout)), "\n")
	if len(lines) != 2 {
		return nil, fmt.Errorf("%w: %s", ErrNotARepo, abs)
	}
	s.root = filepath.Clean(strings.TrimSpace(lines[0]))
	s.gitDir = filepath.Clean(strings.TrimSpace(lines[1]))

	s.detector = NewStateDetector(s.runner, s.root, s.gitDir)
	s.detector.commits = s.commits
	s.detector.timeout = s.timeouts.Quick
	s.detector.logger = s.logger
	return s, nil
}

func (s *CLIService) applyDefaults() {
	d := DefaultTimeouts()
	if s.timeouts.Quick <= 0 {
		s.timeouts.Quick = d.Quick
	}
	if s.timeouts.Local <= 0 {
		s.timeouts.Local = d.Local
	}
	if s.timeouts.Network <= 0 {
		s.timeouts.Network = d.Network
	}
	if s.filter == nil {
		s.filter = noFilter{}
	}
	if s.decoder == nil {
		s.decoder = utf8Decoder{}
	}
	if s.notifier == nil {
		s.notifier = noNotifier{}
	}
	if s.commits == nil {
		s.commits = NewCommitCache(0)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
}

// RepoRoot returns the repository root path.
func (s *CLIService) RepoRoot() string { return s.root }

// GitDir returns the path to the git metadata directory.
func (s *CLIService) GitDir() string { return s.gitDir }

// ── helpers ─────────────────────────────────────────────────────────────────

// run executes a read-only git command at the repo root.
func (s *CLIService) run(ctx context.Context, timeout time.Duration, args ...string) (string, error) {
	out, err := s.runBytes(ctx, timeout, args...)
	return string(out), err
}

func (s *CLIService) runBytes(ctx context.Context, timeout time.Duration, args ...string) ([]byte, error) {
	out, err := s.runner.Run(ctx, Invocation{Dir: s.root, Args: args, Env: readEnv, Timeout: timeout})
	if err != nil {
		return nil, err
	}
	return out.Stdout, nil
}

// runWrite executes a git command that may take locks and change state.
func (s *CLIService) runWrite(ctx context.Context, timeout time.Duration, env []string, args ...string) (*CommandOutcome, error) {
	return s.runner.Run(ctx, Invocation{Dir: s.root, Args: args, Env: env, Timeout: timeout})
}

// mutate runs a local write command and notifies on success.
func (s *CLIService) mutate(ctx context.Context, args ...string) error {
	_, err := s.runWrite(ctx, s.timeouts.Local, nil, args...)
	return s.changed(err)
}

// changed notifies listeners when err is nil and passes err through.
func (s *CLIService) changed(err error) error {
	if err == nil {
		s.notifier.Notify(s.root)
	}
	return err
}

// ── Repository info ─────────────────────────────────────────────────────────

// CurrentBranch returns the checked-out branch, or the short hash when HEAD
// is detached.
func (s *CLIService) CurrentBranch(ctx context.Context) (string, error) {
	ref, err := s.run(ctx, s.timeouts.Quick, "symbolic-ref", "--short", "HEAD")
	if err != nil {
		hash, hashErr := s.run(ctx, s.timeouts.Quick, "rev-parse", "--short", "HEAD")
		if hashErr != nil {
			return "", fmt.Errorf("getting HEAD: %w", err)
		}
		return strings.TrimSpace(hash), nil
	}
	return strings.TrimSpace(ref), nil
}

// IsMerging reports whether a merge is in progress.
func (s *CLIService) IsMerging() bool {
	return readMarkers(s.gitDir).merging
}

// IsRebasing reports whether a rebase is in progress.
func (s *CLIService) IsRebasing() bool {
	return readMarkers(s.gitDir).rebasing
}

// AheadBehind returns how many commits HEAD is ahead of and behind its
// upstream. A branch without upstream reports 0, 0.
func (s *CLIService) AheadBehind(ctx context.Context) (int, int, error) {
	out, err := s.run(ctx, s.timeouts.Quick, "rev-list", "--left-right", "--count", "HEAD...@{upstream}")
	if err != nil {
		if errors.Is(err, ErrCommandFailed) {
			return 0, 0, nil // no upstream
		}
		return 0, 0, err
	}
	return ParseAheadBehind(out)
}

// ── Status & staging ────────────────────────────────────────────────────────

// Status returns the working tree status without excluded paths.
func (s *CLIService) Status(ctx context.Context) (*StatusResult, error) {
	out, err := s.run(ctx, s.timeouts.Local, "status", "--porcelain=v1", "-z",
		"--untracked-files=all")
	if err != nil {
		return nil, fmt.Errorf("getting status: %w", err)
	}
	res := ParseStatusOutput(out)
	res.Staged = s.filterStatus(res.Staged)
	res.Unstaged = s.filterStatus(res.Unstaged)
	res.Untracked = s.filterStatus(res.Untracked)
	res.Conflicts = s.filterStatus(res.Conflicts)
	return res, nil
}

func (s *CLIService) filterStatus(in []FileStatus) []FileStatus {
	out := make([]FileStatus, 0, len(in))
	for _, fs := range in {
		if !s.filter.Excluded(fs.Path) {
			out = append(out, fs)
		}
	}
	return out
}

// StageFile stages the given paths.
func (s *CLIService) StageFile(ctx context.Context, paths ...string) error {
	return s.mutate(ctx, append([]string{"add", "--"}, paths...)...)
}

// StageAll stages every change outside the exclusion patterns.
func (s *CLIService) StageAll(ctx context.Context) error {
	st, err := s.run(ctx, s.timeouts.Local, "status", "--porcelain=v1", "-z",
		"--untracked-files=all")
	if err != nil {
		return fmt.Errorf("getting status: %w", err)
	}
	res := ParseStatusOutput(st)
	var paths []string
	excluded := false
	for _, group := range [][]FileStatus{res.Unstaged, res.Untracked, res.Conflicts} {
		for _, fs := range group {
			if s.filter.Excluded(fs.Path) {
				excluded = true
				continue
			}
			paths = append(paths, fs.Path)
		}
	}
	if !excluded {
		return s.mutate(ctx, "add", "-A")
	}
	if len(paths) == 0 {
		return nil
	}
	return s.mutate(ctx, append([]string{"add", "-A", "--"}, paths...)...)
}

// UnstageFile removes the given paths from the index.
func (s *CLIService) UnstageFile(ctx context.Context, paths ...string) error {
	return s.mutate(ctx, append([]string{"reset", "-q", "HEAD", "--"}, paths...)...)
}

// UnstageAll unstages all changes.
func (s *CLIService) UnstageAll(ctx context.Context) error {
	return s.mutate(ctx, "reset", "-q", "HEAD")
}

// DiscardFile drops work tree changes of the given tracked paths.
func (s *CLIService) DiscardFile(ctx context.Context, paths ...string) error {
	return s.mutate(ctx, append([]string{"checkout", "--"}, paths...)...)
}

// StageLine stages a single line of path's unstaged changes.
func (s *CLIService) StageLine(ctx context.Context, path string, sel LineSelection) error {
	return s.applyLine(ctx, path, sel, false)
}

// UnstageLine removes a single line of path's staged changes from the index.
func (s *CLIService) UnstageLine(ctx context.Context, path string, sel LineSelection) error {
	return s.applyLine(ctx, path, sel, true)
}

func (s *CLIService) applyLine(ctx context.Context, path string, sel LineSelection, unstage bool) error {
	if s.filter.Excluded(path) {
		return fmt.Errorf("%w: %s", ErrExcludedPath, path)
	}
	if strings.Contains(path, " -> ") {
		return ErrRenameUnsupported
	}

	diffArgs := []string{"diff", "--no-color", "--no-ext-diff", "--unified=0"}
	if unstage {
		diffArgs = append(diffArgs, "--cached")
	}
	diff, err := s.run(ctx, s.timeouts.Local, append(diffArgs, "--", path)...)
	if err != nil {
		return err
	}
	if strings.TrimSpace(diff) == "" {
		return fmt.Errorf("%w: %s", ErrNoDiff, path)
	}
	patch, err := BuildLinePatch(diff, sel)
	if err != nil {
		return err
	}

	f, err := os.CreateTemp("", "git-tools-stage-line-*.patch")
	if err != nil {
		return fmt.Errorf("creating patch file: %w", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.WriteString(patch); err != nil {
		f.Close()
		return fmt.Errorf("writing patch file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing patch file: %w", err)
	}

	applyArgs := []string{"apply", "--cached"}
	if unstage {
		applyArgs = append(applyArgs, "--reverse")
	}
	applyArgs = append(applyArgs, "--unidiff-zero", "--whitespace=nowarn", f.Name())
	return s.mutate(ctx, applyArgs...)
}

// ── Stash ───────────────────────────────────────────────────────────────────

// StashList returns stash entries.
func (s *CLIService) StashList(ctx context.Context) ([]StashEntry, error) {
	out, err := s.run(ctx, s.timeouts.Quick, "stash", "list")
	if err != nil {
		return nil, err
	}
	return ParseStashList(out), nil
}

// StashFile stashes the changes of a single path.
func (s *CLIService) StashFile(ctx context.Context, path, message string) error {
	args := []string{"stash", "push"}
	if message != "" {
		args = append(args, "-m", message)
	}
	return s.mutate(ctx, append(args, "--", path)...)
}

// StashAll stashes all changes including untracked files.
func (s *CLIService) StashAll(ctx context.Context, message string) error {
	args := []string{"stash", "push", "--include-untracked"}
	if message != "" {
		args = append(args, "-m", message)
	}
	return s.mutate(ctx, args...)
}

// StashPop pops the stash at the given index.
func (s *CLIService) StashPop(ctx context.Context, index int) error {
	return s.mutate(ctx, "stash", "pop", fmt.Sprintf("stash@{%d}", index))
}

// ── Commits ─────────────────────────────────────────────────────────────────

// Commit creates a new commit with the given message.
func (s *CLIService) Commit(ctx context.Context, message string) error {
	return s.mutate(ctx, "commit", "-m", message)
}

// Amend amends the last commit with the given message.
func (s *CLIService) Amend(ctx context.Context, message string) error {
	return s.mutate(ctx, "commit", "--amend", "-m", message)
}

// Log returns up to limit commits reachable from HEAD, or from the extra
// revision arguments when given.
func (s *CLIService) Log(ctx context.Context, limit int, args ...string) ([]Commit, error) {
	cmdArgs := []string{
		"log", "--max-count=" + strconv.Itoa(limit),
		LogFormatFlag(),
	}
	cmdArgs = append(cmdArgs, args...)
	out, err := s.run(ctx, s.timeouts.Local, cmdArgs...)
	if err != nil {
		return nil, fmt.Errorf("getting log: %w", err)
	}
	return ParseLogOutput(out), nil
}

// FileHistory returns the commits touching path, following renames.
func (s *CLIService) FileHistory(ctx context.Context, path string, limit int) ([]Commit, error) {
	return s.Log(ctx, limit, "--follow", "--", path)
}

// CommitDiff returns the structured diff a commit introduced.
func (s *CLIService) CommitDiff(ctx context.Context, hash string) ([]DiffFile, error) {
	out, err := s.run(ctx, s.timeouts.Local, "show", "--format=", "--no-color", "--no-ext-diff", "--patch", hash)
	if err != nil {
		return nil, err
	}
	return ParseDiff(out), nil
}

// CommitChangedFiles lists the paths a commit touched.
func (s *CLIService) CommitChangedFiles(ctx context.Context, hash string) ([]ChangedFile, error) {
	out, err := s.run(ctx, s.timeouts.Local, "show", "--format=", "--name-status", "-z", hash)
	if err != nil {
		return nil, err
	}
	return ParseNameStatus(out), nil
}

// FileAtCommit returns path's decoded content at hash.
func (s *CLIService) FileAtCommit(ctx context.Context, hash, path string) (string, error) {
	out, err := s.runBytes(ctx, s.timeouts.Quick, "show", hash+":"+path)
	if err != nil {
		return "", err
	}
	return s.decoder.Decode(path, out), nil
}

// ── Diff ────────────────────────────────────────────────────────────────────

// Diff returns the structured diff of path (whole tree when path is empty)
// against the index, or of the index against HEAD when staged.
func (s *CLIService) Diff(ctx context.Context, path string, staged bool) ([]DiffFile, error) {
	text, err := s.RawDiff(ctx, path, staged)
	if err != nil {
		return nil, err
	}
	files := ParseDiff(text)
	kept := files[:0]
	for _, f := range files {
		if path != "" || !s.filter.Excluded(f.Path) {
			kept = append(kept, f)
		}
	}
	return kept, nil
}

// RawDiff returns the unified diff text, decoded with path's encoding.
func (s *CLIService) RawDiff(ctx context.Context, path string, staged bool) (string, error) {
	args := []string{"diff", "--no-color", "--no-ext-diff"}
	if staged {
		args = append(args, "--cached")
	}
	if path != "" {
		args = append(args, "--", path)
	}
	out, err := s.runBytes(ctx, s.timeouts.Local, args...)
	if err != nil {
		return "", err
	}
	return s.decoder.Decode(path, out), nil
}

// FileBaseContent returns the left side of a diff view: HEAD for staged
// changes, the index otherwise. A path missing there yields "".
func (s *CLIService) FileBaseContent(ctx context.Context, path string, staged bool) string {
	spec := ":" + path
	if staged {
		spec = "HEAD:" + path
	}
	out, err := s.runBytes(ctx, s.timeouts.Quick, "show", spec)
	if err != nil {
		return ""
	}
	return s.decoder.Decode(path, out)
}

// FileModifiedContent returns the right side of a diff view: the index for
// staged changes, the work tree file otherwise. A missing file yields "".
func (s *CLIService) FileModifiedContent(ctx context.Context, path string, staged bool) string {
	if staged {
		out, err := s.runBytes(ctx, s.timeouts.Quick, "show", ":"+path)
		if err != nil {
			return ""
		}
		return s.decoder.Decode(path, out)
	}
	full, err := s.workTreePath(path)
	if err != nil {
		return ""
	}
	b, err := os.ReadFile(full)
	if err != nil {
		return ""
	}
	return s.decoder.Decode(path, b)
}

// workTreePath joins a repository-relative path onto the root and rejects
// paths that escape it.
func (s *CLIService) workTreePath(path string) (string, error) {
	full := filepath.Join(s.root, filepath.FromSlash(path))
	rel, err := filepath.Rel(s.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(path) {
		return "", fmt.Errorf("%w: %s", ErrPathOutsideRepo, path)
	}
	return full, nil
}

// ── Branches ────────────────────────────────────────────────────────────────

const branchFormat = "%(HEAD)%00%(refname:short)%00%(objectname:short)%00%(upstream:short)%00%(upstream:track)%00%(subject)"

// Branches returns all local and remote branches, most recent first.
func (s *CLIService) Branches(ctx context.Context) ([]Branch, error) {
	out, err := s.run(ctx, s.timeouts.Local, "branch", "-a", "--format="+branchFormat, "--sort=-committerdate")
	if err != nil {
		return nil, err
	}
	return ParseBranchOutput(out), nil
}

// CreateBranch creates a branch at HEAD, switching to it when checkout is set.
func (s *CLIService) CreateBranch(ctx context.Context, name string, checkout bool) error {
	if checkout {
		return s.mutate(ctx, "switch", "-c", name)
	}
	return s.mutate(ctx, "branch", name)
}

// SwitchBranch switches to the given branch.
func (s *CLIService) SwitchBranch(ctx context.Context, name string) error {
	return s.mutate(ctx, "switch", name)
}

// DeleteBranch deletes the given branch.
func (s *CLIService) DeleteBranch(ctx context.Context, name string, force bool) error {
	flag := "-d"
	if force {
		flag = "-D"
	}
	return s.mutate(ctx, "branch", flag, name)
}

// Merge merges the given branch into the current branch. Unlike rebase
// steps, a conflicting merge is returned as an error of KindMergeConflict;
// the repository is still left mid-merge and a change is announced.
func (s *CLIService) Merge(ctx context.Context, name string) error {
	_, err := s.runWrite(ctx, s.timeouts.Local, []string{"GIT_EDITOR=true"}, "merge", "--no-edit", name)
	if kind, ok := KindOf(err); ok && kind == KindMergeConflict {
		s.notifier.Notify(s.root)
		return err
	}
	return s.changed(err)
}

// ── Remotes ─────────────────────────────────────────────────────────────────

// Fetch fetches from remote, or from all remotes when remote is empty.
func (s *CLIService) Fetch(ctx context.Context, remote string) error {
	args := []string{"fetch", "--prune"}
	if remote == "" {
		args = append(args, "--all")
	} else {
		args = append(args, remote)
	}
	_, err := s.runWrite(ctx, s.timeouts.Network, nil, args...)
	return s.changed(err)
}

// Pull pulls from the given remote and branch; empty values use the
// upstream configuration.
func (s *CLIService) Pull(ctx context.Context, remote, branch string) error {
	_, err := s.runWrite(ctx, s.timeouts.Network, []string{"GIT_EDITOR=true"}, compact("pull", "--no-edit", remote, branch)...)
	return s.changed(err)
}

// Push pushes to the given remote and branch. force uses --force-with-lease.
func (s *CLIService) Push(ctx context.Context, remote, branch string, force bool) error {
	args := compact("push", remote, branch)
	if force {
		args = append(args, "--force-with-lease")
	}
	_, err := s.runWrite(ctx, s.timeouts.Network, nil, args...)
	return s.changed(err)
}

// compact drops empty arguments.
func compact(args ...string) []string {
	out := args[:0]
	for _, a := range args {
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

// ── Raw ─────────────────────────────────────────────────────────────────────

// RunRaw runs an arbitrary git command at the repo root.
func (s *CLIService) RunRaw(ctx context.Context, args ...string) (*CommandOutcome, error) {
	out, err := s.runWrite(ctx, s.timeouts.Local, nil, args...)
	return out, s.changed(err)
}
