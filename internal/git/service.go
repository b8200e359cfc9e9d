// Package git drives the git binary: it runs commands with timeouts and
// classified failures, parses diffs, stages single lines through synthesized
// patches, detects in-progress operations and scripts interactive rebases.
package git

import "context"

// Service abstracts all Git operations the engine exposes. Every method
// that shells out takes a context and is bounded by its timeout class.
type Service interface {
	// Repository info
	RepoRoot() string
	GitDir() string
	CurrentBranch(ctx context.Context) (string, error)
	IsMerging() bool
	IsRebasing() bool
	AheadBehind(ctx context.Context) (ahead, behind int, err error)

	// Status & staging
	Status(ctx context.Context) (*StatusResult, error)
	StageFile(ctx context.Context, paths ...string) error
	StageAll(ctx context.Context) error
	UnstageFile(ctx context.Context, paths ...string) error
	UnstageAll(ctx context.Context) error
	DiscardFile(ctx context.Context, paths ...string) error
	StageLine(ctx context.Context, path string, sel LineSelection) error
	UnstageLine(ctx context.Context, path string, sel LineSelection) error

	// Stash
	StashList(ctx context.Context) ([]StashEntry, error)
	StashFile(ctx context.Context, path, message string) error
	StashAll(ctx context.Context, message string) error
	StashPop(ctx context.Context, index int) error

	// Commits
	Commit(ctx context.Context, message string) error
	Amend(ctx context.Context, message string) error
	Log(ctx context.Context, limit int, args ...string) ([]Commit, error)
	FileHistory(ctx context.Context, path string, limit int) ([]Commit, error)
	CommitDiff(ctx context.Context, hash string) ([]DiffFile, error)
	CommitChangedFiles(ctx context.Context, hash string) ([]ChangedFile, error)
	FileAtCommit(ctx context.Context, hash, path string) (string, error)

	// Diff
	Diff(ctx context.Context, path string, staged bool) ([]DiffFile, error)
	RawDiff(ctx context.Context, path string, staged bool) (string, error)
	FileBaseContent(ctx context.Context, path string, staged bool) string
	FileModifiedContent(ctx context.Context, path string, staged bool) string

	// Branches
	Branches(ctx context.Context) ([]Branch, error)
	CreateBranch(ctx context.Context, name string, checkout bool) error
	SwitchBranch(ctx context.Context, name string) error
	DeleteBranch(ctx context.Context, name string, force bool) error
	Merge(ctx context.Context, name string) error

	// Remotes
	Fetch(ctx context.Context, remote string) error
	Pull(ctx context.Context, remote, branch string) error
	Push(ctx context.Context, remote, branch string, force bool) error

	// Operation state & conflicts
	OperationState(ctx context.Context) (*OperationState, error)
	ListConflicts(ctx context.Context) ([]string, error)
	ConflictFile(ctx context.Context, path string) (*ConflictFile, error)
	ResolveOurs(ctx context.Context, path string) error
	ResolveTheirs(ctx context.Context, path string) error
	MarkResolved(ctx context.Context, path string) error
	WriteResolution(ctx context.Context, path, content string) error

	// Rebase
	RebasePlan(ctx context.Context, base string) ([]RebaseTodoItem, error)
	ApplyRebasePlan(ctx context.Context, base string, items []RebaseTodoItem) (*CommandResult, error)
	StartRebase(ctx context.Context, base string) (*CommandResult, error)
	ContinueRebase(ctx context.Context) (*CommandResult, error)
	SkipRebase(ctx context.Context) (*CommandResult, error)
	AbortRebase(ctx context.Context) (*CommandResult, error)
	RebaseStatus(ctx context.Context) (*FullRebaseStatus, error)

	// Raw
	RunRaw(ctx context.Context, args ...string) (*CommandOutcome, error)
}
