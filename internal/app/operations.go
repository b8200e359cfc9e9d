package app

import (
	"context"
	"fmt"

	"github.com/sourcegraph/conc/pool"

	"github.com/Akashdeep-Patra/git-tools/internal/git"
)

// Operation is a request from a front end. The set is closed: Dispatch
// handles every implementation.
type Operation interface {
	operation()
}

type (
	StatusOp struct{}
	DiffOp   struct {
		Path   string
		Staged bool
	}
	StageOp      struct{ Paths []string }
	StageAllOp   struct{}
	UnstageOp    struct{ Paths []string }
	UnstageAllOp struct{}
	DiscardOp    struct{ Paths []string }
	StageLineOp  struct {
		Path      string
		Selection git.LineSelection
	}
	UnstageLineOp struct {
		Path      string
		Selection git.LineSelection
	}
	FileContentsOp struct {
		Path   string
		Staged bool
	}

	CommitOp struct {
		Message string
		Amend   bool
	}
	LogOp struct {
		Limit int
		Path  string
	}
	ShowCommitOp   struct{ Hash string }
	FileAtCommitOp struct{ Hash, Path string }

	BranchesOp      struct{}
	CurrentBranchOp struct{}
	CreateBranchOp  struct {
		Name     string
		Checkout bool
	}
	SwitchBranchOp struct{ Name string }
	DeleteBranchOp struct {
		Name  string
		Force bool
	}
	MergeOp       struct{ Branch string }
	AheadBehindOp struct{}
	FetchOp       struct{ Remote string }
	PullOp        struct{ Remote, Branch string }
	PushOp        struct {
		Remote, Branch string
		Force          bool
	}

	StashListOp struct{}
	StashPushOp struct{ Path, Message string }
	StashPopOp  struct{ Index int }

	StateOp           struct{}
	ConflictsOp       struct{}
	ConflictShowOp    struct{ Path string }
	ResolveOursOp     struct{ Path string }
	ResolveTheirsOp   struct{ Path string }
	MarkResolvedOp    struct{ Path string }
	WriteResolutionOp struct{ Path, Content string }

	RebasePlanOp  struct{ Base string }
	RebaseApplyOp struct {
		Base  string
		Items []git.RebaseTodoItem
	}
	RebaseStartOp    struct{ Base string }
	RebaseContinueOp struct{}
	RebaseSkipOp     struct{}
	RebaseAbortOp    struct{}
	RebaseStatusOp   struct{}

	RunOp         struct{ Args []string }
	DiagnosticsOp struct{}
)

func (StatusOp) operation()          {}
func (DiffOp) operation()            {}
func (StageOp) operation()           {}
func (StageAllOp) operation()        {}
func (UnstageOp) operation()         {}
func (UnstageAllOp) operation()      {}
func (DiscardOp) operation()         {}
func (StageLineOp) operation()       {}
func (UnstageLineOp) operation()     {}
func (FileContentsOp) operation()    {}
func (CommitOp) operation()          {}
func (LogOp) operation()             {}
func (ShowCommitOp) operation()      {}
func (FileAtCommitOp) operation()    {}
func (BranchesOp) operation()        {}
func (CurrentBranchOp) operation()   {}
func (CreateBranchOp) operation()    {}
func (SwitchBranchOp) operation()    {}
func (DeleteBranchOp) operation()    {}
func (MergeOp) operation()           {}
func (AheadBehindOp) operation()     {}
func (FetchOp) operation()           {}
func (PullOp) operation()            {}
func (PushOp) operation()            {}
func (StashListOp) operation()       {}
func (StashPushOp) operation()       {}
func (StashPopOp) operation()        {}
func (StateOp) operation()           {}
func (ConflictsOp) operation()       {}
func (ConflictShowOp) operation()    {}
func (ResolveOursOp) operation()     {}
func (ResolveTheirsOp) operation()   {}
func (MarkResolvedOp) operation()    {}
func (WriteResolutionOp) operation() {}
func (RebasePlanOp) operation()      {}
func (RebaseApplyOp) operation()     {}
func (RebaseStartOp) operation()     {}
func (RebaseContinueOp) operation()  {}
func (RebaseSkipOp) operation()      {}
func (RebaseAbortOp) operation()     {}
func (RebaseStatusOp) operation()    {}
func (RunOp) operation()             {}
func (DiagnosticsOp) operation()     {}

// Done is the result of an operation that only mutates.
type Done struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// StatusReport is the status plus the context a front end shows with it.
type StatusReport struct {
	Repo   string              `json:"repo"`
	Branch string              `json:"branch"`
	Ahead  int                 `json:"ahead"`
	Behind int                 `json:"behind"`
	State  *git.OperationState `json:"state"`
	Status *git.StatusResult   `json:"status"`
}

// FileContents are the two sides of a file's diff, decoded for display.
type FileContents struct {
	Path     string `json:"path"`
	Base     string `json:"base"`
	Modified string `json:"modified"`
}

// CommitDetails is one commit's changed files and diff.
type CommitDetails struct {
	Hash  string            `json:"hash"`
	Files []git.ChangedFile `json:"files"`
	Diff  []git.DiffFile    `json:"diff"`
}

// AheadBehind counts commits relative to the upstream.
type AheadBehind struct {
	Ahead  int `json:"ahead"`
	Behind int `json:"behind"`
}

// RawOutput is the captured output of RunOp.
type RawOutput struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exitCode"`
}

// Dispatch runs op against the repository named by repo (or the active
// repository) and returns its result value.
func (a *App) Dispatch(ctx context.Context, repo string, op Operation) (any, error) {
	if _, ok := op.(DiagnosticsOp); ok {
		return a.Diagnostics(ctx, repo)
	}

	svc, err := a.Service(ctx, repo)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("dispatch", "op", fmt.Sprintf("%T", op), "repo", svc.RepoRoot())

	switch op := op.(type) {
	case StatusOp:
		return a.statusReport(ctx, svc)
	case DiffOp:
		return svc.Diff(ctx, op.Path, op.Staged)
	case StageOp:
		return done(svc.StageFile(ctx, op.Paths...), "staged %d path(s)", len(op.Paths))
	case StageAllOp:
		return done(svc.StageAll(ctx), "staged all changes")
	case UnstageOp:
		return done(svc.UnstageFile(ctx, op.Paths...), "unstaged %d path(s)", len(op.Paths))
	case UnstageAllOp:
		return done(svc.UnstageAll(ctx), "unstaged all changes")
	case DiscardOp:
		return done(svc.DiscardFile(ctx, op.Paths...), "discarded %d path(s)", len(op.Paths))
	case StageLineOp:
		return done(svc.StageLine(ctx, op.Path, op.Selection), "staged line in %s", op.Path)
	case UnstageLineOp:
		return done(svc.UnstageLine(ctx, op.Path, op.Selection), "unstaged line in %s", op.Path)
	case FileContentsOp:
		return &FileContents{
			Path:     op.Path,
			Base:     svc.FileBaseContent(ctx, op.Path, op.Staged),
			Modified: svc.FileModifiedContent(ctx, op.Path, op.Staged),
		}, nil

	case CommitOp:
		if op.Amend {
			return done(svc.Amend(ctx, op.Message), "amended HEAD")
		}
		return done(svc.Commit(ctx, op.Message), "committed")
	case LogOp:
		if op.Path != "" {
			return svc.FileHistory(ctx, op.Path, op.Limit)
		}
		return svc.Log(ctx, op.Limit)
	case ShowCommitOp:
		return a.commitDetails(ctx, svc, op.Hash)
	case FileAtCommitOp:
		return svc.FileAtCommit(ctx, op.Hash, op.Path)

	case BranchesOp:
		return svc.Branches(ctx)
	case CurrentBranchOp:
		return svc.CurrentBranch(ctx)
	case CreateBranchOp:
		return done(svc.CreateBranch(ctx, op.Name, op.Checkout), "created branch %s", op.Name)
	case SwitchBranchOp:
		return done(svc.SwitchBranch(ctx, op.Name), "switched to %s", op.Name)
	case DeleteBranchOp:
		return done(svc.DeleteBranch(ctx, op.Name, op.Force), "deleted branch %s", op.Name)
	case MergeOp:
		return done(svc.Merge(ctx, op.Branch), "merged %s", op.Branch)
	case AheadBehindOp:
		ahead, behind, err := svc.AheadBehind(ctx)
		if err != nil {
			return nil, err
		}
		return &AheadBehind{Ahead: ahead, Behind: behind}, nil
	case FetchOp:
		return done(svc.Fetch(ctx, op.Remote), "fetched")
	case PullOp:
		return done(svc.Pull(ctx, op.Remote, op.Branch), "pulled")
	case PushOp:
		return done(svc.Push(ctx, op.Remote, op.Branch, op.Force), "pushed")

	case StashListOp:
		return svc.StashList(ctx)
	case StashPushOp:
		if op.Path != "" {
			return done(svc.StashFile(ctx, op.Path, op.Message), "stashed %s", op.Path)
		}
		return done(svc.StashAll(ctx, op.Message), "stashed all changes")
	case StashPopOp:
		return done(svc.StashPop(ctx, op.Index), "popped stash@{%d}", op.Index)

	case StateOp:
		return svc.OperationState(ctx)
	case ConflictsOp:
		return svc.ListConflicts(ctx)
	case ConflictShowOp:
		return svc.ConflictFile(ctx, op.Path)
	case ResolveOursOp:
		return done(svc.ResolveOurs(ctx, op.Path), "took ours for %s", op.Path)
	case ResolveTheirsOp:
		return done(svc.ResolveTheirs(ctx, op.Path), "took theirs for %s", op.Path)
	case MarkResolvedOp:
		return done(svc.MarkResolved(ctx, op.Path), "marked %s resolved", op.Path)
	case WriteResolutionOp:
		return done(svc.WriteResolution(ctx, op.Path, op.Content), "resolved %s", op.Path)

	case RebasePlanOp:
		return svc.RebasePlan(ctx, op.Base)
	case RebaseApplyOp:
		return svc.ApplyRebasePlan(ctx, op.Base, op.Items)
	case RebaseStartOp:
		return svc.StartRebase(ctx, op.Base)
	case RebaseContinueOp:
		return svc.ContinueRebase(ctx)
	case RebaseSkipOp:
		return svc.SkipRebase(ctx)
	case RebaseAbortOp:
		return svc.AbortRebase(ctx)
	case RebaseStatusOp:
		return svc.RebaseStatus(ctx)

	case RunOp:
		out, err := svc.RunRaw(ctx, op.Args...)
		if err != nil {
			return nil, err
		}
		return &RawOutput{Stdout: string(out.Stdout), Stderr: string(out.Stderr), ExitCode: out.ExitCode}, nil
	}
	return nil, fmt.Errorf("unsupported operation %T", op)
}

func done(err error, format string, args ...any) (any, error) {
	if err != nil {
		return nil, err
	}
	return &Done{OK: true, Message: fmt.Sprintf(format, args...)}, nil
}

// statusReport gathers status, branch, upstream counts and operation state
// concurrently. Only a status failure fails the report.
func (a *App) statusReport(ctx context.Context, svc *git.CLIService) (*StatusReport, error) {
	r := &StatusReport{Repo: svc.RepoRoot()}
	p := pool.New().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		st, err := svc.Status(ctx)
		r.Status = st
		return err
	})
	p.Go(func(ctx context.Context) error {
		if branch, err := svc.CurrentBranch(ctx); err == nil {
			r.Branch = branch
		}
		return nil
	})
	p.Go(func(ctx context.Context) error {
		r.Ahead, r.Behind, _ = svc.AheadBehind(ctx)
		return nil
	})
	p.Go(func(ctx context.Context) error {
		if state, err := svc.OperationState(ctx); err == nil {
			r.State = state
		}
		return nil
	})
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return r, nil
}

func (a *App) commitDetails(ctx context.Context, svc *git.CLIService, hash string) (*CommitDetails, error) {
	files, err := svc.CommitChangedFiles(ctx, hash)
	if err != nil {
		return nil, err
	}
	diff, err := svc.CommitDiff(ctx, hash)
	if err != nil {
		return nil, err
	}
	return &CommitDetails{Hash: hash, Files: files, Diff: diff}, nil
}
