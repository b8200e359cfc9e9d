package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// ── Rebase ──────────────────────────────────────────────────────────────────

// RebasePlan lists the commits in base..HEAD, oldest first, each with the
// action "pick". Callers may reorder, edit or drop items before applying.
func (s *CLIService) RebasePlan(ctx context.Context, base string) ([]RebaseTodoItem, error) {
	out, err := s.run(ctx, s.timeouts.Local, "log", base+"..HEAD", "--reverse", rebasePlanFormat)
	if err != nil {
		return nil, fmt.Errorf("listing commits since %s: %w", base, err)
	}
	return ParseRebasePlan(out), nil
}

// ApplyRebasePlan runs an interactive rebase onto base with items as the
// todo list. git's sequence editor is replaced by a script that copies the
// prepared todo over the file git asks it to edit, so nothing interactive
// ever runs. The scratch directory is removed whatever the outcome.
func (s *CLIService) ApplyRebasePlan(ctx context.Context, base string, items []RebaseTodoItem) (*CommandResult, error) {
	dir, err := os.MkdirTemp("", "git-tools-rebase-")
	if err != nil {
		return nil, fmt.Errorf("creating rebase scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	todo := filepath.Join(dir, "git-rebase-todo")
	if err := os.WriteFile(todo, []byte(FormatRebaseTodo(items)), 0o600); err != nil {
		return nil, fmt.Errorf("writing rebase todo: %w", err)
	}
	editor, err := writeSequenceEditor(dir, todo)
	if err != nil {
		return nil, fmt.Errorf("writing sequence editor: %w", err)
	}

	return s.rebaseStep(ctx, []string{
		"GIT_SEQUENCE_EDITOR=" + editor,
		"GIT_EDITOR=true",
	}, "rebase", "-i", base)
}

// StartRebase rebases the current branch onto base.
func (s *CLIService) StartRebase(ctx context.Context, base string) (*CommandResult, error) {
	return s.rebaseStep(ctx, nil, "rebase", base)
}

// ContinueRebase resumes a stopped rebase without opening any editor.
func (s *CLIService) ContinueRebase(ctx context.Context) (*CommandResult, error) {
	return s.rebaseStep(ctx, []string{"GIT_EDITOR=true", "GIT_SEQUENCE_EDITOR=true"}, "rebase", "--continue")
}

// SkipRebase drops the commit the rebase stopped on and carries on.
func (s *CLIService) SkipRebase(ctx context.Context) (*CommandResult, error) {
	return s.rebaseStep(ctx, []string{"GIT_EDITOR=true"}, "rebase", "--skip")
}

// AbortRebase restores the branch to its pre-rebase state.
func (s *CLIService) AbortRebase(ctx context.Context) (*CommandResult, error) {
	return s.rebaseStep(ctx, nil, "rebase", "--abort")
}

// rebaseStep runs one rebase command. A stop on conflicts or any other
// non-zero exit is a normal, unsuccessful result; only failures to run git
// at all (timeout, missing binary, bad directory) are errors.
func (s *CLIService) rebaseStep(ctx context.Context, env []string, args ...string) (*CommandResult, error) {
	out, err := s.runWrite(ctx, s.timeouts.Local, env, args...)
	if err != nil {
		gerr, ok := asError(err)
		if !ok || (gerr.Kind != KindMergeConflict && gerr.Kind != KindCommandFailed) {
			return nil, err
		}
		s.notifier.Notify(s.root)
		return &CommandResult{
			Success:    false,
			Conflicted: gerr.Kind == KindMergeConflict,
			Stdout:     gerr.Stdout,
			Stderr:     gerr.Stderr,
			ExitCode:   gerr.ExitCode,
		}, nil
	}
	s.notifier.Notify(s.root)
	return &CommandResult{
		Success:  true,
		Stdout:   string(out.Stdout),
		Stderr:   string(out.Stderr),
		ExitCode: out.ExitCode,
	}, nil
}

// RebaseStatus reports where a rebase stands. The conflict probe is
// best-effort: if it fails the rebase is reported as in progress.
func (s *CLIService) RebaseStatus(ctx context.Context) (*FullRebaseStatus, error) {
	m := readMarkers(s.gitDir)
	if !m.rebasing {
		return &FullRebaseStatus{Status: RebaseIdle}, nil
	}

	st := &FullRebaseStatus{Status: RebaseInProgress}
	if paths, err := s.ListConflicts(ctx); err != nil {
		s.logger.Warn("conflict probe failed", "repo", s.root, "err", err)
	} else if len(paths) > 0 {
		st.Status = RebaseConflicted
	}

	mergeDir := filepath.Join(s.gitDir, "rebase-merge")
	applyDir := filepath.Join(s.gitDir, "rebase-apply")
	switch m.rebaseDir {
	case mergeDir:
		step := &RebaseStep{
			Current:    atoiFile(filepath.Join(mergeDir, "msgnum")),
			Total:      atoiFile(filepath.Join(mergeDir, "end")),
			CommitHash: firstLine(readFile(filepath.Join(mergeDir, "stopped-sha"))),
		}
		if step.Current == 0 {
			step.Current = atoiFile(filepath.Join(mergeDir, "msg-num"))
		}
		if step.CommitHash == "" {
			step.CommitHash = firstLine(readFile(filepath.Join(s.gitDir, "REBASE_HEAD")))
		}
		if step.CommitHash != "" {
			if subject, err := s.commits.Subject(ctx, s.runner, s.root, step.CommitHash, s.timeouts.Quick); err == nil {
				step.CommitMessage = subject
			}
		}
		st.Step = step
	case applyDir:
		st.Step = &RebaseStep{
			Current: atoiFile(filepath.Join(applyDir, "next")),
			Total:   atoiFile(filepath.Join(applyDir, "last")),
		}
	}

	if m.rebaseDir != "" {
		if onto := firstLine(readFile(filepath.Join(m.rebaseDir, "onto"))); onto != "" {
			st.OntoBranch = s.detector.nameRev(ctx, onto)
			if st.OntoBranch == "" {
				st.OntoBranch = s.detector.shortID(ctx, onto)
			}
		}
		st.UpstreamBranch = branchFromHeadName(readFile(filepath.Join(m.rebaseDir, "head-name")))
	}
	return st, nil
}

func atoiFile(path string) int {
	n, err := strconv.Atoi(firstLine(readFile(path)))
	if err != nil {
		return 0
	}
	return n
}
