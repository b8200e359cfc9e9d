package git

import (
	"context"
	"fmt"
	"os"

	"github.com/sourcegraph/conc"
)

// ── Operation state & conflicts ─────────────────────────────────────────────

// OperationState reports in-progress sequencer operations and conflicts.
func (s *CLIService) OperationState(ctx context.Context) (*OperationState, error) {
	return s.detector.Detect(ctx)
}

// ListConflicts returns the unmerged paths, in status order.
func (s *CLIService) ListConflicts(ctx context.Context) ([]string, error) {
	out, err := s.run(ctx, s.timeouts.Local, "status", "--porcelain", "--untracked-files=no")
	if err != nil {
		return nil, err
	}
	return ParseConflictPaths(out), nil
}

// ConflictFile returns the base, ours and theirs stages of an unmerged
// path. Stages missing from the index come back empty.
func (s *CLIService) ConflictFile(ctx context.Context, path string) (*ConflictFile, error) {
	if _, err := s.workTreePath(path); err != nil {
		return nil, err
	}
	stages := [3]string{}
	var wg conc.WaitGroup
	for i := range stages {
		stage := i + 1
		wg.Go(func() {
			out, err := s.runBytes(ctx, s.timeouts.Quick, "show", fmt.Sprintf(":%d:%s", stage, path))
			if err != nil {
				return
			}
			stages[stage-1] = s.decoder.Decode(path, out)
		})
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &ConflictFile{Path: path, Base: stages[0], Ours: stages[1], Theirs: stages[2]}, nil
}

// ResolveOurs checks out our side of a conflicted path into the work tree.
func (s *CLIService) ResolveOurs(ctx context.Context, path string) error {
	return s.mutate(ctx, "checkout", "--ours", "--", path)
}

// ResolveTheirs checks out their side of a conflicted path into the work tree.
func (s *CLIService) ResolveTheirs(ctx context.Context, path string) error {
	return s.mutate(ctx, "checkout", "--theirs", "--", path)
}

// MarkResolved stages path, clearing its unmerged entries.
func (s *CLIService) MarkResolved(ctx context.Context, path string) error {
	return s.mutate(ctx, "add", "--", path)
}

// WriteResolution writes merged content to path and marks it resolved.
func (s *CLIService) WriteResolution(ctx context.Context, path, content string) error {
	full, err := s.workTreePath(path)
	if err != nil {
		return err
	}
	mode := os.FileMode(0o644)
	if info, statErr := os.Stat(full); statErr == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(full, []byte(content), mode); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return s.MarkResolved(ctx, path)
}
