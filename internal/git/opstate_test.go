package git

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	headSHA   = "1111111111111111111111111111111111111111"
	theirsSHA = "2222222222222222222222222222222222222222"
	ontoSHA   = "3333333333333333333333333333333333333333"
)

func writeMarker(t *testing.T, gitDir, name, content string) {
	t.Helper()
	full := filepath.Join(gitDir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

// detectorRunner answers the probes a detector issues.
func detectorRunner(status string) *fakeRunner {
	return &fakeRunner{handler: func(inv Invocation) (*CommandOutcome, error) {
		switch inv.Args[0] {
		case "status":
			return stdout(status)
		case "rev-parse":
			rev := inv.Args[len(inv.Args)-1]
			if rev == "HEAD" {
				rev = headSHA
			}
			return stdout(rev[:7] + "\n")
		case "symbolic-ref":
			return stdout("main\n")
		case "name-rev":
			switch inv.Args[len(inv.Args)-1] {
			case theirsSHA:
				return stdout("feature~2\n")
			case ontoSHA:
				return stdout("remotes/origin/main\n")
			}
		}
		return nil, &Error{Kind: KindCommandFailed, Args: inv.Args, ExitCode: 1}
	}}
}

func TestDetectIdleRunsNoCommands(t *testing.T) {
	r := &fakeRunner{}
	d := NewStateDetector(r, t.TempDir(), t.TempDir())

	state, err := d.Detect(context.Background())
	require.NoError(t, err)
	assert.False(t, state.InProgress())
	assert.False(t, state.HasConflicts)
	assert.NotNil(t, state.ConflictPaths)
	assert.Empty(t, state.ConflictPaths)
	assert.Zero(t, r.count())
}

func TestDetectCanceledContext(t *testing.T) {
	d := NewStateDetector(&fakeRunner{}, t.TempDir(), t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Detect(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDetectMergeWithConflict(t *testing.T) {
	gitDir := t.TempDir()
	writeMarker(t, gitDir, "MERGE_HEAD", theirsSHA+"\n")
	writeMarker(t, gitDir, "MERGE_MSG", "Merge branch 'feature/login'\n\n# Conflicts:\n#\tfile.txt\n")

	d := NewStateDetector(detectorRunner("UU file.txt\nM  other.txt\n"), t.TempDir(), gitDir)
	state, err := d.Detect(context.Background())
	require.NoError(t, err)

	assert.True(t, state.IsMerging)
	assert.False(t, state.IsRebasing)
	assert.True(t, state.HasConflicts)
	assert.Equal(t, []string{"file.txt"}, state.ConflictPaths)
	assert.Equal(t, "1111111", state.OursCommit)
	assert.Equal(t, "main", state.OursBranch)
	assert.Equal(t, "2222222", state.TheirsCommit)
	assert.Equal(t, "feature/login", state.TheirsBranch)
}

func TestDetectMergeFallsBackToNameRev(t *testing.T) {
	gitDir := t.TempDir()
	writeMarker(t, gitDir, "MERGE_HEAD", theirsSHA+"\n")

	d := NewStateDetector(detectorRunner(""), t.TempDir(), gitDir)
	state, err := d.Detect(context.Background())
	require.NoError(t, err)

	assert.True(t, state.IsMerging)
	assert.False(t, state.HasConflicts)
	assert.Equal(t, "feature", state.TheirsBranch)
}

func TestDetectRebaseMerge(t *testing.T) {
	gitDir := t.TempDir()
	writeMarker(t, gitDir, "rebase-merge/onto", ontoSHA+"\n")
	writeMarker(t, gitDir, "rebase-merge/head-name", "refs/heads/topic\n")
	writeMarker(t, gitDir, "rebase-merge/stopped-sha", theirsSHA+"\n")

	d := NewStateDetector(detectorRunner("AA added.txt\n"), t.TempDir(), gitDir)
	state, err := d.Detect(context.Background())
	require.NoError(t, err)

	assert.True(t, state.IsRebasing)
	assert.Equal(t, []string{"added.txt"}, state.ConflictPaths)
	assert.Equal(t, "3333333", state.OursCommit)
	assert.Equal(t, "origin/main", state.OursBranch)
	assert.Equal(t, "2222222", state.TheirsCommit)
	assert.Equal(t, "topic", state.TheirsBranch)
}

func TestDetectApplyingIsNotRebase(t *testing.T) {
	gitDir := t.TempDir()
	writeMarker(t, gitDir, "rebase-apply/applying", "")

	r := &fakeRunner{}
	state, err := NewStateDetector(r, t.TempDir(), gitDir).Detect(context.Background())
	require.NoError(t, err)
	assert.False(t, state.IsRebasing)
	assert.Zero(t, r.count())
}

func TestDetectStaleRebaseHeadIsIdle(t *testing.T) {
	gitDir := t.TempDir()
	writeMarker(t, gitDir, "REBASE_HEAD", theirsSHA+"\n")

	r := &fakeRunner{}
	state, err := NewStateDetector(r, t.TempDir(), gitDir).Detect(context.Background())
	require.NoError(t, err)
	assert.False(t, state.IsRebasing)
	assert.False(t, state.InProgress())
	assert.Zero(t, r.count())
}

func TestDetectCherryPickAndRevert(t *testing.T) {
	for _, marker := range []string{"CHERRY_PICK_HEAD", "REVERT_HEAD"} {
		t.Run(marker, func(t *testing.T) {
			gitDir := t.TempDir()
			writeMarker(t, gitDir, marker, theirsSHA+"\n")

			state, err := NewStateDetector(detectorRunner(""), t.TempDir(), gitDir).Detect(context.Background())
			require.NoError(t, err)
			assert.Equal(t, marker == "CHERRY_PICK_HEAD", state.IsCherryPicking)
			assert.Equal(t, marker == "REVERT_HEAD", state.IsReverting)
			assert.True(t, state.InProgress())
			assert.Equal(t, "2222222", state.TheirsCommit)
		})
	}
}

func TestDetectDegradesWhenStatusFails(t *testing.T) {
	gitDir := t.TempDir()
	writeMarker(t, gitDir, "MERGE_HEAD", theirsSHA+"\n")

	r := &fakeRunner{handler: func(inv Invocation) (*CommandOutcome, error) {
		return nil, errors.New("boom")
	}}
	state, err := NewStateDetector(r, t.TempDir(), gitDir).Detect(context.Background())
	require.NoError(t, err)
	assert.True(t, state.IsMerging)
	assert.False(t, state.HasConflicts)
	assert.Empty(t, state.ConflictPaths)
	assert.Empty(t, state.OursCommit)
	assert.Empty(t, state.TheirsBranch)
}

func TestDetectUsesCommitCache(t *testing.T) {
	gitDir := t.TempDir()
	writeMarker(t, gitDir, "CHERRY_PICK_HEAD", theirsSHA+"\n")

	r := detectorRunner("")
	d := NewStateDetector(r, t.TempDir(), gitDir)
	_, err := d.Detect(context.Background())
	require.NoError(t, err)
	_, err = d.Detect(context.Background())
	require.NoError(t, err)

	parses := 0
	for _, c := range r.commands() {
		if strings.HasPrefix(c, "rev-parse --short "+theirsSHA) {
			parses++
		}
	}
	assert.Equal(t, 1, parses)
}

func TestParseConflictPaths(t *testing.T) {
	out := "UU plain.txt\n" +
		"M  staged.txt\n" +
		"AA both added.txt\n" +
		"UD \"caf\\303\\251.txt\"\n" +
		"DU old.txt -> new.txt\n" +
		"UU plain.txt\n" +
		"?? untracked.txt\n" +
		"DD\n"

	assert.Equal(t, []string{"plain.txt", "both added.txt", "café.txt", "new.txt"}, ParseConflictPaths(out))
	assert.NotNil(t, ParseConflictPaths(""))
}

func TestIsConflictCode(t *testing.T) {
	for _, code := range []string{"DD", "AU", "UD", "UA", "DU", "AA", "UU"} {
		assert.True(t, IsConflictCode(code), code)
	}
	for _, code := range []string{"M ", " M", "A ", "??", "RM", "AD"} {
		assert.False(t, IsConflictCode(code), code)
	}
}

func TestMergeBranchFromMsg(t *testing.T) {
	assert.Equal(t, "topic", mergeBranchFromMsg("Merge branch 'topic' into main\n"))
	assert.Equal(t, "origin/main", mergeBranchFromMsg("Merge remote-tracking branch 'origin/main'\n"))
	assert.Empty(t, mergeBranchFromMsg("Merge commit 'abc123'\n"))
}

func TestBranchFromHeadName(t *testing.T) {
	assert.Equal(t, "feature/x", branchFromHeadName("refs/heads/feature/x\n"))
	assert.Empty(t, branchFromHeadName("detached HEAD\n"))
	assert.Empty(t, branchFromHeadName(""))
}
