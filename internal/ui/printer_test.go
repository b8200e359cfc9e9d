package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Akashdeep-Patra/git-tools/internal/git"
)

func newTestPrinter(t *testing.T) (*Printer, *bytes.Buffer) {
	t.Helper()
	t.Setenv("CLICOLOR_FORCE", "")
	var buf bytes.Buffer
	return NewPrinter(&buf, 80), &buf
}

func TestStatusGroupsFiles(t *testing.T) {
	p, buf := newTestPrinter(t)
	st := &git.StatusResult{
		Staged: []git.FileStatus{
			{Staging: git.StatusRenamed, Worktree: git.StatusUnmodified, Path: "new.go", OrigPath: "old.go", IsStaged: true},
		},
		Unstaged:  []git.FileStatus{{Staging: git.StatusUnmodified, Worktree: git.StatusModified, Path: "main.go"}},
		Untracked: []git.FileStatus{{Staging: git.StatusUntracked, Worktree: git.StatusUntracked, Path: "notes.txt"}},
	}

	require.NoError(t, p.Status(Summary{Branch: "main", Ahead: 2, RepoRoot: "/src/app"}, st))
	out := buf.String()
	assert.NotContains(t, out, "\x1b[")

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	assert.True(t, strings.HasPrefix(lines[0], "main │ ↑2 │ ● modified"), lines[0])
	assert.True(t, strings.HasSuffix(lines[0], "app"), lines[0])
	assert.Contains(t, out, "Staged changes (1)\n  R  old.go → new.go\n")
	assert.Contains(t, out, "Unstaged changes (1)\n  M  main.go\n")
	assert.Contains(t, out, "Untracked files (1)\n  ?  notes.txt\n")
	assert.NotContains(t, out, "Conflicts")
}

func TestStatusCleanAndDetached(t *testing.T) {
	p, buf := newTestPrinter(t)
	require.NoError(t, p.Status(Summary{}, &git.StatusResult{}))
	assert.Equal(t, "(detached) │ ✓ clean\n", buf.String())
}

func TestSummaryShowsOperationBadge(t *testing.T) {
	s := NewPrinter(&bytes.Buffer{}, 30).Styles()
	got := RenderSummary(s, Summary{
		Branch: "feature",
		Ahead:  1,
		State:  &git.OperationState{IsRebasing: true, HasConflicts: true, ConflictPaths: []string{"a", "b"}},
	}, 30)
	assert.Equal(t, "feature │  REBASING · 2 CONFLICTS ", got)
}

func TestOperationState(t *testing.T) {
	p, buf := newTestPrinter(t)
	require.NoError(t, p.OperationState(&git.OperationState{}))
	assert.Equal(t, "No operation in progress\n", buf.String())

	buf.Reset()
	require.NoError(t, p.OperationState(&git.OperationState{
		IsMerging:     true,
		HasConflicts:  true,
		ConflictPaths: []string{"f.txt"},
		OursCommit:    "1111111",
		OursBranch:    "main",
		TheirsBranch:  "feature",
	}))
	assert.Equal(t, strings.Join([]string{
		" MERGING · 1 CONFLICTS ",
		"  ours    1111111 main",
		"  theirs  feature",
		"",
		"Conflicts (1)",
		"  f.txt",
	}, "\n")+"\n", buf.String())
}

func TestRebaseStatus(t *testing.T) {
	p, buf := newTestPrinter(t)
	require.NoError(t, p.RebaseStatus(&git.FullRebaseStatus{Status: git.RebaseIdle}))
	assert.Equal(t, "No rebase in progress\n", buf.String())

	buf.Reset()
	require.NoError(t, p.RebaseStatus(&git.FullRebaseStatus{
		Status:         git.RebaseConflicted,
		Step:           &git.RebaseStep{Current: 2, Total: 3, CommitHash: "abcdef0123", CommitMessage: "fix parser"},
		OntoBranch:     "main",
		UpstreamBranch: "topic",
	}))
	assert.Equal(t, strings.Join([]string{
		"Rebase conflicted  step 2/3",
		"  commit  abcdef0 fix parser",
		"  onto    main",
		"  branch  topic",
	}, "\n")+"\n", buf.String())
}

func TestDiffGutters(t *testing.T) {
	p, buf := newTestPrinter(t)
	files := git.ParseDiff("diff --git a/f.txt b/f.txt\n" +
		"--- a/f.txt\n+++ b/f.txt\n" +
		"@@ -1,2 +1,2 @@\n keep\n-old\n+new\n")
	require.NoError(t, p.Diff(files))
	assert.Equal(t, strings.Join([]string{
		"f.txt (modified)",
		"@@ -1,2 +1,2 @@",
		"    1    1  keep",
		"    2      -old",
		"         2 +new",
	}, "\n")+"\n", buf.String())

	buf.Reset()
	require.NoError(t, p.Diff(nil))
	assert.Equal(t, "No changes\n", buf.String())
}

func TestCommitsAndBranches(t *testing.T) {
	p, buf := newTestPrinter(t)
	require.NoError(t, p.Commits([]git.Commit{{
		ShortHash: "abc1234",
		Subject:   "add parser",
		Author:    "Ada",
		RelDate:   "2 days ago",
		Refs:      []git.Ref{{Name: "main", Type: git.RefBranch}, {Name: "v1.0", Type: git.RefTag}},
	}}))
	assert.Equal(t, "abc1234 (main, tag: v1.0) add parser Ada 2 days ago\n", buf.String())

	buf.Reset()
	require.NoError(t, p.Branches([]git.Branch{
		{Name: "main", IsCurrent: true, Hash: "1234567890", Subject: "tip", Ahead: 1, Behind: 2},
		{Name: "origin/main", IsRemote: true, Hash: "abcdef0", Subject: "tip"},
	}))
	assert.Equal(t, "* main 1234567 ↑1 ↓2 tip\n  origin/main abcdef0 tip\n", buf.String())
}

func TestStashes(t *testing.T) {
	p, buf := newTestPrinter(t)
	require.NoError(t, p.Stashes(nil))
	assert.Equal(t, "No stashes\n", buf.String())

	buf.Reset()
	require.NoError(t, p.Stashes([]git.StashEntry{
		{Index: 0, Message: "wip parser", Branch: "main"},
		{Index: 1, Message: "spike"},
	}))
	assert.Equal(t, "Stash (2)\n  stash@{0} wip parser on main\n  stash@{1} spike\n", buf.String())
}

func TestCommandResult(t *testing.T) {
	p, buf := newTestPrinter(t)
	require.NoError(t, p.CommandResult(&git.CommandResult{Success: true, Stderr: "noise"}))
	assert.Equal(t, "✓ done\n", buf.String())

	buf.Reset()
	require.NoError(t, p.CommandResult(&git.CommandResult{Conflicted: true, ExitCode: 1, Stderr: "CONFLICT (content)\n"}))
	assert.Contains(t, buf.String(), "stopped on conflicts")
	assert.Contains(t, buf.String(), "CONFLICT (content)")

	buf.Reset()
	require.NoError(t, p.CommandResult(&git.CommandResult{ExitCode: 128}))
	assert.Equal(t, "✗ failed (exit 128)\n", buf.String())
}

func TestConflictSideBySide(t *testing.T) {
	p, buf := newTestPrinter(t)
	require.NoError(t, p.Conflict(&git.ConflictFile{
		Path:   "f.txt",
		Base:   "base\n",
		Ours:   "same\nmain\n",
		Theirs: "same\nfeature\nextra\n",
	}))
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "f.txt", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "ours "))
	assert.True(t, strings.HasSuffix(lines[1], " │ theirs"))
	assert.True(t, strings.HasSuffix(lines[4], " │ extra"))
	assert.Equal(t, []string{"base", "base"}, lines[5:])
}

func TestRebasePlan(t *testing.T) {
	p, buf := newTestPrinter(t)
	require.NoError(t, p.RebasePlan([]git.RebaseTodoItem{
		{Action: "pick", CommitHash: "aaaaaaaaaa", Message: "one"},
		{Action: "squash", CommitHash: "bbbbbbbbbb", Message: "two"},
	}))
	assert.Equal(t, "pick    aaaaaaa one\nsquash  bbbbbbb two\n", buf.String())
}

func TestTruncateAndPad(t *testing.T) {
	assert.Equal(t, "hello", Truncate("hello", 5))
	assert.Equal(t, "hel…", Truncate("hello", 4))
	assert.Equal(t, "…", Truncate("hello", 1))
	assert.Equal(t, "日…", Truncate("日本語", 4))
	assert.Equal(t, "ab  ", PadRight("ab", 4))
	assert.Equal(t, "a, b", JoinNonEmpty(", ", "", "a", "", "b"))
}
