package git

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeConflictIsAnError(t *testing.T) {
	r := divergedRepo(t)
	r.git("switch", "-q", "main")
	svc := r.service()
	ctx := context.Background()

	err := svc.Merge(ctx, "feature")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMergeConflict)
	assert.Equal(t, 1, r.notifier.count())
	assert.True(t, svc.IsMerging())

	state, err := svc.OperationState(ctx)
	require.NoError(t, err)
	assert.True(t, state.IsMerging)
	assert.True(t, state.HasConflicts)
	assert.Equal(t, []string{"f.txt"}, state.ConflictPaths)
	assert.Equal(t, "main", state.OursBranch)
	assert.Equal(t, "feature", state.TheirsBranch)

	st, err := svc.Status(ctx)
	require.NoError(t, err)
	require.Len(t, st.Conflicts, 1)
	assert.Equal(t, "f.txt", st.Conflicts[0].Path)
}

func TestResolveSidesKeepPathUnmergedUntilMarked(t *testing.T) {
	r := divergedRepo(t)
	r.git("switch", "-q", "main")
	svc := r.service()
	ctx := context.Background()
	require.ErrorIs(t, svc.Merge(ctx, "feature"), ErrMergeConflict)

	read := func() string {
		b, err := os.ReadFile(filepath.Join(r.dir, "f.txt"))
		require.NoError(t, err)
		return string(b)
	}

	require.NoError(t, svc.ResolveTheirs(ctx, "f.txt"))
	assert.Equal(t, "feature\n", read())
	require.NoError(t, svc.ResolveOurs(ctx, "f.txt"))
	assert.Equal(t, "main\n", read())

	conflicts, err := svc.ListConflicts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"f.txt"}, conflicts)

	require.NoError(t, svc.MarkResolved(ctx, "f.txt"))
	conflicts, err = svc.ListConflicts(ctx)
	require.NoError(t, err)
	assert.Empty(t, conflicts)

	state, err := svc.OperationState(ctx)
	require.NoError(t, err)
	assert.True(t, state.IsMerging)
	assert.False(t, state.HasConflicts)
}

func TestConflictFileMissingStages(t *testing.T) {
	r := newTestRepo(t)
	r.git("switch", "-q", "-c", "feature")
	r.write("added.txt", "theirs\n")
	r.commitAll("feature adds")
	r.git("switch", "-q", "main")
	r.write("added.txt", "ours\n")
	r.commitAll("main adds")
	svc := r.service()
	ctx := context.Background()

	require.ErrorIs(t, svc.Merge(ctx, "feature"), ErrMergeConflict)

	cf, err := svc.ConflictFile(ctx, "added.txt")
	require.NoError(t, err)
	assert.Empty(t, cf.Base)
	assert.Equal(t, "ours\n", cf.Ours)
	assert.Equal(t, "theirs\n", cf.Theirs)

	_, err = svc.ConflictFile(ctx, "../escape.txt")
	assert.ErrorIs(t, err, ErrPathOutsideRepo)
}

func TestWriteResolutionKeepsMode(t *testing.T) {
	r := divergedRepo(t)
	r.git("switch", "-q", "main")
	svc := r.service()
	ctx := context.Background()
	require.ErrorIs(t, svc.Merge(ctx, "feature"), ErrMergeConflict)

	full := filepath.Join(r.dir, "f.txt")
	before, err := os.Stat(full)
	require.NoError(t, err)

	require.NoError(t, svc.WriteResolution(ctx, "f.txt", "both\n"))
	after, err := os.Stat(full)
	require.NoError(t, err)
	assert.Equal(t, before.Mode().Perm(), after.Mode().Perm())
	assert.Equal(t, "both\n", r.git("show", ":f.txt"))
}

func TestConflictFileCanceledContext(t *testing.T) {
	svc, _, _ := fakeService(t, func(inv Invocation) (*CommandOutcome, error) {
		return stdout("content\n")
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.ConflictFile(ctx, "f.txt")
	assert.ErrorIs(t, err, context.Canceled)
}
