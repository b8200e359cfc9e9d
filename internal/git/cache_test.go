package git

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commitRunner() *fakeRunner {
	return &fakeRunner{handler: func(inv Invocation) (*CommandOutcome, error) {
		rev := inv.Args[len(inv.Args)-1]
		if inv.Args[0] == "log" {
			return stdout("subject of " + rev[:4] + "\n")
		}
		return stdout(rev[:4] + "\n")
	}}
}

func TestCommitCacheMemoizesObjectIDs(t *testing.T) {
	r := commitRunner()
	cc := NewCommitCache(time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		short, err := cc.ShortID(ctx, r, "/repo", headSHA, time.Second)
		require.NoError(t, err)
		assert.Equal(t, "1111", short)
	}
	subject, err := cc.Subject(ctx, r, "/repo", headSHA, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "subject of 1111", subject)
	_, err = cc.Subject(ctx, r, "/repo", headSHA, time.Second)
	require.NoError(t, err)

	assert.Equal(t, 2, r.count())
	assert.Equal(t, 1, cc.Len())
}

func TestCommitCacheSkipsSymbolicRevisions(t *testing.T) {
	r := commitRunner()
	cc := NewCommitCache(time.Minute)

	for i := 0; i < 2; i++ {
		_, err := cc.ShortID(context.Background(), r, "/repo", "HEAD", time.Second)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, r.count())
	assert.Zero(t, cc.Len())
}

func TestCommitCacheKeysByRepository(t *testing.T) {
	r := commitRunner()
	cc := NewCommitCache(0)

	_, err := cc.ShortID(context.Background(), r, "/a", headSHA, time.Second)
	require.NoError(t, err)
	_, err = cc.ShortID(context.Background(), r, "/b", headSHA, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 2, r.count())

	cc.Flush()
	assert.Zero(t, cc.Len())
}

func TestCommitCacheDoesNotStoreFailures(t *testing.T) {
	calls := 0
	r := &fakeRunner{handler: func(inv Invocation) (*CommandOutcome, error) {
		calls++
		if calls == 1 {
			return nil, &Error{Kind: KindCommandFailed, Args: inv.Args, ExitCode: 128}
		}
		return stdout("1111111\n")
	}}
	cc := NewCommitCache(time.Minute)

	_, err := cc.ShortID(context.Background(), r, "/repo", headSHA, time.Second)
	assert.ErrorIs(t, err, ErrCommandFailed)
	short, err := cc.ShortID(context.Background(), r, "/repo", headSHA, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "1111111", short)
}

func TestIsObjectID(t *testing.T) {
	assert.True(t, isObjectID(headSHA))
	assert.True(t, isObjectID(headSHA+"111111111111111111111111"))
	assert.False(t, isObjectID("HEAD"))
	assert.False(t, isObjectID("1111111"))
	assert.False(t, isObjectID("ABCDEF0000000000000000000000000000000000"))
}
