package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePrefersExplicitPath(t *testing.T) {
	active, explicit := t.TempDir(), t.TempDir()
	r := NewResolver(active)

	got, err := r.Resolve(explicit)
	require.NoError(t, err)
	assert.Equal(t, explicit, got)

	got, err = r.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, active, got)
}

func TestResolveWithoutActiveRepo(t *testing.T) {
	_, err := NewResolver("").Resolve("  ")
	assert.ErrorIs(t, err, ErrNoActiveRepo)
	assert.EqualError(t, err, "no active repository selected")
}

func TestResolveMissingDirectory(t *testing.T) {
	_, err := NewResolver("").Resolve(filepath.Join(t.TempDir(), "gone"))
	assert.ErrorIs(t, err, ErrRepoNotFound)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = NewResolver(file).Resolve("")
	assert.ErrorIs(t, err, ErrRepoNotFound)
}

func TestResolveExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	require.NoError(t, os.Mkdir(filepath.Join(home, "src"), 0o755))

	got, err := NewResolver("~/src").Resolve("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "src"), got)
}

func TestExclusions(t *testing.T) {
	e, err := NewExclusions([]string{"vendor/**", "*.min.js", "  ", "docs/*.pdf"})
	require.NoError(t, err)
	assert.Equal(t, 3, e.Len())

	for _, p := range []string{"vendor/a/b.go", "web/app.min.js", "app.min.js", "docs/guide.pdf"} {
		assert.True(t, e.Excluded(p), p)
	}
	for _, p := range []string{"main.go", "src/vendor.go", "docs/deep/guide.pdf", "app.js"} {
		assert.False(t, e.Excluded(p), p)
	}
}

func TestNewExclusionsRejectsBadPattern(t *testing.T) {
	_, err := NewExclusions([]string{"src/[a"})
	assert.Error(t, err)
}
