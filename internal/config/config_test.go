package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.GitBinary)
	assert.Empty(t, cfg.ActiveRepo)
	assert.Equal(t, 10*time.Second, cfg.Timeouts.Quick)
	assert.Equal(t, 30*time.Second, cfg.Timeouts.Local)
	assert.Equal(t, 120*time.Second, cfg.Timeouts.Network)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 300*time.Millisecond, cfg.WatchDebounce)
	assert.False(t, cfg.Trace)
}

func TestLoadFromXDGDirectory(t *testing.T) {
	xdg := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(xdg, "gittools"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(xdg, "gittools", "config.yaml"), []byte("active_repo: /src/app\n"), 0o644))
	t.Setenv("XDG_CONFIG_HOME", xdg)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/src/app", cfg.ActiveRepo)
}

func TestLoadExplicitFile(t *testing.T) {
	path := writeConfig(t, `
git_binary: /usr/local/bin/git
active_repo: /src/app
repositories:
  - /src/app
  - /src/lib
timeouts:
  quick: 2s
  network: 5m
excluded_files:
  - "vendor/**"
  - "**/*.min.js"
file_encodings:
  - pattern: "legacy/**/*.txt"
    encoding: windows-1252
  - pattern: "**/*.sjis"
    encoding: shift_jis
log:
  level: debug
  format: json
cache_ttl: 1m
trace: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/usr/local/bin/git", cfg.GitBinary)
	assert.Equal(t, []string{"/src/app", "/src/lib"}, cfg.Repositories)
	assert.Equal(t, 2*time.Second, cfg.Timeouts.Quick)
	assert.Equal(t, 30*time.Second, cfg.Timeouts.Local)
	assert.Equal(t, 5*time.Minute, cfg.Timeouts.Network)
	assert.Equal(t, []string{"vendor/**", "**/*.min.js"}, cfg.ExcludedFiles)
	assert.Equal(t, []EncodingRule{
		{Pattern: "legacy/**/*.txt", Encoding: "windows-1252"},
		{Pattern: "**/*.sjis", Encoding: "shift_jis"},
	}, cfg.FileEncodings)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.True(t, cfg.Trace)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("GITTOOLS_ACTIVE_REPO", "/from/env")
	t.Setenv("GITTOOLS_TIMEOUTS_NETWORK", "7s")
	t.Setenv("GITTOOLS_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.ActiveRepo)
	assert.Equal(t, 7*time.Second, cfg.Timeouts.Network)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := writeConfig(t, `
timeouts:
  quick: 0s
excluded_files:
  - "vendor/[**"
file_encodings:
  - pattern: "*.txt"
    encoding: klingon-8
log:
  level: chatty
`)

	_, err := Load(path)
	require.Error(t, err)
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))

	fields := make([]string, len(verrs))
	for i, e := range verrs {
		fields[i] = e.Field
	}
	assert.ElementsMatch(t, []string{
		"timeouts.quick",
		"log.level",
		"excluded_files[0]",
		"file_encodings[0].encoding",
	}, fields)
	assert.Contains(t, err.Error(), "4 validation errors")
}

func TestValidationErrorMessage(t *testing.T) {
	err := ValidationError{Field: "log.format", Value: "xml", Message: "must be one of: text, json"}
	assert.Equal(t, "log.format: must be one of: text, json (got: xml)", err.Error())
	assert.Equal(t, err.Error(), ValidationErrors{err}.Error())
}
