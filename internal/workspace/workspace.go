// Package workspace decides which repository a command acts on and which
// of its paths are hidden from bulk operations.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var (
	ErrNoActiveRepo = errors.New("no active repository selected")
	ErrRepoNotFound = errors.New("repository not found")
)

// Resolver resolves the repository for a command: the explicit path when
// given, otherwise the configured active repository.
type Resolver struct {
	active string
}

// NewResolver returns a resolver falling back to active.
func NewResolver(active string) *Resolver {
	return &Resolver{active: active}
}

// Resolve returns an absolute directory path. It does not check that the
// directory is a git repository; the engine reports that.
func (r *Resolver) Resolve(explicit string) (string, error) {
	p := strings.TrimSpace(explicit)
	if p == "" {
		p = strings.TrimSpace(r.active)
	}
	if p == "" {
		return "", ErrNoActiveRepo
	}
	p = expandHome(p)
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", p, err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrRepoNotFound, abs)
	}
	return abs, nil
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// Exclusions matches repository-relative paths against doublestar globs.
// A pattern without a slash also matches the base name at any depth, the
// way .gitignore does.
type Exclusions struct {
	patterns []string
}

// NewExclusions validates patterns.
func NewExclusions(patterns []string) (*Exclusions, error) {
	e := &Exclusions{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclusion pattern %q", p)
		}
		e.patterns = append(e.patterns, p)
	}
	return e, nil
}

// Excluded reports whether path matches any pattern.
func (e *Exclusions) Excluded(p string) bool {
	p = filepath.ToSlash(p)
	base := path.Base(p)
	for _, pattern := range e.patterns {
		if doublestar.MatchUnvalidated(pattern, p) {
			return true
		}
		if !strings.Contains(pattern, "/") && doublestar.MatchUnvalidated(pattern, base) {
			return true
		}
	}
	return false
}

// Len returns the number of active patterns.
func (e *Exclusions) Len() int { return len(e.patterns) }
