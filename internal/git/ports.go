package git

import (
	"strings"
	"time"
)

// RepoResolver turns an optional explicit path into a repository directory,
// falling back to the active repository.
type RepoResolver interface {
	Resolve(explicit string) (string, error)
}

// PathFilter reports repository-relative paths the engine must not report
// or act on in bulk.
type PathFilter interface {
	Excluded(path string) bool
}

// Decoder turns file bytes into text using the encoding configured for path.
type Decoder interface {
	Decode(path string, raw []byte) string
}

// ChangeNotifier is told after every operation that mutated repository state.
type ChangeNotifier interface {
	Notify(repo string)
}

// Timeouts are the wall-clock bounds for the three classes of git command.
type Timeouts struct {
	Quick   time.Duration
	Local   time.Duration
	Network time.Duration
}

// DefaultTimeouts mirror the config defaults.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Quick:   10 * time.Second,
		Local:   30 * time.Second,
		Network: 120 * time.Second,
	}
}

type noFilter struct{}

func (noFilter) Excluded(string) bool { return false }

type utf8Decoder struct{}

func (utf8Decoder) Decode(_ string, raw []byte) string {
	return strings.ToValidUTF8(string(raw), "�")
}

type noNotifier struct{}

func (noNotifier) Notify(string) {}
