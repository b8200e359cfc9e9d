package git

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind is the closed set of failure classes a git invocation can end in.
type ErrorKind int

const (
	KindCommandFailed ErrorKind = iota
	KindNotARepository
	KindMergeConflict
	KindIO
	KindTimeout
	KindInvalidRepoPath
	KindBinaryNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotARepository:
		return "not_a_repository"
	case KindMergeConflict:
		return "merge_conflict"
	case KindIO:
		return "io"
	case KindTimeout:
		return "timeout"
	case KindInvalidRepoPath:
		return "invalid_repository_path"
	case KindBinaryNotFound:
		return "binary_not_found"
	default:
		return "command_failed"
	}
}

// Sentinels matched by errors.Is against an *Error of the same kind.
var (
	ErrCommandFailed   = errors.New("git command failed")
	ErrNotARepo        = errors.New("not a git repository")
	ErrMergeConflict   = errors.New("merge conflict detected")
	ErrIO              = errors.New("git i/o failure")
	ErrTimeout         = errors.New("git command timed out")
	ErrInvalidRepoPath = errors.New("invalid repository path")
	ErrBinaryNotFound  = errors.New("git binary not found")
)

// Validation errors raised before or instead of running git.
var (
	ErrLineNotFound      = errors.New("selected line not found")
	ErrEmptySelection    = errors.New("no line selected")
	ErrPairSpansHunks    = errors.New("selected modified line pair is in different hunks")
	ErrNoHunks           = errors.New("no hunks found in diff")
	ErrNoDiff            = errors.New("no changes found for file")
	ErrRenameUnsupported = errors.New("line staging is not supported for renamed files")
	ErrExcludedPath      = errors.New("path is excluded")
	ErrPathOutsideRepo   = errors.New("path escapes repository root")
)

var kindSentinels = map[ErrorKind]error{
	KindCommandFailed:   ErrCommandFailed,
	KindNotARepository:  ErrNotARepo,
	KindMergeConflict:   ErrMergeConflict,
	KindIO:              ErrIO,
	KindTimeout:         ErrTimeout,
	KindInvalidRepoPath: ErrInvalidRepoPath,
	KindBinaryNotFound:  ErrBinaryNotFound,
}

// Error describes one failed git invocation. Stderr is kept verbatim so
// callers can surface git's own hints.
type Error struct {
	Kind     ErrorKind
	Args     []string
	Dir      string
	ExitCode int
	Stdout   string
	Stderr   string
	// Timeout is the bound that was exceeded, in seconds. Only set for KindTimeout.
	Timeout float64
	Err     error
}

func (e *Error) Error() string {
	cmd := "git " + strings.Join(e.Args, " ")
	switch e.Kind {
	case KindTimeout:
		return fmt.Sprintf("%s: timed out after %gs", cmd, e.Timeout)
	case KindInvalidRepoPath:
		return fmt.Sprintf("%s: invalid repository path %q", cmd, e.Dir)
	case KindBinaryNotFound, KindIO:
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", cmd, e.Err)
		}
	}
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" && e.Kind == KindMergeConflict {
		msg = strings.TrimSpace(e.Stdout)
	}
	if msg == "" {
		msg = fmt.Sprintf("exit status %d", e.ExitCode)
	}
	return fmt.Sprintf("%s: %s", cmd, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for this error's kind.
func (e *Error) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// Classify maps a failed run's output text to an ErrorKind. It is only
// meaningful for non-zero exits.
func Classify(stdout, stderr string) ErrorKind {
	if strings.Contains(strings.ToLower(stderr), "not a git repository") {
		return KindNotARepository
	}
	if strings.Contains(stderr, "CONFLICT") || strings.Contains(stdout, "CONFLICT") {
		return KindMergeConflict
	}
	return KindCommandFailed
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Kind, true
	}
	return 0, false
}

func asError(err error) (*Error, bool) {
	var gerr *Error
	ok := errors.As(err, &gerr)
	return gerr, ok
}
