package git

import (
	"fmt"
	"time"
)

// StatusCode is one column of a porcelain v1 XY status.
type StatusCode byte

const (
	StatusUnmodified  StatusCode = ' '
	StatusModified    StatusCode = 'M'
	StatusTypeChanged StatusCode = 'T'
	StatusAdded       StatusCode = 'A'
	StatusDeleted     StatusCode = 'D'
	StatusRenamed     StatusCode = 'R'
	StatusCopied      StatusCode = 'C'
	StatusUnmerged    StatusCode = 'U'
	StatusUntracked   StatusCode = '?'
	StatusIgnored     StatusCode = '!'
)

func (s StatusCode) String() string { return string(s) }

// MarshalText writes the code as its porcelain character.
func (s StatusCode) MarshalText() ([]byte, error) { return []byte{byte(s)}, nil }

// UnmarshalText reads a single porcelain character.
func (s *StatusCode) UnmarshalText(b []byte) error {
	if len(b) != 1 {
		return fmt.Errorf("status code must be one character, got %q", b)
	}
	*s = StatusCode(b[0])
	return nil
}

// conflictCodes are the porcelain XY pairs git uses for unmerged paths.
var conflictCodes = map[string]struct{}{
	"DD": {}, "AU": {}, "UD": {}, "UA": {}, "DU": {}, "AA": {}, "UU": {},
}

// IsConflictCode reports whether a two-character porcelain code marks an
// unmerged path.
func IsConflictCode(xy string) bool {
	_, ok := conflictCodes[xy]
	return ok
}

// FileStatus is one porcelain status entry.
type FileStatus struct {
	Staging  StatusCode `json:"staging"`
	Worktree StatusCode `json:"worktree"`
	Path     string     `json:"path"`
	OrigPath string     `json:"origPath,omitempty"` // Only set for renames/copies.
	IsStaged bool       `json:"isStaged"`
}

// StatusResult groups status entries. A path changed in both the index and
// the work tree is listed in Staged and in Unstaged.
type StatusResult struct {
	Staged    []FileStatus `json:"staged"`
	Unstaged  []FileStatus `json:"unstaged"`
	Untracked []FileStatus `json:"untracked"`
	Conflicts []FileStatus `json:"conflicts"`
}

// TotalCount counts entries across all groups.
func (sr *StatusResult) TotalCount() int {
	return len(sr.Staged) + len(sr.Unstaged) + len(sr.Untracked) + len(sr.Conflicts)
}

// RefType classifies a decoration from git log.
type RefType int

const (
	RefBranch RefType = iota
	RefRemoteBranch
	RefTag
	RefHead
)

// Ref is one %D decoration on a commit.
type Ref struct {
	Name   string  `json:"name"`
	Type   RefType `json:"type"`
	Remote string  `json:"remote,omitempty"`
}

// Commit is one git log entry.
type Commit struct {
	Hash        string    `json:"hash"`
	ShortHash   string    `json:"shortHash"`
	Author      string    `json:"author"`
	AuthorEmail string    `json:"authorEmail"`
	Date        time.Time `json:"date"`
	RelDate     string    `json:"relDate"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body,omitempty"`
	Parents     []string  `json:"parents,omitempty"`
	Refs        []Ref     `json:"refs,omitempty"`
}

// ChangedFile is one entry of git show --name-status.
type ChangedFile struct {
	Status  StatusCode `json:"status"`
	Path    string     `json:"path"`
	OldPath string     `json:"oldPath,omitempty"`
}

// Branch represents a local or remote branch.
type Branch struct {
	Name      string `json:"name"`
	IsCurrent bool   `json:"isCurrent"`
	IsRemote  bool   `json:"isRemote"`
	Upstream  string `json:"upstream,omitempty"`
	Hash      string `json:"hash"`
	Subject   string `json:"subject"`
	Ahead     int    `json:"ahead"`
	Behind    int    `json:"behind"`
}

// StashEntry represents a single stash entry.
type StashEntry struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
	Branch  string `json:"branch,omitempty"`
}

// ── Operation state ─────────────────────────────────────────────────────────

// OperationState describes in-progress sequencer operations. It is derived
// on every call and never cached. Empty commit/branch fields mean they
// could not be resolved.
type OperationState struct {
	IsMerging       bool     `json:"isMerging"`
	IsRebasing      bool     `json:"isRebasing"`
	IsCherryPicking bool     `json:"isCherryPicking"`
	IsReverting     bool     `json:"isReverting"`
	HasConflicts    bool     `json:"hasConflicts"`
	ConflictPaths   []string `json:"conflictPaths"`
	OursCommit      string   `json:"oursCommit,omitempty"`
	OursBranch      string   `json:"oursBranch,omitempty"`
	TheirsCommit    string   `json:"theirsCommit,omitempty"`
	TheirsBranch    string   `json:"theirsBranch,omitempty"`
}

// InProgress reports whether any operation marker was found.
func (s *OperationState) InProgress() bool {
	return s.IsMerging || s.IsRebasing || s.IsCherryPicking || s.IsReverting
}

// ConflictFile holds the three index stages of an unmerged path. A stage
// missing from the index is an empty string.
type ConflictFile struct {
	Path   string `json:"path"`
	Base   string `json:"base"`
	Ours   string `json:"ours"`
	Theirs string `json:"theirs"`
}

// ── Rebase ──────────────────────────────────────────────────────────────────

// RebaseTodoItem is one line of a rebase plan.
type RebaseTodoItem struct {
	Action     string `json:"action" yaml:"action"`
	CommitHash string `json:"commitHash" yaml:"commit"`
	Message    string `json:"message" yaml:"message"`
}

// RebaseState is the coarse state of the rebase state machine.
type RebaseState string

const (
	RebaseIdle       RebaseState = "idle"
	RebaseInProgress RebaseState = "in_progress"
	RebaseConflicted RebaseState = "conflicted"
)

// RebaseStep locates the sequencer within the plan.
type RebaseStep struct {
	Current       int    `json:"current"`
	Total         int    `json:"total"`
	CommitHash    string `json:"commitHash,omitempty"`
	CommitMessage string `json:"commitMessage,omitempty"`
}

// FullRebaseStatus is the rebase state plus step and branch details.
type FullRebaseStatus struct {
	Status         RebaseState `json:"status"`
	Step           *RebaseStep `json:"step,omitempty"`
	OntoBranch     string      `json:"ontoBranch,omitempty"`
	UpstreamBranch string      `json:"upstreamBranch,omitempty"`
}

// CommandResult reports a sequencer step that may stop on a conflict
// without that being an error.
type CommandResult struct {
	Success    bool   `json:"success"`
	Conflicted bool   `json:"conflicted"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ExitCode   int    `json:"exitCode"`
}

// Diagnostics describes the git installation and repository in use.
type Diagnostics struct {
	GitVersion string `json:"gitVersion"`
	GitBinary  string `json:"gitBinary"`
	RepoRoot   string `json:"repoRoot,omitempty"`
	GitDir     string `json:"gitDir,omitempty"`
}
