package git

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// records returns the non-empty records of out split on sep.
func records(out string, sep byte) []string {
	var recs []string
	for out != "" {
		rec, rest, _ := strings.Cut(out, string(sep))
		out = rest
		if rec != "" {
			recs = append(recs, rec)
		}
	}
	return recs
}

// ── Log ─────────────────────────────────────────────────────────────────────

// Commit fields are NUL separated, commits end in \x01.
const logFormat = "%H%x00%h%x00%an%x00%ae%x00%at%x00%ar%x00%s%x00%b%x00%P%x00%D%x01"

const logFields = 10

// LogFormatFlag returns the --format flag matching ParseLogOutput.
func LogFormatFlag() string { return "--format=" + logFormat }

// ParseLogOutput parses git log output written with LogFormatFlag.
// Malformed records are skipped.
func ParseLogOutput(out string) []Commit {
	var commits []Commit
	for _, rec := range records(out, '\x01') {
		f := strings.SplitN(strings.TrimSpace(rec), "\x00", logFields)
		if len(f) < logFields {
			continue
		}
		for i := range f {
			f[i] = strings.TrimSpace(f[i])
		}
		unix, _ := strconv.ParseInt(f[4], 10, 64)
		c := Commit{
			Hash:        f[0],
			ShortHash:   f[1],
			Author:      f[2],
			AuthorEmail: f[3],
			Date:        time.Unix(unix, 0),
			RelDate:     f[5],
			Subject:     f[6],
			Body:        f[7],
			Parents:     strings.Fields(f[8]),
		}
		if len(c.Parents) == 0 {
			c.Parents = nil
		}
		if f[9] != "" {
			c.Refs = ParseRefs(f[9])
		}
		commits = append(commits, c)
	}
	return commits
}

// ParseRefs parses a %D decoration list. Names containing a slash are taken
// as remote-tracking branches.
func ParseRefs(raw string) []Ref {
	var refs []Ref
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		var ref Ref
		if target, ok := strings.CutPrefix(name, "HEAD -> "); ok {
			ref = Ref{Name: target, Type: RefHead}
		} else if tag, ok := strings.CutPrefix(name, "tag: "); ok {
			ref = Ref{Name: tag, Type: RefTag}
		} else if name == "HEAD" {
			ref = Ref{Name: name, Type: RefHead}
		} else if remote, branch, ok := strings.Cut(name, "/"); ok {
			ref = Ref{Name: branch, Type: RefRemoteBranch, Remote: remote}
		} else {
			ref = Ref{Name: name, Type: RefBranch}
		}
		refs = append(refs, ref)
	}
	return refs
}

// ── Status ──────────────────────────────────────────────────────────────────

// ParseStatusOutput parses `git status --porcelain=v1 -z`. A file changed in
// both the index and the work tree appears in Staged and Unstaged; conflicts
// appear only in Conflicts.
func ParseStatusOutput(out string) *StatusResult {
	res := &StatusResult{
		Staged:    []FileStatus{},
		Unstaged:  []FileStatus{},
		Untracked: []FileStatus{},
		Conflicts: []FileStatus{},
	}
	recs := records(out, 0)
	for i := 0; i < len(recs); i++ {
		rec := recs[i]
		if len(rec) < 4 {
			continue
		}
		x, y := StatusCode(rec[0]), StatusCode(rec[1])
		f := FileStatus{Staging: x, Worktree: y, Path: rec[3:]}
		// -z writes the source of a rename or copy as the next record.
		if isRenameOrCopy(x) || isRenameOrCopy(y) {
			if i+1 < len(recs) {
				i++
				f.OrigPath = recs[i]
			}
		}

		switch {
		case x == StatusUntracked && y == StatusUntracked:
			res.Untracked = append(res.Untracked, f)
		case IsConflictCode(rec[:2]):
			res.Conflicts = append(res.Conflicts, f)
		default:
			if changed(x) {
				staged := f
				staged.IsStaged = true
				res.Staged = append(res.Staged, staged)
			}
			if changed(y) {
				res.Unstaged = append(res.Unstaged, f)
			}
		}
	}
	return res
}

func isRenameOrCopy(c StatusCode) bool { return c == StatusRenamed || c == StatusCopied }

func changed(c StatusCode) bool { return c != StatusUnmodified && c != StatusUntracked }

// ── Branches ────────────────────────────────────────────────────────────────

// ParseBranchOutput parses `git branch -a` written with branchFormat:
// head marker, name, short hash, upstream, tracking counts and subject.
func ParseBranchOutput(out string) []Branch {
	var branches []Branch
	for _, line := range records(out, '\n') {
		f := strings.SplitN(line, "\x00", 6)
		if len(f) < 6 {
			continue
		}
		b := Branch{
			IsCurrent: strings.TrimSpace(f[0]) == "*",
			Name:      strings.TrimSpace(f[1]),
			Hash:      strings.TrimSpace(f[2]),
			Upstream:  strings.TrimSpace(f[3]),
			Subject:   strings.TrimSpace(f[5]),
		}
		b.Ahead, b.Behind = parseTrack(f[4])
		if name, ok := strings.CutPrefix(b.Name, "remotes/"); ok {
			b.Name, b.IsRemote = name, true
		}
		branches = append(branches, b)
	}
	return branches
}

// parseTrack reads %(upstream:track), e.g. "[ahead 2, behind 1]" or "[gone]".
func parseTrack(track string) (ahead, behind int) {
	track = strings.Trim(strings.TrimSpace(track), "[]")
	for _, part := range strings.Split(track, ",") {
		word, num, ok := strings.Cut(strings.TrimSpace(part), " ")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(num)
		if err != nil {
			continue
		}
		switch word {
		case "ahead":
			ahead = n
		case "behind":
			behind = n
		}
	}
	return ahead, behind
}

// ── Stash ───────────────────────────────────────────────────────────────────

// ParseStashList parses `git stash list`, whose lines look like
// "stash@{0}: On main: message" or "stash@{1}: WIP on main: abc123 subject".
func ParseStashList(out string) []StashEntry {
	var entries []StashEntry
	for _, line := range records(out, '\n') {
		var idx int
		if _, err := fmt.Sscanf(line, "stash@{%d}", &idx); err != nil {
			continue
		}
		e := StashEntry{Index: idx}
		_, rest, _ := strings.Cut(line, ": ")
		origin, msg, ok := strings.Cut(rest, ": ")
		if !ok {
			origin, msg = "", rest
		}
		e.Message = msg
		for _, prefix := range []string{"On ", "WIP on "} {
			if branch, found := strings.CutPrefix(origin, prefix); found {
				e.Branch = branch
				break
			}
		}
		entries = append(entries, e)
	}
	return entries
}

// ── Conflict parsing ────────────────────────────────────────────────────────

// ParseConflictPaths returns the unmerged paths of `git status --porcelain`
// (v1, newline separated) in output order without duplicates. Quoted names
// are unquoted; for a rename the destination is used.
func ParseConflictPaths(out string) []string {
	paths := []string{}
	seen := make(map[string]struct{})
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if len(line) < 4 || !IsConflictCode(line[:2]) {
			continue
		}
		path := line[3:]
		if _, after, ok := strings.Cut(path, " -> "); ok {
			path = after
		}
		path = unquotePath(path)
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}
		paths = append(paths, path)
	}
	return paths
}

// ── Rebase plan parsing ─────────────────────────────────────────────────────

// rebasePlanFormat prints one commit per line as "<short hash>\t<subject>".
const rebasePlanFormat = "--format=%h%x09%s"

// ParseRebasePlan parses rebasePlanFormat output into pick items.
func ParseRebasePlan(out string) []RebaseTodoItem {
	items := []RebaseTodoItem{}
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		hash, msg, _ := strings.Cut(line, "\t")
		items = append(items, RebaseTodoItem{
			Action:     "pick",
			CommitHash: strings.TrimSpace(hash),
			Message:    msg,
		})
	}
	return items
}

// FormatRebaseTodo renders a plan in git-rebase-todo syntax.
func FormatRebaseTodo(items []RebaseTodoItem) string {
	var b strings.Builder
	for _, it := range items {
		action := strings.TrimSpace(it.Action)
		if action == "" {
			action = "pick"
		}
		b.WriteString(action)
		b.WriteByte(' ')
		b.WriteString(it.CommitHash)
		if it.Message != "" {
			b.WriteByte(' ')
			b.WriteString(it.Message)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// ── Changed files parsing ───────────────────────────────────────────────────

// ParseNameStatus parses `--name-status -z` output.
func ParseNameStatus(out string) []ChangedFile {
	files := []ChangedFile{}
	fields := strings.Split(strings.TrimRight(out, "\x00"), "\x00")
	for i := 0; i < len(fields); i++ {
		code := strings.TrimSpace(fields[i])
		if code == "" {
			continue
		}
		f := ChangedFile{Status: StatusCode(code[0])}
		if f.Status == StatusRenamed || f.Status == StatusCopied {
			if i+2 >= len(fields) {
				break
			}
			f.OldPath, f.Path = fields[i+1], fields[i+2]
			i += 2
		} else {
			if i+1 >= len(fields) {
				break
			}
			f.Path = fields[i+1]
			i++
		}
		files = append(files, f)
	}
	return files
}

// ParseAheadBehind parses `rev-list --left-right --count A...B` output.
func ParseAheadBehind(out string) (ahead, behind int, err error) {
	fields := strings.Fields(out)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("unexpected rev-list output %q", strings.TrimSpace(out))
	}
	if ahead, err = strconv.Atoi(fields[0]); err != nil {
		return 0, 0, err
	}
	if behind, err = strconv.Atoi(fields[1]); err != nil {
		return 0, 0, err
	}
	return ahead, behind, nil
}
