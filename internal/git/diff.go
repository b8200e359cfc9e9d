package git

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// FileChangeStatus is how a file changed within one diff.
type FileChangeStatus string

const (
	FileAdded       FileChangeStatus = "added"
	FileModified    FileChangeStatus = "modified"
	FileDeleted     FileChangeStatus = "deleted"
	FileRenamed     FileChangeStatus = "renamed"
	FileTypeChanged FileChangeStatus = "typechange"
	FileUnmerged    FileChangeStatus = "unmerged"
)

// LineKind classifies a line inside a hunk.
type LineKind string

const (
	LineContext LineKind = "context"
	LineAdd     LineKind = "add"
	LineRemove  LineKind = "remove"
)

// DiffFile is one file entry of a parsed diff.
type DiffFile struct {
	Path    string           `json:"path"`
	OldPath string           `json:"oldPath,omitempty"`
	Status  FileChangeStatus `json:"status"`
	Binary  bool             `json:"binary,omitempty"`
	Hunks   []DiffHunk       `json:"hunks"`
}

// DiffHunk is a contiguous changed region. ID is random per parse and only
// meaningful within one response.
type DiffHunk struct {
	ID       string     `json:"id"`
	OldStart int        `json:"oldStart"`
	OldLines int        `json:"oldLines"`
	NewStart int        `json:"newStart"`
	NewLines int        `json:"newLines"`
	Header   string     `json:"header"`
	Lines    []DiffLine `json:"lines"`
}

// DiffLine is a single hunk line. A zero line number means the line does
// not exist on that side: adds have only NewLineNumber, removes only
// OldLineNumber, context lines both.
type DiffLine struct {
	Kind          LineKind `json:"kind"`
	Content       string   `json:"content"`
	OldLineNumber int      `json:"oldLineNumber,omitempty"`
	NewLineNumber int      `json:"newLineNumber,omitempty"`
}

// ParseDiff parses unified diff text as produced by git diff, git show or
// plain diff -u into file entries. It is a single forward pass.
func ParseDiff(text string) []DiffFile {
	p := &diffParser{files: []DiffFile{}}
	for _, line := range splitLines(text) {
		p.feed(line)
	}
	p.flushFile()
	return p.files
}

type diffParser struct {
	files []DiffFile
	file  *DiffFile
	hunk  *DiffHunk

	oldCur, newCur   int
	oldLeft, newLeft int
	oldMode          string
}

func (p *diffParser) feed(line string) {
	switch {
	case strings.HasPrefix(line, "diff --git "):
		p.startFile()
		oldPath, newPath := parseGitHeaderPaths(strings.TrimPrefix(line, "diff --git "))
		p.file.Path = newPath
		if oldPath != newPath {
			p.file.OldPath = oldPath
		}
		return
	case strings.HasPrefix(line, "diff --cc "), strings.HasPrefix(line, "diff --combined "):
		p.startFile()
		_, rest, _ := strings.Cut(line[len("diff --"):], " ")
		p.file.Path = unquotePath(rest)
		p.file.Status = FileUnmerged
		return
	case strings.HasPrefix(line, "@@"):
		if p.file == nil {
			return
		}
		oldStart, oldCount, newStart, newCount, ok := parseHunkHeader(line)
		if !ok {
			return
		}
		p.flushHunk()
		p.hunk = &DiffHunk{
			ID:       uuid.NewString(),
			OldStart: oldStart,
			OldLines: oldCount,
			NewStart: newStart,
			NewLines: newCount,
			Header:   line,
			Lines:    []DiffLine{},
		}
		p.oldCur, p.newCur = oldStart, newStart
		p.oldLeft, p.newLeft = oldCount, newCount
		return
	}

	if p.hunk != nil && !p.hunkExhausted() {
		p.feedHunkLine(line)
		return
	}

	// A hunk whose counts are used up may be followed by the next file of
	// a plain diff -u stream that has no "diff --git" lines.
	if strings.HasPrefix(line, "--- ") {
		if p.file == nil || p.hunk != nil || len(p.file.Hunks) > 0 {
			p.startFile()
		}
		if path, ok := headerPath(line[4:]); ok {
			p.file.OldPath = path
			if p.file.Path == "" {
				p.file.Path = path
			}
		} else if p.file.Status == FileModified {
			p.file.Status = FileAdded
		}
		return
	}
	if p.file == nil {
		return
	}
	if p.hunk != nil {
		p.feedHunkLine(line)
		return
	}
	p.feedHeaderLine(line)
}

func (p *diffParser) feedHeaderLine(line string) {
	f := p.file
	switch {
	case strings.HasPrefix(line, "+++ "):
		if path, ok := headerPath(line[4:]); ok {
			f.Path = path
		} else {
			f.Status = FileDeleted
		}
		if f.OldPath == f.Path {
			f.OldPath = ""
		}
	case strings.HasPrefix(line, "new file mode"):
		f.Status = FileAdded
	case strings.HasPrefix(line, "deleted file mode"):
		f.Status = FileDeleted
	case strings.HasPrefix(line, "rename from "):
		f.Status = FileRenamed
		f.OldPath = unquotePath(strings.TrimPrefix(line, "rename from "))
	case strings.HasPrefix(line, "rename to "):
		f.Status = FileRenamed
		f.Path = unquotePath(strings.TrimPrefix(line, "rename to "))
	case strings.HasPrefix(line, "old mode "):
		p.oldMode = strings.TrimPrefix(line, "old mode ")
	case strings.HasPrefix(line, "new mode "):
		if fileType(p.oldMode) != fileType(strings.TrimPrefix(line, "new mode ")) && f.Status == FileModified {
			f.Status = FileTypeChanged
		}
	case strings.HasPrefix(line, "Binary files "), line == "GIT binary patch":
		f.Binary = true
	}
}

func (p *diffParser) feedHunkLine(line string) {
	if line == "" {
		return
	}
	h := p.hunk
	switch line[0] {
	case '+':
		h.Lines = append(h.Lines, DiffLine{Kind: LineAdd, Content: line[1:], NewLineNumber: p.newCur})
		p.newCur++
		p.newLeft--
	case '-':
		h.Lines = append(h.Lines, DiffLine{Kind: LineRemove, Content: line[1:], OldLineNumber: p.oldCur})
		p.oldCur++
		p.oldLeft--
	case ' ':
		h.Lines = append(h.Lines, DiffLine{
			Kind:          LineContext,
			Content:       line[1:],
			OldLineNumber: p.oldCur,
			NewLineNumber: p.newCur,
		})
		p.oldCur++
		p.newCur++
		p.oldLeft--
		p.newLeft--
	}
}

func (p *diffParser) hunkExhausted() bool {
	return p.oldLeft <= 0 && p.newLeft <= 0
}

func (p *diffParser) startFile() {
	p.flushFile()
	p.file = &DiffFile{Status: FileModified, Hunks: []DiffHunk{}}
	p.oldMode = ""
}

func (p *diffParser) flushHunk() {
	if p.hunk == nil {
		return
	}
	p.file.Hunks = append(p.file.Hunks, *p.hunk)
	p.hunk = nil
}

func (p *diffParser) flushFile() {
	if p.file == nil {
		return
	}
	p.flushHunk()
	p.files = append(p.files, *p.file)
	p.file = nil
}

// ── header helpers ──────────────────────────────────────────────────────────

// parseHunkHeader reads "@@ -a[,b] +c[,d] @@ ...". Omitted counts are 1.
func parseHunkHeader(line string) (oldStart, oldCount, newStart, newCount int, ok bool) {
	fields := strings.Fields(line)
	if len(fields) < 3 || fields[0] != "@@" {
		return 0, 0, 0, 0, false
	}
	if !strings.HasPrefix(fields[1], "-") || !strings.HasPrefix(fields[2], "+") {
		return 0, 0, 0, 0, false
	}
	var ok1, ok2 bool
	oldStart, oldCount, ok1 = parseHunkRange(fields[1][1:])
	newStart, newCount, ok2 = parseHunkRange(fields[2][1:])
	return oldStart, oldCount, newStart, newCount, ok1 && ok2
}

func parseHunkRange(tok string) (start, count int, ok bool) {
	startStr, countStr, hasCount := strings.Cut(tok, ",")
	start, err := strconv.Atoi(startStr)
	if err != nil {
		return 0, 0, false
	}
	if !hasCount {
		return start, 1, true
	}
	count, err = strconv.Atoi(countStr)
	if err != nil {
		return 0, 0, false
	}
	return start, count, true
}

// parseGitHeaderPaths splits the "a/old b/new" part of a diff --git line.
func parseGitHeaderPaths(rest string) (oldPath, newPath string) {
	if strings.HasPrefix(rest, `"`) {
		// Quoted paths: "a/x y" "b/x y"
		if end := closingQuote(rest); end > 0 {
			oldPath = stripSidePrefix(unquotePath(rest[:end+1]))
			newPath = stripSidePrefix(unquotePath(strings.TrimSpace(rest[end+1:])))
			return oldPath, newPath
		}
	}
	if i := strings.LastIndex(rest, " b/"); i >= 0 {
		return stripSidePrefix(rest[:i]), rest[i+3:]
	}
	if i := strings.LastIndex(rest, ` "b/`); i >= 0 {
		return stripSidePrefix(rest[:i]), stripSidePrefix(unquotePath(rest[i+1:]))
	}
	return rest, rest
}

func closingQuote(s string) int {
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return -1
}

// headerPath reads the path of a ---/+++ line. ok is false for /dev/null.
func headerPath(s string) (string, bool) {
	if tab := strings.IndexByte(s, '\t'); tab >= 0 {
		s = s[:tab]
	}
	s = unquotePath(strings.TrimSpace(s))
	if s == "/dev/null" {
		return "", false
	}
	return stripSidePrefix(s), true
}

func stripSidePrefix(s string) string {
	if strings.HasPrefix(s, "a/") || strings.HasPrefix(s, "b/") {
		return s[2:]
	}
	return s
}

// unquotePath undoes git's C-style quoting of names with special characters.
func unquotePath(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		if u, err := strconv.Unquote(s); err == nil {
			return u
		}
	}
	return s
}

// fileType returns the object type bits of an octal git mode.
func fileType(mode string) string {
	if len(mode) < 5 {
		return mode
	}
	return mode[:len(mode)-4]
}

// splitLines splits on \n and drops the empty element after a trailing newline.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
