package git

import (
	"fmt"
	"strings"
)

// LineSelection picks one logical line of a zero-context diff. Zero means
// unset: OldLine alone selects a removal, NewLine alone an addition, and both
// together a single-line modification.
type LineSelection struct {
	OldLine int `json:"oldLineNumber,omitempty" yaml:"old_line,omitempty"`
	NewLine int `json:"newLineNumber,omitempty" yaml:"new_line,omitempty"`
}

const noNewlineMarker = `\ No newline at end of file`

// parsedPatch is a zero-context diff reduced to what line staging needs.
type parsedPatch struct {
	headerLines []string
	hunks       []patchHunk
}

type patchHunk struct {
	lines []patchLine
}

// patchLine is a changed line. oldAnchor and newAnchor hold the cursor of
// each side at the moment the line was read, i.e. where the line sits
// relative to the other file.
type patchLine struct {
	kind      LineKind
	content   string
	oldLine   int
	newLine   int
	oldAnchor int
	newAnchor int
	noNewline bool
}

// BuildLinePatch turns a zero-context diff of a single file into a patch
// that changes exactly the selected line. The result is meant for
// git apply --cached --unidiff-zero, reversed to unstage.
func BuildLinePatch(diffText string, sel LineSelection) (string, error) {
	if sel.OldLine == 0 && sel.NewLine == 0 {
		return "", ErrEmptySelection
	}
	patch, err := parseZeroContextDiff(diffText)
	if err != nil {
		return "", err
	}

	out := append([]string(nil), patch.headerLines...)
	switch {
	case sel.OldLine > 0 && sel.NewLine > 0:
		removeHunk, remove, err := patch.lookup(LineRemove, sel.OldLine)
		if err != nil {
			return "", err
		}
		addHunk, add, err := patch.lookup(LineAdd, sel.NewLine)
		if err != nil {
			return "", err
		}
		if removeHunk != addHunk {
			return "", ErrPairSpansHunks
		}
		out = append(out, fmt.Sprintf("@@ -%d,1 +%d,1 @@", remove.oldLine, add.newLine))
		out = remove.appendTo(out)
		out = add.appendTo(out)
	case sel.OldLine > 0:
		_, remove, err := patch.lookup(LineRemove, sel.OldLine)
		if err != nil {
			return "", err
		}
		out = append(out, fmt.Sprintf("@@ -%d,1 +%d,0 @@", remove.oldLine, remove.newAnchor))
		out = remove.appendTo(out)
	default:
		_, add, err := patch.lookup(LineAdd, sel.NewLine)
		if err != nil {
			return "", err
		}
		out = append(out, fmt.Sprintf("@@ -%d,0 +%d,1 @@", add.oldAnchor, add.newLine))
		out = add.appendTo(out)
	}
	return strings.Join(out, "\n") + "\n", nil
}

func (l patchLine) appendTo(out []string) []string {
	prefix := "+"
	if l.kind == LineRemove {
		prefix = "-"
	}
	out = append(out, prefix+l.content)
	if l.noNewline {
		out = append(out, noNewlineMarker)
	}
	return out
}

func (p *parsedPatch) lookup(kind LineKind, number int) (int, patchLine, error) {
	for i, h := range p.hunks {
		for _, l := range h.lines {
			if l.kind != kind {
				continue
			}
			if (kind == LineAdd && l.newLine == number) || (kind == LineRemove && l.oldLine == number) {
				return i, l, nil
			}
		}
	}
	label, side := "added", "new"
	if kind == LineRemove {
		label, side = "removed", "old"
	}
	return 0, patchLine{}, fmt.Errorf("%w: unable to find %s line %d in diff (%s)", ErrLineNotFound, label, number, side)
}

// parseZeroContextDiff reads the first file of a --unified=0 diff. Header
// lines are everything before the first hunk and are kept verbatim.
func parseZeroContextDiff(text string) (*parsedPatch, error) {
	lines := splitLines(text)
	p := &parsedPatch{}

	i := 0
	for ; i < len(lines); i++ {
		line := lines[i]
		if strings.HasPrefix(line, "@@") {
			break
		}
		if strings.HasPrefix(line, "diff --git ") && len(p.headerLines) > 0 {
			break
		}
		p.headerLines = append(p.headerLines, line)
	}
	if len(p.headerLines) == 0 {
		return nil, fmt.Errorf("%w: unable to parse diff header", ErrNoHunks)
	}

	for i < len(lines) {
		line := lines[i]
		if strings.HasPrefix(line, "diff --git ") {
			break
		}
		if !strings.HasPrefix(line, "@@") {
			i++
			continue
		}
		hunk, next, err := parsePatchHunk(lines, i)
		if err != nil {
			return nil, err
		}
		p.hunks = append(p.hunks, hunk)
		i = next
	}

	if len(p.hunks) == 0 {
		return nil, ErrNoHunks
	}
	return p, nil
}

func parsePatchHunk(lines []string, start int) (patchHunk, int, error) {
	oldStart, _, newStart, _, ok := parseHunkHeader(lines[start])
	if !ok {
		return patchHunk{}, 0, fmt.Errorf("invalid hunk header %q", lines[start])
	}
	oldCur, newCur := oldStart, newStart

	var h patchHunk
	i := start + 1
	for ; i < len(lines); i++ {
		line := lines[i]
		if strings.HasPrefix(line, "@@") || strings.HasPrefix(line, "diff --git ") {
			break
		}
		switch {
		case strings.HasPrefix(line, `\`):
			if n := len(h.lines); n > 0 {
				h.lines[n-1].noNewline = true
			}
		case strings.HasPrefix(line, "+"):
			h.lines = append(h.lines, patchLine{
				kind: LineAdd, content: line[1:],
				newLine: newCur, oldAnchor: oldCur, newAnchor: newCur,
			})
			newCur++
		case strings.HasPrefix(line, "-"):
			h.lines = append(h.lines, patchLine{
				kind: LineRemove, content: line[1:],
				oldLine: oldCur, oldAnchor: oldCur, newAnchor: newCur,
			})
			oldCur++
		case strings.HasPrefix(line, " "):
			oldCur++
			newCur++
		}
	}
	return h, i, nil
}
