package ui

import (
	"strings"

	"github.com/Akashdeep-Patra/git-tools/internal/git"
)

// RenderConflict shows the ours and theirs stages of an unmerged path side by
// side, with the base below when present. Lines present on only one side
// are highlighted.
func RenderConflict(s Styles, cf *git.ConflictFile, totalWidth int) string {
	panelW := (totalWidth - 3) / 2
	if panelW < 20 {
		panelW = 20
	}

	ours := splitContent(cf.Ours)
	theirs := splitContent(cf.Theirs)
	inOurs := lineSet(ours)
	inTheirs := lineSet(theirs)

	left := []string{s.DiffHeader.Render(Truncate("ours", panelW))}
	for _, l := range ours {
		st := s.DiffContext
		if !inTheirs[l] {
			st = s.DiffRemoved
		}
		left = append(left, st.Render(Truncate(l, panelW)))
	}
	right := []string{s.DiffHeader.Render(Truncate("theirs", panelW))}
	for _, l := range theirs {
		st := s.DiffContext
		if !inOurs[l] {
			st = s.DiffAdded
		}
		right = append(right, st.Render(Truncate(l, panelW)))
	}
	for len(left) < len(right) {
		left = append(left, "")
	}
	for len(right) < len(left) {
		right = append(right, "")
	}

	sep := s.Sep.Render(" │ ")
	var sb strings.Builder
	sb.WriteString(s.Section.Render(cf.Path))
	sb.WriteByte('\n')
	for i := range left {
		sb.WriteString(PadRight(left[i], panelW))
		sb.WriteString(sep)
		sb.WriteString(right[i])
		sb.WriteByte('\n')
	}
	if cf.Base != "" {
		sb.WriteString(s.DiffHeader.Render("base"))
		sb.WriteByte('\n')
		for _, l := range splitContent(cf.Base) {
			sb.WriteString(s.Muted.Render(Truncate(l, totalWidth)))
			sb.WriteByte('\n')
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func splitContent(content string) []string {
	if content == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(content, "\n"), "\n")
}

func lineSet(lines []string) map[string]bool {
	m := make(map[string]bool, len(lines))
	for _, l := range lines {
		m[l] = true
	}
	return m
}
