package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Akashdeep-Patra/git-tools/internal/git"
)

// Summary is the one-line repository summary printed above status output.
type Summary struct {
	Branch   string
	Ahead    int
	Behind   int
	Clean    bool
	State    *git.OperationState
	RepoRoot string
}

// RenderSummary renders sections separated by dim bars, right-aligning the
// repository name when width allows.
//
//	Wide (>= 60):   main │ ↑2 ↓1 │ ● modified              git-tools
//	Medium (40-59): main │ ↑2 ↓1 │ ● modified
//	Narrow (< 40):  main │ ● modified
func RenderSummary(s Styles, d Summary, width int) string {
	sep := s.Sep.Render(" │ ")

	branch := d.Branch
	if branch == "" {
		branch = "(detached)"
	}
	left := s.BranchHead.Render(branch)

	if width >= 40 && (d.Ahead > 0 || d.Behind > 0) {
		var parts []string
		if d.Ahead > 0 {
			parts = append(parts, fmt.Sprintf("↑%d", d.Ahead))
		}
		if d.Behind > 0 {
			parts = append(parts, fmt.Sprintf("↓%d", d.Behind))
		}
		left += sep + s.Warning.Render(strings.Join(parts, " "))
	}

	switch badge := stateBadge(d.State); {
	case badge != "":
		left += sep + s.Badge.Render(badge)
	case d.Clean:
		left += sep + s.Success.Render("✓ clean")
	default:
		left += sep + s.FileModified.Render("● modified")
	}

	var right string
	if width >= 60 && d.RepoRoot != "" {
		right = s.Muted.Render(filepath.Base(d.RepoRoot))
	}
	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if right == "" || gap < 1 {
		return left
	}
	return left + strings.Repeat(" ", gap) + right
}

// stateBadge names the in-progress operation, empty when idle.
func stateBadge(st *git.OperationState) string {
	if st == nil {
		return ""
	}
	var name string
	switch {
	case st.IsRebasing:
		name = "REBASING"
	case st.IsMerging:
		name = "MERGING"
	case st.IsCherryPicking:
		name = "CHERRY-PICKING"
	case st.IsReverting:
		name = "REVERTING"
	default:
		return ""
	}
	if st.HasConflicts {
		name += fmt.Sprintf(" · %d CONFLICTS", len(st.ConflictPaths))
	}
	return name
}
