package ui

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Akashdeep-Patra/git-tools/internal/git"
)

// DefaultWidth is used when the output width is unknown.
const DefaultWidth = 100

// Printer writes styled views of engine results to one writer. Colour is
// decided by the writer: pipes and files get plain text.
type Printer struct {
	w     io.Writer
	s     Styles
	width int
}

// NewPrinter returns a printer for w. width <= 0 means DefaultWidth.
func NewPrinter(w io.Writer, width int) *Printer {
	if width <= 0 {
		width = DefaultWidth
	}
	return &Printer{w: w, s: NewStyles(lipgloss.NewRenderer(w), DarkTheme()), width: width}
}

// Styles returns the printer's styles.
func (p *Printer) Styles() Styles { return p.s }

func (p *Printer) print(lines ...string) error {
	_, err := io.WriteString(p.w, strings.Join(lines, "\n")+"\n")
	return err
}

// Status prints the summary line followed by each non-empty file group.
func (p *Printer) Status(sum Summary, st *git.StatusResult) error {
	s := p.s
	sum.Clean = st.TotalCount() == 0
	out := []string{RenderSummary(s, sum, p.width)}

	groups := []struct {
		title string
		files []git.FileStatus
		code  func(git.FileStatus) git.StatusCode
	}{
		{"Conflicts", st.Conflicts, func(f git.FileStatus) git.StatusCode { return git.StatusUnmerged }},
		{"Staged changes", st.Staged, func(f git.FileStatus) git.StatusCode { return f.Staging }},
		{"Unstaged changes", st.Unstaged, func(f git.FileStatus) git.StatusCode { return f.Worktree }},
		{"Untracked files", st.Untracked, func(f git.FileStatus) git.StatusCode { return git.StatusUntracked }},
	}
	for _, g := range groups {
		if len(g.files) == 0 {
			continue
		}
		out = append(out, "", s.Section.Render(fmt.Sprintf("%s (%d)", g.title, len(g.files))))
		for _, f := range g.files {
			code := g.code(f)
			name := f.Path
			if f.OrigPath != "" {
				name = f.OrigPath + " → " + f.Path
			}
			out = append(out, "  "+s.FileStyle(byte(code)).Render(code.String()+"  "+name))
		}
	}
	return p.print(out...)
}

// OperationState prints the in-progress operation and its conflicts.
func (p *Printer) OperationState(st *git.OperationState) error {
	s := p.s
	badge := stateBadge(st)
	if badge == "" {
		return p.print(s.Muted.Render("No operation in progress"))
	}
	out := []string{s.Badge.Render(badge)}
	if st.OursCommit != "" || st.OursBranch != "" {
		out = append(out, "  "+s.Label.Render("ours")+p.ref(st.OursCommit, st.OursBranch))
	}
	if st.TheirsCommit != "" || st.TheirsBranch != "" {
		out = append(out, "  "+s.Label.Render("theirs")+p.ref(st.TheirsCommit, st.TheirsBranch))
	}
	if st.HasConflicts {
		out = append(out, "", s.Section.Render(fmt.Sprintf("Conflicts (%d)", len(st.ConflictPaths))))
		for _, path := range st.ConflictPaths {
			out = append(out, "  "+s.FileConflict.Render(path))
		}
	}
	return p.print(out...)
}

func (p *Printer) ref(commit, branch string) string {
	return JoinNonEmpty(" ", p.s.CommitHash.Render(shortHash(commit)), p.s.BranchName.Render(branch))
}

// RebaseStatus prints the rebase state machine position.
func (p *Printer) RebaseStatus(rs *git.FullRebaseStatus) error {
	s := p.s
	var state string
	switch rs.Status {
	case git.RebaseIdle:
		return p.print(s.Muted.Render("No rebase in progress"))
	case git.RebaseConflicted:
		state = s.Error.Render("conflicted")
	default:
		state = s.Warning.Render("in progress")
	}
	head := s.Section.Render("Rebase") + " " + state
	if rs.Step != nil && rs.Step.Total > 0 {
		head += s.Muted.Render(fmt.Sprintf("  step %d/%d", rs.Step.Current, rs.Step.Total))
	}
	out := []string{head}
	if rs.Step != nil && (rs.Step.CommitHash != "" || rs.Step.CommitMessage != "") {
		out = append(out, "  "+s.Label.Render("commit")+
			JoinNonEmpty(" ", s.CommitHash.Render(shortHash(rs.Step.CommitHash)), s.Body.Render(rs.Step.CommitMessage)))
	}
	if rs.OntoBranch != "" {
		out = append(out, "  "+s.Label.Render("onto")+s.BranchName.Render(rs.OntoBranch))
	}
	if rs.UpstreamBranch != "" {
		out = append(out, "  "+s.Label.Render("branch")+s.BranchName.Render(rs.UpstreamBranch))
	}
	return p.print(out...)
}

// RebasePlan prints a plan in todo order.
func (p *Printer) RebasePlan(items []git.RebaseTodoItem) error {
	s := p.s
	if len(items) == 0 {
		return p.print(s.Muted.Render("Nothing to rebase"))
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, PadRight(s.Info.Render(it.Action), 7)+" "+
			s.CommitHash.Render(shortHash(it.CommitHash))+" "+s.Body.Render(it.Message))
	}
	return p.print(out...)
}

// CommandResult prints the outcome of a sequencer step.
func (p *Printer) CommandResult(res *git.CommandResult) error {
	s := p.s
	var out []string
	switch {
	case res.Success:
		out = append(out, s.Success.Render("✓ done"))
	case res.Conflicted:
		out = append(out, s.Warning.Render("⚠ stopped on conflicts; resolve them, then continue"))
	default:
		out = append(out, s.Error.Render(fmt.Sprintf("✗ failed (exit %d)", res.ExitCode)))
	}
	if msg := strings.TrimSpace(res.Stderr); msg != "" && !res.Success {
		out = append(out, s.Muted.Render(msg))
	}
	return p.print(out...)
}

// Diff prints parsed diff files with old and new line number gutters.
func (p *Printer) Diff(files []git.DiffFile) error {
	s := p.s
	if len(files) == 0 {
		return p.print(s.Muted.Render("No changes"))
	}
	var out []string
	for i, f := range files {
		if i > 0 {
			out = append(out, "")
		}
		name := f.Path
		if f.OldPath != "" && f.OldPath != f.Path {
			name = f.OldPath + " → " + f.Path
		}
		out = append(out, s.DiffHeader.Render(name)+" "+s.Muted.Render("("+string(f.Status)+")"))
		if f.Binary {
			out = append(out, s.Muted.Render("  binary file"))
			continue
		}
		for _, h := range f.Hunks {
			out = append(out, s.DiffHunkHeader.Render(h.Header))
			for _, l := range h.Lines {
				out = append(out, p.diffLine(l))
			}
		}
	}
	return p.print(out...)
}

func (p *Printer) diffLine(l git.DiffLine) string {
	s := p.s
	num := func(n int) string {
		if n == 0 {
			return s.DiffLineNum.Render("")
		}
		return s.DiffLineNum.Render(strconv.Itoa(n))
	}
	gutter := num(l.OldLineNumber) + num(l.NewLineNumber) + " "
	switch l.Kind {
	case git.LineAdd:
		return gutter + s.DiffAdded.Render("+"+l.Content)
	case git.LineRemove:
		return gutter + s.DiffRemoved.Render("-"+l.Content)
	default:
		return gutter + s.DiffContext.Render(" "+l.Content)
	}
}

// Commits prints one commit per line.
func (p *Printer) Commits(commits []git.Commit) error {
	s := p.s
	if len(commits) == 0 {
		return p.print(s.Muted.Render("No commits"))
	}
	out := make([]string, 0, len(commits))
	for _, c := range commits {
		var refs []string
		for _, r := range c.Refs {
			switch r.Type {
			case git.RefTag:
				refs = append(refs, s.TagName.Render("tag: "+r.Name))
			case git.RefRemoteBranch:
				refs = append(refs, s.RemoteName.Render(r.Name))
			case git.RefHead:
				refs = append(refs, s.BranchHead.Render(r.Name))
			default:
				refs = append(refs, s.BranchName.Render(r.Name))
			}
		}
		decor := ""
		if len(refs) > 0 {
			decor = "(" + strings.Join(refs, ", ") + ")"
		}
		out = append(out, JoinNonEmpty(" ",
			s.CommitHash.Render(c.ShortHash),
			decor,
			s.Body.Render(Truncate(c.Subject, p.width/2)),
			s.Author.Render(c.Author),
			s.Date.Render(c.RelDate),
		))
	}
	return p.print(out...)
}

// Branches prints branches, marking the current one.
func (p *Printer) Branches(branches []git.Branch) error {
	s := p.s
	if len(branches) == 0 {
		return p.print(s.Muted.Render("No branches"))
	}
	out := make([]string, 0, len(branches))
	for _, b := range branches {
		marker, name := "  ", s.BranchName.Render(b.Name)
		switch {
		case b.IsCurrent:
			marker, name = "* ", s.BranchHead.Render(b.Name)
		case b.IsRemote:
			name = s.RemoteName.Render(b.Name)
		}
		var sync []string
		if b.Ahead > 0 {
			sync = append(sync, fmt.Sprintf("↑%d", b.Ahead))
		}
		if b.Behind > 0 {
			sync = append(sync, fmt.Sprintf("↓%d", b.Behind))
		}
		out = append(out, marker+JoinNonEmpty(" ",
			name,
			s.CommitHash.Render(shortHash(b.Hash)),
			s.Warning.Render(strings.Join(sync, " ")),
			s.Muted.Render(b.Subject),
		))
	}
	return p.print(out...)
}

// Stashes prints stash entries, newest first as git lists them.
func (p *Printer) Stashes(entries []git.StashEntry) error {
	s := p.s
	if len(entries) == 0 {
		return p.print(s.Muted.Render("No stashes"))
	}
	out := []string{s.Section.Render(fmt.Sprintf("Stash (%d)", len(entries)))}
	for _, e := range entries {
		line := s.CommitHash.Render(fmt.Sprintf("stash@{%d}", e.Index)) + " " + s.Body.Render(Truncate(e.Message, p.width/2))
		if e.Branch != "" {
			line += s.BranchName.Render(" on " + e.Branch)
		}
		out = append(out, "  "+line)
	}
	return p.print(out...)
}

// Conflict prints one conflict file side by side.
func (p *Printer) Conflict(cf *git.ConflictFile) error {
	return p.print(RenderConflict(p.s, cf, p.width))
}

// Paths prints a plain path list under a title.
func (p *Printer) Paths(title string, paths []string) error {
	s := p.s
	if len(paths) == 0 {
		return p.print(s.Muted.Render("No " + strings.ToLower(title)))
	}
	out := []string{s.Section.Render(fmt.Sprintf("%s (%d)", title, len(paths)))}
	for _, path := range paths {
		out = append(out, "  "+s.FileConflict.Render(path))
	}
	return p.print(out...)
}

// Diagnostics prints the git installation details.
func (p *Printer) Diagnostics(d *git.Diagnostics) error {
	s := p.s
	row := func(k, v string) string { return s.Label.Width(10).Render(k) + s.Body.Render(v) }
	out := []string{row("git", d.GitVersion), row("binary", d.GitBinary)}
	if d.RepoRoot != "" {
		out = append(out, row("repo", d.RepoRoot), row("git dir", d.GitDir))
	}
	return p.print(out...)
}

// Message prints a single informational line.
func (p *Printer) Message(msg string) error {
	return p.print(p.s.Success.Render("✓ " + msg))
}
