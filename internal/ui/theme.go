package ui

import "github.com/charmbracelet/lipgloss"

// Theme holds the colours used by the pretty renderers.
// The default palette is Catppuccin Mocha.
type Theme struct {
	Surface     lipgloss.Color
	Border      lipgloss.Color
	Text        lipgloss.Color
	TextMuted   lipgloss.Color
	TextSubtle  lipgloss.Color
	TextInverse lipgloss.Color

	Primary   lipgloss.Color
	Secondary lipgloss.Color

	Added     lipgloss.Color
	Modified  lipgloss.Color
	Deleted   lipgloss.Color
	Renamed   lipgloss.Color
	Conflict  lipgloss.Color
	Untracked lipgloss.Color

	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Info    lipgloss.Color

	CommitHash  lipgloss.Color
	BranchLocal lipgloss.Color
	BranchHead  lipgloss.Color
	Tag         lipgloss.Color
	Remote      lipgloss.Color
}

// DarkTheme returns the default theme.
func DarkTheme() Theme {
	return Theme{
		Surface:     lipgloss.Color("#282840"),
		Border:      lipgloss.Color("#3b3b5c"),
		Text:        lipgloss.Color("#cdd6f4"),
		TextMuted:   lipgloss.Color("#9399b2"),
		TextSubtle:  lipgloss.Color("#6c7086"),
		TextInverse: lipgloss.Color("#1e1e2e"),

		Primary:   lipgloss.Color("#89b4fa"),
		Secondary: lipgloss.Color("#b4befe"),

		Added:     lipgloss.Color("#a6e3a1"),
		Modified:  lipgloss.Color("#f9e2af"),
		Deleted:   lipgloss.Color("#f38ba8"),
		Renamed:   lipgloss.Color("#89dceb"),
		Conflict:  lipgloss.Color("#fab387"),
		Untracked: lipgloss.Color("#9399b2"),

		Success: lipgloss.Color("#a6e3a1"),
		Warning: lipgloss.Color("#f9e2af"),
		Error:   lipgloss.Color("#f38ba8"),
		Info:    lipgloss.Color("#89b4fa"),

		CommitHash:  lipgloss.Color("#f9e2af"),
		BranchLocal: lipgloss.Color("#a6e3a1"),
		BranchHead:  lipgloss.Color("#89b4fa"),
		Tag:         lipgloss.Color("#f5c2e7"),
		Remote:      lipgloss.Color("#f38ba8"),
	}
}

// Styles are the lipgloss styles derived from a Theme for one renderer.
// Styles built for a renderer writing to a pipe or file emit no escape
// sequences.
type Styles struct {
	Theme Theme

	Section lipgloss.Style
	Muted   lipgloss.Style
	Body    lipgloss.Style
	Bold    lipgloss.Style
	Label   lipgloss.Style
	Sep     lipgloss.Style
	Badge   lipgloss.Style
	Panel   lipgloss.Style

	FileAdded     lipgloss.Style
	FileModified  lipgloss.Style
	FileDeleted   lipgloss.Style
	FileRenamed   lipgloss.Style
	FileConflict  lipgloss.Style
	FileUntracked lipgloss.Style

	DiffAdded      lipgloss.Style
	DiffRemoved    lipgloss.Style
	DiffContext    lipgloss.Style
	DiffHeader     lipgloss.Style
	DiffHunkHeader lipgloss.Style
	DiffLineNum    lipgloss.Style

	CommitHash lipgloss.Style
	Author     lipgloss.Style
	Date       lipgloss.Style
	BranchName lipgloss.Style
	BranchHead lipgloss.Style
	TagName    lipgloss.Style
	RemoteName lipgloss.Style

	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style
}

// NewStyles builds all styles from t for renderer r.
func NewStyles(r *lipgloss.Renderer, t Theme) Styles {
	s := Styles{Theme: t}

	s.Section = r.NewStyle().Foreground(t.Text).Bold(true)
	s.Muted = r.NewStyle().Foreground(t.TextMuted)
	s.Body = r.NewStyle().Foreground(t.Text)
	s.Bold = r.NewStyle().Foreground(t.Text).Bold(true)
	s.Label = r.NewStyle().Foreground(t.TextMuted).Width(8)
	s.Sep = r.NewStyle().Foreground(t.Border).Faint(true)
	s.Badge = r.NewStyle().Foreground(t.TextInverse).Background(t.Warning).Bold(true).Padding(0, 1)
	s.Panel = r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.Border).Padding(0, 1)

	s.FileAdded = r.NewStyle().Foreground(t.Added)
	s.FileModified = r.NewStyle().Foreground(t.Modified)
	s.FileDeleted = r.NewStyle().Foreground(t.Deleted)
	s.FileRenamed = r.NewStyle().Foreground(t.Renamed)
	s.FileConflict = r.NewStyle().Foreground(t.Conflict).Bold(true)
	s.FileUntracked = r.NewStyle().Foreground(t.Untracked)

	s.DiffAdded = r.NewStyle().Foreground(t.Added)
	s.DiffRemoved = r.NewStyle().Foreground(t.Deleted)
	s.DiffContext = r.NewStyle().Foreground(t.TextMuted)
	s.DiffHeader = r.NewStyle().Foreground(t.Primary).Bold(true)
	s.DiffHunkHeader = r.NewStyle().Foreground(t.Secondary).Italic(true)
	s.DiffLineNum = r.NewStyle().Foreground(t.TextSubtle).Width(5).Align(lipgloss.Right)

	s.CommitHash = r.NewStyle().Foreground(t.CommitHash)
	s.Author = r.NewStyle().Foreground(t.Primary)
	s.Date = r.NewStyle().Foreground(t.TextMuted)
	s.BranchName = r.NewStyle().Foreground(t.BranchLocal)
	s.BranchHead = r.NewStyle().Foreground(t.BranchHead).Bold(true)
	s.TagName = r.NewStyle().Foreground(t.Tag).Bold(true)
	s.RemoteName = r.NewStyle().Foreground(t.Remote)

	s.Success = r.NewStyle().Foreground(t.Success)
	s.Warning = r.NewStyle().Foreground(t.Warning)
	s.Error = r.NewStyle().Foreground(t.Error)
	s.Info = r.NewStyle().Foreground(t.Info)

	return s
}

// FileStyle picks the style for a porcelain status code.
func (s Styles) FileStyle(code byte) lipgloss.Style {
	switch code {
	case 'A':
		return s.FileAdded
	case 'D':
		return s.FileDeleted
	case 'R', 'C':
		return s.FileRenamed
	case 'U':
		return s.FileConflict
	case '?':
		return s.FileUntracked
	default:
		return s.FileModified
	}
}
