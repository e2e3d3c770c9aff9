package highlight

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/fakeyudi/proofread/internal/correction"
)

var (
	spellingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Underline(true).Bold(true)
	grammarStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Underline(true).Bold(true)
	styleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Underline(true)
	unknownStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Underline(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Bold(true)
)

// CategoryStyle returns the colour used for a category's spans and badges.
func CategoryStyle(c correction.Category) lipgloss.Style {
	switch c {
	case correction.CategorySpelling:
		return spellingStyle
	case correction.CategoryGrammar:
		return grammarStyle
	case correction.CategoryStyle:
		return styleStyle
	}
	return unknownStyle
}

// TerminalFormatter colours highlighted spans by category. Spans owned by the
// correction at Selected are drawn inverted.
type TerminalFormatter struct {
	Selected int
}

// NewTerminalFormatter returns a formatter with no selection.
func NewTerminalFormatter() TerminalFormatter {
	return TerminalFormatter{Selected: -1}
}

func (f TerminalFormatter) Plain(text string) string {
	return text
}

func (f TerminalFormatter) Highlight(seg Segment) string {
	if seg.Index == f.Selected {
		return selectedStyle.Render(seg.Text)
	}
	return CategoryStyle(seg.Correction.Category).Render(seg.Text)
}
