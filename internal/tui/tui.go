// Package tui provides the interactive proofreading editor.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fakeyudi/proofread/internal/analysis"
	"github.com/fakeyudi/proofread/internal/atomicfile"
	"github.com/fakeyudi/proofread/internal/correction"
	"github.com/fakeyudi/proofread/internal/highlight"
	"github.com/fakeyudi/proofread/internal/history"
	"github.com/fakeyudi/proofread/internal/session"
)

// ── Styles ────────────

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("16")).
			Background(lipgloss.Color("214")).
			Padding(0, 2)

	sectionHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238"))

	activePaneStyle = paneStyle.BorderForeground(lipgloss.Color("62"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("82")).
		Bold(true)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)

	selectedRowStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("237"))
)

type focus int

const (
	focusEditor focus = iota
	focusCorrections
	focusHistory
)

// ── Messages ────────────

type analysisDoneMsg struct {
	submitted string
	result    correction.Result
	err       error
}

type historySavedMsg struct{ err error }

type fileSavedMsg struct {
	path string
	err  error
}

// ── Model ────────────────────

// Options configures the editor.
type Options struct {
	// Path is where ctrl+s writes the buffer. Empty disables saving.
	Path   string
	Logger *slog.Logger
}

// Model is the root Bubble Tea model for the editor.
type Model struct {
	sess    *session.Session
	orch    *analysis.Orchestrator
	hist    *history.Store
	path    string
	logger  *slog.Logger
	editor  textarea.Model
	preview viewport.Model
	spinner spinner.Model

	focus      focus
	cursor     int
	histCursor int
	needsSetup bool
	status     string
	err        error
	width      int
	height     int
	ready      bool
}

// New creates an editor over sess. hist may be nil.
func New(sess *session.Session, orch *analysis.Orchestrator, hist *history.Store, opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ta := textarea.New()
	ta.Placeholder = "Type or paste text, then press ctrl+r to analyze…"
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.MaxHeight = 0
	ta.SetValue(sess.Buffer())
	ta.Focus()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))

	return Model{
		sess:       sess,
		orch:       orch,
		hist:       hist,
		path:       opts.Path,
		logger:     logger.With("component", "tui"),
		editor:     ta,
		spinner:    sp,
		needsSetup: !orch.CanAnalyze(),
		preview:    viewport.New(0, 0),
	}
}

// ── Bubble Tea interface ───────────────

func (m Model) Init() tea.Cmd { return textarea.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case analysisDoneMsg:
		return m.finishAnalysis(msg)

	case historySavedMsg:
		if msg.err != nil {
			m.status = "history not saved: " + msg.err.Error()
		}
		return m, nil

	case fileSavedMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.status = "saved " + msg.path
		}
		return m, nil

	case spinner.TickMsg:
		if !m.sess.InFlight() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "ctrl+r":
		return m.startAnalysis()
	case "ctrl+a":
		if m.sess.ApplyAll() {
			m.syncEditor()
			m.status = "applied all corrections"
			m.focus = focusEditor
		}
		m.refresh()
		return m, nil
	case "ctrl+l":
		m.sess.Clear()
		m.editor.Reset()
		m.cursor = 0
		m.err = nil
		m.status = "cleared"
		m.focus = focusEditor
		m.refresh()
		return m, nil
	case "ctrl+o":
		if m.focus == focusHistory {
			m.focus = focusEditor
		} else if m.hist != nil {
			m.focus = focusHistory
			m.histCursor = 0
		}
		m.refresh()
		return m, nil
	case "ctrl+s":
		if m.path == "" {
			m.status = "no file to save to"
			return m, nil
		}
		return m, saveFileCmd(m.path, m.sess.Buffer())
	case "tab":
		switch m.focus {
		case focusEditor:
			if len(m.sess.Corrections()) > 0 {
				m.focus = focusCorrections
			}
		default:
			m.focus = focusEditor
		}
		m.refresh()
		return m, nil
	case "esc":
		if m.focus != focusEditor {
			m.focus = focusEditor
			m.refresh()
		}
		return m, nil
	}

	switch m.focus {
	case focusCorrections:
		return m.handleCorrectionsKey(msg)
	case focusHistory:
		return m.handleHistoryKey(msg)
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	if v := m.editor.Value(); v != m.sess.Buffer() {
		if m.sess.Edit(v) {
			m.status = "text changed; corrections cleared"
			m.cursor = 0
		}
		m.refresh()
	}
	return m, cmd
}

func (m Model) handleCorrectionsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(m.sess.Corrections())
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < n-1 {
			m.cursor++
		}
	case "enter", " ":
		out, ok := m.sess.ApplySingle(m.cursor)
		if !ok {
			return m, nil
		}
		m.syncEditor()
		switch {
		case out.Replaced == 0:
			m.status = "span no longer in text; correction dismissed"
		default:
			m.status = fmt.Sprintf("applied %d replacement(s)", out.Replaced)
		}
		if left := len(m.sess.Corrections()); left == 0 {
			m.focus = focusEditor
			m.cursor = 0
		} else if m.cursor >= left {
			m.cursor = left - 1
		}
	}
	m.refresh()
	return m, nil
}

func (m Model) handleHistoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	entries := m.hist.Entries()
	switch msg.String() {
	case "up", "k":
		if m.histCursor > 0 {
			m.histCursor--
		}
	case "down", "j":
		if m.histCursor < len(entries)-1 {
			m.histCursor++
		}
	case "enter", " ":
		if m.histCursor < len(entries) {
			text, res := history.Select(entries[m.histCursor])
			m.sess.Restore(text, res)
			m.syncEditor()
			m.cursor = 0
			m.focus = focusEditor
			m.status = "restored entry from " + entries[m.histCursor].Time().Format("Jan 2 15:04")
		}
	}
	m.refresh()
	return m, nil
}

func (m Model) startAnalysis() (tea.Model, tea.Cmd) {
	if m.sess.InFlight() {
		m.status = "analysis already running"
		return m, nil
	}
	if strings.TrimSpace(m.sess.Buffer()) == "" {
		m.err = analysis.ErrEmptyInput
		return m, nil
	}
	if !m.orch.CanAnalyze() {
		m.needsSetup = true
		m.err = analysis.ErrMissingCredential
		return m, nil
	}
	submitted, err := m.sess.Begin()
	if err != nil {
		m.err = err
		return m, nil
	}
	m.err = nil
	m.status = "analyzing…"
	return m, tea.Batch(m.spinner.Tick, analyzeCmd(m.orch, submitted))
}

func (m Model) finishAnalysis(msg analysisDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.sess.Abort()
		m.err = msg.err
		m.status = ""
		var ae *analysis.Error
		if errors.As(msg.err, &ae) && ae.NeedsSetup() {
			m.needsSetup = true
		}
		m.refresh()
		return m, nil
	}

	out := m.orch.Accept(m.sess, msg.submitted, msg.result)
	m.needsSetup = false
	m.cursor = 0
	switch {
	case !out.Accepted:
		m.status = "text changed while analyzing; result discarded"
	case out.Result.IsFullyCorrect:
		m.status = "no corrections: the text looks correct"
	default:
		m.status = fmt.Sprintf("%d correction(s); tab to review", len(out.Result.Corrections))
	}
	m.refresh()
	if out.Recorded {
		return m, saveHistoryCmd(m.hist, out.Snapshot)
	}
	return m, nil
}

// ── Commands ────────────

func analyzeCmd(orch *analysis.Orchestrator, text string) tea.Cmd {
	return func() tea.Msg {
		res, err := orch.Analyze(context.Background(), text)
		return analysisDoneMsg{submitted: text, result: res, err: err}
	}
}

func saveHistoryCmd(h *history.Store, snap history.Snapshot) tea.Cmd {
	return func() tea.Msg {
		return historySavedMsg{err: h.Save(snap)}
	}
}

func saveFileCmd(path, text string) tea.Cmd {
	return func() tea.Msg {
		return fileSavedMsg{path: path, err: atomicfile.Write(path, []byte(text))}
	}
}

// ── Layout ───────────────────

func (m *Model) syncEditor() {
	m.editor.SetValue(m.sess.Buffer())
}

func (m *Model) layout() {
	// title(1) + banner(1) + panel + status(1); panes carry a 2-row border.
	paneW := m.width/2 - 2
	if paneW < 10 {
		paneW = 10
	}
	paneH := (m.height - 3) * 3 / 5
	if paneH < 3 {
		paneH = 3
	}
	m.editor.SetWidth(paneW)
	m.editor.SetHeight(paneH)
	m.preview.Width = paneW
	m.preview.Height = paneH
	m.refresh()
}

func (m *Model) refresh() {
	sel := -1
	if m.focus == focusCorrections {
		sel = m.cursor
	}
	body := m.sess.Render().Format(highlight.TerminalFormatter{Selected: sel})
	if m.preview.Width > 0 {
		body = lipgloss.NewStyle().Width(m.preview.Width).Render(body)
	}
	m.preview.SetContent(body)
}

func (m Model) View() string {
	if !m.ready {
		return "Loading…"
	}

	title := titleStyle.Width(m.width).Render("  proofread  " + m.path)

	rows := []string{title}
	if m.needsSetup {
		rows = append(rows, bannerStyle.Width(m.width).Render("No API key found. Run 'proofread setup' or export the configured key variable."))
	}

	edStyle, pvStyle := paneStyle, paneStyle
	if m.focus == focusEditor {
		edStyle = activePaneStyle
	} else {
		pvStyle = activePaneStyle
	}
	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		edStyle.Render(m.editor.View()),
		pvStyle.Render(m.preview.View()),
	)
	rows = append(rows, panes)

	if m.focus == focusHistory {
		rows = append(rows, m.renderHistory())
	} else {
		rows = append(rows, m.renderCorrections())
	}
	rows = append(rows, m.renderStatus())
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m Model) renderCorrections() string {
	var sb strings.Builder
	res, ok := m.sess.Result()
	switch {
	case !ok:
		sb.WriteString(dimStyle.Render("  (no analysis yet)") + "\n")
		return sb.String()
	case res.IsFullyCorrect:
		if res.Summary != "" {
			sb.WriteString("  " + res.Summary + "\n")
		}
		sb.WriteString(okStyle.Render("  ✓ no corrections") + "\n")
		return sb.String()
	}

	sb.WriteString(sectionHeader.Render(fmt.Sprintf("  Corrections (%d)", len(res.Corrections))) + "\n")
	if res.Summary != "" {
		sb.WriteString(dimStyle.Render("  "+res.Summary) + "\n")
	}
	for i, c := range res.Corrections {
		badge := highlight.CategoryStyle(c.Category).Render("[" + c.DisplayLabel() + "]")
		row := fmt.Sprintf("  %2d. %s %s → %s", i+1, badge, c.OriginalSpan, c.SuggestedSpan)
		if m.focus == focusCorrections && i == m.cursor {
			row = selectedRowStyle.Width(m.width - 2).Render(row)
			if c.Rationale != "" {
				row += "\n" + dimStyle.Render("      "+c.Rationale)
			}
		}
		sb.WriteString(row + "\n")
	}
	return sb.String()
}

func (m Model) renderHistory() string {
	var sb strings.Builder
	entries := m.hist.Entries()
	sb.WriteString(sectionHeader.Render(fmt.Sprintf("  History (%d)", len(entries))) + "\n")
	if len(entries) == 0 {
		sb.WriteString(dimStyle.Render("  (none)") + "\n")
		return sb.String()
	}
	for i, e := range entries {
		ts := timeStyle.Render(e.Time().Format("Jan 2 15:04"))
		row := fmt.Sprintf("  %s  %-40s  %d correction(s)", ts, preview(e.SourceText, 40), len(e.Result.Corrections))
		if i == m.histCursor {
			row = selectedRowStyle.Width(m.width - 2).Render(row)
		}
		sb.WriteString(row + "\n")
	}
	return sb.String()
}

func (m Model) renderStatus() string {
	chars, words := m.sess.Stats()
	left := fmt.Sprintf("%d chars  %d words", chars, words)
	switch {
	case m.sess.InFlight():
		left += "  " + m.spinner.View() + " analyzing…"
	case m.err != nil:
		left += "  " + errorStyle.Render(m.err.Error())
	case m.status != "":
		left += "  " + m.status
	}

	hint := "ctrl+r analyze  tab review  ctrl+a apply all  ctrl+o history  ctrl+l clear  ctrl+c quit"
	if m.path != "" {
		hint = "ctrl+s save  " + hint
	}
	pad := m.width - lipgloss.Width(left) - lipgloss.Width(hint) - 2
	if pad < 1 {
		pad = 1
	}
	return statusBarStyle.Width(m.width).Render(left + strings.Repeat(" ", pad) + dimStyle.Render(hint))
}

// preview shortens s to n runes on a single line.
func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// Run starts the editor.
func Run(m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
