// Package results is the results table view shown once a run finishes.
package results

import (
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailcheck/internal/model"
	"github.com/nhle/mailcheck/internal/report"
	"github.com/nhle/mailcheck/internal/theme"
)

// Model is the Bubble Tea model for the results table.
type Model struct {
	table   table.Model
	summary report.Summary
	width   int
	height  int

	// exportNote shows the path of the last export, if any.
	exportNote string
}

// New creates an empty results view.
func New(width, height int) Model {
	m := Model{width: width, height: height}
	m.table = buildTable(nil, width, height)
	return m
}

// SetResults fills the table with an input-ordered result list.
func (m *Model) SetResults(rs []model.Result) {
	m.summary = report.Summarize(rs)
	m.table = buildTable(rs, m.width, m.height)
	m.exportNote = ""
}

// SetExportNote records a message about the last export for display.
func (m *Model) SetExportNote(note string) {
	m.exportNote = note
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.table.SetWidth(width)
	m.table.SetHeight(tableHeight(height))
}

// Update handles table navigation.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the table with the run summary underneath.
func (m Model) View() string {
	out := m.table.View() + "\n" + theme.SummaryStyle.Render(m.summary.String())
	if m.exportNote != "" {
		out += theme.HelpStyle.Render(m.exportNote)
	}
	return lipgloss.NewStyle().Padding(0, 1).Render(out)
}

func tableHeight(height int) int {
	h := height - 8
	if h < 4 {
		h = 4
	}
	return h
}

func buildTable(rs []model.Result, width, height int) table.Model {
	header := report.TableHeader()

	detailWidth := width - 66
	if detailWidth < 16 {
		detailWidth = 16
	}
	columns := []table.Column{
		{Title: header[0], Width: 28},
		{Title: header[1], Width: 12},
		{Title: header[2], Width: 8},
		{Title: header[3], Width: 7},
		{Title: header[4], Width: 7},
		{Title: header[5], Width: detailWidth},
	}

	rows := make([]table.Row, 0, len(rs))
	for _, r := range report.TableRows(rs) {
		r[1] = theme.AuthKindStyle(r[1]).Render(r[1])
		r[2] = theme.StatusStyle(r[2]).Render(r[2])
		rows = append(rows, table.Row(r))
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(tableHeight(height)),
	)

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Bold(true).
		Foreground(theme.ColorWhite).
		BorderForeground(theme.ColorBorder)
	styles.Selected = styles.Selected.
		Bold(true).
		Foreground(theme.ColorBlue)
	t.SetStyles(styles)

	return t
}
