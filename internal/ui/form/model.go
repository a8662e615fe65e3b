// Package form is the credential input view: a paste box for
// email:password lines, an optional list of client secret files, and run
// options.
package form

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailcheck/internal/theme"
)

// SubmitMsg is dispatched when the user confirms the form.
type SubmitMsg struct {
	// Lines is the raw pasted email:password text.
	Lines string

	// SecretFiles are paths to OAuth2 client secret JSON files.
	SecretFiles []string

	// ProbeLatest enables the latest-activity probe for this run.
	ProbeLatest bool
}

// CancelMsg is dispatched when the user aborts the form.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	lines       string
	secretFiles string
	probeLatest bool
}

// Model is the Bubble Tea model for the credential input form.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	width  int
	height int
}

// New creates a new credential form model.
func New(width, height int, probeDefault bool) Model {
	return Model{
		fb:     &formBindings{probeLatest: probeDefault},
		width:  width,
		height: height,
	}
}

// Start initializes the form for a new run.
func (m *Model) Start() tea.Cmd {
	m.fb.lines = ""
	m.fb.secretFiles = ""
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the credential form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m, m.handleSubmit()
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the credential form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render("Check Gmail Credentials") + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("Credentials").
				Description("One per line: email:app-password").
				Placeholder("user@gmail.com:abcdefghijklmnop").
				Value(&m.fb.lines),
			huh.NewInput().
				Title("Client secret files").
				Description("Comma-separated paths to OAuth2 client_secret JSON files (optional)").
				Placeholder("client_secret.json, other_client.json").
				Value(&m.fb.secretFiles),
			huh.NewConfirm().
				Title("Probe latest inbox message?").
				Value(&m.fb.probeLatest),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m *Model) formWidth() int {
	w := m.width - 8
	if w < 40 {
		w = 40
	}
	return w
}

func (m *Model) formHeight() int {
	h := m.height - 6
	if h < 12 {
		h = 12
	}
	return h
}

func (m Model) handleSubmit() tea.Cmd {
	var files []string
	for _, f := range strings.Split(m.fb.secretFiles, ",") {
		f = strings.TrimSpace(f)
		if f != "" {
			files = append(files, f)
		}
	}

	msg := SubmitMsg{
		Lines:       m.fb.lines,
		SecretFiles: files,
		ProbeLatest: m.fb.probeLatest,
	}
	return func() tea.Msg { return msg }
}
