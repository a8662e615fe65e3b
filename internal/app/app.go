// Package app wires the credential form, run progress, and results views
// into the root Bubble Tea model.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/mailcheck/internal/auth"
	"github.com/nhle/mailcheck/internal/count"
	"github.com/nhle/mailcheck/internal/history"
	"github.com/nhle/mailcheck/internal/logging"
	"github.com/nhle/mailcheck/internal/model"
	"github.com/nhle/mailcheck/internal/parse"
	"github.com/nhle/mailcheck/internal/report"
	"github.com/nhle/mailcheck/internal/run"
	"github.com/nhle/mailcheck/internal/theme"
	"github.com/nhle/mailcheck/internal/ui"
	"github.com/nhle/mailcheck/internal/ui/form"
	"github.com/nhle/mailcheck/internal/ui/results"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewForm ViewState = iota
	ViewRunning
	ViewResults
)

// archivedMsg reports the outcome of writing the optional run archive.
type archivedMsg struct {
	runID string
	err   error
}

// Model is the root Bubble Tea model that manages view routing and the
// processing pipeline.
type Model struct {
	currentView ViewState
	layout      ui.Layout
	keys        *KeyMap

	cfg     *model.AppConfig
	cfgPath string
	log     logging.Logger
	tokens  auth.TokenStore
	archive *history.Store

	formView    form.Model
	resultsView results.Model
	prog        progress.Model

	runner    *run.Runner
	cancelRun context.CancelFunc
	startedAt time.Time
	completed int
	total     int
	lastLine  string
	results   []model.Result

	initCmd tea.Cmd
	ready   bool
}

// New creates the root application model. archive may be nil when run
// archiving is disabled.
func New(cfg *model.AppConfig, cfgPath string, log logging.Logger, tokens auth.TokenStore, archive *history.Store) Model {
	m := Model{
		currentView: ViewForm,
		layout:      ui.NewLayout(80, 24),
		keys:        DefaultKeyMap(),
		cfg:         cfg,
		cfgPath:     cfgPath,
		log:         log,
		tokens:      tokens,
		archive:     archive,
		formView:    form.New(80, 24, cfg.Check.ProbeLatest),
		resultsView: results.New(80, 24),
		prog:        progress.New(progress.WithDefaultGradient()),
	}
	m.initCmd = m.formView.Start()
	return m
}

// Init starts the credential form.
func (m Model) Init() tea.Cmd {
	return m.initCmd
}

// Update routes messages to the active view and drives the pipeline.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.formView.SetSize(msg.Width, m.layout.ContentHeight())
		m.resultsView.SetSize(msg.Width, m.layout.ContentHeight())
		m.prog.Width = msg.Width - 8
		m.ready = true
		return m, nil

	case form.SubmitMsg:
		return m.startRun(msg)

	case form.CancelMsg:
		return m, tea.Quit

	case run.ProgressMsg:
		m.completed = msg.Completed
		m.total = msg.Total
		m.lastLine = msg.Result.Summary()
		return m, m.runner.WaitForEvent()

	case run.DoneMsg:
		if m.cancelRun != nil {
			m.cancelRun()
			m.cancelRun = nil
		}
		m.results = msg.Results
		m.resultsView.SetResults(msg.Results)
		m.currentView = ViewResults
		return m, m.archiveCmd(msg.Results)

	case archivedMsg:
		if msg.err != nil {
			m.log.Warn(context.Background(), "archiving run failed", "error", msg.err)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateActiveView(msg)
}

// handleKey dispatches keys that belong to the root model; everything else
// falls through to the active view.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.currentView {
	case ViewRunning:
		if key.Matches(msg, m.keys.Cancel) && m.cancelRun != nil {
			m.cancelRun()
			return m, nil
		}
		if key.Matches(msg, m.keys.Quit) {
			if m.cancelRun != nil {
				m.cancelRun()
			}
			return m, tea.Quit
		}
		return m, nil

	case ViewResults:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.ExportCSV):
			m.exportCSV()
			return m, nil
		case key.Matches(msg, m.keys.ExportSummary):
			m.exportSummary()
			return m, nil
		case key.Matches(msg, m.keys.NewRun):
			m.currentView = ViewForm
			return m, m.formView.Start()
		}
		return m.updateActiveView(msg)
	}

	return m.updateActiveView(msg)
}

// updateActiveView forwards a message to whichever view is showing.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.currentView {
	case ViewForm:
		m.formView, cmd = m.formView.Update(msg)
	case ViewResults:
		m.resultsView, cmd = m.resultsView.Update(msg)
	}
	return m, cmd
}

// startRun parses the submitted input and launches the batch.
func (m Model) startRun(msg form.SubmitMsg) (tea.Model, tea.Cmd) {
	parser := parse.New()
	var input parse.Output

	parser.Text(msg.Lines, &input)
	for _, path := range msg.SecretFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			input.Failures = append(input.Failures, parse.Failure{
				Kind:     model.AuthOAuth2,
				Raw:      path,
				Reason:   fmt.Sprintf("reading file: %v", err),
				Position: input.Total(),
			})
			continue
		}
		parser.File(filepath.Base(path), data, &input)
	}

	if input.Total() == 0 {
		// Nothing to do; stay on the form.
		return m, m.formView.Start()
	}

	if err := m.cfg.SetProbeLatest(m.cfgPath, msg.ProbeLatest); err != nil {
		m.log.Warn(context.Background(), "saving probe choice failed", "error", err)
	}

	counter := count.New(m.cfg.IMAP, m.cfg.Check, m.log)
	authenticators := []auth.Authenticator{
		auth.NewPasswordAuthenticator(m.cfg.IMAP, m.log),
		auth.NewOAuth2Authenticator(m.cfg.IMAP, m.tokens, m.log),
	}
	m.runner = run.New(authenticators, counter, m.cfg.Check.Workers, m.log)

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelRun = cancel
	m.startedAt = time.Now()
	m.completed = 0
	m.total = input.Total()
	m.lastLine = ""
	m.currentView = ViewRunning

	return m, m.runner.Start(ctx, input)
}

// archiveCmd writes the finished run to the history database, if enabled.
func (m Model) archiveCmd(rs []model.Result) tea.Cmd {
	if m.archive == nil {
		return nil
	}
	startedAt := m.startedAt
	return func() tea.Msg {
		id, err := m.archive.SaveRun(context.Background(), startedAt, rs)
		return archivedMsg{runID: id, err: err}
	}
}

// exportCSV writes the current results to a timestamped CSV in the scratch
// directory.
func (m *Model) exportCSV() {
	path := m.scratchFile("mailcheck_results", "csv")
	f, err := os.Create(path)
	if err != nil {
		m.resultsView.SetExportNote(fmt.Sprintf("export failed: %v", err))
		return
	}
	defer f.Close()

	if err := report.WriteCSV(f, m.results); err != nil {
		m.resultsView.SetExportNote(fmt.Sprintf("export failed: %v", err))
		return
	}
	m.resultsView.SetExportNote("CSV written to " + path)
}

// exportSummary writes the plain-text summary to the scratch directory.
func (m *Model) exportSummary() {
	path := m.scratchFile("mailcheck_summary", "txt")
	summary := report.Summarize(m.results)
	if err := os.WriteFile(path, []byte(summary.String()), 0o600); err != nil {
		m.resultsView.SetExportNote(fmt.Sprintf("export failed: %v", err))
		return
	}
	m.resultsView.SetExportNote("Summary written to " + path)
}

func (m Model) scratchFile(prefix, ext string) string {
	name := fmt.Sprintf("%s_%s.%s", prefix, time.Now().Format("20060102_150405"), ext)
	return filepath.Join(m.cfg.ScratchDir, name)
}

// View renders the active view inside the standard frame.
func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}

	var content, status, hints string
	switch m.currentView {
	case ViewForm:
		content = m.formView.View()
		status = "input"
		hints = "tab: next field • enter: confirm • esc: quit"

	case ViewRunning:
		content = m.runningView()
		status = fmt.Sprintf("%d/%d", m.completed, m.total)
		hints = "esc: cancel run • q: quit"

	case ViewResults:
		content = m.resultsView.View()
		status = "done"
		hints = "s: save CSV • m: save summary • n: new run • q: quit"
	}

	return m.layout.Frame("mailcheck", status, content, hints)
}

// runningView renders the progress bar and the most recent result line.
func (m Model) runningView() string {
	percent := 0.0
	if m.total > 0 {
		percent = float64(m.completed) / float64(m.total)
	}

	body := fmt.Sprintf(
		"Checking credentials... %d of %d\n\n%s\n",
		m.completed, m.total, m.prog.ViewAs(percent),
	)
	if m.lastLine != "" {
		body += "\n" + theme.HelpStyle.Render(m.lastLine)
	}

	return theme.PanelStyle.Width(m.layout.ContentWidth() - 4).Render(body)
}
