package app

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the global keybindings for the application.
type KeyMap struct {
	// Back / Quit
	Back key.Binding
	Quit key.Binding

	// Cancel an in-flight run
	Cancel key.Binding

	// Results view actions
	ExportCSV     key.Binding
	ExportSummary key.Binding
	NewRun        key.Binding
}

// DefaultKeyMap returns the standard keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "quit"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel run"),
		),
		ExportCSV: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "save CSV"),
		),
		ExportSummary: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "save summary"),
		),
		NewRun: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new run"),
		),
	}
}
