// Package ui holds the screen frame shared by the form, progress, and
// results views.
package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailcheck/internal/theme"
)

// chromeHeight is the rows taken by the title bar and the hint bar.
const chromeHeight = 2

// Layout tracks the terminal size and frames a view with the title and
// hint bars.
type Layout struct {
	Width  int
	Height int
}

// NewLayout creates a Layout for the given terminal dimensions.
func NewLayout(width, height int) Layout {
	return Layout{Width: width, Height: height}
}

// ContentWidth returns the width available to a view.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the rows available to a view between the bars.
func (l Layout) ContentHeight() int {
	return l.Height - chromeHeight
}

// Frame renders a full screen: title bar, the view, hint bar.
func (l Layout) Frame(title, status, content, hints string) string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		l.titleBar(title, status),
		content,
		l.hintBar(hints),
	)
}

// titleBar renders the top bar with the app title on the left and the
// current view's status fragment on the right.
func (l Layout) titleBar(title, status string) string {
	left := theme.HeaderStyle.Render(title)
	right := theme.HeaderStyle.Render(status)

	return lipgloss.JoinHorizontal(lipgloss.Top,
		left,
		l.fill(theme.HeaderStyle, lipgloss.Width(left)+lipgloss.Width(right)),
		right,
	)
}

// hintBar renders the bottom bar with the active keyboard hints.
func (l Layout) hintBar(hints string) string {
	bar := theme.StatusBarStyle.Render(hints)
	return lipgloss.JoinHorizontal(lipgloss.Top,
		bar,
		l.fill(theme.StatusBarStyle, lipgloss.Width(bar)),
	)
}

// fill stretches a bar's background across the remaining columns.
func (l Layout) fill(bar lipgloss.Style, used int) string {
	gap := l.Width - used
	if gap < 0 {
		gap = 0
	}
	return lipgloss.NewStyle().
		Background(bar.GetBackground()).
		Width(gap).
		Render("")
}
