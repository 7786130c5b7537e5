package widget

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	terminalPanel = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#d6d6d9")).
			Padding(1, 2)

	terminalHeader = lipgloss.NewStyle().Bold(true)

	terminalBody = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#555867", Dark: "#a3a8b8"})
)

// Terminal renders the panel for a terminal. A positive width fixes the
// panel's outer width; text wraps inside it.
func Terminal(v View, width int) string {
	panel := terminalPanel
	if width > 0 {
		// border takes one column on each side
		panel = panel.Width(max(width-2, 1))
	}

	return panel.Render(lipgloss.JoinVertical(lipgloss.Left,
		terminalHeader.Render("👋 "+v.Greeting),
		"",
		terminalBody.Render(v.Description),
	))
}
