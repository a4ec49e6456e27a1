package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/grindstone/internal/timer"
)

// Palette. Work is tomato red, breaks are green and teal.
var (
	colorPrimary   = lipgloss.Color("#E4572E")
	colorBreak     = lipgloss.Color("#2ECC71")
	colorLongBreak = lipgloss.Color("#2EC4B6")
	colorMuted     = lipgloss.Color("#6C7086")
	colorWarning   = lipgloss.Color("#F9A825")
	colorError     = lipgloss.Color("#EF5350")
	colorText      = lipgloss.Color("#CDD6F4")
	colorBorder    = lipgloss.Color("#45475A")
	colorAccent    = lipgloss.Color("#89B4FA")
)

var phaseColors = map[timer.Phase]lipgloss.Color{
	timer.PhaseIdle:       colorMuted,
	timer.PhaseWork:       colorPrimary,
	timer.PhaseShortBreak: colorBreak,
	timer.PhaseLongBreak:  colorLongBreak,
}

func fg(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

func boxed(border lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(1, 2)
}

var (
	activeTabStyle = fg(colorPrimary).Bold(true).Padding(0, 2).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(colorPrimary)
	inactiveTabStyle = fg(colorMuted).Padding(0, 2)

	panelStyle       = boxed(colorBorder)
	activePanelStyle = boxed(colorPrimary)

	clockStyle = lipgloss.NewStyle().Bold(true).Align(lipgloss.Center)
	titleStyle = fg(colorText).Bold(true)

	successStyle   = fg(colorBreak)
	warningStyle   = fg(colorWarning)
	errorStyle     = fg(colorError)
	mutedStyle     = fg(colorMuted)
	highlightStyle = fg(colorAccent)

	headerStyle = lipgloss.NewStyle().Padding(0, 1)
	footerStyle = fg(colorMuted).Padding(0, 1)

	selectedItemStyle = fg(colorPrimary).Bold(true)
	normalItemStyle   = fg(colorText)
)

func phaseStyle(p timer.Phase) lipgloss.Style {
	return fg(phaseColors[p]).Bold(true)
}

// colorDot renders a bullet in a category's hex color.
func colorDot(hex string) string {
	return fg(lipgloss.Color(hex)).Render("●")
}
