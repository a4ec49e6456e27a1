package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// viewState represents the currently active view.
type viewState int

const (
	viewTimer viewState = iota
	viewCategories
	viewHistory
	viewReports
	viewSettings
)

var viewNames = []string{"Timer", "Categories", "History", "Reports", "Settings"}

// --- Messages ---

type statusMsg struct {
	text    string
	isError bool
}

type tickMsg time.Time

// intervalRecordedMsg is sent after the engine wrote an interval, so views
// showing totals can reload.
type intervalRecordedMsg struct{}

// categoriesChangedMsg is sent after a category was created, renamed,
// recolored or deleted.
type categoriesChangedMsg struct{}

type exportDoneMsg struct {
	path  string
	count int
}

func statusCmd(format string, a ...any) tea.Cmd {
	text := fmt.Sprintf(format, a...)
	return func() tea.Msg { return statusMsg{text: text} }
}

func errorCmd(err error) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: fmt.Sprintf("Error: %v", err), isError: true}
	}
}

func recordedCmd() tea.Msg { return intervalRecordedMsg{} }

// --- Helpers ---

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func formatSeconds(secs int64) string {
	return formatDuration(time.Duration(secs) * time.Second)
}

func formatHours(secs int64) string {
	h := float64(secs) / 3600
	return fmt.Sprintf("%.1fh", h)
}

// formatClock renders a countdown as MM:SS. Minutes are not wrapped into
// hours so long intervals read 90:00.
func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d", m, s)
}

func timeOf(msg tickMsg) time.Time { return time.Time(msg) }
