package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/grindstone/internal/export"
	"github.com/sadopc/grindstone/internal/stats"
	"github.com/sadopc/grindstone/internal/store"
	"github.com/sadopc/grindstone/internal/timer"
)

// App is the root Bubble Tea model.
type App struct {
	ctx    context.Context
	store  *store.Store
	engine *timer.Engine
	width  int
	height int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int
	exportDir     string

	dashboard  dashboardModel
	categories categoriesModel
	history    historyModel
	reports    reportsModel
	settings   settingsModel

	help        help.Model
	status      string
	statusError bool
	quitting    bool
}

func NewApp(ctx context.Context, s *store.Store, e *timer.Engine, agg *stats.Aggregator) App {
	h := help.New()
	h.ShowAll = false

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	return App{
		ctx:        ctx,
		store:      s,
		engine:     e,
		activeView: viewTimer,
		exportDir:  home,
		dashboard:  newDashboardModel(ctx, s, agg, e),
		categories: newCategoriesModel(ctx, s),
		history:    newHistoryModel(ctx, s, agg.Location()),
		reports:    newReportsModel(ctx, agg),
		settings:   newSettingsModel(ctx, s, e),
		help:       h,
	}
}

// Run starts the full-screen program and blocks until it exits.
func Run(ctx context.Context, s *store.Store, e *timer.Engine, agg *stats.Aggregator) error {
	p := tea.NewProgram(NewApp(ctx, s, e, agg), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.dashboard.Init(),
		tickCmd(),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.dashboard.setSize(a.width, contentHeight)
		a.categories.setSize(a.width, contentHeight)
		a.history.setSize(a.width, contentHeight)
		a.reports.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If a child view is capturing input (e.g. form), delegate first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			return a.quit()
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab):
			return a.switchTo((a.activeView + 1) % viewState(len(viewNames)))
		}
		for i, b := range keys.Views {
			if key.Matches(msg, b) {
				return a.switchTo(viewState(i))
			}
		}

		// Timer keys work from every view.
		if a.activeView != viewTimer && isTimerKey(msg) {
			var cmd tea.Cmd
			a.dashboard, cmd = a.dashboard.update(msg)
			return a, cmd
		}

	case tickMsg:
		// Ticks always drive the engine, whatever view is shown.
		var cmd tea.Cmd
		a.dashboard, cmd = a.dashboard.onTick(msg)
		return a, tea.Batch(tickCmd(), cmd)

	case statusMsg:
		a.status = msg.text
		a.statusError = msg.isError
		return a, nil

	case intervalRecordedMsg, categoriesChangedMsg:
		return a.broadcast(msg)

	case exportDoneMsg:
		a.status = fmt.Sprintf("Exported %d intervals to %s", msg.count, msg.path)
		a.statusError = false
		a.exportPicking = false
		return a, nil
	}

	return a.updateActiveView(msg)
}

func isTimerKey(msg tea.KeyMsg) bool {
	return key.Matches(msg, keys.Pause, keys.Skip, keys.Stop, keys.Reset)
}

func (a App) switchTo(v viewState) (tea.Model, tea.Cmd) {
	a.activeView = v
	return a, a.refreshCurrentView()
}

// broadcast delivers a data change to the timer view and the active view.
// Other views reload when switched to.
func (a App) broadcast(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd
	a.dashboard, cmd = a.dashboard.update(msg)
	cmds = append(cmds, cmd)
	switch a.activeView {
	case viewCategories:
		a.categories, cmd = a.categories.update(msg)
		cmds = append(cmds, cmd)
	case viewHistory:
		a.history, cmd = a.history.update(msg)
		cmds = append(cmds, cmd)
	case viewReports:
		a.reports, cmd = a.reports.update(msg)
		cmds = append(cmds, cmd)
	}
	return a, tea.Batch(cmds...)
}

// quit abandons an interval in progress so its time is kept, then exits.
// If that write fails the error is shown and a second quit exits anyway.
func (a App) quit() (tea.Model, tea.Cmd) {
	snap := a.engine.Snapshot()
	if !a.quitting && (snap.Mode == timer.ModeRunning || snap.Mode == timer.ModePaused) {
		if err := a.engine.Stop(a.ctx, false); err != nil {
			a.quitting = true
			a.status = fmt.Sprintf("Could not save the running interval: %v. Press q again to quit.", err)
			a.statusError = true
			return a, nil
		}
	}
	return a, tea.Quit
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewTimer:
		a.dashboard, cmd = a.dashboard.update(msg)
	case viewCategories:
		a.categories, cmd = a.categories.update(msg)
	case viewHistory:
		a.history, cmd = a.history.update(msg)
	case viewReports:
		a.reports, cmd = a.reports.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewTimer:
		return a.dashboard.picking
	case viewCategories:
		return a.categories.formActive
	case viewSettings:
		return a.settings.formActive
	}
	return false
}

func (a App) refreshCurrentView() tea.Cmd {
	switch a.activeView {
	case viewTimer:
		return a.dashboard.loadData()
	case viewCategories:
		return a.categories.refresh()
	case viewHistory:
		return a.history.refresh()
	case viewReports:
		return a.reports.refresh()
	case viewSettings:
		return a.settings.refresh()
	}
	return nil
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewTimer:
		content = a.dashboard.view()
	case viewCategories:
		content = a.categories.view()
	case viewHistory:
		content = a.history.view()
	case viewReports:
		content = a.reports.view()
	case viewSettings:
		content = a.settings.view()
	}

	contentHeight := max(1, a.height-lipgloss.Height(header)-lipgloss.Height(footer))

	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("grindstone")
	gap := max(1, a.width-lipgloss.Width(title)-lipgloss.Width(tabRow)-4)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		style := mutedStyle
		if a.statusError {
			style = errorStyle
		}
		status = style.Render(" " + a.status)
	}

	// Countdown indicator, visible from every view.
	timerInfo := ""
	snap := a.engine.Snapshot()
	switch snap.Mode {
	case timer.ModeRunning:
		timerInfo = phaseStyle(snap.Phase).Render(fmt.Sprintf(" ● %s %s", snap.Phase, formatClock(snap.Remaining)))
	case timer.ModePaused:
		timerInfo = warningStyle.Render(fmt.Sprintf(" ⏸ %s %s", snap.Phase, formatClock(snap.Remaining)))
	}

	left := footerStyle.Render(helpView)
	right := timerInfo + status

	gap := max(1, a.width-lipgloss.Width(left)-lipgloss.Width(right)-2)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

var exportFormats = []string{"CSV", "JSON"}

func (a App) renderExportPicker() string {
	var rows []string
	rows = append(rows, titleStyle.Render("Export Format"), "")
	for i, f := range exportFormats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: export  esc: cancel"))

	return activePanelStyle.Width(a.width - 4).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < len(exportFormats)-1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(a.exportCursor)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

func (a App) doExport(format int) tea.Cmd {
	return func() tea.Msg {
		intervals, err := a.store.ListIntervals(a.ctx, store.IntervalFilter{})
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}

		categories := make(map[int64]*store.Category)
		list, err := a.store.ListCategories(a.ctx)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}
		for i := range list {
			categories[list[i].ID] = &list[i]
		}

		dateStr := time.Now().Format(time.DateOnly)

		var path string
		if format == 0 {
			path = filepath.Join(a.exportDir, fmt.Sprintf("grindstone-export-%s.csv", dateStr))
			if err := export.ToCSV(intervals, categories, path); err != nil {
				return statusMsg{text: fmt.Sprintf("CSV error: %v", err), isError: true}
			}
		} else {
			path = filepath.Join(a.exportDir, fmt.Sprintf("grindstone-export-%s.json", dateStr))
			if err := export.ToJSON(intervals, categories, path); err != nil {
				return statusMsg{text: fmt.Sprintf("JSON error: %v", err), isError: true}
			}
		}

		return exportDoneMsg{path: path, count: len(intervals)}
	}
}
