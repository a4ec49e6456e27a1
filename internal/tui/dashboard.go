package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/grindstone/internal/stats"
	"github.com/sadopc/grindstone/internal/store"
	"github.com/sadopc/grindstone/internal/timer"
)

// pickerAction is what choosing a category in the picker does.
type pickerAction int

const (
	pickStart pickerAction = iota
	pickSelect
)

type dashboardModel struct {
	ctx    context.Context
	store  *store.Store
	stats  *stats.Aggregator
	timer  timerModel
	bar    progress.Model
	width  int
	height int

	today      stats.Summary
	recent     []store.Interval
	categories []store.Category

	// Category picker state
	picking      bool
	pickerAction pickerAction
	pickerCursor int
}

func newDashboardModel(ctx context.Context, s *store.Store, agg *stats.Aggregator, e *timer.Engine) dashboardModel {
	return dashboardModel{
		ctx:   ctx,
		store: s,
		stats: agg,
		timer: newTimerModel(e),
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
}

func (d dashboardModel) Init() tea.Cmd {
	return d.loadData()
}

func (d *dashboardModel) setSize(w, h int) {
	d.width = w
	d.height = h
	d.bar.Width = max(10, w-16)
}

type dashboardDataMsg struct {
	today      stats.Summary
	recent     []store.Interval
	categories []store.Category
	err        error
}

func (d dashboardModel) loadData() tea.Cmd {
	return func() tea.Msg {
		today, err := d.stats.Summary(d.ctx, stats.PeriodDay)
		if err != nil {
			return dashboardDataMsg{err: err}
		}
		recent, err := d.store.ListIntervals(d.ctx, store.IntervalFilter{Limit: 5, Newest: true})
		if err != nil {
			return dashboardDataMsg{err: err}
		}
		categories, err := d.store.ListCategories(d.ctx)
		if err != nil {
			return dashboardDataMsg{err: err}
		}
		return dashboardDataMsg{today: today, recent: recent, categories: categories}
	}
}

// onTick advances the engine. A finished interval reloads the panels.
func (d dashboardModel) onTick(msg tickMsg) (dashboardModel, tea.Cmd) {
	changed, err := d.timer.tick(d.ctx, timeOf(msg))
	if err != nil {
		return d, errorCmd(err)
	}
	if !changed {
		return d, nil
	}
	snap := d.timer.snapshot()
	cmds := []tea.Cmd{recordedCmd}
	switch {
	case snap.Condition != nil:
		cmds = append(cmds, statusCmd("Auto-advance stopped: %v \a", snap.Condition))
	case snap.Phase.IsBreak():
		cmds = append(cmds, statusCmd("Work interval done. Time for a %s \a", strings.ToLower(snap.Phase.String())))
	default:
		cmds = append(cmds, statusCmd("Break over \a"))
	}
	return d, tea.Batch(cmds...)
}

func (d dashboardModel) update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case dashboardDataMsg:
		if msg.err != nil {
			return d, errorCmd(msg.err)
		}
		d.today = msg.today
		d.recent = msg.recent
		d.categories = msg.categories
		if d.pickerCursor >= len(d.categories) {
			d.pickerCursor = max(0, len(d.categories)-1)
		}
		return d, nil

	case intervalRecordedMsg, categoriesChangedMsg:
		return d, d.loadData()

	case tea.KeyMsg:
		if d.picking {
			return d.updatePicker(msg)
		}

		switch {
		case key.Matches(msg, keys.Start):
			return d.startOrPick()
		case key.Matches(msg, keys.Pause):
			return d.apply(d.timer.toggle)
		case key.Matches(msg, keys.Skip):
			return d.apply(d.timer.skip)
		case key.Matches(msg, keys.Stop), key.Matches(msg, keys.Reset):
			if d.timer.snapshot().Phase == timer.PhaseIdle {
				return d, nil
			}
			reset := key.Matches(msg, keys.Reset)
			return d.apply(func(ctx context.Context) error { return d.timer.stop(ctx, reset) })
		case key.Matches(msg, keys.Category):
			return d.openPicker(pickSelect)
		}
	}
	return d, nil
}

// apply runs a command that may write an interval and reloads on success.
func (d dashboardModel) apply(fn func(context.Context) error) (dashboardModel, tea.Cmd) {
	if err := fn(d.ctx); err != nil {
		return d, errorCmd(err)
	}
	return d, recordedCmd
}

func (d dashboardModel) startOrPick() (dashboardModel, tea.Cmd) {
	snap := d.timer.snapshot()
	if snap.Mode == timer.ModeRunning || snap.Mode == timer.ModePaused {
		return d, nil
	}
	if snap.Phase.IsBreak() || snap.PendingCategory != nil {
		return d.start(nil)
	}
	return d.openPicker(pickStart)
}

func (d dashboardModel) openPicker(action pickerAction) (dashboardModel, tea.Cmd) {
	switch len(d.categories) {
	case 0:
		return d, func() tea.Msg {
			return statusMsg{text: "No categories yet. Press 2 to go to Categories and create one.", isError: true}
		}
	case 1:
		if action == pickStart {
			id := d.categories[0].ID
			return d.start(&id)
		}
	}
	d.picking = true
	d.pickerAction = action
	return d, nil
}

func (d dashboardModel) updatePicker(msg tea.KeyMsg) (dashboardModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if d.pickerCursor > 0 {
			d.pickerCursor--
		}
	case key.Matches(msg, keys.Down):
		if d.pickerCursor < len(d.categories)-1 {
			d.pickerCursor++
		}
	case key.Matches(msg, keys.Enter):
		d.picking = false
		if d.pickerCursor >= len(d.categories) {
			return d, nil
		}
		c := d.categories[d.pickerCursor]
		if d.pickerAction == pickSelect {
			if err := d.timer.selectCategory(d.ctx, c.ID); err != nil {
				return d, errorCmd(err)
			}
			return d, statusCmd("Next work interval: %s", c.Name)
		}
		return d.start(&c.ID)
	case key.Matches(msg, keys.Back):
		d.picking = false
	}
	return d, nil
}

func (d dashboardModel) start(categoryID *int64) (dashboardModel, tea.Cmd) {
	if err := d.timer.start(d.ctx, categoryID, ""); err != nil {
		if errors.Is(err, timer.ErrCategoryRequired) {
			return d.openPicker(pickStart)
		}
		return d, errorCmd(err)
	}
	return d, statusCmd("%s started", strings.ToLower(d.timer.snapshot().Phase.String()))
}

func (d dashboardModel) categoryName(id *int64) string {
	if id == nil {
		return ""
	}
	for _, c := range d.categories {
		if c.ID == *id {
			return c.Name
		}
	}
	return "?"
}

func (d dashboardModel) categoryColor(id *int64) string {
	if id != nil {
		for _, c := range d.categories {
			if c.ID == *id {
				return c.Color
			}
		}
	}
	return store.DefaultCategoryColor
}

func (d dashboardModel) view() string {
	if d.width < 20 {
		return "Terminal too small"
	}

	contentWidth := d.width - 4

	timerPanel := d.renderTimerPanel(contentWidth)
	summaryPanel := d.renderSummaryPanel(contentWidth)

	var bottomPanel string
	if d.picking {
		bottomPanel = d.renderCategoryPicker(contentWidth)
	} else {
		bottomPanel = d.renderRecentPanel(contentWidth)
	}

	return lipgloss.JoinVertical(lipgloss.Left, timerPanel, summaryPanel, bottomPanel)
}

func (d dashboardModel) renderTimerPanel(w int) string {
	snap := d.timer.snapshot()
	cfg := d.timer.engine.Config()
	style := phaseStyle(snap.Phase)

	remaining := snap.Remaining
	if snap.Phase == timer.PhaseIdle {
		remaining = cfg.Work
	}
	clock := clockStyle.Foreground(phaseColors[snap.Phase]).Width(w - 6).Render(formatClock(remaining))

	var lines []string
	lines = append(lines, style.Render(snap.Phase.String()), clock)

	switch snap.Mode {
	case timer.ModeRunning:
		lines = append(lines, successStyle.Render("●  RUNNING"))
	case timer.ModePaused:
		lines = append(lines, warningStyle.Render("⏸  PAUSED"))
	case timer.ModeReady:
		lines = append(lines, mutedStyle.Render("■  READY  press s to start"))
	default:
		lines = append(lines, mutedStyle.Render("■  STOPPED  press s to start"))
	}

	if snap.Mode == timer.ModeRunning || snap.Mode == timer.ModePaused {
		lines = append(lines, d.bar.ViewAs(snap.Progress()))
	}

	if name := d.categoryName(snap.ActiveCategory); name != "" {
		lines = append(lines, colorDot(d.categoryColor(snap.ActiveCategory))+" "+highlightStyle.Render(name))
	}
	if name := d.categoryName(snap.PendingCategory); name != "" {
		lines = append(lines, mutedStyle.Render("next: ")+highlightStyle.Render(name))
	}
	if snap.Note != "" {
		lines = append(lines, mutedStyle.Render(snap.Note))
	}

	lines = append(lines, "", renderCycle(snap, cfg.LongBreakEvery))

	if snap.Condition != nil {
		lines = append(lines, "", warningStyle.Render(conditionText(snap.Condition)))
	}

	content := lipgloss.JoinVertical(lipgloss.Center, lines...)
	if snap.Mode == timer.ModeRunning || snap.Mode == timer.ModePaused {
		return activePanelStyle.BorderForeground(phaseColors[snap.Phase]).Width(w).Render(content)
	}
	return panelStyle.Width(w).Render(content)
}

func (d dashboardModel) renderSummaryPanel(w int) string {
	title := titleStyle.Render("Today")
	total := highlightStyle.Render(formatDuration(d.today.Focused))
	header := fmt.Sprintf("%s  %s  %s", title, total,
		mutedStyle.Render(fmt.Sprintf("%d completed · %d abandoned · %.0f%%",
			d.today.Completed, d.today.Abandoned, d.today.CompletionRate*100)))

	var rows []string
	rows = append(rows, header)
	shown := 0
	for _, t := range d.today.Totals {
		if t.TotalSeconds == 0 {
			continue
		}
		shown++
		rows = append(rows, fmt.Sprintf("  %s %-20s %s  (%d intervals)",
			colorDot(t.Color), t.Name, formatSeconds(t.TotalSeconds), t.Count))
	}
	if shown == 0 {
		rows = append(rows, mutedStyle.Render("No focused time today"))
	}

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (d dashboardModel) renderRecentPanel(w int) string {
	title := titleStyle.Render("Recent Intervals")
	if len(d.recent) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			mutedStyle.Render("No intervals yet"),
		)
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, title)
	for _, iv := range d.recent {
		rows = append(rows, "  "+renderIntervalRow(iv, d.categoryName(iv.CategoryID), d.stats.Location()))
	}

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (d dashboardModel) renderCategoryPicker(w int) string {
	title := titleStyle.Render("Select Category")
	if d.pickerAction == pickSelect {
		title = titleStyle.Render("Category for Next Work Interval")
	}

	var rows []string
	rows = append(rows, title)
	for i, c := range d.categories {
		cursor := "  "
		style := normalItemStyle
		if i == d.pickerCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(fmt.Sprintf("%s%s %s", cursor, colorDot(c.Color), c.Name)))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: select  esc: cancel"))

	return activePanelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func conditionText(err error) string {
	switch {
	case errors.Is(err, timer.ErrCategoryRequired):
		return "Choose a category (c) and press s to continue"
	case errors.Is(err, timer.ErrInvalidCategory):
		return "The selected category no longer exists. Choose another (c)"
	}
	return err.Error()
}
