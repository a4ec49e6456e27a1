package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/grindstone/internal/store"
)

const historyPageSize = 15

// historyFilters are cycled with the filter key. The empty phase shows
// everything.
var historyFilters = []store.Phase{"", store.PhaseWork, store.PhaseShortBreak, store.PhaseLongBreak}

type historyModel struct {
	ctx    context.Context
	store  *store.Store
	loc    *time.Location
	width  int
	height int

	intervals  []store.Interval
	total      int
	categories map[int64]store.Category
	filter     int
	page       int
	cursor     int
	detail     bool
}

func newHistoryModel(ctx context.Context, s *store.Store, loc *time.Location) historyModel {
	return historyModel{ctx: ctx, store: s, loc: loc}
}

func (h *historyModel) setSize(w, ht int) {
	h.width = w
	h.height = ht
}

type historyDataMsg struct {
	intervals  []store.Interval
	total      int
	categories map[int64]store.Category
	err        error
}

func (h historyModel) refresh() tea.Cmd {
	f := store.IntervalFilter{
		Phase:  historyFilters[h.filter],
		Limit:  historyPageSize,
		Offset: h.page * historyPageSize,
		Newest: true,
	}
	return func() tea.Msg {
		intervals, err := h.store.ListIntervals(h.ctx, f)
		if err != nil {
			return historyDataMsg{err: err}
		}
		total, err := h.store.CountIntervals(h.ctx, store.IntervalFilter{Phase: f.Phase})
		if err != nil {
			return historyDataMsg{err: err}
		}
		list, err := h.store.ListCategories(h.ctx)
		if err != nil {
			return historyDataMsg{err: err}
		}
		categories := make(map[int64]store.Category, len(list))
		for _, c := range list {
			categories[c.ID] = c
		}
		return historyDataMsg{intervals: intervals, total: total, categories: categories}
	}
}

func (h historyModel) pages() int {
	return max(1, (h.total+historyPageSize-1)/historyPageSize)
}

func (h historyModel) update(msg tea.Msg) (historyModel, tea.Cmd) {
	switch msg := msg.(type) {
	case historyDataMsg:
		if msg.err != nil {
			return h, errorCmd(msg.err)
		}
		h.intervals = msg.intervals
		h.total = msg.total
		h.categories = msg.categories
		h.cursor = min(h.cursor, max(0, len(h.intervals)-1))
		if len(h.intervals) == 0 {
			h.detail = false
		}
		return h, nil

	case intervalRecordedMsg, categoriesChangedMsg:
		return h, h.refresh()

	case tea.KeyMsg:
		if h.detail {
			if key.Matches(msg, keys.Back) || key.Matches(msg, keys.Enter) {
				h.detail = false
			}
			return h, nil
		}
		switch {
		case key.Matches(msg, keys.Right):
			if h.page < h.pages()-1 {
				h.page++
				h.cursor = 0
				return h, h.refresh()
			}
		case key.Matches(msg, keys.Left):
			if h.page > 0 {
				h.page--
				h.cursor = 0
				return h, h.refresh()
			}
		case key.Matches(msg, keys.Down):
			if h.cursor < len(h.intervals)-1 {
				h.cursor++
			}
		case key.Matches(msg, keys.Up):
			if h.cursor > 0 {
				h.cursor--
			}
		case key.Matches(msg, keys.Enter):
			h.detail = len(h.intervals) > 0
		case key.Matches(msg, keys.Filter):
			h.filter = (h.filter + 1) % len(historyFilters)
			h.page = 0
			h.cursor = 0
			return h, h.refresh()
		}
	}
	return h, nil
}

func (h historyModel) categoryName(id *int64) string {
	if id == nil {
		return ""
	}
	if c, ok := h.categories[*id]; ok {
		return c.Name
	}
	return "?"
}

func (h historyModel) view() string {
	w := h.width - 4
	if h.detail && h.cursor < len(h.intervals) {
		return activePanelStyle.Width(w).Render(h.detailView(h.intervals[h.cursor]))
	}

	label := "all"
	if p := historyFilters[h.filter]; p != "" {
		label = string(p)
	}
	title := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("History"), "  ",
		mutedStyle.Render(fmt.Sprintf("%s · %d intervals · page %d/%d", label, h.total, h.page+1, h.pages())),
	)

	var rows []string
	rows = append(rows, title, "")
	if len(h.intervals) == 0 {
		rows = append(rows, mutedStyle.Render("No intervals recorded"))
	}
	for i, iv := range h.intervals {
		row := renderIntervalRow(iv, h.categoryName(iv.CategoryID), h.loc)
		if i == h.cursor {
			rows = append(rows, selectedItemStyle.Render("▸ ")+row)
			continue
		}
		rows = append(rows, "  "+row)
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  ↑/↓: select  ←/→: page  enter: details  p: filter phase"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

// renderIntervalRow formats one recorded interval on a single line.
func renderIntervalRow(iv store.Interval, category string, loc *time.Location) string {
	mark := successStyle.Render("✓")
	if iv.Status == store.StatusAbandoned {
		mark = warningStyle.Render("✗")
	}
	if category == "" {
		category = "-"
	}
	return fmt.Sprintf("%s %s  %-12s %-16s %s / %s",
		mark,
		iv.Start.In(loc).Format("Jan 02 15:04"),
		string(iv.Phase),
		category,
		formatSeconds(iv.ActualSeconds()),
		formatClock(iv.Planned),
	)
}

// detailView shows everything recorded for one interval.
func (h historyModel) detailView(iv store.Interval) string {
	field := func(label, value string) string {
		return titleStyle.Render(fmt.Sprintf("%-9s", label)) + " " + value
	}

	category := mutedStyle.Render("(break)")
	if iv.CategoryID != nil {
		category = h.categoryName(iv.CategoryID)
		if c, ok := h.categories[*iv.CategoryID]; ok {
			category = colorDot(c.Color) + " " + c.Name
		}
	}
	status := successStyle.Render(string(iv.Status))
	if iv.Status == store.StatusAbandoned {
		status = warningStyle.Render(string(iv.Status))
	}
	note := iv.Note
	if note == "" {
		note = mutedStyle.Render("(no note)")
	}

	rows := []string{
		titleStyle.Render("Interval"), "",
		field("Phase", string(iv.Phase)),
		field("Category", category),
		field("Status", status),
		field("Started", iv.Start.In(h.loc).Format("Mon Jan 02 2006 15:04:05")),
		field("Ended", iv.End.In(h.loc).Format("Mon Jan 02 2006 15:04:05")),
		field("Actual", formatSeconds(iv.ActualSeconds())),
		field("Planned", formatSeconds(iv.PlannedSeconds())),
		field("Note", note),
		field("ID", mutedStyle.Render(iv.ID)),
		"",
		mutedStyle.Render("  esc: back"),
	}
	return strings.Join(rows, "\n")
}
