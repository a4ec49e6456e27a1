package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/grindstone/internal/stats"
	"github.com/sadopc/grindstone/internal/store"
)

const chartDays = 7

var reportPeriods = []stats.Period{stats.PeriodDay, stats.PeriodWeek, stats.PeriodMonth, stats.PeriodYear}

// categoryDays is the daily focused time of one category over the chart
// window.
type categoryDays struct {
	total store.CategoryTotal
	days  []stats.DayTotal
}

type reportsModel struct {
	ctx    context.Context
	stats  *stats.Aggregator
	now    func() time.Time
	width  int
	height int

	period  int
	offset  int // 7-day blocks back from today (0 = current)
	summary stats.Summary
	series  []categoryDays

	chart barchart.Model
}

func newReportsModel(ctx context.Context, agg *stats.Aggregator) reportsModel {
	return reportsModel{
		ctx:    ctx,
		stats:  agg,
		now:    time.Now,
		period: 1,
		chart:  barchart.New(60, 12),
	}
}

func (r *reportsModel) setSize(w, h int) {
	r.width = w
	r.height = h
}

type reportsDataMsg struct {
	summary stats.Summary
	series  []categoryDays
	err     error
}

// chartRange returns the first and last day shown in the chart.
func (r reportsModel) chartRange() (time.Time, time.Time) {
	last := r.now().In(r.stats.Location()).AddDate(0, 0, -chartDays*r.offset)
	return last.AddDate(0, 0, 1-chartDays), last
}

func (r reportsModel) refresh() tea.Cmd {
	period := reportPeriods[r.period]
	first, last := r.chartRange()
	return func() tea.Msg {
		summary, err := r.stats.Summary(r.ctx, period)
		if err != nil {
			return reportsDataMsg{err: err}
		}

		window := stats.Range{From: startOfLocalDay(first), To: startOfLocalDay(last).AddDate(0, 0, 1)}
		totals, err := r.stats.TotalsByCategory(r.ctx, window)
		if err != nil {
			return reportsDataMsg{err: err}
		}
		var series []categoryDays
		for _, t := range totals {
			if t.TotalSeconds == 0 {
				continue
			}
			id := t.CategoryID
			days, err := r.stats.DailyBreakdown(r.ctx, &id, first, last)
			if err != nil {
				return reportsDataMsg{err: err}
			}
			series = append(series, categoryDays{total: t, days: days})
		}
		return reportsDataMsg{summary: summary, series: series}
	}
}

func startOfLocalDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func (r reportsModel) update(msg tea.Msg) (reportsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case reportsDataMsg:
		if msg.err != nil {
			return r, errorCmd(msg.err)
		}
		r.summary = msg.summary
		r.series = msg.series
		r.buildChart()
		return r, nil

	case intervalRecordedMsg, categoriesChangedMsg:
		return r, r.refresh()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			r.offset++
			return r, r.refresh()
		case key.Matches(msg, keys.Right):
			if r.offset > 0 {
				r.offset--
			}
			return r, r.refresh()
		case key.Matches(msg, keys.Enter):
			r.period = (r.period + 1) % len(reportPeriods)
			return r, r.refresh()
		}
	}
	return r, nil
}

func (r *reportsModel) buildChart() {
	chartWidth := max(20, r.width-8)
	chartHeight := 12
	if r.height > 30 {
		chartHeight = 16
	}

	r.chart = barchart.New(chartWidth, chartHeight)

	first, _ := r.chartRange()
	var bars []barchart.BarData
	for i := range chartDays {
		day := first.AddDate(0, 0, i)

		var values []barchart.BarValue
		for _, s := range r.series {
			if i >= len(s.days) || s.days[i].Seconds == 0 {
				continue
			}
			values = append(values, barchart.BarValue{
				Name:  s.total.Name,
				Value: float64(s.days[i].Seconds) / 3600.0,
				Style: lipgloss.NewStyle().Foreground(lipgloss.Color(s.total.Color)),
			})
		}
		if len(values) == 0 {
			values = []barchart.BarValue{{Name: "", Value: 0, Style: lipgloss.NewStyle().Foreground(colorBorder)}}
		}

		bars = append(bars, barchart.BarData{
			Label:  day.Format("Mon 02"),
			Values: values,
		})
	}

	r.chart.PushAll(bars)
	r.chart.Draw()
}

func (r reportsModel) view() string {
	w := r.width - 4

	var tabs []string
	for i, p := range reportPeriods {
		name := strings.ToUpper(p.String()[:1]) + p.String()[1:]
		if i == r.period {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}
	periodTabs := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	first, last := r.chartRange()
	dateLabel := mutedStyle.Render(fmt.Sprintf("%s to %s", first.Format("Jan 02"), last.Format("Jan 02, 2006")))

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Reports"), "  ", periodTabs,
	)

	nav := mutedStyle.Render("  ←/→: move chart  enter: switch period")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "",
			r.renderSummary(w), "",
			dateLabel, r.chart.View(), "",
			r.renderLegend(), "",
			nav,
		),
	)
}

func (r reportsModel) renderSummary(w int) string {
	s := r.summary
	headline := fmt.Sprintf("  %s focused  ·  %d completed  ·  %d abandoned  ·  %.0f%% completion",
		highlightStyle.Render(formatDuration(s.Focused)), s.Completed, s.Abandoned, s.CompletionRate*100)

	var rows []string
	rows = append(rows, headline, "")
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-22s %10s %8s %7s", "Category", "Duration", "Count", "Share")))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 50))))

	for _, t := range s.Totals {
		share := 0.0
		if s.Focused > 0 {
			share = float64(t.TotalSeconds) / s.Focused.Seconds() * 100
		}
		rows = append(rows, fmt.Sprintf("  %s %-20s %10s %8d %6.0f%%",
			colorDot(t.Color), t.Name, formatSeconds(t.TotalSeconds), t.Count, share))
	}
	if len(s.Totals) == 0 {
		rows = append(rows, mutedStyle.Render("  No categories"))
	}

	return strings.Join(rows, "\n")
}

func (r reportsModel) renderLegend() string {
	var items []string
	for _, s := range r.series {
		items = append(items, fmt.Sprintf("%s %s %s", colorDot(s.total.Color), s.total.Name, mutedStyle.Render(formatHours(s.total.TotalSeconds))))
	}
	if len(items) == 0 {
		return mutedStyle.Render("  No focused time in this window")
	}
	return "  " + strings.Join(items, "  ")
}
