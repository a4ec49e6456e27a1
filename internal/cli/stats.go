package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sadopc/grindstone/internal/output"
	"github.com/sadopc/grindstone/internal/stats"
	"github.com/sadopc/grindstone/internal/store"
)

const barWidth = 30

var (
	statsPeriod   string
	statsDays     int
	statsCategory string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show focused time and completion rate",
	Long: `Show focused time per category and the work completion rate for the
current day, week, month or year, followed by a daily breakdown.

Only completed work intervals count as focused time.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		period, err := stats.ParsePeriod(statsPeriod)
		if err != nil {
			return err
		}
		return statsRun(cmd.Context(), period, statsDays, statsCategory)
	},
}

func init() {
	statsCmd.Flags().StringVarP(&statsPeriod, "period", "p", "week", "Summary period: day, week, month or year")
	statsCmd.Flags().IntVarP(&statsDays, "days", "d", 7, "Days in the daily breakdown (0 to hide it)")
	statsCmd.Flags().StringVarP(&statsCategory, "category", "c", "", "Only this category")
	rootCmd.AddCommand(statsCmd)
}

func statsRun(ctx context.Context, period stats.Period, days int, category string) error {
	d, err := getDeps()
	if err != nil {
		return err
	}
	if days < 0 {
		return fmt.Errorf("--days %d: %w", days, store.ErrInvalidInput)
	}

	var categoryID *int64
	if category != "" {
		c, err := findCategory(ctx, d.store, category)
		if err != nil {
			return err
		}
		categoryID = &c.ID
	}

	summary, err := d.stats.Summary(ctx, period)
	if err != nil {
		return err
	}
	printSummary(summary, categoryID)

	if days == 0 {
		return nil
	}
	breakdown, err := d.stats.LastDays(ctx, categoryID, days)
	if err != nil {
		return err
	}
	fmt.Fprintln(ui.Out)
	printBreakdown(breakdown)
	return nil
}

func printSummary(s stats.Summary, categoryID *int64) {
	last := s.Range.To.AddDate(0, 0, -1)
	label := strings.ToUpper(s.Period.String()[:1]) + s.Period.String()[1:]
	if s.Period == stats.PeriodDay {
		label = "Today"
	}
	fmt.Fprintf(ui.Out, "%s  %s\n", output.Bold(label), dateSpan(s.Range.From.Format("Jan 02"), last.Format("Jan 02, 2006")))
	fmt.Fprintf(ui.Out, "Focused %s  ·  %d completed  ·  %d abandoned  ·  %s completion\n\n",
		output.Cyan(output.Duration(s.Focused)), s.Completed, s.Abandoned, output.RateColor(s.CompletionRate))

	var peak int64
	for _, t := range s.Totals {
		peak = max(peak, t.TotalSeconds)
	}

	table := ui.Table([]string{"Category", "Focused", "Count", "Share", ""})
	for _, t := range s.Totals {
		if categoryID != nil && t.CategoryID != *categoryID {
			continue
		}
		share := 0.0
		if s.Focused > 0 {
			share = float64(t.TotalSeconds) / s.Focused.Seconds() * 100
		}
		_ = table.Append([]string{
			t.Name,
			output.Duration(secondsDuration(t.TotalSeconds)),
			fmt.Sprintf("%d", t.Count),
			fmt.Sprintf("%.0f%%", share),
			output.Bar(t.TotalSeconds, peak, barWidth),
		})
	}
	_ = table.Render()
}

func printBreakdown(days []stats.DayTotal) {
	var peak int64
	for _, day := range days {
		peak = max(peak, day.Seconds)
	}

	table := ui.Table([]string{"Day", "Focused", "Count", ""})
	for _, day := range days {
		_ = table.Append([]string{
			day.Date.Format("Mon Jan 02"),
			output.Duration(day.Duration()),
			fmt.Sprintf("%d", day.Count),
			output.Bar(day.Seconds, peak, barWidth),
		})
	}
	_ = table.Render()
}

func dateSpan(from, to string) string {
	if strings.HasPrefix(to, from) {
		return to
	}
	return from + " to " + to
}
