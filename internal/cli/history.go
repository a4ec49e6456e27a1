package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/grindstone/internal/output"
	"github.com/sadopc/grindstone/internal/store"
)

var (
	historyCategory string
	historyPhase    string
	historyStatus   string
	historySince    string
	historyLimit    int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded intervals, newest first",
	Long: `List recorded intervals, newest first.

--since takes a date (2006-01-02), a number of days (7d) or a duration (36h).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return historyRun(cmd.Context())
	},
}

func init() {
	historyCmd.Flags().StringVarP(&historyCategory, "category", "c", "", "Only this category")
	historyCmd.Flags().StringVar(&historyPhase, "phase", "", "Only this phase (work, short_break, long_break)")
	historyCmd.Flags().StringVar(&historyStatus, "status", "", "Only this status (completed, abandoned)")
	historyCmd.Flags().StringVar(&historySince, "since", "", "Only intervals started since")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum intervals to show (0 for all)")
	rootCmd.AddCommand(historyCmd)
}

func historyRun(ctx context.Context) error {
	d, err := getDeps()
	if err != nil {
		return err
	}

	f := store.IntervalFilter{Limit: historyLimit, Newest: true}
	if historyLimit < 0 {
		return fmt.Errorf("--limit %d: %w", historyLimit, store.ErrInvalidInput)
	}
	if historyCategory != "" {
		c, err := findCategory(ctx, d.store, historyCategory)
		if err != nil {
			return err
		}
		f.CategoryID = &c.ID
	}
	if historyPhase != "" {
		f.Phase = store.Phase(strings.ToLower(historyPhase))
		if !f.Phase.Valid() {
			return fmt.Errorf("--phase %q: %w", historyPhase, store.ErrInvalidInput)
		}
	}
	if historyStatus != "" {
		f.Status = store.Status(strings.ToLower(historyStatus))
		if !f.Status.Valid() {
			return fmt.Errorf("--status %q: %w", historyStatus, store.ErrInvalidInput)
		}
	}
	if historySince != "" {
		since, err := parseSince(historySince, time.Now(), d.stats.Location())
		if err != nil {
			return err
		}
		f.From = &since
	}

	intervals, err := d.store.ListIntervals(ctx, f)
	if err != nil {
		return err
	}
	if len(intervals) == 0 {
		ui.Info("No intervals recorded.")
		return nil
	}

	names, err := categoryNames(ctx, d.store)
	if err != nil {
		return err
	}

	loc := d.stats.Location()
	table := ui.Table([]string{"Started", "Phase", "Category", "Actual", "Planned", "Status", "Note"})
	for _, iv := range intervals {
		category := "-"
		if iv.CategoryID != nil {
			category = names[*iv.CategoryID]
		}
		_ = table.Append([]string{
			iv.Start.In(loc).Format("2006-01-02 15:04"),
			output.PhaseColor(string(iv.Phase)),
			category,
			output.Duration(iv.Actual),
			output.Duration(iv.Planned),
			output.StatusColor(string(iv.Status)),
			iv.Note,
		})
	}
	_ = table.Render()

	if total, err := d.store.CountIntervals(ctx, store.IntervalFilter{
		CategoryID: f.CategoryID, Phase: f.Phase, Status: f.Status, From: f.From,
	}); err == nil && total > len(intervals) {
		ui.VerboseLog("Showing %d of %d intervals", len(intervals), total)
	}
	return nil
}

// parseSince accepts a local date, a day count such as "7d" or a Go
// duration, and returns the instant it refers to.
func parseSince(s string, now time.Time, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(time.DateOnly, s, loc); err == nil {
		return t, nil
	}
	if n, ok := strings.CutSuffix(s, "d"); ok {
		days, err := strconv.Atoi(n)
		if err == nil && days >= 0 {
			today := now.In(loc)
			y, m, dd := today.Date()
			return time.Date(y, m, dd, 0, 0, 0, 0, loc).AddDate(0, 0, -days), nil
		}
	}
	if d, err := time.ParseDuration(s); err == nil && d >= 0 {
		return now.Add(-d), nil
	}
	return time.Time{}, fmt.Errorf("--since %q: expected a date, Nd or a duration: %w", s, store.ErrInvalidInput)
}

func categoryNames(ctx context.Context, s *store.Store) (map[int64]string, error) {
	categories, err := s.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	return names, nil
}

func secondsDuration(secs int64) time.Duration {
	return time.Duration(secs) * time.Second
}
