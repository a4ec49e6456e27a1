package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/grindstone/internal/export"
	"github.com/sadopc/grindstone/internal/store"
)

var (
	exportFormat   string
	exportOut      string
	exportCategory string
	exportSince    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recorded intervals as CSV or JSON",
	Long: `Export recorded intervals, oldest first, as CSV or JSON.

Without --out the export is written to stdout.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return exportRun(cmd.Context())
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "Output format: csv or json")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default stdout)")
	exportCmd.Flags().StringVarP(&exportCategory, "category", "c", "", "Only this category")
	exportCmd.Flags().StringVar(&exportSince, "since", "", "Only intervals started since (date, Nd or duration)")
	rootCmd.AddCommand(exportCmd)
}

func exportRun(ctx context.Context) error {
	format := strings.ToLower(exportFormat)
	if format != "csv" && format != "json" {
		return fmt.Errorf("--format %q: expected csv or json: %w", exportFormat, store.ErrInvalidInput)
	}

	d, err := getDeps()
	if err != nil {
		return err
	}

	var f store.IntervalFilter
	if exportCategory != "" {
		c, err := findCategory(ctx, d.store, exportCategory)
		if err != nil {
			return err
		}
		f.CategoryID = &c.ID
	}
	if exportSince != "" {
		since, err := parseSince(exportSince, time.Now(), d.stats.Location())
		if err != nil {
			return err
		}
		f.From = &since
	}

	intervals, err := d.store.ListIntervals(ctx, f)
	if err != nil {
		return err
	}
	categories, err := d.store.ListCategories(ctx)
	if err != nil {
		return err
	}
	byID := make(map[int64]*store.Category, len(categories))
	for i := range categories {
		byID[categories[i].ID] = &categories[i]
	}

	if exportOut == "" {
		if format == "json" {
			return export.WriteJSON(ui.Out, intervals, byID, time.Now())
		}
		return export.WriteCSV(ui.Out, intervals, byID)
	}

	if format == "json" {
		err = export.ToJSON(intervals, byID, exportOut)
	} else {
		err = export.ToCSV(intervals, byID, exportOut)
	}
	if err != nil {
		return err
	}
	ui.Success("Exported %d intervals to %s", len(intervals), exportOut)
	return nil
}
