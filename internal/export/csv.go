package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sadopc/grindstone/internal/store"
)

// ToCSV writes intervals to a CSV file at path.
func ToCSV(intervals []store.Interval, categories map[int64]*store.Category, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	if err := WriteCSV(f, intervals, categories); err != nil {
		return err
	}
	return f.Close()
}

func WriteCSV(out io.Writer, intervals []store.Interval, categories map[int64]*store.Category) error {
	w := csv.NewWriter(out)

	header := []string{"ID", "Category", "Phase", "Status", "Start", "End", "Planned (s)", "Actual (s)", "Actual", "Note"}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, iv := range intervals {
		row := []string{
			iv.ID,
			categoryName(iv.CategoryID, categories),
			string(iv.Phase),
			string(iv.Status),
			iv.Start.Local().Format(time.RFC3339),
			iv.End.Local().Format(time.RFC3339),
			fmt.Sprintf("%d", iv.PlannedSeconds()),
			fmt.Sprintf("%d", iv.ActualSeconds()),
			FormatDuration(iv.ActualSeconds()),
			iv.Note,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// categoryName is empty for breaks and "Unknown" for a dangling id.
func categoryName(id *int64, categories map[int64]*store.Category) string {
	if id == nil {
		return ""
	}
	if c, ok := categories[*id]; ok {
		return c.Name
	}
	return "Unknown"
}

// FormatDuration renders seconds as HH:MM:SS.
func FormatDuration(secs int64) string {
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
