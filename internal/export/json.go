package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sadopc/grindstone/internal/store"
)

type jsonExport struct {
	ExportedAt string         `json:"exported_at"`
	Count      int            `json:"count"`
	Intervals  []jsonInterval `json:"intervals"`
}

type jsonInterval struct {
	ID             string `json:"id"`
	Category       string `json:"category,omitempty"`
	CategoryID     *int64 `json:"category_id,omitempty"`
	Phase          string `json:"phase"`
	Status         string `json:"status"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	PlannedSeconds int64  `json:"planned_seconds"`
	ActualSeconds  int64  `json:"actual_seconds"`
	Actual         string `json:"actual"`
	Note           string `json:"note,omitempty"`
}

// ToJSON writes intervals to a JSON file at path.
func ToJSON(intervals []store.Interval, categories map[int64]*store.Category, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create json file: %w", err)
	}
	defer f.Close()

	if err := WriteJSON(f, intervals, categories, time.Now()); err != nil {
		return err
	}
	return f.Close()
}

func WriteJSON(w io.Writer, intervals []store.Interval, categories map[int64]*store.Category, now time.Time) error {
	export := jsonExport{
		ExportedAt: now.UTC().Format(time.RFC3339),
		Count:      len(intervals),
		Intervals:  []jsonInterval{},
	}

	for _, iv := range intervals {
		export.Intervals = append(export.Intervals, jsonInterval{
			ID:             iv.ID,
			Category:       categoryName(iv.CategoryID, categories),
			CategoryID:     iv.CategoryID,
			Phase:          string(iv.Phase),
			Status:         string(iv.Status),
			StartTime:      iv.Start.Local().Format(time.RFC3339),
			EndTime:        iv.End.Local().Format(time.RFC3339),
			PlannedSeconds: iv.PlannedSeconds(),
			ActualSeconds:  iv.ActualSeconds(),
			Actual:         FormatDuration(iv.ActualSeconds()),
			Note:           iv.Note,
		})
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}
