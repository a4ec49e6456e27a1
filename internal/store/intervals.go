package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"time"
)

const intervalColumns = `id, category_id, phase, start_ts, end_ts, planned_seconds, actual_seconds, status, note, created_at`

// RecordInterval appends one terminated interval. The insert is atomic and
// keyed on rec.ID: recording the same id twice leaves the first row in place
// and succeeds, so a caller may retry after an ambiguous failure.
func (s *Store) RecordInterval(ctx context.Context, rec Interval) error {
	if err := validateInterval(rec); err != nil {
		return err
	}

	return s.withTx(ctx, "record interval", func(tx *sql.Tx) error {
		if rec.CategoryID != nil {
			var n int
			err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories WHERE id = ?`, *rec.CategoryID).Scan(&n)
			if err != nil {
				return unavailable("record interval", err)
			}
			if n == 0 {
				return fmt.Errorf("category %d: %w", *rec.CategoryID, ErrNotFound)
			}
		}

		now := time.Now().UTC().Format(time.RFC3339)
		_, err := tx.ExecContext(ctx,
			`INSERT INTO intervals (`+intervalColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO NOTHING`,
			rec.ID, rec.CategoryID, string(rec.Phase),
			rec.Start.UTC().Format(time.RFC3339), rec.End.UTC().Format(time.RFC3339),
			rec.PlannedSeconds(), rec.ActualSeconds(), string(rec.Status), rec.Note, now,
		)
		if isForeignKeyViolation(err) {
			return fmt.Errorf("category %d: %w", *rec.CategoryID, ErrNotFound)
		}
		if err != nil {
			return unavailable("record interval", err)
		}
		return nil
	})
}

func validateInterval(rec Interval) error {
	switch {
	case rec.ID == "":
		return fmt.Errorf("interval id is empty: %w", ErrInvalidInput)
	case !rec.Phase.Valid():
		return fmt.Errorf("interval phase %q: %w", rec.Phase, ErrInvalidInput)
	case !rec.Status.Valid():
		return fmt.Errorf("interval status %q: %w", rec.Status, ErrInvalidInput)
	case rec.Phase == PhaseWork && rec.CategoryID == nil:
		return fmt.Errorf("work interval without category: %w", ErrInvalidInput)
	case rec.Start.IsZero():
		return fmt.Errorf("interval start is zero: %w", ErrInvalidInput)
	case rec.End.Before(rec.Start):
		return fmt.Errorf("interval ends before it starts: %w", ErrInvalidInput)
	case rec.Planned < 0 || rec.Actual < 0:
		return fmt.Errorf("negative interval duration: %w", ErrInvalidInput)
	case rec.ActualSeconds() > rec.PlannedSeconds():
		return fmt.Errorf("actual %ds exceeds planned %ds: %w", rec.ActualSeconds(), rec.PlannedSeconds(), ErrInvalidInput)
	case rec.Status == StatusCompleted && rec.ActualSeconds() != rec.PlannedSeconds():
		return fmt.Errorf("completed interval actual %ds != planned %ds: %w", rec.ActualSeconds(), rec.PlannedSeconds(), ErrInvalidInput)
	}
	return nil
}

func (s *Store) GetInterval(ctx context.Context, id string) (*Interval, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+intervalColumns+` FROM intervals WHERE id = ?`, id)
	iv, err := scanInterval(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("interval %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, unavailable("get interval", err)
	}
	return &iv, nil
}

// Intervals returns the records matching f ordered by start time ascending.
// The sequence is lazy: the query runs when it is ranged over, and every
// range runs it again. On an in-memory store the single connection is held
// for the duration of the range, so do not call back into the store from
// inside the loop body.
func (s *Store) Intervals(ctx context.Context, f IntervalFilter) iter.Seq2[Interval, error] {
	return func(yield func(Interval, error) bool) {
		where, args := f.where()
		order := ` ORDER BY start_ts, id`
		if f.Newest {
			order = ` ORDER BY start_ts DESC, id DESC`
		}
		query := `SELECT ` + intervalColumns + ` FROM intervals` + where + order
		if f.Limit > 0 {
			query += fmt.Sprintf(` LIMIT %d`, f.Limit)
			if f.Offset > 0 {
				query += fmt.Sprintf(` OFFSET %d`, f.Offset)
			}
		} else if f.Offset > 0 {
			query += fmt.Sprintf(` LIMIT -1 OFFSET %d`, f.Offset)
		}

		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			yield(Interval{}, unavailable("list intervals", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			iv, err := scanInterval(rows)
			if err != nil {
				yield(Interval{}, unavailable("list intervals", err))
				return
			}
			if !yield(iv, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(Interval{}, unavailable("list intervals", err))
		}
	}
}

// ListIntervals collects Intervals into a slice.
func (s *Store) ListIntervals(ctx context.Context, f IntervalFilter) ([]Interval, error) {
	var out []Interval
	for iv, err := range s.Intervals(ctx, f) {
		if err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	return out, nil
}

func (s *Store) CountIntervals(ctx context.Context, f IntervalFilter) (int, error) {
	where, args := f.where()
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM intervals`+where, args...).Scan(&n); err != nil {
		return 0, unavailable("count intervals", err)
	}
	return n, nil
}

func (f IntervalFilter) where() (string, []any) {
	clause := ` WHERE 1=1`
	var args []any

	if f.CategoryID != nil {
		clause += ` AND category_id = ?`
		args = append(args, *f.CategoryID)
	}
	if f.Phase != "" {
		clause += ` AND phase = ?`
		args = append(args, string(f.Phase))
	}
	if f.Status != "" {
		clause += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	if f.From != nil {
		clause += ` AND start_ts >= ?`
		args = append(args, f.From.UTC().Format(time.RFC3339))
	}
	if f.To != nil {
		clause += ` AND start_ts < ?`
		args = append(args, f.To.UTC().Format(time.RFC3339))
	}
	return clause, args
}

func scanInterval(row rowScanner) (Interval, error) {
	var iv Interval
	var categoryID sql.NullInt64
	var phase, status, start, end, createdAt string
	var planned, actual int64

	err := row.Scan(&iv.ID, &categoryID, &phase, &start, &end, &planned, &actual, &status, &iv.Note, &createdAt)
	if err != nil {
		return Interval{}, err
	}
	if categoryID.Valid {
		id := categoryID.Int64
		iv.CategoryID = &id
	}
	iv.Phase = Phase(phase)
	iv.Status = Status(status)
	iv.Start, _ = time.Parse(time.RFC3339, start)
	iv.End, _ = time.Parse(time.RFC3339, end)
	iv.Planned = time.Duration(planned) * time.Second
	iv.Actual = time.Duration(actual) * time.Second
	iv.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return iv, nil
}
