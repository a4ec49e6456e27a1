package store

import (
	"context"
	"time"
)

// CategoryTotals sums completed work seconds per category for intervals
// starting in [from, to). A zero bound is open. Every category is present,
// unused ones with a zero total. Ordered by total desc, then name asc.
func (s *Store) CategoryTotals(ctx context.Context, from, to time.Time) ([]CategoryTotal, error) {
	join := `i.category_id = c.id AND i.phase = 'work' AND i.status = 'completed'`
	var args []any
	if !from.IsZero() {
		join += ` AND i.start_ts >= ?`
		args = append(args, from.UTC().Format(time.RFC3339))
	}
	if !to.IsZero() {
		join += ` AND i.start_ts < ?`
		args = append(args, to.UTC().Format(time.RFC3339))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.color,
		       COALESCE(SUM(i.actual_seconds), 0) AS total, COUNT(i.id)
		FROM categories c
		LEFT JOIN intervals i ON `+join+`
		GROUP BY c.id
		ORDER BY total DESC, c.name ASC`,
		args...,
	)
	if err != nil {
		return nil, unavailable("category totals", err)
	}
	defer rows.Close()

	var totals []CategoryTotal
	for rows.Next() {
		var t CategoryTotal
		if err := rows.Scan(&t.CategoryID, &t.Name, &t.Color, &t.TotalSeconds, &t.Count); err != nil {
			return nil, unavailable("category totals", err)
		}
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("category totals", err)
	}
	return totals, nil
}

// StatusCounts counts completed and abandoned intervals of a phase
// starting in [from, to).
func (s *Store) StatusCounts(ctx context.Context, phase Phase, from, to time.Time) (completed, abandoned int, err error) {
	f := IntervalFilter{Phase: phase}
	if !from.IsZero() {
		f.From = &from
	}
	if !to.IsZero() {
		f.To = &to
	}
	where, args := f.where()

	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(status = 'completed'), 0), COALESCE(SUM(status = 'abandoned'), 0)
		FROM intervals`+where,
		args...,
	).Scan(&completed, &abandoned)
	if err != nil {
		return 0, 0, unavailable("status counts", err)
	}
	return completed, abandoned, nil
}
