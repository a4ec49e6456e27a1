package stats

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/sadopc/grindstone/internal/store"
)

var ErrInvalidInput = store.ErrInvalidInput

// Source is the read side of the store the aggregator needs.
type Source interface {
	CategoryTotals(ctx context.Context, from, to time.Time) ([]store.CategoryTotal, error)
	StatusCounts(ctx context.Context, phase store.Phase, from, to time.Time) (completed, abandoned int, err error)
	Intervals(ctx context.Context, f store.IntervalFilter) iter.Seq2[store.Interval, error]
}

// DayTotal is the completed work time started on one local calendar day.
type DayTotal struct {
	Date    time.Time
	Seconds int64
	Count   int
}

func (d DayTotal) Duration() time.Duration { return time.Duration(d.Seconds) * time.Second }

// Summary is the overview shown for a period.
type Summary struct {
	Period         Period
	Range          Range
	Totals         []store.CategoryTotal
	Focused        time.Duration
	Completed      int
	Abandoned      int
	CompletionRate float64
}

// Aggregator computes read-only statistics over recorded intervals.
type Aggregator struct {
	src       Source
	loc       *time.Location
	weekStart time.Weekday
	now       func() time.Time
}

type Option func(*Aggregator)

// WithLocation sets the zone whose midnight separates days.
func WithLocation(loc *time.Location) Option {
	return func(a *Aggregator) {
		if loc != nil {
			a.loc = loc
		}
	}
}

func WithWeekStart(d time.Weekday) Option {
	return func(a *Aggregator) { a.weekStart = d }
}

func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

func New(src Source, opts ...Option) *Aggregator {
	a := &Aggregator{
		src:       src,
		loc:       time.Local,
		weekStart: time.Monday,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Aggregator) Location() *time.Location { return a.loc }

// TotalsByCategory returns completed work seconds per category, including
// categories with nothing recorded, ordered by total desc then name.
// Abandoned intervals and breaks never contribute.
func (a *Aggregator) TotalsByCategory(ctx context.Context, r Range) ([]store.CategoryTotal, error) {
	totals, err := a.src.CategoryTotals(ctx, r.From, r.To)
	if err != nil {
		return nil, fmt.Errorf("totals by category: %w", err)
	}
	return totals, nil
}

// DailyBreakdown returns one entry per local day from first to last
// inclusive, zero-filled. categoryID nil means every category.
func (a *Aggregator) DailyBreakdown(ctx context.Context, categoryID *int64, first, last time.Time) ([]DayTotal, error) {
	first = startOfDay(first.In(a.loc))
	last = startOfDay(last.In(a.loc))
	if last.Before(first) {
		return nil, fmt.Errorf("daily breakdown: last day %s before first %s: %w",
			last.Format(time.DateOnly), first.Format(time.DateOnly), ErrInvalidInput)
	}

	var days []DayTotal
	index := map[string]int{}
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		index[d.Format(time.DateOnly)] = len(days)
		days = append(days, DayTotal{Date: d})
	}

	end := last.AddDate(0, 0, 1)
	f := store.IntervalFilter{
		CategoryID: categoryID,
		Phase:      store.PhaseWork,
		Status:     store.StatusCompleted,
		From:       &first,
		To:         &end,
	}
	for iv, err := range a.src.Intervals(ctx, f) {
		if err != nil {
			return nil, fmt.Errorf("daily breakdown: %w", err)
		}
		i, ok := index[iv.Start.In(a.loc).Format(time.DateOnly)]
		if !ok {
			continue
		}
		days[i].Seconds += iv.ActualSeconds()
		days[i].Count++
	}
	return days, nil
}

// LastDays is DailyBreakdown for the n days ending today.
func (a *Aggregator) LastDays(ctx context.Context, categoryID *int64, n int) ([]DayTotal, error) {
	if n < 1 {
		return nil, fmt.Errorf("last %d days: %w", n, ErrInvalidInput)
	}
	today := a.now()
	return a.DailyBreakdown(ctx, categoryID, today.AddDate(0, 0, -(n-1)), today)
}

// CompletionRate is completed / (completed + abandoned) over work
// intervals, or 0 when there are none.
func (a *Aggregator) CompletionRate(ctx context.Context, r Range) (float64, error) {
	completed, abandoned, err := a.src.StatusCounts(ctx, store.PhaseWork, r.From, r.To)
	if err != nil {
		return 0, fmt.Errorf("completion rate: %w", err)
	}
	return rate(completed, abandoned), nil
}

// Summary collects the overview for the period containing now.
func (a *Aggregator) Summary(ctx context.Context, p Period) (Summary, error) {
	r := p.Range(a.now(), a.loc, a.weekStart)

	totals, err := a.TotalsByCategory(ctx, r)
	if err != nil {
		return Summary{}, err
	}
	completed, abandoned, err := a.src.StatusCounts(ctx, store.PhaseWork, r.From, r.To)
	if err != nil {
		return Summary{}, fmt.Errorf("summary: %w", err)
	}

	s := Summary{
		Period:         p,
		Range:          r,
		Totals:         totals,
		Completed:      completed,
		Abandoned:      abandoned,
		CompletionRate: rate(completed, abandoned),
	}
	for _, t := range totals {
		s.Focused += time.Duration(t.TotalSeconds) * time.Second
	}
	return s, nil
}

func rate(completed, abandoned int) float64 {
	if completed+abandoned == 0 {
		return 0
	}
	return float64(completed) / float64(completed+abandoned)
}
