package stats

import (
	"fmt"
	"strings"
	"time"

	"github.com/sadopc/grindstone/internal/store"
)

// Range bounds interval start times, half-open [From, To). A zero bound is
// open-ended.
type Range struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside r.
func (r Range) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && !t.Before(r.To) {
		return false
	}
	return true
}

type Period int

const (
	PeriodDay Period = iota
	PeriodWeek
	PeriodMonth
	PeriodYear
)

var periodNames = map[Period]string{
	PeriodDay:   "day",
	PeriodWeek:  "week",
	PeriodMonth: "month",
	PeriodYear:  "year",
}

func (p Period) String() string { return periodNames[p] }

func ParsePeriod(s string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "day", "today":
		return PeriodDay, nil
	case "week":
		return PeriodWeek, nil
	case "month":
		return PeriodMonth, nil
	case "year":
		return PeriodYear, nil
	}
	return 0, fmt.Errorf("unknown period %q: %w", s, store.ErrInvalidInput)
}

// Range returns the span from the local start of the period containing now
// up to the start of the next one.
func (p Period) Range(now time.Time, loc *time.Location, weekStart time.Weekday) Range {
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)
	today := startOfDay(now)

	switch p {
	case PeriodWeek:
		offset := (int(today.Weekday()) - int(weekStart) + 7) % 7
		from := today.AddDate(0, 0, -offset)
		return Range{From: from, To: from.AddDate(0, 0, 7)}
	case PeriodMonth:
		from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		return Range{From: from, To: from.AddDate(0, 1, 0)}
	case PeriodYear:
		from := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, loc)
		return Range{From: from, To: from.AddDate(1, 0, 0)}
	}
	return Range{From: today, To: today.AddDate(0, 0, 1)}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
