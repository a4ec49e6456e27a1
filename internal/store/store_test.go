package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var idSeq int

// insertInterval is a test helper that records an interval starting at start.
func insertInterval(t *testing.T, s *Store, categoryID *int64, phase Phase, status Status, start time.Time, planned, actual time.Duration) Interval {
	t.Helper()
	idSeq++
	rec := Interval{
		ID:         fmt.Sprintf("iv-%04d", idSeq),
		CategoryID: categoryID,
		Phase:      phase,
		Start:      start,
		End:        start.Add(actual),
		Planned:    planned,
		Actual:     actual,
		Status:     status,
	}
	if err := s.RecordInterval(context.Background(), rec); err != nil {
		t.Fatalf("record interval: %v", err)
	}
	return rec
}

func mustCategory(t *testing.T, s *Store, name string) *Category {
	t.Helper()
	c, err := s.CreateCategory(context.Background(), name, "")
	if err != nil {
		t.Fatalf("create category %q: %v", name, err)
	}
	return c
}

var base = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// ============================================================
// Store initialization
// ============================================================

func TestNewMemory(t *testing.T) {
	s, err := NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var version int
	s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if version != 1 {
		t.Fatalf("expected user_version 1, got %d", version)
	}
}

func TestNewWithPath(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/sub/grindstone.db"
	s, err := New(path, WithDefaultCategories())
	if err != nil {
		t.Fatal(err)
	}
	c := mustCategory(t, s, "Writing")
	s.Close()

	// Reopen: no re-migration, no second seeding, data survives.
	s2, err := New(path, WithDefaultCategories())
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()

	got, err := s2.GetCategory(context.Background(), c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Writing" {
		t.Fatalf("expected Writing, got %q", got.Name)
	}
	cats, _ := s2.ListCategories(context.Background())
	if len(cats) != len(defaultCategories)+1 {
		t.Fatalf("expected %d categories, got %d", len(defaultCategories)+1, len(cats))
	}
}

func TestDefaultDBPath(t *testing.T) {
	path, err := DefaultDBPath()
	if err != nil {
		t.Fatal(err)
	}
	if path == "" {
		t.Fatal("empty path")
	}
}

func TestPragmasConfigured(t *testing.T) {
	s := newTestStore(t)

	var fk int
	s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk)
	if fk != 1 {
		t.Fatalf("expected foreign_keys=1, got %d", fk)
	}

	var busy int
	s.db.QueryRow("PRAGMA busy_timeout").Scan(&busy)
	if busy != 5000 {
		t.Fatalf("expected busy_timeout=5000, got %d", busy)
	}
}

func TestMigrationIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.migrate(); err != nil {
		t.Fatalf("second migration failed: %v", err)
	}
}

func TestSeedDefaultCategories(t *testing.T) {
	s, err := NewMemory(WithDefaultCategories())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	cats, err := s.ListCategories(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 6 {
		t.Fatalf("expected 6 seeded categories, got %d", len(cats))
	}
	if _, err := s.GetCategoryByName(context.Background(), "coding"); err != nil {
		t.Fatalf("expected coding category: %v", err)
	}
}

func TestNoSeedWithoutOption(t *testing.T) {
	s := newTestStore(t)
	cats, err := s.ListCategories(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if cats != nil {
		t.Fatalf("expected no categories, got %d", len(cats))
	}
}

// ============================================================
// Categories
// ============================================================

func TestCreateAndGetCategory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c, err := s.CreateCategory(ctx, "Writing", "#FF0000")
	if err != nil {
		t.Fatal(err)
	}
	if c.ID == 0 {
		t.Fatal("expected non-zero ID")
	}
	if c.Name != "Writing" || c.Color != "#FF0000" {
		t.Fatalf("unexpected category: %+v", c)
	}
	if c.CreatedAt.IsZero() {
		t.Fatal("CreatedAt should be set")
	}

	fetched, err := s.GetCategory(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.Name != "Writing" {
		t.Fatalf("GetCategory returned %q", fetched.Name)
	}
}

func TestCreateCategoryDefaultColor(t *testing.T) {
	s := newTestStore(t)
	c := mustCategory(t, s, "Plain")
	if c.Color != DefaultCategoryColor {
		t.Fatalf("expected default color, got %q", c.Color)
	}
}

func TestCreateCategoryDuplicateName(t *testing.T) {
	s := newTestStore(t)
	mustCategory(t, s, "Dup")
	_, err := s.CreateCategory(context.Background(), "Dup", "#222")
	if !errors.Is(err, ErrDuplicateCategory) {
		t.Fatalf("expected ErrDuplicateCategory, got %v", err)
	}
}

func TestCreateCategoryCaseSensitive(t *testing.T) {
	s := newTestStore(t)
	mustCategory(t, s, "writing")
	if _, err := s.CreateCategory(context.Background(), "Writing", ""); err != nil {
		t.Fatalf("names differing in case should both be allowed: %v", err)
	}
}

func TestCreateCategoryEmptyName(t *testing.T) {
	s := newTestStore(t)
	for _, name := range []string{"", "   ", "\t\n"} {
		_, err := s.CreateCategory(context.Background(), name, "")
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("name %q: expected ErrInvalidInput, got %v", name, err)
		}
	}
}

func TestGetCategoryNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetCategory(context.Background(), 999)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	_, err = s.GetCategoryByName(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListCategoriesSorted(t *testing.T) {
	s := newTestStore(t)
	mustCategory(t, s, "B")
	mustCategory(t, s, "A")

	cats, err := s.ListCategories(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 2 || cats[0].Name != "A" || cats[1].Name != "B" {
		t.Fatalf("expected sorted by name, got %+v", cats)
	}
}

func TestRenameCategoryRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := mustCategory(t, s, "Old")

	fetched, err := s.GetCategory(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.RenameCategory(ctx, fetched.ID, "New"); err != nil {
		t.Fatal(err)
	}

	cats, err := s.ListCategories(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 1 {
		t.Fatalf("expected exactly one category, got %d", len(cats))
	}
	if cats[0].ID != c.ID || cats[0].Name != "New" {
		t.Fatalf("expected id %d named New, got %+v", c.ID, cats[0])
	}
}

func TestRenameCategoryErrors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := mustCategory(t, s, "A")
	mustCategory(t, s, "B")

	if err := s.RenameCategory(ctx, 999, "X"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.RenameCategory(ctx, a.ID, "B"); !errors.Is(err, ErrDuplicateCategory) {
		t.Fatalf("expected ErrDuplicateCategory, got %v", err)
	}
	if err := s.RenameCategory(ctx, a.ID, " "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if err := s.RenameCategory(ctx, a.ID, "A"); err != nil {
		t.Fatalf("renaming to the current name should succeed: %v", err)
	}
}

func TestSetCategoryColor(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := mustCategory(t, s, "Dev")
	if err := s.SetCategoryColor(ctx, c.ID, "#123456"); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetCategory(ctx, c.ID)
	if got.Color != "#123456" {
		t.Fatalf("expected #123456, got %q", got.Color)
	}
	if err := s.SetCategoryColor(ctx, 999, "#000000"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteCategoryUnreferenced(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := mustCategory(t, s, "Gone")

	removed, err := s.DeleteCategory(ctx, c.ID, RejectIfReferenced)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 0 {
		t.Fatalf("expected 0 intervals removed, got %d", removed)
	}
	if _, err := s.GetCategory(ctx, c.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected category gone, got %v", err)
	}
}

func TestDeleteCategoryRejectIfReferenced(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := mustCategory(t, s, "Busy")
	insertInterval(t, s, &c.ID, PhaseWork, StatusCompleted, base, 25*time.Minute, 25*time.Minute)

	_, err := s.DeleteCategory(ctx, c.ID, RejectIfReferenced)
	if !errors.Is(err, ErrCategoryInUse) {
		t.Fatalf("expected ErrCategoryInUse, got %v", err)
	}
	if _, err := s.GetCategory(ctx, c.ID); err != nil {
		t.Fatalf("category should survive a rejected delete: %v", err)
	}
}

func TestDeleteCategoryCascade(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := mustCategory(t, s, "Busy")
	other := mustCategory(t, s, "Other")
	insertInterval(t, s, &c.ID, PhaseWork, StatusCompleted, base, 25*time.Minute, 25*time.Minute)
	insertInterval(t, s, &c.ID, PhaseWork, StatusAbandoned, base.Add(time.Hour), 25*time.Minute, 5*time.Minute)
	insertInterval(t, s, &other.ID, PhaseWork, StatusCompleted, base.Add(2*time.Hour), 25*time.Minute, 25*time.Minute)

	removed, err := s.DeleteCategory(ctx, c.ID, CascadeDeleteSessions)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 intervals removed, got %d", removed)
	}
	n, _ := s.CountIntervals(ctx, IntervalFilter{})
	if n != 1 {
		t.Fatalf("expected 1 interval left, got %d", n)
	}
}

func TestDeleteCategoryNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.DeleteCategory(context.Background(), 42, CascadeDeleteSessions)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// ============================================================
// Intervals
// ============================================================

func TestRecordAndGetInterval(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := mustCategory(t, s, "Writing")

	rec := Interval{
		ID:         "01HZY",
		CategoryID: &c.ID,
		Phase:      PhaseWork,
		Start:      base,
		End:        base.Add(25 * time.Minute),
		Planned:    25 * time.Minute,
		Actual:     25 * time.Minute,
		Status:     StatusCompleted,
		Note:       "chapter 3",
	}
	if err := s.RecordInterval(ctx, rec); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetInterval(ctx, "01HZY")
	if err != nil {
		t.Fatal(err)
	}
	if got.CategoryID == nil || *got.CategoryID != c.ID {
		t.Fatalf("category mismatch: %+v", got)
	}
	if got.PlannedSeconds() != 1500 || got.ActualSeconds() != 1500 {
		t.Fatalf("durations mismatch: %+v", got)
	}
	if !got.Start.Equal(base) || !got.End.Equal(base.Add(25*time.Minute)) {
		t.Fatalf("timestamps mismatch: %v %v", got.Start, got.End)
	}
	if got.Note != "chapter 3" || got.Status != StatusCompleted || got.Phase != PhaseWork {
		t.Fatalf("fields mismatch: %+v", got)
	}
}

func TestRecordBreakWithoutCategory(t *testing.T) {
	s := newTestStore(t)
	rec := insertInterval(t, s, nil, PhaseShortBreak, StatusCompleted, base, 5*time.Minute, 5*time.Minute)
	got, err := s.GetInterval(context.Background(), rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.CategoryID != nil {
		t.Fatal("break should have no category")
	}
}

func TestRecordIntervalValidation(t *testing.T) {
	s := newTestStore(t)
	c := mustCategory(t, s, "Dev")
	valid := Interval{
		ID: "x", CategoryID: &c.ID, Phase: PhaseWork, Start: base, End: base.Add(time.Minute),
		Planned: time.Minute, Actual: time.Minute, Status: StatusCompleted,
	}

	cases := map[string]func(iv *Interval){
		"empty id":              func(iv *Interval) { iv.ID = "" },
		"bad phase":             func(iv *Interval) { iv.Phase = "nap" },
		"bad status":            func(iv *Interval) { iv.Status = "maybe" },
		"work without category": func(iv *Interval) { iv.CategoryID = nil },
		"end before start":      func(iv *Interval) { iv.End = base.Add(-time.Second) },
		"actual over planned":   func(iv *Interval) { iv.Actual = 2 * time.Minute; iv.Status = StatusAbandoned },
		"completed short":       func(iv *Interval) { iv.Actual = 30 * time.Second },
		"zero start":            func(iv *Interval) { iv.Start = time.Time{} },
	}
	for name, mutate := range cases {
		iv := valid
		mutate(&iv)
		if err := s.RecordInterval(context.Background(), iv); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%s: expected ErrInvalidInput, got %v", name, err)
		}
	}
	n, _ := s.CountIntervals(context.Background(), IntervalFilter{})
	if n != 0 {
		t.Fatalf("invalid records must not be written, found %d", n)
	}
}

func TestRecordIntervalUnknownCategory(t *testing.T) {
	s := newTestStore(t)
	missing := int64(77)
	err := s.RecordInterval(context.Background(), Interval{
		ID: "x", CategoryID: &missing, Phase: PhaseWork, Start: base, End: base,
		Planned: time.Minute, Status: StatusAbandoned,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordIntervalIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	rec := insertInterval(t, s, nil, PhaseLongBreak, StatusCompleted, base, 15*time.Minute, 15*time.Minute)

	if err := s.RecordInterval(ctx, rec); err != nil {
		t.Fatalf("retrying the same record should succeed: %v", err)
	}
	n, _ := s.CountIntervals(ctx, IntervalFilter{})
	if n != 1 {
		t.Fatalf("expected exactly one record, got %d", n)
	}
}

func TestIntervalsAppendOnly(t *testing.T) {
	s := newTestStore(t)
	rec := insertInterval(t, s, nil, PhaseShortBreak, StatusCompleted, base, 5*time.Minute, 5*time.Minute)

	_, err := s.db.Exec(`UPDATE intervals SET actual_seconds = 1 WHERE id = ?`, rec.ID)
	if err == nil {
		t.Fatal("expected update to be rejected")
	}
	got, _ := s.GetInterval(context.Background(), rec.ID)
	if got.ActualSeconds() != 300 {
		t.Fatalf("record changed: %+v", got)
	}
}

func TestListIntervalsFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := mustCategory(t, s, "A")
	b := mustCategory(t, s, "B")

	insertInterval(t, s, &a.ID, PhaseWork, StatusCompleted, base.Add(2*time.Hour), 25*time.Minute, 25*time.Minute)
	insertInterval(t, s, &a.ID, PhaseWork, StatusAbandoned, base, 25*time.Minute, 3*time.Minute)
	insertInterval(t, s, &b.ID, PhaseWork, StatusCompleted, base.Add(time.Hour), 25*time.Minute, 25*time.Minute)
	insertInterval(t, s, nil, PhaseShortBreak, StatusCompleted, base.Add(30*time.Minute), 5*time.Minute, 5*time.Minute)

	all, err := s.ListIntervals(ctx, IntervalFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].Start.Before(all[i-1].Start) {
			t.Fatal("intervals should be ordered by start ascending")
		}
	}

	byCat, _ := s.ListIntervals(ctx, IntervalFilter{CategoryID: &a.ID})
	if len(byCat) != 2 {
		t.Fatalf("expected 2 for category A, got %d", len(byCat))
	}

	breaks, _ := s.ListIntervals(ctx, IntervalFilter{Phase: PhaseShortBreak})
	if len(breaks) != 1 {
		t.Fatalf("expected 1 short break, got %d", len(breaks))
	}

	abandoned, _ := s.ListIntervals(ctx, IntervalFilter{Status: StatusAbandoned})
	if len(abandoned) != 1 || abandoned[0].ActualSeconds() != 180 {
		t.Fatalf("expected the abandoned interval, got %+v", abandoned)
	}

	from := base.Add(30 * time.Minute)
	to := base.Add(2 * time.Hour)
	ranged, _ := s.ListIntervals(ctx, IntervalFilter{From: &from, To: &to})
	if len(ranged) != 2 {
		t.Fatalf("expected 2 in [from, to), got %d", len(ranged))
	}
}

func TestIntervalsPaging(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		insertInterval(t, s, nil, PhaseShortBreak, StatusCompleted, base.Add(time.Duration(i)*time.Hour), 5*time.Minute, 5*time.Minute)
	}

	page1, _ := s.ListIntervals(ctx, IntervalFilter{Limit: 2})
	page2, _ := s.ListIntervals(ctx, IntervalFilter{Limit: 2, Offset: 2})
	rest, _ := s.ListIntervals(ctx, IntervalFilter{Offset: 4})
	if len(page1) != 2 || len(page2) != 2 || len(rest) != 1 {
		t.Fatalf("unexpected page sizes: %d %d %d", len(page1), len(page2), len(rest))
	}
	if !page2[0].Start.Equal(base.Add(2 * time.Hour)) {
		t.Fatalf("page 2 starts at wrong record: %v", page2[0].Start)
	}
}

func TestIntervalsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		insertInterval(t, s, nil, PhaseShortBreak, StatusCompleted, base.Add(time.Duration(i)*time.Hour), 5*time.Minute, 5*time.Minute)
	}

	latest, err := s.ListIntervals(ctx, IntervalFilter{Limit: 2, Newest: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(latest) != 2 || !latest[0].Start.Equal(base.Add(2*time.Hour)) || !latest[1].Start.Equal(base.Add(time.Hour)) {
		t.Fatalf("expected the two latest, newest first, got %+v", latest)
	}
}

func TestIntervalsRestartable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertInterval(t, s, nil, PhaseShortBreak, StatusCompleted, base, 5*time.Minute, 5*time.Minute)

	seq := s.Intervals(ctx, IntervalFilter{})
	count := func() int {
		n := 0
		for _, err := range seq {
			if err != nil {
				t.Fatal(err)
			}
			n++
		}
		return n
	}
	if count() != 1 {
		t.Fatal("first range should see one record")
	}

	insertInterval(t, s, nil, PhaseShortBreak, StatusCompleted, base.Add(time.Hour), 5*time.Minute, 5*time.Minute)
	if count() != 2 {
		t.Fatal("ranging again should rerun the query")
	}
}

func TestIntervalsEarlyBreak(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		insertInterval(t, s, nil, PhaseShortBreak, StatusCompleted, base.Add(time.Duration(i)*time.Hour), 5*time.Minute, 5*time.Minute)
	}
	for range s.Intervals(ctx, IntervalFilter{}) {
		break
	}
	// The connection must have been released.
	if _, err := s.CountIntervals(ctx, IntervalFilter{}); err != nil {
		t.Fatalf("store unusable after early break: %v", err)
	}
}

// ============================================================
// Aggregates
// ============================================================

func TestCategoryTotals(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := mustCategory(t, s, "Alpha")
	b := mustCategory(t, s, "Beta")
	mustCategory(t, s, "Zeta")
	mustCategory(t, s, "Eta")

	insertInterval(t, s, &a.ID, PhaseWork, StatusCompleted, base, 25*time.Minute, 25*time.Minute)
	insertInterval(t, s, &b.ID, PhaseWork, StatusCompleted, base.Add(time.Hour), 50*time.Minute, 50*time.Minute)
	insertInterval(t, s, &a.ID, PhaseWork, StatusAbandoned, base.Add(2*time.Hour), 25*time.Minute, 20*time.Minute)
	insertInterval(t, s, nil, PhaseLongBreak, StatusCompleted, base.Add(3*time.Hour), 15*time.Minute, 15*time.Minute)

	totals, err := s.CategoryTotals(ctx, time.Time{}, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	want := []struct {
		name  string
		total int64
	}{{"Beta", 3000}, {"Alpha", 1500}, {"Eta", 0}, {"Zeta", 0}}
	if len(totals) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(totals))
	}
	for i, w := range want {
		if totals[i].Name != w.name || totals[i].TotalSeconds != w.total {
			t.Fatalf("row %d: expected %s=%d, got %s=%d", i, w.name, w.total, totals[i].Name, totals[i].TotalSeconds)
		}
	}
}

func TestCategoryTotalsRange(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := mustCategory(t, s, "A")
	insertInterval(t, s, &a.ID, PhaseWork, StatusCompleted, base, 25*time.Minute, 25*time.Minute)
	insertInterval(t, s, &a.ID, PhaseWork, StatusCompleted, base.Add(24*time.Hour), 25*time.Minute, 25*time.Minute)

	totals, err := s.CategoryTotals(ctx, base.Add(time.Hour), time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(totals) != 1 || totals[0].TotalSeconds != 1500 || totals[0].Count != 1 {
		t.Fatalf("unexpected totals: %+v", totals)
	}
}

func TestStatusCounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := mustCategory(t, s, "A")
	insertInterval(t, s, &a.ID, PhaseWork, StatusCompleted, base, 25*time.Minute, 25*time.Minute)
	insertInterval(t, s, &a.ID, PhaseWork, StatusCompleted, base.Add(time.Hour), 25*time.Minute, 25*time.Minute)
	insertInterval(t, s, &a.ID, PhaseWork, StatusAbandoned, base.Add(2*time.Hour), 25*time.Minute, time.Minute)
	insertInterval(t, s, nil, PhaseShortBreak, StatusAbandoned, base.Add(3*time.Hour), 5*time.Minute, time.Minute)

	completed, abandoned, err := s.StatusCounts(ctx, PhaseWork, time.Time{}, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if completed != 2 || abandoned != 1 {
		t.Fatalf("expected 2/1, got %d/%d", completed, abandoned)
	}

	completed, abandoned, err = s.StatusCounts(ctx, PhaseWork, base.Add(10*time.Hour), time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if completed != 0 || abandoned != 0 {
		t.Fatalf("expected 0/0 for empty range, got %d/%d", completed, abandoned)
	}
}

// ============================================================
// Settings
// ============================================================

func TestSettingsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.GetSetting(ctx, "timer.work"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.SetSetting(ctx, "timer.work", "30m"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetSetting(ctx, "timer.work", "45m"); err != nil {
		t.Fatal(err)
	}
	v, err := s.GetSetting(ctx, "timer.work")
	if err != nil {
		t.Fatal(err)
	}
	if v != "45m" {
		t.Fatalf("expected 45m, got %q", v)
	}

	s.SetSetting(ctx, "a.first", "1")
	all, _ := s.GetAllSettings(ctx)
	if len(all) != 2 || all[0].Key != "a.first" {
		t.Fatalf("expected 2 sorted settings, got %+v", all)
	}
}

// ============================================================
// Failure modes
// ============================================================

func TestClosedStoreIsUnavailable(t *testing.T) {
	s, err := NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	ctx := context.Background()
	err = s.RecordInterval(ctx, Interval{
		ID: "x", Phase: PhaseShortBreak, Start: base, End: base, Planned: time.Minute, Status: StatusAbandoned,
	})
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
	if _, err := s.ListCategories(ctx); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
	if _, err := s.CreateCategory(ctx, "x", ""); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}

func TestCanceledContextIsUnavailable(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.CreateCategory(ctx, "late", "")
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
	cats, _ := s.ListCategories(context.Background())
	if len(cats) != 0 {
		t.Fatal("nothing should have been written")
	}
}

func TestConstraintViolationsUseResultCodes(t *testing.T) {
	s := newTestStore(t)
	mustCategory(t, s, "Dev")

	_, err := s.db.Exec(`INSERT INTO categories (name) VALUES ('Dev')`)
	if !isUniqueViolation(err) || isForeignKeyViolation(err) {
		t.Fatalf("duplicate name: unique=%v fk=%v (%v)", isUniqueViolation(err), isForeignKeyViolation(err), err)
	}

	_, err = s.db.Exec(`INSERT INTO intervals (id, category_id, phase, start_ts, end_ts, planned_seconds, actual_seconds, status)
		VALUES ('dangling', 999, 'work', '2026-03-02T09:00:00Z', '2026-03-02T09:01:00Z', 60, 60, 'completed')`)
	if !isForeignKeyViolation(err) || isUniqueViolation(err) {
		t.Fatalf("dangling category: unique=%v fk=%v (%v)", isUniqueViolation(err), isForeignKeyViolation(err), err)
	}

	// Only driver result codes count, not message text.
	if isUniqueViolation(errors.New("UNIQUE constraint failed: categories.name")) {
		t.Fatal("plain error classified as unique violation")
	}
	if isForeignKeyViolation(nil) || isUniqueViolation(nil) {
		t.Fatal("nil classified as a violation")
	}
}

// ============================================================
// Concurrency
// ============================================================

func TestConcurrentReadersSeeWholeIntervals(t *testing.T) {
	s, err := New(t.TempDir() + "/concurrent.db")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	cats := []*Category{mustCategory(t, s, "Dev"), mustCategory(t, s, "Study")}

	const (
		writes  = 60
		readers = 4
		minute  = 60
	)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for range readers {
		wg.Go(func() {
			seen := 0
			for {
				select {
				case <-stop:
					return
				default:
				}

				list, err := s.ListIntervals(ctx, IntervalFilter{})
				if err != nil {
					t.Errorf("list intervals: %v", err)
					return
				}
				if len(list) < seen {
					t.Errorf("interval count went back from %d to %d", seen, len(list))
					return
				}
				seen = len(list)
				for _, iv := range list {
					if iv.ActualSeconds() != minute || iv.PlannedSeconds() != minute ||
						iv.CategoryID == nil || iv.Status != StatusCompleted || iv.Note != "n-"+iv.ID {
						t.Errorf("partial interval read: %+v", iv)
						return
					}
				}

				totals, err := s.CategoryTotals(ctx, time.Time{}, time.Time{})
				if err != nil {
					t.Errorf("category totals: %v", err)
					return
				}
				for _, tot := range totals {
					if tot.TotalSeconds != int64(tot.Count)*minute {
						t.Errorf("%s: %d seconds over %d intervals", tot.Name, tot.TotalSeconds, tot.Count)
						return
					}
				}
			}
		})
	}

	for i := range writes {
		start := base.Add(time.Duration(i) * time.Hour)
		id := fmt.Sprintf("cc-%04d", i)
		rec := Interval{
			ID:         id,
			CategoryID: &cats[i%len(cats)].ID,
			Phase:      PhaseWork,
			Start:      start,
			End:        start.Add(time.Minute),
			Planned:    time.Minute,
			Actual:     time.Minute,
			Status:     StatusCompleted,
			Note:       "n-" + id,
		}
		if err := s.RecordInterval(ctx, rec); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	close(stop)
	wg.Wait()

	n, err := s.CountIntervals(ctx, IntervalFilter{})
	if err != nil || n != writes {
		t.Fatalf("count = %d, %v; want %d", n, err, writes)
	}
	totals, err := s.CategoryTotals(ctx, time.Time{}, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	var sum int64
	for _, tot := range totals {
		sum += tot.TotalSeconds
	}
	if sum != writes*minute {
		t.Fatalf("total seconds = %d, want %d", sum, writes*minute)
	}
}
