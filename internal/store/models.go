package store

import "time"

// Phase is the kind of a recorded interval.
type Phase string

const (
	PhaseWork       Phase = "work"
	PhaseShortBreak Phase = "short_break"
	PhaseLongBreak  Phase = "long_break"
)

func (p Phase) Valid() bool {
	switch p {
	case PhaseWork, PhaseShortBreak, PhaseLongBreak:
		return true
	}
	return false
}

func (p Phase) IsBreak() bool {
	return p == PhaseShortBreak || p == PhaseLongBreak
}

// Status is how an interval terminated.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
)

func (s Status) Valid() bool {
	return s == StatusCompleted || s == StatusAbandoned
}

// DeletePolicy decides what DeleteCategory does with referencing intervals.
type DeletePolicy int

const (
	// RejectIfReferenced fails with ErrCategoryInUse. This is the default.
	RejectIfReferenced DeletePolicy = iota
	// CascadeDeleteSessions removes the referencing intervals as well.
	CascadeDeleteSessions
)

const DefaultCategoryColor = "#808080"

type Category struct {
	ID        int64
	Name      string
	Color     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Interval is one terminated timer interval. Written once, never mutated.
type Interval struct {
	ID         string
	CategoryID *int64
	Phase      Phase
	Start      time.Time
	End        time.Time
	Planned    time.Duration
	Actual     time.Duration
	Status     Status
	Note       string
	CreatedAt  time.Time
}

func (i Interval) PlannedSeconds() int64 { return int64(i.Planned / time.Second) }
func (i Interval) ActualSeconds() int64  { return int64(i.Actual / time.Second) }

type Setting struct {
	Key   string
	Value string
}

// IntervalFilter is used to filter interval records in queries.
// From and To bound the start timestamp, half-open [From, To).
type IntervalFilter struct {
	CategoryID *int64
	Phase      Phase
	Status     Status
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int

	// Newest lists the most recent intervals first.
	Newest bool
}

// CategoryTotal is the completed work time of one category.
type CategoryTotal struct {
	CategoryID   int64
	Name         string
	Color        string
	TotalSeconds int64
	Count        int
}

var defaultCategories = []Category{
	{Name: "work", Color: "#FF6B6B"},
	{Name: "study", Color: "#4ECDC4"},
	{Name: "coding", Color: "#45B7D1"},
	{Name: "reading", Color: "#96CEB4"},
	{Name: "exercise", Color: "#FFEAA7"},
	{Name: "other", Color: "#DFE6E9"},
}
