package timer

import (
	"time"

	"github.com/sadopc/grindstone/internal/store"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseWork
	PhaseShortBreak
	PhaseLongBreak
)

var phaseNames = map[Phase]string{
	PhaseIdle:       "IDLE",
	PhaseWork:       "WORK",
	PhaseShortBreak: "SHORT BREAK",
	PhaseLongBreak:  "LONG BREAK",
}

func (p Phase) String() string { return phaseNames[p] }

func (p Phase) IsBreak() bool { return p == PhaseShortBreak || p == PhaseLongBreak }

func (p Phase) storePhase() store.Phase {
	switch p {
	case PhaseShortBreak:
		return store.PhaseShortBreak
	case PhaseLongBreak:
		return store.PhaseLongBreak
	}
	return store.PhaseWork
}

// Mode is the run mode within a phase.
type Mode int

const (
	ModeStopped Mode = iota
	// ModeReady means the phase is armed but has not been started.
	ModeReady
	ModeRunning
	ModePaused
)

var modeNames = map[Mode]string{
	ModeStopped: "stopped",
	ModeReady:   "ready",
	ModeRunning: "running",
	ModePaused:  "paused",
}

func (m Mode) String() string { return modeNames[m] }

// Snapshot is a copy of the engine state. Reading it has no side effects.
type Snapshot struct {
	Phase     Phase
	Mode      Mode
	Remaining time.Duration
	Elapsed   time.Duration
	Planned   time.Duration

	// CycleCount is the number of work intervals finished in this cycle.
	CycleCount int

	ActiveCategory  *int64
	PendingCategory *int64
	StartedAt       time.Time
	Note            string

	// Condition is set when the engine halted on its own, e.g. with
	// ErrCategoryRequired after auto-advance. Cleared by the next command.
	Condition error
}

// Progress returns the elapsed fraction of the current interval in [0, 1].
func (s Snapshot) Progress() float64 {
	if s.Planned <= 0 {
		return 0
	}
	p := float64(s.Elapsed) / float64(s.Planned)
	return min(max(p, 0), 1)
}

// state is the engine's private mutable state. It is copied by value to
// roll back failed transitions.
type state struct {
	phase     Phase
	mode      Mode
	remaining time.Duration
	planned   time.Duration
	cycle     int

	active  *int64
	pending *int64

	intervalID string
	startedAt  time.Time
	note       string

	cond error
}

func (s state) snapshot() Snapshot {
	snap := Snapshot{
		Phase:           s.phase,
		Mode:            s.mode,
		Remaining:       s.remaining,
		Planned:         s.planned,
		CycleCount:      s.cycle,
		ActiveCategory:  copyID(s.active),
		PendingCategory: copyID(s.pending),
		StartedAt:       s.startedAt,
		Note:            s.note,
		Condition:       s.cond,
	}
	if s.mode == ModeRunning || s.mode == ModePaused {
		snap.Elapsed = s.planned - s.remaining
	}
	return snap
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
