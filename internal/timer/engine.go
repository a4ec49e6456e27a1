package timer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sadopc/grindstone/internal/store"
)

// Recorder is the part of the store the engine writes through.
type Recorder interface {
	RecordInterval(ctx context.Context, rec store.Interval) error
	GetCategory(ctx context.Context, id int64) (*store.Category, error)
}

// Engine drives interval progression and records every terminated interval.
// Each operation either succeeds or leaves the state exactly as it was.
type Engine struct {
	mu  sync.Mutex
	cfg Config
	rec Recorder
	st  state

	now    func() time.Time
	newID  func(time.Time) string
	logger *slog.Logger
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithIDGenerator replaces the ULID generator used for interval ids.
func WithIDGenerator(gen func(time.Time) string) Option {
	return func(e *Engine) { e.newID = gen }
}

type startOptions struct {
	note string
}

type StartOption func(*startOptions)

// WithNote attaches free text to the interval being started.
func WithNote(note string) StartOption {
	return func(o *startOptions) { o.note = note }
}

func New(cfg Config, rec Recorder, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("nil recorder: %w", ErrInvalidInput)
	}
	e := &Engine{
		cfg:    cfg,
		rec:    rec,
		now:    time.Now,
		newID:  ulidGenerator(),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func ulidGenerator() func(time.Time) string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	return func(t time.Time) string {
		return ulid.MustNew(ulid.Timestamp(t), entropy).String()
	}
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.snapshot()
}

func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// Reconfigure replaces the configuration for intervals started after the
// call. A running or paused interval keeps its planned duration; an armed
// one picks up the new duration.
func (e *Engine) Reconfigure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg
	if e.st.mode == ModeReady {
		e.st.planned = cfg.duration(e.st.phase)
		e.st.remaining = e.st.planned
	}
	return nil
}

// Start runs the armed phase, or a work interval when idle. Work intervals
// need a category: categoryID, or else the one chosen with SelectCategory.
// Breaks ignore categoryID.
func (e *Engine) Start(ctx context.Context, categoryID *int64, opts ...StartOption) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.st.mode != ModeStopped && e.st.mode != ModeReady {
		return fmt.Errorf("start while %s: %w", e.st.mode, ErrInvalidTransition)
	}

	var o startOptions
	for _, opt := range opts {
		opt(&o)
	}

	next := e.st
	if next.phase == PhaseIdle {
		next.phase = PhaseWork
	}
	// The armed duration is fixed only once the interval starts.
	next.planned = e.cfg.duration(next.phase)

	if next.phase == PhaseWork {
		id := categoryID
		if id == nil {
			id = next.pending
		}
		if id == nil {
			return ErrCategoryRequired
		}
		if err := e.checkCategory(ctx, *id); err != nil {
			return err
		}
		next.active = copyID(id)
		next.pending = nil
	} else {
		next.active = nil
	}

	e.begin(&next, o.note)
	e.st = next
	e.logger.Debug("interval started", "phase", next.phase.String(), "id", next.intervalID)
	return nil
}

// SelectCategory validates id and holds it for the next work interval,
// whether started explicitly or by auto-advance. It is used once.
func (e *Engine) SelectCategory(ctx context.Context, id int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkCategory(ctx, id); err != nil {
		return err
	}
	e.st.pending = &id
	e.st.cond = nil
	return nil
}

// Tick advances the running interval by delta. Crossing zero records the
// interval as completed and moves to the next phase; any overshoot is
// dropped.
func (e *Engine) Tick(ctx context.Context, delta time.Duration) error {
	if delta < 0 {
		return fmt.Errorf("tick delta %v: %w", delta, ErrInvalidInput)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.st.mode != ModeRunning {
		return fmt.Errorf("tick while %s: %w", e.st.mode, ErrInvalidTransition)
	}

	if e.st.remaining-delta > 0 {
		e.st.remaining -= delta
		return nil
	}

	if err := e.write(ctx, e.record(e.st, store.StatusCompleted, e.st.planned)); err != nil {
		return err
	}
	e.st = e.advance(ctx, e.st)
	return nil
}

func (e *Engine) Pause(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.st.mode != ModeRunning {
		return fmt.Errorf("pause while %s: %w", e.st.mode, ErrInvalidTransition)
	}
	e.st.mode = ModePaused
	e.st.cond = nil
	return nil
}

func (e *Engine) Resume(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.st.mode != ModePaused {
		return fmt.Errorf("resume while %s: %w", e.st.mode, ErrInvalidTransition)
	}
	e.st.mode = ModeRunning
	e.st.cond = nil
	return nil
}

// Skip abandons the current interval and advances as if it had completed.
// A skipped work interval still counts toward the long break.
func (e *Engine) Skip(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.st.mode != ModeRunning && e.st.mode != ModePaused {
		return fmt.Errorf("skip while %s: %w", e.st.mode, ErrInvalidTransition)
	}

	actual := e.st.planned - e.st.remaining
	if err := e.write(ctx, e.record(e.st, store.StatusAbandoned, actual)); err != nil {
		return err
	}
	e.st = e.advance(ctx, e.st)
	return nil
}

// Stop abandons the current interval, if any time has elapsed in it, and
// returns to idle. The cycle count is kept unless resetCycle is set.
func (e *Engine) Stop(ctx context.Context, resetCycle bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.st.phase == PhaseIdle {
		return fmt.Errorf("stop while idle: %w", ErrInvalidTransition)
	}

	if e.st.mode == ModeRunning || e.st.mode == ModePaused {
		if elapsed := e.st.planned - e.st.remaining; elapsed > 0 {
			if err := e.write(ctx, e.record(e.st, store.StatusAbandoned, elapsed)); err != nil {
				return err
			}
		}
	}

	next := state{cycle: e.st.cycle, pending: e.st.pending}
	if resetCycle {
		next.cycle = 0
	}
	e.logger.Debug("timer stopped", "phase", e.st.phase.String(), "cycle", next.cycle)
	e.st = next
	return nil
}

// advance arms the phase after cur and, with AutoAdvance, starts it.
// It runs only after cur's record committed, so it never fails: problems
// starting the next interval halt the engine with a Condition instead.
func (e *Engine) advance(ctx context.Context, cur state) state {
	next := cur
	switch cur.phase {
	case PhaseWork:
		next.cycle++
		if next.cycle >= e.cfg.LongBreakEvery {
			next.phase = PhaseLongBreak
			next.cycle = 0
		} else {
			next.phase = PhaseShortBreak
		}
	default:
		next.phase = PhaseWork
	}

	next.mode = ModeReady
	next.planned = e.cfg.duration(next.phase)
	next.remaining = next.planned
	next.active = nil
	next.intervalID = ""
	next.startedAt = time.Time{}
	next.note = ""
	next.cond = nil

	e.logger.Debug("phase transition",
		"from", cur.phase.String(), "to", next.phase.String(), "cycle", next.cycle)

	if !e.cfg.AutoAdvance {
		return next
	}
	if next.phase.IsBreak() {
		e.begin(&next, "")
		return next
	}

	if next.pending == nil {
		return e.halt(next, ErrCategoryRequired)
	}
	id := *next.pending
	next.pending = nil
	if err := e.checkCategory(ctx, id); err != nil {
		return e.halt(next, err)
	}
	next.active = &id
	e.begin(&next, "")
	return next
}

func (e *Engine) halt(st state, cond error) state {
	e.logger.Warn("auto-advance halted", "error", cond)
	return state{cycle: st.cycle, pending: st.pending, cond: cond}
}

func (e *Engine) begin(st *state, note string) {
	now := e.now()
	st.mode = ModeRunning
	st.remaining = st.planned
	st.intervalID = e.newID(now)
	st.startedAt = now
	st.note = note
	st.cond = nil
}

func (e *Engine) record(st state, status store.Status, actual time.Duration) store.Interval {
	end := e.now()
	if end.Before(st.startedAt) {
		end = st.startedAt
	}
	rec := store.Interval{
		ID:      st.intervalID,
		Phase:   st.phase.storePhase(),
		Start:   st.startedAt,
		End:     end,
		Planned: st.planned,
		Actual:  actual,
		Status:  status,
		Note:    st.note,
	}
	if st.phase == PhaseWork {
		rec.CategoryID = copyID(st.active)
	}
	return rec
}

func (e *Engine) write(ctx context.Context, rec store.Interval) error {
	ctx, cancel := e.boundedContext(ctx)
	defer cancel()

	if err := e.rec.RecordInterval(ctx, rec); err != nil {
		e.logger.Error("record interval failed",
			"id", rec.ID, "phase", string(rec.Phase), "status", string(rec.Status), "error", err)
		return fmt.Errorf("record %s interval: %w", rec.Phase, err)
	}
	e.logger.Info("interval recorded",
		"id", rec.ID, "phase", string(rec.Phase), "status", string(rec.Status),
		"actual_seconds", rec.ActualSeconds())
	return nil
}

func (e *Engine) checkCategory(ctx context.Context, id int64) error {
	ctx, cancel := e.boundedContext(ctx)
	defer cancel()

	_, err := e.rec.GetCategory(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("category %d: %w", id, ErrInvalidCategory)
	}
	if err != nil {
		return fmt.Errorf("check category %d: %w", id, err)
	}
	return nil
}

func (e *Engine) boundedContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.cfg.WriteTimeout > 0 {
		return context.WithTimeout(ctx, e.cfg.WriteTimeout)
	}
	return context.WithCancel(ctx)
}
