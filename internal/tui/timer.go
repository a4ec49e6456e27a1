package tui

import (
	"context"
	"time"

	"github.com/sadopc/grindstone/internal/timer"
)

// timerModel drives the engine from UI ticks and keys, separate from
// display. It owns the monotonic reference used to compute tick deltas.
type timerModel struct {
	engine   *timer.Engine
	now      func() time.Time
	lastTick time.Time
}

func newTimerModel(e *timer.Engine) timerModel {
	return timerModel{engine: e, now: time.Now}
}

func (t timerModel) snapshot() timer.Snapshot { return t.engine.Snapshot() }

// tick advances the engine by the time since the previous tick. It reports
// whether the phase or mode changed, which means an interval was written.
func (t *timerModel) tick(ctx context.Context, at time.Time) (bool, error) {
	before := t.engine.Snapshot()
	prev := t.lastTick
	t.lastTick = at
	if before.Mode != timer.ModeRunning || prev.IsZero() {
		return false, nil
	}
	delta := at.Sub(prev)
	if delta <= 0 {
		return false, nil
	}
	if err := t.engine.Tick(ctx, delta); err != nil {
		return false, err
	}
	after := t.engine.Snapshot()
	return after.Phase != before.Phase || after.Mode != before.Mode, nil
}

func (t *timerModel) start(ctx context.Context, categoryID *int64, note string) error {
	var opts []timer.StartOption
	if note != "" {
		opts = append(opts, timer.WithNote(note))
	}
	if err := t.engine.Start(ctx, categoryID, opts...); err != nil {
		return err
	}
	t.lastTick = t.now()
	return nil
}

// toggle pauses a running interval or resumes a paused one.
func (t *timerModel) toggle(ctx context.Context) error {
	switch t.engine.Snapshot().Mode {
	case timer.ModeRunning:
		return t.engine.Pause(ctx)
	case timer.ModePaused:
		if err := t.engine.Resume(ctx); err != nil {
			return err
		}
		t.lastTick = t.now()
		return nil
	}
	return nil
}

func (t *timerModel) skip(ctx context.Context) error {
	return t.engine.Skip(ctx)
}

func (t *timerModel) stop(ctx context.Context, resetCycle bool) error {
	return t.engine.Stop(ctx, resetCycle)
}

func (t *timerModel) selectCategory(ctx context.Context, id int64) error {
	return t.engine.SelectCategory(ctx, id)
}

func (t timerModel) running() bool {
	m := t.engine.Snapshot().Mode
	return m == timer.ModeRunning || m == timer.ModePaused
}

func (t timerModel) paused() bool {
	return t.engine.Snapshot().Mode == timer.ModePaused
}
