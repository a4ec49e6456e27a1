package timer

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Op names a command the loop can deliver to the engine.
type Op int

const (
	OpStart Op = iota
	OpPause
	OpResume
	OpSkip
	OpStop
	OpSelectCategory
)

// Command is a decoded user command. If Reply is non-nil it receives the
// engine's result; it should be buffered.
type Command struct {
	Op         Op
	CategoryID *int64
	Note       string
	ResetCycle bool
	Reply      chan<- error
}

// Loop is the single control loop for headless use. It alternates between
// ticks and commands so at most one engine operation runs at a time.
type Loop struct {
	engine   *Engine
	interval time.Duration

	// OnTick, if set, is called with a fresh snapshot after every tick.
	OnTick func(Snapshot)
	// OnError, if set, receives tick errors. Commands report through Reply.
	OnError func(error)
}

func NewLoop(engine *Engine, interval time.Duration) *Loop {
	if interval <= 0 {
		interval = time.Second
	}
	return &Loop{engine: engine, interval: interval}
}

// Run blocks until ctx is done or commands is closed.
func (l *Loop) Run(ctx context.Context, commands <-chan Command) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	// time.Now carries a monotonic reading, so deltas ignore wall clock jumps.
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case cmd, ok := <-commands:
			if !ok {
				return nil
			}
			// Credit the running interval up to now before the command
			// changes it.
			now := time.Now()
			l.tick(ctx, now.Sub(last))
			last = now

			wasRunning := l.engine.Snapshot().Mode == ModeRunning
			err := l.dispatch(ctx, cmd)
			// Time spent paused or waiting to start must not be counted.
			if !wasRunning && l.engine.Snapshot().Mode == ModeRunning {
				last = time.Now()
			}
			if cmd.Reply != nil {
				cmd.Reply <- err
			}

		case <-ticker.C:
			now := time.Now()
			l.tick(ctx, now.Sub(last))
			last = now
		}
	}
}

// tick hands delta to the engine if an interval is running.
func (l *Loop) tick(ctx context.Context, delta time.Duration) {
	if l.engine.Snapshot().Mode != ModeRunning {
		return
	}
	if err := l.engine.Tick(ctx, delta); err != nil && l.OnError != nil {
		l.OnError(err)
	}
	if l.OnTick != nil {
		l.OnTick(l.engine.Snapshot())
	}
}

func (l *Loop) dispatch(ctx context.Context, cmd Command) error {
	switch cmd.Op {
	case OpStart:
		return l.engine.Start(ctx, cmd.CategoryID, WithNote(cmd.Note))
	case OpPause:
		return l.engine.Pause(ctx)
	case OpResume:
		return l.engine.Resume(ctx)
	case OpSkip:
		return l.engine.Skip(ctx)
	case OpStop:
		return l.engine.Stop(ctx, cmd.ResetCycle)
	case OpSelectCategory:
		if cmd.CategoryID == nil {
			return fmt.Errorf("select category without id: %w", ErrInvalidInput)
		}
		return l.engine.SelectCategory(ctx, *cmd.CategoryID)
	}
	return fmt.Errorf("unknown command %d: %w", cmd.Op, ErrInvalidInput)
}
