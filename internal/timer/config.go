package timer

import (
	"fmt"
	"time"
)

// Config holds the immutable durations and cycle length of the timer.
type Config struct {
	Work       time.Duration
	ShortBreak time.Duration
	LongBreak  time.Duration

	// LongBreakEvery is the number of work intervals per cycle.
	LongBreakEvery int

	// AutoAdvance starts the next interval as soon as one completes.
	AutoAdvance bool

	// WriteTimeout bounds every store write made by the engine.
	WriteTimeout time.Duration
}

// DefaultConfig returns the classic 25/5/15 cycle of four.
func DefaultConfig() Config {
	return Config{
		Work:           25 * time.Minute,
		ShortBreak:     5 * time.Minute,
		LongBreak:      15 * time.Minute,
		LongBreakEvery: 4,
		WriteTimeout:   5 * time.Second,
	}
}

func (c Config) Validate() error {
	switch {
	case c.Work <= 0:
		return fmt.Errorf("work duration %v must be positive: %w", c.Work, ErrInvalidInput)
	case c.ShortBreak <= 0:
		return fmt.Errorf("short break duration %v must be positive: %w", c.ShortBreak, ErrInvalidInput)
	case c.LongBreak <= 0:
		return fmt.Errorf("long break duration %v must be positive: %w", c.LongBreak, ErrInvalidInput)
	case c.LongBreakEvery < 1:
		return fmt.Errorf("long break every %d must be at least 1: %w", c.LongBreakEvery, ErrInvalidInput)
	case c.WriteTimeout < 0:
		return fmt.Errorf("write timeout %v must not be negative: %w", c.WriteTimeout, ErrInvalidInput)
	}
	return nil
}

func (c Config) duration(p Phase) time.Duration {
	switch p {
	case PhaseWork:
		return c.Work
	case PhaseShortBreak:
		return c.ShortBreak
	case PhaseLongBreak:
		return c.LongBreak
	}
	return 0
}
