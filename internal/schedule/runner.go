// Package schedule provides the periodic runner every agent loop sits on.
// The wall-clock wait lives behind a Clock interface so tests drive ticks
// with a manual clock instead of sleeping.
package schedule

import (
	"context"
	"log"
	"time"
)

// Clock abstracts time for the runner.
type Clock interface {
	Now() time.Time
	Tick(d time.Duration) <-chan time.Time
}

// RealClock delegates to the time package.
type RealClock struct {
	tickers []*time.Ticker
}

func (c *RealClock) Now() time.Time { return time.Now() }

func (c *RealClock) Tick(d time.Duration) <-chan time.Time {
	t := time.NewTicker(d)
	c.tickers = append(c.tickers, t)
	return t.C
}

// Stop releases any tickers handed out.
func (c *RealClock) Stop() {
	for _, t := range c.tickers {
		t.Stop()
	}
}

// ManualClock is a test clock advanced explicitly.
type ManualClock struct {
	now time.Time
	ch  chan time.Time
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start, ch: make(chan time.Time, 16)}
}

func (c *ManualClock) Now() time.Time { return c.now }

func (c *ManualClock) Tick(time.Duration) <-chan time.Time { return c.ch }

// Advance moves the clock forward and fires one tick.
func (c *ManualClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
	c.ch <- c.now
}

// Runner invokes a tick function immediately and then on every interval
// until the context is cancelled. Tick errors are logged and the loop
// continues: one bad tick never stops an agent.
type Runner struct {
	Name     string
	Interval time.Duration
	Clock    Clock
	Tick     func(ctx context.Context) error
}

func (r *Runner) Run(ctx context.Context) error {
	clock := r.Clock
	if clock == nil {
		clock = &RealClock{}
	}
	if err := r.runTick(ctx); err != nil {
		log.Printf("[%s] tick failed: %v", r.Name, err)
	}
	ticks := clock.Tick(r.Interval)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticks:
			if err := r.runTick(ctx); err != nil {
				log.Printf("[%s] tick failed: %v", r.Name, err)
			}
		}
	}
}

func (r *Runner) runTick(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return r.Tick(ctx)
}
