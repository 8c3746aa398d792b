package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunnerTicksOnClock(t *testing.T) {
	clock := NewManualClock(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	var ticks atomic.Int64
	fired := make(chan struct{}, 16)

	runner := &Runner{
		Name:     "test",
		Interval: time.Minute,
		Clock:    clock,
		Tick: func(context.Context) error {
			ticks.Add(1)
			fired <- struct{}{}
			return nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	// First tick runs immediately.
	<-fired
	if got := ticks.Load(); got != 1 {
		t.Fatalf("immediate tick: got %d", got)
	}

	clock.Advance(time.Minute)
	<-fired
	clock.Advance(time.Minute)
	<-fired
	if got := ticks.Load(); got != 3 {
		t.Fatalf("after two advances: got %d ticks", got)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("run should return context error, got %v", err)
	}
}

func TestRunnerSurvivesTickErrors(t *testing.T) {
	clock := NewManualClock(time.Now())
	fired := make(chan struct{}, 16)

	runner := &Runner{
		Name:     "test",
		Interval: time.Minute,
		Clock:    clock,
		Tick: func(context.Context) error {
			fired <- struct{}{}
			return errors.New("boom")
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = runner.Run(ctx) }()

	<-fired
	clock.Advance(time.Minute)
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatalf("runner stopped after a tick error")
	}
}
