package handoff

import (
	"context"
	"time"
)

// ChanQueue is an in-process transport for tests and one-shot runs where
// the scout and caseworker share a process.
type ChanQueue struct {
	ch chan Message
}

func NewChanQueue(buffer int) *ChanQueue {
	if buffer <= 0 {
		buffer = 64
	}
	return &ChanQueue{ch: make(chan Message, buffer)}
}

func (q *ChanQueue) Send(ctx context.Context, msg Message) error {
	if msg.EnqueuedAt.IsZero() {
		msg.EnqueuedAt = time.Now().UTC()
	}
	select {
	case q.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *ChanQueue) Receive(ctx context.Context, wait time.Duration) (Message, bool, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case msg := <-q.ch:
		return msg, true, nil
	case <-timer.C:
		return Message{}, false, nil
	case <-ctx.Done():
		return Message{}, false, ctx.Err()
	}
}
