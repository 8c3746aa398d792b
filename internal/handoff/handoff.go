// Package handoff carries the cross-process trigger that lets the discovery
// agent spawn enrichment work without a central broker. Delivery is
// best-effort: the staleness sweep over pending ledger records is what
// upgrades the protocol to at-least-once.
package handoff

import (
	"context"
	"time"
)

// Message is one enrichment trigger. The identity key is the only payload
// the receiver needs; everything else lives in the ledger.
type Message struct {
	ID          string    `json:"id"`
	IdentityKey string    `json:"identity_key"`
	Attempt     int       `json:"attempt"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
}

// Sender delivers a trigger. Implementations must never block on a lost
// consumer and must surface transport failures as errors the caller logs
// and moves past.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Receiver yields the next trigger, blocking up to wait. A zero Message and
// nil error means the wait elapsed with nothing queued.
type Receiver interface {
	Receive(ctx context.Context, wait time.Duration) (Message, bool, error)
}

// Queue is a transport usable from both ends.
type Queue interface {
	Sender
	Receiver
}
