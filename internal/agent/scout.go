// Package agent contains the three coordinated loops: the scout discovers
// candidate events, the caseworker enriches them, and the watchdog reports
// aggregates. All cross-agent state goes through the ledger; the handoff
// queue is only an optimization over the staleness sweep.
package agent

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"second-chance-agents/internal/feed"
	"second-chance-agents/internal/handoff"
	"second-chance-agents/internal/ledger"
	"second-chance-agents/internal/models"
	"second-chance-agents/internal/telemetry"
)

// Scout polls the feed, appends new records, and hands each insert off for
// enrichment. Feed failures and individual candidate failures never abort
// a tick.
type Scout struct {
	Fetcher    feed.Fetcher
	Ledger     ledger.Ledger
	Sender     handoff.Sender // nil means sweep-only delivery
	StaleAfter time.Duration
	SweepLimit int
	Now        func() time.Time
}

func (s *Scout) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Tick runs one discovery pass followed by the staleness sweep.
func (s *Scout) Tick(ctx context.Context) error {
	candidates, err := s.Fetcher.FetchCandidates(ctx)
	if err != nil {
		// Adapter unavailable: log, skip discovery, still sweep.
		log.Printf("[scout] fetch failed: %v", err)
		candidates = nil
	}
	log.Printf("[scout] fetched %d candidates", len(candidates))
	telemetry.CandidatesFetched.Add(float64(len(candidates)))

	for _, c := range candidates {
		key := feed.CanonicalKey(c.RawIdentity)
		if key == "" {
			continue
		}
		inserted, rec, err := s.Ledger.AppendIfAbsent(ctx, key, models.RecordFields{
			RegionCode: c.RegionHint,
			Narrative:  c.Text,
			Title:      c.Title,
			Published:  c.Published,
		})
		if err != nil {
			log.Printf("[scout] append %s failed: %v", key, err)
			continue
		}
		if !inserted {
			telemetry.DuplicatesSkipped.Inc()
			continue
		}
		telemetry.RecordsInserted.Inc()
		log.Printf("[scout] added %s case %s", rec.RegionCode, key)
		s.sendHandoff(ctx, key, 1)
	}

	s.Sweep(ctx)
	return nil
}

// Sweep re-triggers records stuck pending beyond the staleness threshold.
// Together with the idempotent caseworker this gives at-least-once handoff
// delivery despite crashes between insert and send.
func (s *Scout) Sweep(ctx context.Context) {
	stale, err := s.Ledger.Pending(ctx, s.now().Add(-s.StaleAfter))
	if err != nil {
		log.Printf("[scout] sweep read failed: %v", err)
		return
	}
	limit := s.SweepLimit
	if limit <= 0 {
		limit = 100
	}
	if len(stale) > limit {
		stale = stale[:limit]
	}
	for _, rec := range stale {
		telemetry.SweepReissues.Inc()
		log.Printf("[scout] re-triggering stale pending case %s", rec.IdentityKey)
		s.sendHandoff(ctx, rec.IdentityKey, rec.Revision+1)
	}
}

func (s *Scout) sendHandoff(ctx context.Context, key string, attempt int) {
	if s.Sender == nil {
		return
	}
	msg := handoff.Message{
		ID:          uuid.New().String(),
		IdentityKey: key,
		Attempt:     attempt,
		EnqueuedAt:  s.now().UTC(),
	}
	if err := s.Sender.Send(ctx, msg); err != nil {
		// Best-effort: the record stays pending and a later sweep retries.
		telemetry.HandoffsLost.Inc()
		log.Printf("[scout] handoff for %s failed: %v", key, err)
		return
	}
	telemetry.HandoffsSent.Inc()
}
