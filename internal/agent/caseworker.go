package agent

import (
	"context"
	"errors"
	"log"
	"time"

	"second-chance-agents/internal/archive"
	"second-chance-agents/internal/eligibility"
	"second-chance-agents/internal/handoff"
	"second-chance-agents/internal/ledger"
	"second-chance-agents/internal/mail"
	"second-chance-agents/internal/models"
	"second-chance-agents/internal/telemetry"
)

// Caseworker consumes handoffs, runs the eligibility engine, and writes the
// outcome back to the ledger. Once an enrichment attempt starts, the record
// always ends terminal: enriched on success, failed otherwise.
type Caseworker struct {
	Ledger   ledger.Ledger
	Engine   *eligibility.Engine
	Receiver handoff.Receiver
	Wait     time.Duration

	// Best-effort post-enrichment side effects; either may be nil.
	Archiver *archive.Archiver
	Drafter  mail.Drafter
	Contact  string

	// Sweep settings let a lone caseworker self-heal without a scout.
	StaleAfter    time.Duration
	SweepInterval time.Duration
	SweepLimit    int
	Now           func() time.Time
}

func (w *Caseworker) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

// Run blocks on the handoff queue until the context is cancelled,
// interleaving a periodic staleness sweep between receives.
func (w *Caseworker) Run(ctx context.Context) error {
	wait := w.Wait
	if wait == 0 {
		wait = 5 * time.Second
	}
	lastSweep := w.now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msg, ok, err := w.Receiver.Receive(ctx, wait)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("[caseworker] receive failed: %v", err)
			time.Sleep(wait)
		} else if ok {
			if err := w.Process(ctx, msg.IdentityKey); err != nil {
				log.Printf("[caseworker] process %s failed: %v", msg.IdentityKey, err)
			}
		}

		if w.SweepInterval > 0 && w.now().Sub(lastSweep) >= w.SweepInterval {
			w.sweep(ctx)
			lastSweep = w.now()
		}
	}
}

// Process enriches a single record by identity key. A handoff for an
// unknown key is a programming invariant violation: it is logged and
// dropped, never retried. A non-pending record means a duplicate delivery
// and is dropped silently.
func (w *Caseworker) Process(ctx context.Context, identityKey string) error {
	rec, err := w.Ledger.Get(ctx, identityKey)
	if errors.Is(err, ledger.ErrNotFound) {
		log.Printf("[caseworker] dropping handoff for unknown key %s", identityKey)
		return nil
	}
	if err != nil {
		return err
	}
	if rec.Status != models.StatusPending {
		return nil
	}

	outcome := w.Engine.Evaluate(rec.RegionCode, rec.Narrative)
	updated, err := w.Ledger.Update(ctx, identityKey, models.StatusEnriched, &outcome, "")
	if errors.Is(err, ledger.ErrInvalidTransition) {
		// Another caseworker finished this record between Get and Update.
		return nil
	}
	if err != nil {
		w.markFailed(ctx, identityKey, err)
		return err
	}

	telemetry.CasesEnriched.Inc()
	log.Printf("[caseworker] enriched %s: %d programs, $%.2f estimated", identityKey, len(outcome.Programs), outcome.Amount)
	w.afterEnrich(ctx, updated)
	return nil
}

// markFailed routes a half-processed record to failed so it never stays
// ambiguous. A failure here too is only logged; the staleness sweep will
// retry the record if the update itself did not land.
func (w *Caseworker) markFailed(ctx context.Context, identityKey string, cause error) {
	if _, err := w.Ledger.Update(ctx, identityKey, models.StatusFailed, nil, cause.Error()); err != nil {
		log.Printf("[caseworker] marking %s failed also failed: %v", identityKey, err)
		return
	}
	telemetry.CasesFailed.Inc()
}

// afterEnrich runs the optional document and draft side effects. They read
// the record only and run outside any ledger lock; their failures never
// affect the record's status.
func (w *Caseworker) afterEnrich(ctx context.Context, rec models.Record) {
	if w.Archiver != nil {
		if loc, err := w.Archiver.Archive(ctx, rec); err != nil {
			log.Printf("[caseworker] archive %s failed: %v", rec.IdentityKey, err)
		} else {
			log.Printf("[caseworker] archived %s to %s", rec.IdentityKey, loc)
		}
	}
	if w.Drafter != nil && w.Contact != "" {
		draft, err := mail.Compose(rec, w.Contact)
		if err != nil {
			log.Printf("[caseworker] compose draft for %s failed: %v", rec.IdentityKey, err)
			return
		}
		if id, err := w.Drafter.SaveDraft(ctx, draft); err != nil {
			log.Printf("[caseworker] save draft for %s failed: %v", rec.IdentityKey, err)
		} else {
			log.Printf("[caseworker] draft %s saved for %s", id, rec.IdentityKey)
		}
	}
}

func (w *Caseworker) sweep(ctx context.Context) {
	stale, err := w.Ledger.Pending(ctx, w.now().Add(-w.StaleAfter))
	if err != nil {
		log.Printf("[caseworker] sweep read failed: %v", err)
		return
	}
	limit := w.SweepLimit
	if limit <= 0 {
		limit = 100
	}
	if len(stale) > limit {
		stale = stale[:limit]
	}
	for _, rec := range stale {
		telemetry.SweepReissues.Inc()
		if err := w.Process(ctx, rec.IdentityKey); err != nil {
			log.Printf("[caseworker] sweep process %s failed: %v", rec.IdentityKey, err)
		}
	}
}
