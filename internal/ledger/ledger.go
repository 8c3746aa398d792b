// Package ledger provides the shared append-only record store that all
// agents coordinate through. Two implementations satisfy the same contract:
// a line-delimited file store usable across processes, and an in-memory
// store for tests and one-shot runs.
package ledger

import (
	"context"
	"errors"
	"math"
	"time"

	"second-chance-agents/internal/models"
)

var (
	// ErrNotFound is returned when an update references an unknown key.
	ErrNotFound = errors.New("ledger: record not found")
	// ErrInvalidTransition is returned when an update would move a record
	// backward or away from a terminal status.
	ErrInvalidTransition = errors.New("ledger: invalid status transition")
)

// Ledger is the coordination substrate between agents. All mutating calls
// are atomic with respect to concurrent writers, including writers in other
// processes for the file-backed implementation.
type Ledger interface {
	// AppendIfAbsent inserts a new pending record unless identityKey already
	// exists anywhere in the store. Exactly one of N concurrent callers with
	// the same key observes inserted=true; the rest receive the existing
	// record with inserted=false.
	AppendIfAbsent(ctx context.Context, identityKey string, fields models.RecordFields) (inserted bool, rec models.Record, err error)

	// Update transitions a record to a terminal status, attaching the
	// outcome when status is enriched. Fails with ErrNotFound for unknown
	// keys and ErrInvalidTransition when the record is already terminal.
	Update(ctx context.Context, identityKey string, status string, outcome *models.Outcome, lastError string) (models.Record, error)

	// Get returns the latest revision of a single record.
	Get(ctx context.Context, identityKey string) (models.Record, error)

	// ReadAll returns the latest revision of every record in first-insertion
	// order, from a consistent snapshot of the store.
	ReadAll(ctx context.Context) ([]models.Record, error)

	// Aggregate computes summary statistics over ReadAll.
	Aggregate(ctx context.Context) (models.Stats, error)

	// Pending returns records still pending that were created before
	// olderThan, in first-insertion order. Used by the staleness sweep.
	Pending(ctx context.Context, olderThan time.Time) ([]models.Record, error)
}

// validateTransition enforces the forward-only lifecycle and the
// outcome-iff-enriched invariant before a new revision is written.
func validateTransition(current models.Record, status string, outcome *models.Outcome) error {
	if models.Terminal(current.Status) {
		return ErrInvalidTransition
	}
	switch status {
	case models.StatusEnriched:
		if outcome == nil {
			return ErrInvalidTransition
		}
	case models.StatusFailed:
		if outcome != nil {
			return ErrInvalidTransition
		}
	default:
		return ErrInvalidTransition
	}
	return nil
}

func aggregate(records []models.Record) models.Stats {
	stats := models.Stats{ByStatus: map[string]int{}}
	for _, rec := range records {
		stats.TotalRecords++
		stats.ByStatus[rec.Status]++
		if rec.Status == models.StatusEnriched && rec.Outcome != nil {
			stats.TotalAmount += rec.Outcome.Amount
		}
	}
	stats.TotalAmount = math.Round(stats.TotalAmount*100) / 100
	return stats
}

func filterPending(records []models.Record, olderThan time.Time) []models.Record {
	var out []models.Record
	for _, rec := range records {
		if rec.Status == models.StatusPending && rec.CreatedAt.Before(olderThan) {
			out = append(out, rec)
		}
	}
	return out
}
