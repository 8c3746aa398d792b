package ledger

import (
	"context"
	"sync"
	"time"

	"second-chance-agents/internal/models"
)

// MemLedger is an in-process implementation of the same contract, used by
// tests and by one-shot runs that never touch disk.
type MemLedger struct {
	mu    sync.RWMutex
	byKey map[string]models.Record
	order []string
}

func NewMemLedger() *MemLedger {
	return &MemLedger{byKey: make(map[string]models.Record)}
}

func (l *MemLedger) AppendIfAbsent(_ context.Context, identityKey string, fields models.RecordFields) (bool, models.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.byKey[identityKey]; ok {
		return false, existing, nil
	}
	now := time.Now().UTC()
	rec := models.Record{
		IdentityKey: identityKey,
		RegionCode:  fields.RegionCode,
		Narrative:   fields.Narrative,
		Title:       fields.Title,
		Published:   fields.Published,
		Status:      models.StatusPending,
		Revision:    1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	l.byKey[identityKey] = rec
	l.order = append(l.order, identityKey)
	return true, rec, nil
}

func (l *MemLedger) Update(_ context.Context, identityKey string, status string, outcome *models.Outcome, lastError string) (models.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.byKey[identityKey]
	if !ok {
		return models.Record{}, ErrNotFound
	}
	if err := validateTransition(rec, status, outcome); err != nil {
		return models.Record{}, err
	}
	rec.Status = status
	rec.Outcome = outcome
	rec.LastError = lastError
	rec.Revision++
	rec.UpdatedAt = time.Now().UTC()
	l.byKey[identityKey] = rec
	return rec, nil
}

func (l *MemLedger) Get(_ context.Context, identityKey string) (models.Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.byKey[identityKey]
	if !ok {
		return models.Record{}, ErrNotFound
	}
	return rec, nil
}

func (l *MemLedger) ReadAll(_ context.Context) ([]models.Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.Record, 0, len(l.order))
	for _, key := range l.order {
		out = append(out, l.byKey[key])
	}
	return out, nil
}

func (l *MemLedger) Aggregate(ctx context.Context) (models.Stats, error) {
	records, err := l.ReadAll(ctx)
	if err != nil {
		return models.Stats{}, err
	}
	return aggregate(records), nil
}

func (l *MemLedger) Pending(ctx context.Context, olderThan time.Time) ([]models.Record, error) {
	records, err := l.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	return filterPending(records, olderThan), nil
}
