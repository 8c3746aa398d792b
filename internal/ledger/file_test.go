package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"second-chance-agents/internal/models"
)

func newTestFileLedger(t *testing.T) *FileLedger {
	t.Helper()
	led, err := NewFileLedger(filepath.Join(t.TempDir(), "ledger.jsonl"))
	if err != nil {
		t.Fatalf("new file ledger: %v", err)
	}
	return led
}

func TestAppendIfAbsentIdempotent(t *testing.T) {
	ctx := context.Background()
	led := newTestFileLedger(t)

	inserted, rec, err := led.AppendIfAbsent(ctx, "https://example.com/posts/1", models.RecordFields{RegionCode: "CA"})
	if err != nil || !inserted {
		t.Fatalf("first insert: inserted=%v err=%v", inserted, err)
	}
	if rec.Status != models.StatusPending || rec.Revision != 1 {
		t.Fatalf("unexpected record: %+v", rec)
	}

	inserted, again, err := led.AppendIfAbsent(ctx, "https://example.com/posts/1", models.RecordFields{RegionCode: "NY"})
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if inserted {
		t.Fatalf("expected second insert to be a no-op")
	}
	if again.RegionCode != "CA" {
		t.Fatalf("second insert must return the original record, got region %s", again.RegionCode)
	}

	records, err := led.ReadAll(ctx)
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
}

func TestConcurrentDedup(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.jsonl")

	// Separate FileLedger instances simulate separate processes: they share
	// nothing but the file and its flock.
	const n = 8
	var wg sync.WaitGroup
	insertedCount := make(chan bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			led, err := NewFileLedger(path)
			if err != nil {
				t.Errorf("new ledger: %v", err)
				return
			}
			inserted, _, err := led.AppendIfAbsent(ctx, "https://example.com/posts/race", models.RecordFields{})
			if err != nil {
				t.Errorf("append: %v", err)
				return
			}
			insertedCount <- inserted
		}()
	}
	wg.Wait()
	close(insertedCount)

	wins := 0
	for ok := range insertedCount {
		if ok {
			wins++
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one inserted=true, got %d", wins)
	}
}

func TestUpdateTransitions(t *testing.T) {
	ctx := context.Background()
	led := newTestFileLedger(t)

	if _, err := led.Update(ctx, "missing", models.StatusEnriched, &models.Outcome{}, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	_, _, err := led.AppendIfAbsent(ctx, "k1", models.RecordFields{RegionCode: "CA"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	outcome := &models.Outcome{Programs: []string{"SNAP"}, Amount: 1164, Region: "CA", Breakdown: map[string]float64{"SNAP": 1164}}
	rec, err := led.Update(ctx, "k1", models.StatusEnriched, outcome, "")
	if err != nil {
		t.Fatalf("enrich: %v", err)
	}
	if rec.Status != models.StatusEnriched || rec.Revision != 2 || rec.Outcome == nil {
		t.Fatalf("unexpected enriched record: %+v", rec)
	}

	// Terminal records accept no further transitions, in either direction.
	if _, err := led.Update(ctx, "k1", models.StatusFailed, nil, "late failure"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition from terminal, got %v", err)
	}
	if _, err := led.Update(ctx, "k1", models.StatusEnriched, outcome, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on re-enrich, got %v", err)
	}
}

func TestUpdateEnforcesOutcomePresence(t *testing.T) {
	ctx := context.Background()
	led := newTestFileLedger(t)
	_, _, _ = led.AppendIfAbsent(ctx, "k1", models.RecordFields{})

	if _, err := led.Update(ctx, "k1", models.StatusEnriched, nil, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("enriched without outcome must be rejected, got %v", err)
	}
	if _, err := led.Update(ctx, "k1", models.StatusFailed, &models.Outcome{}, "boom"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("failed with outcome must be rejected, got %v", err)
	}
	if _, err := led.Update(ctx, "k1", models.StatusPending, nil, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("pending target must be rejected, got %v", err)
	}
}

func TestReadAllOrderAndFold(t *testing.T) {
	ctx := context.Background()
	led := newTestFileLedger(t)

	for i := 0; i < 5; i++ {
		key := fmt.Sprintf("k%d", i)
		if _, _, err := led.AppendIfAbsent(ctx, key, models.RecordFields{}); err != nil {
			t.Fatalf("append %s: %v", key, err)
		}
	}
	// Updating an early key must not move it in read order.
	if _, err := led.Update(ctx, "k1", models.StatusFailed, nil, "x"); err != nil {
		t.Fatalf("update: %v", err)
	}

	records, err := led.ReadAll(ctx)
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("expected 5 records, got %d", len(records))
	}
	for i, rec := range records {
		if want := fmt.Sprintf("k%d", i); rec.IdentityKey != want {
			t.Fatalf("position %d: got %s want %s", i, rec.IdentityKey, want)
		}
	}
	if records[1].Status != models.StatusFailed || records[1].Revision != 2 {
		t.Fatalf("k1 not folded to latest revision: %+v", records[1])
	}
}

func TestAggregate(t *testing.T) {
	ctx := context.Background()
	led := newTestFileLedger(t)

	_, _, _ = led.AppendIfAbsent(ctx, "a", models.RecordFields{})
	_, _, _ = led.AppendIfAbsent(ctx, "b", models.RecordFields{})
	_, _, _ = led.AppendIfAbsent(ctx, "c", models.RecordFields{})
	outcome := &models.Outcome{Programs: []string{"UI"}, Amount: 100.00, Breakdown: map[string]float64{"UI": 100.00}}
	if _, err := led.Update(ctx, "a", models.StatusEnriched, outcome, ""); err != nil {
		t.Fatalf("enrich a: %v", err)
	}
	if _, err := led.Update(ctx, "c", models.StatusFailed, nil, "boom"); err != nil {
		t.Fatalf("fail c: %v", err)
	}

	stats, err := led.Aggregate(ctx)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if stats.TotalAmount != 100.00 {
		t.Fatalf("total amount: got %v want 100.00", stats.TotalAmount)
	}
	if stats.TotalRecords != 3 {
		t.Fatalf("total records: got %d want 3", stats.TotalRecords)
	}
	if stats.ByStatus[models.StatusPending] != 1 || stats.ByStatus[models.StatusEnriched] != 1 || stats.ByStatus[models.StatusFailed] != 1 {
		t.Fatalf("unexpected status counts: %+v", stats.ByStatus)
	}
}

func TestCorruptLineTolerance(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.jsonl")
	led, err := NewFileLedger(path)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}

	for i := 0; i < 10; i++ {
		if _, _, err := led.AppendIfAbsent(ctx, fmt.Sprintf("k%d", i), models.RecordFields{}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	// Simulate a torn write in the middle of the file.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.WriteString("{\"identity_key\": \"broken\n"); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	f.Close()

	records, err := led.ReadAll(ctx)
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if len(records) != 10 {
		t.Fatalf("expected 10 records despite corrupt line, got %d", len(records))
	}
}

func TestForwardCompatibleLines(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.jsonl")
	line := `{"identity_key":"k1","status":"pending","revision":1,"created_at":"2025-01-02T03:04:05Z","updated_at":"2025-01-02T03:04:05Z","future_field":{"nested":true}}` + "\n"
	if err := os.WriteFile(path, []byte(line), 0o644); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}

	led, err := NewFileLedger(path)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	records, err := led.ReadAll(ctx)
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if len(records) != 1 || records[0].IdentityKey != "k1" {
		t.Fatalf("unknown fields must be ignored, got %+v", records)
	}
}

func TestPending(t *testing.T) {
	ctx := context.Background()
	led := newTestFileLedger(t)

	_, _, _ = led.AppendIfAbsent(ctx, "stale", models.RecordFields{})
	_, _, _ = led.AppendIfAbsent(ctx, "done", models.RecordFields{})
	if _, err := led.Update(ctx, "done", models.StatusFailed, nil, "x"); err != nil {
		t.Fatalf("update: %v", err)
	}

	stale, err := led.Pending(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(stale) != 1 || stale[0].IdentityKey != "stale" {
		t.Fatalf("expected only the pending record, got %+v", stale)
	}

	none, err := led.Pending(ctx, time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("records newer than the threshold must not be swept, got %+v", none)
	}
}
