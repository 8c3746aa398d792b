package ledger

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"second-chance-agents/internal/models"
)

// FileLedger persists records as line-delimited JSON, one revision per line.
// Logical updates append a new line carrying the same identity_key with an
// incremented revision; readers fold each key to its highest revision while
// preserving order of first appearance.
//
// Mutations hold an exclusive flock on a sidecar lock file for the full
// read-modify-append, so the dedup check and the insert are atomic across
// processes. Readers take the shared flock and parse a whole snapshot under
// it. An in-process mutex serializes goroutines sharing one FileLedger,
// since flock granularity is per process.
type FileLedger struct {
	path string
	lock *flock.Flock
	mu   sync.Mutex
}

// NewFileLedger opens (or prepares to create) the ledger at path. The file
// itself is created lazily on first append; an unreadable existing file is
// reported immediately so startup can fail fast.
func NewFileLedger(path string) (*FileLedger, error) {
	if path == "" {
		return nil, fmt.Errorf("ledger path is empty")
	}
	if f, err := os.Open(path); err == nil {
		f.Close()
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	return &FileLedger{
		path: path,
		lock: flock.New(path + ".lock"),
	}, nil
}

func (l *FileLedger) AppendIfAbsent(ctx context.Context, identityKey string, fields models.RecordFields) (bool, models.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.lockExclusive(ctx); err != nil {
		return false, models.Record{}, err
	}
	defer l.lock.Unlock()

	byKey, _, err := l.load()
	if err != nil {
		return false, models.Record{}, err
	}
	if existing, ok := byKey[identityKey]; ok {
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
	if err := l.appendLine(rec); err != nil {
		return false, models.Record{}, err
	}
	return true, rec, nil
}

func (l *FileLedger) Update(ctx context.Context, identityKey string, status string, outcome *models.Outcome, lastError string) (models.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.lockExclusive(ctx); err != nil {
		return models.Record{}, err
	}
	defer l.lock.Unlock()

	byKey, _, err := l.load()
	if err != nil {
		return models.Record{}, err
	}
	rec, ok := byKey[identityKey]
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
	if err := l.appendLine(rec); err != nil {
		return models.Record{}, err
	}
	return rec, nil
}

func (l *FileLedger) Get(ctx context.Context, identityKey string) (models.Record, error) {
	records, err := l.ReadAll(ctx)
	if err != nil {
		return models.Record{}, err
	}
	for _, rec := range records {
		if rec.IdentityKey == identityKey {
			return rec, nil
		}
	}
	return models.Record{}, ErrNotFound
}

func (l *FileLedger) ReadAll(ctx context.Context) ([]models.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.lockShared(ctx); err != nil {
		return nil, err
	}
	defer l.lock.Unlock()

	byKey, order, err := l.load()
	if err != nil {
		return nil, err
	}
	out := make([]models.Record, 0, len(order))
	for _, key := range order {
		out = append(out, byKey[key])
	}
	return out, nil
}

func (l *FileLedger) Aggregate(ctx context.Context) (models.Stats, error) {
	records, err := l.ReadAll(ctx)
	if err != nil {
		return models.Stats{}, err
	}
	return aggregate(records), nil
}

func (l *FileLedger) Pending(ctx context.Context, olderThan time.Time) ([]models.Record, error) {
	records, err := l.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	return filterPending(records, olderThan), nil
}

// load parses the whole file, folding each key to its highest revision.
// Malformed lines are warned about and skipped, never fatal: a torn write
// from a crashed agent must not take down every reader.
func (l *FileLedger) load() (map[string]models.Record, []string, error) {
	byKey := make(map[string]models.Record)
	var order []string

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return byKey, order, nil
		}
		return nil, nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec models.Record
		if err := json.Unmarshal(line, &rec); err != nil || rec.IdentityKey == "" {
			log.Printf("[ledger] skipping corrupt line %d in %s: %v", lineNo, l.path, err)
			continue
		}
		if prev, ok := byKey[rec.IdentityKey]; ok {
			if rec.Revision > prev.Revision {
				byKey[rec.IdentityKey] = rec
			}
			continue
		}
		byKey[rec.IdentityKey] = rec
		order = append(order, rec.IdentityKey)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("scan ledger: %w", err)
	}
	return byKey, order, nil
}

// appendLine writes a single revision and fsyncs before releasing the lock.
func (l *FileLedger) appendLine(rec models.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger for append: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync ledger: %w", err)
	}
	return nil
}

func (l *FileLedger) lockExclusive(ctx context.Context) error {
	ok, err := l.lock.TryLockContext(ctx, 10*time.Millisecond)
	if err != nil {
		return fmt.Errorf("acquire ledger lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("acquire ledger lock: not acquired")
	}
	return nil
}

func (l *FileLedger) lockShared(ctx context.Context) error {
	ok, err := l.lock.TryRLockContext(ctx, 10*time.Millisecond)
	if err != nil {
		return fmt.Errorf("acquire shared ledger lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("acquire shared ledger lock: not acquired")
	}
	return nil
}
