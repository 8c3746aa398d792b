// Package mail composes outreach email drafts for enriched cases. Drafts
// are handed to a Drafter; nothing here talks to a mail provider, since
// authentication with upstream services is out of scope.
package mail

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"second-chance-agents/internal/models"
)

// Draft is a composed but unsent message.
type Draft struct {
	To      string
	Subject string
	Body    string
}

// Drafter stores a draft for later human review and sending.
type Drafter interface {
	SaveDraft(ctx context.Context, draft Draft) (id string, err error)
}

// Compose builds the outreach draft for an enriched record. The recipient
// is whatever contact address the operator configured; extracting one from
// the post itself is deliberately not attempted.
func Compose(rec models.Record, to string) (Draft, error) {
	if rec.Outcome == nil {
		return Draft{}, fmt.Errorf("mail: record %s has no outcome", rec.IdentityKey)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Hi,\n\n")
	fmt.Fprintf(&b, "Based on a public post (%s), the worker may qualify for an estimated $%.2f in benefits in %s:\n\n",
		rec.IdentityKey, rec.Outcome.Amount, rec.Outcome.Region)

	programs := append([]string(nil), rec.Outcome.Programs...)
	sort.Strings(programs)
	for _, program := range programs {
		fmt.Fprintf(&b, "  - %s: $%.2f\n", program, rec.Outcome.Breakdown[program])
	}
	fmt.Fprintf(&b, "\nEstimates only; actual awards depend on individual circumstances.\n")

	return Draft{
		To:      to,
		Subject: fmt.Sprintf("Benefit programs worth a look (%s)", rec.Outcome.Region),
		Body:    b.String(),
	}, nil
}

// OutboxDrafter writes drafts as RFC-822-style files into a directory.
type OutboxDrafter struct {
	dir string
}

func NewOutboxDrafter(dir string) *OutboxDrafter {
	return &OutboxDrafter{dir: dir}
}

func (d *OutboxDrafter) SaveDraft(_ context.Context, draft Draft) (string, error) {
	id := uuid.New().String()
	var b strings.Builder
	fmt.Fprintf(&b, "To: %s\n", draft.To)
	fmt.Fprintf(&b, "Subject: %s\n", draft.Subject)
	fmt.Fprintf(&b, "Date: %s\n\n", time.Now().UTC().Format(time.RFC1123Z))
	b.WriteString(draft.Body)

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", fmt.Errorf("create outbox: %w", err)
	}
	path := filepath.Join(d.dir, id+".eml")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write draft: %w", err)
	}
	return id, nil
}
