package archive

import (
	"context"
	"os"
	"strings"
	"testing"

	"second-chance-agents/internal/models"
)

func enrichedRecord() models.Record {
	return models.Record{
		IdentityKey: "https://www.linkedin.com/posts/worker-1",
		Title:       "Laid off after 6 years",
		Status:      models.StatusEnriched,
		Outcome: &models.Outcome{
			Programs: []string{"UI", "SNAP", "ACA_SUBSIDY"},
			Amount:   16964.00,
			Region:   "CA",
			Breakdown: map[string]float64{
				"UI":          11700.00,
				"SNAP":        1164.00,
				"ACA_SUBSIDY": 4200.00,
			},
		},
	}
}

func TestRenderSummary(t *testing.T) {
	out := RenderSummary(enrichedRecord())

	if !strings.Contains(out, "Source: https://www.linkedin.com/posts/worker-1") {
		t.Fatalf("missing source line:\n%s", out)
	}
	if !strings.Contains(out, "Estimated total: $16964.00") {
		t.Fatalf("missing total line:\n%s", out)
	}
	// Programs render alphabetically so the document diffs cleanly.
	aca := strings.Index(out, "ACA_SUBSIDY")
	snap := strings.Index(out, "SNAP")
	ui := strings.Index(out, "UI")
	if aca == -1 || snap == -1 || ui == -1 || !(aca < snap && snap < ui) {
		t.Fatalf("programs out of order:\n%s", out)
	}
}

func TestArchiveLocal(t *testing.T) {
	dir := t.TempDir()
	arch := NewArchiver(NewLocalUploader(dir))

	loc, err := arch.Archive(context.Background(), enrichedRecord())
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	body, err := os.ReadFile(loc)
	if err != nil {
		t.Fatalf("read archived doc: %v", err)
	}
	if !strings.Contains(string(body), "Benefit eligibility summary") {
		t.Fatalf("unexpected document body:\n%s", body)
	}

	// Same record maps to the same key, so a re-archive overwrites.
	again, err := arch.Archive(context.Background(), enrichedRecord())
	if err != nil {
		t.Fatalf("re-archive: %v", err)
	}
	if again != loc {
		t.Fatalf("key not stable: %q vs %q", again, loc)
	}
}

func TestArchiveRejectsNonEnriched(t *testing.T) {
	arch := NewArchiver(NewLocalUploader(t.TempDir()))
	rec := enrichedRecord()
	rec.Status = models.StatusPending
	rec.Outcome = nil
	if _, err := arch.Archive(context.Background(), rec); err == nil {
		t.Fatalf("expected error archiving a pending record")
	}
}
