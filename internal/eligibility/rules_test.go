package eligibility

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRulesPartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `
trigger_phrases: ["pink slip"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("load rules: %v", err)
	}
	if len(rules.TriggerPhrases) != 1 || rules.TriggerPhrases[0] != "pink slip" {
		t.Fatalf("trigger phrases not overridden: %v", rules.TriggerPhrases)
	}
	if rules.DefaultRegion != "CA" {
		t.Fatalf("default region must fall back, got %s", rules.DefaultRegion)
	}
	if len(rules.Regions) == 0 {
		t.Fatalf("region tables must fall back to defaults")
	}

	engine := NewEngine(rules)
	out := engine.Evaluate("CA", "got my pink slip today")
	found := false
	for _, program := range out.Programs {
		if program == "UI" {
			found = true
		}
	}
	if !found {
		t.Fatalf("overridden phrase should trigger UI: %v", out.Programs)
	}
}

func TestLoadRulesFullOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `
default_region: WA
trigger_phrases: ["laid off"]
regions:
  WA:
    UI:
      unit_amount: 600
      weeks: 20
      requires_separation: true
    SNAP:
      unit_amount: 194
      months: 6
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("load rules: %v", err)
	}
	out := NewEngine(rules).Evaluate("WA", "laid off")
	// UI 600*20 + SNAP 194*6.
	if out.Amount != 13164.00 {
		t.Fatalf("amount: got %v want 13164.00", out.Amount)
	}
}

func TestLoadRulesRejectsBadDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `
default_region: XX
regions:
  CA:
    SNAP:
      unit_amount: 194
      months: 6
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	if _, err := LoadRules(path); err == nil {
		t.Fatalf("default region without a table must be rejected")
	}
}
