package eligibility

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rule describes one benefit program for one region. Exactly one of Weeks,
// Months, or OneTime should be set; the multiplier defaults to 1.
type Rule struct {
	UnitAmount float64 `yaml:"unit_amount"`
	Weeks      int     `yaml:"weeks,omitempty"`
	Months     int     `yaml:"months,omitempty"`
	OneTime    bool    `yaml:"one_time,omitempty"`
	// RequiresSeparation gates the program on a job-separation trigger
	// phrase appearing in the narrative. Programs without it are included
	// unconditionally (income-support style).
	RequiresSeparation bool `yaml:"requires_separation,omitempty"`
}

func (r Rule) multiplier() float64 {
	switch {
	case r.Weeks > 0:
		return float64(r.Weeks)
	case r.Months > 0:
		return float64(r.Months)
	default:
		return 1
	}
}

// RuleSet is the full tunable configuration: per-region program tables plus
// the trigger-phrase list for separation-gated programs.
type RuleSet struct {
	DefaultRegion  string                     `yaml:"default_region"`
	TriggerPhrases []string                   `yaml:"trigger_phrases"`
	Regions        map[string]map[string]Rule `yaml:"regions"`
}

// DefaultRules returns the built-in tables. Amounts are rough per-region
// averages; the table is a swappable parameter, not a contract.
func DefaultRules() RuleSet {
	return RuleSet{
		DefaultRegion:  "CA",
		TriggerPhrases: []string{"laid off", "layoff", "terminated"},
		Regions: map[string]map[string]Rule{
			"CA": {
				"UI":         {UnitAmount: 450, Weeks: 26, RequiresSeparation: true},
				"SNAP":       {UnitAmount: 194, Months: 6},
				"ACA":        {UnitAmount: 350, Months: 12},
				"RETRAINING": {UnitAmount: 5000, OneTime: true},
			},
			"NY": {
				"UI":         {UnitAmount: 504, Weeks: 26, RequiresSeparation: true},
				"SNAP":       {UnitAmount: 194, Months: 6},
				"ACA":        {UnitAmount: 380, Months: 12},
				"RETRAINING": {UnitAmount: 5000, OneTime: true},
			},
			"TX": {
				"UI":         {UnitAmount: 535, Weeks: 26, RequiresSeparation: true},
				"SNAP":       {UnitAmount: 194, Months: 6},
				"ACA":        {UnitAmount: 320, Months: 12},
				"RETRAINING": {UnitAmount: 3000, OneTime: true},
			},
			"FL": {
				"UI":         {UnitAmount: 275, Weeks: 12, RequiresSeparation: true},
				"SNAP":       {UnitAmount: 194, Months: 6},
				"ACA":        {UnitAmount: 300, Months: 12},
				"RETRAINING": {UnitAmount: 3000, OneTime: true},
			},
			"IL": {
				"UI":         {UnitAmount: 484, Weeks: 26, RequiresSeparation: true},
				"SNAP":       {UnitAmount: 194, Months: 6},
				"ACA":        {UnitAmount: 360, Months: 12},
				"RETRAINING": {UnitAmount: 5000, OneTime: true},
			},
		},
	}
}

// LoadRules reads a YAML override file. Missing fields fall back to the
// built-in defaults so a partial file only tunes what it names.
func LoadRules(path string) (RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, fmt.Errorf("read rules %s: %w", path, err)
	}
	rules := RuleSet{}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return RuleSet{}, fmt.Errorf("parse rules %s: %w", path, err)
	}
	defaults := DefaultRules()
	if rules.DefaultRegion == "" {
		rules.DefaultRegion = defaults.DefaultRegion
	}
	if len(rules.TriggerPhrases) == 0 {
		rules.TriggerPhrases = defaults.TriggerPhrases
	}
	if len(rules.Regions) == 0 {
		rules.Regions = defaults.Regions
	}
	if _, ok := rules.Regions[rules.DefaultRegion]; !ok {
		return RuleSet{}, fmt.Errorf("rules %s: default region %q has no table", path, rules.DefaultRegion)
	}
	return rules, nil
}
