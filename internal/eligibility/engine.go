// Package eligibility maps a (region code, narrative) pair to a benefit
// estimate. The engine is pure and deterministic: no I/O, no failure path.
// It is a deliberately simple classifier kept behind a stable contract so
// the store and handoff protocol around it can be tested independently.
package eligibility

import (
	"math"
	"sort"
	"strings"

	"second-chance-agents/internal/models"
)

// Engine evaluates benefit eligibility against a fixed rule set.
type Engine struct {
	rules RuleSet
}

// NewEngine builds an engine over the given rules. Use DefaultRules() when
// no override file is configured.
func NewEngine(rules RuleSet) *Engine {
	return &Engine{rules: rules}
}

// Evaluate returns the programs a worker in regionCode qualifies for given
// the narrative text, and the estimated total. Unknown region codes fall
// back to the default region's table rather than failing.
func (e *Engine) Evaluate(regionCode, narrative string) models.Outcome {
	region := strings.ToUpper(strings.TrimSpace(regionCode))
	table, ok := e.rules.Regions[region]
	if !ok {
		region = e.rules.DefaultRegion
		table = e.rules.Regions[region]
	}

	separated := e.mentionsSeparation(narrative)

	outcome := models.Outcome{
		Region:    region,
		Breakdown: map[string]float64{},
	}
	for program, rule := range table {
		if rule.RequiresSeparation && !separated {
			continue
		}
		contribution := round2(rule.UnitAmount * rule.multiplier())
		outcome.Programs = append(outcome.Programs, program)
		outcome.Breakdown[program] = contribution
		outcome.Amount += contribution
	}
	outcome.Amount = round2(outcome.Amount)
	// Map iteration order is random; keep the program list stable.
	sort.Strings(outcome.Programs)
	return outcome
}

func (e *Engine) mentionsSeparation(narrative string) bool {
	lower := strings.ToLower(narrative)
	for _, phrase := range e.rules.TriggerPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
