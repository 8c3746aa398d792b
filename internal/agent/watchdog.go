package agent

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"second-chance-agents/internal/ledger"
	"second-chance-agents/internal/models"
	"second-chance-agents/internal/publish"
	"second-chance-agents/internal/ratelimit"
	"second-chance-agents/internal/telemetry"
)

// Watchdog reads the full ledger once per reporting period and publishes a
// summary. It never mutates the ledger, and one platform failing never
// blocks the others.
type Watchdog struct {
	Ledger     ledger.Ledger
	Publishers []publish.Publisher
	Limiter    *ratelimit.TokenBucket // nil disables pacing
	MaxLen     int
}

// Tick aggregates and publishes one summary.
func (w *Watchdog) Tick(ctx context.Context) error {
	stats, err := w.Ledger.Aggregate(ctx)
	if err != nil {
		return fmt.Errorf("aggregate: %w", err)
	}
	telemetry.PendingGauge.Set(float64(stats.ByStatus[models.StatusPending]))
	telemetry.UnlockedGauge.Set(stats.TotalAmount)

	message := FormatSummary(stats)
	log.Printf("[watchdog] %d cases, $%.2f unlocked", stats.TotalRecords, stats.TotalAmount)

	for _, pub := range w.Publishers {
		if w.Limiter != nil {
			allowed, _, err := w.Limiter.Allow(ctx, "publish:"+pub.Name())
			if err != nil {
				log.Printf("[watchdog] limiter check for %s failed: %v", pub.Name(), err)
			} else if !allowed {
				log.Printf("[watchdog] publish to %s rate limited, skipping", pub.Name())
				continue
			}
		}
		res, err := pub.Publish(ctx, publish.Truncate(message, w.MaxLen))
		if err != nil {
			telemetry.PublishFailures.Inc()
			log.Printf("[watchdog] publish to %s failed: %v", pub.Name(), err)
			continue
		}
		telemetry.SummariesPosted.Inc()
		log.Printf("[watchdog] published to %s (%s)", pub.Name(), res.ID)
	}
	return nil
}

// FormatSummary renders the daily message. Callers truncate it to each
// platform's limit.
func FormatSummary(stats models.Stats) string {
	return fmt.Sprintf(
		"Yesterday Second-Chance helped %d laid-off workers unlock an estimated %s in benefits they didn't know existed. #AgentsForGood #AIForGood",
		stats.TotalRecords, formatAmount(stats.TotalAmount))
}

// formatAmount renders $12,345 for large values and $12.34 below a grand,
// matching how the summary has always read.
func formatAmount(amount float64) string {
	if amount < 1000 {
		return fmt.Sprintf("$%.2f", amount)
	}
	whole := strconv.FormatInt(int64(amount+0.5), 10)
	var b strings.Builder
	b.WriteByte('$')
	lead := len(whole) % 3
	if lead > 0 {
		b.WriteString(whole[:lead])
		if len(whole) > lead {
			b.WriteByte(',')
		}
	}
	for i := lead; i < len(whole); i += 3 {
		b.WriteString(whole[i : i+3])
		if i+3 < len(whole) {
			b.WriteByte(',')
		}
	}
	return b.String()
}
