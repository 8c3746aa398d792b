package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	CandidatesFetched = prometheus.NewCounter(prometheus.CounterOpts{Name: "cases_candidates_fetched_total", Help: "Feed candidates seen by the scout"})
	RecordsInserted   = prometheus.NewCounter(prometheus.CounterOpts{Name: "cases_inserted_total", Help: "New pending records appended to the ledger"})
	DuplicatesSkipped = prometheus.NewCounter(prometheus.CounterOpts{Name: "cases_duplicates_total", Help: "Candidates dropped by idempotent insert"})
	HandoffsSent      = prometheus.NewCounter(prometheus.CounterOpts{Name: "cases_handoffs_sent_total", Help: "Enrichment triggers sent"})
	HandoffsLost      = prometheus.NewCounter(prometheus.CounterOpts{Name: "cases_handoffs_lost_total", Help: "Trigger sends that failed and were left to the sweep"})
	SweepReissues     = prometheus.NewCounter(prometheus.CounterOpts{Name: "cases_sweep_reissues_total", Help: "Stale pending records re-handed-off by the sweep"})
	CasesEnriched     = prometheus.NewCounter(prometheus.CounterOpts{Name: "cases_enriched_total", Help: "Records enriched successfully"})
	CasesFailed       = prometheus.NewCounter(prometheus.CounterOpts{Name: "cases_failed_total", Help: "Records routed to failed"})
	SummariesPosted   = prometheus.NewCounter(prometheus.CounterOpts{Name: "cases_summaries_posted_total", Help: "Daily summaries published"})
	PublishFailures   = prometheus.NewCounter(prometheus.CounterOpts{Name: "cases_publish_failures_total", Help: "Summary publishes that failed"})
	PendingGauge      = prometheus.NewGauge(prometheus.GaugeOpts{Name: "cases_pending", Help: "Records currently pending"})
	UnlockedGauge     = prometheus.NewGauge(prometheus.GaugeOpts{Name: "cases_amount_unlocked", Help: "Total estimated amount across enriched records"})
)

// Handler exposes the /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			CandidatesFetched,
			RecordsInserted,
			DuplicatesSkipped,
			HandoffsSent,
			HandoffsLost,
			SweepReissues,
			CasesEnriched,
			CasesFailed,
			SummariesPosted,
			PublishFailures,
			PendingGauge,
			UnlockedGauge,
		)
	})
	return promhttp.Handler()
}
