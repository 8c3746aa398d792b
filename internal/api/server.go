// Package api exposes a read-only status surface over the ledger. Nothing
// here mutates a record.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"second-chance-agents/internal/ledger"
	"second-chance-agents/internal/telemetry"
)

// Server wires the HTTP handlers for operational visibility.
type Server struct {
	ledger ledger.Ledger
}

// New constructs the status server over any ledger implementation.
func New(l ledger.Ledger) *Server {
	return &Server{ledger: l}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/metrics", telemetry.Handler())

	r.Get("/stats", s.handleStats)
	r.Get("/records", s.handleRecords)
	// Identity keys are URLs, so a path parameter cannot carry them.
	r.Get("/record", s.handleRecord)
	return r
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.ledger.Aggregate(r.Context())
	if err != nil {
		http.Error(w, "failed to aggregate ledger", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.ledger.ReadAll(r.Context())
	if err != nil {
		http.Error(w, "failed to read ledger", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		http.Error(w, "key is required", http.StatusBadRequest)
		return
	}
	rec, err := s.ledger.Get(r.Context(), key)
	if err != nil {
		http.Error(w, "record not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
