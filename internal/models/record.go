package models

import (
	"time"
)

// Status enumerates record lifecycle states persisted in the ledger.
// Transitions only move forward: pending -> enriched or pending -> failed.
const (
	StatusPending  = "pending"
	StatusEnriched = "enriched"
	StatusFailed   = "failed"
)

// Terminal reports whether a status admits no further transitions.
func Terminal(status string) bool {
	return status == StatusEnriched || status == StatusFailed
}

// Outcome is the structured eligibility result attached to an enriched
// record. It is created once by the eligibility engine and never mutated.
type Outcome struct {
	Programs  []string           `json:"programs"`
	Amount    float64            `json:"amount"`
	Region    string             `json:"region"`
	Breakdown map[string]float64 `json:"breakdown"`
}

// Record is one tracked event and its processing lifecycle. Each persisted
// line of the ledger is one revision of a record; readers fold a key's
// revisions to the highest one.
type Record struct {
	IdentityKey string    `json:"identity_key"`
	RegionCode  string    `json:"region_code"`
	Narrative   string    `json:"narrative_text"`
	Title       string    `json:"title,omitempty"`
	Published   string    `json:"published,omitempty"`
	Status      string    `json:"status"`
	Revision    int       `json:"revision"`
	Outcome     *Outcome  `json:"outcome,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RecordFields collects the inputs the discovery agent supplies on first
// insert. Status, revision, and timestamps are owned by the ledger.
type RecordFields struct {
	RegionCode string
	Narrative  string
	Title      string
	Published  string
}

// Stats is the read-side aggregate over the latest revision of every record.
// Records that are not enriched contribute zero amount but still count.
type Stats struct {
	TotalAmount  float64        `json:"total_amount"`
	TotalRecords int            `json:"total_records"`
	ByStatus     map[string]int `json:"by_status"`
}
