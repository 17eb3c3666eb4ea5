package analysis

import (
	"time"

	"github.com/tether007/GreenChainAdvisory/internal/domain/diagnosis"
)

// CorrelationID is the identifier assigned by the ledger contract's
// PaymentReceived event. It is never generated locally.
type CorrelationID string

// Record is the persisted unit of state for one analysis request.
// A record is pending while CompletedAt is nil and completed once the
// diagnosis fields and CompletedAt have been set, exactly once.
type Record struct {
	CorrelationID CorrelationID       `json:"correlation_id"`
	Owner         string              `json:"owner"`
	Fingerprint   string              `json:"image_fingerprint"`
	Diagnosis     string              `json:"diagnosis,omitempty"`
	Advice        string              `json:"advice,omitempty"`
	Severity      diagnosis.Severity  `json:"severity,omitempty"`
	Confidence    *float64            `json:"confidence,omitempty"`
	ImageURL      string              `json:"image_url,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	CompletedAt   *time.Time          `json:"completed_at,omitempty"`
}

// Completed reports whether the record carries a final result.
func (r *Record) Completed() bool { return r.CompletedAt != nil }
