// Package enrichment runs the multi-stage pipeline that turns a bare CRM
// lead into an enriched one: input validation, consent gating, parallel
// provider gathering, cross-source validation, and the final merged result.
package enrichment

import (
	"time"

	"lead-enrichment/internal/providers"
	"lead-enrichment/internal/validation"
)

// Status is the terminal state of one enrichment run.
type Status string

const (
	// StatusCompleted: every attempted source delivered data.
	StatusCompleted Status = "completed"
	// StatusPartial: at least one source delivered and at least one failed.
	StatusPartial Status = "partial"
	// StatusFailed: no source delivered data.
	StatusFailed Status = "failed"
)

// SourceError records why one source produced nothing. Retryable errors are
// worth a later forced refresh; the run itself never retries.
type SourceError struct {
	Source    providers.Source `json:"source"`
	Category  string           `json:"category"`
	Message   string           `json:"message"`
	Retryable bool             `json:"retryable"`
}

// Data is the merged payload across sources. Absent sources are omitted from
// the serialized form entirely rather than carried as nulls.
type Data struct {
	Property *providers.PropertyData `json:"property,omitempty"`
	Social   *providers.SocialData   `json:"social,omitempty"`
	Credit   *providers.CreditData   `json:"credit,omitempty"`
}

// Result is the full outcome of one enrichment run. It is what gets cached,
// persisted on the lead record, and returned to callers.
type Result struct {
	LeadID       string `json:"leadId"`
	EnrichmentID string `json:"enrichmentId"`
	Status       Status `json:"status"`

	// Sources lists the sources that actually delivered data, in
	// canonical order.
	Sources []providers.Source `json:"sources"`
	// Vendors maps each delivered source to the vendor that served it.
	Vendors map[providers.Source]string `json:"vendors,omitempty"`
	Data    Data                        `json:"data"`

	QualityScore float64                 `json:"qualityScore"`
	Confidence   float64                 `json:"confidence"`
	IsValid      bool                    `json:"isValid"`
	Issues       []validation.Issue      `json:"issues"`
	Corrections  []validation.Correction `json:"corrections"`

	Errors []SourceError `json:"errors,omitempty"`

	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt"`
}
