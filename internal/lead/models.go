// Package lead defines the lead record contract the enrichment core depends
// on. The CRM's persistence layer owns these records; the pipeline only reads
// identity and consent fields and writes back enrichment output.
package lead

import (
	"encoding/json"
	"time"
)

// Redacted replaces PII fields during a CCPA anonymization request.
const Redacted = "[REDACTED]"

// Lead is the slice of the CRM lead record the enrichment core sees.
type Lead struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Location  string `json:"location"`

	EnrichmentConsent  bool       `json:"enrichmentConsent"`
	ConsentGrantedAt   *time.Time `json:"consentGrantedAt,omitempty"`
	ConsentExpiresAt   *time.Time `json:"consentExpiresAt,omitempty"`
	ConsentWithdrawnAt *time.Time `json:"consentWithdrawnAt,omitempty"`

	CreditDataConsent  bool   `json:"creditDataConsent"`
	PermissiblePurpose string `json:"permissiblePurpose,omitempty"`
	CCPAConsent        bool   `json:"ccpaConsent"`

	// EnrichmentData holds the serialized EnrichmentResult of the latest
	// completed run. The orchestrator owns its lifecycle; persistence only
	// stores the blob.
	EnrichmentData json.RawMessage `json:"enrichmentData,omitempty"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// HasContact reports whether the lead can be enriched at all. A lead with
// neither email nor phone fails pipeline input validation.
func (l *Lead) HasContact() bool {
	return l.Email != "" || l.Phone != ""
}

// Patch is a partial update. Nil fields are left untouched; SetEnrichmentData
// with a nil value explicitly nulls the stored blob (GDPR deletion).
type Patch struct {
	FirstName *string
	LastName  *string
	Email     *string
	Phone     *string
	Location  *string

	EnrichmentConsent  *bool
	ConsentGrantedAt   **time.Time
	ConsentExpiresAt   **time.Time
	ConsentWithdrawnAt **time.Time
	CreditDataConsent  *bool
	PermissiblePurpose *string
	CCPAConsent        *bool

	EnrichmentData    *json.RawMessage
	SetEnrichmentData bool
}

// Apply mutates l in place. Stores share this so memory and postgres
// implementations cannot drift on patch semantics.
func (p Patch) Apply(l *Lead, now time.Time) {
	if p.FirstName != nil {
		l.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		l.LastName = *p.LastName
	}
	if p.Email != nil {
		l.Email = *p.Email
	}
	if p.Phone != nil {
		l.Phone = *p.Phone
	}
	if p.Location != nil {
		l.Location = *p.Location
	}
	if p.EnrichmentConsent != nil {
		l.EnrichmentConsent = *p.EnrichmentConsent
	}
	if p.ConsentGrantedAt != nil {
		l.ConsentGrantedAt = *p.ConsentGrantedAt
	}
	if p.ConsentExpiresAt != nil {
		l.ConsentExpiresAt = *p.ConsentExpiresAt
	}
	if p.ConsentWithdrawnAt != nil {
		l.ConsentWithdrawnAt = *p.ConsentWithdrawnAt
	}
	if p.CreditDataConsent != nil {
		l.CreditDataConsent = *p.CreditDataConsent
	}
	if p.PermissiblePurpose != nil {
		l.PermissiblePurpose = *p.PermissiblePurpose
	}
	if p.CCPAConsent != nil {
		l.CCPAConsent = *p.CCPAConsent
	}
	if p.SetEnrichmentData {
		if p.EnrichmentData != nil {
			l.EnrichmentData = *p.EnrichmentData
		} else {
			l.EnrichmentData = nil
		}
	}
	l.UpdatedAt = now
}

// Helpers for building patches without pointer noise at call sites.

func String(s string) *string { return &s }

func Bool(b bool) *bool { return &b }

func TimePtr(t time.Time) **time.Time { p := &t; return &p }

func NilTime() **time.Time { var p *time.Time; return &p }
