// Package compliance implements the consent gate in front of enrichment:
// GDPR consent lifecycle, CCPA handling for California residents, FCRA rules
// for credit data, and the data-subject rights operations (deletion,
// anonymization, portability export).
package compliance

import (
	"time"

	"lead-enrichment/internal/audit"
)

// Decision is the outcome of a consent check. Reason is empty on approval and
// carries the first failing rule's message on denial; rules are evaluated in
// a fixed order so the reason is deterministic.
type Decision struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason,omitempty"`

	GDPRCompliant bool `json:"gdprCompliant"`
	CCPACompliant bool `json:"ccpaCompliant"`
}

// Denial reasons, evaluated in this order.
const (
	ReasonNoConsent        = "No enrichment consent granted"
	ReasonConsentWithdrawn = "Consent has been withdrawn"
	ReasonConsentExpired   = "Consent has expired"
	ReasonCCPARequired     = "CCPA consent required for California residents"
)

// Credit access denial reasons (FCRA).
const (
	ReasonNoCreditConsent       = "no credit data consent"
	ReasonNoPermissiblePurpose  = "no permissible purpose documented"
	ReasonBadPermissiblePurpose = "permissible purpose not recognized"
	ReasonIdentityUnverified    = "lead identity not sufficiently verified"
)

// PermissiblePurposes enumerates the FCRA purposes this system accepts.
var PermissiblePurposes = map[string]bool{
	"mortgage_application":     true,
	"tenant_screening":         true,
	"account_review":           true,
	"legitimate_business_need": true,
}

// ConsentStatus is the queryable consent state of a lead.
type ConsentStatus struct {
	LeadID      string     `json:"leadId"`
	Granted     bool       `json:"granted"`
	GrantedAt   *time.Time `json:"grantedAt,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	WithdrawnAt *time.Time `json:"withdrawnAt,omitempty"`
	// Active reports whether consent currently authorizes enrichment,
	// i.e. granted, not withdrawn, not expired.
	Active bool `json:"active"`
}

// DeletionRegime selects which data-subject right a deletion request invokes.
type DeletionRegime string

const (
	// RegimeGDPR erases enrichment data, PII, and consent state entirely.
	RegimeGDPR DeletionRegime = "gdpr"
	// RegimeCCPA anonymizes: PII fields are replaced with a redaction
	// marker and enrichment data is removed, but the record remains.
	RegimeCCPA DeletionRegime = "ccpa"
)

// DeletionResult summarizes what a deletion request changed.
type DeletionResult struct {
	LeadID      string         `json:"leadId"`
	Regime      DeletionRegime `json:"regime"`
	FieldsWiped []string       `json:"fieldsWiped"`
	CompletedAt time.Time      `json:"completedAt"`
}

// DataPackage is a GDPR Article 20 portability export: everything the system
// holds about a lead, signed so the recipient can verify its origin.
type DataPackage struct {
	LeadID      string        `json:"leadId"`
	Lead        any           `json:"lead"`
	AuditTrail  []audit.Event `json:"auditTrail"`
	GeneratedAt time.Time     `json:"generatedAt"`
	// Signature is a compact JWS over the package digest.
	Signature string `json:"signature"`
}
