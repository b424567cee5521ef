// Package audit provides the append-only compliance trail for enrichment
// activity. Events are transport-agnostic so stores and sinks can fan out.
package audit

import (
	"time"

	"github.com/google/uuid"

	"lead-enrichment/pkg/platform/middleware/metadata"
)

// EventCategory classifies audit events by their primary purpose. This
// enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// These require tamper-proof storage and long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring,
	// e.g. rate-limit trips and denied credit access.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine pipeline activity useful for
	// debugging; can be sampled with shorter retention.
	CategoryOperations EventCategory = "operations"
)

// EventType identifies what happened. Values are stable strings consumed by
// downstream reporting, so renaming one is a breaking change.
type EventType string

const (
	// Consent lifecycle
	EventConsentGranted   EventType = "consent_granted"
	EventConsentWithdrawn EventType = "consent_withdrawn"
	EventConsentChecked   EventType = "consent_checked"
	EventConsentDenied    EventType = "consent_denied"

	// Enrichment lifecycle
	EventEnrichmentCompleted EventType = "completed"
	EventEnrichmentFailed    EventType = "failed"
	EventCacheHit            EventType = "cache_hit"

	// Data subject rights
	EventDataDeleted        EventType = "data_deleted"
	EventDataAnonymized     EventType = "data_anonymized"
	EventDataExported       EventType = "data_exported"
	EventDataDeletionFailed EventType = "data_deletion_failed"

	// Credit-specific (FCRA)
	EventCreditAccessed     EventType = "credit_data_accessed"
	EventCreditAccessDenied EventType = "credit_access_denied"

	// Provider plumbing
	EventRateLimitExceeded EventType = "rate_limit_exceeded"
)

// eventCategories maps each event type to its category; unknown events
// default to operations.
var eventCategories = map[EventType]EventCategory{
	EventConsentGranted:     CategoryCompliance,
	EventConsentWithdrawn:   CategoryCompliance,
	EventConsentDenied:      CategoryCompliance,
	EventDataDeleted:        CategoryCompliance,
	EventDataAnonymized:     CategoryCompliance,
	EventDataExported:       CategoryCompliance,
	EventDataDeletionFailed: CategoryCompliance,
	EventCreditAccessed:     CategoryCompliance,

	EventCreditAccessDenied: CategorySecurity,
	EventRateLimitExceeded:  CategorySecurity,

	EventConsentChecked:      CategoryOperations,
	EventEnrichmentCompleted: CategoryOperations,
	EventEnrichmentFailed:    CategoryOperations,
	EventCacheHit:            CategoryOperations,
}

// Category returns the EventCategory for this event type.
func (t EventType) Category() EventCategory {
	if cat, ok := eventCategories[t]; ok {
		return cat
	}
	return CategoryOperations
}

// Event is a single append-only audit record.
type Event struct {
	ID        uuid.UUID      `json:"id"`
	LeadID    string         `json:"leadId"`
	Type      EventType      `json:"eventType"`
	Category  EventCategory  `json:"category"`
	Data      map[string]any `json:"data,omitempty"`
	Actor     metadata.Actor `json:"actor,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
