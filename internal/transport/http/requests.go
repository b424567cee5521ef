package httptransport

// BatchEnrichRequest triggers enrichment for up to the configured batch
// maximum of leads.
type BatchEnrichRequest struct {
	LeadIDs      []string `json:"leadIds" validate:"required,min=1,dive,required"`
	ForceRefresh bool     `json:"forceRefresh"`
	// Sources optionally restricts which providers run for every lead in
	// the batch.
	Sources []string `json:"sources" validate:"omitempty,dive,oneof=property social credit"`
}

// GrantConsentRequest records enrichment consent. Credit consent requires a
// documented permissible purpose; the gate validates the purpose value.
type GrantConsentRequest struct {
	IncludeCredit      bool   `json:"includeCredit"`
	PermissiblePurpose string `json:"permissiblePurpose" validate:"required_if=IncludeCredit true"`
}

// DeletionRequest invokes a data-subject deletion right.
type DeletionRequest struct {
	Regime string `json:"regime" validate:"required,oneof=gdpr ccpa"`
}
