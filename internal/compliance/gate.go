package compliance

import (
	"context"
	"fmt"
	"time"

	"lead-enrichment/internal/audit"
	"lead-enrichment/internal/lead"
	domainerrors "lead-enrichment/pkg/domain-errors"
)

// Gate is the compliance decision point. Every enrichment run passes through
// CheckConsent before any provider is called, and the credit provider
// consults AuthorizeCreditAccess before any bureau pull.
type Gate struct {
	leads      lead.Store
	auditor    *audit.Publisher
	classifier JurisdictionClassifier
	consentTTL time.Duration
	now        func() time.Time
}

func NewGate(leads lead.Store, auditor *audit.Publisher, classifier JurisdictionClassifier, consentTTL time.Duration) *Gate {
	if classifier == nil {
		classifier = KeywordClassifier{}
	}
	return &Gate{
		leads:      leads,
		auditor:    auditor,
		classifier: classifier,
		consentTTL: consentTTL,
		now:        time.Now,
	}
}

// CheckConsent evaluates the consent rules in fixed order and audits the
// check. A denial is a compliance-category event and is fail-closed: if it
// cannot be recorded, the check errors rather than silently passing or
// silently denying.
func (g *Gate) CheckConsent(ctx context.Context, l *lead.Lead) (Decision, error) {
	d := g.evaluate(l)

	if !d.Approved {
		if err := g.auditor.Emit(ctx, audit.Event{
			LeadID: l.ID,
			Type:   audit.EventConsentDenied,
			Data:   map[string]any{"reason": d.Reason},
		}); err != nil {
			return Decision{}, err
		}
		return d, nil
	}

	g.auditor.Emit(ctx, audit.Event{
		LeadID: l.ID,
		Type:   audit.EventConsentChecked,
		Data:   map[string]any{"approved": true},
	})
	return d, nil
}

func (g *Gate) evaluate(l *lead.Lead) Decision {
	d := Decision{CCPACompliant: true}

	now := g.now()
	switch {
	case !l.EnrichmentConsent:
		d.Reason = ReasonNoConsent
	case l.ConsentWithdrawnAt != nil:
		d.Reason = ReasonConsentWithdrawn
	case l.ConsentExpiresAt != nil && now.After(*l.ConsentExpiresAt):
		d.Reason = ReasonConsentExpired
	default:
		d.GDPRCompliant = true
	}

	if g.classifier.IsCaliforniaResident(l.Location) && !l.CCPAConsent {
		d.CCPACompliant = false
		if d.Reason == "" {
			d.Reason = ReasonCCPARequired
		}
	}

	d.Approved = d.Reason == ""
	return d
}

// AuthorizeCreditAccess applies the FCRA preconditions for a bureau pull:
// explicit credit consent, a recognized permissible purpose, and enough
// identity data to be confident the report is about the right person.
func (g *Gate) AuthorizeCreditAccess(_ context.Context, l *lead.Lead) (bool, string) {
	if !l.CreditDataConsent {
		return false, ReasonNoCreditConsent
	}
	if l.PermissiblePurpose == "" {
		return false, ReasonNoPermissiblePurpose
	}
	if !PermissiblePurposes[l.PermissiblePurpose] {
		return false, ReasonBadPermissiblePurpose
	}
	if l.FirstName == "" || l.LastName == "" || !l.HasContact() {
		return false, ReasonIdentityUnverified
	}
	return true, ""
}

// GrantConsent records enrichment consent for a lead, stamping the grant time
// and the expiry. Granting clears any previous withdrawal. Credit consent
// additionally requires a recognized permissible purpose.
func (g *Gate) GrantConsent(ctx context.Context, leadID string, includeCredit bool, purpose string) (*lead.Lead, error) {
	if includeCredit && !PermissiblePurposes[purpose] {
		return nil, domainerrors.New(domainerrors.CodeBadRequest,
			fmt.Sprintf("credit consent requires a permissible purpose, got %q", purpose))
	}

	now := g.now()
	expires := now.Add(g.consentTTL)
	patch := lead.Patch{
		EnrichmentConsent:  lead.Bool(true),
		ConsentGrantedAt:   lead.TimePtr(now),
		ConsentExpiresAt:   lead.TimePtr(expires),
		ConsentWithdrawnAt: lead.NilTime(),
		CreditDataConsent:  lead.Bool(includeCredit),
	}
	if includeCredit {
		patch.PermissiblePurpose = lead.String(purpose)
	}

	updated, err := g.leads.Update(ctx, leadID, patch)
	if err != nil {
		return nil, err
	}

	if err := g.auditor.Emit(ctx, audit.Event{
		LeadID: leadID,
		Type:   audit.EventConsentGranted,
		Data: map[string]any{
			"includesCredit": includeCredit,
			"expiresAt":      expires,
		},
	}); err != nil {
		return nil, err
	}
	return updated, nil
}

// WithdrawConsent revokes enrichment and credit consent. The withdrawal time
// is kept so later checks can report withdrawal rather than plain absence.
func (g *Gate) WithdrawConsent(ctx context.Context, leadID string) (*lead.Lead, error) {
	now := g.now()
	updated, err := g.leads.Update(ctx, leadID, lead.Patch{
		EnrichmentConsent:  lead.Bool(false),
		ConsentWithdrawnAt: lead.TimePtr(now),
		CreditDataConsent:  lead.Bool(false),
	})
	if err != nil {
		return nil, err
	}

	if err := g.auditor.Emit(ctx, audit.Event{
		LeadID: leadID,
		Type:   audit.EventConsentWithdrawn,
	}); err != nil {
		return nil, err
	}
	return updated, nil
}

// Status reports the current consent state for a lead.
func (g *Gate) Status(ctx context.Context, leadID string) (ConsentStatus, error) {
	l, err := g.leads.GetByID(ctx, leadID)
	if err != nil {
		return ConsentStatus{}, err
	}

	now := g.now()
	active := l.EnrichmentConsent &&
		l.ConsentWithdrawnAt == nil &&
		(l.ConsentExpiresAt == nil || now.Before(*l.ConsentExpiresAt))

	return ConsentStatus{
		LeadID:      l.ID,
		Granted:     l.EnrichmentConsent,
		GrantedAt:   l.ConsentGrantedAt,
		ExpiresAt:   l.ConsentExpiresAt,
		WithdrawnAt: l.ConsentWithdrawnAt,
		Active:      active,
	}, nil
}

// HandleDeletionRequest executes a data-subject deletion. GDPR erasure wipes
// PII, enrichment data, and consent state; CCPA anonymization replaces PII
// with a redaction marker and removes enrichment data but keeps the record.
func (g *Gate) HandleDeletionRequest(ctx context.Context, leadID string, regime DeletionRegime) (DeletionResult, error) {
	var patch lead.Patch
	var wiped []string
	var eventType audit.EventType

	switch regime {
	case RegimeGDPR:
		patch = lead.Patch{
			FirstName:          lead.String(""),
			LastName:           lead.String(""),
			Email:              lead.String(""),
			Phone:              lead.String(""),
			Location:           lead.String(""),
			EnrichmentConsent:  lead.Bool(false),
			ConsentGrantedAt:   lead.NilTime(),
			ConsentExpiresAt:   lead.NilTime(),
			ConsentWithdrawnAt: lead.NilTime(),
			CreditDataConsent:  lead.Bool(false),
			PermissiblePurpose: lead.String(""),
			CCPAConsent:        lead.Bool(false),
			SetEnrichmentData:  true,
		}
		wiped = []string{"firstName", "lastName", "email", "phone", "location", "consent", "enrichmentData"}
		eventType = audit.EventDataDeleted
	case RegimeCCPA:
		patch = lead.Patch{
			FirstName:         lead.String(lead.Redacted),
			LastName:          lead.String(lead.Redacted),
			Email:             lead.String(lead.Redacted),
			Phone:             lead.String(lead.Redacted),
			Location:          lead.String(lead.Redacted),
			SetEnrichmentData: true,
		}
		wiped = []string{"firstName", "lastName", "email", "phone", "location", "enrichmentData"}
		eventType = audit.EventDataAnonymized
	default:
		err := domainerrors.Newf(domainerrors.CodeBadRequest, "unknown deletion regime %q", regime)
		g.auditDeletionFailure(ctx, leadID, regime, err)
		return DeletionResult{}, err
	}

	if _, err := g.leads.Update(ctx, leadID, patch); err != nil {
		g.auditDeletionFailure(ctx, leadID, regime, err)
		return DeletionResult{}, err
	}

	if err := g.auditor.Emit(ctx, audit.Event{
		LeadID: leadID,
		Type:   eventType,
		Data:   map[string]any{"fieldsWiped": wiped},
	}); err != nil {
		return DeletionResult{}, err
	}

	return DeletionResult{
		LeadID:      leadID,
		Regime:      regime,
		FieldsWiped: wiped,
		CompletedAt: g.now(),
	}, nil
}

// auditDeletionFailure records a deletion request that could not be honored.
// Best effort: the original failure is what the caller needs to see.
func (g *Gate) auditDeletionFailure(ctx context.Context, leadID string, regime DeletionRegime, cause error) {
	g.auditor.Emit(ctx, audit.Event{
		LeadID: leadID,
		Type:   audit.EventDataDeletionFailed,
		Data: map[string]any{
			"regime": string(regime),
			"error":  cause.Error(),
		},
	})
}
