package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"lead-enrichment/internal/audit"
	"lead-enrichment/internal/lead"
	"lead-enrichment/internal/ratelimit"
)

// ErrCreditAccessDenied marks an FCRA preflight denial. The credit source is
// skipped entirely: no rate-limit slot is consumed and no vendor is called.
var ErrCreditAccessDenied = errors.New("credit data access denied")

// CreditAccessDecider is the FCRA gate consulted before any bureau call.
type CreditAccessDecider interface {
	AuthorizeCreditAccess(ctx context.Context, l *lead.Lead) (approved bool, reason string)
}

// AuditEmitter records credit access events. Every bureau pull attempt is
// audited whether it succeeds or not, and every denial is audited too.
type AuditEmitter interface {
	Emit(ctx context.Context, event audit.Event) error
}

// CreditProvider enriches a lead with bureau data under FCRA handling rules.
// The payload is sealed by the sensitive-data codec as soon as it is
// normalized; downstream stages only ever see SealedCredit until the merge
// point opens it.
type CreditProvider struct {
	chain   *chain
	decider CreditAccessDecider
	auditor AuditEmitter
	codec   *SensitiveDataCodec
}

func NewCreditProvider(vendors []Vendor, limiter *ratelimit.Limiter, timeout time.Duration, decider CreditAccessDecider, auditor AuditEmitter, codec *SensitiveDataCodec, logger *slog.Logger, tracer trace.Tracer) *CreditProvider {
	return &CreditProvider{
		chain:   newChain(SourceCredit, vendors, limiter, timeout, logger, tracer),
		decider: decider,
		auditor: auditor,
		codec:   codec,
	}
}

func (p *CreditProvider) Source() Source { return SourceCredit }

func (p *CreditProvider) Enrich(ctx context.Context, l *lead.Lead) (*Output, error) {
	approved, reason := p.decider.AuthorizeCreditAccess(ctx, l)
	if !approved {
		// Security-category event: logged and dropped on store failure,
		// the denial itself always stands.
		p.auditor.Emit(ctx, audit.Event{
			LeadID: l.ID,
			Type:   audit.EventCreditAccessDenied,
			Data:   map[string]any{"reason": reason},
		})
		return nil, fmt.Errorf("%w: %s", ErrCreditAccessDenied, reason)
	}

	out, fetchErr := p.chain.fetch(ctx, l)

	// FCRA requires a record of every pull attempt, not just successes.
	// The accessed event is compliance-category and fail-closed: if it
	// cannot be persisted the whole credit enrichment fails.
	eventData := map[string]any{
		"purpose": l.PermissiblePurpose,
		"outcome": "success",
	}
	if fetchErr != nil {
		eventData["outcome"] = "failed"
		eventData["error"] = fetchErr.Error()
	} else {
		eventData["vendor"] = out.Vendor
	}
	if err := p.auditor.Emit(ctx, audit.Event{
		LeadID: l.ID,
		Type:   audit.EventCreditAccessed,
		Data:   eventData,
	}); err != nil {
		return nil, err
	}

	if fetchErr != nil {
		return nil, fetchErr
	}
	if out.Credit == nil {
		return nil, NewError(ErrorBadData, out.Vendor, "vendor response missing credit payload", nil)
	}

	out.Confidence = scoreConfidence(out.Credit.Completeness(), out.Credit.ScoreVerified, out.DataAsOf, p.chain.now())

	sealed, err := p.codec.Seal(out.Credit)
	if err != nil {
		return nil, NewError(ErrorInternal, out.Vendor, "seal credit payload", err)
	}
	out.SealedCredit = sealed
	out.Credit = nil
	return out, nil
}

func (p *CreditProvider) Health(ctx context.Context) SourceHealth {
	return p.chain.health(ctx)
}
