package providers

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"lead-enrichment/internal/lead"
	"lead-enrichment/internal/ratelimit"
)

// PropertyProvider enriches a lead with real-estate ownership data.
type PropertyProvider struct {
	chain *chain
}

func NewPropertyProvider(vendors []Vendor, limiter *ratelimit.Limiter, timeout time.Duration, logger *slog.Logger, tracer trace.Tracer) *PropertyProvider {
	return &PropertyProvider{
		chain: newChain(SourceProperty, vendors, limiter, timeout, logger, tracer),
	}
}

func (p *PropertyProvider) Source() Source { return SourceProperty }

func (p *PropertyProvider) Enrich(ctx context.Context, l *lead.Lead) (*Output, error) {
	out, err := p.chain.fetch(ctx, l)
	if err != nil {
		return nil, err
	}
	if out.Property == nil {
		return nil, NewError(ErrorBadData, out.Vendor, "vendor response missing property payload", nil)
	}
	out.Confidence = scoreConfidence(out.Property.Completeness(), out.Property.OwnershipVerified, out.DataAsOf, p.chain.now())
	return out, nil
}

func (p *PropertyProvider) Health(ctx context.Context) SourceHealth {
	return p.chain.health(ctx)
}
