package providers

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"lead-enrichment/internal/lead"
	"lead-enrichment/internal/ratelimit"
)

// SocialProvider enriches a lead with professional and social profile data.
type SocialProvider struct {
	chain *chain
}

func NewSocialProvider(vendors []Vendor, limiter *ratelimit.Limiter, timeout time.Duration, logger *slog.Logger, tracer trace.Tracer) *SocialProvider {
	return &SocialProvider{
		chain: newChain(SourceSocial, vendors, limiter, timeout, logger, tracer),
	}
}

func (p *SocialProvider) Source() Source { return SourceSocial }

func (p *SocialProvider) Enrich(ctx context.Context, l *lead.Lead) (*Output, error) {
	out, err := p.chain.fetch(ctx, l)
	if err != nil {
		return nil, err
	}
	if out.Social == nil {
		return nil, NewError(ErrorBadData, out.Vendor, "vendor response missing social payload", nil)
	}
	out.Confidence = scoreConfidence(out.Social.Completeness(), out.Social.ProfilesVerified, out.DataAsOf, p.chain.now())
	return out, nil
}

func (p *SocialProvider) Health(ctx context.Context) SourceHealth {
	return p.chain.health(ctx)
}
