package enrichment

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"lead-enrichment/internal/compliance"
	"lead-enrichment/internal/lead"
	"lead-enrichment/internal/providers"
	"lead-enrichment/internal/validation"
	domainerrors "lead-enrichment/pkg/domain-errors"
)

// Pipeline runs one enrichment: input validation and consent gating are
// fatal stages; provider gathering, validation, and merging degrade
// per-source instead of failing the run.
type Pipeline struct {
	providers providers.Set
	gate      *compliance.Gate
	engine    *validation.Engine
	codec     *providers.SensitiveDataCodec
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

func NewPipeline(set providers.Set, gate *compliance.Gate, engine *validation.Engine, codec *providers.SensitiveDataCodec, logger *slog.Logger, tracer trace.Tracer) *Pipeline {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	return &Pipeline{
		providers: set,
		gate:      gate,
		engine:    engine,
		codec:     codec,
		logger:    logger,
		tracer:    tracer,
		now:       time.Now,
	}
}

// Run enriches one lead. A returned error means the run never got past its
// fatal stages (unenrichable input or denied consent); provider failures are
// reported inside the Result instead. Passing sources restricts the run to
// those providers; an empty list means all configured providers.
func (p *Pipeline) Run(ctx context.Context, l *lead.Lead, sources ...providers.Source) (*Result, error) {
	startedAt := p.now()

	ctx, span := p.tracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(attribute.String("lead.id", l.ID)))
	defer span.End()

	if !l.HasContact() {
		return nil, domainerrors.New(domainerrors.CodeBadRequest,
			"lead has neither email nor phone, nothing to enrich")
	}

	_, consentSpan := p.tracer.Start(ctx, "pipeline.consent")
	decision, err := p.gate.CheckConsent(ctx, l)
	consentSpan.End()
	if err != nil {
		return nil, err
	}
	if !decision.Approved {
		return nil, domainerrors.New(domainerrors.CodeConsentDenied, decision.Reason)
	}

	requested := p.requestedSources(sources)

	gatherCtx, gatherSpan := p.tracer.Start(ctx, "pipeline.gather")
	outputs, sourceErrs := p.gather(gatherCtx, l, requested)
	gatherSpan.End()

	// Credit payloads travel sealed; open them only now, at the merge
	// boundary, so the validation rules can inspect the plaintext.
	if out := outputs[providers.SourceCredit]; out != nil && len(out.SealedCredit) > 0 {
		var credit providers.CreditData
		if err := p.codec.Open(out.SealedCredit, &credit); err != nil {
			delete(outputs, providers.SourceCredit)
			sourceErrs = append(sourceErrs, SourceError{
				Source:   providers.SourceCredit,
				Category: string(providers.ErrorInternal),
				Message:  "unseal credit payload: " + err.Error(),
			})
		} else {
			out.Credit = &credit
		}
	}

	_, validateSpan := p.tracer.Start(ctx, "pipeline.validate")
	report := p.engine.Validate(l, outputs)
	validateSpan.End()

	result := p.merge(l, outputs, report, sourceErrs, len(requested), startedAt)
	return result, nil
}

// requestedSources intersects the caller's source filter with the configured
// providers, in canonical order. No filter means every configured provider.
func (p *Pipeline) requestedSources(sources []providers.Source) []providers.Source {
	active := make([]providers.Source, 0, len(p.providers))
	for _, source := range providers.AllSources {
		if _, ok := p.providers[source]; !ok {
			continue
		}
		if len(sources) > 0 && !containsSource(sources, source) {
			continue
		}
		active = append(active, source)
	}
	return active
}

func containsSource(sources []providers.Source, s providers.Source) bool {
	for _, candidate := range sources {
		if candidate == s {
			return true
		}
	}
	return false
}

// gather fans out to the requested providers in parallel and collects
// whatever came back. Individual provider failures never cancel the others.
func (p *Pipeline) gather(ctx context.Context, l *lead.Lead, requested []providers.Source) (map[providers.Source]*providers.Output, []SourceError) {
	var mu sync.Mutex
	outputs := make(map[providers.Source]*providers.Output, len(requested))
	var sourceErrs []SourceError

	g, ctx := errgroup.WithContext(ctx)
	for _, source := range requested {
		provider := p.providers[source]
		g.Go(func() error {
			out, err := provider.Enrich(ctx, l)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				sourceErrs = append(sourceErrs, sourceError(source, err))
				if p.logger != nil {
					p.logger.WarnContext(ctx, "source enrichment failed",
						"lead_id", l.ID, "source", source, "error", err)
				}
				return nil
			}
			outputs[source] = out
			return nil
		})
	}
	g.Wait()

	return outputs, sourceErrs
}

func sourceError(source providers.Source, err error) SourceError {
	if errors.Is(err, providers.ErrCreditAccessDenied) {
		return SourceError{
			Source:   source,
			Category: "access_denied",
			Message:  err.Error(),
		}
	}
	return SourceError{
		Source:    source,
		Category:  string(providers.CategoryOf(err)),
		Message:   err.Error(),
		Retryable: providers.IsRetryable(err),
	}
}

// merge assembles the final result from the validated outputs. expected is
// the number of sources the run asked for, so a filtered run that got
// everything it requested still counts as completed.
func (p *Pipeline) merge(l *lead.Lead, outputs map[providers.Source]*providers.Output, report *validation.Report, sourceErrs []SourceError, expected int, startedAt time.Time) *Result {
	result := &Result{
		LeadID:       l.ID,
		EnrichmentID: uuid.NewString(),
		QualityScore: report.QualityScore,
		Confidence:   report.Confidence,
		IsValid:      report.IsValid,
		Issues:       report.Issues,
		Corrections:  report.Corrections,
		Errors:       sourceErrs,
		StartedAt:    startedAt,
		CompletedAt:  p.now(),
	}

	for _, source := range providers.AllSources {
		out := outputs[source]
		if out == nil {
			continue
		}
		switch source {
		case providers.SourceProperty:
			if out.Property == nil {
				continue
			}
			result.Data.Property = out.Property
		case providers.SourceSocial:
			if out.Social == nil {
				continue
			}
			result.Data.Social = out.Social
		case providers.SourceCredit:
			// Validation may have discarded the opened payload.
			if out.Credit == nil {
				continue
			}
			result.Data.Credit = out.Credit
		}
		result.Sources = append(result.Sources, source)
		if result.Vendors == nil {
			result.Vendors = make(map[providers.Source]string)
		}
		result.Vendors[source] = out.Vendor
	}

	switch {
	case len(result.Sources) == 0:
		result.Status = StatusFailed
	case len(sourceErrs) > 0 || len(result.Sources) < expected:
		result.Status = StatusPartial
	default:
		result.Status = StatusCompleted
	}
	return result
}
