package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"lead-enrichment/internal/lead"
	"lead-enrichment/internal/ratelimit"
)

// Vendor is one upstream data source. Implementations return an Output
// already normalized for their source; the chain owns fallback, throttling,
// and circuit breaking around them.
type Vendor interface {
	Name() string
	Fetch(ctx context.Context, l *lead.Lead) (*Output, error)
	Ping(ctx context.Context) error
}

// chain runs a vendor list in declared order: the first entry is the primary,
// the rest are fallbacks tried on failure; first success wins.
type chain struct {
	source   Source
	vendors  []Vendor
	breakers map[string]*Breaker
	limiter  *ratelimit.Limiter
	timeout  time.Duration
	tracer   trace.Tracer
	logger   *slog.Logger
	now      func() time.Time
}

func newChain(source Source, vendors []Vendor, limiter *ratelimit.Limiter, timeout time.Duration, logger *slog.Logger, tracer trace.Tracer) *chain {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	breakers := make(map[string]*Breaker, len(vendors))
	for _, v := range vendors {
		breakers[v.Name()] = newBreaker()
	}
	return &chain{
		source:   source,
		vendors:  vendors,
		breakers: breakers,
		limiter:  limiter,
		timeout:  timeout,
		tracer:   tracer,
		logger:   logger,
		now:      time.Now,
	}
}

// fetch acquires a rate-limit slot, then walks the vendor chain. Rate-limit
// failure is distinct from vendor failure and is not retried within the call.
func (c *chain) fetch(ctx context.Context, l *lead.Lead) (*Output, error) {
	if len(c.vendors) == 0 {
		return nil, ErrNoVendors
	}
	if err := c.limiter.Check(); err != nil {
		return nil, NewError(ErrorRateLimited, string(c.source),
			fmt.Sprintf("%s provider rate limit exceeded", c.source), err)
	}

	ctx, span := c.tracer.Start(ctx, "provider.fetch",
		trace.WithAttributes(attribute.String("enrichment.source", string(c.source))))
	defer span.End()

	var failures []error
	for _, v := range c.vendors {
		breaker := c.breakers[v.Name()]
		if !breaker.Allow() {
			failures = append(failures, NewError(ErrorCircuitOpen, v.Name(), "vendor short-circuited", nil))
			continue
		}

		out, err := c.fetchOne(ctx, v, l)
		if err != nil {
			breaker.RecordFailure()
			failures = append(failures, err)
			if c.logger != nil {
				c.logger.WarnContext(ctx, "vendor fetch failed",
					"source", c.source, "vendor", v.Name(), "error", err)
			}
			continue
		}

		breaker.RecordSuccess()
		out.Source = c.source
		out.Vendor = v.Name()
		out.RetrievedAt = c.now()
		span.SetAttributes(attribute.String("enrichment.vendor", v.Name()))
		return out, nil
	}

	return nil, fmt.Errorf("%s: %w", ErrAllVendorsFailed, errors.Join(failures...))
}

func (c *chain) fetchOne(ctx context.Context, v Vendor, l *lead.Lead) (*Output, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := v.Fetch(ctx, l)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, NewError(ErrorTimeout, v.Name(), "vendor call timed out", err)
		}
		return nil, err
	}
	if out == nil {
		return nil, NewError(ErrorBadData, v.Name(), "vendor returned empty output", nil)
	}
	return out, nil
}

// health probes each vendor. Overall is degraded whenever the primary vendor
// is unhealthy, even if a secondary is up; error when nothing is healthy.
func (c *chain) health(ctx context.Context) SourceHealth {
	h := SourceHealth{
		Overall: StatusHealthy,
		Vendors: make(map[string]VendorHealth, len(c.vendors)),
	}
	if len(c.vendors) == 0 {
		h.Overall = StatusError
		return h
	}

	anyHealthy := false
	for i, v := range c.vendors {
		err := v.Ping(ctx)
		vh := VendorHealth{Healthy: err == nil}
		if err != nil {
			vh.Error = err.Error()
			if i == 0 {
				h.Overall = StatusDegraded
			}
		} else {
			anyHealthy = true
		}
		h.Vendors[v.Name()] = vh
	}
	if !anyHealthy {
		h.Overall = StatusError
	}
	return h
}
