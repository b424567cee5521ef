package enrichment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"lead-enrichment/internal/audit"
	"lead-enrichment/internal/cache"
	"lead-enrichment/internal/compliance"
	"lead-enrichment/internal/lead"
	"lead-enrichment/internal/providers"
	domainerrors "lead-enrichment/pkg/domain-errors"
	"lead-enrichment/pkg/platform/sentinel"
)

// RunRecorder receives metrics about finished runs. The monitoring service
// implements it; a nil recorder disables recording.
type RunRecorder interface {
	RecordRun(status Status, duration time.Duration, quality, confidence float64, sources []providers.Source)
	RecordCacheHit()
	RecordConsentDenied()
}

// ServiceConfig bounds batch behavior and cache TTLs.
type ServiceConfig struct {
	ResultTTL    time.Duration
	HealthTTL    time.Duration
	BatchMaxSize int
	BatchDelay   time.Duration
}

// Service is the orchestration layer above the pipeline: cache-first reads,
// persistence of results onto the lead record, batch runs, status queries,
// and cache-aware deletion.
type Service struct {
	leads    lead.Store
	pipeline *Pipeline
	cache    *cache.Layer
	gate     *compliance.Gate
	auditor  *audit.Publisher
	recorder RunRecorder
	cfg      ServiceConfig
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(leads lead.Store, pipeline *Pipeline, cacheLayer *cache.Layer, gate *compliance.Gate, auditor *audit.Publisher, recorder RunRecorder, cfg ServiceConfig, logger *slog.Logger) *Service {
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = cache.DefaultResultTTL
	}
	if cfg.HealthTTL <= 0 {
		cfg.HealthTTL = cache.HealthProbeTTL
	}
	if cfg.BatchMaxSize <= 0 {
		cfg.BatchMaxSize = 50
	}
	return &Service{
		leads:    leads,
		pipeline: pipeline,
		cache:    cacheLayer,
		gate:     gate,
		auditor:  auditor,
		recorder: recorder,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

func resultKey(leadID string) string { return "result:" + leadID }

// EnrichOptions tunes one enrichment request.
type EnrichOptions struct {
	// ForceRefresh bypasses the cached result and runs the pipeline anew.
	ForceRefresh bool
	// Sources restricts the run to the named providers. Empty means all.
	Sources []providers.Source
}

// ParseSources converts the wire representation of a source filter,
// rejecting names that do not match a known provider.
func ParseSources(names []string) ([]providers.Source, error) {
	if len(names) == 0 {
		return nil, nil
	}
	sources := make([]providers.Source, 0, len(names))
	for _, name := range names {
		source := providers.Source(name)
		known := false
		for _, s := range providers.AllSources {
			if s == source {
				known = true
				break
			}
		}
		if !known {
			return nil, domainerrors.Newf(domainerrors.CodeBadRequest, "unknown enrichment source %q", name)
		}
		sources = append(sources, source)
	}
	return sources, nil
}

// EnrichLead enriches one lead, serving a cached result when one exists and
// opts.ForceRefresh is false. A source-filtered run always executes the
// pipeline and its result never enters the cache: a partial result must not
// be served to unfiltered requests. Fresh results are persisted on the lead
// record before being returned.
func (s *Service) EnrichLead(ctx context.Context, leadID string, opts EnrichOptions) (*Result, error) {
	l, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, domainerrors.Newf(domainerrors.CodeNotFound, "lead %s not found", leadID)
		}
		return nil, err
	}

	filtered := len(opts.Sources) > 0

	if !opts.ForceRefresh && !filtered {
		if cached, err := s.cache.Get(ctx, resultKey(leadID)); err == nil {
			var result Result
			if err := json.Unmarshal(cached, &result); err == nil {
				s.auditor.Emit(ctx, audit.Event{
					LeadID: leadID,
					Type:   audit.EventCacheHit,
					Data:   map[string]any{"enrichmentId": result.EnrichmentID},
				})
				if s.recorder != nil {
					s.recorder.RecordCacheHit()
				}
				return &result, nil
			}
			// Corrupt cache entry: fall through to a fresh run.
			s.cache.Delete(ctx, resultKey(leadID))
		}
	}

	started := s.now()
	result, runErr := s.pipeline.Run(ctx, l, opts.Sources...)
	if runErr != nil {
		s.auditor.Emit(ctx, audit.Event{
			LeadID: leadID,
			Type:   audit.EventEnrichmentFailed,
			Data:   map[string]any{"error": runErr.Error()},
		})
		if s.recorder != nil {
			if domainerrors.HasCode(runErr, domainerrors.CodeConsentDenied) {
				s.recorder.RecordConsentDenied()
			}
			s.recorder.RecordRun(StatusFailed, s.now().Sub(started), 0, 0, nil)
		}
		return nil, runErr
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode enrichment result: %w", err)
	}

	blob := json.RawMessage(raw)
	if _, err := s.leads.Update(ctx, leadID, lead.Patch{
		EnrichmentData:    &blob,
		SetEnrichmentData: true,
	}); err != nil {
		return nil, fmt.Errorf("persist enrichment result: %w", err)
	}

	if !filtered {
		if err := s.cache.Set(ctx, resultKey(leadID), raw, s.cfg.ResultTTL); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "cache enrichment result failed", "lead_id", leadID, "error", err)
		}
	}

	if err := s.auditor.Emit(ctx, audit.Event{
		LeadID: leadID,
		Type:   audit.EventEnrichmentCompleted,
		Data: map[string]any{
			"enrichmentId": result.EnrichmentID,
			"status":       result.Status,
			"sources":      result.Sources,
			"qualityScore": result.QualityScore,
			"durationMs":   result.CompletedAt.Sub(result.StartedAt).Milliseconds(),
		},
	}); err != nil {
		return nil, err
	}

	if s.recorder != nil {
		s.recorder.RecordRun(result.Status, result.CompletedAt.Sub(result.StartedAt), result.QualityScore, result.Confidence, result.Sources)
	}
	return result, nil
}

// BatchItem is the outcome for one lead in a batch run.
type BatchItem struct {
	LeadID string  `json:"leadId"`
	Result *Result `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// BatchResult summarizes a batch run.
type BatchResult struct {
	Items     []BatchItem `json:"items"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
}

// EnrichBatch runs leads sequentially with a pacing delay between them so a
// batch cannot monopolize provider rate limits. One lead's failure never
// aborts the rest.
func (s *Service) EnrichBatch(ctx context.Context, leadIDs []string, opts EnrichOptions) (*BatchResult, error) {
	if len(leadIDs) == 0 {
		return nil, domainerrors.New(domainerrors.CodeBadRequest, "batch is empty")
	}
	if len(leadIDs) > s.cfg.BatchMaxSize {
		return nil, domainerrors.Newf(domainerrors.CodeBadRequest,
			"batch size %d exceeds maximum %d", len(leadIDs), s.cfg.BatchMaxSize)
	}

	batch := &BatchResult{Items: make([]BatchItem, 0, len(leadIDs))}
	for i, id := range leadIDs {
		if i > 0 && s.cfg.BatchDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.cfg.BatchDelay):
			}
		}

		item := BatchItem{LeadID: id}
		result, err := s.EnrichLead(ctx, id, opts)
		if err != nil {
			item.Error = err.Error()
			batch.Failed++
		} else {
			item.Result = result
			batch.Succeeded++
		}
		batch.Items = append(batch.Items, item)
	}
	return batch, nil
}

// GetStatus returns the last persisted enrichment result for a lead.
func (s *Service) GetStatus(ctx context.Context, leadID string) (*Result, error) {
	l, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, domainerrors.Newf(domainerrors.CodeNotFound, "lead %s not found", leadID)
		}
		return nil, err
	}
	if len(l.EnrichmentData) == 0 {
		return nil, domainerrors.Newf(domainerrors.CodeNotFound, "lead %s has never been enriched", leadID)
	}

	var result Result
	if err := json.Unmarshal(l.EnrichmentData, &result); err != nil {
		return nil, fmt.Errorf("decode stored enrichment result: %w", err)
	}
	return &result, nil
}

// HandleDeletionRequest executes a data-subject deletion and evicts the
// lead's cached result so deleted data cannot be served afterward.
func (s *Service) HandleDeletionRequest(ctx context.Context, leadID string, regime compliance.DeletionRegime) (compliance.DeletionResult, error) {
	res, err := s.gate.HandleDeletionRequest(ctx, leadID, regime)
	if err != nil {
		return compliance.DeletionResult{}, err
	}
	if err := s.cache.Delete(ctx, resultKey(leadID)); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "evict cached result after deletion failed", "lead_id", leadID, "error", err)
	}
	return res, nil
}

// ProviderHealth reports provider health, cached briefly so a busy health
// endpoint does not hammer vendor health probes.
func (s *Service) ProviderHealth(ctx context.Context) (providers.OverallHealth, error) {
	var health providers.OverallHealth
	res, err := s.cache.GetWithFallback(ctx, "health:providers", s.cfg.HealthTTL, func(ctx context.Context) ([]byte, error) {
		return json.Marshal(s.pipeline.providers.Health(ctx))
	})
	if err != nil {
		return providers.OverallHealth{}, err
	}
	if err := json.Unmarshal(res.Data, &health); err != nil {
		return providers.OverallHealth{}, fmt.Errorf("decode cached provider health: %w", err)
	}
	return health, nil
}
