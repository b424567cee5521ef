// Package monitoring aggregates enrichment run statistics two ways: as
// Prometheus metrics for scraping, and as an in-memory snapshot that backs
// the stats endpoint and the alert rules.
package monitoring

import (
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"lead-enrichment/internal/enrichment"
	"lead-enrichment/internal/providers"
)

// Alert thresholds. Alerts only fire once enough runs accumulated to make
// the rate meaningful.
const (
	minRunsForAlerts     = 10
	successRateThreshold = 0.8
	meanQualityThreshold = 60.0
	p95LatencyThreshold  = 5 * time.Second

	// durationWindow bounds the sample kept for the p95 estimate.
	durationWindow = 512
)

// Alert is a currently-firing condition.
type Alert struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Snapshot is a point-in-time view of the aggregates.
type Snapshot struct {
	TotalRuns      int64                       `json:"totalRuns"`
	ByStatus       map[enrichment.Status]int64 `json:"byStatus"`
	CacheHits      int64                       `json:"cacheHits"`
	ConsentDenials int64                       `json:"consentDenials"`
	SuccessRate    float64                     `json:"successRate"`
	MeanQuality    float64                     `json:"meanQuality"`
	MeanConfidence float64                     `json:"meanConfidence"`
	MeanDuration   time.Duration               `json:"meanDuration"`
	P95Duration    time.Duration               `json:"p95Duration"`
	Alerts         []Alert                     `json:"alerts"`
}

// Service implements enrichment.RunRecorder.
type Service struct {
	metrics *metrics

	mu             sync.Mutex
	totalRuns      int64
	byStatus       map[enrichment.Status]int64
	cacheHits      int64
	consentDenials int64
	qualitySum     float64
	confidenceSum  float64
	durationSum    time.Duration
	durations      []time.Duration
	scoredRuns     int64
}

func NewService(reg prometheus.Registerer) *Service {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return &Service{
		metrics:  newMetrics(reg),
		byStatus: make(map[enrichment.Status]int64),
	}
}

// RecordRun ingests one finished enrichment run.
func (s *Service) RecordRun(status enrichment.Status, duration time.Duration, quality, confidence float64, sources []providers.Source) {
	s.metrics.runsTotal.WithLabelValues(string(status)).Inc()
	s.metrics.runDuration.Observe(duration.Seconds())
	for _, src := range sources {
		s.metrics.sourceDeliveries.WithLabelValues(string(src)).Inc()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalRuns++
	s.byStatus[status]++
	s.durationSum += duration
	if len(s.durations) == durationWindow {
		s.durations = s.durations[1:]
	}
	s.durations = append(s.durations, duration)
	if status != enrichment.StatusFailed {
		s.metrics.qualityScore.Observe(quality)
		s.metrics.confidence.Observe(confidence)
		s.qualitySum += quality
		s.confidenceSum += confidence
		s.scoredRuns++
	}
}

// RecordCacheHit counts a request served from cache.
func (s *Service) RecordCacheHit() {
	s.metrics.cacheHits.Inc()
	s.mu.Lock()
	s.cacheHits++
	s.mu.Unlock()
}

// RecordConsentDenied counts a consent gate denial.
func (s *Service) RecordConsentDenied() {
	s.metrics.consentDenials.Inc()
	s.mu.Lock()
	s.consentDenials++
	s.mu.Unlock()
}

// Snapshot returns current aggregates plus any firing alerts.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		TotalRuns:      s.totalRuns,
		ByStatus:       make(map[enrichment.Status]int64, len(s.byStatus)),
		CacheHits:      s.cacheHits,
		ConsentDenials: s.consentDenials,
		Alerts:         []Alert{},
	}
	for k, v := range s.byStatus {
		snap.ByStatus[k] = v
	}

	if s.totalRuns > 0 {
		succeeded := s.totalRuns - s.byStatus[enrichment.StatusFailed]
		snap.SuccessRate = float64(succeeded) / float64(s.totalRuns)
		snap.MeanDuration = s.durationSum / time.Duration(s.totalRuns)
		snap.P95Duration = percentile95(s.durations)
	}
	if s.scoredRuns > 0 {
		snap.MeanQuality = s.qualitySum / float64(s.scoredRuns)
		snap.MeanConfidence = s.confidenceSum / float64(s.scoredRuns)
	}

	if s.totalRuns >= minRunsForAlerts {
		if snap.SuccessRate < successRateThreshold {
			snap.Alerts = append(snap.Alerts, Alert{
				Name:    "low_success_rate",
				Message: "enrichment success rate below 80%",
			})
		}
		if s.scoredRuns > 0 && snap.MeanQuality < meanQualityThreshold {
			snap.Alerts = append(snap.Alerts, Alert{
				Name:    "low_quality",
				Message: "mean quality score below 60",
			})
		}
		if snap.P95Duration > p95LatencyThreshold {
			snap.Alerts = append(snap.Alerts, Alert{
				Name:    "slow_enrichment",
				Message: "p95 run duration above 5s",
			})
		}
	}
	return snap
}

func percentile95(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(samples))
	copy(sorted, samples)
	slices.Sort(sorted)
	idx := (len(sorted)*95 + 99) / 100
	if idx > 0 {
		idx--
	}
	return sorted[idx]
}

// Reset clears the in-memory aggregates. Prometheus counters are monotonic
// and deliberately untouched.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalRuns = 0
	s.byStatus = make(map[enrichment.Status]int64)
	s.cacheHits = 0
	s.consentDenials = 0
	s.qualitySum = 0
	s.confidenceSum = 0
	s.durationSum = 0
	s.durations = nil
	s.scoredRuns = 0
}
