package monitoring

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"lead-enrichment/internal/enrichment"
	"lead-enrichment/internal/providers"
)

func newTestService() *Service {
	return NewService(prometheus.NewRegistry())
}

func TestSnapshot_Aggregates(t *testing.T) {
	s := newTestService()

	s.RecordRun(enrichment.StatusCompleted, time.Second, 100, 0.9, []providers.Source{providers.SourceProperty, providers.SourceSocial})
	s.RecordRun(enrichment.StatusPartial, 2*time.Second, 75, 0.6, []providers.Source{providers.SourceProperty})
	s.RecordRun(enrichment.StatusFailed, 500*time.Millisecond, 0, 0, nil)
	s.RecordCacheHit()
	s.RecordConsentDenied()

	snap := s.Snapshot()
	assert.Equal(t, int64(3), snap.TotalRuns)
	assert.Equal(t, int64(1), snap.ByStatus[enrichment.StatusCompleted])
	assert.Equal(t, int64(1), snap.ByStatus[enrichment.StatusFailed])
	assert.Equal(t, int64(1), snap.CacheHits)
	assert.Equal(t, int64(1), snap.ConsentDenials)
	assert.InDelta(t, 2.0/3.0, snap.SuccessRate, 1e-9)
	assert.InDelta(t, 87.5, snap.MeanQuality, 1e-9, "failed runs excluded from quality mean")
	assert.InDelta(t, 0.75, snap.MeanConfidence, 1e-9)
	assert.Empty(t, snap.Alerts, "too few runs to alert")
}

func TestSnapshot_LowSuccessRateAlert(t *testing.T) {
	s := newTestService()
	for range 7 {
		s.RecordRun(enrichment.StatusCompleted, time.Second, 100, 0.9, nil)
	}
	for range 3 {
		s.RecordRun(enrichment.StatusFailed, time.Second, 0, 0, nil)
	}

	snap := s.Snapshot()
	assert.InDelta(t, 0.7, snap.SuccessRate, 1e-9)
	if assert.Len(t, snap.Alerts, 1) {
		assert.Equal(t, "low_success_rate", snap.Alerts[0].Name)
	}
}

func TestSnapshot_LowQualityAlert(t *testing.T) {
	s := newTestService()
	for range 10 {
		s.RecordRun(enrichment.StatusPartial, time.Second, 50, 0.4, []providers.Source{providers.SourceProperty})
	}

	snap := s.Snapshot()
	if assert.Len(t, snap.Alerts, 1) {
		assert.Equal(t, "low_quality", snap.Alerts[0].Name)
	}
}

func TestSnapshot_SlowEnrichmentAlert(t *testing.T) {
	s := newTestService()
	for range 9 {
		s.RecordRun(enrichment.StatusCompleted, time.Second, 100, 0.9, nil)
	}
	s.RecordRun(enrichment.StatusCompleted, 10*time.Second, 100, 0.9, nil)

	snap := s.Snapshot()
	assert.Equal(t, 10*time.Second, snap.P95Duration)
	if assert.Len(t, snap.Alerts, 1) {
		assert.Equal(t, "slow_enrichment", snap.Alerts[0].Name)
	}
}

func TestSnapshot_NoAlertsBelowMinimumRuns(t *testing.T) {
	s := newTestService()
	for range 9 {
		s.RecordRun(enrichment.StatusFailed, time.Second, 0, 0, nil)
	}
	assert.Empty(t, s.Snapshot().Alerts)
}

func TestReset(t *testing.T) {
	s := newTestService()
	s.RecordRun(enrichment.StatusCompleted, time.Second, 100, 0.9, nil)
	s.RecordCacheHit()

	s.Reset()
	snap := s.Snapshot()
	assert.Zero(t, snap.TotalRuns)
	assert.Zero(t, snap.CacheHits)
	assert.Empty(t, snap.ByStatus)
}
