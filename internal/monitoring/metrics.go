package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the Prometheus instruments. Registered once per registerer;
// construction panics on duplicate registration, which is intentional.
type metrics struct {
	runsTotal        *prometheus.CounterVec
	runDuration      prometheus.Histogram
	qualityScore     prometheus.Histogram
	confidence       prometheus.Histogram
	sourceDeliveries *prometheus.CounterVec
	cacheHits        prometheus.Counter
	consentDenials   prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "enrichment_runs_total",
			Help: "Enrichment runs by terminal status.",
		}, []string{"status"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "enrichment_run_duration_seconds",
			Help:    "Wall-clock duration of enrichment runs.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		qualityScore: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "enrichment_quality_score",
			Help:    "Quality score distribution of completed runs.",
			Buckets: []float64{50, 60, 70, 75, 85, 90, 95, 100},
		}),
		confidence: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "enrichment_confidence",
			Help:    "Confidence score distribution of completed runs.",
			Buckets: []float64{0.1, 0.25, 0.5, 0.7, 0.8, 0.9, 0.95, 1},
		}),
		sourceDeliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "enrichment_source_deliveries_total",
			Help: "Successful data deliveries by source.",
		}, []string{"source"}),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "enrichment_cache_hits_total",
			Help: "Enrichment requests served from cache.",
		}),
		consentDenials: factory.NewCounter(prometheus.CounterOpts{
			Name: "enrichment_consent_denials_total",
			Help: "Enrichment requests denied by the consent gate.",
		}),
	}
}
