// Package httptransport is the thin HTTP surface over the enrichment core.
// Handlers decode, delegate, and encode; no business rules live here.
package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lead-enrichment/pkg/platform/middleware/metadata"
)

// NewRouter wires all endpoints.
func NewRouter(h *Handler, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metadata.ClientMetadata)

	r.Get("/healthz", h.handleHealthz)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Route("/leads/{leadID}", func(r chi.Router) {
			r.Post("/enrich", h.handleEnrich)
			r.Get("/enrichment", h.handleGetStatus)

			r.Post("/consent", h.handleGrantConsent)
			r.Delete("/consent", h.handleWithdrawConsent)
			r.Get("/consent", h.handleConsentStatus)

			r.Post("/deletion", h.handleDeletion)
			r.Get("/export", h.handleExport)
			r.Get("/audit", h.handleAuditTrail)
		})

		r.Post("/enrich/batch", h.handleEnrichBatch)
		r.Get("/providers/health", h.handleProviderHealth)
		r.Get("/stats", h.handleStats)
	})

	return r
}
