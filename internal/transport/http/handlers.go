package httptransport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"lead-enrichment/internal/audit"
	"lead-enrichment/internal/compliance"
	"lead-enrichment/internal/enrichment"
	"lead-enrichment/internal/monitoring"
	domainerrors "lead-enrichment/pkg/domain-errors"
)

// Handler holds the services the HTTP surface delegates to.
type Handler struct {
	enrichment *enrichment.Service
	gate       *compliance.Gate
	signer     *compliance.ExportSigner
	auditor    *audit.Publisher
	monitor    *monitoring.Service
	validate   *validator.Validate
	logger     *slog.Logger
}

func NewHandler(enrichSvc *enrichment.Service, gate *compliance.Gate, signer *compliance.ExportSigner, auditor *audit.Publisher, monitor *monitoring.Service, logger *slog.Logger) *Handler {
	return &Handler{
		enrichment: enrichSvc,
		gate:       gate,
		signer:     signer,
		auditor:    auditor,
		monitor:    monitor,
		validate:   validator.New(),
		logger:     logger,
	}
}

func (h *Handler) handleEnrich(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "leadID")
	force := r.URL.Query().Get("force") == "true"

	// ?sources=property,social restricts the run to the named providers.
	var names []string
	if raw := r.URL.Query().Get("sources"); raw != "" {
		names = strings.Split(raw, ",")
	}
	sources, err := enrichment.ParseSources(names)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.enrichment.EnrichLead(r.Context(), leadID, enrichment.EnrichOptions{
		ForceRefresh: force,
		Sources:      sources,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleEnrichBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchEnrichRequest
	if !h.decode(w, r, &req) {
		return
	}

	sources, err := enrichment.ParseSources(req.Sources)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	batch, err := h.enrichment.EnrichBatch(r.Context(), req.LeadIDs, enrichment.EnrichOptions{
		ForceRefresh: req.ForceRefresh,
		Sources:      sources,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, batch)
}

func (h *Handler) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	result, err := h.enrichment.GetStatus(r.Context(), chi.URLParam(r, "leadID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleGrantConsent(w http.ResponseWriter, r *http.Request) {
	var req GrantConsentRequest
	if !h.decode(w, r, &req) {
		return
	}

	updated, err := h.gate.GrantConsent(r.Context(), chi.URLParam(r, "leadID"), req.IncludeCredit, req.PermissiblePurpose)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleWithdrawConsent(w http.ResponseWriter, r *http.Request) {
	updated, err := h.gate.WithdrawConsent(r.Context(), chi.URLParam(r, "leadID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleConsentStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.gate.Status(r.Context(), chi.URLParam(r, "leadID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, status)
}

func (h *Handler) handleDeletion(w http.ResponseWriter, r *http.Request) {
	var req DeletionRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.enrichment.HandleDeletionRequest(r.Context(), chi.URLParam(r, "leadID"), compliance.DeletionRegime(req.Regime))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	pkg, err := h.gate.ExportForPortability(r.Context(), chi.URLParam(r, "leadID"), h.signer)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, pkg)
}

func (h *Handler) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	trail, err := h.auditor.List(r.Context(), chi.URLParam(r, "leadID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"events": trail})
}

func (h *Handler) handleProviderHealth(w http.ResponseWriter, r *http.Request) {
	health, err := h.enrichment.ProviderHealth(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, health)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.monitor.Snapshot())
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decode unmarshals and validates a JSON request body, writing the error
// response itself when the body is unusable.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeError(w, r, domainerrors.Wrap(err, domainerrors.CodeBadRequest, "malformed request body"))
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.writeError(w, r, domainerrors.Wrap(err, domainerrors.CodeValidation, "request validation failed"))
		return false
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && h.logger != nil {
		h.logger.Error("encode response failed", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := domainerrors.CodeOf(err)
	status := domainerrors.ToHTTPStatus(code)

	if status >= http.StatusInternalServerError && h.logger != nil {
		h.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":  string(code),
		"reason": domainerrors.Reason(err),
	})
}
