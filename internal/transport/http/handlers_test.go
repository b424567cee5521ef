package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lead-enrichment/internal/audit"
	"lead-enrichment/internal/cache"
	"lead-enrichment/internal/compliance"
	"lead-enrichment/internal/enrichment"
	"lead-enrichment/internal/lead"
	"lead-enrichment/internal/monitoring"
	"lead-enrichment/internal/platform/config"
	"lead-enrichment/internal/providers"
	"lead-enrichment/internal/validation"
)

type fixedProvider struct {
	source providers.Source
	out    providers.Output
}

func (p *fixedProvider) Source() providers.Source { return p.source }

func (p *fixedProvider) Enrich(context.Context, *lead.Lead) (*providers.Output, error) {
	out := p.out
	return &out, nil
}

func (p *fixedProvider) Health(context.Context) providers.SourceHealth {
	return providers.SourceHealth{Overall: providers.StatusHealthy}
}

func newTestServer(t *testing.T, seed ...*lead.Lead) (*httptest.Server, *lead.MemoryStore) {
	t.Helper()

	leads := lead.NewMemoryStore()
	for _, l := range seed {
		leads.Seed(l)
	}
	auditor := audit.NewPublisher(audit.NewMemoryStore())
	gate := compliance.NewGate(leads, auditor, compliance.KeywordClassifier{}, 365*24*time.Hour)
	engine := validation.NewEngine(config.ValidationConfig{
		PropertyWeight: 0.4, SocialWeight: 0.3, CreditWeight: 0.3,
		IssuePenalty: 10, MinQualityScore: 95, DefaultRegion: "US",
	})
	codec, err := providers.NewSensitiveDataCodec(bytes.Repeat([]byte{0x42}, 32))
	require.NoError(t, err)

	set := providers.Set{
		providers.SourceProperty: &fixedProvider{source: providers.SourceProperty, out: providers.Output{
			Source: providers.SourceProperty, Vendor: "atlasdata", Confidence: 0.9,
			Property: &providers.PropertyData{PropertyValue: 450000, PropertyType: "single_family"},
		}},
	}
	pipeline := enrichment.NewPipeline(set, gate, engine, codec, nil, nil)

	registry := prometheus.NewRegistry()
	monitor := monitoring.NewService(registry)
	service := enrichment.NewService(leads, pipeline, cache.NewLayer(cache.NewMemoryStore(), nil), gate, auditor, monitor, enrichment.ServiceConfig{
		ResultTTL: time.Hour, HealthTTL: 30 * time.Second, BatchMaxSize: 50,
	}, nil)

	h := NewHandler(service, gate, compliance.NewExportSigner("test-key"), auditor, monitor, nil)
	srv := httptest.NewServer(NewRouter(h, registry))
	t.Cleanup(srv.Close)
	return srv, leads
}

func consentedLead() *lead.Lead {
	granted := time.Now().Add(-time.Hour)
	expires := granted.Add(365 * 24 * time.Hour)
	return &lead.Lead{
		ID:                "lead-1",
		FirstName:         "Ada",
		LastName:          "Moreno",
		Email:             "ada@example.com",
		Location:          "Austin, TX",
		EnrichmentConsent: true,
		ConsentGrantedAt:  &granted,
		ConsentExpiresAt:  &expires,
	}
}

func doJSON(t *testing.T, method, url string, body string) (*http.Response, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestEnrichEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, consentedLead())

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/v1/leads/lead-1/enrich", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "lead-1", body["leadId"])
	assert.Equal(t, "completed", body["status"])
}

func TestEnrichEndpoint_SourcesFilter(t *testing.T) {
	srv, _ := newTestServer(t, consentedLead())

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/v1/leads/lead-1/enrich?sources=property", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{"property"}, body["sources"])

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/v1/leads/lead-1/enrich?sources=astrology", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "bad_request", body["error"])
}

func TestEnrichEndpoint_ConsentDenied(t *testing.T) {
	l := consentedLead()
	l.EnrichmentConsent = false
	srv, _ := newTestServer(t, l)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/v1/leads/lead-1/enrich", "")
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "consent_denied", body["error"])
	assert.Equal(t, compliance.ReasonNoConsent, body["reason"])
}

func TestEnrichEndpoint_UnknownLead(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/v1/leads/ghost/enrich", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestConsentLifecycleEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, &lead.Lead{ID: "lead-1", FirstName: "Ada", LastName: "Moreno", Email: "ada@example.com"})

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/v1/leads/lead-1/consent",
		`{"includeCredit": true, "permissiblePurpose": "mortgage_application"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, status := doJSON(t, http.MethodGet, srv.URL+"/v1/leads/lead-1/consent", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, status["active"])

	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/v1/leads/lead-1/consent", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, status = doJSON(t, http.MethodGet, srv.URL+"/v1/leads/lead-1/consent", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, status["active"])
}

func TestBatchEndpoint_Validation(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/v1/enrich/batch", `{"leadIds": []}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/v1/enrich/batch", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeletionEndpoint(t *testing.T) {
	srv, leads := newTestServer(t, consentedLead())

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/v1/leads/lead-1/deletion", `{"regime": "gdpr"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "gdpr", body["regime"])

	after, err := leads.GetByID(context.Background(), "lead-1")
	require.NoError(t, err)
	assert.Empty(t, after.Email)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/v1/leads/lead-1/deletion", `{"regime": "hipaa"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExportEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, consentedLead())

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/v1/leads/lead-1/export", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "lead-1", body["leadId"])
	assert.NotEmpty(t, body["signature"])
}

func TestStatsAndHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, consentedLead())

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, stats := doJSON(t, http.MethodGet, srv.URL+"/v1/stats", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, stats, "totalRuns")

	resp, health := doJSON(t, http.MethodGet, srv.URL+"/v1/providers/health", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", health["overall"])
}
