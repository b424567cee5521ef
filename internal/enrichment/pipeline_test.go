package enrichment

import (
	"bytes"
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lead-enrichment/internal/audit"
	"lead-enrichment/internal/compliance"
	"lead-enrichment/internal/lead"
	"lead-enrichment/internal/platform/config"
	"lead-enrichment/internal/providers"
	"lead-enrichment/internal/validation"
	domainerrors "lead-enrichment/pkg/domain-errors"
)

type stubProvider struct {
	source providers.Source
	out    *providers.Output
	err    error
	calls  atomic.Int64
}

func (p *stubProvider) Source() providers.Source { return p.source }

func (p *stubProvider) Enrich(ctx context.Context, l *lead.Lead) (*providers.Output, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	out := *p.out
	return &out, nil
}

func (p *stubProvider) Health(context.Context) providers.SourceHealth {
	return providers.SourceHealth{Overall: providers.StatusHealthy}
}

func testCodec(t *testing.T) *providers.SensitiveDataCodec {
	t.Helper()
	codec, err := providers.NewSensitiveDataCodec(bytes.Repeat([]byte{0x42}, 32))
	require.NoError(t, err)
	return codec
}

func validationEngine() *validation.Engine {
	return validation.NewEngine(config.ValidationConfig{
		PropertyWeight:  0.4,
		SocialWeight:    0.3,
		CreditWeight:    0.3,
		IssuePenalty:    10,
		MinQualityScore: 95,
		MaxIssues:       0,
		DefaultRegion:   "US",
	})
}

func consentedLead() *lead.Lead {
	granted := time.Now().Add(-24 * time.Hour)
	expires := granted.Add(365 * 24 * time.Hour)
	return &lead.Lead{
		ID:                "lead-1",
		FirstName:         "Ada",
		LastName:          "Moreno",
		Email:             "ada@example.com",
		Phone:             "+14155552671",
		Location:          "Austin, TX",
		EnrichmentConsent: true,
		ConsentGrantedAt:  &granted,
		ConsentExpiresAt:  &expires,
	}
}

func propertyOut() *providers.Output {
	return &providers.Output{
		Source:     providers.SourceProperty,
		Vendor:     "atlasdata",
		Confidence: 0.9,
		Property: &providers.PropertyData{
			PropertyValue:   450000,
			MortgageBalance: 280000,
			PropertyType:    "single_family",
			YearBuilt:       1998,
			SquareFeet:      2200,
			LastSaleDate:    "2019-06-14",
			LastSalePrice:   390000,
		},
	}
}

func socialOut() *providers.Output {
	return &providers.Output{
		Source:     providers.SourceSocial,
		Vendor:     "linkgraph",
		Confidence: 0.8,
		Social: &providers.SocialData{
			LinkedInURL:     "https://linkedin.com/in/ada-moreno",
			JobTitle:        "Principal Broker",
			Employer:        "Acme Realty",
			ConnectionCount: 500,
			TwitterHandle:   "@adamoreno",
			FollowerCount:   1200,
		},
	}
}

func sealedCreditOut(t *testing.T, codec *providers.SensitiveDataCodec, data *providers.CreditData) *providers.Output {
	t.Helper()
	sealed, err := codec.Seal(data)
	require.NoError(t, err)
	return &providers.Output{
		Source:       providers.SourceCredit,
		Vendor:       "bureaux-prime",
		Confidence:   0.95,
		SealedCredit: sealed,
	}
}

func newTestPipeline(t *testing.T, set providers.Set) (*Pipeline, *audit.MemoryStore) {
	t.Helper()
	auditStore := audit.NewMemoryStore()
	gate := compliance.NewGate(lead.NewMemoryStore(), audit.NewPublisher(auditStore), compliance.KeywordClassifier{}, 365*24*time.Hour)
	return NewPipeline(set, gate, validationEngine(), testCodec(t), nil, nil), auditStore
}

func TestPipeline_AllSourcesSucceed(t *testing.T) {
	codec := testCodec(t)
	set := providers.Set{
		providers.SourceProperty: &stubProvider{source: providers.SourceProperty, out: propertyOut()},
		providers.SourceSocial:   &stubProvider{source: providers.SourceSocial, out: socialOut()},
		providers.SourceCredit: &stubProvider{source: providers.SourceCredit, out: sealedCreditOut(t, codec, &providers.CreditData{
			CreditScore: 712, ScoreVerified: true, CreditUtilization: 0.34, PaymentHistory: "good",
		})},
	}
	p, _ := newTestPipeline(t, set)

	result, err := p.Run(context.Background(), consentedLead())
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, []providers.Source{providers.SourceProperty, providers.SourceSocial, providers.SourceCredit}, result.Sources)
	assert.NotEmpty(t, result.EnrichmentID)
	require.NotNil(t, result.Data.Credit, "sealed credit opened at merge")
	assert.Equal(t, 712, result.Data.Credit.CreditScore)
	assert.Equal(t, "bureaux-prime", result.Vendors[providers.SourceCredit])
	assert.Equal(t, float64(100), result.QualityScore)
	assert.True(t, result.IsValid)
	assert.False(t, result.CompletedAt.Before(result.StartedAt))
}

func TestPipeline_NoContactIsFatal(t *testing.T) {
	p, _ := newTestPipeline(t, providers.Set{})
	l := consentedLead()
	l.Email = ""
	l.Phone = ""

	_, err := p.Run(context.Background(), l)
	require.Error(t, err)
	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeBadRequest))
}

func TestPipeline_ConsentDeniedIsFatalAndCallsNoProviders(t *testing.T) {
	property := &stubProvider{source: providers.SourceProperty, out: propertyOut()}
	p, auditStore := newTestPipeline(t, providers.Set{providers.SourceProperty: property})

	l := consentedLead()
	l.EnrichmentConsent = false

	_, err := p.Run(context.Background(), l)
	require.Error(t, err)
	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeConsentDenied))
	assert.Equal(t, compliance.ReasonNoConsent, domainerrors.Reason(err))
	assert.Zero(t, property.calls.Load(), "denied consent must not reach providers")

	var denied bool
	for _, e := range auditStore.All() {
		if e.Type == audit.EventConsentDenied {
			denied = true
		}
	}
	assert.True(t, denied)
}

func TestPipeline_PartialWhenOneSourceFails(t *testing.T) {
	set := providers.Set{
		providers.SourceProperty: &stubProvider{source: providers.SourceProperty, out: propertyOut()},
		providers.SourceSocial: &stubProvider{
			source: providers.SourceSocial,
			err:    providers.NewError(providers.ErrorVendorOutage, "linkgraph", "down", nil),
		},
	}
	p, _ := newTestPipeline(t, set)

	result, err := p.Run(context.Background(), consentedLead())
	require.NoError(t, err, "provider failure degrades, never aborts")

	assert.Equal(t, StatusPartial, result.Status)
	assert.Equal(t, []providers.Source{providers.SourceProperty}, result.Sources)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, providers.SourceSocial, result.Errors[0].Source)
	assert.Equal(t, "vendor_outage", result.Errors[0].Category)
	assert.True(t, result.Errors[0].Retryable)
	assert.Equal(t, float64(100), result.QualityScore, "the surviving source is complete and clean")
}

func TestPipeline_SourceFilterRestrictsProviders(t *testing.T) {
	property := &stubProvider{source: providers.SourceProperty, out: propertyOut()}
	social := &stubProvider{source: providers.SourceSocial, out: socialOut()}
	p, _ := newTestPipeline(t, providers.Set{
		providers.SourceProperty: property,
		providers.SourceSocial:   social,
	})

	result, err := p.Run(context.Background(), consentedLead(), providers.SourceProperty)
	require.NoError(t, err)

	assert.Zero(t, social.calls.Load(), "unrequested providers must not run")
	assert.Equal(t, []providers.Source{providers.SourceProperty}, result.Sources)
	assert.Equal(t, StatusCompleted, result.Status, "the run got everything it asked for")
	assert.Equal(t, float64(100), result.QualityScore)
}

func TestPipeline_AllSourcesFail(t *testing.T) {
	set := providers.Set{
		providers.SourceProperty: &stubProvider{
			source: providers.SourceProperty,
			err:    providers.NewError(providers.ErrorVendorOutage, "atlasdata", "down", nil),
		},
	}
	p, _ := newTestPipeline(t, set)

	result, err := p.Run(context.Background(), consentedLead())
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, result.Status)
	assert.Empty(t, result.Sources)
	assert.Zero(t, result.QualityScore)

	var flagged bool
	for _, issue := range result.Issues {
		if issue.Type == "no_sources" && issue.Severity == validation.SeverityCritical {
			flagged = true
		}
	}
	assert.True(t, flagged, "a run with no usable data carries a critical issue")
}

func TestPipeline_CreditDeniedOthersProceed(t *testing.T) {
	set := providers.Set{
		providers.SourceProperty: &stubProvider{source: providers.SourceProperty, out: propertyOut()},
		providers.SourceCredit: &stubProvider{
			source: providers.SourceCredit,
			err:    providers.ErrCreditAccessDenied,
		},
	}
	p, _ := newTestPipeline(t, set)

	result, err := p.Run(context.Background(), consentedLead())
	require.NoError(t, err)

	assert.Equal(t, StatusPartial, result.Status)
	assert.Equal(t, []providers.Source{providers.SourceProperty}, result.Sources)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "access_denied", result.Errors[0].Category)
	assert.False(t, result.Errors[0].Retryable)
}

func TestPipeline_OutOfRangeCreditScoreDropped(t *testing.T) {
	codec := testCodec(t)
	set := providers.Set{
		providers.SourceProperty: &stubProvider{source: providers.SourceProperty, out: propertyOut()},
		providers.SourceCredit: &stubProvider{source: providers.SourceCredit, out: sealedCreditOut(t, codec, &providers.CreditData{
			CreditScore: 900, ScoreVerified: true,
		})},
	}
	p, _ := newTestPipeline(t, set)

	result, err := p.Run(context.Background(), consentedLead())
	require.NoError(t, err)

	assert.Nil(t, result.Data.Credit, "impossible score discards the credit block")
	assert.NotContains(t, result.Sources, providers.SourceCredit)
	require.NotEmpty(t, result.Issues)
	assert.Equal(t, validation.SeverityCritical, result.Issues[0].Severity)
}

func TestPipeline_CorruptSealedCreditDegrades(t *testing.T) {
	set := providers.Set{
		providers.SourceProperty: &stubProvider{source: providers.SourceProperty, out: propertyOut()},
		providers.SourceCredit: &stubProvider{source: providers.SourceCredit, out: &providers.Output{
			Source:       providers.SourceCredit,
			Vendor:       "bureaux-prime",
			SealedCredit: []byte("garbage"),
		}},
	}
	p, _ := newTestPipeline(t, set)

	result, err := p.Run(context.Background(), consentedLead())
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, result.Status)
	assert.Nil(t, result.Data.Credit)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, providers.SourceCredit, result.Errors[0].Source)
}
