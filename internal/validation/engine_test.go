package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lead-enrichment/internal/lead"
	"lead-enrichment/internal/platform/config"
	"lead-enrichment/internal/providers"
)

func testEngine() *Engine {
	e := NewEngine(config.ValidationConfig{
		PropertyWeight:  0.4,
		SocialWeight:    0.3,
		CreditWeight:    0.3,
		IssuePenalty:    10,
		MinQualityScore: 95,
		MaxIssues:       0,
		DefaultRegion:   "US",
	})
	e.now = func() time.Time { return time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC) }
	return e
}

func validLead() *lead.Lead {
	return &lead.Lead{
		ID:        "lead-1",
		FirstName: "Ada",
		LastName:  "Moreno",
		Email:     "ada@example.com",
		Phone:     "+14155552671",
	}
}

func cleanOutputs() map[providers.Source]*providers.Output {
	return map[providers.Source]*providers.Output{
		providers.SourceProperty: {
			Source:     providers.SourceProperty,
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
		},
		providers.SourceSocial: {
			Source:     providers.SourceSocial,
			Confidence: 0.8,
			Social: &providers.SocialData{
				LinkedInURL:     "https://linkedin.com/in/ada-moreno",
				JobTitle:        "Principal Broker",
				Employer:        "Acme Realty",
				ConnectionCount: 500,
				TwitterHandle:   "@adamoreno",
				FollowerCount:   1200,
			},
		},
		providers.SourceCredit: {
			Source:     providers.SourceCredit,
			Confidence: 0.95,
			Credit: &providers.CreditData{
				CreditScore:       712,
				ScoreVerified:     true,
				CreditUtilization: 0.34,
				PaymentHistory:    "good",
			},
		},
	}
}

func TestValidate_CleanRunAllSources(t *testing.T) {
	report := testEngine().Validate(validLead(), cleanOutputs())

	assert.Empty(t, report.Issues)
	assert.Empty(t, report.Corrections)
	assert.Equal(t, float64(100), report.QualityScore)
	assert.True(t, report.IsValid)

	// 0.4*0.9 + 0.3*0.8 + 0.3*0.95 over weight sum 1.0
	assert.InDelta(t, 0.885, report.Confidence, 1e-9)
}

func TestValidate_TwoSourceRunRenormalizesWeights(t *testing.T) {
	outputs := cleanOutputs()
	delete(outputs, providers.SourceCredit)

	report := testEngine().Validate(validLead(), outputs)
	assert.Equal(t, float64(100), report.QualityScore, "absent sources drop out of the weighted average")
	assert.True(t, report.IsValid)

	// (0.4*0.9 + 0.3*0.8) / 0.7
	assert.InDelta(t, 0.6/0.7, report.Confidence, 1e-9)
}

func TestValidate_SingleCompleteSourceScoresFullBase(t *testing.T) {
	outputs := cleanOutputs()
	delete(outputs, providers.SourceSocial)
	delete(outputs, providers.SourceCredit)

	report := testEngine().Validate(validLead(), outputs)
	assert.Empty(t, report.Issues)
	assert.Equal(t, float64(100), report.QualityScore, "a fully complete source bases at 100")
}

func TestValidate_SparseSourceLowersBase(t *testing.T) {
	outputs := cleanOutputs()
	delete(outputs, providers.SourceSocial)
	delete(outputs, providers.SourceCredit)
	outputs[providers.SourceProperty].Property = &providers.PropertyData{
		PropertyValue: 450000,
		PropertyType:  "single_family",
		YearBuilt:     1998,
		SquareFeet:    2200,
	}

	report := testEngine().Validate(validLead(), outputs)
	// 4 of 7 required fields is above the half-complete threshold.
	assert.Equal(t, float64(70), report.QualityScore)
}

func TestValidate_MortgageExceedsValue(t *testing.T) {
	outputs := cleanOutputs()
	outputs[providers.SourceProperty].Property.MortgageBalance = 600000

	report := testEngine().Validate(validLead(), outputs)
	require.Len(t, report.Issues, 1)
	issue := report.Issues[0]
	assert.Equal(t, "anomalous_ratio", issue.Type)
	assert.Equal(t, SeverityHigh, issue.Severity)
	// Property base 100 - 10 penalty, weighted: 0.4*90 + 0.3*100 + 0.3*100.
	assert.Equal(t, float64(96), report.QualityScore)
	assert.False(t, report.IsValid)

	// High-severity issue discounts the property source confidence by 0.7.
	assert.InDelta(t, 0.9*0.7, report.SourceConfidence[providers.SourceProperty], 1e-9)
}

func TestValidate_OutOfRangeCreditScoreDropsBlock(t *testing.T) {
	outputs := cleanOutputs()
	outputs[providers.SourceCredit].Credit.CreditScore = 900

	report := testEngine().Validate(validLead(), outputs)

	assert.Nil(t, outputs[providers.SourceCredit].Credit, "entire credit block discarded")
	require.Len(t, report.Issues, 1)
	assert.Equal(t, SeverityCritical, report.Issues[0].Severity)

	// Credit no longer counts as present; the remaining sources are clean,
	// so the critical issue fails the run through the validity gate instead.
	assert.Equal(t, float64(100), report.QualityScore)
	assert.False(t, report.IsValid)
	_, scored := report.SourceConfidence[providers.SourceCredit]
	assert.False(t, scored)
}

func TestValidate_ConnectionCountCapped(t *testing.T) {
	outputs := cleanOutputs()
	outputs[providers.SourceSocial].Social.ConnectionCount = 2_000_000

	report := testEngine().Validate(validLead(), outputs)

	assert.Empty(t, report.Issues, "auto-corrected values are not issues")
	require.Len(t, report.Corrections, 1)
	assert.Equal(t, "connectionCount", report.Corrections[0].Field)
	assert.Equal(t, 30000, outputs[providers.SourceSocial].Social.ConnectionCount)
	assert.Equal(t, float64(100), report.QualityScore)
}

func TestValidate_DateAndTitleNormalized(t *testing.T) {
	outputs := cleanOutputs()
	outputs[providers.SourceProperty].Property.LastSaleDate = "06/14/2019"
	outputs[providers.SourceSocial].Social.JobTitle = "PRINCIPAL BROKER"

	report := testEngine().Validate(validLead(), outputs)

	assert.Empty(t, report.Issues)
	assert.Len(t, report.Corrections, 2)
	assert.Equal(t, "2019-06-14", outputs[providers.SourceProperty].Property.LastSaleDate)
	assert.Equal(t, "Principal Broker", outputs[providers.SourceSocial].Social.JobTitle)
}

func TestValidate_MixedCaseTitleLeftAlone(t *testing.T) {
	outputs := cleanOutputs()
	outputs[providers.SourceSocial].Social.JobTitle = "VP of Sales"

	report := testEngine().Validate(validLead(), outputs)
	assert.Empty(t, report.Corrections)
	assert.Equal(t, "VP of Sales", outputs[providers.SourceSocial].Social.JobTitle)
}

func TestValidate_MalformedLinkedInURL(t *testing.T) {
	outputs := cleanOutputs()
	outputs[providers.SourceSocial].Social.LinkedInURL = "http://linkedin.com/company/acme"

	report := testEngine().Validate(validLead(), outputs)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, "malformed_url", report.Issues[0].Type)
	assert.Equal(t, SeverityMedium, report.Issues[0].Severity)
}

func TestValidate_UtilizationCapped(t *testing.T) {
	outputs := cleanOutputs()
	outputs[providers.SourceCredit].Credit.CreditUtilization = 34

	report := testEngine().Validate(validLead(), outputs)
	assert.Empty(t, report.Issues)
	require.Len(t, report.Corrections, 1)
	assert.Equal(t, 1.0, outputs[providers.SourceCredit].Credit.CreditUtilization)
}

func TestValidate_InvalidPhoneFlagged(t *testing.T) {
	l := validLead()
	l.Phone = "555-not-a-phone"

	report := testEngine().Validate(l, cleanOutputs())
	require.Len(t, report.Issues, 1)
	assert.Equal(t, "invalid_phone", report.Issues[0].Type)
}

func TestValidate_NoSources(t *testing.T) {
	report := testEngine().Validate(validLead(), map[providers.Source]*providers.Output{})

	require.Len(t, report.Issues, 1)
	assert.Equal(t, "no_sources", report.Issues[0].Type)
	assert.Equal(t, SeverityCritical, report.Issues[0].Severity)
	assert.Zero(t, report.QualityScore)
	assert.Zero(t, report.Confidence)
	assert.False(t, report.IsValid)
}

func TestValidate_QualityFloorAtZero(t *testing.T) {
	e := NewEngine(config.ValidationConfig{
		PropertyWeight: 0.4, SocialWeight: 0.3, CreditWeight: 0.3,
		IssuePenalty: 150, MinQualityScore: 95, DefaultRegion: "US",
	})
	outputs := cleanOutputs()
	delete(outputs, providers.SourceSocial)
	delete(outputs, providers.SourceCredit)
	outputs[providers.SourceProperty].Property.MortgageBalance = 600000

	report := e.Validate(validLead(), outputs)
	assert.Zero(t, report.QualityScore, "per-source penalty floors at zero, never negative")
}
