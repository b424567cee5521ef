// Package providers implements the three enrichment data sources. Each
// provider wraps a chain of upstream vendors with primary/secondary fallback,
// its own rate limiter, and per-vendor circuit breakers, and normalizes
// vendor responses into the common Output schema for its source.
package providers

import (
	"context"
	"time"

	"lead-enrichment/internal/lead"
)

// Source identifies the kind of data a provider produces. The set is closed:
// dispatch is over these three variants, never reflection.
type Source string

const (
	SourceProperty Source = "property"
	SourceSocial   Source = "social"
	SourceCredit   Source = "credit"
)

// AllSources in canonical order.
var AllSources = []Source{SourceProperty, SourceSocial, SourceCredit}

// Valid reports whether s names a known source.
func (s Source) Valid() bool {
	switch s {
	case SourceProperty, SourceSocial, SourceCredit:
		return true
	}
	return false
}

// PropertyData is the normalized property-source payload. Every numeric field
// has a declared valid range enforced by the validation engine.
type PropertyData struct {
	PropertyValue     float64 `json:"propertyValue,omitempty"`
	MortgageBalance   float64 `json:"mortgageBalance,omitempty"`
	PropertyType      string  `json:"propertyType,omitempty"`
	YearBuilt         int     `json:"yearBuilt,omitempty"`
	SquareFeet        int     `json:"squareFeet,omitempty"`
	LastSaleDate      string  `json:"lastSaleDate,omitempty"`
	LastSalePrice     float64 `json:"lastSalePrice,omitempty"`
	OwnershipVerified bool    `json:"ownershipVerified,omitempty"`
}

// SocialData is the normalized social-source payload.
type SocialData struct {
	LinkedInURL      string `json:"linkedinUrl,omitempty"`
	JobTitle         string `json:"jobTitle,omitempty"`
	Employer         string `json:"employer,omitempty"`
	ConnectionCount  int    `json:"connectionCount,omitempty"`
	TwitterHandle    string `json:"twitterHandle,omitempty"`
	FollowerCount    int    `json:"followerCount,omitempty"`
	ProfilesVerified bool   `json:"profilesVerified,omitempty"`
}

// CreditData is the normalized credit-source payload. ScoreVerified is
// mandatory per FCRA handling rules; unverified scores are flagged by the
// validation engine.
type CreditData struct {
	CreditScore          int     `json:"creditScore,omitempty"`
	ScoreVerified        bool    `json:"scoreVerified"`
	CreditUtilization    float64 `json:"creditUtilization,omitempty"`
	PaymentHistory       string  `json:"paymentHistory,omitempty"`
	DerogatoryMarks      int     `json:"derogatoryMarks,omitempty"`
	InquiriesLast6Months int     `json:"inquiriesLast6Months,omitempty"`
}

// Output is the common result schema for one source. Exactly one of the data
// pointers matching Source is populated — except credit, where the payload is
// sealed by the sensitive-data codec between vendor response and merge, so
// Credit stays nil and SealedCredit carries the ciphertext.
type Output struct {
	Source      Source
	Vendor      string
	Confidence  float64
	RetrievedAt time.Time
	// DataAsOf is the vendor's freshness stamp for the record, feeding the
	// recency term of the confidence score.
	DataAsOf time.Time

	Property *PropertyData
	Social   *SocialData
	Credit   *CreditData

	SealedCredit []byte
}

// Provider is the capability every source implements.
type Provider interface {
	Source() Source
	Enrich(ctx context.Context, l *lead.Lead) (*Output, error)
	Health(ctx context.Context) SourceHealth
}

// Set holds the configured providers keyed by source.
type Set map[Source]Provider

// Health probes every provider's vendors. Overall is the worst source status.
func (s Set) Health(ctx context.Context) OverallHealth {
	overall := OverallHealth{
		Overall:   StatusHealthy,
		Providers: make(map[Source]SourceHealth, len(s)),
	}
	for source, p := range s {
		h := p.Health(ctx)
		overall.Providers[source] = h
		if statusRank(h.Overall) > statusRank(overall.Overall) {
			overall.Overall = h.Overall
		}
	}
	return overall
}

// SourceStatus is a provider health grade.
type SourceStatus string

const (
	StatusHealthy  SourceStatus = "healthy"
	StatusDegraded SourceStatus = "degraded"
	StatusError    SourceStatus = "error"
)

func statusRank(s SourceStatus) int {
	switch s {
	case StatusDegraded:
		return 1
	case StatusError:
		return 2
	default:
		return 0
	}
}

// VendorHealth is one vendor's probe result.
type VendorHealth struct {
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// SourceHealth is the per-provider health contract. Overall is degraded when
// the primary vendor is unhealthy even if a secondary is healthy.
type SourceHealth struct {
	Overall SourceStatus            `json:"overall"`
	Vendors map[string]VendorHealth `json:"vendors"`
}

// OverallHealth aggregates all providers for the health endpoint.
type OverallHealth struct {
	Overall   SourceStatus            `json:"overall"`
	Providers map[Source]SourceHealth `json:"providers"`
}
