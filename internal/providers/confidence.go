package providers

import "time"

// Confidence scoring shared by all three providers: start from a 0.5 base,
// add up to 0.4 for payload completeness, add 0.1 when the vendor verified
// the record, and subtract 0.05 for every 30 days of data age. Clamped to
// [0, 1]. A zero data-as-of stamp contributes no staleness penalty.
const (
	confidenceBase       = 0.5
	completenessWeight   = 0.4
	verifiedBonus        = 0.1
	stalenessPenalty     = 0.05
	stalenessPenaltyUnit = 30 * 24 * time.Hour
)

func scoreConfidence(completeness float64, verified bool, dataAsOf, now time.Time) float64 {
	score := confidenceBase + completenessWeight*completeness
	if verified {
		score += verifiedBonus
	}
	if !dataAsOf.IsZero() && now.After(dataAsOf) {
		periods := float64(now.Sub(dataAsOf) / stalenessPenaltyUnit)
		score -= stalenessPenalty * periods
	}
	return clamp01(score)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// completenessOf counts filled fields over total fields for a payload.
func completenessOf(filled, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(filled) / float64(total)
}

// Completeness is the filled-over-required field ratio for a payload. It
// feeds both the provider confidence score and the validation quality base.
func (d *PropertyData) Completeness() float64 {
	filled := 0
	if d.PropertyValue > 0 {
		filled++
	}
	if d.MortgageBalance > 0 {
		filled++
	}
	if d.PropertyType != "" {
		filled++
	}
	if d.YearBuilt > 0 {
		filled++
	}
	if d.SquareFeet > 0 {
		filled++
	}
	if d.LastSaleDate != "" {
		filled++
	}
	if d.LastSalePrice > 0 {
		filled++
	}
	return completenessOf(filled, 7)
}

func (d *SocialData) Completeness() float64 {
	filled := 0
	if d.LinkedInURL != "" {
		filled++
	}
	if d.JobTitle != "" {
		filled++
	}
	if d.Employer != "" {
		filled++
	}
	if d.ConnectionCount > 0 {
		filled++
	}
	if d.TwitterHandle != "" {
		filled++
	}
	if d.FollowerCount > 0 {
		filled++
	}
	return completenessOf(filled, 6)
}

// Completeness for credit counts only the fields whose zero value is
// distinguishable from absence. DerogatoryMarks and InquiriesLast6Months are
// legitimately zero for clean files, so they never enter the ratio.
func (d *CreditData) Completeness() float64 {
	filled := 0
	if d.CreditScore > 0 {
		filled++
	}
	if d.CreditUtilization > 0 {
		filled++
	}
	if d.PaymentHistory != "" {
		filled++
	}
	return completenessOf(filled, 3)
}
