package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/nyaruka/phonenumbers"

	"lead-enrichment/internal/lead"
	"lead-enrichment/internal/providers"
)

// Valid ranges and caps. Values outside a range are flagged; values above a
// cap are clamped and recorded as corrections.
const (
	minPropertyValue = 10_000
	maxPropertyValue = 100_000_000
	minYearBuilt     = 1800
	minSquareFeet    = 100
	maxSquareFeet    = 100_000

	maxConnectionCount = 30_000

	minCreditScore = 300
	maxCreditScore = 850
)

var linkedInURLPattern = regexp.MustCompile(`^https://(www\.)?linkedin\.com/in/[A-Za-z0-9\-_%]+/?$`)

var paymentHistoryValues = map[string]bool{
	"excellent": true,
	"good":      true,
	"fair":      true,
	"poor":      true,
}

func (e *Engine) checkProperty(out *providers.Output, report *Report) {
	d := out.Property
	if d == nil {
		return
	}

	if d.PropertyValue != 0 && (d.PropertyValue < minPropertyValue || d.PropertyValue > maxPropertyValue) {
		report.addIssue(Issue{
			Type:     "out_of_range",
			Severity: SeverityHigh,
			Source:   providers.SourceProperty,
			Field:    "propertyValue",
			Message:  fmt.Sprintf("property value %.0f outside plausible range [%d, %d]", d.PropertyValue, minPropertyValue, maxPropertyValue),
		})
	}

	// A mortgage exceeding the property value is usually a unit mismatch or
	// a stale valuation, never clean data.
	if d.MortgageBalance > 0 && d.PropertyValue > 0 && d.MortgageBalance > d.PropertyValue {
		report.addIssue(Issue{
			Type:       "anomalous_ratio",
			Severity:   SeverityHigh,
			Source:     providers.SourceProperty,
			Field:      "mortgageBalance",
			Message:    fmt.Sprintf("mortgage balance %.0f exceeds property value %.0f", d.MortgageBalance, d.PropertyValue),
			Suggestion: "verify valuation recency with the vendor",
		})
	}

	if d.YearBuilt != 0 && (d.YearBuilt < minYearBuilt || d.YearBuilt > e.now().Year()+1) {
		report.addIssue(Issue{
			Type:     "out_of_range",
			Severity: SeverityMedium,
			Source:   providers.SourceProperty,
			Field:    "yearBuilt",
			Message:  fmt.Sprintf("year built %d outside plausible range", d.YearBuilt),
		})
	}

	if d.SquareFeet != 0 && (d.SquareFeet < minSquareFeet || d.SquareFeet > maxSquareFeet) {
		report.addIssue(Issue{
			Type:     "out_of_range",
			Severity: SeverityMedium,
			Source:   providers.SourceProperty,
			Field:    "squareFeet",
			Message:  fmt.Sprintf("square footage %d outside plausible range", d.SquareFeet),
		})
	}

	if d.LastSaleDate != "" {
		if normalized, ok := normalizeDate(d.LastSaleDate); ok && normalized != d.LastSaleDate {
			report.addCorrection(Correction{
				Source: providers.SourceProperty,
				Field:  "lastSaleDate",
				From:   d.LastSaleDate,
				To:     normalized,
				Reason: "normalized to ISO 8601",
			})
			d.LastSaleDate = normalized
		} else if !ok {
			report.addIssue(Issue{
				Type:     "unparseable_date",
				Severity: SeverityLow,
				Source:   providers.SourceProperty,
				Field:    "lastSaleDate",
				Message:  fmt.Sprintf("unrecognized date format %q", d.LastSaleDate),
			})
		}
	}
}

func (e *Engine) checkSocial(out *providers.Output, report *Report) {
	d := out.Social
	if d == nil {
		return
	}

	if d.ConnectionCount > maxConnectionCount {
		report.addCorrection(Correction{
			Source: providers.SourceSocial,
			Field:  "connectionCount",
			From:   d.ConnectionCount,
			To:     maxConnectionCount,
			Reason: "capped at platform maximum",
		})
		d.ConnectionCount = maxConnectionCount
	}

	if d.JobTitle != "" {
		if normalized := normalizeTitle(d.JobTitle); normalized != d.JobTitle {
			report.addCorrection(Correction{
				Source: providers.SourceSocial,
				Field:  "jobTitle",
				From:   d.JobTitle,
				To:     normalized,
				Reason: "normalized casing",
			})
			d.JobTitle = normalized
		}
	}

	if d.LinkedInURL != "" && !linkedInURLPattern.MatchString(d.LinkedInURL) {
		report.addIssue(Issue{
			Type:       "malformed_url",
			Severity:   SeverityMedium,
			Source:     providers.SourceSocial,
			Field:      "linkedinUrl",
			Message:    fmt.Sprintf("linkedin URL %q does not match expected profile format", d.LinkedInURL),
			Suggestion: "expected https://linkedin.com/in/<handle>",
		})
	}
}

func (e *Engine) checkCredit(out *providers.Output, report *Report) {
	d := out.Credit
	if d == nil {
		return
	}

	// A score outside the FICO range means the record cannot be trusted at
	// all; the entire credit block is dropped, not just the score.
	if d.CreditScore != 0 && (d.CreditScore < minCreditScore || d.CreditScore > maxCreditScore) {
		report.addIssue(Issue{
			Type:       "out_of_range",
			Severity:   SeverityCritical,
			Source:     providers.SourceCredit,
			Field:      "creditScore",
			Message:    fmt.Sprintf("credit score %d outside valid range [%d, %d], credit data discarded", d.CreditScore, minCreditScore, maxCreditScore),
			Suggestion: "re-pull from the bureau",
		})
		out.Credit = nil
		out.SealedCredit = nil
		return
	}

	if d.CreditScore != 0 && !d.ScoreVerified {
		report.addIssue(Issue{
			Type:     "unverified_score",
			Severity: SeverityMedium,
			Source:   providers.SourceCredit,
			Field:    "scoreVerified",
			Message:  "credit score present but not verified by the bureau",
		})
	}

	if d.CreditUtilization > 1 {
		report.addCorrection(Correction{
			Source: providers.SourceCredit,
			Field:  "creditUtilization",
			From:   d.CreditUtilization,
			To:     1.0,
			Reason: "utilization is a ratio, capped at 1.0",
		})
		d.CreditUtilization = 1.0
	}

	if d.PaymentHistory != "" && !paymentHistoryValues[d.PaymentHistory] {
		report.addIssue(Issue{
			Type:       "unknown_enum_value",
			Severity:   SeverityLow,
			Source:     providers.SourceCredit,
			Field:      "paymentHistory",
			Message:    fmt.Sprintf("payment history %q not in excellent/good/fair/poor", d.PaymentHistory),
			Suggestion: "map vendor rating vocabulary",
		})
	}
}

// checkLeadContact validates the lead's own phone number so obviously broken
// contact data surfaces as a quality issue alongside vendor problems.
func (e *Engine) checkLeadContact(l *lead.Lead, report *Report) {
	if l.Phone == "" {
		return
	}
	num, err := phonenumbers.Parse(l.Phone, e.defaultRegion)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		report.addIssue(Issue{
			Type:     "invalid_phone",
			Severity: SeverityMedium,
			Source:   "",
			Field:    "phone",
			Message:  fmt.Sprintf("lead phone %q is not a valid number", l.Phone),
		})
	}
}

// normalizeDate reparses common vendor date formats into ISO 8601.
func normalizeDate(s string) (string, bool) {
	for _, layout := range []string{"2006-01-02", "01/02/2006", "Jan 2, 2006", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

// normalizeTitle converts shouting or all-lowercase job titles to title case,
// leaving mixed-case values (e.g. "VP of Sales") alone.
func normalizeTitle(s string) string {
	if s != strings.ToUpper(s) && s != strings.ToLower(s) {
		return s
	}
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
