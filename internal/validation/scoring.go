package validation

import (
	"lead-enrichment/internal/providers"
)

// sourceBase maps a source's required-field completeness onto its base
// quality score.
func sourceBase(completeness float64) float64 {
	switch {
	case completeness >= 1:
		return 100
	case completeness >= 0.75:
		return 85
	case completeness >= 0.5:
		return 70
	default:
		return 50
	}
}

// confidenceDiscount is applied to a source's confidence once per
// high-or-worse issue attributed to it.
const confidenceDiscount = 0.7

// score computes the quality score and the weighted overall confidence.
// Each present source gets a base from its completeness tier minus the issue
// penalty for every uncorrected issue attributed to it, floored at zero;
// quality and confidence are then weighted averages with the weights
// renormalized over the sources actually present.
func (e *Engine) score(outputs map[providers.Source]*providers.Output, report *Report) {
	weightSum := 0.0
	weightedQuality := 0.0
	weightedConfidence := 0.0

	for _, source := range providers.AllSources {
		out := outputs[source]
		if out == nil || !hasPayload(out) {
			continue
		}

		quality := sourceBase(payloadCompleteness(out)) - e.issuePenalty*float64(report.issuesFor(source))
		if quality < 0 {
			quality = 0
		}

		confidence := out.Confidence
		for range report.discountingIssues(source) {
			confidence *= confidenceDiscount
		}
		report.SourceConfidence[source] = confidence

		w := e.weights[source]
		weightSum += w
		weightedQuality += w * quality
		weightedConfidence += w * confidence
	}

	if weightSum > 0 {
		report.QualityScore = weightedQuality / weightSum
		report.Confidence = weightedConfidence / weightSum
	}
}

// payloadCompleteness returns the required-field ratio for whichever payload
// the output carries. A sealed credit payload that was never opened scores
// zero; the pipeline opens it before validation in the normal path.
func payloadCompleteness(out *providers.Output) float64 {
	switch {
	case out.Property != nil:
		return out.Property.Completeness()
	case out.Social != nil:
		return out.Social.Completeness()
	case out.Credit != nil:
		return out.Credit.Completeness()
	}
	return 0
}

// hasPayload reports whether the output still carries data after rule
// enforcement. Sealed credit counts: the payload exists, it is just encrypted.
func hasPayload(out *providers.Output) bool {
	return out.Property != nil || out.Social != nil || out.Credit != nil || len(out.SealedCredit) > 0
}

// anyPresent reports whether at least one source survived rule enforcement.
func anyPresent(outputs map[providers.Source]*providers.Output) bool {
	for _, out := range outputs {
		if out != nil && hasPayload(out) {
			return true
		}
	}
	return false
}
