// Package validation cross-checks enriched data before it is merged into the
// final result. Rules either auto-correct a value in place (recorded as a
// Correction) or flag it (recorded as an Issue); only uncorrected issues count
// against the quality score.
package validation

import (
	"lead-enrichment/internal/providers"
)

// Severity grades an issue. High and critical issues also discount the
// confidence of the source that produced them.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Discounting reports whether issues of this severity reduce source confidence.
func (s Severity) Discounting() bool {
	return s == SeverityHigh || s == SeverityCritical
}

// Issue is a data problem the engine could not fix automatically.
type Issue struct {
	Type     string           `json:"type"`
	Severity Severity         `json:"severity"`
	Source   providers.Source `json:"source"`
	Field    string           `json:"field"`
	Message  string           `json:"message"`
	// Suggestion is a human-readable hint for manual review, empty when the
	// engine has nothing useful to propose.
	Suggestion string `json:"suggestion,omitempty"`
}

// Correction is an automatic fix the engine applied to the data in place.
type Correction struct {
	Source providers.Source `json:"source"`
	Field  string           `json:"field"`
	From   any              `json:"from"`
	To     any              `json:"to"`
	Reason string           `json:"reason"`
}

// Report is the outcome of validating one enrichment run.
type Report struct {
	Issues      []Issue      `json:"issues"`
	Corrections []Correction `json:"corrections"`

	// QualityScore grades overall data quality on [0, 100]: the weighted
	// average of per-source base scores after issue penalties.
	QualityScore float64 `json:"qualityScore"`

	// Confidence is the weighted average of per-source confidences after
	// issue discounting, on [0, 1].
	Confidence float64 `json:"confidence"`

	// SourceConfidence holds the post-discount confidence per source.
	SourceConfidence map[providers.Source]float64 `json:"sourceConfidence"`

	// IsValid reports whether the run clears the configured quality gate.
	IsValid bool `json:"isValid"`
}

func (r *Report) addIssue(i Issue) {
	r.Issues = append(r.Issues, i)
}

func (r *Report) addCorrection(c Correction) {
	r.Corrections = append(r.Corrections, c)
}

// issuesFor counts every uncorrected issue attributed to a source, for the
// per-source quality penalty.
func (r *Report) issuesFor(source providers.Source) int {
	n := 0
	for _, i := range r.Issues {
		if i.Source == source {
			n++
		}
	}
	return n
}

// discountingIssues counts high/critical issues per source for confidence
// discounting.
func (r *Report) discountingIssues(source providers.Source) int {
	n := 0
	for _, i := range r.Issues {
		if i.Source == source && i.Severity.Discounting() {
			n++
		}
	}
	return n
}
