package validation

import (
	"time"

	"lead-enrichment/internal/lead"
	"lead-enrichment/internal/platform/config"
	"lead-enrichment/internal/providers"
)

// Engine runs the cross-source validation rules and produces the quality and
// confidence scores for one enrichment run. It mutates the outputs it is
// given: corrections are applied in place and untrustworthy payloads are
// dropped.
type Engine struct {
	weights       map[providers.Source]float64
	issuePenalty  float64
	minQuality    float64
	maxIssues     int
	defaultRegion string
	now           func() time.Time
}

func NewEngine(cfg config.ValidationConfig) *Engine {
	return &Engine{
		weights: map[providers.Source]float64{
			providers.SourceProperty: cfg.PropertyWeight,
			providers.SourceSocial:   cfg.SocialWeight,
			providers.SourceCredit:   cfg.CreditWeight,
		},
		issuePenalty:  cfg.IssuePenalty,
		minQuality:    cfg.MinQualityScore,
		maxIssues:     cfg.MaxIssues,
		defaultRegion: cfg.DefaultRegion,
		now:           time.Now,
	}
}

// Validate checks every gathered output against the rules, applies
// auto-corrections, and scores the run. Outputs whose payload is dropped
// (e.g. an impossible credit score) no longer count as present for the
// completeness tier.
func (e *Engine) Validate(l *lead.Lead, outputs map[providers.Source]*providers.Output) *Report {
	report := &Report{
		Issues:           []Issue{},
		Corrections:      []Correction{},
		SourceConfidence: map[providers.Source]float64{},
	}

	e.checkLeadContact(l, report)

	if out := outputs[providers.SourceProperty]; out != nil {
		e.checkProperty(out, report)
	}
	if out := outputs[providers.SourceSocial]; out != nil {
		e.checkSocial(out, report)
	}
	if out := outputs[providers.SourceCredit]; out != nil {
		e.checkCredit(out, report)
	}

	if !anyPresent(outputs) {
		report.addIssue(Issue{
			Type:     "no_sources",
			Severity: SeverityCritical,
			Message:  "no enrichment source returned usable data",
		})
	}

	e.score(outputs, report)
	report.IsValid = report.QualityScore >= e.minQuality && len(report.Issues) <= e.maxIssues
	return report
}
