package audit

import (
	"context"
	"fmt"

	"github.com/nao1215/docaudit/internal/config"
	"github.com/nao1215/docaudit/internal/fuzzy"
	"github.com/nao1215/docaudit/internal/model"
)

// TemplateMatch is the best disclaimer template for a piece of text.
type TemplateMatch struct {
	// TemplateID is the ID of the matched template.
	TemplateID string
	// Score is the similarity between the text and the template.
	Score float64
}

// Coverage describes whether one disclaimer template was found in the document.
type Coverage struct {
	// TemplateID is the template ID.
	TemplateID string `json:"template_id"`
	// Required mirrors the template's required flag.
	Required bool `json:"required"`
	// Covered is true when some page matches at or above the threshold.
	Covered bool `json:"covered"`
	// BestScore is the best similarity over all pages.
	BestScore float64 `json:"best_score"`
	// Page is the page with the best score, 0 when the document has no text.
	Page int `json:"page"`
}

// FindBestTemplateMatch returns the template that best matches text, scored
// as m.Similarity(template, text). The boolean is false when no template
// scores at or above threshold. Ties keep the earliest template.
func FindBestTemplateMatch(m fuzzy.Matcher, text string, templates []config.DisclaimerTemplate, threshold float64) (TemplateMatch, bool) {
	best, found := TemplateMatch{}, false
	for _, t := range templates {
		score := m.Similarity(t.Text, text)
		if score < threshold || (found && score <= best.Score) {
			continue
		}
		best, found = TemplateMatch{TemplateID: t.ID, Score: score}, true
	}
	return best, found
}

// AnalyzeDisclaimerCoverage reports, for each template ID, whether the
// template appears on some page. Page texts are built by concatenating the
// fragments of each page so disclaimers split across lines are still found.
// m should be a containment matcher: a page holding only part of a template
// must not cover it.
func AnalyzeDisclaimerCoverage(m fuzzy.Matcher, data *AuditData, templates []config.DisclaimerTemplate, threshold float64) map[string]Coverage {
	pageTexts := data.PageTexts()
	coverage := make(map[string]Coverage, len(templates))

	for _, t := range templates {
		c := Coverage{TemplateID: t.ID, Required: t.Required}
		if best, ok := m.BestMatch(t.Text, pageTexts, 0); ok {
			c.BestScore = best.Score
			c.Page = data.Pages[best.Index]
			c.Covered = best.Score >= threshold
		}
		coverage[t.ID] = c
	}
	return coverage
}

// ComplianceAuditor checks that every disclaimer template appears in the document.
type ComplianceAuditor struct {
	templates []config.DisclaimerTemplate
	threshold float64
	matcher   fuzzy.Matcher
}

// NewComplianceAuditor creates a new ComplianceAuditor.
func NewComplianceAuditor(templates []config.DisclaimerTemplate, threshold float64) *ComplianceAuditor {
	return &ComplianceAuditor{
		templates: templates,
		threshold: threshold,
		matcher:   fuzzy.NewMatcher(fuzzy.WithContainment()),
	}
}

// Name returns the auditor name.
func (a *ComplianceAuditor) Name() model.AuditorKind {
	return model.AuditorCompliance
}

// Audit reports every template that is not covered. Missing required
// templates are critical, missing optional ones informational. Both apply
// to the whole document.
func (a *ComplianceAuditor) Audit(ctx context.Context, data *AuditData) ([]model.Finding, error) {
	findings := make([]model.Finding, 0)
	if len(a.templates) == 0 {
		return findings, nil
	}
	if err := ctx.Err(); err != nil {
		return findings, err
	}

	coverage := AnalyzeDisclaimerCoverage(a.matcher, data, a.templates, a.threshold)

	for _, t := range a.templates {
		c := coverage[t.ID]
		if c.Covered {
			continue
		}

		severity, code, kind := model.SeverityInfo, model.CodeMissingOptional, "optional"
		if t.Required {
			severity, code, kind = model.SeverityCritical, model.CodeMissingDisclaimer, "required"
		}

		evidence := map[string]any{
			"template_id": t.ID,
			"required":    t.Required,
			"best_score":  roundTo(c.BestScore, 4),
			"threshold":   a.threshold,
		}
		if c.Page > 0 {
			evidence["best_page"] = c.Page
		}

		findings = append(findings, model.NewFinding(
			model.AuditorCompliance,
			code,
			severity,
			model.Location{},
			fmt.Sprintf("%s disclaimer %q not found", kind, t.ID),
			evidence,
		))
	}
	return findings, nil
}
