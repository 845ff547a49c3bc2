package audit

import (
	"context"
	"fmt"

	"github.com/nao1215/docaudit/internal/model"
)

// FormatAuditor checks the shape of the extracted document:
// malformed fragments, empty pages and gaps in the page sequence.
type FormatAuditor struct{}

// NewFormatAuditor creates a new FormatAuditor.
func NewFormatAuditor() *FormatAuditor {
	return &FormatAuditor{}
}

// Name returns the auditor name.
func (a *FormatAuditor) Name() model.AuditorKind {
	return model.AuditorFormat
}

// Audit reports rejected fragments, empty pages and missing pages.
func (a *FormatAuditor) Audit(ctx context.Context, data *AuditData) ([]model.Finding, error) {
	findings := make([]model.Finding, 0)

	for _, r := range data.Rejected {
		if err := ctx.Err(); err != nil {
			return findings, err
		}
		loc := model.Location{}
		if data.HasPage(r.Fragment.PageNumber) {
			loc.Page = r.Fragment.PageNumber
		}
		findings = append(findings, model.NewFinding(
			model.AuditorFormat,
			model.CodeMalformedFragment,
			model.SeverityInfo,
			loc,
			fmt.Sprintf("fragment #%d was excluded from the audit: %v", r.Index, r.Err),
			map[string]any{
				"index":       r.Index,
				"page_number": r.Fragment.PageNumber,
				"reason":      r.Err.Error(),
			},
		))
	}

	findings = append(findings, a.emptyPages(data)...)
	findings = append(findings, a.pageGaps(data)...)
	return findings, nil
}

func (a *FormatAuditor) emptyPages(data *AuditData) []model.Finding {
	hasContent := make(map[int]bool, len(data.Pages))
	for _, f := range data.Fragments {
		if !f.IsEmpty() {
			hasContent[f.PageNumber] = true
		}
	}

	var findings []model.Finding
	for _, p := range data.Pages {
		if hasContent[p] {
			continue
		}
		findings = append(findings, model.NewFinding(
			model.AuditorFormat,
			model.CodeEmptyPage,
			model.SeverityInfo,
			model.Location{Page: p},
			fmt.Sprintf("page %d has no text and no colors", p),
			nil,
		))
	}
	return findings
}

// pageGaps reports missing page numbers at the first page after each gap.
func (a *FormatAuditor) pageGaps(data *AuditData) []model.Finding {
	var findings []model.Finding
	prev := 0
	for _, p := range data.Pages {
		if p-prev > 1 {
			from, to := prev+1, p-1
			msg := fmt.Sprintf("page %d is missing", from)
			if to > from {
				msg = fmt.Sprintf("pages %d-%d are missing", from, to)
			}
			findings = append(findings, model.NewFinding(
				model.AuditorFormat,
				model.CodePageGap,
				model.SeverityWarning,
				model.Location{Page: p},
				msg,
				map[string]any{"missing_from": from, "missing_to": to},
			))
		}
		prev = p
	}
	return findings
}
