package report

import (
	"time"

	"github.com/nao1215/docaudit/internal/model"
)

// Risk directions of a Comparison.
const (
	RiskWorsened  = "worsened"
	RiskImproved  = "improved"
	RiskUnchanged = "unchanged"
)

// severityWeight scores a severity when deciding the risk direction.
var severityWeight = map[model.Severity]int{
	model.SeverityCritical: 100,
	model.SeverityWarning:  10,
	model.SeverityInfo:     1,
}

// AuditSummary is the part of a stored audit shown in a comparison.
type AuditSummary struct {
	// RunID identifies the audit run.
	RunID string `json:"run_id"`

	// DateAudited is when the audit was performed.
	DateAudited time.Time `json:"date_audited"`

	// TotalFindings is the number of findings in the audit.
	TotalFindings int `json:"total_findings"`

	// SummaryCounts holds the number of findings per severity.
	SummaryCounts map[model.Severity]int `json:"summary_counts"`
}

// RiskChange describes how the findings moved between two audits.
type RiskChange struct {
	// Direction is "improved", "worsened", or "unchanged".
	Direction string `json:"direction"`

	// Deltas is the change in count per severity.
	Deltas map[model.Severity]int `json:"deltas"`
}

// Comparison is the difference between two audits of one document.
type Comparison struct {
	// Document is the compared document.
	Document string `json:"document"`

	// Previous summarizes the older audit.
	Previous AuditSummary `json:"previous"`

	// Current summarizes the newer audit.
	Current AuditSummary `json:"current"`

	// NewFindings are in the current audit only.
	NewFindings []model.Finding `json:"new_findings"`

	// ResolvedFindings are in the previous audit only.
	ResolvedFindings []model.Finding `json:"resolved_findings"`

	// UnchangedCount is the number of findings present in both audits.
	UnchangedCount int `json:"unchanged_count"`

	// RiskChange is the overall change.
	RiskChange RiskChange `json:"risk_change"`
}

// Compare returns the difference between two audits of the same document.
// Findings are matched by ID, which is stable across runs for the same
// defect at the same place.
func Compare(previous, current *model.DocumentAudit) *Comparison {
	c := &Comparison{
		Document:         current.Document,
		Previous:         summarize(previous),
		Current:          summarize(current),
		NewFindings:      []model.Finding{},
		ResolvedFindings: []model.Finding{},
	}

	before := findingsByID(previous)
	after := findingsByID(current)

	for id, f := range after {
		if _, ok := before[id]; !ok {
			c.NewFindings = append(c.NewFindings, f)
		}
	}
	for id, f := range before {
		if _, ok := after[id]; ok {
			c.UnchangedCount++
			continue
		}
		c.ResolvedFindings = append(c.ResolvedFindings, f)
	}
	model.SortFindings(c.NewFindings)
	model.SortFindings(c.ResolvedFindings)

	c.RiskChange = riskChange(c.Previous, c.Current)
	return c
}

// TotalDelta returns the change in the total number of findings.
func (c *Comparison) TotalDelta() int {
	return c.Current.TotalFindings - c.Previous.TotalFindings
}

func summarize(audit *model.DocumentAudit) AuditSummary {
	s := AuditSummary{
		RunID:         audit.RunID,
		DateAudited:   audit.DateAudited,
		SummaryCounts: make(map[model.Severity]int, len(model.Severities)),
	}
	for _, sev := range model.Severities {
		s.SummaryCounts[sev] = 0
	}
	if audit.Report == nil {
		return s
	}
	s.TotalFindings = audit.Report.TotalFindings()
	for _, sev := range model.Severities {
		s.SummaryCounts[sev] = audit.Report.Count(sev)
	}
	return s
}

func findingsByID(audit *model.DocumentAudit) map[string]model.Finding {
	m := make(map[string]model.Finding)
	if audit.Report == nil {
		return m
	}
	for _, f := range audit.Report.Findings {
		m[f.ID] = f
	}
	return m
}

// riskChange weights each severity so that one new critical finding
// outweighs several resolved warnings.
func riskChange(previous, current AuditSummary) RiskChange {
	change := RiskChange{Deltas: make(map[model.Severity]int, len(model.Severities))}
	var before, after int
	for _, sev := range model.Severities {
		change.Deltas[sev] = current.SummaryCounts[sev] - previous.SummaryCounts[sev]
		before += previous.SummaryCounts[sev] * severityWeight[sev]
		after += current.SummaryCounts[sev] * severityWeight[sev]
	}

	switch {
	case after < before:
		change.Direction = RiskImproved
	case after > before:
		change.Direction = RiskWorsened
	default:
		change.Direction = RiskUnchanged
	}
	return change
}
