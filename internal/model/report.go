package model

import (
	"slices"
	"sort"
	"time"
)

// AuditReport is the result of auditing one document.
//
// Findings are deduplicated by ID and ordered by page, then severity
// (highest first), then auditor, then ID. Document-level findings
// (page 0) come first. The report holds no timestamps so the same input
// always serializes to the same bytes.
type AuditReport struct {
	// Findings is the ordered list of findings.
	Findings []Finding `json:"findings"`

	// SummaryCounts holds the number of findings per severity.
	// Every severity has an entry, even when its count is zero.
	SummaryCounts map[Severity]int `json:"summary_counts"`

	// PagesAudited lists the distinct valid page numbers in the input.
	PagesAudited []int `json:"pages_audited"`
}

// NewAuditReport builds a report from raw auditor output.
// The first finding seen for a given ID wins.
func NewAuditReport(findings []Finding, pages []int) *AuditReport {
	seen := make(map[string]bool, len(findings))
	deduped := make([]Finding, 0, len(findings))
	for _, f := range findings {
		if seen[f.ID] {
			continue
		}
		seen[f.ID] = true
		deduped = append(deduped, f)
	}
	SortFindings(deduped)

	sortedPages := slices.Clone(pages)
	slices.Sort(sortedPages)
	sortedPages = slices.Compact(sortedPages)
	if sortedPages == nil {
		sortedPages = []int{}
	}

	r := &AuditReport{
		Findings:     deduped,
		PagesAudited: sortedPages,
	}
	r.countBySeverity()
	return r
}

// SortFindings orders findings by (page, severity desc, auditor, id).
func SortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Location.Page != b.Location.Page {
			return a.Location.Page < b.Location.Page
		}
		if a.Severity != b.Severity {
			return a.Severity > b.Severity
		}
		if a.Auditor != b.Auditor {
			return a.Auditor.Rank() < b.Auditor.Rank()
		}
		return a.ID < b.ID
	})
}

func (r *AuditReport) countBySeverity() {
	r.SummaryCounts = make(map[Severity]int, len(Severities))
	for _, s := range Severities {
		r.SummaryCounts[s] = 0
	}
	for _, f := range r.Findings {
		r.SummaryCounts[f.Severity]++
	}
}

// Count returns the number of findings with the given severity.
func (r *AuditReport) Count(s Severity) int {
	return r.SummaryCounts[s]
}

// TotalFindings returns the total number of findings.
func (r *AuditReport) TotalFindings() int {
	return len(r.Findings)
}

// HasFindings returns true if the report contains any findings.
func (r *AuditReport) HasFindings() bool {
	return len(r.Findings) > 0
}

// HasCritical returns true if the report contains a critical finding.
func (r *AuditReport) HasCritical() bool {
	return r.Count(SeverityCritical) > 0
}

// GetFindingsBySeverity returns findings filtered by severity.
func (r *AuditReport) GetFindingsBySeverity(severity Severity) []Finding {
	var result []Finding
	for _, f := range r.Findings {
		if f.Severity == severity {
			result = append(result, f)
		}
	}
	return result
}

// GetFindingsByAuditor returns findings raised by the given auditor.
func (r *AuditReport) GetFindingsByAuditor(auditor AuditorKind) []Finding {
	var result []Finding
	for _, f := range r.Findings {
		if f.Auditor == auditor {
			result = append(result, f)
		}
	}
	return result
}

// DocumentAudit records one audit run of one document.
// It is what the CLI prints and what the history database stores.
type DocumentAudit struct {
	// RunID uniquely identifies the run.
	RunID string `json:"run_id"`

	// Document is the document name, usually the fragment file name.
	Document string `json:"document"`

	// DocumentType selects the reference configuration used for the run.
	DocumentType string `json:"document_type,omitempty"`

	// Source is the path of the fragment file.
	Source string `json:"source,omitempty"`

	// DateAudited is when the audit was performed.
	DateAudited time.Time `json:"date_audited"`

	// Report is the audit result. It is nil when the run failed.
	Report *AuditReport `json:"report,omitempty"`

	// Error contains the error message if the run failed.
	Error string `json:"error,omitempty"`

	// Cancelled is true when the run was interrupted before completing.
	Cancelled bool `json:"cancelled,omitempty"`

	// Steps lists the pipeline steps that were executed.
	Steps []string `json:"steps,omitempty"`

	// Fragments holds the decoded input while the run is in progress.
	Fragments []PageFragment `json:"-"`
}

// NewDocumentAudit creates a record for a run that has not started yet.
func NewDocumentAudit(runID, document, documentType string) *DocumentAudit {
	return &DocumentAudit{
		RunID:        runID,
		Document:     document,
		DocumentType: documentType,
		DateAudited:  time.Now(),
	}
}

// Failed returns true if the run ended with an error.
func (d *DocumentAudit) Failed() bool {
	return d.Error != ""
}
