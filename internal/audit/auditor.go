package audit

import (
	"context"
	"slices"
	"strings"

	"github.com/nao1215/docaudit/internal/model"
)

// Auditor defines the interface for individual checks.
type Auditor interface {
	// Name returns the auditor's kind for logging and reporting.
	Name() model.AuditorKind

	// Audit runs the check and returns its findings.
	Audit(ctx context.Context, data *AuditData) ([]model.Finding, error)
}

// RejectedFragment is an input fragment excluded from the audit.
type RejectedFragment struct {
	// Index is the position of the fragment in the input.
	Index int
	// Fragment is the rejected fragment.
	Fragment model.PageFragment
	// Err explains why the fragment was rejected.
	Err error
}

// AuditData is the read-only input shared by all auditors.
type AuditData struct {
	// Fragments are the valid fragments in input order.
	Fragments []model.PageFragment

	// Rejected are the malformed fragments.
	Rejected []RejectedFragment

	// Pages are the distinct page numbers of the valid fragments, ascending.
	Pages []int
}

// NewAuditData splits fragments into valid and rejected ones.
func NewAuditData(fragments []model.PageFragment) *AuditData {
	data := &AuditData{
		Fragments: make([]model.PageFragment, 0, len(fragments)),
	}
	for i, f := range fragments {
		if err := f.Validate(); err != nil {
			data.Rejected = append(data.Rejected, RejectedFragment{Index: i, Fragment: f, Err: err})
			continue
		}
		data.Fragments = append(data.Fragments, f)
		data.Pages = append(data.Pages, f.PageNumber)
	}
	slices.Sort(data.Pages)
	data.Pages = slices.Compact(data.Pages)
	return data
}

// HasPage reports whether page holds at least one valid fragment.
func (d *AuditData) HasPage(page int) bool {
	_, found := slices.BinarySearch(d.Pages, page)
	return found
}

// PageTexts returns the text of each page, fragments joined in input order
// with whitespace collapsed, aligned with d.Pages.
func (d *AuditData) PageTexts() []string {
	byPage := make(map[int][]string, len(d.Pages))
	for _, f := range d.Fragments {
		if f.Text != "" {
			byPage[f.PageNumber] = append(byPage[f.PageNumber], f.Text)
		}
	}
	texts := make([]string, len(d.Pages))
	for i, p := range d.Pages {
		texts[i] = collapseSpace(byPage[p])
	}
	return texts
}

// collapseSpace joins parts with single spaces, collapsing runs of whitespace.
func collapseSpace(parts []string) string {
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}
