package model

import (
	"encoding/hex"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// AuditorKind identifies the auditor that produced a finding.
type AuditorKind string

const (
	// AuditorFormat checks fragment shape and page structure.
	AuditorFormat AuditorKind = "format"
	// AuditorColor checks colors against the brand palette.
	AuditorColor AuditorKind = "color"
	// AuditorCompliance checks that disclaimer templates are present.
	AuditorCompliance AuditorKind = "compliance"
	// AuditorEntity checks that entity names are spelled canonically.
	AuditorEntity AuditorKind = "entity"
	// AuditorSemantic checks numeric and semantic agreement between sections.
	AuditorSemantic AuditorKind = "semantic"
)

// AuditorKinds lists every auditor in report order.
var AuditorKinds = []AuditorKind{
	AuditorFormat,
	AuditorColor,
	AuditorCompliance,
	AuditorEntity,
	AuditorSemantic,
}

// Rank returns the position of the auditor in AuditorKinds.
// Unknown auditors sort after the known ones.
func (k AuditorKind) Rank() int {
	for i, known := range AuditorKinds {
		if known == k {
			return i
		}
	}
	return len(AuditorKinds)
}

// Location points at the place in the document a finding refers to.
// Page 0 means the finding applies to the whole document.
type Location struct {
	Page int   `json:"page_number"`
	BBox *BBox `json:"bbox,omitempty"`
}

// DocumentLevel reports whether the location refers to the whole document.
func (l Location) DocumentLevel() bool {
	return l.Page == 0
}

// String returns "document", "page N" or "page N @ x0,y0,x1,y1".
func (l Location) String() string {
	if l.DocumentLevel() {
		return "document"
	}
	s := "page " + strconv.Itoa(l.Page)
	if l.BBox != nil {
		s += " @ " + l.BBox.String()
	}
	return s
}

// Finding is a single defect reported by an auditor.
type Finding struct {
	// ID is derived from the auditor, code, location and message, so the
	// same defect always gets the same ID across runs.
	ID string `json:"id"`

	// Auditor is the auditor that raised the finding.
	Auditor AuditorKind `json:"auditor"`

	// Code is the finding type, e.g. "off_palette_color".
	Code string `json:"code"`

	// Severity is how urgently the finding needs attention.
	Severity Severity `json:"severity"`

	// Location is where the finding applies.
	Location Location `json:"location"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Evidence holds the values that justify the finding.
	Evidence map[string]any `json:"evidence,omitempty"`
}

// NewFinding creates a finding and computes its ID.
func NewFinding(auditor AuditorKind, code string, severity Severity, loc Location, message string, evidence map[string]any) Finding {
	return Finding{
		ID:       FindingID(auditor, code, loc, message),
		Auditor:  auditor,
		Code:     code,
		Severity: severity,
		Location: loc,
		Message:  message,
		Evidence: evidence,
	}
}

// FindingID returns the first 16 hex characters of the BLAKE2b-256 digest of
// the finding's identifying fields.
func FindingID(auditor AuditorKind, code string, loc Location, message string) string {
	var b strings.Builder
	b.WriteString(string(auditor))
	b.WriteByte('|')
	b.WriteString(code)
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(loc.Page))
	b.WriteByte('|')
	if loc.BBox != nil {
		b.WriteString(loc.BBox.String())
	}
	b.WriteByte('|')
	b.WriteString(message)

	sum := blake2b.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:8])
}

// Title returns the display title for the finding's code.
func (f Finding) Title() string {
	return GetFindingInfo(f.Code).Title
}

// Recommendation returns remediation advice for the finding's code.
func (f Finding) Recommendation() string {
	return GetFindingInfo(f.Code).Recommendation
}
