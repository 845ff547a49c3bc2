package model

import (
	"fmt"
	"strings"
)

// Severity represents how urgently a finding needs attention.
//
// Severities are ordered: SeverityInfo < SeverityWarning < SeverityCritical.
// The numeric order is used when sorting findings, the text form is used
// in JSON output and in the audit history database.
type Severity int

const (
	// SeverityInfo marks findings that need no action but are worth knowing,
	// such as unrecognized entity names or skipped semantic checks.
	SeverityInfo Severity = iota

	// SeverityWarning marks likely defects that a reviewer should confirm,
	// such as off-palette colors or spelling variants of company names.
	SeverityWarning

	// SeverityCritical marks defects that must be fixed before publication,
	// such as a missing required disclaimer or contradictory figures.
	SeverityCritical
)

// Severities lists every severity from lowest to highest.
var Severities = []Severity{SeverityInfo, SeverityWarning, SeverityCritical}

// String returns a human-readable representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the severity as its lower-case name.
// Implementing encoding.TextMarshaler also makes Severity usable as a JSON map key.
func (s Severity) MarshalText() ([]byte, error) {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return []byte(strings.ToLower(s.String())), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownSeverity, int(s))
	}
}

// UnmarshalText decodes a severity name. Matching is case-insensitive.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSeverity converts a severity name to a Severity.
func ParseSeverity(name string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "info":
		return SeverityInfo, nil
	case "warning", "warn":
		return SeverityWarning, nil
	case "critical":
		return SeverityCritical, nil
	default:
		return SeverityInfo, fmt.Errorf("%w: %q", ErrUnknownSeverity, name)
	}
}

// FindingInfo contains presentation metadata about a finding code.
// Severity is decided by the auditor that raises the finding; this table
// only supplies the title and remediation advice used by report writers.
type FindingInfo struct {
	Title          string
	Recommendation string
}

// Finding codes raised by the auditors.
const (
	CodeAuditorFailed        = "auditor_failed"
	CodeMalformedFragment    = "malformed_fragment"
	CodeEmptyPage            = "empty_page"
	CodePageGap              = "page_gap"
	CodeOffPaletteColor      = "off_palette_color"
	CodeMissingDisclaimer    = "missing_disclaimer"
	CodeMissingOptional      = "missing_optional_disclaimer"
	CodeEntityVariant        = "entity_spelling_variant"
	CodeUnrecognizedEntity   = "unrecognized_entity"
	CodeNumericMismatch      = "numeric_mismatch"
	CodeSemanticDivergence   = "semantic_divergence"
	CodeSemanticCheckSkipped = "semantic_check_skipped"
)

var findingInfoMapping = map[string]FindingInfo{
	CodeAuditorFailed: {
		Title:          "Auditor failed",
		Recommendation: "Inspect the logs for the failing auditor and re-run the audit. Results from this auditor are missing.",
	},
	CodeMalformedFragment: {
		Title:          "Malformed fragment",
		Recommendation: "Check the extraction step that produced this fragment; it was excluded from the audit.",
	},
	CodeEmptyPage: {
		Title:          "Empty page",
		Recommendation: "Confirm the page is intentionally blank or that text extraction succeeded.",
	},
	CodePageGap: {
		Title:          "Missing pages",
		Recommendation: "Verify that every page of the document was extracted.",
	},
	CodeOffPaletteColor: {
		Title:          "Off-palette color",
		Recommendation: "Replace the color with the nearest approved brand color.",
	},
	CodeMissingDisclaimer: {
		Title:          "Required disclaimer missing",
		Recommendation: "Insert the approved disclaimer text before publishing the document.",
	},
	CodeMissingOptional: {
		Title:          "Optional disclaimer not found",
		Recommendation: "Consider whether the optional disclaimer applies to this document.",
	},
	CodeEntityVariant: {
		Title:          "Inconsistent entity name",
		Recommendation: "Use the canonical spelling of the entity name throughout the document.",
	},
	CodeUnrecognizedEntity: {
		Title:          "Unrecognized entity",
		Recommendation: "Add the name to the canonical entity list or to the ignore list if it is legitimate.",
	},
	CodeNumericMismatch: {
		Title:          "Numeric mismatch between sections",
		Recommendation: "Reconcile the figures so every section states the same value.",
	},
	CodeSemanticDivergence: {
		Title:          "Sections diverge in meaning",
		Recommendation: "Review both sections and align their statements.",
	},
	CodeSemanticCheckSkipped: {
		Title:          "Semantic check skipped",
		Recommendation: "Check the embedding provider and re-run the audit to complete the semantic check.",
	},
}

// GetFindingInfo returns the presentation metadata for a finding code.
// Unknown codes get a generic title derived from the code.
func GetFindingInfo(code string) FindingInfo {
	if info, ok := findingInfoMapping[code]; ok {
		return info
	}
	return FindingInfo{
		Title:          strings.ReplaceAll(code, "_", " "),
		Recommendation: "Review the finding manually.",
	}
}
