package config

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/nao1215/docaudit/internal/model"
)

// Threshold names used as keys of ReferenceConfig.MatchThresholds.
const (
	// ThresholdColor is the default color tolerance for palette entries
	// without their own tolerance, in distance units of the color metric.
	ThresholdColor = "color"
	// ThresholdCompliance is the minimum similarity for a disclaimer to count as present.
	ThresholdCompliance = "compliance"
	// ThresholdEntity is the minimum similarity for a name to match a canonical entity.
	ThresholdEntity = "entity"
	// ThresholdSemantic is the cosine similarity floor for paired sections.
	ThresholdSemantic = "semantic"
	// ThresholdNumeric is the relative tolerance for paired figures.
	ThresholdNumeric = "numeric"
)

// Default thresholds applied when MatchThresholds omits a key.
const (
	DefaultColorTolerance      = 10.0
	DefaultComplianceThreshold = 0.85
	DefaultEntityThreshold     = 0.85
	DefaultSemanticFloor       = 0.75
	DefaultNumericTolerance    = 0.005
)

// Color distance metrics.
const (
	// ColorMetricRGB is the Euclidean distance over 0-255 RGB channels.
	ColorMetricRGB = "rgb"
	// ColorMetricCIE76 is the CIE76 delta E in CIELAB space.
	ColorMetricCIE76 = "cie76"
	// ColorMetricCIEDE2000 is the CIEDE2000 delta E.
	ColorMetricCIEDE2000 = "ciede2000"
)

// Number locale hints for ambiguous separators such as "1.234".
const (
	// LocaleEN treats '.' as the decimal mark and ',' as grouping.
	LocaleEN = "en"
	// LocaleEU treats ',' as the decimal mark and '.' as grouping.
	LocaleEU = "eu"
)

var defaultThresholds = map[string]float64{
	ThresholdColor:      DefaultColorTolerance,
	ThresholdCompliance: DefaultComplianceThreshold,
	ThresholdEntity:     DefaultEntityThreshold,
	ThresholdSemantic:   DefaultSemanticFloor,
	ThresholdNumeric:    DefaultNumericTolerance,
}

// PaletteColor is one approved brand color.
type PaletteColor struct {
	// Name is an optional display name, e.g. "brand red".
	Name string `yaml:"name,omitempty" toml:"name,omitempty"`
	// Hex is the color in "#rrggbb" form.
	Hex string `yaml:"hex" toml:"hex"`
	// Tolerance overrides the default color tolerance for this entry when set.
	Tolerance *float64 `yaml:"tolerance,omitempty" toml:"tolerance,omitempty"`
}

// DisclaimerTemplate is an approved block of legal text.
type DisclaimerTemplate struct {
	ID       string `yaml:"id" toml:"id"`
	Text     string `yaml:"text" toml:"text"`
	Required bool   `yaml:"required" toml:"required"`
}

// CanonicalEntity is the approved spelling of a company or product name.
type CanonicalEntity struct {
	Name    string   `yaml:"name" toml:"name"`
	Aliases []string `yaml:"aliases,omitempty" toml:"aliases,omitempty"`
}

// SectionPair names two sections that must agree with each other.
type SectionPair struct {
	A string `yaml:"a" toml:"a"`
	B string `yaml:"b" toml:"b"`
}

// Matches reports whether the pair covers sections x and y in either order.
func (p SectionPair) Matches(x, y string) bool {
	return (p.A == x && p.B == y) || (p.A == y && p.B == x)
}

// ReferenceConfig is the reference data one document is audited against.
// It is read-only during an audit; each auditor reads only its own fields.
type ReferenceConfig struct {
	// Palette is the set of approved brand colors.
	Palette []PaletteColor `yaml:"palette,omitempty" toml:"palette,omitempty"`

	// ColorMetric selects the color distance: rgb, cie76 or ciede2000.
	ColorMetric string `yaml:"color_metric,omitempty" toml:"color_metric,omitempty"`

	// DisclaimerTemplates are the legal texts the document must (or may) contain.
	DisclaimerTemplates []DisclaimerTemplate `yaml:"disclaimer_templates,omitempty" toml:"disclaimer_templates,omitempty"`

	// CanonicalEntities are the approved entity names and their aliases.
	CanonicalEntities []CanonicalEntity `yaml:"canonical_entities,omitempty" toml:"canonical_entities,omitempty"`

	// IgnoredEntities are name-shaped phrases that are never reported.
	IgnoredEntities []string `yaml:"ignored_entities,omitempty" toml:"ignored_entities,omitempty"`

	// MatchThresholds maps a threshold name to its cutoff.
	MatchThresholds map[string]float64 `yaml:"match_thresholds,omitempty" toml:"match_thresholds,omitempty"`

	// SemanticPairs are the sections whose meaning must agree.
	SemanticPairs []SectionPair `yaml:"semantic_pairs,omitempty" toml:"semantic_pairs,omitempty"`

	// NumericPairs restricts the sections whose figures are compared.
	// Empty means any two different sections.
	NumericPairs []SectionPair `yaml:"numeric_pairs,omitempty" toml:"numeric_pairs,omitempty"`

	// NumericConcepts restricts the labels whose figures are compared, e.g. "total".
	// Empty means every labelled figure.
	NumericConcepts []string `yaml:"numeric_concepts,omitempty" toml:"numeric_concepts,omitempty"`

	// NumberLocale resolves ambiguous separators: en or eu.
	NumberLocale string `yaml:"number_locale,omitempty" toml:"number_locale,omitempty"`
}

// Threshold returns the cutoff for name, falling back to the built-in default.
func (rc *ReferenceConfig) Threshold(name string) float64 {
	if v, ok := rc.MatchThresholds[name]; ok {
		return v
	}
	return defaultThresholds[name]
}

// ToleranceFor returns the tolerance of a palette entry.
func (rc *ReferenceConfig) ToleranceFor(p PaletteColor) float64 {
	if p.Tolerance != nil {
		return *p.Tolerance
	}
	return rc.Threshold(ThresholdColor)
}

// Metric returns the color metric, defaulting to rgb.
func (rc *ReferenceConfig) Metric() string {
	if rc.ColorMetric == "" {
		return ColorMetricRGB
	}
	return strings.ToLower(rc.ColorMetric)
}

// Locale returns the number locale hint, defaulting to en.
func (rc *ReferenceConfig) Locale() string {
	if rc.NumberLocale == "" {
		return LocaleEN
	}
	return strings.ToLower(rc.NumberLocale)
}

// Validate checks every field and returns a *ConfigError for the first problem.
func (rc *ReferenceConfig) Validate() error {
	if rc == nil {
		return newConfigError("", ErrNoReferenceConfig)
	}

	for i, p := range rc.Palette {
		if _, err := model.ParseHexColor(p.Hex); err != nil {
			return newConfigError(fmt.Sprintf("palette[%d].hex", i), fmt.Errorf("%w: %q", ErrInvalidPaletteColor, p.Hex))
		}
		if p.Tolerance != nil && (*p.Tolerance < 0 || math.IsNaN(*p.Tolerance)) {
			return newConfigError(fmt.Sprintf("palette[%d].tolerance", i), ErrInvalidTolerance)
		}
	}

	switch rc.Metric() {
	case ColorMetricRGB, ColorMetricCIE76, ColorMetricCIEDE2000:
	default:
		return newConfigError("color_metric", fmt.Errorf("%w: %q", ErrInvalidColorMetric, rc.ColorMetric))
	}

	ids := make(map[string]bool, len(rc.DisclaimerTemplates))
	for i, tmpl := range rc.DisclaimerTemplates {
		field := fmt.Sprintf("disclaimer_templates[%d]", i)
		if strings.TrimSpace(tmpl.ID) == "" {
			return newConfigError(field+".id", ErrInvalidTemplate)
		}
		if strings.TrimSpace(tmpl.Text) == "" {
			return newConfigError(field+".text", ErrInvalidTemplate)
		}
		if ids[tmpl.ID] {
			return newConfigError(field+".id", fmt.Errorf("%w: duplicate id %q", ErrInvalidTemplate, tmpl.ID))
		}
		ids[tmpl.ID] = true
	}

	for i, e := range rc.CanonicalEntities {
		if strings.TrimSpace(e.Name) == "" {
			return newConfigError(fmt.Sprintf("canonical_entities[%d].name", i), ErrInvalidEntity)
		}
	}

	if err := rc.validateThresholds(); err != nil {
		return err
	}

	for i, p := range rc.SemanticPairs {
		if strings.TrimSpace(p.A) == "" || strings.TrimSpace(p.B) == "" {
			return newConfigError(fmt.Sprintf("semantic_pairs[%d]", i), ErrInvalidSectionPair)
		}
	}
	for i, p := range rc.NumericPairs {
		if p.A == p.B {
			return newConfigError(fmt.Sprintf("numeric_pairs[%d]", i), fmt.Errorf("%w: a section cannot pair with itself", ErrInvalidSectionPair))
		}
	}

	switch rc.Locale() {
	case LocaleEN, LocaleEU:
	default:
		return newConfigError("number_locale", fmt.Errorf("%w: %q", ErrInvalidNumberLocale, rc.NumberLocale))
	}

	return nil
}

func (rc *ReferenceConfig) validateThresholds() error {
	for _, name := range slices.Sorted(maps.Keys(rc.MatchThresholds)) {
		v := rc.MatchThresholds[name]
		field := "match_thresholds." + name
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return newConfigError(field, ErrInvalidThreshold)
		}
		switch name {
		case ThresholdCompliance, ThresholdEntity:
			if v < 0 || v > 1 {
				return newConfigError(field, fmt.Errorf("%w: %v is outside [0, 1]", ErrInvalidThreshold, v))
			}
		case ThresholdSemantic:
			if v < -1 || v > 1 {
				return newConfigError(field, fmt.Errorf("%w: %v is outside [-1, 1]", ErrInvalidThreshold, v))
			}
		case ThresholdColor, ThresholdNumeric:
			if v < 0 {
				return newConfigError(field, fmt.Errorf("%w: %v is negative", ErrInvalidThreshold, v))
			}
		default:
			return newConfigError(field, ErrUnknownThreshold)
		}
	}
	return nil
}
