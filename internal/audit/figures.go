package audit

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/nao1215/docaudit/internal/config"
	"github.com/nao1215/docaudit/internal/model"
	"github.com/nao1215/docaudit/internal/numeric"
)

// unlabeledSection is how fragments without a section label are shown.
const unlabeledSection = "(unlabeled)"

// stopConcepts are labels that name a position in the document rather
// than a quantity, so their figures legitimately differ between sections.
var stopConcepts = map[string]bool{
	"page": true, "pages": true, "p": true, "figure": true, "fig": true,
	"table": true, "chart": true, "section": true, "chapter": true,
	"note": true, "notes": true, "footnote": true, "appendix": true,
	"exhibit": true, "item": true, "see": true, "no": true, "step": true,
}

// figure is one labelled number found in a fragment.
type figure struct {
	number  numeric.Number
	section string
	loc     model.Location
}

// figureCheck compares figures with the same label across sections.
type figureCheck struct {
	pairs     []config.SectionPair
	concepts  map[string]bool
	tolerance float64
	locale    numeric.Locale
}

func newFigureCheck(rc *config.ReferenceConfig) *figureCheck {
	c := &figureCheck{
		pairs:     rc.NumericPairs,
		tolerance: rc.Threshold(config.ThresholdNumeric),
		locale:    numeric.Locale(rc.Locale()),
	}
	if len(rc.NumericConcepts) > 0 {
		c.concepts = make(map[string]bool, len(rc.NumericConcepts))
		for _, concept := range rc.NumericConcepts {
			c.concepts[concept] = true
		}
	}
	return c
}

// comparable reports whether figures from sections a and b should agree.
func (c *figureCheck) comparable(a, b string) bool {
	if a == b {
		return false
	}
	if len(c.pairs) == 0 {
		return true
	}
	for _, p := range c.pairs {
		if p.Matches(a, b) {
			return true
		}
	}
	return false
}

// wanted reports whether figures with this label are compared. Labels
// ending in a stop word, such as "see page", are never compared.
func (c *figureCheck) wanted(concept string) bool {
	if concept == "" {
		return false
	}
	if last := concept[strings.LastIndexByte(concept, ' ')+1:]; stopConcepts[last] {
		return false
	}
	return c.concepts == nil || c.concepts[concept]
}

// collect groups figures by label, keeping the first occurrence of each
// (section, value) combination.
func (c *figureCheck) collect(fragments []model.PageFragment) (map[string][]figure, []string) {
	type occurrence struct {
		concept string
		section string
		value   float64
		percent bool
	}
	seen := make(map[occurrence]bool)
	groups := make(map[string][]figure)
	var order []string

	for _, f := range fragments {
		for _, n := range numeric.ExtractNumbers(f.Text, c.locale) {
			if !c.wanted(n.Concept) {
				continue
			}
			key := n.Concept
			if n.Percent {
				key += " (%)"
			}
			occ := occurrence{concept: key, section: f.SectionLabel, value: n.Value, percent: n.Percent}
			if seen[occ] {
				continue
			}
			seen[occ] = true

			if _, ok := groups[key]; !ok {
				order = append(order, key)
			}
			groups[key] = append(groups[key], figure{number: n, section: f.SectionLabel, loc: f.Location()})
		}
	}
	return groups, order
}

// run returns one critical finding per disagreeing pair of figures.
func (c *figureCheck) run(fragments []model.PageFragment) []model.Finding {
	groups, order := c.collect(fragments)

	var findings []model.Finding
	for _, concept := range order {
		figs := groups[concept]
		for i := range figs {
			for j := i + 1; j < len(figs); j++ {
				a, b := figs[i], figs[j]
				if !c.comparable(a.section, b.section) {
					continue
				}
				if withinTolerance(a.number.Value, b.number.Value, c.tolerance) {
					continue
				}
				findings = append(findings, c.mismatch(concept, a, b))
			}
		}
	}
	return findings
}

func (c *figureCheck) mismatch(concept string, a, b figure) model.Finding {
	if b.loc.Page < a.loc.Page {
		a, b = b, a
	}
	pages := []int{a.loc.Page, b.loc.Page}
	slices.Sort(pages)
	pages = slices.Compact(pages)

	return model.NewFinding(
		model.AuditorSemantic,
		model.CodeNumericMismatch,
		model.SeverityCritical,
		a.loc,
		fmt.Sprintf("%q is %s in %s (page %d) but %s in %s (page %d)",
			concept,
			a.number.Raw, sectionName(a.section), a.loc.Page,
			b.number.Raw, sectionName(b.section), b.loc.Page),
		map[string]any{
			"concept":             concept,
			"value_a":             a.number.Value,
			"value_b":             b.number.Value,
			"raw_a":               a.number.Raw,
			"raw_b":               b.number.Raw,
			"section_a":           sectionName(a.section),
			"section_b":           sectionName(b.section),
			"page_a":              a.loc.Page,
			"page_b":              b.loc.Page,
			"pages":               pages,
			"relative_difference": roundTo(relativeDifference(a.number.Value, b.number.Value), 6),
			"tolerance":           c.tolerance,
		},
	)
}

// withinTolerance reports whether a and b differ by at most tolerance
// relative to the larger magnitude.
func withinTolerance(a, b, tolerance float64) bool {
	return relativeDifference(a, b) <= tolerance
}

func relativeDifference(a, b float64) float64 {
	scale := math.Max(math.Abs(a), math.Abs(b))
	if scale == 0 {
		return 0
	}
	return math.Abs(a-b) / scale
}

func sectionName(label string) string {
	if label == "" {
		return unlabeledSection
	}
	return label
}
