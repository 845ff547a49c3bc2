package audit

import (
	"context"
	"fmt"
	"math"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/nao1215/docaudit/internal/config"
	"github.com/nao1215/docaudit/internal/model"
)

// PaletteEntry is an approved color with its tolerance.
type PaletteEntry struct {
	// Name is the display name; the hex code is used when empty.
	Name string
	// Color is the approved color.
	Color model.RGB
	// Tolerance is the largest distance still considered this color.
	Tolerance float64
}

// label returns the entry's display name.
func (p PaletteEntry) label() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Color.Hex()
}

// PaletteFromConfig converts the palette of a reference configuration.
// Entries that fail to parse are skipped; ReferenceConfig.Validate rejects them earlier.
func PaletteFromConfig(rc *config.ReferenceConfig) []PaletteEntry {
	entries := make([]PaletteEntry, 0, len(rc.Palette))
	for _, p := range rc.Palette {
		c, err := colorful.Hex(normalizeHex(p.Hex))
		if err != nil {
			continue
		}
		r, g, b := c.RGB255()
		entries = append(entries, PaletteEntry{
			Name:      p.Name,
			Color:     model.RGB{R: r, G: g, B: b},
			Tolerance: rc.ToleranceFor(p),
		})
	}
	return entries
}

// normalizeHex expands "#rgb" and adds the leading '#' expected by colorful.Hex.
func normalizeHex(s string) string {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	return "#" + strings.ToLower(s)
}

// ColorDistance returns the distance between two colors under metric.
// The rgb metric is Euclidean over 0-255 channels; cie76 and ciede2000 are
// delta E values on the usual 0-100 lightness scale.
func ColorDistance(a, b model.RGB, metric string) float64 {
	switch metric {
	case config.ColorMetricCIE76:
		return toColorful(a).DistanceCIE76(toColorful(b)) * 100
	case config.ColorMetricCIEDE2000:
		return toColorful(a).DistanceCIEDE2000(toColorful(b)) * 100
	default:
		return RGBDistance(a, b)
	}
}

// RGBDistance is the Euclidean distance over 0-255 channels.
func RGBDistance(a, b model.RGB) float64 {
	dr := float64(a.R) - float64(b.R)
	dg := float64(a.G) - float64(b.G)
	db := float64(a.B) - float64(b.B)
	return math.Sqrt(dr*dr + dg*dg + db*db)
}

func toColorful(c model.RGB) colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}

// IsColorInPalette reports whether the nearest palette color is within
// tolerance, using the rgb metric. A distance equal to tolerance is compliant.
func IsColorInPalette(c model.RGB, palette []model.RGB, tolerance float64) bool {
	for _, p := range palette {
		if RGBDistance(c, p) <= tolerance {
			return true
		}
	}
	return false
}

// ColorAuditor flags fragment colors that are not close to any palette color.
type ColorAuditor struct {
	palette []PaletteEntry
	metric  string
}

// NewColorAuditor creates a new ColorAuditor.
// An empty metric means rgb.
func NewColorAuditor(palette []PaletteEntry, metric string) *ColorAuditor {
	if metric == "" {
		metric = config.ColorMetricRGB
	}
	return &ColorAuditor{palette: palette, metric: metric}
}

// Name returns the auditor name.
func (a *ColorAuditor) Name() model.AuditorKind {
	return model.AuditorColor
}

// nearest returns the closest palette entry, its distance, and whether the
// color is within the tolerance of any entry.
func (a *ColorAuditor) nearest(c model.RGB) (PaletteEntry, float64, bool) {
	var (
		best      PaletteEntry
		bestDist  = math.Inf(1)
		compliant bool
	)
	for _, p := range a.palette {
		d := ColorDistance(c, p.Color, a.metric)
		if d <= p.Tolerance {
			compliant = true
		}
		if d < bestDist {
			best, bestDist = p, d
		}
	}
	return best, bestDist, compliant
}

// Audit emits one warning per fragment with at least one off-palette color.
// Fragments without colors are skipped, and an empty palette disables the check.
func (a *ColorAuditor) Audit(ctx context.Context, data *AuditData) ([]model.Finding, error) {
	findings := make([]model.Finding, 0)
	if len(a.palette) == 0 {
		return findings, nil
	}

	for _, f := range data.Fragments {
		if err := ctx.Err(); err != nil {
			return findings, err
		}
		if len(f.Colors) == 0 {
			continue
		}

		var (
			offending []map[string]any
			hexes     []string
			seen      = make(map[model.RGB]bool, len(f.Colors))
		)
		for _, c := range f.Colors {
			if seen[c] {
				continue
			}
			seen[c] = true

			entry, dist, ok := a.nearest(c)
			if ok {
				continue
			}
			hexes = append(hexes, c.Hex())
			offending = append(offending, map[string]any{
				"color":     c.Hex(),
				"nearest":   entry.label(),
				"distance":  roundTo(dist, 2),
				"tolerance": entry.Tolerance,
			})
		}
		if len(offending) == 0 {
			continue
		}

		findings = append(findings, model.NewFinding(
			model.AuditorColor,
			model.CodeOffPaletteColor,
			model.SeverityWarning,
			f.Location(),
			fmt.Sprintf("off-palette color %s", strings.Join(hexes, ", ")),
			map[string]any{
				"metric": a.metric,
				"colors": offending,
			},
		))
	}
	return findings, nil
}

// roundTo rounds v to the given number of decimals.
func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
