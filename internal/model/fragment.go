package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// BBox is the position of a fragment on its page, in PDF user-space units.
type BBox struct {
	X0 float64 `json:"x0" msgpack:"x0"`
	Y0 float64 `json:"y0" msgpack:"y0"`
	X1 float64 `json:"x1" msgpack:"x1"`
	Y1 float64 `json:"y1" msgpack:"y1"`
}

// String formats the box as "x0,y0,x1,y1".
func (b BBox) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", b.X0, b.Y0, b.X1, b.Y1)
}

// validate reports coordinates that cannot describe a region.
func (b BBox) validate() error {
	for _, v := range []float64{b.X0, b.Y0, b.X1, b.Y1} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: bbox has non-finite coordinate", ErrMalformedFragment)
		}
	}
	if b.X1 < b.X0 || b.Y1 < b.Y0 {
		return fmt.Errorf("%w: bbox %s is inverted", ErrMalformedFragment, b)
	}
	return nil
}

// RGB is a color with 8-bit channels.
// It is encoded in JSON as a three element array, e.g. [255, 0, 0].
type RGB struct {
	R uint8 `msgpack:"r"`
	G uint8 `msgpack:"g"`
	B uint8 `msgpack:"b"`
}

// Hex returns the color in "#rrggbb" form.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// MarshalJSON encodes the color as [r, g, b].
func (c RGB) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]uint8{c.R, c.G, c.B})
}

// UnmarshalJSON decodes [r, g, b] or a "#rrggbb" string.
func (c *RGB) UnmarshalJSON(data []byte) error {
	var triple []int
	if err := json.Unmarshal(data, &triple); err == nil {
		if len(triple) != 3 {
			return fmt.Errorf("%w: expected 3 channels, got %d", ErrInvalidColor, len(triple))
		}
		for _, v := range triple {
			if v < 0 || v > 255 {
				return fmt.Errorf("%w: channel %d out of range", ErrInvalidColor, v)
			}
		}
		*c = RGB{R: uint8(triple[0]), G: uint8(triple[1]), B: uint8(triple[2])} //nolint:gosec // range checked above
		return nil
	}

	var hex string
	if err := json.Unmarshal(data, &hex); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidColor, string(data))
	}
	parsed, err := ParseHexColor(hex)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseHexColor parses "#rrggbb" or "#rgb".
func ParseHexColor(s string) (RGB, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return RGB{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil //nolint:gosec // 24-bit value
}

// PageFragment is one unit of extracted document content.
//
// Fragments are produced by an external extraction step and are never
// mutated by the auditors.
type PageFragment struct {
	// PageNumber is the 1-based page this fragment was extracted from.
	PageNumber int `json:"page_number" msgpack:"page_number"`

	// Text is the extracted text. It may be empty for purely graphical fragments.
	Text string `json:"text" msgpack:"text"`

	// BBox is the fragment position, when the extractor provides one.
	BBox *BBox `json:"bbox,omitempty" msgpack:"bbox,omitempty"`

	// Colors are the fill and stroke colors sampled from the fragment.
	Colors []RGB `json:"colors,omitempty" msgpack:"colors,omitempty"`

	// SectionLabel names the logical section the fragment belongs to, if known.
	SectionLabel string `json:"section_label,omitempty" msgpack:"section_label,omitempty"`
}

// Validate checks the fragment shape.
// The returned error wraps ErrMalformedFragment.
func (f PageFragment) Validate() error {
	if f.PageNumber < 1 {
		return fmt.Errorf("%w: page number %d is not positive", ErrMalformedFragment, f.PageNumber)
	}
	if f.BBox != nil {
		if err := f.BBox.validate(); err != nil {
			return err
		}
	}
	return nil
}

// Location returns the location of the fragment for use in findings.
func (f PageFragment) Location() Location {
	return Location{Page: f.PageNumber, BBox: f.BBox}
}

// IsEmpty reports whether the fragment carries neither text nor colors.
func (f PageFragment) IsEmpty() bool {
	return strings.TrimSpace(f.Text) == "" && len(f.Colors) == 0
}
