package model

import "errors"

var (
	// ErrMalformedFragment is returned when a fragment has an invalid shape,
	// such as a non-positive page number or an inverted bounding box.
	ErrMalformedFragment = errors.New("malformed fragment")

	// ErrUnknownSeverity is returned when a severity name or value is not recognized.
	ErrUnknownSeverity = errors.New("unknown severity")

	// ErrInvalidColor is returned when an RGB triple cannot be decoded.
	ErrInvalidColor = errors.New("invalid color")
)
