package audit

import "errors"

var (
	// ErrProvider is returned when the embedding provider fails.
	ErrProvider = errors.New("embedding provider error")

	// ErrProviderTimeout is returned when the embedding provider does not
	// answer within the configured timeout.
	ErrProviderTimeout = errors.New("embedding provider timeout")

	// ErrNoEmbedder is returned when a semantic check runs without a provider.
	ErrNoEmbedder = errors.New("no embedding provider configured")

	// ErrDimensionMismatch is returned when two vectors have different lengths.
	ErrDimensionMismatch = errors.New("vector dimensions differ")

	// ErrZeroVector is returned when a vector is empty or has zero magnitude.
	ErrZeroVector = errors.New("zero vector")
)
