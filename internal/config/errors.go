package config

import (
	"errors"
	"fmt"
)

// Configuration validation errors.
// These errors are returned by Config.Validate() and ReferenceConfig.Validate()
// and can be checked with errors.Is().
var (
	// ErrNoInput is returned when no fragment file is given on the command line.
	ErrNoInput = errors.New("no input specified: provide at least one fragment file")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidEmbedTimeout is returned when the embedding call timeout is not positive.
	ErrInvalidEmbedTimeout = errors.New("invalid embedding timeout: must be positive")

	// ErrInvalidRetryBackoff is returned when the embedding retry backoff is negative.
	ErrInvalidRetryBackoff = errors.New("invalid retry backoff: must be non-negative")

	// ErrUnknownEmbedProvider is returned when the embedding provider is neither
	// "hash" nor "ollama".
	ErrUnknownEmbedProvider = errors.New("unknown embedding provider: use hash, ollama or none")

	// ErrNoReferenceConfig is returned when an audit is started without reference data.
	ErrNoReferenceConfig = errors.New("no reference configuration")

	// ErrInvalidPaletteColor is returned when a palette entry is not a hex color.
	ErrInvalidPaletteColor = errors.New("invalid palette color")

	// ErrInvalidTolerance is returned when a color tolerance is negative.
	ErrInvalidTolerance = errors.New("invalid tolerance: must be non-negative")

	// ErrInvalidColorMetric is returned for an unknown color distance metric.
	ErrInvalidColorMetric = errors.New("invalid color metric")

	// ErrInvalidTemplate is returned when a disclaimer template has no ID or text,
	// or when two templates share an ID.
	ErrInvalidTemplate = errors.New("invalid disclaimer template")

	// ErrInvalidEntity is returned when a canonical entity has an empty name.
	ErrInvalidEntity = errors.New("invalid canonical entity")

	// ErrInvalidThreshold is returned when a match threshold is out of range.
	ErrInvalidThreshold = errors.New("invalid match threshold")

	// ErrUnknownThreshold is returned when match_thresholds names an unknown auditor.
	ErrUnknownThreshold = errors.New("unknown match threshold")

	// ErrInvalidSectionPair is returned when a section pair has an empty side.
	ErrInvalidSectionPair = errors.New("invalid section pair")

	// ErrInvalidNumberLocale is returned for an unknown number locale hint.
	ErrInvalidNumberLocale = errors.New("invalid number locale")

	// ErrUnknownDocumentType is returned when the requested document type is
	// not defined in the reference file.
	ErrUnknownDocumentType = errors.New("unknown document type")

	// ErrUnsupportedFormat is returned when a reference file is neither YAML nor TOML.
	ErrUnsupportedFormat = errors.New("unsupported configuration format")
)

// ConfigError reports an invalid or missing reference configuration field.
// It is the only error that aborts an audit.
type ConfigError struct {
	// Field is the path of the offending field, e.g. "palette[2].hex".
	Field string
	// Err is the underlying sentinel error.
	Err error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "config: " + e.Err.Error()
	}
	return fmt.Sprintf("config: %s: %v", e.Field, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

func newConfigError(field string, err error) *ConfigError {
	return &ConfigError{Field: field, Err: err}
}
