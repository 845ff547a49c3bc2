package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "docaudit"

	// DefaultBatchSize is the number of documents audited concurrently.
	DefaultBatchSize = 4

	// DefaultEmbedURL is the base URL of a local Ollama server.
	DefaultEmbedURL = "http://localhost:11434"

	// DefaultEmbedModel is the Ollama model used for section embeddings.
	DefaultEmbedModel = "nomic-embed-text"

	// DefaultEmbedTimeout bounds a single embedding request.
	DefaultEmbedTimeout = 10 * time.Second

	// DefaultRetryBackoff is the wait before the single retry of a failed
	// embedding request.
	DefaultRetryBackoff = 500 * time.Millisecond

	// DefaultHashDimensions is the vector size of the offline hashing embedder.
	DefaultHashDimensions = 512

	// DefaultWatchDebounce collapses bursts of file events into one audit.
	DefaultWatchDebounce = 300 * time.Millisecond
)

// Embedding provider names accepted by Config.EmbedProvider.
const (
	// EmbedProviderHash embeds text locally with feature hashing.
	EmbedProviderHash = "hash"
	// EmbedProviderOllama embeds text through an Ollama server.
	EmbedProviderOllama = "ollama"
	// EmbedProviderNone disables semantic pair checks.
	EmbedProviderNone = "none"
)

// Config holds all options for one CLI run.
// It is populated from CLI flags and passed down explicitly.
type Config struct {
	// Inputs are the fragment files to audit.
	Inputs []string

	// ReferenceFilePath is the path to the reference configuration file.
	// If empty, .docaudit.yaml is searched for in the current directory,
	// the home directory and the XDG config directory.
	ReferenceFilePath string

	// DocumentType selects the document_types entry of the reference file.
	// Empty means the defaults section only.
	DocumentType string

	// Verbose enables debug logging.
	Verbose bool

	// BatchSize is the number of documents audited concurrently.
	BatchSize int

	// JSONReport enables JSON report output. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report. Empty means stdout.
	ReportFile string

	// NoColor disables ANSI colors in the text report.
	NoColor bool

	// EmbedProvider selects the embedding backend: "hash", "ollama" or "none".
	EmbedProvider string

	// EmbedURL is the Ollama base URL.
	EmbedURL string

	// EmbedModel is the Ollama embedding model.
	EmbedModel string

	// EmbedTimeout bounds each embedding request.
	EmbedTimeout time.Duration

	// RetryBackoff is the wait before retrying a failed embedding request.
	RetryBackoff time.Duration

	// DBDir is the directory of the audit history database.
	// Defaults to the XDG data directory (~/.local/share/docaudit on Linux).
	DBDir string

	// SaveToDB indicates whether audit results are stored for later comparison.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		BatchSize:     DefaultBatchSize,
		EmbedProvider: EmbedProviderHash,
		EmbedURL:      DefaultEmbedURL,
		EmbedModel:    DefaultEmbedModel,
		EmbedTimeout:  DefaultEmbedTimeout,
		RetryBackoff:  DefaultRetryBackoff,
		DBDir:         XDGDataDir(),
		SaveToDB:      true,
	}
}

// XDGDataDir returns the XDG data directory for docaudit.
// On Linux: ~/.local/share/docaudit
// On macOS: ~/Library/Application Support/docaudit
// On Windows: %LOCALAPPDATA%\docaudit
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for docaudit.
// On Linux: ~/.config/docaudit
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found.
func (c *Config) Validate() error {
	if len(c.Inputs) == 0 {
		return ErrNoInput
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.EmbedTimeout <= 0 {
		return ErrInvalidEmbedTimeout
	}
	if c.RetryBackoff < 0 {
		return ErrInvalidRetryBackoff
	}
	switch c.EmbedProvider {
	case EmbedProviderHash, EmbedProviderOllama, EmbedProviderNone:
	default:
		return ErrUnknownEmbedProvider
	}
	return nil
}
