package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default reference file name.
const DefaultConfigFile = ".docaudit.yaml"

// configFileNames are the names searched for by FindConfigFile, in order.
var configFileNames = []string{DefaultConfigFile, ".docaudit.yml", ".docaudit.toml"}

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File represents the structure of a reference configuration file.
type File struct {
	// Defaults is the reference configuration applied to every document.
	Defaults ReferenceConfig `yaml:"defaults,omitempty" toml:"defaults,omitempty"`

	// DocumentTypes maps a document type (e.g. "annual-report") to overrides
	// of the defaults.
	DocumentTypes map[string]ReferenceConfig `yaml:"document_types,omitempty" toml:"document_types,omitempty"`
}

// LoadConfigFile loads a reference file. Files ending in .toml are decoded
// as TOML, everything else as YAML.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, &cf); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case ".yaml", ".yml", "":
		if err := yaml.Unmarshal(data, &cf); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}

	if cf.DocumentTypes == nil {
		cf.DocumentTypes = make(map[string]ReferenceConfig)
	}
	return &cf, nil
}

// GetReferenceConfig returns the reference configuration for a document type.
// Fields set in the document type replace the defaults; match thresholds are
// merged key by key. An empty docType returns the defaults.
func (cf *File) GetReferenceConfig(docType string) (*ReferenceConfig, error) {
	result := cf.Defaults
	result.MatchThresholds = maps.Clone(cf.Defaults.MatchThresholds)

	if docType == "" {
		return &result, nil
	}

	override, ok := cf.DocumentTypes[docType]
	if !ok {
		return nil, newConfigError("document_types", fmt.Errorf("%w: %q", ErrUnknownDocumentType, docType))
	}

	if len(override.Palette) > 0 {
		result.Palette = override.Palette
	}
	if override.ColorMetric != "" {
		result.ColorMetric = override.ColorMetric
	}
	if len(override.DisclaimerTemplates) > 0 {
		result.DisclaimerTemplates = override.DisclaimerTemplates
	}
	if len(override.CanonicalEntities) > 0 {
		result.CanonicalEntities = override.CanonicalEntities
	}
	if len(override.IgnoredEntities) > 0 {
		result.IgnoredEntities = override.IgnoredEntities
	}
	if len(override.MatchThresholds) > 0 {
		if result.MatchThresholds == nil {
			result.MatchThresholds = make(map[string]float64, len(override.MatchThresholds))
		}
		maps.Copy(result.MatchThresholds, override.MatchThresholds)
	}
	if len(override.SemanticPairs) > 0 {
		result.SemanticPairs = override.SemanticPairs
	}
	if len(override.NumericPairs) > 0 {
		result.NumericPairs = override.NumericPairs
	}
	if len(override.NumericConcepts) > 0 {
		result.NumericConcepts = override.NumericConcepts
	}
	if override.NumberLocale != "" {
		result.NumberLocale = override.NumberLocale
	}

	return &result, nil
}

// DocumentTypeNames returns the sorted document types defined in the file.
func (cf *File) DocumentTypeNames() []string {
	return slices.Sorted(maps.Keys(cf.DocumentTypes))
}

// FindConfigFile searches for the reference file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .docaudit.{yaml,yml,toml} in the current directory
// 3. Look for them in the user's home directory
// 4. Look for them in the XDG config directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	var dirs []string
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, home)
	}
	dirs = append(dirs, XDGConfigDir())

	for _, dir := range dirs {
		for _, name := range configFileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}
