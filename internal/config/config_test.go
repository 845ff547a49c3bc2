package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestNewConfig verifies that NewConfig returns a Config with all expected default values.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default BatchSize is 4", func(t *testing.T) {
		t.Parallel()
		if cfg.BatchSize != 4 {
			t.Errorf("expected BatchSize to be 4, got %d", cfg.BatchSize)
		}
	})

	t.Run("default embedding provider is hash", func(t *testing.T) {
		t.Parallel()
		if cfg.EmbedProvider != EmbedProviderHash {
			t.Errorf("expected EmbedProvider to be %q, got %q", EmbedProviderHash, cfg.EmbedProvider)
		}
	})

	t.Run("default EmbedTimeout is 10 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.EmbedTimeout != 10*time.Second {
			t.Errorf("expected EmbedTimeout to be 10s, got %v", cfg.EmbedTimeout)
		}
	})

	t.Run("default DBDir is the XDG data dir", func(t *testing.T) {
		t.Parallel()
		if cfg.DBDir != XDGDataDir() {
			t.Errorf("expected DBDir %q, got %q", XDGDataDir(), cfg.DBDir)
		}
		if !cfg.SaveToDB {
			t.Error("expected SaveToDB to be true")
		}
	})
}

// TestConfigValidate tests the Validate method with various configurations.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	validConfig := func() *Config {
		cfg := NewConfig()
		cfg.Inputs = []string{"report.json"}
		return cfg
	}

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{name: "valid config", modify: func(*Config) {}},
		{name: "no input", modify: func(c *Config) { c.Inputs = nil }, wantErr: ErrNoInput},
		{name: "zero batch size", modify: func(c *Config) { c.BatchSize = 0 }, wantErr: ErrInvalidBatchSize},
		{
			name:    "both report formats",
			modify:  func(c *Config) { c.JSONReport, c.MarkdownReport = true, true },
			wantErr: ErrConflictingReportFormats,
		},
		{name: "zero embed timeout", modify: func(c *Config) { c.EmbedTimeout = 0 }, wantErr: ErrInvalidEmbedTimeout},
		{name: "negative backoff", modify: func(c *Config) { c.RetryBackoff = -time.Second }, wantErr: ErrInvalidRetryBackoff},
		{name: "unknown provider", modify: func(c *Config) { c.EmbedProvider = "openai" }, wantErr: ErrUnknownEmbedProvider},
		{name: "ollama provider", modify: func(c *Config) { c.EmbedProvider = EmbedProviderOllama }},
		{name: "no provider", modify: func(c *Config) { c.EmbedProvider = EmbedProviderNone }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

// TestLoadConfigFile tests the LoadConfigFile function.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile("/nonexistent/path/.docaudit.yaml")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cfg != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".docaudit.yaml")
		content := `defaults:
  palette:
    - name: brand red
      hex: "#FF0000"
      tolerance: 5
    - hex: "#003366"
  disclaimer_templates:
    - id: forward-looking
      text: "This report contains forward-looking statements."
      required: true
  canonical_entities:
    - name: Acme Holdings Inc
      aliases: [Acme]
  match_thresholds:
    compliance: 0.9
document_types:
  annual-report:
    number_locale: eu
    match_thresholds:
      entity: 0.8
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cf, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(cf.Defaults.Palette) != 2 {
			t.Fatalf("expected 2 palette entries, got %d", len(cf.Defaults.Palette))
		}
		if tol := cf.Defaults.ToleranceFor(cf.Defaults.Palette[0]); tol != 5 {
			t.Errorf("expected tolerance 5, got %v", tol)
		}
		if tol := cf.Defaults.ToleranceFor(cf.Defaults.Palette[1]); tol != DefaultColorTolerance {
			t.Errorf("expected default tolerance, got %v", tol)
		}
		if !cf.Defaults.DisclaimerTemplates[0].Required {
			t.Error("expected template to be required")
		}
		if names := cf.DocumentTypeNames(); len(names) != 1 || names[0] != "annual-report" {
			t.Errorf("unexpected document types: %v", names)
		}
	})

	t.Run("loads valid TOML config", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".docaudit.toml")
		content := `[defaults]
color_metric = "ciede2000"
number_locale = "en"

[[defaults.palette]]
hex = "#00FF00"
tolerance = 2.5

[defaults.match_thresholds]
semantic = 0.8

[document_types.prospectus]
ignored_entities = ["Table Of Contents"]
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cf, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cf.Defaults.Metric() != ColorMetricCIEDE2000 {
			t.Errorf("expected ciede2000, got %q", cf.Defaults.Metric())
		}
		if cf.Defaults.Threshold(ThresholdSemantic) != 0.8 {
			t.Errorf("expected semantic floor 0.8, got %v", cf.Defaults.Threshold(ThresholdSemantic))
		}
		if _, ok := cf.DocumentTypes["prospectus"]; !ok {
			t.Error("expected prospectus document type")
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".docaudit.yaml")
		if err := os.WriteFile(configPath, []byte(`invalid: yaml: content: [}`), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		if _, err := LoadConfigFile(configPath); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})

	t.Run("rejects unsupported extension", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), "reference.ini")
		if err := os.WriteFile(configPath, []byte("x=1"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		if _, err := LoadConfigFile(configPath); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("expected ErrUnsupportedFormat, got %v", err)
		}
	})

	t.Run("initializes nil DocumentTypes map", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".docaudit.yaml")
		if err := os.WriteFile(configPath, []byte("defaults: {}\n"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		cf, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cf.DocumentTypes == nil {
			t.Error("expected DocumentTypes map to be initialized")
		}
	})
}

// TestFileGetReferenceConfig tests merging of defaults and document types.
func TestFileGetReferenceConfig(t *testing.T) {
	t.Parallel()

	cf := &File{
		Defaults: ReferenceConfig{
			Palette:         []PaletteColor{{Hex: "#FF0000"}},
			MatchThresholds: map[string]float64{ThresholdCompliance: 0.9},
			NumberLocale:    LocaleEN,
		},
		DocumentTypes: map[string]ReferenceConfig{
			"annual-report": {
				NumberLocale:    LocaleEU,
				MatchThresholds: map[string]float64{ThresholdEntity: 0.7},
			},
		},
	}

	t.Run("empty type returns defaults", func(t *testing.T) {
		t.Parallel()

		rc, err := cf.GetReferenceConfig("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rc.Locale() != LocaleEN {
			t.Errorf("expected en locale, got %q", rc.Locale())
		}
	})

	t.Run("document type overrides and merges thresholds", func(t *testing.T) {
		t.Parallel()

		rc, err := cf.GetReferenceConfig("annual-report")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rc.Locale() != LocaleEU {
			t.Errorf("expected eu locale, got %q", rc.Locale())
		}
		if rc.Threshold(ThresholdCompliance) != 0.9 || rc.Threshold(ThresholdEntity) != 0.7 {
			t.Errorf("thresholds not merged: %v", rc.MatchThresholds)
		}
		if len(rc.Palette) != 1 {
			t.Error("expected palette inherited from defaults")
		}
	})

	t.Run("merging does not modify defaults", func(t *testing.T) {
		t.Parallel()

		if _, err := cf.GetReferenceConfig("annual-report"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := cf.Defaults.MatchThresholds[ThresholdEntity]; ok {
			t.Error("defaults were modified by the merge")
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		t.Parallel()

		_, err := cf.GetReferenceConfig("brochure")
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) || !errors.Is(err, ErrUnknownDocumentType) {
			t.Errorf("expected ConfigError wrapping ErrUnknownDocumentType, got %v", err)
		}
	})
}

// TestReferenceConfigValidate tests validation of reference data.
func TestReferenceConfigValidate(t *testing.T) {
	t.Parallel()

	negative := -1.0

	tests := []struct {
		name      string
		rc        *ReferenceConfig
		wantErr   error
		wantField string
	}{
		{name: "empty config is valid", rc: &ReferenceConfig{}},
		{name: "nil config", rc: nil, wantErr: ErrNoReferenceConfig},
		{
			name:      "bad palette hex",
			rc:        &ReferenceConfig{Palette: []PaletteColor{{Hex: "#FF0000"}, {Hex: "red"}}},
			wantErr:   ErrInvalidPaletteColor,
			wantField: "palette[1].hex",
		},
		{
			name:    "negative tolerance",
			rc:      &ReferenceConfig{Palette: []PaletteColor{{Hex: "#FF0000", Tolerance: &negative}}},
			wantErr: ErrInvalidTolerance,
		},
		{name: "unknown metric", rc: &ReferenceConfig{ColorMetric: "hsv"}, wantErr: ErrInvalidColorMetric},
		{
			name:    "template without text",
			rc:      &ReferenceConfig{DisclaimerTemplates: []DisclaimerTemplate{{ID: "a"}}},
			wantErr: ErrInvalidTemplate,
		},
		{
			name: "duplicate template id",
			rc: &ReferenceConfig{DisclaimerTemplates: []DisclaimerTemplate{
				{ID: "a", Text: "one"}, {ID: "a", Text: "two"},
			}},
			wantErr: ErrInvalidTemplate,
		},
		{
			name:    "entity without name",
			rc:      &ReferenceConfig{CanonicalEntities: []CanonicalEntity{{Aliases: []string{"x"}}}},
			wantErr: ErrInvalidEntity,
		},
		{
			name:    "compliance threshold above one",
			rc:      &ReferenceConfig{MatchThresholds: map[string]float64{ThresholdCompliance: 1.5}},
			wantErr: ErrInvalidThreshold,
		},
		{
			name:    "negative numeric tolerance",
			rc:      &ReferenceConfig{MatchThresholds: map[string]float64{ThresholdNumeric: -0.1}},
			wantErr: ErrInvalidThreshold,
		},
		{
			name:    "unknown threshold",
			rc:      &ReferenceConfig{MatchThresholds: map[string]float64{"layout": 0.5}},
			wantErr: ErrUnknownThreshold,
		},
		{
			name:    "semantic pair with empty side",
			rc:      &ReferenceConfig{SemanticPairs: []SectionPair{{A: "summary"}}},
			wantErr: ErrInvalidSectionPair,
		},
		{
			name:    "numeric pair with itself",
			rc:      &ReferenceConfig{NumericPairs: []SectionPair{{A: "detail", B: "detail"}}},
			wantErr: ErrInvalidSectionPair,
		},
		{name: "unknown locale", rc: &ReferenceConfig{NumberLocale: "fr"}, wantErr: ErrInvalidNumberLocale},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.rc.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}

			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigError, got %T: %v", err, err)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if tt.wantField != "" && cfgErr.Field != tt.wantField {
				t.Errorf("expected field %q, got %q", tt.wantField, cfgErr.Field)
			}
			if !strings.HasPrefix(err.Error(), "config:") {
				t.Errorf("unexpected message %q", err.Error())
			}
		})
	}
}

// TestSectionPairMatches tests that pairs match in either order.
func TestSectionPairMatches(t *testing.T) {
	t.Parallel()

	p := SectionPair{A: "summary", B: "detail"}
	if !p.Matches("summary", "detail") || !p.Matches("detail", "summary") {
		t.Error("expected pair to match in both orders")
	}
	if p.Matches("summary", "appendix") {
		t.Error("unexpected match")
	}
}

// TestFindConfigFile tests the FindConfigFile function.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns explicit path if exists", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(configPath, []byte("defaults: {}"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		if result := FindConfigFile(configPath); result != configPath {
			t.Errorf("expected %q, got %q", configPath, result)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		t.Parallel()

		if result := FindConfigFile("/nonexistent/path/config.yaml"); result != "" {
			t.Errorf("expected empty string, got %q", result)
		}
	})
}

// TestXDGDirs tests XDG directory functions.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	if !strings.HasSuffix(XDGDataDir(), AppName) {
		t.Errorf("XDGDataDir should end with %q, got %q", AppName, XDGDataDir())
	}
	if !strings.HasSuffix(XDGConfigDir(), AppName) {
		t.Errorf("XDGConfigDir should end with %q, got %q", AppName, XDGConfigDir())
	}
}
