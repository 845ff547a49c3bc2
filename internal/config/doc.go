// Package config provides configuration structures and utilities for docaudit.
//
// It defines two kinds of configuration:
//   - Config: options for a CLI run (inputs, output format, embedding provider)
//   - ReferenceConfig: the reference data a document is audited against
//     (brand palette, disclaimer templates, canonical entities, thresholds)
//
// Reference configurations are loaded from a YAML or TOML file holding
// defaults plus per-document-type overrides.
package config
