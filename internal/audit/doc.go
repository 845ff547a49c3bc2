// Package audit checks extracted document fragments against reference data.
//
// # Auditors
//
// Each check is an Auditor that reads the fragments and returns findings:
//   - format: malformed fragments, empty pages, missing pages
//   - color: fragment colors outside the brand palette
//   - compliance: disclaimer templates missing from the document
//   - entity: company names that deviate from their canonical spelling
//   - semantic: figures and section meaning that disagree between sections
//
// Auditors receive only the reference data they need, share no mutable
// state and may run concurrently.
//
// # Engine
//
// Engine validates the reference configuration, runs every auditor and
// merges their findings into a model.AuditReport. An auditor that fails or
// panics is reported as a single critical finding; the remaining auditors
// still contribute. Only an invalid reference configuration aborts an audit.
package audit
