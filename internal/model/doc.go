// Package model defines the core data structures used throughout docaudit.
//
// This package contains the following main types:
//   - PageFragment: A unit of extracted document content (text, colors, position)
//   - Finding: A single defect reported by an auditor
//   - AuditReport: The deduplicated, ordered result of one audit run
//   - DocumentAudit: An audit run as recorded by the CLI and the history database
//
// Models live in their own package because the auditors, report writers and
// database all share them and must not import each other.
//
// Every type here serializes to JSON; the field names are part of the report
// contract.
package model
