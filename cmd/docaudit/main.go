// Package main provides the entry point for the docaudit CLI.
//
// docaudit checks extracted document fragments against brand, legal and
// consistency rules and reports the findings.
//
// Usage:
//
//	docaudit audit report.fragments.json
//	docaudit compare annual-report-2025
//
// See --help for all available options.
package main

// main is the entry point for docaudit.
func main() {
	Execute()
}
