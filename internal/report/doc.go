// Package report renders audit results for people and tools.
//
// Three writers are provided:
//   - SimpleWriter: colored text for terminal display
//   - JSONWriter: structured JSON for tool integration
//   - MarkdownWriter: Markdown with a severity pie chart for sharing
//
// The package also compares two stored audits of the same document and
// renders the difference with the same writers.
//
// Writers implement the Writer interface, so they can be used
// interchangeably and combined with MultiWriter.
package report
