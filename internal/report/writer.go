package report

import (
	"io"

	"github.com/mattn/go-runewidth"

	"github.com/nao1215/docaudit/internal/model"
)

// Writer defines the interface for report output.
// Implementations write audit results in various formats.
type Writer interface {
	// Write outputs one document audit.
	// Returns the number of bytes written and any error encountered.
	Write(audit *model.DocumentAudit) (int, error)

	// WriteComparison outputs the difference between two audits.
	WriteComparison(c *Comparison) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the audit to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(audit *model.DocumentAudit) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(audit)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteComparison outputs the comparison to all configured Writers.
func (m *MultiWriter) WriteComparison(c *Comparison) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteComparison(c)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// statusText returns a one-line status of the run.
func statusText(audit *model.DocumentAudit) string {
	switch {
	case audit.Cancelled:
		return "Cancelled"
	case audit.Failed():
		return "Error - " + audit.Error
	default:
		return "Complete"
	}
}

// truncateString shortens s to at most maxWidth terminal cells, ending
// with "..." when something was cut. Wide characters count as two cells.
func truncateString(s string, maxWidth int) string {
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, "...")
}

// severityLabel returns the capitalized severity name used in tables.
func severityLabel(s model.Severity) string {
	switch s {
	case model.SeverityCritical:
		return "Critical"
	case model.SeverityWarning:
		return "Warning"
	case model.SeverityInfo:
		return "Info"
	default:
		return "Unknown"
	}
}

// highestFirst lists severities from critical to info.
var highestFirst = []model.Severity{
	model.SeverityCritical,
	model.SeverityWarning,
	model.SeverityInfo,
}
