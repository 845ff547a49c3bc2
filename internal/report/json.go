package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/docaudit/internal/model"
)

// JSONWriter outputs audits in JSON format.
// This format is designed for tool integration and programmatic processing.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string

	// reportOnly writes the bare AuditReport instead of the run record.
	reportOnly bool
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = ""
		w.indentString = "  "
	}
}

// WithReportOnly writes only the AuditReport of each audit. The output then
// depends on nothing but the input fragments and the reference config.
func WithReportOnly() JSONWriterOption {
	return func(w *JSONWriter) {
		w.reportOnly = true
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the audit in JSON format.
func (w *JSONWriter) Write(audit *model.DocumentAudit) (int, error) {
	if w.reportOnly {
		report := audit.Report
		if report == nil {
			report = model.NewAuditReport(nil, nil)
		}
		return w.writeJSON(report)
	}
	return w.writeJSON(audit)
}

// WriteComparison outputs the comparison in JSON format.
func (w *JSONWriter) WriteComparison(c *Comparison) (int, error) {
	return w.writeJSON(c)
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}

// JSONReport wraps an audit with the version of the tool that produced it.
type JSONReport struct {
	// Version is the docaudit version that generated this report.
	Version string `json:"version"`

	// Audit is the audit run.
	Audit *model.DocumentAudit `json:"audit"`
}

// NewJSONReport creates a JSONReport wrapper with version information.
func NewJSONReport(audit *model.DocumentAudit, version string) *JSONReport {
	return &JSONReport{
		Version: version,
		Audit:   audit,
	}
}

// FullJSONWriter outputs audits with a metadata wrapper.
type FullJSONWriter struct {
	*JSONWriter

	// version is the docaudit version string.
	version string
}

// NewFullJSONWriter creates a writer for audits with metadata.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write outputs the audit wrapped with metadata.
func (w *FullJSONWriter) Write(audit *model.DocumentAudit) (int, error) {
	return w.writeJSON(NewJSONReport(audit, w.version))
}
