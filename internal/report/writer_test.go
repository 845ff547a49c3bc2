package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/docaudit/internal/model"
)

// createTestAudit creates an audit with one finding per severity.
func createTestAudit() *model.DocumentAudit {
	audit := model.NewDocumentAudit("run-1", "annual-report.json", "annual_report")
	audit.DateAudited = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	findings := []model.Finding{
		model.NewFinding(model.AuditorCompliance, model.CodeMissingDisclaimer, model.SeverityCritical,
			model.Location{}, `required disclaimer "not-advice" not found`, nil),
		model.NewFinding(model.AuditorColor, model.CodeOffPaletteColor, model.SeverityWarning,
			model.Location{Page: 2}, "color #FA0A0A is not in the brand palette", nil),
		model.NewFinding(model.AuditorEntity, model.CodeUnrecognizedEntity, model.SeverityInfo,
			model.Location{Page: 3}, `unrecognized entity "Globex Corporation"`, nil),
	}
	audit.Report = model.NewAuditReport(findings, []int{1, 2, 3})
	return audit
}

// TestSimpleWriter tests the human-readable report writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes report header", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithColor(false))

		if _, err := w.Write(createTestAudit()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"DOCAUDIT REPORT", "annual-report.json", "annual_report", "Pages Audited:  3", "Status:         Complete"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("writes severity summary", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithColor(false))

		if _, err := w.Write(createTestAudit()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "SEVERITY SUMMARY") {
			t.Error("expected output to contain severity summary")
		}
		if !strings.Contains(output, "CRITICAL:  1") {
			t.Errorf("expected critical count in output, got:\n%s", output)
		}
		if !strings.Contains(output, "TOTAL:     3 findings") {
			t.Errorf("expected total in output, got:\n%s", output)
		}
	})

	t.Run("writes findings in severity order", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithColor(false))

		if _, err := w.Write(createTestAudit()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		critical := strings.Index(output, "[!!!] CRITICAL")
		warning := strings.Index(output, "[!] WARNING")
		info := strings.Index(output, "[i] INFO")
		if critical < 0 || warning < 0 || info < 0 {
			t.Fatalf("expected all severity headers, got:\n%s", output)
		}
		if critical >= warning || warning >= info {
			t.Error("expected critical, warning, info order")
		}
		if !strings.Contains(output, "Required disclaimer missing (compliance, document)") {
			t.Error("expected finding title with auditor and location")
		}
		if !strings.Contains(output, "Off-palette color (color, page 2)") {
			t.Error("expected page location")
		}
	})

	t.Run("verbose shows recommendation and ID", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithColor(false), WithVerbose(true))
		audit := createTestAudit()

		if _, err := w.Write(audit); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "Recommendation: Insert the approved disclaimer") {
			t.Error("expected recommendation in verbose output")
		}
		if !strings.Contains(output, "ID: "+audit.Report.Findings[0].ID) {
			t.Error("expected finding ID in verbose output")
		}
		if !strings.Contains(output, "Run ID:         run-1") {
			t.Error("expected run ID in verbose output")
		}
	})

	t.Run("non-verbose truncates long messages", func(t *testing.T) {
		t.Parallel()

		audit := createTestAudit()
		long := strings.Repeat("x", 150)
		audit.Report = model.NewAuditReport([]model.Finding{
			model.NewFinding(model.AuditorFormat, model.CodeEmptyPage, model.SeverityInfo, model.Location{Page: 1}, long, nil),
		}, []int{1})

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithColor(false))
		if _, err := w.Write(audit); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if strings.Contains(output, long) {
			t.Error("expected long message to be truncated")
		}
		if !strings.Contains(output, strings.Repeat("x", 97)+"...") {
			t.Error("expected truncated message with ellipsis")
		}
	})

	t.Run("forced color emits escape codes", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithColor(true))

		if _, err := w.Write(createTestAudit()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\x1b[") {
			t.Error("expected ANSI escape codes in colored output")
		}
	})

	t.Run("disabled color emits no escape codes", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithColor(false))

		if _, err := w.Write(createTestAudit()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(buf.String(), "\x1b[") {
			t.Error("expected no ANSI escape codes")
		}
	})
}

// TestSimpleWriterWithError tests output of a failed run.
func TestSimpleWriterWithError(t *testing.T) {
	t.Parallel()

	audit := model.NewDocumentAudit("run-2", "broken.json", "")
	audit.Error = "failed to decode fragments"

	var buf bytes.Buffer
	w := NewSimpleWriter(&buf, WithColor(false))
	if _, err := w.Write(audit); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "Error - failed to decode fragments") {
		t.Error("expected error status in output")
	}
	if strings.Contains(output, "SEVERITY SUMMARY") {
		t.Error("expected no summary for a run without report")
	}
	if strings.Contains(output, "Document Type:") {
		t.Error("expected no document type line when empty")
	}
}

// TestSimpleWriterShowEmpty tests that empty sections can be shown.
func TestSimpleWriterShowEmpty(t *testing.T) {
	t.Parallel()

	audit := model.NewDocumentAudit("run-3", "clean.json", "")
	audit.Report = model.NewAuditReport(nil, []int{1})

	tests := []struct {
		name      string
		showEmpty bool
		want      bool
	}{
		{name: "hidden by default", showEmpty: false, want: false},
		{name: "shown when enabled", showEmpty: true, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			w := NewSimpleWriter(&buf, WithColor(false), WithShowEmpty(tt.showEmpty))
			if _, err := w.Write(audit); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			output := buf.String()
			if got := strings.Contains(output, "FINDINGS"); got != tt.want {
				t.Errorf("FINDINGS section shown = %v, want %v", got, tt.want)
			}
			if got := strings.Contains(output, "No findings"); got != tt.want {
				t.Errorf("empty severity placeholder shown = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestSeverityIndicator tests indicators for all levels.
func TestSeverityIndicator(t *testing.T) {
	t.Parallel()

	tests := []struct {
		severity model.Severity
		want     string
	}{
		{model.SeverityCritical, "!!!"},
		{model.SeverityWarning, "!"},
		{model.SeverityInfo, "i"},
		{model.Severity(42), "?"},
	}

	for _, tt := range tests {
		t.Run(tt.severity.String(), func(t *testing.T) {
			t.Parallel()
			if got := severityIndicator(tt.severity); got != tt.want {
				t.Errorf("severityIndicator(%v) = %q, want %q", tt.severity, got, tt.want)
			}
		})
	}
}

// TestJSONWriter tests the JSON report writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("outputs valid JSON", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf)

		if _, err := w.Write(createTestAudit()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var parsed model.DocumentAudit
		if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if parsed.Document != "annual-report.json" {
			t.Errorf("expected document %q, got %q", "annual-report.json", parsed.Document)
		}
		if parsed.Report == nil || parsed.Report.Count(model.SeverityWarning) != 1 {
			t.Error("expected report with one warning")
		}
	})

	t.Run("compact output by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf)

		if _, err := w.Write(createTestAudit()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) > 1 {
			t.Errorf("expected compact output (1 line), got %d lines", len(lines))
		}
	})

	t.Run("pretty print with indent", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf, WithPrettyPrint())

		if _, err := w.Write(createTestAudit()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) < 5 {
			t.Errorf("expected multi-line output, got %d lines", len(lines))
		}
	})

	t.Run("report only omits run metadata", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf, WithReportOnly())

		if _, err := w.Write(createTestAudit()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if strings.Contains(output, "run_id") || strings.Contains(output, "date_audited") {
			t.Errorf("expected bare report, got %s", output)
		}
		for _, key := range []string{`"findings"`, `"summary_counts"`, `"pages_audited"`} {
			if !strings.Contains(output, key) {
				t.Errorf("expected %s in output", key)
			}
		}
	})

	t.Run("report only with failed run writes empty report", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf, WithReportOnly())
		audit := model.NewDocumentAudit("run", "doc.json", "")
		audit.Error = "boom"

		if _, err := w.Write(audit); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var parsed model.AuditReport
		if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if parsed.HasFindings() {
			t.Error("expected no findings")
		}
	})
}

// TestWithIndent tests custom indentation.
func TestWithIndent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewJSONWriter(&buf, WithIndent(">", "\t"))

	if _, err := w.Write(createTestAudit()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) < 2 {
		t.Fatalf("expected indented output, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[1], ">\t") {
		t.Errorf("expected prefix and tab indent, got %q", lines[1])
	}
}

// TestFullJSONWriter tests the full JSON writer with metadata.
func TestFullJSONWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewFullJSONWriter(&buf, "2.0.0", WithPrettyPrint())

	if _, err := w.Write(createTestAudit()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed JSONReport
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if parsed.Version != "2.0.0" {
		t.Errorf("expected version %q, got %q", "2.0.0", parsed.Version)
	}
	if parsed.Audit == nil || parsed.Audit.RunID != "run-1" {
		t.Error("expected wrapped audit")
	}
}

// failingWriter is a Writer that always fails.
type failingWriter struct{}

var errWrite = errors.New("write failed")

func (failingWriter) Write(*model.DocumentAudit) (int, error) { return 0, errWrite }

func (failingWriter) WriteComparison(*Comparison) (int, error) { return 0, errWrite }

// TestMultiWriter tests writing to multiple outputs.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all writers", func(t *testing.T) {
		t.Parallel()

		var buf1, buf2 bytes.Buffer
		multi := NewMultiWriter(NewSimpleWriter(&buf1, WithColor(false)), NewJSONWriter(&buf2))

		n, err := multi.Write(createTestAudit())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf1.Len()+buf2.Len() {
			t.Errorf("expected %d bytes, got %d", buf1.Len()+buf2.Len(), n)
		}
		if strings.Contains(buf1.String(), "{") {
			t.Error("expected buf1 (simple) to not be JSON")
		}
		if !strings.Contains(buf2.String(), "{") {
			t.Error("expected buf2 (JSON) to contain JSON")
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		multi := NewMultiWriter(failingWriter{}, NewJSONWriter(&buf))

		if _, err := multi.Write(createTestAudit()); !errors.Is(err, errWrite) {
			t.Errorf("expected errWrite, got %v", err)
		}
		if buf.Len() != 0 {
			t.Error("expected later writers to be skipped")
		}
	})

	t.Run("writes comparison to all writers", func(t *testing.T) {
		t.Parallel()

		var buf1, buf2 bytes.Buffer
		multi := NewMultiWriter(NewSimpleWriter(&buf1, WithColor(false)), NewMarkdownWriter(&buf2))
		previous, current := comparisonAudits()

		if _, err := multi.WriteComparison(Compare(previous, current)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf1.String(), "Audit Comparison") || !strings.Contains(buf2.String(), "# Audit Comparison") {
			t.Error("expected comparison in both outputs")
		}
	})
}

// TestMarkdownWriter tests the Markdown report writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes report header", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)

		if _, err := w.Write(createTestAudit()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "# DocAudit Report") {
			t.Error("expected output to contain H1 header")
		}
		if !strings.Contains(output, "`annual-report.json`") {
			t.Error("expected output to contain document name")
		}
		if !strings.Contains(output, "✅ Complete") {
			t.Error("expected complete status")
		}
	})

	t.Run("writes severity summary and chart", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)

		if _, err := w.Write(createTestAudit()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "## Severity Summary") {
			t.Error("expected severity summary header")
		}
		if !strings.Contains(output, "🔴 Critical") {
			t.Error("expected critical severity indicator")
		}
		if !strings.Contains(output, "```mermaid") {
			t.Error("expected mermaid pie chart")
		}
		if !strings.Contains(output, "Finding Severity Distribution") {
			t.Error("expected chart title")
		}
	})

	t.Run("writes caution alert for critical findings", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)

		if _, err := w.Write(createTestAudit()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "[!CAUTION]") {
			t.Error("expected caution alert")
		}
		if !strings.Contains(output, "1 critical finding(s)") {
			t.Error("expected critical count in alert")
		}
	})

	t.Run("writes findings tables", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)

		if _, err := w.Write(createTestAudit()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "### 🟡 Warning") {
			t.Error("expected warning section")
		}
		if !strings.Contains(output, "Off-palette color") {
			t.Error("expected finding title")
		}
		if !strings.Contains(output, "<details>") {
			t.Error("expected recommendation details")
		}
	})

	t.Run("clean report shows tip", func(t *testing.T) {
		t.Parallel()

		audit := model.NewDocumentAudit("run", "clean.json", "")
		audit.Report = model.NewAuditReport(nil, []int{1})

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)
		if _, err := w.Write(audit); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "[!TIP]") {
			t.Error("expected tip alert")
		}
		if !strings.Contains(output, "No findings detected.") {
			t.Error("expected no findings message")
		}
		if strings.Contains(output, "```mermaid") {
			t.Error("expected no chart without findings")
		}
	})

	t.Run("warnings only shows warning alert", func(t *testing.T) {
		t.Parallel()

		audit := model.NewDocumentAudit("run", "doc.json", "")
		audit.Report = model.NewAuditReport([]model.Finding{
			model.NewFinding(model.AuditorColor, model.CodeOffPaletteColor, model.SeverityWarning, model.Location{Page: 1}, "off palette", nil),
		}, []int{1})

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)
		if _, err := w.Write(audit); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "[!WARNING]") {
			t.Error("expected warning alert")
		}
	})

	t.Run("returns written length", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)

		n, err := w.Write(createTestAudit())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n == 0 {
			t.Error("expected a non-zero length")
		}
	})
}

// TestMarkdownWriterWithError tests Markdown output of a failed run.
func TestMarkdownWriterWithError(t *testing.T) {
	t.Parallel()

	audit := model.NewDocumentAudit("run", "broken.json", "")
	audit.Error = "connection failed"

	var buf bytes.Buffer
	w := NewMarkdownWriter(&buf)
	if _, err := w.Write(audit); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "❌ Error - connection failed") {
		t.Error("expected error status in output")
	}
	if strings.Contains(output, "## Findings") {
		t.Error("expected no findings section without a report")
	}
}

// TestTruncateString tests the string truncation helper.
func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is a longer string", 10, "this is..."},
		{"abc", 3, "abc"},
		{"abcd", 3, "abc"},
		{"ab", 5, "ab"},
		{"日本語のテキスト", 7, "日本..."},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			result := truncateString(tt.input, tt.maxLen)
			if result != tt.expected {
				t.Errorf("truncateString(%q, %d) = %q, want %q",
					tt.input, tt.maxLen, result, tt.expected)
			}
		})
	}
}
