package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"github.com/nao1215/docaudit/internal/model"
)

// defaultMessageWidth is the widest message line printed in non-verbose mode.
const defaultMessageWidth = 100

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with color-coded severity
// levels and clear section formatting.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no findings are shown.
	showEmpty bool

	// verbose enables additional detail in the output.
	verbose bool

	// color forces colors on or off. Nil follows the terminal.
	color *bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// WithColor forces colored output on or off. By default colors are used
// only when stdout is a terminal and NO_COLOR is unset.
func WithColor(enabled bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.color = &enabled
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the audit in human-readable format.
func (w *SimpleWriter) Write(audit *model.DocumentAudit) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, audit)

	if audit.Report != nil {
		w.writeSummary(&sb, audit.Report)
		w.writeFindings(&sb, audit.Report)
	}

	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, audit *model.DocumentAudit) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                          DOCAUDIT REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Document:       %s\n", audit.Document)
	if audit.DocumentType != "" {
		fmt.Fprintf(sb, "Document Type:  %s\n", audit.DocumentType)
	}
	if w.verbose && audit.RunID != "" {
		fmt.Fprintf(sb, "Run ID:         %s\n", audit.RunID)
	}
	fmt.Fprintf(sb, "Audit Date:     %s\n", audit.DateAudited.Format("2006-01-02 15:04:05 MST"))
	if audit.Report != nil {
		fmt.Fprintf(sb, "Pages Audited:  %d\n", len(audit.Report.PagesAudited))
	}

	status := statusText(audit)
	if audit.Failed() || audit.Cancelled {
		status = w.paint(model.SeverityCritical, status)
	}
	fmt.Fprintf(sb, "Status:         %s\n", status)

	sb.WriteString("\n")
}

// writeSummary writes the severity summary section.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.AuditReport) {
	writeSection(sb, "SEVERITY SUMMARY")

	for _, sev := range highestFirst {
		label := runewidth.FillRight(sev.String()+":", 10)
		count := strconv.Itoa(report.Count(sev))
		if report.Count(sev) > 0 {
			count = w.paint(sev, count)
		}
		fmt.Fprintf(sb, "  %s %s\n", label, count)
	}
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  %s %d findings\n", runewidth.FillRight("TOTAL:", 10), report.TotalFindings())
	sb.WriteString("\n")
}

// writeFindings writes all findings grouped by severity.
func (w *SimpleWriter) writeFindings(sb *strings.Builder, report *model.AuditReport) {
	if !report.HasFindings() && !w.showEmpty {
		return
	}

	writeSection(sb, "FINDINGS")

	for _, sev := range highestFirst {
		findings := report.GetFindingsBySeverity(sev)
		if len(findings) == 0 && !w.showEmpty {
			continue
		}
		w.writeFindingsForSeverity(sb, sev, findings)
	}
}

// writeFindingsForSeverity writes findings of a specific severity level.
func (w *SimpleWriter) writeFindingsForSeverity(sb *strings.Builder, severity model.Severity, findings []model.Finding) {
	header := fmt.Sprintf("[%s] %s", severityIndicator(severity), severity.String())
	sb.WriteString(w.paint(severity, header))
	sb.WriteString("\n")

	if len(findings) == 0 {
		sb.WriteString("  No findings\n\n")
		return
	}

	for _, f := range findings {
		fmt.Fprintf(sb, "  * %s (%s, %s)\n", f.Title(), f.Auditor, f.Location)
		message := f.Message
		if !w.verbose {
			message = truncateString(message, defaultMessageWidth)
		}
		fmt.Fprintf(sb, "    %s\n", message)
		if w.verbose {
			if rec := f.Recommendation(); rec != "" {
				fmt.Fprintf(sb, "    Recommendation: %s\n", rec)
			}
			fmt.Fprintf(sb, "    ID: %s\n", f.ID)
		}
	}
	sb.WriteString("\n")
}

// WriteComparison outputs the comparison in human-readable format.
func (w *SimpleWriter) WriteComparison(c *Comparison) (int, error) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Audit Comparison: %s\n", c.Document)
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "\nRisk Status: %s\n", w.riskDirection(c.RiskChange.Direction))
	fmt.Fprintf(&sb, "\nPrevious audit: %s (%s)\n", c.Previous.DateAudited.Format("2006-01-02 15:04:05"), c.Previous.RunID)
	fmt.Fprintf(&sb, "Current audit:  %s (%s)\n", c.Current.DateAudited.Format("2006-01-02 15:04:05"), c.Current.RunID)

	sb.WriteString("\nFindings Summary:\n")
	fmt.Fprintf(&sb, "  %-10s  %-10s  %-10s  %-10s\n", "Severity", "Previous", "Current", "Change")
	sb.WriteString("  " + strings.Repeat("-", 45) + "\n")
	for _, sev := range highestFirst {
		fmt.Fprintf(&sb, "  %-10s  %-10d  %-10d  %-10s\n", severityLabel(sev),
			c.Previous.SummaryCounts[sev], c.Current.SummaryCounts[sev],
			formatDelta(c.RiskChange.Deltas[sev]))
	}
	sb.WriteString("  " + strings.Repeat("-", 45) + "\n")
	fmt.Fprintf(&sb, "  %-10s  %-10d  %-10d  %-10s\n", "Total",
		c.Previous.TotalFindings, c.Current.TotalFindings, formatDelta(c.TotalDelta()))

	if len(c.NewFindings) > 0 {
		fmt.Fprintf(&sb, "\nNew Findings (%d):\n", len(c.NewFindings))
		for _, f := range c.NewFindings {
			line := fmt.Sprintf("  [+] [%s] %s: %s", f.Severity, f.Title(), truncateString(f.Message, defaultMessageWidth))
			sb.WriteString(w.paint(f.Severity, line))
			sb.WriteString("\n")
			fmt.Fprintf(&sb, "      Location: %s\n", f.Location)
		}
	}

	if len(c.ResolvedFindings) > 0 {
		fmt.Fprintf(&sb, "\nResolved Findings (%d):\n", len(c.ResolvedFindings))
		for _, f := range c.ResolvedFindings {
			fmt.Fprintf(&sb, "  [-] [%s] %s: %s\n", f.Severity, f.Title(), truncateString(f.Message, defaultMessageWidth))
		}
	}

	if c.UnchangedCount > 0 {
		fmt.Fprintf(&sb, "\nUnchanged: %d findings\n", c.UnchangedCount)
	}

	return w.output.Write([]byte(sb.String()))
}

// riskDirection formats the risk change direction for display.
func (w *SimpleWriter) riskDirection(direction string) string {
	switch direction {
	case RiskImproved:
		return "IMPROVED (fewer or milder findings)"
	case RiskWorsened:
		return w.paint(model.SeverityCritical, "WORSENED (more or harsher findings)")
	default:
		return "UNCHANGED"
	}
}

// paint colors text according to severity.
func (w *SimpleWriter) paint(severity model.Severity, text string) string {
	c := color.New(severityAttributes(severity)...)
	if w.color != nil {
		if *w.color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return c.Sprint(text)
}

// severityAttributes returns the terminal attributes for a severity.
func severityAttributes(severity model.Severity) []color.Attribute {
	switch severity {
	case model.SeverityCritical:
		return []color.Attribute{color.FgRed, color.Bold}
	case model.SeverityWarning:
		return []color.Attribute{color.FgYellow}
	default:
		return []color.Attribute{color.FgCyan}
	}
}

// severityIndicator returns a visual indicator for the severity level.
func severityIndicator(severity model.Severity) string {
	switch severity {
	case model.SeverityCritical:
		return "!!!"
	case model.SeverityWarning:
		return "!"
	case model.SeverityInfo:
		return "i"
	default:
		return "?"
	}
}

// writeSection writes a section title between two rules.
func writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by docaudit\n")
	sb.WriteString("https://github.com/nao1215/docaudit\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}
