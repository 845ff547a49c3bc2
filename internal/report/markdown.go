package report

import (
	"fmt"
	"io"
	"strconv"

	"fortio.org/safecast"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/docaudit/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for review comments and sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the audit in Markdown format.
func (w *MarkdownWriter) Write(audit *model.DocumentAudit) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, audit)

	if audit.Report != nil {
		w.writeSummary(md, audit.Report)
		w.writeFindings(md, audit.Report)
	}

	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, audit *model.DocumentAudit) {
	md.H1("DocAudit Report")
	md.PlainText("")

	rows := [][]string{
		{"Document", "`" + audit.Document + "`"},
	}
	if audit.DocumentType != "" {
		rows = append(rows, []string{"Document Type", audit.DocumentType})
	}
	rows = append(rows,
		[]string{"Run ID", "`" + audit.RunID + "`"},
		[]string{"Audit Date", audit.DateAudited.Format("2006-01-02 15:04:05 MST")},
	)
	if audit.Report != nil {
		rows = append(rows, []string{"Pages Audited", strconv.Itoa(len(audit.Report.PagesAudited))})
	}
	rows = append(rows, []string{"Status", markdownStatus(audit)})

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// markdownStatus returns the status text with an icon.
func markdownStatus(audit *model.DocumentAudit) string {
	switch {
	case audit.Cancelled:
		return "⚠️ " + statusText(audit)
	case audit.Failed():
		return "❌ " + statusText(audit)
	default:
		return "✅ " + statusText(audit)
	}
}

// severityIcon returns the icon shown next to a severity.
func severityIcon(s model.Severity) string {
	switch s {
	case model.SeverityCritical:
		return "🔴"
	case model.SeverityWarning:
		return "🟡"
	default:
		return "🔵"
	}
}

// writeSummary writes the severity summary section.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.AuditReport) {
	md.H2("Severity Summary")
	md.PlainText("")

	rows := make([][]string, 0, len(highestFirst)+1)
	for _, sev := range highestFirst {
		rows = append(rows, []string{
			severityIcon(sev) + " " + severityLabel(sev),
			strconv.Itoa(report.Count(sev)),
		})
	}
	rows = append(rows, []string{"**Total**", "**" + strconv.Itoa(report.TotalFindings()) + "**"})

	md.Table(markdown.TableSet{
		Header: []string{"Severity", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	if report.HasFindings() {
		w.writePieChart(md, report)
	}

	w.writeAlert(md, report)
}

// writePieChart writes a mermaid pie chart for severity distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.AuditReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Finding Severity Distribution"),
		piechart.WithShowData(true),
	)

	for _, sev := range highestFirst {
		count, err := safecast.Conv[uint64](report.Count(sev))
		if err != nil || count == 0 {
			continue
		}
		chart.LabelAndIntValue(severityLabel(sev), count)
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an appropriate alert based on severity counts.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.AuditReport) {
	switch {
	case report.HasCritical():
		md.Cautionf(
			"%d critical finding(s) must be fixed before publication.",
			report.Count(model.SeverityCritical),
		)
	case report.Count(model.SeverityWarning) > 0:
		md.Warningf(
			"%d warning(s) should be reviewed.",
			report.Count(model.SeverityWarning),
		)
	case report.HasFindings():
		md.Note("Only informational findings detected.")
	default:
		md.Tip("No findings. The document matches the reference configuration.")
	}
	md.PlainText("")
}

// writeFindings writes all findings grouped by severity.
func (w *MarkdownWriter) writeFindings(md *markdown.Markdown, report *model.AuditReport) {
	md.H2("Findings")
	md.PlainText("")

	if !report.HasFindings() {
		md.PlainText("No findings detected.")
		md.PlainText("")
		return
	}

	for _, sev := range highestFirst {
		findings := report.GetFindingsBySeverity(sev)
		if len(findings) == 0 {
			continue
		}

		md.H3(severityIcon(sev) + " " + severityLabel(sev))
		md.PlainText("")
		w.writeFindingsTable(md, findings)
	}
}

// writeFindingsTable writes a table of findings with details.
func (w *MarkdownWriter) writeFindingsTable(md *markdown.Markdown, findings []model.Finding) {
	rows := make([][]string, len(findings))
	for i, f := range findings {
		rows[i] = []string{
			f.Location.String(),
			string(f.Auditor),
			f.Title(),
			truncateString(f.Message, 80),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Location", "Auditor", "Title", "Message"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, f := range findings {
		if rec := f.Recommendation(); rec != "" {
			md.Details(fmt.Sprintf("%s `%s`", f.Title(), f.ID), rec)
		}
	}
	md.PlainText("")
}

// WriteComparison outputs the comparison in Markdown format.
func (w *MarkdownWriter) WriteComparison(c *Comparison) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Audit Comparison: " + c.Document)
	md.PlainText("")
	md.H2("Summary")
	md.PlainText("")
	md.PlainTextf("**Risk Status:** %s", c.RiskChange.Direction)
	md.PlainText("")

	rows := [][]string{
		{"Date", c.Previous.DateAudited.Format("2006-01-02 15:04"), c.Current.DateAudited.Format("2006-01-02 15:04"), "-"},
	}
	for _, sev := range highestFirst {
		rows = append(rows, []string{
			severityLabel(sev),
			strconv.Itoa(c.Previous.SummaryCounts[sev]),
			strconv.Itoa(c.Current.SummaryCounts[sev]),
			formatDelta(c.RiskChange.Deltas[sev]),
		})
	}
	rows = append(rows, []string{
		"**Total**",
		"**" + strconv.Itoa(c.Previous.TotalFindings) + "**",
		"**" + strconv.Itoa(c.Current.TotalFindings) + "**",
		"**" + formatDelta(c.TotalDelta()) + "**",
	})
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(c.NewFindings) > 0 {
		md.H2(fmt.Sprintf("New Findings (%d)", len(c.NewFindings)))
		md.PlainText("")
		items := make([]string, len(c.NewFindings))
		for i, f := range c.NewFindings {
			items[i] = fmt.Sprintf("**[%s]** %s: %s (%s)", f.Severity, f.Title(), f.Message, f.Location)
		}
		md.BulletList(items...)
		md.PlainText("")
	}

	if len(c.ResolvedFindings) > 0 {
		md.H2(fmt.Sprintf("Resolved Findings (%d)", len(c.ResolvedFindings)))
		md.PlainText("")
		items := make([]string, len(c.ResolvedFindings))
		for i, f := range c.ResolvedFindings {
			items[i] = fmt.Sprintf("~~**[%s]** %s: %s~~", f.Severity, f.Title(), f.Message)
		}
		md.BulletList(items...)
		md.PlainText("")
	}

	if c.UnchangedCount > 0 {
		md.HorizontalRule()
		md.PlainText("")
		md.PlainTextf("*%d findings unchanged*", c.UnchangedCount)
	}

	return len(md.String()), md.Build()
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [docaudit](https://github.com/nao1215/docaudit)*")
}
