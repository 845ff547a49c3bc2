package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/docaudit/internal/config"
	"github.com/nao1215/docaudit/internal/database"
	"github.com/nao1215/docaudit/internal/model"
	"github.com/nao1215/docaudit/internal/report"
)

// noFindingsMessage is shown in history listings for clean audits.
const noFindingsMessage = "No findings"

// NewCompareCmd creates the compare command.
// This command compares audit results with historical data stored in the database.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [document]",
		Short: "Compare audit results with historical data",
		Long: `Compare displays differences between the current and previous audit of a document.

This command retrieves historical audits from the database and shows:
- New findings that appeared since the previous audit
- Resolved findings that are no longer present
- Changes in the number of findings per severity

Findings are matched by their ID, which only changes when the defect itself
changes. The comparison requires at least two audits of the document.
Use 'docaudit audit' to audit documents and save results.

Examples:
  # Compare the latest two audits of a document
  docaudit compare annual-report-2025

  # List all audits of a document
  docaudit compare --list annual-report-2025

  # Compare with a specific historical audit by ID
  docaudit compare --with-audit-id 5 annual-report-2025

  # Compare with the first audit since a date
  docaudit compare --since 2025-01-01 annual-report-2025

  # Output comparison in JSON format
  docaudit compare --json annual-report-2025

  # List all audited documents in the database
  docaudit compare --list-documents`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompareCmd,
	}

	// History listing flags
	cmd.Flags().BoolP("list", "l", false,
		"List audit history for the specified document")
	cmd.Flags().BoolP("list-documents", "L", false,
		"List all audited documents in the database")

	// Comparison target flags
	cmd.Flags().Int64P("with-audit-id", "i", 0,
		"Compare with a specific audit by ID (use --list to see available IDs)")
	cmd.Flags().StringP("since", "s", "",
		"Compare with the first audit on or after this date (format: YYYY-MM-DD)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")
	cmd.Flags().Bool("no-color", false,
		"Disable colored output")

	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the audit history database")

	return cmd
}

// compareOptions selects the audits to compare and the output format.
type compareOptions struct {
	withAuditID int64
	since       string
	json        bool
	markdown    bool
	noColor     bool
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	listDocuments, err := cmd.Flags().GetBool("list-documents")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database.
	var document string
	if !listDocuments {
		if len(args) == 0 {
			return errors.New("document name is required (use --list-documents to see audited documents)")
		}
		document = args[0]
	}

	var opts compareOptions
	if opts.withAuditID, err = cmd.Flags().GetInt64("with-audit-id"); err != nil {
		return err
	}
	if opts.since, err = cmd.Flags().GetString("since"); err != nil {
		return err
	}
	if opts.json, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if opts.markdown, err = cmd.Flags().GetBool("markdown"); err != nil {
		return err
	}
	if opts.noColor, err = cmd.Flags().GetBool("no-color"); err != nil {
		return err
	}
	if opts.json && opts.markdown {
		return config.ErrConflictingReportFormats
	}

	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	if listDocuments {
		return listAuditedDocuments(ctx, db, out)
	}

	listHistory, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	if listHistory {
		return listAuditHistory(ctx, db, document, out)
	}

	return runComparison(ctx, db, document, opts, out)
}

// listAuditedDocuments lists all documents that have audits in the database.
func listAuditedDocuments(ctx context.Context, db *database.AuditDB, out io.Writer) error {
	documents, err := db.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(documents) == 0 {
		fmt.Fprintln(out, "No audited documents found in the database.")
		fmt.Fprintln(out, "\nUse 'docaudit audit <fragment-file>' to audit a document.")
		return nil
	}

	fmt.Fprintf(out, "Audited documents (%d):\n\n", len(documents))
	for _, document := range documents {
		fmt.Fprintf(out, "  • %s\n", document)
	}
	fmt.Fprintln(out, "\nUse 'docaudit compare --list <document>' to see the audit history of a document.")

	return nil
}

// listAuditHistory lists all audits of a document.
func listAuditHistory(ctx context.Context, db *database.AuditDB, document string, out io.Writer) error {
	history, err := db.GetAuditHistoryWithMetadata(ctx, document)
	if err != nil {
		return fmt.Errorf("failed to get audit history: %w", err)
	}

	if len(history) == 0 {
		fmt.Fprintf(out, "No audit history found for %s\n", document)
		fmt.Fprintln(out, "\nUse 'docaudit audit' to audit this document.")
		return nil
	}

	fmt.Fprintf(out, "Audit history for %s (%d audits):\n\n", document, len(history))
	fmt.Fprintf(out, "  %-6s  %-20s  %-10s  %s\n", "ID", "Date", "Status", "Summary")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 60))

	for _, meta := range history {
		fmt.Fprintf(out, "  %-6d  %-20s  %-10s  %s\n",
			meta.ID,
			meta.Timestamp.Local().Format("2006-01-02 15:04:05"),
			meta.Status,
			formatSummary(meta.Summary),
		)
	}

	fmt.Fprintln(out, "\nUse 'docaudit compare <document>' to compare the latest two audits.")
	fmt.Fprintln(out, "Use 'docaudit compare --with-audit-id <id> <document>' to compare with a specific audit.")

	return nil
}

// formatSummary formats severity counts, highest severity first.
func formatSummary(summary map[model.Severity]int) string {
	if summary == nil {
		return "N/A"
	}

	var parts []string
	if v := summary[model.SeverityCritical]; v > 0 {
		parts = append(parts, fmt.Sprintf("C:%d", v))
	}
	if v := summary[model.SeverityWarning]; v > 0 {
		parts = append(parts, fmt.Sprintf("W:%d", v))
	}
	if v := summary[model.SeverityInfo]; v > 0 {
		parts = append(parts, fmt.Sprintf("I:%d", v))
	}

	if len(parts) == 0 {
		return noFindingsMessage
	}
	return strings.Join(parts, " ")
}

// selectAudits picks the previous and current audit from a history
// ordered newest first. The current audit is always the latest one.
func selectAudits(ctx context.Context, db *database.AuditDB, document string, history []*model.DocumentAudit, opts compareOptions) (*model.DocumentAudit, *model.DocumentAudit, error) {
	if len(history) == 0 {
		return nil, nil, fmt.Errorf("no audit history found for %s", document)
	}
	if len(history) < 2 && opts.withAuditID == 0 && opts.since == "" {
		return nil, nil, fmt.Errorf("at least 2 audits are required for comparison (found %d)", len(history))
	}

	current := history[0]

	switch {
	case opts.withAuditID > 0:
		previous, err := db.GetAuditByID(ctx, opts.withAuditID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get audit with ID %d: %w", opts.withAuditID, err)
		}
		if previous == nil {
			return nil, nil, fmt.Errorf("audit with ID %d not found", opts.withAuditID)
		}
		if previous.Document != document {
			return nil, nil, fmt.Errorf("audit ID %d belongs to %s, not %s", opts.withAuditID, previous.Document, document)
		}
		return previous, current, nil

	case opts.since != "":
		sinceDate, err := time.ParseInLocation("2006-01-02", opts.since, time.Local)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}
		// History is newest first; walk it backwards to find the oldest
		// audit on or after the date.
		for i := len(history) - 1; i >= 0; i-- {
			if !history[i].DateAudited.Before(sinceDate) {
				if history[i].RunID == current.RunID {
					return nil, nil, fmt.Errorf("only one audit found since %s; at least 2 audits are required for comparison", opts.since)
				}
				return history[i], current, nil
			}
		}
		return nil, nil, fmt.Errorf("no audits found since %s", opts.since)

	default:
		return history[1], current, nil
	}
}

// runComparison compares two audits of a document and writes the result.
func runComparison(ctx context.Context, db *database.AuditDB, document string, opts compareOptions, out io.Writer) error {
	history, err := db.GetAuditHistory(ctx, document)
	if err != nil {
		return fmt.Errorf("failed to get audit history: %w", err)
	}

	previous, current, err := selectAudits(ctx, db, document, history, opts)
	if err != nil {
		return err
	}

	comparison := report.Compare(previous, current)

	var writer report.Writer
	switch {
	case opts.json:
		writer = report.NewJSONWriter(out, report.WithPrettyPrint())
	case opts.markdown:
		writer = report.NewMarkdownWriter(out)
	default:
		var writerOpts []report.SimpleWriterOption
		if opts.noColor {
			writerOpts = append(writerOpts, report.WithColor(false))
		}
		writer = report.NewSimpleWriter(out, writerOpts...)
	}

	_, err = writer.WriteComparison(comparison)
	return err
}
