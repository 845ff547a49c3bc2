package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/docaudit/internal/config"
	"github.com/nao1215/docaudit/internal/model"
	"github.com/nao1215/docaudit/internal/report"
)

var (
	// errFailOn is returned when a finding reaches the --fail-on severity.
	errFailOn = errors.New("findings at or above the --fail-on severity")

	// errDocumentsFailed is returned when some documents could not be audited.
	errDocumentsFailed = errors.New("some documents could not be audited")
)

// Exit codes.
const (
	exitError  = 1
	exitFailOn  = 2
)

// exitCode maps a command error to the process exit code.
func exitCode(err error) int {
	if errors.Is(err, errFailOn) {
		return exitFailOn
	}
	return exitError
}

// NewAuditCmd creates the audit command.
func NewAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit [fragment-file|directory...]",
		Short: "Audit documents against the reference configuration",
		Long: `Audit checks extracted page fragments against the reference configuration.

Inputs are fragment files (.json, .msgpack) or directories containing them.
Every document is checked for:
- Fragments with invalid page numbers, boxes or colors
- Colors outside the brand palette
- Missing required and optional disclaimers
- Company and product names that differ from their canonical spelling
- Labelled figures that disagree between sections
- Paired sections whose meaning diverges

Results are stored in the audit history database unless --no-db is given,
so that later runs can be compared with 'docaudit compare'.

Examples:
  # Audit a single document
  docaudit audit annual-report.json

  # Audit every fragment file in a directory, four at a time
  docaudit audit --batch 4 ./extracted

  # Use a specific reference file and document type
  docaudit audit -r brand.yaml -t factsheet fund-a.json

  # Write a Markdown report to a file
  docaudit audit --markdown -o reports/annual.md annual-report.json

  # Fail the build when critical findings are present
  docaudit audit --fail-on critical annual-report.json`,
		Args: cobra.ArbitraryArgs,
		RunE: runAuditCmd,
	}

	addEngineFlags(cmd)

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("report-only", false,
		"With --json, output only the findings report of each document")
	cmd.Flags().String("fail-on", "",
		"Exit with status 2 when a finding of this severity or higher is found: info, warning or critical")

	return cmd
}

// auditOutput holds the report flags of the audit command.
type auditOutput struct {
	reportOnly bool
	failOn     *model.Severity
}

// runAuditCmd executes the audit command.
func runAuditCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	output, err := applyReportFlags(cmd, cfg)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cmd, cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	audits, err := runAudit(ctx, cfg, output, logger, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	return checkAudits(audits, output.failOn)
}

// applyReportFlags reads the report flags into cfg and returns the
// command-local output settings.
func applyReportFlags(cmd *cobra.Command, cfg *config.Config) (auditOutput, error) {
	var (
		output auditOutput
		err    error
	)

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return output, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return output, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return output, err
	}

	output.reportOnly, err = cmd.Flags().GetBool("report-only")
	if err != nil {
		return output, err
	}

	failOn, err := cmd.Flags().GetString("fail-on")
	if err != nil {
		return output, err
	}
	if failOn != "" {
		severity, err := model.ParseSeverity(failOn)
		if err != nil {
			return output, fmt.Errorf("invalid --fail-on value: %w", err)
		}
		output.failOn = &severity
	}

	return output, nil
}

// runAudit audits every input and writes the reports in input order.
// The returned error is non-nil when setup fails, a report cannot be
// written or the run was cancelled.
func runAudit(ctx context.Context, cfg *config.Config, output auditOutput, logger *slog.Logger, stdout io.Writer) ([]*model.DocumentAudit, error) {
	logger.Info("starting audit",
		"inputs", len(cfg.Inputs),
		"batchSize", cfg.BatchSize,
		"embedProvider", cfg.EmbedProvider,
		"saveToDB", cfg.SaveToDB,
	)

	runner, err := newAuditRunner(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer runner.Close()

	out, closeOut, err := openOutput(cfg.ReportFile, stdout)
	if err != nil {
		return nil, err
	}
	defer closeOut()

	writer := newReportWriter(cfg, output, out)

	startTime := time.Now()
	audits, batchErr := runner.batchProcessor().ProcessBatch(ctx, cfg.Inputs)

	for _, a := range audits {
		if a == nil {
			continue
		}
		if _, err := writer.Write(a); err != nil {
			return audits, fmt.Errorf("failed to write report: %w", err)
		}
	}

	logger.Info("audit finished",
		"documents", len(cfg.Inputs),
		"elapsed", time.Since(startTime).Round(time.Millisecond),
	)

	if batchErr != nil {
		return audits, fmt.Errorf("audit interrupted: %w", batchErr)
	}
	return audits, nil
}

// checkAudits turns failed documents and findings at the fail-on severity
// into an error.
func checkAudits(audits []*model.DocumentAudit, failOn *model.Severity) error {
	var failed []string
	reached := false

	for _, a := range audits {
		if a == nil {
			continue
		}
		if a.Failed() {
			failed = append(failed, a.Document)
			continue
		}
		if failOn == nil || a.Report == nil {
			continue
		}
		for _, f := range a.Report.Findings {
			if f.Severity >= *failOn {
				reached = true
				break
			}
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("%w: %v", errDocumentsFailed, failed)
	}
	if reached {
		return fmt.Errorf("%w (%s)", errFailOn, *failOn)
	}
	return nil
}

// newReportWriter selects the report format.
func newReportWriter(cfg *config.Config, output auditOutput, out io.Writer) report.Writer {
	switch {
	case cfg.JSONReport && output.reportOnly:
		return report.NewJSONWriter(out, report.WithPrettyPrint(), report.WithReportOnly())
	case cfg.JSONReport:
		return report.NewFullJSONWriter(out, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(out)
	default:
		opts := []report.SimpleWriterOption{report.WithVerbose(cfg.Verbose)}
		if cfg.NoColor || cfg.ReportFile != "" {
			opts = append(opts, report.WithColor(false))
		}
		return report.NewSimpleWriter(out, opts...)
	}
}

// openOutput opens the report destination. An empty path selects stdout.
// The returned function closes the file, if one was opened.
func openOutput(path string, stdout io.Writer) (io.Writer, func(), error) {
	if path == "" {
		return stdout, func() {}, nil
	}

	// Create directories if they don't exist
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports quote document text, so only the owner may read them.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
