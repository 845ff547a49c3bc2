package audit

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/docaudit/internal/config"
	"github.com/nao1215/docaudit/internal/model"
)

// Engine runs every auditor over a document and merges their findings.
type Engine struct {
	// embedder backs the semantic auditor. Nil skips semantic pair checks.
	embedder Embedder

	// logger is used for structured logging during an audit.
	logger *slog.Logger

	// embedTimeout bounds each embedding request.
	embedTimeout time.Duration

	// retryBackoff is the wait before retrying a failed embedding request.
	retryBackoff time.Duration

	// extra are auditors run in addition to the built-in ones.
	extra []Auditor

	// replace, when set, builds the auditor list instead of the built-in set.
	replace func(rc *config.ReferenceConfig) []Auditor
}

// Option is a function that configures an Engine.
type Option func(*Engine)

// WithLogger sets a custom logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithEmbedTimeout sets the timeout of each embedding request.
func WithEmbedTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.embedTimeout = d
		}
	}
}

// WithRetryBackoff sets the wait before the single retry of a failed
// embedding request.
func WithRetryBackoff(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.retryBackoff = d
		}
	}
}

// WithAuditors registers auditors that run alongside the built-in ones.
func WithAuditors(auditors ...Auditor) Option {
	return func(e *Engine) {
		e.extra = append(e.extra, auditors...)
	}
}

// WithAuditorFactory replaces the built-in auditor set. The factory is
// called once per audit with the validated reference configuration.
func WithAuditorFactory(factory func(rc *config.ReferenceConfig) []Auditor) Option {
	return func(e *Engine) {
		e.replace = factory
	}
}

// NewEngine creates a new Engine. embedder may be nil.
func NewEngine(embedder Embedder, opts ...Option) *Engine {
	e := &Engine{
		embedder:     embedder,
		embedTimeout: config.DefaultEmbedTimeout,
		retryBackoff: config.DefaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Auditors returns the auditors an audit with rc runs, in report order.
func (e *Engine) Auditors(rc *config.ReferenceConfig) []Auditor {
	if e.replace != nil {
		return append(e.replace(rc), e.extra...)
	}
	auditors := []Auditor{
		NewFormatAuditor(),
		NewColorAuditor(PaletteFromConfig(rc), rc.Metric()),
		NewComplianceAuditor(rc.DisclaimerTemplates, rc.Threshold(config.ThresholdCompliance)),
		NewEntityAuditor(rc.CanonicalEntities, rc.IgnoredEntities, rc.Threshold(config.ThresholdEntity)),
		NewSemanticAuditor(e.embedder, rc, SemanticOptions{
			Timeout:      e.embedTimeout,
			RetryBackoff: e.retryBackoff,
			Logger:       e.logger,
		}),
	}
	return append(auditors, e.extra...)
}

// Audit checks fragments against rc and returns the merged report.
//
// An invalid rc is returned as a *config.ConfigError and no report is
// produced. Any other failure is contained: an auditor that returns an
// error or panics contributes one critical finding instead of its own.
// Cancelling ctx aborts the audit with ctx.Err().
func (e *Engine) Audit(ctx context.Context, fragments []model.PageFragment, rc *config.ReferenceConfig) (*model.AuditReport, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	data := NewAuditData(fragments)
	auditors := e.Auditors(rc)

	e.logger.Debug("starting audit",
		"fragments", len(fragments),
		"rejected", len(data.Rejected),
		"pages", len(data.Pages),
		"auditors", len(auditors),
	)

	results := make([][]model.Finding, len(auditors))

	// Auditor failures are converted to findings, so the group only ever
	// sees ctx errors.
	var g errgroup.Group
	for i, auditor := range auditors {
		g.Go(func() error {
			results[i] = e.runAuditor(ctx, auditor, data)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // goroutines never return an error

	if err := ctx.Err(); err != nil {
		e.logger.Warn("audit cancelled", "reason", err)
		return nil, err
	}

	var all []model.Finding
	for _, findings := range results {
		all = append(all, findings...)
	}
	report := model.NewAuditReport(all, data.Pages)

	e.logger.Info("audit complete",
		"pages", len(report.PagesAudited),
		"findings", report.TotalFindings(),
		"critical", report.Count(model.SeverityCritical),
		"warning", report.Count(model.SeverityWarning),
		"info", report.Count(model.SeverityInfo),
		"elapsed", time.Since(start),
	)
	return report, nil
}

// runAuditor runs one auditor, turning an error or panic into a single
// critical finding.
func (e *Engine) runAuditor(ctx context.Context, auditor Auditor, data *AuditData) (findings []model.Finding) {
	name := auditor.Name()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("auditor panicked",
				"auditor", string(name),
				"panic", r,
				"stack", string(debug.Stack()),
			)
			findings = []model.Finding{auditorFailed(name, fmt.Errorf("panic: %v", r))}
		}
	}()

	findings, err := auditor.Audit(ctx, data)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		e.logger.Error("auditor failed",
			"auditor", string(name),
			"error", err,
		)
		return []model.Finding{auditorFailed(name, err)}
	}
	e.logger.Debug("auditor completed",
		"auditor", string(name),
		"findings", len(findings),
	)
	return findings
}

// auditorFailed is the finding recorded for a failed auditor.
func auditorFailed(name model.AuditorKind, err error) model.Finding {
	return model.NewFinding(
		name,
		model.CodeAuditorFailed,
		model.SeverityCritical,
		model.Location{},
		fmt.Sprintf("%s auditor failed: %v", name, err),
		map[string]any{
			"auditor": string(name),
			"error":   err.Error(),
		},
	)
}
