package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nao1215/docaudit/internal/audit"
	"github.com/nao1215/docaudit/internal/config"
	"github.com/nao1215/docaudit/internal/fragments"
	"github.com/nao1215/docaudit/internal/model"
)

// ErrNoFragments is returned by AuditStep when LoadStep has not run.
var ErrNoFragments = errors.New("no fragments loaded")

// LoadStep decodes the fragment file named by the audit record's Source.
type LoadStep struct {
	// logger for structured logging.
	logger *slog.Logger
}

// LoadStepOption configures a LoadStep.
type LoadStepOption func(*LoadStep)

// WithLoadLogger sets a custom logger for the load step.
func WithLoadLogger(logger *slog.Logger) LoadStepOption {
	return func(s *LoadStep) {
		s.logger = logger
	}
}

// NewLoadStep creates a new fragment loading step.
func NewLoadStep(opts ...LoadStepOption) *LoadStep {
	s := &LoadStep{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *LoadStep) Name() string {
	return "load"
}

// Do loads the fragments. The document name and type declared in the file
// take effect unless the record already has them set explicitly.
func (s *LoadStep) Do(_ context.Context, a *model.DocumentAudit) error {
	doc, err := fragments.Load(a.Source)
	if err != nil {
		return err
	}

	a.Fragments = doc.Fragments
	if a.Fragments == nil {
		a.Fragments = []model.PageFragment{}
	}
	if doc.Name != "" {
		a.Document = doc.Name
	}
	if a.DocumentType == "" {
		a.DocumentType = doc.DocumentType
	}

	s.logger.Debug("fragments loaded",
		"document", a.Document,
		"fragments", len(doc.Fragments),
	)
	return nil
}

// ReferenceResolver returns the reference configuration for a document type.
// config.File.GetReferenceConfig satisfies it.
type ReferenceResolver func(docType string) (*config.ReferenceConfig, error)

// AuditStep runs the audit engine over the loaded fragments.
type AuditStep struct {
	// engine runs the auditors.
	engine *audit.Engine

	// resolve picks the reference configuration of the document.
	resolve ReferenceResolver

	// logger for structured logging.
	logger *slog.Logger
}

// AuditStepOption configures an AuditStep.
type AuditStepOption func(*AuditStep)

// WithAuditLogger sets a custom logger for the audit step.
func WithAuditLogger(logger *slog.Logger) AuditStepOption {
	return func(s *AuditStep) {
		s.logger = logger
	}
}

// NewAuditStep creates a new audit step.
func NewAuditStep(engine *audit.Engine, resolve ReferenceResolver, opts ...AuditStepOption) *AuditStep {
	s := &AuditStep{
		engine:  engine,
		resolve: resolve,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *AuditStep) Name() string {
	return "audit"
}

// Do audits the fragments and stores the report in the record.
// The decoded fragments are released afterwards.
func (s *AuditStep) Do(ctx context.Context, a *model.DocumentAudit) error {
	if a.Fragments == nil {
		return ErrNoFragments
	}

	rc, err := s.resolve(a.DocumentType)
	if err != nil {
		return err
	}

	report, err := s.engine.Audit(ctx, a.Fragments, rc)
	if err != nil {
		return fmt.Errorf("audit of %s failed: %w", a.Document, err)
	}

	a.Report = report
	a.Fragments = nil

	s.logger.Info("document audited",
		"document", a.Document,
		"findings", report.TotalFindings(),
		"critical", report.Count(model.SeverityCritical),
	)
	return nil
}

// Recorder persists audit records.
type Recorder interface {
	SaveAudit(ctx context.Context, a *model.DocumentAudit) error
}

// SaveStep stores the audit record for later comparison.
type SaveStep struct {
	// recorder persists the record.
	recorder Recorder

	// logger for structured logging.
	logger *slog.Logger
}

// SaveStepOption configures a SaveStep.
type SaveStepOption func(*SaveStep)

// WithSaveLogger sets a custom logger for the save step.
func WithSaveLogger(logger *slog.Logger) SaveStepOption {
	return func(s *SaveStep) {
		s.logger = logger
	}
}

// NewSaveStep creates a new save step.
func NewSaveStep(recorder Recorder, opts ...SaveStepOption) *SaveStep {
	s := &SaveStep{
		recorder: recorder,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *SaveStep) Name() string {
	return "save"
}

// Do saves the record. Records without a report are skipped.
func (s *SaveStep) Do(ctx context.Context, a *model.DocumentAudit) error {
	if a.Report == nil {
		s.logger.Debug("skipping save, no report", "document", a.Document)
		return nil
	}
	if err := s.recorder.SaveAudit(ctx, a); err != nil {
		return fmt.Errorf("failed to save audit: %w", err)
	}
	return nil
}

// DefaultPipeline creates a pipeline that loads, audits and, when recorder
// is not nil, saves one document.
func DefaultPipeline(engine *audit.Engine, resolve ReferenceResolver, recorder Recorder, opts ...Option) *Pipeline {
	p := New(opts...)

	p.AddSteps(
		NewLoadStep(WithLoadLogger(p.logger)),
		NewAuditStep(engine, resolve, WithAuditLogger(p.logger)),
	)
	if recorder != nil {
		p.AddStep(NewSaveStep(recorder, WithSaveLogger(p.logger)))
	}

	return p
}
