package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/docaudit/internal/model"
)

// BatchProcessor audits multiple fragment files concurrently.
// It uses errgroup to manage goroutines and respect concurrency limits.
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each document.
	pipelineFactory func() *Pipeline

	// concurrency is the maximum number of concurrent audits.
	concurrency int

	// documentType is the default document type for inputs that do not
	// declare one.
	documentType string

	// newRunID generates the run ID of each audit.
	newRunID func() string

	// logger is used for batch-level logging.
	logger *slog.Logger

	// results stores completed audit records.
	// Access is synchronized via mutex.
	results []*model.DocumentAudit
	mu      sync.Mutex
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent audits.
// Default is 4 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithDocumentType sets the document type used for inputs that do not
// declare their own.
func WithDocumentType(docType string) BatchOption {
	return func(b *BatchProcessor) {
		b.documentType = docType
	}
}

// WithRunIDGenerator replaces the random run ID generator.
func WithRunIDGenerator(gen func() string) BatchOption {
	return func(b *BatchProcessor) {
		if gen != nil {
			b.newRunID = gen
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
//
// The pipelineFactory function is called for each document so that
// pipeline state does not leak between audits.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     4,
		newRunID:        uuid.NewString,
		results:         make([]*model.DocumentAudit, 0),
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// newAudit creates the record for one input file.
func (bp *BatchProcessor) newAudit(input string) *model.DocumentAudit {
	audit := model.NewDocumentAudit(bp.newRunID(), filepath.Base(input), bp.documentType)
	audit.Source = input
	return audit
}

// ProcessBatch audits multiple fragment files concurrently.
// It respects the configured concurrency limit and context cancellation.
//
// Returns all records in input order, including failed ones. The error
// return is non-nil only when the batch was cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, inputs []string) ([]*model.DocumentAudit, error) {
	bp.logger.Info("starting batch processing",
		"total_documents", len(inputs),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	// Pre-allocate results slice to maintain order
	bp.results = make([]*model.DocumentAudit, len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, input := range inputs {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Debug("auditing document",
				"input", input,
				"index", i+1,
				"total", len(inputs),
			)

			audit := bp.newAudit(input)
			pipeline := bp.pipelineFactory()
			err := pipeline.Execute(ctx, audit)

			// Store result regardless of error; the record carries it.
			bp.mu.Lock()
			bp.results[i] = audit
			bp.mu.Unlock()

			if err != nil {
				bp.logger.Warn("audit failed",
					"input", input,
					"error", err,
				)
				return nil
			}

			bp.logger.Debug("audit completed",
				"input", input,
			)

			return nil
		})
	}

	err := g.Wait()

	bp.logger.Info("batch processing complete",
		"total_documents", len(inputs),
		"elapsed", time.Since(startTime),
	)

	return bp.results, err
}

// ProcessBatchWithCallback audits multiple files and calls callback for
// each completed audit. This is useful for streaming results.
//
// The callback receives the record and the index of the input. It is
// called from the goroutine that completed the audit, so it must be safe
// for concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	inputs []string,
	callback func(audit *model.DocumentAudit, index int),
) error {
	bp.logger.Info("starting batch processing with callback",
		"total_documents", len(inputs),
		"concurrency", bp.concurrency,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, input := range inputs {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			audit := bp.newAudit(input)
			pipeline := bp.pipelineFactory()
			_ = pipeline.Execute(ctx, audit) //nolint:errcheck // Error is stored in the record

			callback(audit, i)

			return nil
		})
	}

	return g.Wait()
}
