package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/docaudit/internal/audit"
	"github.com/nao1215/docaudit/internal/config"
	"github.com/nao1215/docaudit/internal/database"
	"github.com/nao1215/docaudit/internal/embedding"
	"github.com/nao1215/docaudit/internal/fragments"
	"github.com/nao1215/docaudit/internal/log"
	"github.com/nao1215/docaudit/internal/pipeline"
)

// addEngineFlags registers the flags shared by the audit and watch commands.
func addEngineFlags(cmd *cobra.Command) {
	// Reference configuration
	cmd.Flags().StringP("reference", "r", "",
		"Reference file path (default: .docaudit.yaml in current, home or XDG config directory)")
	cmd.Flags().StringP("doc-type", "t", "",
		"Document type to audit against (overrides the document_type of fragment files)")

	// Concurrency
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of documents audited concurrently")

	// Embedding provider
	cmd.Flags().String("embed-provider", config.EmbedProviderHash,
		"Embedding provider for the semantic check: hash, ollama or none")
	cmd.Flags().String("embed-url", config.DefaultEmbedURL,
		"Base URL of the Ollama server")
	cmd.Flags().String("embed-model", config.DefaultEmbedModel,
		"Ollama embedding model")
	cmd.Flags().Duration("embed-timeout", config.DefaultEmbedTimeout,
		"Timeout of each embedding request")
	cmd.Flags().Duration("retry-backoff", config.DefaultRetryBackoff,
		"Wait before retrying a failed embedding request")

	// History and output
	cmd.Flags().Bool("no-db", false,
		"Do not store results in the audit history database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the audit history database")
	cmd.Flags().Bool("no-color", false,
		"Disable colored output")
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// newLogger creates the redacting logger selected by the global log flags.
func newLogger(cmd *cobra.Command, verbose bool) *slog.Logger {
	asJSON, err := cmd.Root().PersistentFlags().GetBool("log-json")
	if err == nil && asJSON {
		return log.NewJSONLogger(cmd.ErrOrStderr(), verbose)
	}
	return log.NewLogger(cmd.ErrOrStderr(), verbose)
}

// buildConfig creates a Config from the engine flags and input arguments.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.ReferenceFilePath, err = cmd.Flags().GetString("reference")
	if err != nil {
		return nil, err
	}

	cfg.DocumentType, err = cmd.Flags().GetString("doc-type")
	if err != nil {
		return nil, err
	}

	cfg.BatchSize, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}

	cfg.EmbedProvider, err = cmd.Flags().GetString("embed-provider")
	if err != nil {
		return nil, err
	}

	cfg.EmbedURL, err = cmd.Flags().GetString("embed-url")
	if err != nil {
		return nil, err
	}

	cfg.EmbedModel, err = cmd.Flags().GetString("embed-model")
	if err != nil {
		return nil, err
	}

	cfg.EmbedTimeout, err = cmd.Flags().GetDuration("embed-timeout")
	if err != nil {
		return nil, err
	}

	cfg.RetryBackoff, err = cmd.Flags().GetDuration("retry-backoff")
	if err != nil {
		return nil, err
	}

	noDB, err := cmd.Flags().GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB

	cfg.DBDir, err = cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}

	cfg.NoColor, err = cmd.Flags().GetBool("no-color")
	if err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	cfg.Inputs, err = expandInputs(args)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// expandInputs resolves the input arguments to fragment files.
// Directories are walked recursively for files with a fragment extension;
// files are taken as given. Duplicates are dropped.
func expandInputs(args []string) ([]string, error) {
	var inputs []string
	seen := make(map[string]bool)
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			inputs = append(inputs, path)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid input %s: %w", arg, err)
		}
		if !info.IsDir() {
			add(arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && fragments.IsFragmentFile(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to read directory %s: %w", arg, err)
		}
	}
	return inputs, nil
}

// loadReferenceFile finds and loads the reference file.
// An explicit path that does not exist is an error. Without an explicit
// path, a missing file yields an empty reference configuration.
// The returned string is the path that was loaded, if any.
func loadReferenceFile(path string) (*config.File, string, error) {
	found := config.FindConfigFile(path)
	if found == "" {
		if path != "" {
			return nil, "", fmt.Errorf("%w: %s", config.ErrConfigNotFound, path)
		}
		return &config.File{DocumentTypes: make(map[string]config.ReferenceConfig)}, "", nil
	}

	refFile, err := config.LoadConfigFile(found)
	if err != nil {
		return nil, found, fmt.Errorf("failed to load reference file %s: %w", found, err)
	}
	return refFile, found, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

// auditRunner holds everything needed to audit fragment files: the
// reference file, the engine and, when history is enabled, the database.
type auditRunner struct {
	cfg    *config.Config
	logger *slog.Logger
	ref    *config.File
	engine *audit.Engine
	db     *database.AuditDB
}

// newAuditRunner loads the reference file, checks the reference
// configuration of cfg.DocumentType and opens the history database.
// An invalid reference configuration is returned as a *config.ConfigError.
func newAuditRunner(cfg *config.Config, logger *slog.Logger) (*auditRunner, error) {
	ref, refPath, err := loadReferenceFile(cfg.ReferenceFilePath)
	if err != nil {
		return nil, err
	}
	if refPath == "" {
		logger.Warn("no reference file found, only fragment format checks are meaningful")
	} else {
		logger.Info("reference file loaded",
			"path", refPath,
			"document_types", ref.DocumentTypeNames(),
		)
	}

	rc, err := ref.GetReferenceConfig(cfg.DocumentType)
	if err != nil {
		return nil, err
	}
	if err := rc.Validate(); err != nil {
		return nil, err
	}

	embedder, err := embedding.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	r := &auditRunner{
		cfg:    cfg,
		logger: logger,
		ref:    ref,
		engine: audit.NewEngine(embedder,
			audit.WithLogger(logger),
			audit.WithEmbedTimeout(cfg.EmbedTimeout),
			audit.WithRetryBackoff(cfg.RetryBackoff),
		),
	}

	if cfg.SaveToDB {
		r.db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		logger.Info("database opened", "path", r.db.Path())
	}

	return r, nil
}

// Close releases the history database.
func (r *auditRunner) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// newPipeline creates the pipeline for one document.
func (r *auditRunner) newPipeline() *pipeline.Pipeline {
	var recorder pipeline.Recorder
	if r.db != nil {
		recorder = r.db
	}
	return pipeline.DefaultPipeline(r.engine, r.ref.GetReferenceConfig, recorder,
		pipeline.WithLogger(r.logger),
		pipeline.WithContinueOnError(false),
	)
}

// batchProcessor creates a batch processor for a set of fragment files.
func (r *auditRunner) batchProcessor() *pipeline.BatchProcessor {
	return pipeline.NewBatchProcessor(r.newPipeline,
		pipeline.WithConcurrency(r.cfg.BatchSize),
		pipeline.WithDocumentType(r.cfg.DocumentType),
		pipeline.WithBatchLogger(r.logger),
	)
}
