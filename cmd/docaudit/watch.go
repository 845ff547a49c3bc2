package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/nao1215/docaudit/internal/config"
	"github.com/nao1215/docaudit/internal/fragments"
	"github.com/nao1215/docaudit/internal/model"
	"github.com/nao1215/docaudit/internal/report"
)

// NewWatchCmd creates the watch command.
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <directory>",
		Short: "Re-audit fragment files whenever they change",
		Long: `Watch monitors a directory tree and audits every fragment file that is
created or modified. Bursts of events for the same files are collapsed into
one audit after the debounce interval.

A text report of each audit is printed. With --output, JSON reports are
also appended to a file, one per line.

Examples:
  # Watch the extraction output directory
  docaudit watch ./extracted

  # Keep a JSON log of every audit
  docaudit watch -o audits.jsonl ./extracted`,
		Args: cobra.ExactArgs(1),
		RunE: runWatchCmd,
	}

	addEngineFlags(cmd)

	cmd.Flags().Duration("debounce", config.DefaultWatchDebounce,
		"Quiet period before changed files are audited")
	cmd.Flags().StringP("output", "o", "",
		"Append JSON reports to this file")

	return cmd
}

// runWatchCmd executes the watch command.
func runWatchCmd(cmd *cobra.Command, args []string) error {
	dir := args[0]
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("invalid directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", dir)
	}

	cfg, err := buildConfig(cmd, nil)
	if err != nil {
		return err
	}
	cfg.Inputs = []string{dir}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	debounce, err := cmd.Flags().GetDuration("debounce")
	if err != nil {
		return err
	}
	jsonPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	logger := newLogger(cmd, cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	runner, err := newAuditRunner(cfg, logger)
	if err != nil {
		return err
	}
	defer runner.Close()

	out := cmd.OutOrStdout()
	writer, closeWriter, err := newWatchWriter(cfg, out, jsonPath)
	if err != nil {
		return err
	}
	defer closeWriter()

	w := &dirWatcher{
		runner:   runner,
		writer:   writer,
		debounce: debounce,
		logger:   logger,
		out:      out,
	}

	fmt.Fprintf(out, "Watching %s for fragment changes (Ctrl+C to stop)...\n", dir)
	return w.Watch(ctx, dir)
}

// newWatchWriter returns the text writer, combined with a JSON lines
// writer when jsonPath is set.
func newWatchWriter(cfg *config.Config, out io.Writer, jsonPath string) (report.Writer, func(), error) {
	var textOpts []report.SimpleWriterOption
	if cfg.NoColor {
		textOpts = append(textOpts, report.WithColor(false))
	}
	text := report.NewSimpleWriter(out, textOpts...)
	if jsonPath == "" {
		return text, func() {}, nil
	}

	dir := filepath.Dir(jsonPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.OpenFile(jsonPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open output file: %w", err)
	}

	writer := report.NewMultiWriter(text, report.NewFullJSONWriter(f, getVersion()))
	return writer, func() { _ = f.Close() }, nil
}

// dirWatcher audits fragment files under a directory as they change.
type dirWatcher struct {
	runner   *auditRunner
	writer   report.Writer
	debounce time.Duration
	logger   *slog.Logger

	// out receives progress messages.
	out io.Writer

	// mu serializes report output.
	mu sync.Mutex
}

// Watch blocks until ctx is cancelled or the watcher fails.
func (w *dirWatcher) Watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := addWatchRecursive(watcher, dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	pending := make(map[string]bool)
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if w.handleEvent(watcher, event, pending) {
				timer.Reset(w.debounce)
			}

		case <-timer.C:
			files := slices.Sorted(maps.Keys(pending))
			clear(pending)
			w.auditFiles(ctx, files)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// handleEvent records a changed fragment file in pending and reports
// whether the debounce timer should restart. New directories are watched.
func (w *dirWatcher) handleEvent(watcher *fsnotify.Watcher, event fsnotify.Event, pending map[string]bool) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := addWatchRecursive(watcher, event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
			}
			return false
		}
	}

	if !fragments.IsFragmentFile(event.Name) || isHidden(event.Name) {
		return false
	}

	w.logger.Debug("fragment file changed", "path", event.Name, "op", event.Op.String())
	pending[event.Name] = true
	return true
}

// auditFiles audits the given files and writes a report for each one as
// soon as it completes.
func (w *dirWatcher) auditFiles(ctx context.Context, files []string) {
	if len(files) == 0 {
		return
	}

	w.mu.Lock()
	fmt.Fprintf(w.out, "\n%d changed file(s), auditing...\n", len(files))
	w.mu.Unlock()

	bp := w.runner.batchProcessor()
	err := bp.ProcessBatchWithCallback(ctx, files, func(a *model.DocumentAudit, _ int) {
		w.mu.Lock()
		defer w.mu.Unlock()

		if _, err := w.writer.Write(a); err != nil {
			w.logger.Error("report failed", "document", a.Document, "error", err)
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		w.logger.Error("audit failed", "error", err)
	}
}

// addWatchRecursive adds root and every directory below it to the watcher.
// Hidden directories are skipped.
func addWatchRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && isHidden(path) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

// isHidden reports whether the base name of path starts with a dot.
// Editors write temporary files this way.
func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
