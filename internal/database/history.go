package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/docaudit/internal/model"
)

// FileName is the name of the database file inside the database directory.
const FileName = "docaudit.db"

// timestampLayout is fixed-width so stored timestamps sort as text.
const timestampLayout = "2006-01-02 15:04:05.000000000"

// Run statuses stored with each audit.
const (
	StatusComplete  = "complete"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// ErrNilAudit is returned when SaveAudit is called without an audit.
var ErrNilAudit = errors.New("audit is nil")

// AuditDB stores audit runs in SQLite.
type AuditDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures AuditDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates an AuditDB in dbDir.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*AuditDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc creates it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	adb := &AuditDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := adb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return adb, nil
}

// Path returns the path of the database file.
func (adb *AuditDB) Path() string {
	return adb.dbPath
}

// Close closes the database connection.
func (adb *AuditDB) Close() error {
	return adb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (adb *AuditDB) createTables() error {
	schema := `
	-- One row per audit run; the full run record is stored as JSON
	CREATE TABLE IF NOT EXISTS audits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		document TEXT NOT NULL,
		document_type TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT '',
		audited_at TEXT NOT NULL,
		status TEXT NOT NULL,
		total_findings INTEGER NOT NULL DEFAULT 0,
		summary TEXT,
		audit_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audits_document ON audits(document);
	CREATE INDEX IF NOT EXISTS idx_audits_audited_at ON audits(audited_at);
	`

	_, err := adb.db.ExecContext(context.Background(), schema)
	return err
}

// statusOf returns the stored status of a run.
func statusOf(audit *model.DocumentAudit) string {
	switch {
	case audit.Cancelled:
		return StatusCancelled
	case audit.Failed():
		return StatusFailed
	default:
		return StatusComplete
	}
}

// SaveAudit stores one audit run. Saving the same run ID twice replaces
// the earlier record.
func (adb *AuditDB) SaveAudit(ctx context.Context, audit *model.DocumentAudit) error {
	if audit == nil {
		return ErrNilAudit
	}

	auditJSON, err := json.Marshal(audit)
	if err != nil {
		return fmt.Errorf("failed to serialize audit: %w", err)
	}

	summary := make(map[model.Severity]int, len(model.Severities))
	total := 0
	for _, sev := range model.Severities {
		summary[sev] = 0
	}
	if audit.Report != nil {
		for _, sev := range model.Severities {
			summary[sev] = audit.Report.Count(sev)
		}
		total = audit.Report.TotalFindings()
	}
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to serialize summary: %w", err)
	}

	query := `
	INSERT INTO audits (run_id, document, document_type, source, audited_at, status, total_findings, summary, audit_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id) DO UPDATE SET
		document = excluded.document,
		document_type = excluded.document_type,
		source = excluded.source,
		audited_at = excluded.audited_at,
		status = excluded.status,
		total_findings = excluded.total_findings,
		summary = excluded.summary,
		audit_json = excluded.audit_json
	`

	_, err = adb.db.ExecContext(ctx, query,
		audit.RunID,
		audit.Document,
		audit.DocumentType,
		audit.Source,
		audit.DateAudited.UTC().Format(timestampLayout),
		statusOf(audit),
		total,
		string(summaryJSON),
		string(auditJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save audit: %w", err)
	}

	return nil
}

// decodeAudit parses a stored run record.
func decodeAudit(auditJSON string) (*model.DocumentAudit, error) {
	var audit model.DocumentAudit
	if err := json.Unmarshal([]byte(auditJSON), &audit); err != nil {
		return nil, fmt.Errorf("failed to parse audit: %w", err)
	}
	return &audit, nil
}

// GetLatestAudit retrieves the most recent audit of a document.
// It returns nil without error when the document has no history.
func (adb *AuditDB) GetLatestAudit(ctx context.Context, document string) (*model.DocumentAudit, error) {
	query := `
	SELECT audit_json FROM audits
	WHERE document = ?
	ORDER BY audited_at DESC, id DESC
	LIMIT 1
	`

	var auditJSON string
	err := adb.db.QueryRowContext(ctx, query, document).Scan(&auditJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get audit: %w", err)
	}

	return decodeAudit(auditJSON)
}

// GetAuditByID retrieves an audit by its database ID.
// It returns nil without error when no such audit exists.
func (adb *AuditDB) GetAuditByID(ctx context.Context, id int64) (*model.DocumentAudit, error) {
	query := `
	SELECT audit_json FROM audits
	WHERE id = ?
	`

	var auditJSON string
	err := adb.db.QueryRowContext(ctx, query, id).Scan(&auditJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get audit: %w", err)
	}

	return decodeAudit(auditJSON)
}

// ListDocuments returns the names of all audited documents.
func (adb *AuditDB) ListDocuments(ctx context.Context) ([]string, error) {
	query := `
	SELECT DISTINCT document FROM audits
	ORDER BY document
	`

	rows, err := adb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var documents []string
	for rows.Next() {
		var document string
		if err := rows.Scan(&document); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		documents = append(documents, document)
	}

	return documents, rows.Err()
}

// GetAuditHistory retrieves all audits of a document, newest first.
// Records that can no longer be parsed are skipped.
func (adb *AuditDB) GetAuditHistory(ctx context.Context, document string) ([]*model.DocumentAudit, error) {
	query := `
	SELECT audit_json FROM audits
	WHERE document = ?
	ORDER BY audited_at DESC, id DESC
	`

	rows, err := adb.db.QueryContext(ctx, query, document)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit history: %w", err)
	}
	defer rows.Close()

	var audits []*model.DocumentAudit
	for rows.Next() {
		var auditJSON string
		if err := rows.Scan(&auditJSON); err != nil {
			return nil, fmt.Errorf("failed to scan audit: %w", err)
		}

		audit, err := decodeAudit(auditJSON)
		if err != nil {
			continue
		}
		audits = append(audits, audit)
	}

	return audits, rows.Err()
}

// AuditMetadata contains summary information about a stored audit.
// This is used for listing history without loading full reports.
type AuditMetadata struct {
	// ID is the database ID of the audit.
	ID int64

	// RunID identifies the audit run.
	RunID string

	// Document is the audited document.
	Document string

	// DocumentType is the document type used for the run.
	DocumentType string

	// Timestamp is when the audit was performed.
	Timestamp time.Time

	// Status is "complete", "failed" or "cancelled".
	Status string

	// TotalFindings is the number of findings in the audit.
	TotalFindings int

	// Summary contains counts of findings by severity.
	Summary map[model.Severity]int
}

// GetAuditHistoryWithMetadata retrieves audit metadata for a document, newest first.
// This is more efficient than GetAuditHistory when only metadata is needed.
func (adb *AuditDB) GetAuditHistoryWithMetadata(ctx context.Context, document string) ([]AuditMetadata, error) {
	query := `
	SELECT id, run_id, document, document_type, audited_at, status, total_findings, summary
	FROM audits
	WHERE document = ?
	ORDER BY audited_at DESC, id DESC
	`

	rows, err := adb.db.QueryContext(ctx, query, document)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit history: %w", err)
	}
	defer rows.Close()

	var results []AuditMetadata
	for rows.Next() {
		var meta AuditMetadata
		var timestamp string
		var summaryJSON sql.NullString

		if err := rows.Scan(
			&meta.ID,
			&meta.RunID,
			&meta.Document,
			&meta.DocumentType,
			&timestamp,
			&meta.Status,
			&meta.TotalFindings,
			&summaryJSON,
		); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}

		meta.Timestamp = parseTimestamp(timestamp)

		meta.Summary = make(map[model.Severity]int)
		if summaryJSON.Valid && summaryJSON.String != "" {
			if err := json.Unmarshal([]byte(summaryJSON.String), &meta.Summary); err != nil {
				meta.Summary = make(map[model.Severity]int)
			}
		}

		results = append(results, meta)
	}

	return results, rows.Err()
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timestampLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
