package database

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/blake2b"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/scanlibs/internal/depsfile"
	"github.com/nao1215/scanlibs/internal/model"
)

// FileName is the database file created inside the data directory.
const FileName = "scanlibs.db"

// HistoryDB stores scans and their dependency edges.
type HistoryDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	dsn := dbPath + "?mode=rwc"
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	} else {
		if _, err := os.Stat(dbPath); err != nil {
			return nil, fmt.Errorf("database not found at %s: %w", dbPath, err)
		}
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return hdb, nil
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

func (h *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		label TEXT NOT NULL DEFAULT '',
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		deps TEXT NOT NULL,
		digest TEXT NOT NULL,
		summary TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_scans_timestamp ON scans(timestamp);

	-- One row per dependency edge, keyed by scan
	CREATE TABLE IF NOT EXISTS edges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scan_id INTEGER NOT NULL REFERENCES scans(id) ON DELETE CASCADE,
		path TEXT NOT NULL,
		library TEXT NOT NULL,
		linked INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_edges_scan ON edges(scan_id);
	CREATE INDEX IF NOT EXISTS idx_edges_library ON edges(library);
	`
	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// ScanMetadata describes a stored scan without its records.
type ScanMetadata struct {
	ID        int64
	Label     string
	Timestamp time.Time
	Digest    string
	Summary   *model.Summary
}

// Scan is a stored scan with its records.
type Scan struct {
	ScanMetadata
	Stream model.Stream
}

// Digest returns the hex BLAKE2b-256 digest of deps file content.
func Digest(deps []byte) string {
	sum := blake2b.Sum256(deps)
	return hex.EncodeToString(sum[:])
}

// SaveScan stores s under label and returns the new scan ID.
func (h *HistoryDB) SaveScan(ctx context.Context, label string, s model.Stream) (int64, error) {
	deps, err := depsfile.Marshal(s)
	if err != nil {
		return 0, fmt.Errorf("failed to encode scan: %w", err)
	}
	summaryJSON, err := json.Marshal(model.NewSummary(s))
	if err != nil {
		return 0, fmt.Errorf("failed to serialize summary: %w", err)
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // no-op after commit

	res, err := tx.ExecContext(ctx,
		`INSERT INTO scans (label, deps, digest, summary) VALUES (?, ?, ?, ?)`,
		label, string(deps), Digest(deps), string(summaryJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save scan: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read scan id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO edges (scan_id, path, library, linked) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare edge insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range s {
		for _, lib := range r.Outcome.All() {
			if _, err := stmt.ExecContext(ctx, id, r.Path, model.Label(lib), r.Outcome.IsLinked(lib)); err != nil {
				return 0, fmt.Errorf("failed to save edge %s -> %s: %w", r.Path, lib, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit scan: %w", err)
	}
	return id, nil
}

// ListScans returns metadata for every stored scan, newest first.
func (h *HistoryDB) ListScans(ctx context.Context) ([]ScanMetadata, error) {
	rows, err := h.db.QueryContext(ctx, `
	SELECT id, label, timestamp, digest, summary
	FROM scans
	ORDER BY id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	defer rows.Close()

	var results []ScanMetadata
	for rows.Next() {
		var (
			meta        ScanMetadata
			timestamp   string
			summaryJSON sql.NullString
		)
		if err := rows.Scan(&meta.ID, &meta.Label, &timestamp, &meta.Digest, &summaryJSON); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}
		meta.Timestamp = parseTimestamp(timestamp)
		meta.Summary = parseSummary(summaryJSON)
		results = append(results, meta)
	}
	return results, rows.Err()
}

// GetScan returns the scan with the given ID, or nil if there is none.
func (h *HistoryDB) GetScan(ctx context.Context, id int64) (*Scan, error) {
	row := h.db.QueryRowContext(ctx, `
	SELECT id, label, timestamp, digest, summary, deps
	FROM scans
	WHERE id = ?
	`, id)
	return scanRow(row)
}

// LatestScans returns up to n scans, newest first.
func (h *HistoryDB) LatestScans(ctx context.Context, n int) ([]*Scan, error) {
	rows, err := h.db.QueryContext(ctx, `
	SELECT id, label, timestamp, digest, summary, deps
	FROM scans
	ORDER BY id DESC
	LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest scans: %w", err)
	}
	defer rows.Close()

	var scans []*Scan
	for rows.Next() {
		scan, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		scans = append(scans, scan)
	}
	return scans, rows.Err()
}

// Dependent is a scanned file referencing a library.
type Dependent struct {
	Path   string
	Linked bool
}

// Dependents returns the files in scan scanID that reference library,
// matched by file name, in the order they were saved.
func (h *HistoryDB) Dependents(ctx context.Context, scanID int64, library string) ([]Dependent, error) {
	rows, err := h.db.QueryContext(ctx, `
	SELECT path, linked FROM edges
	WHERE scan_id = ? AND library = ?
	ORDER BY id
	`, scanID, model.Label(library))
	if err != nil {
		return nil, fmt.Errorf("failed to query dependents: %w", err)
	}
	defer rows.Close()

	var results []Dependent
	for rows.Next() {
		var d Dependent
		if err := rows.Scan(&d.Path, &d.Linked); err != nil {
			return nil, fmt.Errorf("failed to scan dependent: %w", err)
		}
		results = append(results, d)
	}
	return results, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(row rowScanner) (*Scan, error) {
	var (
		scan        Scan
		timestamp   string
		summaryJSON sql.NullString
		deps        string
	)
	err := row.Scan(&scan.ID, &scan.Label, &timestamp, &scan.Digest, &summaryJSON, &deps)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}

	scan.Timestamp = parseTimestamp(timestamp)
	scan.Summary = parseSummary(summaryJSON)
	scan.Stream, err = depsfile.Unmarshal([]byte(deps))
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored scan %d: %w", scan.ID, err)
	}
	return &scan, nil
}

// parseSummary decodes a stored summary. Missing or malformed summaries
// yield nil.
func parseSummary(s sql.NullString) *model.Summary {
	if !s.Valid || s.String == "" {
		return nil
	}
	var sum model.Summary
	if err := json.Unmarshal([]byte(s.String), &sum); err != nil {
		return nil
	}
	return &sum
}

// timestampFormats contains the timestamp formats that SQLite may return.
var timestampFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999",
}

// parseTimestamp tries each known format and returns the zero time when
// none match.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
