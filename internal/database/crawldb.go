package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/ticketwatch/internal/model"
)

// DBFile is the database file name inside the database directory.
const DBFile = "ticketwatch.db"

// CrawlDB provides SQLite-based storage for the crawl history.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging. Readers such as the history
	// command do not block a running crawl.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB in dbDir.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, DBFile)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc creates it.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- One row per finished crawl
	CREATE TABLE IF NOT EXISTS crawl_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		start_url TEXT NOT NULL,
		mode TEXT NOT NULL,
		persistence TEXT NOT NULL,
		pages INTEGER NOT NULL DEFAULT 0,
		records INTEGER NOT NULL DEFAULT 0,
		truncated INTEGER NOT NULL DEFAULT 0,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		output_path TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_finished ON crawl_runs(finished_at);

	-- Records of a run in page order
	CREATE TABLE IF NOT EXISTS crawl_records (
		run_id INTEGER NOT NULL REFERENCES crawl_runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		title TEXT NOT NULL,
		link TEXT,
		location TEXT,
		PRIMARY KEY (run_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_records_title ON crawl_records(title);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// Run is a finished crawl as stored in the history.
type Run struct {
	// ID is assigned by SaveRun.
	ID int64

	// StartURL is the first listing page.
	StartURL string

	// Mode and Persistence used by the crawl.
	Mode        model.Mode
	Persistence model.Persistence

	// Pages is the number of pages fetched.
	Pages int

	// RecordCount is the number of records produced. SaveRun sets it
	// from Records.
	RecordCount int

	// Truncated reports that the page limit stopped the crawl.
	Truncated bool

	StartedAt  time.Time
	FinishedAt time.Time

	// OutputPath is the records file the run was persisted to.
	OutputPath string

	// Records is only used by SaveRun; ListRuns and GetRun leave it empty.
	Records []model.Record
}

// SaveRun stores a run and its records in one transaction and returns the run ID.
func (cdb *CrawlDB) SaveRun(ctx context.Context, run *Run) (int64, error) {
	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	result, err := tx.ExecContext(ctx, `
	INSERT INTO crawl_runs (start_url, mode, persistence, pages, records, truncated, started_at, finished_at, output_path)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.StartURL,
		run.Mode.String(),
		run.Persistence.String(),
		run.Pages,
		len(run.Records),
		run.Truncated,
		formatTimestamp(run.StartedAt),
		formatTimestamp(run.FinishedAt),
		run.OutputPath,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert crawl run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO crawl_records (run_id, position, title, link, location)
	VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare record insert: %w", err)
	}
	defer stmt.Close()

	for i, record := range run.Records {
		if _, err := stmt.ExecContext(ctx, id, i, record.Title, record.Link, record.Location); err != nil {
			return 0, fmt.Errorf("failed to insert record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit crawl run: %w", err)
	}

	run.ID = id
	run.RecordCount = len(run.Records)
	return id, nil
}

// ListRuns returns the most recent runs first. A limit <= 0 returns all runs.
func (cdb *CrawlDB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
	SELECT id, start_url, mode, persistence, pages, records, truncated, started_at, finished_at, output_path
	FROM crawl_runs
	ORDER BY id DESC
	`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list crawl runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

// GetRun retrieves a run by ID. It returns nil without error if no such run exists.
func (cdb *CrawlDB) GetRun(ctx context.Context, id int64) (*Run, error) {
	row := cdb.db.QueryRowContext(ctx, `
	SELECT id, start_url, mode, persistence, pages, records, truncated, started_at, finished_at, output_path
	FROM crawl_runs
	WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// GetRunRecords returns the records of a run in crawl order.
func (cdb *CrawlDB) GetRunRecords(ctx context.Context, id int64) ([]model.Record, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT title, link, location
	FROM crawl_records
	WHERE run_id = ?
	ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get run records: %w", err)
	}
	defer rows.Close()

	records := make([]model.Record, 0)
	for rows.Next() {
		var (
			record   model.Record
			link     sql.NullString
			location sql.NullString
		)
		if err := rows.Scan(&record.Title, &link, &location); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		record.Link = link.String
		record.Location = location.String
		records = append(records, record)
	}

	return records, rows.Err()
}

// LastSeen returns the finish time of the most recent run that produced a
// record whose title equals title (case-insensitive for ASCII letters).
// ok is false if the title was never recorded.
func (cdb *CrawlDB) LastSeen(ctx context.Context, title string) (time.Time, bool, error) {
	var finished string
	err := cdb.db.QueryRowContext(ctx, `
	SELECT r.finished_at
	FROM crawl_records c JOIN crawl_runs r ON r.id = c.run_id
	WHERE c.title = ? COLLATE NOCASE
	ORDER BY r.id DESC
	LIMIT 1
	`, title).Scan(&finished)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query last seen: %w", err)
	}
	return parseTimestamp(finished), true, nil
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRun reads one crawl_runs row.
func scanRun(row rowScanner) (*Run, error) {
	var (
		run         Run
		mode        string
		persistence string
		startedAt   string
		finishedAt  string
		outputPath  sql.NullString
	)

	err := row.Scan(
		&run.ID,
		&run.StartURL,
		&mode,
		&persistence,
		&run.Pages,
		&run.RecordCount,
		&run.Truncated,
		&startedAt,
		&finishedAt,
		&outputPath,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan crawl run: %w", err)
	}

	run.Mode = model.Mode(mode)
	run.Persistence = model.Persistence(persistence)
	run.StartedAt = parseTimestamp(startedAt)
	run.FinishedAt = parseTimestamp(finishedAt)
	run.OutputPath = outputPath.String
	return &run, nil
}

// formatTimestamp stores times in UTC so that they sort as text.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,          // written by formatTimestamp
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
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
