package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/seward/zeeklite/pkg/types"
)

var (
	// ErrNotFound is returned when a requested record doesn't exist
	ErrNotFound = errors.New("not found")
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db *sql.DB

	// schemas caches resolved destination-table schemas per category so a
	// category is inspected at most once per run (see EnsureTable).
	schemas *gocache.Cache
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode so readers (Grafana) don't block the import
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// The importer is the single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStore opens (creating if necessary) the destination database and
// applies metadata migrations. Failures here are fatal to the run.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrStoreUnavailable, err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", types.ErrStoreUnavailable, err)
	}

	return &SQLiteStore{
		db:      db,
		schemas: gocache.New(gocache.NoExpiration, 0),
	}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStore) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, store: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx    *sql.Tx
	store *SQLiteStore
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

func (t *sqliteTx) querier() querier {
	return t.tx
}

func (s *SQLiteStore) querier() querier {
	return s.db
}

// Processed-file ledger

// isProcessedWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) isProcessedWithQuerier(ctx context.Context, q querier, fileHash string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx,
		"SELECT 1 FROM _processed_files WHERE file_hash = ?", fileHash).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLiteStore) IsProcessed(ctx context.Context, fileHash string) (bool, error) {
	return s.isProcessedWithQuerier(ctx, s.querier(), fileHash)
}

// markProcessedWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) markProcessedWithQuerier(ctx context.Context, q querier, rec *ProcessedFile) error {
	if rec.ProcessedAt.IsZero() {
		rec.ProcessedAt = time.Now()
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO _processed_files (file_hash, file_path, category, processed_at, rows_imported)
		VALUES (?, ?, ?, ?, ?)
	`, rec.FileHash, rec.FilePath, rec.Category, rec.ProcessedAt, rec.RowsImported)
	if err != nil {
		return fmt.Errorf("failed to record processed file: %w", err)
	}
	return nil
}

func (s *SQLiteStore) MarkProcessed(ctx context.Context, rec *ProcessedFile) error {
	return s.markProcessedWithQuerier(ctx, s.querier(), rec)
}

// listProcessedWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) listProcessedWithQuerier(ctx context.Context, q querier) ([]*ProcessedFile, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT file_hash, file_path, category, processed_at, rows_imported
		FROM _processed_files
		ORDER BY processed_at
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	records := make([]*ProcessedFile, 0)
	for rows.Next() {
		var rec ProcessedFile
		err := rows.Scan(&rec.FileHash, &rec.FilePath, &rec.Category, &rec.ProcessedAt, &rec.RowsImported)
		if err != nil {
			return nil, err
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) ListProcessed(ctx context.Context) ([]*ProcessedFile, error) {
	return s.listProcessedWithQuerier(ctx, s.querier())
}

// Run audit trail

// createRunWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) createRunWithQuerier(ctx context.Context, q querier, run *ImportRun) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	_, err := q.ExecContext(ctx,
		"INSERT INTO _import_runs (id, started_at) VALUES (?, ?)",
		run.ID, run.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to create import run: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run *ImportRun) error {
	return s.createRunWithQuerier(ctx, s.querier(), run)
}

// finishRunWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) finishRunWithQuerier(ctx context.Context, q querier, run *ImportRun) error {
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}
	_, err := q.ExecContext(ctx, `
		UPDATE _import_runs
		SET finished_at = ?, files_imported = ?, files_skipped = ?, files_failed = ?, rows_imported = ?
		WHERE id = ?
	`, run.FinishedAt, run.FilesImported, run.FilesSkipped, run.FilesFailed, run.RowsImported, run.ID)
	if err != nil {
		return fmt.Errorf("failed to finish import run: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, run *ImportRun) error {
	return s.finishRunWithQuerier(ctx, s.querier(), run)
}

// lastRunWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) lastRunWithQuerier(ctx context.Context, q querier) (*ImportRun, error) {
	var run ImportRun
	var finished sql.NullTime
	err := q.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, files_imported, files_skipped, files_failed, rows_imported
		FROM _import_runs
		ORDER BY started_at DESC
		LIMIT 1
	`).Scan(&run.ID, &run.StartedAt, &finished,
		&run.FilesImported, &run.FilesSkipped, &run.FilesFailed, &run.RowsImported)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if finished.Valid {
		run.FinishedAt = finished.Time
	}
	return &run, nil
}

func (s *SQLiteStore) LastRun(ctx context.Context) (*ImportRun, error) {
	return s.lastRunWithQuerier(ctx, s.querier())
}

// Read access

// Query runs a read-only query against the store
func (s *SQLiteStore) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, query, args...)
}

// Status summarizes the database contents
func (s *SQLiteStore) Status(ctx context.Context) (*StoreStatus, error) {
	status := &StoreStatus{}

	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(rows_imported), 0) FROM _processed_files").
		Scan(&status.ProcessedFiles, &status.RowsImported)
	if err != nil {
		return nil, err
	}

	// Destination tables: everything not prefixed as metadata
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE '\_%' ESCAPE '\'
		  AND name NOT IN ('schema_version', 'sqlite_sequence')
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, table := range tables {
		var count int64
		err := s.db.QueryRowContext(ctx,
			fmt.Sprintf(`SELECT COUNT(*) FROM %s`, quoteIdentifier(table))).Scan(&count)
		if err != nil {
			return nil, err
		}
		status.Categories = append(status.Categories, CategoryCount{Table: table, Rows: count})
	}

	// Database size
	var pageCount, pageSize int
	err = s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	if err == nil {
		_ = s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.SizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	lastRun, err := s.LastRun(ctx)
	if err == nil {
		status.LastRun = lastRun
	} else if err != ErrNotFound {
		return nil, err
	}

	return status, nil
}

// Transaction implementations

func (t *sqliteTx) IsProcessed(ctx context.Context, fileHash string) (bool, error) {
	return t.store.isProcessedWithQuerier(ctx, t.querier(), fileHash)
}

func (t *sqliteTx) MarkProcessed(ctx context.Context, rec *ProcessedFile) error {
	return t.store.markProcessedWithQuerier(ctx, t.querier(), rec)
}

func (t *sqliteTx) ListProcessed(ctx context.Context) ([]*ProcessedFile, error) {
	return t.store.listProcessedWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) EnsureTable(ctx context.Context, category string, cols []types.ColumnSpec) (*TableSchema, error) {
	return t.store.ensureTableWithQuerier(ctx, t.querier(), category, cols)
}

func (t *sqliteTx) InsertRows(ctx context.Context, schema *TableSchema, cols []types.ColumnSpec, rows []types.Row) (int64, error) {
	return t.store.insertRowsWithQuerier(ctx, t.querier(), schema, cols, rows)
}

func (t *sqliteTx) CreateRun(ctx context.Context, run *ImportRun) error {
	return t.store.createRunWithQuerier(ctx, t.querier(), run)
}

func (t *sqliteTx) FinishRun(ctx context.Context, run *ImportRun) error {
	return t.store.finishRunWithQuerier(ctx, t.querier(), run)
}

func (t *sqliteTx) LastRun(ctx context.Context) (*ImportRun, error) {
	return t.store.lastRunWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, query, args...)
}

func (t *sqliteTx) Status(ctx context.Context) (*StoreStatus, error) {
	return t.store.Status(ctx)
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, errors.New("nested transactions not supported")
}
