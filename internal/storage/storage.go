package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/seward/zeeklite/pkg/types"
)

// Store defines the interface for persisting imported log data
type Store interface {
	// Processed-file ledger
	IsProcessed(ctx context.Context, fileHash string) (bool, error)
	MarkProcessed(ctx context.Context, rec *ProcessedFile) error
	ListProcessed(ctx context.Context) ([]*ProcessedFile, error)

	// Destination tables
	EnsureTable(ctx context.Context, category string, cols []types.ColumnSpec) (*TableSchema, error)
	InsertRows(ctx context.Context, schema *TableSchema, cols []types.ColumnSpec, rows []types.Row) (int64, error)

	// Run audit trail
	CreateRun(ctx context.Context, run *ImportRun) error
	FinishRun(ctx context.Context, run *ImportRun) error
	LastRun(ctx context.Context) (*ImportRun, error)

	// Read access for status and dashboard queries
	Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	Status(ctx context.Context) (*StoreStatus, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Store // Embed Store interface for transaction operations
}

// ProcessedFile is one row of the dedup ledger. The ledger is keyed on
// content hash, not path, so a renamed or relocated file is still a
// duplicate.
type ProcessedFile struct {
	FileHash     string
	FilePath     string
	Category     string
	ProcessedAt  time.Time
	RowsImported int64
}

// ImportRun records one invocation of the importer
type ImportRun struct {
	ID            string // UUID
	StartedAt     time.Time
	FinishedAt    time.Time
	FilesImported int
	FilesSkipped  int
	FilesFailed   int
	RowsImported  int64
}

// TableSchema describes a destination table as it exists in the database:
// the sanitized table name and the columns actually present.
type TableSchema struct {
	Name    string
	Columns []string
}

// MissingColumns returns the declared columns the table doesn't have.
// Those values are dropped on insert; callers log the drift.
func (ts *TableSchema) MissingColumns(cols []types.ColumnSpec) []string {
	have := make(map[string]bool, len(ts.Columns))
	for _, c := range ts.Columns {
		have[c] = true
	}
	var missing []string
	for _, c := range cols {
		if !have[c.Name] {
			missing = append(missing, c.Name)
		}
	}
	return missing
}

// CategoryCount is a destination table and its row count
type CategoryCount struct {
	Table string
	Rows  int64
}

// StoreStatus summarizes the database contents
type StoreStatus struct {
	ProcessedFiles int
	RowsImported   int64
	Categories     []CategoryCount
	SizeMB         float64
	LastRun        *ImportRun
}
