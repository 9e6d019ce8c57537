package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seward/zeeklite/pkg/types"
)

func setupTestDB(t *testing.T) *SQLiteStore {
	// Use in-memory database for testing
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	require.NotNil(t, store)
	return store
}

func TestNewSQLiteStore(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	assert.NotNil(t, store)
	assert.NotNil(t, store.db)
}

func TestNewSQLiteStore_BadPath(t *testing.T) {
	_, err := NewSQLiteStore("/nonexistent-dir/zeek.db")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrStoreUnavailable)
}

func TestClose(t *testing.T) {
	store := setupTestDB(t)
	err := store.Close()
	assert.NoError(t, err)
}

func TestProcessedFileLedger(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()

	processed, err := store.IsProcessed(ctx, "abc123")
	require.NoError(t, err)
	assert.False(t, processed)

	rec := &ProcessedFile{
		FileHash:     "abc123",
		FilePath:     "/opt/zeek/logs/2025-01-01/conn.log",
		Category:     "conn",
		RowsImported: 42,
	}
	err = store.MarkProcessed(ctx, rec)
	require.NoError(t, err)
	assert.False(t, rec.ProcessedAt.IsZero())

	processed, err = store.IsProcessed(ctx, "abc123")
	require.NoError(t, err)
	assert.True(t, processed)

	// The ledger is keyed on hash, not path
	records, err := store.ListProcessed(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "conn", records[0].Category)
	assert.Equal(t, int64(42), records[0].RowsImported)

	// Append-only: a duplicate hash is a constraint violation
	err = store.MarkProcessed(ctx, &ProcessedFile{
		FileHash: "abc123",
		FilePath: "/elsewhere/conn.log",
		Category: "conn",
	})
	assert.Error(t, err)
}

func TestImportRuns(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()

	_, err := store.LastRun(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	run := &ImportRun{ID: uuid.NewString()}
	require.NoError(t, store.CreateRun(ctx, run))
	assert.False(t, run.StartedAt.IsZero())

	run.FilesImported = 3
	run.FilesSkipped = 1
	run.FilesFailed = 1
	run.RowsImported = 1234
	require.NoError(t, store.FinishRun(ctx, run))

	last, err := store.LastRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, run.ID, last.ID)
	assert.Equal(t, 3, last.FilesImported)
	assert.Equal(t, 1, last.FilesSkipped)
	assert.Equal(t, 1, last.FilesFailed)
	assert.Equal(t, int64(1234), last.RowsImported)
	assert.False(t, last.FinishedAt.IsZero())
}

func TestTransactionRollback(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)

	err = tx.MarkProcessed(ctx, &ProcessedFile{
		FileHash: "deadbeef",
		FilePath: "/logs/conn.log",
		Category: "conn",
	})
	require.NoError(t, err)

	// Visible inside the transaction
	processed, err := tx.IsProcessed(ctx, "deadbeef")
	require.NoError(t, err)
	assert.True(t, processed)

	require.NoError(t, tx.Rollback())

	// Gone after rollback
	processed, err = store.IsProcessed(ctx, "deadbeef")
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestTransactionCommit(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)

	cols := []types.ColumnSpec{
		{Name: "ts", Type: types.TypeTime},
		{Name: "id_orig_h", Type: types.TypeText},
	}
	schema, err := tx.EnsureTable(ctx, "conn", cols)
	require.NoError(t, err)

	_, err = tx.InsertRows(ctx, schema, cols, []types.Row{
		{"ts": float64(1700000000), "id_orig_h": "1.2.3.4"},
	})
	require.NoError(t, err)

	err = tx.MarkProcessed(ctx, &ProcessedFile{
		FileHash: "cafef00d", FilePath: "/logs/conn.log", Category: "conn", RowsImported: 1,
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	processed, err := store.IsProcessed(ctx, "cafef00d")
	require.NoError(t, err)
	assert.True(t, processed)

	var count int64
	err = store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM conn").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestNestedTransaction(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	tx, err := store.BeginTx(context.Background())
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	_, err = tx.BeginTx(context.Background())
	assert.Error(t, err)
}

func TestStatus(t *testing.T) {
	store := setupTestDB(t)
	defer store.Close()

	ctx := context.Background()

	cols := []types.ColumnSpec{
		{Name: "ts", Type: types.TypeTime},
		{Name: "query", Type: types.TypeText},
	}
	schema, err := store.EnsureTable(ctx, "dns", cols)
	require.NoError(t, err)
	_, err = store.InsertRows(ctx, schema, cols, []types.Row{
		{"ts": float64(1700000000), "query": "example.com"},
		{"ts": float64(1700000060), "query": "example.org"},
	})
	require.NoError(t, err)

	require.NoError(t, store.MarkProcessed(ctx, &ProcessedFile{
		FileHash: "h1", FilePath: "/logs/dns.log", Category: "dns",
		ProcessedAt: time.Now(), RowsImported: 2,
	}))

	status, err := store.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.ProcessedFiles)
	assert.Equal(t, int64(2), status.RowsImported)
	require.Len(t, status.Categories, 1)
	assert.Equal(t, "dns", status.Categories[0].Table)
	assert.Equal(t, int64(2), status.Categories[0].Rows)
	assert.Nil(t, status.LastRun)
}
