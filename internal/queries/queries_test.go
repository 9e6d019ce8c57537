package queries

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seward/zeeklite/internal/storage"
	"github.com/seward/zeeklite/pkg/types"
)

func setupStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedConn(t *testing.T, store *storage.SQLiteStore) {
	t.Helper()
	ctx := context.Background()
	cols := []types.ColumnSpec{
		{Name: "ts", Type: types.TypeTime},
		{Name: "id_orig_h", Type: types.TypeText},
		{Name: "orig_bytes", Type: types.TypeInteger},
	}
	schema, err := store.EnsureTable(ctx, "conn", cols)
	require.NoError(t, err)

	rows := []types.Row{
		{"ts": 1714003200.0, "id_orig_h": "192.168.1.10", "orig_bytes": int64(1000)},
		{"ts": 1714003260.0, "id_orig_h": "192.168.1.10", "orig_bytes": int64(500)},
		{"ts": 1714010000.0, "id_orig_h": "192.168.1.11", "orig_bytes": int64(200)},
	}
	_, err = store.InsertRows(ctx, schema, cols, rows)
	require.NoError(t, err)
}

func TestGet(t *testing.T) {
	q, ok := Get("top-talkers")
	require.True(t, ok)
	assert.Equal(t, "top-talkers", q.Name)
	assert.NotEmpty(t, q.SQL)

	_, ok = Get("no-such-query")
	assert.False(t, ok)
}

func TestAll(t *testing.T) {
	all := All()
	require.NotEmpty(t, all)

	names := make([]string, len(all))
	for i, q := range all {
		names[i] = q.Name
	}
	assert.IsNonDecreasing(t, names)
	assert.Contains(t, names, "connections-over-time")
	assert.Contains(t, names, "recent-notices")
}

func TestRun_TopTalkers(t *testing.T) {
	store := setupStore(t)
	seedConn(t, store)

	q, ok := Get("top-talkers")
	require.True(t, ok)

	res, err := Run(context.Background(), store, q)
	require.NoError(t, err)

	assert.Equal(t, []string{"host", "bytes_sent", "connections"}, res.Columns)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, []string{"192.168.1.10", "1500", "2"}, res.Rows[0])
	assert.Equal(t, []string{"192.168.1.11", "200", "1"}, res.Rows[1])
}

func TestRun_ConnectionsOverTime(t *testing.T) {
	store := setupStore(t)
	seedConn(t, store)

	q, ok := Get("connections-over-time")
	require.True(t, ok)

	res, err := Run(context.Background(), store, q)
	require.NoError(t, err)

	// 1714003200 and 1714003260 share an hour bucket, 1714010000 does not
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "2", res.Rows[0][1])
	assert.Equal(t, "1", res.Rows[1][1])
}

func TestRun_MissingTable(t *testing.T) {
	store := setupStore(t)

	q, ok := Get("top-dns")
	require.True(t, ok)

	_, err := Run(context.Background(), store, q)
	assert.Error(t, err)
}

func TestRun_NullRendersEmpty(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	cols := []types.ColumnSpec{
		{Name: "ts", Type: types.TypeTime},
		{Name: "note", Type: types.TypeText},
		{Name: "msg", Type: types.TypeText},
	}
	schema, err := store.EnsureTable(ctx, "notice", cols)
	require.NoError(t, err)
	_, err = store.InsertRows(ctx, schema, cols, []types.Row{
		{"ts": 1714003200.0, "note": "Scan::Port_Scan", "msg": nil},
	})
	require.NoError(t, err)

	q, ok := Get("recent-notices")
	require.True(t, ok)

	res, err := Run(ctx, store, q)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "Scan::Port_Scan", res.Rows[0][1])
	assert.Equal(t, "", res.Rows[0][2])
}

func TestRunAll_FailsOnEmptyStore(t *testing.T) {
	store := setupStore(t)

	_, err := RunAll(context.Background(), store)
	assert.Error(t, err)
}

func TestRunAll(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	seedConn(t, store)

	// Populate the remaining tables the registry touches
	for _, table := range []struct {
		name string
		cols []types.ColumnSpec
		row  types.Row
	}{
		{"dns", []types.ColumnSpec{
			{Name: "ts", Type: types.TypeTime},
			{Name: "query", Type: types.TypeText},
		}, types.Row{"ts": 1714003200.0, "query": "example.com"}},
		{"http", []types.ColumnSpec{
			{Name: "ts", Type: types.TypeTime},
			{Name: "host", Type: types.TypeText},
		}, types.Row{"ts": 1714003200.0, "host": "example.com"}},
		{"notice", []types.ColumnSpec{
			{Name: "ts", Type: types.TypeTime},
			{Name: "note", Type: types.TypeText},
			{Name: "msg", Type: types.TypeText},
		}, types.Row{"ts": 1714003200.0, "note": "Scan::Port_Scan", "msg": "scan"}},
	} {
		schema, err := store.EnsureTable(ctx, table.name, table.cols)
		require.NoError(t, err)
		_, err = store.InsertRows(ctx, schema, table.cols, []types.Row{table.row})
		require.NoError(t, err)
	}

	results, err := RunAll(ctx, store)
	require.NoError(t, err)
	require.Len(t, results, len(All()))
	for i, res := range results {
		require.NotNil(t, res)
		assert.Equal(t, All()[i].Name, res.Name)
	}
}
