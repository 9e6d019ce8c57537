package storage

import (
	"context"
	"fmt"
	"strings"

	gocache "github.com/patrickmn/go-cache"

	"github.com/seward/zeeklite/pkg/types"
)

// SanitizeIdentifier turns a log category into a safe SQLite table name:
// lowercase, non-alphanumerics replaced with underscores, leading
// underscores trimmed (that prefix is reserved for metadata tables), and a
// leading digit prefixed. Deterministic, so the same category always maps
// to the same table across runs.
func SanitizeIdentifier(category string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(category) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := strings.TrimLeft(b.String(), "_")
	if name == "" {
		return "log"
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "t" + name
	}
	return name
}

// quoteIdentifier wraps an already-sanitized identifier for use in SQL
func quoteIdentifier(name string) string {
	return `"` + name + `"`
}

// ensureTableWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) ensureTableWithQuerier(ctx context.Context, q querier, category string, cols []types.ColumnSpec) (*TableSchema, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("no columns for category %q", category)
	}
	name := SanitizeIdentifier(category)

	if cached, ok := s.schemas.Get(name); ok {
		return cached.(*TableSchema), nil
	}

	existing, err := tableColumns(ctx, q, name)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		defs := make([]string, len(cols))
		names := make([]string, len(cols))
		for i, c := range cols {
			defs[i] = fmt.Sprintf("%s %s", quoteIdentifier(c.Name), c.Type.SQLType())
			names[i] = c.Name
		}
		ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
			quoteIdentifier(name), strings.Join(defs, ", "))
		if _, err := q.ExecContext(ctx, ddl); err != nil {
			return nil, fmt.Errorf("failed to create table %s: %w", name, err)
		}
		// Not cached: the CREATE may be inside a transaction that rolls
		// back. Once committed, the next encounter observes the table and
		// caches it then.
		return &TableSchema{Name: name, Columns: names}, nil
	}

	schema := &TableSchema{Name: name, Columns: existing}
	s.schemas.Set(name, schema, gocache.NoExpiration)
	return schema, nil
}

// EnsureTable creates the destination table for a category if absent and
// returns its schema. Idempotent: a second call with the same category and
// compatible columns is a no-op. An existing table is never altered; see
// TableSchema.MissingColumns for how drift is surfaced.
func (s *SQLiteStore) EnsureTable(ctx context.Context, category string, cols []types.ColumnSpec) (*TableSchema, error) {
	return s.ensureTableWithQuerier(ctx, s.querier(), category, cols)
}

// tableColumns returns the column names of a table, or nil if the table
// doesn't exist
func tableColumns(ctx context.Context, q querier, name string) ([]string, error) {
	rows, err := q.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var cols []string
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return cols, rows.Err()
}

// insertRowsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStore) insertRowsWithQuerier(ctx context.Context, q querier, schema *TableSchema, cols []types.ColumnSpec, rows []types.Row) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	// Schema drift policy: insert the intersection of the declared columns
	// and the table's columns, in declared order. Table columns the file
	// lacks insert as NULL; declared columns the table lacks are dropped
	// (the importer logs them via MissingColumns).
	have := make(map[string]bool, len(schema.Columns))
	for _, c := range schema.Columns {
		have[c] = true
	}
	var insertCols []string
	for _, c := range cols {
		if have[c.Name] {
			insertCols = append(insertCols, c.Name)
		}
	}
	if len(insertCols) == 0 {
		return 0, fmt.Errorf("no declared column matches table %s", schema.Name)
	}

	quoted := make([]string, len(insertCols))
	placeholders := make([]string, len(insertCols))
	for i, c := range insertCols {
		quoted[i] = quoteIdentifier(c)
		placeholders[i] = "?"
	}
	stmt, err := q.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdentifier(schema.Name), strings.Join(quoted, ", "), strings.Join(placeholders, ", ")))
	if err != nil {
		return 0, err
	}
	defer func() { _ = stmt.Close() }()

	var inserted int64
	args := make([]interface{}, len(insertCols))
	for _, row := range rows {
		for i, c := range insertCols {
			args[i] = row[c]
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return inserted, fmt.Errorf("failed to insert into %s: %w", schema.Name, err)
		}
		inserted++
	}
	return inserted, nil
}

// InsertRows bulk-inserts parsed rows into a destination table
func (s *SQLiteStore) InsertRows(ctx context.Context, schema *TableSchema, cols []types.ColumnSpec, rows []types.Row) (int64, error) {
	return s.insertRowsWithQuerier(ctx, s.querier(), schema, cols, rows)
}
