package queries

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/seward/zeeklite/internal/storage"
)

// Query is a named canned report
type Query struct {
	Name        string
	Description string
	SQL         string
}

// Result holds the rows a query produced, already rendered as strings.
// NULL values render as an empty string.
type Result struct {
	Name    string
	Columns []string
	Rows    [][]string
}

var registry = map[string]Query{
	"connections-over-time": {
		Name:        "connections-over-time",
		Description: "Connection counts bucketed by hour",
		SQL: `SELECT strftime('%Y-%m-%d %H:00', ts, 'unixepoch') AS hour,
       COUNT(*) AS connections
FROM conn
GROUP BY hour
ORDER BY hour`,
	},
	"top-talkers": {
		Name:        "top-talkers",
		Description: "Local hosts by bytes sent",
		SQL: `SELECT id_orig_h AS host,
       SUM(COALESCE(orig_bytes, 0)) AS bytes_sent,
       COUNT(*) AS connections
FROM conn
GROUP BY id_orig_h
ORDER BY bytes_sent DESC
LIMIT 20`,
	},
	"top-dns": {
		Name:        "top-dns",
		Description: "Most queried DNS names",
		SQL: `SELECT query, COUNT(*) AS lookups
FROM dns
WHERE query IS NOT NULL
GROUP BY query
ORDER BY lookups DESC
LIMIT 20`,
	},
	"plaintext-http": {
		Name:        "plaintext-http",
		Description: "Hosts still talking plaintext HTTP",
		SQL: `SELECT host, COUNT(*) AS requests
FROM http
WHERE host IS NOT NULL
GROUP BY host
ORDER BY requests DESC
LIMIT 20`,
	},
	"recent-notices": {
		Name:        "recent-notices",
		Description: "Latest Zeek notices",
		SQL: `SELECT strftime('%Y-%m-%d %H:%M:%S', ts, 'unixepoch') AS at,
       note, msg
FROM notice
ORDER BY ts DESC
LIMIT 50`,
	},
}

// Get returns the named query
func Get(name string) (Query, bool) {
	q, ok := registry[name]
	return q, ok
}

// All returns every registered query sorted by name
func All() []Query {
	out := make([]Query, 0, len(registry))
	for _, q := range registry {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Run executes one query against the store
func Run(ctx context.Context, store storage.Store, q Query) (*Result, error) {
	rows, err := store.Query(ctx, q.SQL)
	if err != nil {
		return nil, fmt.Errorf("query %s failed: %w", q.Name, err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &Result{Name: q.Name, Columns: cols}
	for rows.Next() {
		values := make([]sql.NullString, len(cols))
		scan := make([]interface{}, len(cols))
		for i := range values {
			scan[i] = &values[i]
		}
		if err := rows.Scan(scan...); err != nil {
			return nil, err
		}
		row := make([]string, len(cols))
		for i, v := range values {
			if v.Valid {
				row[i] = v.String
			}
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// RunAll executes every registered query. A query against a table no
// log file has populated yet fails; the first failure cancels the rest.
func RunAll(ctx context.Context, store storage.Store) ([]*Result, error) {
	all := All()
	results := make([]*Result, len(all))

	g, ctx := errgroup.WithContext(ctx)
	for i, q := range all {
		i, q := i, q
		g.Go(func() error {
			res, err := Run(ctx, store, q)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
