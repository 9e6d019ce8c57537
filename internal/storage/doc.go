// Package storage provides the SQLite persistence layer for imported Zeek
// logs.
//
// Two kinds of tables live in the same database file:
//
//   - Metadata tables, created by versioned migrations: _processed_files
//     (the append-only dedup ledger keyed on content hash), _import_runs
//     (one row per import run) and schema_version.
//   - Destination tables, one per log category (conn, dns, http, ...),
//     created on first encounter from the category's column specs and
//     never altered afterwards.
//
// The store is single-writer: WAL mode with a connection pool of one. All
// per-file writes (table creation, row inserts, the processed-file record)
// happen inside one transaction so a failed file leaves nothing behind.
//
// # Build Tags
//
// Two driver configurations, selected at build time:
//
//   - default: modernc.org/sqlite, pure Go, CGO_ENABLED=0 friendly
//   - cgo_sqlite tag: github.com/mattn/go-sqlite3, faster, needs a C compiler
package storage
