// Package types defines the shared vocabulary of the importer: the column
// type variant used to map Zeek field types onto SQLite affinities, and the
// error taxonomy that separates fatal run conditions from per-file and
// per-field failures.
package types
