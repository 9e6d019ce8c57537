// Package importer walks a tree of date-named Zeek log directories and
// loads each file into the destination store exactly once.
//
// The pipeline for one file is: hash -> skip if the hash is already in the
// processed-file ledger -> parse -> ensure the category's table -> insert
// rows -> record the file as processed. Everything after the parse happens
// in a single transaction, so a failure anywhere leaves neither partial
// rows nor a bogus ledger entry.
//
// Processing is strictly sequential. The store is single-writer and the
// whole run is guarded against overlapping invocations by a flock-based
// lock file (see RunLock).
package importer
