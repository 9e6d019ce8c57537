package types

import (
	"errors"
	"fmt"
)

// Fatal conditions abort the whole run with a non-zero exit.
var (
	// ErrRootNotFound is returned when the logs root directory doesn't exist
	ErrRootNotFound = errors.New("logs root directory not found")
	// ErrStoreUnavailable is returned when the destination database can't be opened
	ErrStoreUnavailable = errors.New("destination store unavailable")
	// ErrRunLocked is returned when another import run holds the lock file
	ErrRunLocked = errors.New("another import run holds the lock")
)

// Per-file conditions. A file that fails this way is skipped and counted as
// a failure; the run continues.
var (
	// ErrMalformedPreamble is returned when a log file lacks the expected
	// #fields/#types header lines, or their lengths disagree
	ErrMalformedPreamble = errors.New("malformed log preamble")
)

// FieldCoercionError reports a single value that doesn't match its declared
// type. The field is stored as NULL and the row continues; the error is
// collected so the file's import can be diagnosed from the log.
type FieldCoercionError struct {
	Column string
	Type   ColumnType
	Value  string
}

func (e *FieldCoercionError) Error() string {
	return fmt.Sprintf("field %s: cannot coerce %q to %s", e.Column, e.Value, e.Type)
}
