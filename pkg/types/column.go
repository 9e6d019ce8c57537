package types

import (
	"strconv"
	"strings"
)

// ColumnType is the tagged variant for a destination column's semantic type.
// It is resolved once per category from the #types preamble line, never
// re-inferred per row.
type ColumnType int

const (
	// TypeText stores the value as-is (string, addr, enum, bool, ...)
	TypeText ColumnType = iota
	// TypeInteger covers Zeek count, int and port
	TypeInteger
	// TypeReal covers Zeek double and interval
	TypeReal
	// TypeTime is an epoch-seconds timestamp. Stored as REAL, but kept as
	// its own tag so the DDL mapping can diverge without touching the parser.
	TypeTime
	// TypeSet covers set[...] and vector[...]; stored as the raw
	// set-separator-delimited string
	TypeSet
)

// String returns the Zeek-facing name of the type
func (t ColumnType) String() string {
	switch t {
	case TypeInteger:
		return "integer"
	case TypeReal:
		return "real"
	case TypeTime:
		return "time"
	case TypeSet:
		return "set"
	default:
		return "text"
	}
}

// SQLType returns the SQLite column affinity for the type
func (t ColumnType) SQLType() string {
	switch t {
	case TypeInteger:
		return "INTEGER"
	case TypeReal, TypeTime:
		return "REAL"
	default:
		return "TEXT"
	}
}

// ColumnTypeFromZeek maps a declared Zeek field type to a ColumnType.
// Unknown types fall back to text rather than failing the file.
func ColumnTypeFromZeek(zeekType string) ColumnType {
	if strings.HasPrefix(zeekType, "set[") || strings.HasPrefix(zeekType, "vector[") {
		return TypeSet
	}
	switch zeekType {
	case "count", "int", "port":
		return TypeInteger
	case "double", "interval":
		return TypeReal
	case "time":
		return TypeTime
	default:
		return TypeText
	}
}

// ColumnSpec describes one destination column: its sanitized name and the
// resolved type tag.
type ColumnSpec struct {
	Name string
	Type ColumnType
}

// Coerce converts a raw field value to the Go representation inserted for
// this column type. Returns a FieldCoercionError when the value doesn't
// parse; callers substitute NULL and continue per the documented policy.
func (c ColumnSpec) Coerce(raw string) (interface{}, error) {
	switch c.Type {
	case TypeInteger:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, &FieldCoercionError{Column: c.Name, Type: c.Type, Value: raw}
		}
		return v, nil
	case TypeReal, TypeTime:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, &FieldCoercionError{Column: c.Name, Type: c.Type, Value: raw}
		}
		return v, nil
	default:
		return raw, nil
	}
}
