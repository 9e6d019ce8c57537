package types

// Row maps sanitized column names to coerced values for one parsed record.
// A nil value inserts as NULL.
type Row map[string]interface{}
