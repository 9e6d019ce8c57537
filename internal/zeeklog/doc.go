// Package zeeklog parses Zeek's tab-separated log format.
//
// A Zeek log opens with a preamble of # directives declaring the separator,
// the log path (category), the field names and the field types, followed by
// one record per line:
//
//	#separator \x09
//	#set_separator	,
//	#empty_field	(empty)
//	#unset_field	-
//	#path	conn
//	#fields	ts	id.orig_h	orig_bytes
//	#types	time	addr	count
//	1700000000	1.2.3.4	512
//
// The parser resolves the column specs once from the preamble and coerces
// each field to the declared type. Files missing #fields or #types fail
// with types.ErrMalformedPreamble. Individual values that don't match their
// declared type are recorded as coercion errors, stored as NULL, and the
// row continues.
//
// Gzip-compressed logs (*.log.gz) are decompressed transparently.
package zeeklog
