package zeeklog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/seward/zeeklite/pkg/types"
)

// maxLineBytes bounds a single log line; Zeek http/files rows can be long
const maxLineBytes = 1024 * 1024

// Row is re-exported for convenience; see types.Row
type Row = types.Row

// LogFile is the parsed form of a single Zeek log
type LogFile struct {
	Path     string
	Category string // from the #path directive, or derived from the filename
	Columns  []types.ColumnSpec
	Rows     []Row

	// CoercionErrors collects per-field failures; the affected fields were
	// stored as NULL and their rows kept
	CoercionErrors []error
}

// ParseFile opens and parses a log file, handling gzip compression
func ParseFile(path string) (*LogFile, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	lf, err := Parse(r)
	if err != nil {
		return nil, err
	}

	lf.Path = path
	if lf.Category == "" {
		lf.Category = ExtractCategory(path)
	}
	return lf, nil
}

// Open opens a log file for reading, decompressing *.gz transparently
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: not a gzip stream: %v", types.ErrMalformedPreamble, err)
	}
	return &gzipReadCloser{gz: gz, file: f}, nil
}

type gzipReadCloser struct {
	gz   *gzip.Reader
	file *os.File
}

func (g *gzipReadCloser) Read(p []byte) (int, error) { return g.gz.Read(p) }

func (g *gzipReadCloser) Close() error {
	gzErr := g.gz.Close()
	fileErr := g.file.Close()
	if gzErr != nil {
		return gzErr
	}
	return fileErr
}

// Parse reads a Zeek TSV stream into a LogFile
func Parse(r io.Reader) (*LogFile, error) {
	lf := &LogFile{}

	separator := "\t"
	unsetField := "-"
	emptyField := "(empty)"
	var fieldNames, fieldTypes []string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#") {
			// #separator declares its value space-separated; every other
			// directive uses the declared separator
			if rest, ok := strings.CutPrefix(line, "#separator "); ok {
				separator = decodeSeparator(strings.TrimSpace(rest))
				continue
			}
			parts := strings.Split(line, separator)
			switch parts[0] {
			case "#fields":
				fieldNames = parts[1:]
			case "#types":
				fieldTypes = parts[1:]
			case "#path":
				if len(parts) > 1 {
					lf.Category = parts[1]
				}
			case "#unset_field":
				if len(parts) > 1 {
					unsetField = parts[1]
				}
			case "#empty_field":
				if len(parts) > 1 {
					emptyField = parts[1]
				}
			}
			// #open, #close, #set_separator and unknown directives are
			// irrelevant to import
			continue
		}

		// First data row: the preamble must be complete by now
		if lf.Columns == nil {
			cols, err := buildColumns(fieldNames, fieldTypes)
			if err != nil {
				return nil, err
			}
			lf.Columns = cols
		}

		values := strings.Split(line, separator)
		lf.Rows = append(lf.Rows, lf.coerceRow(values, unsetField, emptyField))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	// Zero data rows is fine; a missing preamble is not
	if lf.Columns == nil {
		cols, err := buildColumns(fieldNames, fieldTypes)
		if err != nil {
			return nil, err
		}
		lf.Columns = cols
	}

	return lf, nil
}

// buildColumns resolves the column specs from the #fields and #types lines
func buildColumns(names, zeekTypes []string) ([]types.ColumnSpec, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: missing #fields line", types.ErrMalformedPreamble)
	}
	if len(zeekTypes) == 0 {
		return nil, fmt.Errorf("%w: missing #types line", types.ErrMalformedPreamble)
	}
	if len(names) != len(zeekTypes) {
		return nil, fmt.Errorf("%w: %d fields but %d types",
			types.ErrMalformedPreamble, len(names), len(zeekTypes))
	}

	cols := make([]types.ColumnSpec, len(names))
	for i, name := range names {
		cols[i] = types.ColumnSpec{
			// Zeek nests record fields with dots (id.orig_h); SQLite
			// column names don't
			Name: strings.ReplaceAll(name, ".", "_"),
			Type: types.ColumnTypeFromZeek(zeekTypes[i]),
		}
	}
	return cols, nil
}

// coerceRow converts one line's values, padding short rows and truncating
// long ones to the declared column count
func (lf *LogFile) coerceRow(values []string, unsetField, emptyField string) Row {
	row := make(Row, len(lf.Columns))
	for i, col := range lf.Columns {
		if i >= len(values) {
			row[col.Name] = nil
			continue
		}
		raw := values[i]
		if raw == unsetField || raw == emptyField {
			row[col.Name] = nil
			continue
		}
		v, err := col.Coerce(raw)
		if err != nil {
			lf.CoercionErrors = append(lf.CoercionErrors, err)
			row[col.Name] = nil
			continue
		}
		row[col.Name] = v
	}
	return row
}

// ExtractCategory derives the log category from a filename:
// conn.2025-01-01-00-00.log.gz -> conn
func ExtractCategory(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, ".gz")
	base = strings.TrimSuffix(base, ".log")
	if i := strings.Index(base, "."); i >= 0 {
		base = base[:i]
	}
	return base
}

// decodeSeparator handles Zeek's \xNN escape in the #separator directive
func decodeSeparator(s string) string {
	if strings.HasPrefix(s, `\x`) && len(s) >= 4 {
		if b, err := strconv.ParseUint(s[2:4], 16, 8); err == nil {
			return string(rune(b))
		}
	}
	return s
}
