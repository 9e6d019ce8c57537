package importer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kumarabd/gokit/logger"

	"github.com/seward/zeeklite/internal/storage"
	"github.com/seward/zeeklite/internal/zeeklog"
)

// Importer coordinates the import pipeline: discover -> parse -> store
type Importer struct {
	store storage.Store
	log   *logger.Handler
}

// Options contains configuration for a run
type Options struct {
	// DaysBack restricts the run to the N most recent date directories;
	// zero means all
	DaysBack int
}

// Stats summarizes one import run
type Stats struct {
	RunID         string
	FilesImported int
	FilesSkipped  int
	FilesFailed   int
	RowsImported  int64
	Duration      time.Duration
	Failures      []string
}

// Failed reports whether any discovered file failed to import
func (s *Stats) Failed() bool {
	return s.FilesFailed > 0
}

// New creates a new Importer instance
func New(store storage.Store, log *logger.Handler) *Importer {
	return &Importer{store: store, log: log}
}

// Run discovers the log files under root and imports each in order.
// Per-file failures are logged and counted but don't stop the run; fatal
// conditions (root missing, store unreachable) abort immediately.
func (imp *Importer) Run(ctx context.Context, root string, opts *Options) (*Stats, error) {
	if opts == nil {
		opts = &Options{}
	}
	startTime := time.Now()

	files, err := Discover(root, opts.DaysBack)
	if err != nil {
		return nil, err
	}
	imp.log.Info().Int("files", len(files)).Str("root", root).Msg("discovered log files")

	run := &storage.ImportRun{ID: uuid.NewString()}
	if err := imp.store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create import run: %w", err)
	}

	stats := &Stats{RunID: run.ID}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		rows, skipped, err := imp.ImportFile(ctx, path)
		switch {
		case err != nil:
			stats.FilesFailed++
			stats.Failures = append(stats.Failures, fmt.Sprintf("%s: %v", path, err))
			imp.log.Error().Err(err).Str("path", path).Msg("file import failed")
		case skipped:
			stats.FilesSkipped++
			imp.log.Debug().Str("path", path).Msg("already processed, skipping")
		default:
			stats.FilesImported++
			stats.RowsImported += rows
			imp.log.Info().Str("path", path).Int("rows", int(rows)).Msg("file imported")
		}
	}
	stats.Duration = time.Since(startTime)

	run.FilesImported = stats.FilesImported
	run.FilesSkipped = stats.FilesSkipped
	run.FilesFailed = stats.FilesFailed
	run.RowsImported = stats.RowsImported
	if err := imp.store.FinishRun(ctx, run); err != nil {
		imp.log.Error().Err(err).Str("run_id", run.ID).Msg("failed to record run totals")
	}

	imp.log.Info().
		Str("run_id", run.ID).
		Int("imported", stats.FilesImported).
		Int("skipped", stats.FilesSkipped).
		Int("failed", stats.FilesFailed).
		Int("rows", int(stats.RowsImported)).
		Msg("run complete")
	return stats, nil
}

// ImportFile imports a single log file. Returns the number of rows
// inserted and whether the file was skipped as already processed. The
// table creation, row inserts and ledger write share one transaction:
// either the file lands completely or not at all.
func (imp *Importer) ImportFile(ctx context.Context, path string) (int64, bool, error) {
	hash, err := FileHash(path)
	if err != nil {
		return 0, false, err
	}

	processed, err := imp.store.IsProcessed(ctx, hash)
	if err != nil {
		return 0, false, err
	}
	if processed {
		return 0, true, nil
	}

	lf, err := zeeklog.ParseFile(path)
	if err != nil {
		return 0, false, err
	}
	for _, cerr := range lf.CoercionErrors {
		imp.log.Warn().Err(cerr).Str("path", path).Str("category", lf.Category).
			Msg("field stored as NULL")
	}

	tx, err := imp.store.BeginTx(ctx)
	if err != nil {
		return 0, false, err
	}
	defer func() { _ = tx.Rollback() }()

	schema, err := tx.EnsureTable(ctx, lf.Category, lf.Columns)
	if err != nil {
		return 0, false, err
	}
	if missing := schema.MissingColumns(lf.Columns); len(missing) > 0 {
		imp.log.Warn().Str("path", path).Str("table", schema.Name).
			Str("columns", strings.Join(missing, ",")).
			Msg("file declares columns the table lacks, values dropped")
	}

	rows, err := tx.InsertRows(ctx, schema, lf.Columns, lf.Rows)
	if err != nil {
		return 0, false, err
	}

	err = tx.MarkProcessed(ctx, &storage.ProcessedFile{
		FileHash:     hash,
		FilePath:     path,
		Category:     lf.Category,
		RowsImported: rows,
	})
	if err != nil {
		return 0, false, err
	}

	if err := tx.Commit(); err != nil {
		return 0, false, err
	}
	return rows, false, nil
}

// FileHash computes the SHA-256 content hash of a file as a hex string.
// The hash is over the stored bytes, so a recompressed gzip file counts
// as a different file.
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
