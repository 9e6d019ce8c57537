package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/seward/zeeklite/internal/importer"
)

// Handler owns the run metrics and the registry they live in
type Handler struct {
	registry *prometheus.Registry

	filesImported prometheus.Gauge
	filesSkipped  prometheus.Gauge
	filesFailed   prometheus.Gauge
	rowsImported  prometheus.Gauge
	runDuration   prometheus.Gauge
	lastRunTime   prometheus.Gauge
	lastRunOK     prometheus.Gauge
}

// New creates a Handler with a private registry so only run metrics end
// up in the textfile
func New() *Handler {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Handler{
		registry: reg,
		filesImported: factory.NewGauge(prometheus.GaugeOpts{
			Name: "zeeklite_files_imported",
			Help: "Log files imported during the last run",
		}),
		filesSkipped: factory.NewGauge(prometheus.GaugeOpts{
			Name: "zeeklite_files_skipped",
			Help: "Log files skipped as already processed during the last run",
		}),
		filesFailed: factory.NewGauge(prometheus.GaugeOpts{
			Name: "zeeklite_files_failed",
			Help: "Log files that failed to import during the last run",
		}),
		rowsImported: factory.NewGauge(prometheus.GaugeOpts{
			Name: "zeeklite_rows_imported",
			Help: "Rows inserted during the last run",
		}),
		runDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "zeeklite_run_duration_seconds",
			Help: "Wall clock duration of the last run",
		}),
		lastRunTime: factory.NewGauge(prometheus.GaugeOpts{
			Name: "zeeklite_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
		lastRunOK: factory.NewGauge(prometheus.GaugeOpts{
			Name: "zeeklite_last_run_success",
			Help: "1 when the last run had no file failures",
		}),
	}
}

// ObserveRun records the outcome of one import run
func (h *Handler) ObserveRun(stats *importer.Stats, finishedAt float64) {
	h.filesImported.Set(float64(stats.FilesImported))
	h.filesSkipped.Set(float64(stats.FilesSkipped))
	h.filesFailed.Set(float64(stats.FilesFailed))
	h.rowsImported.Set(float64(stats.RowsImported))
	h.runDuration.Set(stats.Duration.Seconds())
	h.lastRunTime.Set(finishedAt)
	if stats.Failed() {
		h.lastRunOK.Set(0)
	} else {
		h.lastRunOK.Set(1)
	}
}

// WriteTextfile writes the registry in exposition format, atomically
// replacing the file at path
func (h *Handler) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, h.registry)
}
