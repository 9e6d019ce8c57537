// Package metrics exposes import run counters in Prometheus exposition
// format. The importer runs from cron rather than as a daemon, so
// instead of serving /metrics the counters are written to a textfile
// that node_exporter's textfile collector picks up.
package metrics
