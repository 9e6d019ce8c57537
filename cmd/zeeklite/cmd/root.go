package cmd

import (
	"fmt"

	"github.com/kumarabd/gokit/logger"
	"github.com/spf13/cobra"

	"github.com/seward/zeeklite/internal/config"
)

var (
	database string
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "zeeklite",
	Short: "Import Zeek logs into SQLite for dashboards",
	Long: `zeeklite walks a tree of date-named Zeek log directories, parses each
log file and loads it into a SQLite database that Grafana (or any other
SQL consumer) can query. Files are tracked by content hash, so re-running
the import never duplicates rows.`,
	Version:       config.ApplicationVersion,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&database, "database", "", "SQLite database path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig resolves the effective configuration, with flags taking
// precedence over file and environment values
func loadConfig() (*config.Config, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}
	if database != "" {
		cfg.Database = database
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*logger.Handler, error) {
	var format logger.Format = logger.SyslogLogFormat
	if cfg.Log != nil && cfg.Log.Format == "json" {
		format = logger.JSONLogFormat
	}
	log, err := logger.New(config.ApplicationName, logger.Options{
		Format: format,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return log, nil
}
