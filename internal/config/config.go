package config

import (
	"fmt"

	config_pkg "github.com/kumarabd/gokit/config"
)

var (
	ApplicationName    = "zeeklite"
	ApplicationVersion = "dev"
)

// LogConfig controls the logger
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

type Config struct {
	// LogsDir is the root of the Zeek date-directory tree
	LogsDir string `json:"logs_dir" yaml:"logs_dir"`
	// Database is the SQLite file the dashboard reads
	Database    string     `json:"database" yaml:"database"`
	Days        int        `json:"days" yaml:"days"`
	LockFile    string     `json:"lock_file" yaml:"lock_file"`
	MetricsFile string     `json:"metrics_file" yaml:"metrics_file"`
	Log         *LogConfig `json:"log,omitempty" yaml:"log,omitempty"`
}

// New creates a new config instance
func New() (*Config, error) {
	// Create default config object
	configObject := &Config{
		LogsDir:  "/var/log/zeek",
		Database: "/var/lib/zeeklite/zeek.db",
		Days:     0, // 0 means every date directory
		LockFile: "/var/lib/zeeklite/import.lock",
		Log: &LogConfig{
			Level:  "info",
			Format: "json",
		},
	}

	// Load config using gokit config package
	finalConfig, err := config_pkg.New(configObject)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if finalConfig == nil {
		return nil, fmt.Errorf("config is nil")
	}

	cfg, ok := finalConfig.(*Config)
	if !ok {
		return nil, fmt.Errorf("config type assertion failed: expected *Config, got %T", finalConfig)
	}

	return cfg, nil
}
