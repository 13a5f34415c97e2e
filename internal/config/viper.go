// Package config loads hierarchical application configuration: defaults,
// then an optional YAML file, then environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"spendwise/importer/internal/logging"
)

// Config is the root application configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	CSV       CSVConfig       `mapstructure:"csv"`
	Import    ImportConfig    `mapstructure:"import"`
	Templates TemplatesConfig `mapstructure:"templates"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig locates the sqlite database.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// CSVConfig controls CSV rendering.
type CSVConfig struct {
	Delimiter string `mapstructure:"delimiter"`
}

// ImportConfig controls the tabular import pipeline.
type ImportConfig struct {
	PreviewTTLMinutes   int    `mapstructure:"preview_ttl_minutes"`
	FallbackCategory    string `mapstructure:"fallback_category"`
	FallbackSubcategory string `mapstructure:"fallback_subcategory"`
}

// TemplatesConfig locates extraction template files.
type TemplatesConfig struct {
	Directory string `mapstructure:"directory"`
}

// Load builds the configuration from defaults, an optional spendwise.yaml in
// the working directory, and SPENDWISE_* environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("database.path", "spendwise.db")
	v.SetDefault("csv.delimiter", ",")
	v.SetDefault("import.preview_ttl_minutes", 60)
	v.SetDefault("import.fallback_category", "Uncategorized")
	v.SetDefault("import.fallback_subcategory", "Uncategorized")
	v.SetDefault("templates.directory", "templates")

	v.SetConfigName("spendwise")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.spendwise")

	v.SetEnvPrefix("SPENDWISE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level %q", cfg.Log.Level)
	}

	if cfg.Log.Format != "text" && cfg.Log.Format != "json" {
		return fmt.Errorf("invalid log format %q", cfg.Log.Format)
	}

	if len(cfg.CSV.Delimiter) != 1 {
		return fmt.Errorf("csv delimiter must be a single character, got %q", cfg.CSV.Delimiter)
	}

	if cfg.Import.PreviewTTLMinutes <= 0 {
		return fmt.Errorf("preview TTL must be positive, got %d", cfg.Import.PreviewTTLMinutes)
	}

	if cfg.Database.Path == "" {
		return fmt.Errorf("database path must not be empty")
	}
	return nil
}

// ConfigureLogging builds a logger from the configuration and installs it as
// the process default.
func ConfigureLogging(cfg *Config) logging.Logger {
	logger := logging.NewLogrusAdapter(cfg.Log.Level, cfg.Log.Format)
	logging.SetDefault(logger)
	return logger
}
