package config

import (
	"errors"
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all job settings, populated from environment variables with
// the TRIP_ETL prefix.
type Config struct {
	// Source CSV directory and the glob applied to file names within it.
	InputDir    string `envconfig:"INPUT_DIR" default:"data/source"`
	FilePattern string `envconfig:"FILE_PATTERN" default:"*-tripdata.csv"`

	// Optional outputs. Empty paths disable persistence.
	CombinedOutput string `envconfig:"COMBINED_OUTPUT" default:""`
	SummaryDir     string `envconfig:"SUMMARY_DIR" default:""`

	// Auxiliary weather document consumed by the aggregator. Empty disables
	// the weather-condition dimension.
	WeatherPath string `envconfig:"WEATHER_PATH" default:""`

	// Timestamp columns in the source exports.
	StartColumn string `envconfig:"START_COLUMN" default:"started_at"`
	EndColumn   string `envconfig:"END_COLUMN" default:"ended_at"`

	// Identifier columns coerced to uniform text during normalization.
	IDColumns []string `envconfig:"ID_COLUMNS" default:"start_station_id,end_station_id"`

	// Block transformation settings.
	BlockSize int `envconfig:"BLOCK_SIZE" default:"1000000"`
	Workers   int `envconfig:"WORKERS" default:"4"`

	// Duration-outlier ceiling in minutes; trips longer than this (or with
	// negative duration) are removed.
	MaxDurationMinutes float64 `envconfig:"MAX_DURATION_MINUTES" default:"1440"`

	// Dimensions the aggregator summarizes over. "weather" is special and
	// requires WeatherPath.
	SummaryDimensions []string `envconfig:"SUMMARY_DIMENSIONS" default:"season,day_of_week,start_hour,member_casual,rideable_type,weather"`

	// Address of the monitoring HTTP server (/healthz, /statusz, /metrics).
	// Empty disables it.
	MonitorAddr string `envconfig:"MONITOR_ADDR" default:""`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("TRIP_ETL", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if cfg.InputDir == "" {
		return nil, errors.New("TRIP_ETL_INPUT_DIR is required")
	}
	if cfg.FilePattern == "" {
		return nil, errors.New("TRIP_ETL_FILE_PATTERN is required")
	}
	if cfg.BlockSize <= 0 {
		return nil, errors.New("TRIP_ETL_BLOCK_SIZE must be positive")
	}
	if cfg.Workers <= 0 {
		return nil, errors.New("TRIP_ETL_WORKERS must be positive")
	}
	if cfg.MaxDurationMinutes <= 0 {
		return nil, errors.New("TRIP_ETL_MAX_DURATION_MINUTES must be positive")
	}
	if cfg.StartColumn == "" || cfg.EndColumn == "" {
		return nil, errors.New("TRIP_ETL_START_COLUMN and TRIP_ETL_END_COLUMN are required")
	}
	return &cfg, nil
}
