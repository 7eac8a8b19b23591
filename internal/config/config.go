package config

import (
	"os"
	"strconv"
	"time"

	"gohbm/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	LogLevel    string
	Diagnostics DiagnosticsConfig
	Summary     SummaryConfig
	Database    DatabaseConfig
}

// DiagnosticsConfig holds convergence thresholds
type DiagnosticsConfig struct {
	GewekeZThreshold float64
	RHatThreshold    float64
	Workers          int
	Timeout          time.Duration
}

// SummaryConfig holds posterior summary settings
type SummaryConfig struct {
	Alpha   float64
	Batches int
}

// DatabaseConfig holds the optional trace store connection
type DatabaseConfig struct {
	URL        string
	TraceTable string
}

// Enabled reports whether a trace store was configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		LogLevel:    getEnvOrDefault("LOG_LEVEL", "INFO"),
		Diagnostics: *loadDiagnosticsConfig(),
		Summary:     *loadSummaryConfig(),
		Database:    *loadDatabaseConfig(),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadDiagnosticsConfig() *DiagnosticsConfig {
	return &DiagnosticsConfig{
		GewekeZThreshold: getEnvFloatOrDefault("GEWEKE_Z_THRESHOLD", 2.0),
		RHatThreshold:    getEnvFloatOrDefault("RHAT_THRESHOLD", 1.1),
		Workers:          getEnvIntOrDefault("DIAG_WORKERS", 4),
		Timeout:          getEnvDurationOrDefault("DIAG_TIMEOUT", 5*time.Minute),
	}
}

func loadSummaryConfig() *SummaryConfig {
	return &SummaryConfig{
		Alpha:   getEnvFloatOrDefault("STATS_ALPHA", 0.05),
		Batches: getEnvIntOrDefault("STATS_BATCHES", 100),
	}
}

func loadDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		URL:        getEnvOrDefault("DATABASE_URL", ""),
		TraceTable: getEnvOrDefault("TRACE_TABLE", "traces"),
	}
}

func validateConfig(config *Config) error {
	if config.Diagnostics.GewekeZThreshold <= 0 {
		return errors.ConfigInvalid("GEWEKE_Z_THRESHOLD must be positive")
	}
	if config.Diagnostics.RHatThreshold < 1 {
		return errors.ConfigInvalid("RHAT_THRESHOLD must be at least 1")
	}
	if config.Diagnostics.Workers < 1 {
		return errors.ConfigInvalid("DIAG_WORKERS must be at least 1")
	}
	if config.Summary.Alpha <= 0 || config.Summary.Alpha >= 1 {
		return errors.ConfigInvalid("STATS_ALPHA must be in (0, 1)")
	}
	if config.Summary.Batches < 1 {
		return errors.ConfigInvalid("STATS_BATCHES must be at least 1")
	}
	if config.Database.Enabled() && !validIdentifier(config.Database.TraceTable) {
		return errors.ConfigInvalid("TRACE_TABLE must be a plain SQL identifier")
	}
	return nil
}

func validIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
