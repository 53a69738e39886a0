package config

import (
	"strings"
	"time"

	"github.com/marmos91/vaultfs/internal/bytesize"
	"github.com/marmos91/vaultfs/pkg/api"
	"github.com/marmos91/vaultfs/pkg/catalog/store"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyShutdownTimeoutDefaults(cfg)
	applyDatabaseDefaults(&cfg.Database)
	applyMetricsDefaults(&cfg.Metrics)
	applyAPIDefaults(&cfg.API)
	applyTransformDefaults(&cfg.Transform)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	// Enabled defaults to false (opt-in for telemetry)
	// No need to set, zero value is false

	// Default endpoint is localhost:4317 (standard OTLP gRPC port)
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}

	// Default sample rate is 1.0 (sample all traces)
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	// Apply profiling defaults
	applyProfilingDefaults(&cfg.Profiling)
}

// applyProfilingDefaults sets Pyroscope profiling defaults.
func applyProfilingDefaults(cfg *ProfilingConfig) {
	// Enabled defaults to false (opt-in for profiling)
	// No need to set, zero value is false

	// Default endpoint is localhost:4040 (standard Pyroscope port)
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}

	// Default profile types include CPU, memory allocation, and goroutines
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

// applyShutdownTimeoutDefaults sets shutdown timeout defaults.
func applyShutdownTimeoutDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyDatabaseDefaults sets catalog database defaults.
func applyDatabaseDefaults(cfg *store.Config) {
	cfg.ApplyDefaults()
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	// Enabled defaults to false (opt-in for metrics)
	// Port defaults to 9090 if metrics are enabled
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// applyAPIDefaults sets REST API server defaults.
// The API is always enabled (mandatory for managing volumes and assets).
func applyAPIDefaults(cfg *api.APIConfig) {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
	if cfg.MaxUploadSize == 0 {
		cfg.MaxUploadSize = bytesize.GiB // 1 GiB
	}
}

// applyTransformDefaults sets transform cache defaults.
// CacheDir has no default here; an empty value makes the cache fall back
// to $XDG_CACHE_HOME/vaultfs/transform-sources.
func applyTransformDefaults(cfg *TransformConfig) {
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = 15 * time.Minute
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		Logging: LoggingConfig{},
		Database: store.Config{
			Type: store.DatabaseTypeSQLite, // Default to SQLite for single-node
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
