package config

import (
	"testing"
	"time"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default log format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default log output 'stdout', got %q", cfg.Logging.Output)
	}
}

func TestApplyDefaults_ShutdownTimeout(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown timeout 30s, got %v", cfg.ShutdownTimeout)
	}
}

func TestApplyDefaults_API(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.API.Port != 8080 {
		t.Errorf("Expected default API port 8080, got %d", cfg.API.Port)
	}
	if cfg.API.ReadTimeout != 10*time.Second {
		t.Errorf("Expected default read timeout 10s, got %v", cfg.API.ReadTimeout)
	}
	if cfg.API.WriteTimeout != 10*time.Second {
		t.Errorf("Expected default write timeout 10s, got %v", cfg.API.WriteTimeout)
	}
	if cfg.API.IdleTimeout != 60*time.Second {
		t.Errorf("Expected default idle timeout 60s, got %v", cfg.API.IdleTimeout)
	}
	if cfg.API.MaxUploadSize.Int64() != 1<<30 {
		t.Errorf("Expected default max upload size 1GiB, got %v", cfg.API.MaxUploadSize)
	}
}

func TestApplyDefaults_Metrics(t *testing.T) {
	// Disabled metrics get no port default
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Metrics.Port != 0 {
		t.Errorf("Expected no metrics port when disabled, got %d", cfg.Metrics.Port)
	}

	// Enabled metrics default to port 9090
	cfg = &Config{Metrics: MetricsConfig{Enabled: true}}
	ApplyDefaults(cfg)
	if cfg.Metrics.Port != 9090 {
		t.Errorf("Expected default metrics port 9090, got %d", cfg.Metrics.Port)
	}
}

func TestApplyDefaults_Transform(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Transform.SweepInterval != 15*time.Minute {
		t.Errorf("Expected default sweep interval 15m, got %v", cfg.Transform.SweepInterval)
	}
	// CacheDir stays empty so the transform cache falls back to the
	// XDG default at construction time.
	if cfg.Transform.CacheDir != "" {
		t.Errorf("Expected empty cache dir, got %q", cfg.Transform.CacheDir)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging: LoggingConfig{
			Level:  "DEBUG",
			Format: "json",
			Output: "/var/log/vaultfs.log",
		},
		ShutdownTimeout: 60 * time.Second,
		Transform: TransformConfig{
			CacheDir:      "/var/cache/vaultfs",
			SweepInterval: time.Hour,
		},
	}

	ApplyDefaults(cfg)

	// Verify explicit values were preserved
	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected explicit level 'DEBUG' to be preserved, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected explicit format 'json' to be preserved, got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "/var/log/vaultfs.log" {
		t.Errorf("Expected explicit output to be preserved, got %q", cfg.Logging.Output)
	}
	if cfg.ShutdownTimeout != 60*time.Second {
		t.Errorf("Expected explicit timeout 60s to be preserved, got %v", cfg.ShutdownTimeout)
	}
	if cfg.Transform.CacheDir != "/var/cache/vaultfs" {
		t.Errorf("Expected explicit cache dir to be preserved, got %q", cfg.Transform.CacheDir)
	}
	if cfg.Transform.SweepInterval != time.Hour {
		t.Errorf("Expected explicit sweep interval to be preserved, got %v", cfg.Transform.SweepInterval)
	}
}

func TestGetDefaultConfig_IsValid(t *testing.T) {
	cfg := GetDefaultConfig()

	// The default config should pass validation
	err := Validate(cfg)
	if err != nil {
		t.Errorf("Default config should be valid, got error: %v", err)
	}
}

func TestGetDefaultConfig_HasRequiredFields(t *testing.T) {
	cfg := GetDefaultConfig()

	// Check all required sections are present
	if cfg.Logging.Level == "" {
		t.Error("Default config missing logging level")
	}
	if cfg.API.Port == 0 {
		t.Error("Default config missing API port")
	}
	if cfg.Database.Type == "" {
		t.Error("Default config missing database type")
	}
	if cfg.Database.SQLite.Path == "" {
		t.Error("Default config missing SQLite path")
	}
}
