package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marmos91/vaultfs/internal/logger"
	"github.com/marmos91/vaultfs/internal/telemetry"
	"github.com/marmos91/vaultfs/pkg/api"
	"github.com/marmos91/vaultfs/pkg/config"
	"github.com/marmos91/vaultfs/pkg/metrics"
	"github.com/marmos91/vaultfs/pkg/metrics/prometheus"
	"github.com/spf13/cobra"

	// Register the built-in volume backends
	_ "github.com/marmos91/vaultfs/pkg/volume/badger"
	_ "github.com/marmos91/vaultfs/pkg/volume/fs"
	_ "github.com/marmos91/vaultfs/pkg/volume/memory"
	_ "github.com/marmos91/vaultfs/pkg/volume/s3"
)

var (
	foreground bool
	pidFile    string
	logFile    string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the VaultFS server",
	Long: `Start the VaultFS server with the specified configuration.

By default, the server runs in the background (daemon mode). Use --foreground
to run in the foreground for debugging or when managed by a process supervisor.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/vaultfs/config.yaml.

Examples:
  # Start in background (default)
  vaultfs start

  # Start in foreground
  vaultfs start --foreground

  # Start with custom config file
  vaultfs start --config /etc/vaultfs/config.yaml

  # Start with environment variable overrides
  VAULTFS_LOGGING_LEVEL=DEBUG vaultfs start --foreground`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "Run in foreground (default: background/daemon mode)")
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/vaultfs/vaultfs.pid)")
	startCmd.Flags().StringVar(&logFile, "log-file", "", "Path to log file for daemon mode (default: $XDG_STATE_HOME/vaultfs/vaultfs.log)")
}

func runStart(cmd *cobra.Command, args []string) error {
	// Handle daemon mode (background)
	if !foreground {
		return startDaemon()
	}

	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	// Initialize the structured logger
	if err := InitLogger(cfg); err != nil {
		return err
	}

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry (if enabled)
	telemetryCfg := telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "vaultfs",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	}
	telemetryShutdown, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	// Initialize Pyroscope profiling (if enabled)
	profilingCfg := telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "vaultfs",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	}
	profilingShutdown, err := telemetry.InitProfiling(profilingCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	fmt.Println("VaultFS - Asset catalog server")
	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	} else {
		logger.Info("Telemetry disabled")
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint, "profile_types", cfg.Telemetry.Profiling.ProfileTypes)
	} else {
		logger.Info("Profiling disabled")
	}

	// Initialize metrics (if enabled)
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		metricsServer = metrics.NewServer(fmt.Sprintf(":%d", cfg.Metrics.Port))
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
	} else {
		logger.Info("Metrics collection disabled")
	}

	// Initialize the catalog (store, transform cache, volume backends)
	service, err := config.InitializeCatalog(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize catalog: %w", err)
	}
	defer func() {
		if err := service.Volumes().Close(); err != nil {
			logger.Error("volume backend shutdown error", "error", err)
		}
		if err := service.Store().Close(); err != nil {
			logger.Error("catalog store shutdown error", "error", err)
		}
	}()

	// Create the API server
	apiServer, err := api.NewServer(cfg.API, service, prometheus.NewHTTPMetrics())
	if err != nil {
		return fmt.Errorf("failed to create API server: %w", err)
	}
	logger.Info("API server configured", "port", apiServer.Port())

	// Write PID file if specified
	if pidFile != "" {
		if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer func() { _ = os.Remove(pidFile) }()
	}

	// Serve metrics on its own listener
	if metricsServer != nil {
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.Error("Metrics server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("Metrics server shutdown error", "error", err)
			}
		}()
	}

	// Sweep queued transform working copies in the background
	if transforms := service.Transforms(); transforms != nil {
		go func() {
			ticker := time.NewTicker(cfg.Transform.SweepInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if removed := transforms.Sweep(ctx); removed > 0 {
						logger.Debug("Swept transform working copies", logger.Count(removed))
					}
				}
			}
		}()
	}

	// Start the API server in background
	serverDone := make(chan error, 1)
	go func() {
		serverDone <- apiServer.Start(ctx)
	}()

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()

		// Wait for server to shut down gracefully
		if err := <-serverDone; err != nil {
			logger.Error("Server shutdown error", "error", err)
			return err
		}
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("Server error", "error", err)
			return err
		}
		logger.Info("Server stopped")
	}

	return nil
}

// getConfigSource returns a description of where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}
