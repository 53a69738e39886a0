package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/marmos91/vaultfs/internal/logger"
	"github.com/marmos91/vaultfs/pkg/api/auth"
	"github.com/marmos91/vaultfs/pkg/catalog"
)

// Server provides an HTTP server for the REST API.
//
// The server exposes health checks, authentication and the catalog APIs.
// It supports graceful shutdown with a configurable timeout.
type Server struct {
	server       *http.Server
	service      *catalog.Service
	jwtService   *auth.JWTService
	users        *auth.Directory
	config       APIConfig
	shutdownOnce sync.Once
}

// NewServer creates a new API HTTP server.
//
// The server is created in a stopped state. Call Start() to begin serving
// requests.
//
// The JWT service is created internally from the config. The JWT secret
// must be configured via config.JWT.Secret or the VAULTFS_API_SECRET
// environment variable and be at least 32 characters long.
//
// Parameters:
//   - config: Server configuration (port, timeouts, JWT config, users)
//   - service: The catalog service backing all data routes
//   - httpMetrics: Per-request instrumentation; nil disables it
//
// Returns a configured but not yet started Server, or an error if JWT
// configuration is invalid.
func NewServer(config APIConfig, service *catalog.Service, httpMetrics HTTPMetrics) (*Server, error) {
	config.applyDefaults()

	// Get JWT secret from config (prefers env var)
	jwtSecret := config.GetJWTSecret()
	if len(jwtSecret) < 32 {
		return nil, fmt.Errorf("JWT secret must be at least 32 characters; set via %s env var or config", EnvAPISecret)
	}

	// Create JWT service internally
	jwtConfig := auth.JWTConfig{
		Secret:               jwtSecret,
		Issuer:               "vaultfs",
		AccessTokenDuration:  config.JWT.AccessTokenDuration,
		RefreshTokenDuration: config.JWT.RefreshTokenDuration,
	}
	jwtService, err := auth.NewJWTService(jwtConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT service: %w", err)
	}

	users := auth.NewDirectory(config.Users)
	if users.Len() == 0 {
		logger.Warn("no API users configured; every login will fail",
			"hint", "run `vaultfs init` to add one")
	}

	router := NewRouter(service, jwtService, users, httpMetrics, config.MaxUploadSize.Int64())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Port),
		Handler:      router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return &Server{
		server:     server,
		service:    service,
		jwtService: jwtService,
		users:      users,
		config:     config,
	}, nil
}

// Start starts the API HTTP server and blocks until the context is
// cancelled or an error occurs.
//
// When the context is cancelled, Start initiates graceful shutdown and
// returns.
//
// Returns:
//   - nil on graceful shutdown
//   - error if the server fails to start or shutdown encounters an error
func (s *Server) Start(ctx context.Context) error {
	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		logger.Info("API server listening", "port", s.config.Port)
		logger.Debug("API endpoints available",
			"health", fmt.Sprintf("http://localhost:%d/health", s.config.Port),
			"ready", fmt.Sprintf("http://localhost:%d/health/ready", s.config.Port),
			"volumes", fmt.Sprintf("http://localhost:%d/health/volumes", s.config.Port),
		)

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
				// Context was cancelled, error is not needed
			}
		}
	}()

	// Wait for context cancellation or server error
	select {
	case <-ctx.Done():
		logger.Info("API server shutdown signal received")
		// Create new context with timeout for graceful shutdown
		// Don't use the cancelled ctx as it would cause immediate shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("API server failed: %w", err)
	}
}

// Stop initiates graceful shutdown of the API server.
//
// Stop is safe to call multiple times and safe to call concurrently with
// Start().
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		logger.Debug("API server shutdown initiated")

		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("API server shutdown error: %w", err)
			logger.Error("API server shutdown error", "error", err)
		} else {
			logger.Info("API server stopped gracefully")
		}
	})
	return shutdownErr
}

// Port returns the TCP port the server is listening on.
func (s *Server) Port() int {
	return s.config.Port
}
