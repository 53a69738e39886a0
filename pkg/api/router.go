package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/vaultfs/internal/logger"
	"github.com/marmos91/vaultfs/pkg/api/auth"
	"github.com/marmos91/vaultfs/pkg/api/handlers"
	apiMiddleware "github.com/marmos91/vaultfs/pkg/api/middleware"
	"github.com/marmos91/vaultfs/pkg/catalog"
)

// NewRouter creates and configures the chi router with all middleware and routes.
//
// The router is configured with:
//   - Request ID middleware for request tracking
//   - Real IP extraction for proper client identification
//   - Custom request logging using the internal logger
//   - Panic recovery to prevent server crashes
//   - Request timeout to prevent hung requests
//
// Routes:
//   - GET /health - Liveness probe
//   - GET /health/ready - Readiness probe
//   - GET /health/volumes - Per-volume backend health
//   - POST /api/v1/auth/login - User authentication
//   - POST /api/v1/auth/refresh - Token refresh
//   - GET /api/v1/auth/me - Current user info
//   - /api/v1/volumes/* - Volume management (writes admin only)
//   - /api/v1/folders/* - Folder catalog operations
//   - /api/v1/assets/* - Asset catalog operations
//
// Write routes are gated on the caller's role: creating and renaming
// requires the edit permission, deleting requires the delete permission
// and volume management is admin only.
func NewRouter(service *catalog.Service, jwtService *auth.JWTService, users *auth.Directory, httpMetrics HTTPMetrics, maxUploadBytes int64) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	if httpMetrics != nil {
		r.Use(httpMetricsMiddleware(httpMetrics))
	}

	// Health routes - unauthenticated
	healthHandler := handlers.NewHealthHandler(service)
	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
		r.Get("/volumes", healthHandler.Volumes)
	})

	// Root redirect to health for convenience
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	authHandler := handlers.NewAuthHandler(users, jwtService)
	volumeHandler := handlers.NewVolumeHandler(service)
	folderHandler := handlers.NewFolderHandler(service)
	assetHandler := handlers.NewAssetHandler(service, maxUploadBytes)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Auth routes - mostly unauthenticated
		r.Route("/auth", func(r chi.Router) {
			// Public endpoints
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)

			// Authenticated endpoint
			r.Group(func(r chi.Router) {
				r.Use(apiMiddleware.JWTAuth(jwtService))
				r.Get("/me", authHandler.Me)
			})
		})

		// Protected routes - require authentication
		r.Group(func(r chi.Router) {
			r.Use(apiMiddleware.JWTAuth(jwtService))

			// Volume management
			r.Route("/volumes", func(r chi.Router) {
				r.Get("/", volumeHandler.List)
				r.Get("/tree", volumeHandler.Forest)
				r.Get("/{id}", volumeHandler.Get)
				r.Get("/{id}/tree", volumeHandler.Tree)

				// Admin-only operations
				r.Group(func(r chi.Router) {
					r.Use(apiMiddleware.RequireAdmin())

					r.Post("/", volumeHandler.Create)
					r.Delete("/{id}", volumeHandler.Delete)
				})
			})

			// Folder catalog operations
			r.Route("/folders", func(r chi.Router) {
				r.Get("/{id}", folderHandler.Get)
				r.Get("/{id}/assets", assetHandler.ListByFolder)

				r.Group(func(r chi.Router) {
					r.Use(apiMiddleware.RequirePermission(catalog.PermissionEdit))

					r.Post("/", folderHandler.Create)
					r.Post("/ensure", folderHandler.Ensure)
				})

				r.Group(func(r chi.Router) {
					r.Use(apiMiddleware.RequirePermission(catalog.PermissionDelete))

					r.Delete("/", folderHandler.Delete)
				})
			})

			// Asset catalog operations
			r.Route("/assets", func(r chi.Router) {
				r.Get("/{id}", assetHandler.Get)

				r.Group(func(r chi.Router) {
					r.Use(apiMiddleware.RequirePermission(catalog.PermissionEdit))

					r.Post("/", assetHandler.Upload)
					r.Post("/{id}/rename", assetHandler.Rename)
				})

				r.Group(func(r chi.Router) {
					r.Use(apiMiddleware.RequirePermission(catalog.PermissionDelete))

					r.Delete("/", assetHandler.DeleteBulk)
					r.Delete("/{id}", assetHandler.DeleteOne)
				})
			})
		})
	})

	return r
}

// isHealthPath returns true if the request path is a healthcheck endpoint.
func isHealthPath(path string) bool {
	return path == "/health" || strings.HasPrefix(path, "/health/")
}

// requestLogger is a custom middleware that logs requests using the internal logger.
//
// It logs:
//   - Request start (DEBUG level): method, path, remote addr
//   - Request completion (INFO level): method, path, status, duration
//   - Healthcheck requests are logged at DEBUG level to reduce noise
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("API request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		// Wrap response writer to capture status code
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)

		logArgs := []any{
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", duration.String(),
		}

		// Log healthcheck requests at DEBUG to avoid polluting logs in k8s
		if isHealthPath(r.URL.Path) {
			logger.Debug("API request completed", logArgs...)
		} else {
			logger.Info("API request completed", logArgs...)
		}
	})
}
