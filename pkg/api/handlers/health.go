package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/marmos91/vaultfs/pkg/catalog"
)

// HealthCheckTimeout is the maximum time allowed for health check
// operations, so slow stores or backends cannot block probes indefinitely.
const HealthCheckTimeout = 5 * time.Second

// HealthResponse is the envelope for health endpoints.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
}

func healthyResponse(data any) HealthResponse {
	return HealthResponse{Status: "healthy", Timestamp: time.Now().UTC(), Data: data}
}

func unhealthyResponse(errMsg string) HealthResponse {
	return HealthResponse{Status: "unhealthy", Timestamp: time.Now().UTC(), Error: errMsg}
}

// HealthHandler handles health check endpoints.
//
// Health endpoints are unauthenticated and provide:
//   - Liveness probe: Is the server process running?
//   - Readiness probe: Is the metadata index reachable?
//   - Volume health: Detailed health status of every volume backend
type HealthHandler struct {
	service   *catalog.Service
	startTime time.Time
}

// NewHealthHandler creates a new health handler.
//
// The service parameter may be nil, in which case readiness and volume
// health checks return unhealthy status.
func NewHealthHandler(service *catalog.Service) *HealthHandler {
	return &HealthHandler{
		service:   service,
		startTime: time.Now(),
	}
}

// Liveness handles GET /health - simple liveness probe.
//
// Returns 200 OK if the server process is running. Designed for
// orchestrator liveness probes; succeeds as long as the HTTP server is
// responsive.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(h.startTime)
	WriteJSON(w, http.StatusOK, healthyResponse(map[string]any{
		"service":    "vaultfs",
		"started_at": h.startTime.UTC().Format(time.RFC3339),
		"uptime":     uptime.Round(time.Second).String(),
		"uptime_sec": int64(uptime.Seconds()),
	}))
}

// Readiness handles GET /health/ready - readiness probe.
// Returns 200 OK if the metadata index answers a ping.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		WriteJSON(w, http.StatusServiceUnavailable, unhealthyResponse("catalog not initialized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), HealthCheckTimeout)
	defer cancel()

	if err := h.service.Store().Ping(ctx); err != nil {
		WriteJSON(w, http.StatusServiceUnavailable, unhealthyResponse(err.Error()))
		return
	}

	WriteJSON(w, http.StatusOK, healthyResponse(nil))
}

// VolumeHealth represents the health status of a single volume backend.
type VolumeHealth struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Backend string `json:"backend"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Volumes handles GET /health/volumes - detailed volume backend health.
//
// Opens every registered volume's backend and runs its health check.
// Returns 200 OK if all backends are healthy, 503 Service Unavailable
// if any backend is unreachable.
func (h *HealthHandler) Volumes(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		WriteJSON(w, http.StatusServiceUnavailable, unhealthyResponse("catalog not initialized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), HealthCheckTimeout)
	defer cancel()

	volumes, err := h.service.Store().ListVolumes(ctx)
	if err != nil {
		WriteJSON(w, http.StatusServiceUnavailable, unhealthyResponse(err.Error()))
		return
	}

	checks := make([]VolumeHealth, 0, len(volumes))
	allHealthy := true

	for _, vol := range volumes {
		check := VolumeHealth{ID: vol.ID, Name: vol.Name, Backend: vol.Backend}

		backend, berr := h.service.Volumes().Backend(ctx, vol)
		if berr == nil {
			start := time.Now()
			berr = backend.HealthCheck(ctx)
			check.Latency = time.Since(start).String()
		}

		if berr != nil {
			check.Status = "unhealthy"
			check.Error = berr.Error()
			allHealthy = false
		} else {
			check.Status = "healthy"
		}

		checks = append(checks, check)
	}

	status := http.StatusOK
	response := healthyResponse(map[string]any{"volumes": checks})
	if !allHealthy {
		status = http.StatusServiceUnavailable
		response = unhealthyResponse("one or more volume backends are unhealthy")
		response.Data = map[string]any{"volumes": checks}
	}
	WriteJSON(w, status, response)
}
