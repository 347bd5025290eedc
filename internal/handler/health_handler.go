package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"vibe-be/internal/container"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	container *container.Container
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(container *container.Container) *HealthHandler {
	return &HealthHandler{
		container: container,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Service   string            `json:"service"`
	Backends  map[string]string `json:"backends"`
}

// Check handles GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.container.GetLogger()

	backends := map[string]string{
		"database": "not_configured",
		"redis":    "not_configured",
	}
	status := "healthy"

	if h.container.HasDB() {
		if err := h.container.GetDB().Health(ctx); err != nil {
			logger.WithError(err).Warn("Database health check failed")
			backends["database"] = "unhealthy"
			status = "degraded"
		} else {
			backends["database"] = "healthy"
		}
	}

	if h.container.HasRedis() {
		if err := h.container.GetRedisClient().Health(ctx); err != nil {
			logger.WithError(err).Warn("Redis health check failed")
			backends["redis"] = "unhealthy"
			status = "degraded"
		} else {
			backends["redis"] = "healthy"
		}
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Version:   "1.0.0",
		Service:   "vibe-be",
		Backends:  backends,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.WithError(err).Error("Failed to encode health check response")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
}
