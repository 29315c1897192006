package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	mode   string
	logger *slog.Logger
}

// NewHealthHandler creates a HealthHandler reporting the given run mode.
func NewHealthHandler(mode string, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{mode: mode, logger: logger}
}

// HealthCheck responds with a simple JSON status indicating the engine is alive.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"mode":      h.mode,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
