// Package api provides the supporting HTTP handlers (health) and JSON helpers.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	model     string
	websocket bool
}

// NewHealthHandler creates a health handler reporting the configured model.
func NewHealthHandler(model string, websocket bool) *HealthHandler {
	return &HealthHandler{model: model, websocket: websocket}
}

// Health reports process liveness and the upstream model in use. It does not
// call the model service.
func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	if h.model == "" {
		Error(w, http.StatusServiceUnavailable, "model not configured")
		return
	}

	checks := map[string]string{
		"api":   "ok",
		"model": h.model,
	}
	if h.websocket {
		checks["websocket"] = "enabled"
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"checks": checks,
	})
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.Health)
}
