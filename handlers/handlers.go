// ABOUTME: HTTP handlers for the console server
// ABOUTME: Holds the backend client, auth gateway and session registry shared by every route

package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/MuhammadJalaludinRumi/frontend-gereja/config"
	"github.com/MuhammadJalaludinRumi/frontend-gereja/middleware"
	"github.com/MuhammadJalaludinRumi/frontend-gereja/models"
	"github.com/MuhammadJalaludinRumi/frontend-gereja/services"
)

type Handler struct {
	cfg      *config.Config
	api      *services.APIClient
	gateway  *services.AuthGateway
	registry services.SessionRegistry
	guard    *middleware.RouteGuard
	limiter  *middleware.RateLimiter
}

// NewHandler wires the handlers to a backend client and a session registry.
// A nil cfg is allowed so route tables can be inspected in tests.
func NewHandler(cfg *config.Config, api *services.APIClient, registry services.SessionRegistry) *Handler {
	gateway := services.NewAuthGateway(api)
	h := &Handler{
		cfg:      cfg,
		api:      api,
		gateway:  gateway,
		registry: registry,
		guard:    middleware.NewRouteGuard(gateway, "/healthz", "/metrics"),
	}

	if cfg != nil && cfg.LoginRateLimit > 0 {
		h.limiter = middleware.NewRateLimiter(cfg.LoginRateLimit, time.Minute)
	}

	return h
}

// Gateway exposes the auth gateway, mainly for tests and the CLI.
func (h *Handler) Gateway() *services.AuthGateway {
	return h.gateway
}

// Close stops background work owned by the handlers.
func (h *Handler) Close() {
	if h.limiter != nil {
		h.limiter.Stop()
	}
}

func (h *Handler) mode() models.Mode {
	if h.cfg == nil {
		return models.ModeLocal
	}
	return h.cfg.Mode()
}

// writeJSON writes data as JSON with the given status code
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// writeError writes an error response as JSON
func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	h.writeJSON(w, code, models.ErrorResponse{
		Error: message,
		Code:  code,
	})
}
