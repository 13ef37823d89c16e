// ABOUTME: Liveness handler for the console server
// ABOUTME: Reports the mode, backend reachability and session store status

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/MuhammadJalaludinRumi/frontend-gereja/models"
)

const healthCheckTimeout = 2 * time.Second

// pinger is implemented by session registries backed by an external store.
type pinger interface {
	Ping(ctx context.Context) error
}

// Health always answers 200 while the process is serving; degraded
// dependencies are reported in the body.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := models.HealthResponse{
		Status:   "ok",
		Mode:     h.mode(),
		Backend:  "not_configured",
		Sessions: "memory",
	}

	if h.api != nil {
		resp.Backend = "ok"
		if err := h.api.Ping(ctx); err != nil {
			slog.Warn("Backend unreachable", "error", err)
			resp.Backend = "unreachable"
			resp.Status = "degraded"
		}
	}

	if p, ok := h.registry.(pinger); ok {
		resp.Sessions = "ok"
		if err := p.Ping(ctx); err != nil {
			slog.Warn("Session store unreachable", "error", err)
			resp.Sessions = "unreachable"
			resp.Status = "degraded"
		}
	}

	h.writeJSON(w, http.StatusOK, resp)
}
