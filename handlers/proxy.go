// ABOUTME: Backend API proxy for the console's data screens
// ABOUTME: Relays /api/* with the session's credentials and streams the backend response back

package handlers

import (
	"io"
	"net/http"

	"github.com/MuhammadJalaludinRumi/frontend-gereja/logger"
	"github.com/MuhammadJalaludinRumi/frontend-gereja/middleware"
)

// hopHeaders are connection-scoped and never forwarded. Set-Cookie is dropped
// because backend cookies belong to the session's jar, not to the browser.
var hopHeaders = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
	"Set-Cookie":          true,
}

// Proxy forwards /api/{path...} to the backend's {api}/{path}.
func (h *Handler) Proxy(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		h.writeError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	path := "/" + r.PathValue("path")
	resp, err := h.api.Forward(r.Context(), sess, r.Method, path, r.URL.RawQuery, r.Body, r.Header.Get("Content-Type"))
	if err != nil {
		log.Error("Backend proxy request failed", "method", r.Method, "path", path, "error", err)
		h.writeError(w, "Backend request failed", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	for key, values := range resp.Header {
		if hopHeaders[http.CanonicalHeaderKey(key)] {
			continue
		}
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}

	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		log.Warn("Backend proxy response interrupted", "path", path, "error", err)
	}
}
