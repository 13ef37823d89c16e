// ABOUTME: JSON error and redirect response helpers for middleware
// ABOUTME: Browser navigations get 302 redirects, XHR callers get JSON bodies

package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/MuhammadJalaludinRumi/frontend-gereja/models"
)

// writeJSONError writes an error response as JSON with the given status code.
// Matches the format used by handlers.writeError for consistency.
func writeJSONError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(models.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// Redirect sends the caller to target. Browser navigations receive a 302;
// XHR and API callers cannot follow a redirect into a view, so they receive
// jsonStatus with {"redirect": target} instead.
func Redirect(w http.ResponseWriter, r *http.Request, target string, jsonStatus int) {
	if WantsJSON(r) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(jsonStatus)
		json.NewEncoder(w).Encode(models.RedirectResponse{Redirect: target})
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// WantsJSON reports whether the request came from script rather than a browser navigation.
func WantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	if r.Header.Get("X-Requested-With") == "XMLHttpRequest" {
		return true
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}
