// ABOUTME: CORS middleware for a console SPA hosted on another origin
// ABOUTME: Echoes allow-listed origins with credentials and answers preflights

package middleware

import (
	"net/http"
	"slices"
)

const (
	corsAllowMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	corsAllowHeaders = "Content-Type, X-CSRF-Token, X-Requested-With"
)

// CORSWithConfig returns middleware admitting cross-origin requests from the
// given origins. Console requests carry the session cookie, so the origin is
// echoed rather than wildcarded. OPTIONS preflights are answered with 204
// without calling the wrapped handler; disallowed origins get no CORS headers.
func CORSWithConfig(allowedOrigins []string) func(http.HandlerFunc) http.HandlerFunc {
	allowed := slices.Clone(allowedOrigins)

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				w.Header().Add("Vary", "Origin")
			}
			if origin != "" && slices.Contains(allowed, origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods", corsAllowMethods)
				w.Header().Set("Access-Control-Allow-Headers", corsAllowHeaders)
			}

			if r.Method == http.MethodOptions && origin != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next(w, r)
		}
	}
}
