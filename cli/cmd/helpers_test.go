// ABOUTME: Test helpers for CLI command tests
// ABOUTME: Token-issuing backend fake and isolation of the package's global flags

package cmd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
)

const testToken = "5|majelis-token"

type tokenBackend struct {
	server      *httptest.Server
	logoutCalls atomic.Int32
	revoked     atomic.Bool
}

func newTokenBackend(t *testing.T) *tokenBackend {
	t.Helper()
	tb := &tokenBackend{}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Username != "majelis" || req.Password != "rahasia" {
			writeTestJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "Username atau password salah"})
			return
		}
		writeTestJSON(w, http.StatusOK, map[string]interface{}{
			"token": testToken,
			"user":  map[string]interface{}{"id": 5, "username": "majelis", "role_id": 2, "is_active": 1},
		})
	})
	mux.HandleFunc("GET /api/me", func(w http.ResponseWriter, r *http.Request) {
		if tb.revoked.Load() || r.Header.Get("Authorization") != "Bearer "+testToken {
			writeTestJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthenticated."})
			return
		}
		writeTestJSON(w, http.StatusOK, map[string]interface{}{
			"id": 5, "username": "majelis", "name": "Majelis Jemaat", "role_id": "2", "is_active": true,
		})
	})
	mux.HandleFunc("POST /api/logout", func(w http.ResponseWriter, r *http.Request) {
		tb.logoutCalls.Add(1)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/api/{$}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tb.server = httptest.NewServer(mux)
	t.Cleanup(tb.server.Close)
	return tb
}

func writeTestJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// useBackend points the global flags at url and a fresh token file for one test.
func useBackend(t *testing.T, url string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "token.json")

	apiURL = url
	tokenFile = path
	jsonOutput = false
	t.Cleanup(func() {
		apiURL = ""
		tokenFile = ""
		jsonOutput = false
	})
	return path
}
