// ABOUTME: Test helpers for middleware tests
// ABOUTME: Minimal backend fake plus a real gateway and memory registry

package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MuhammadJalaludinRumi/frontend-gereja/models"
	"github.com/MuhammadJalaludinRumi/frontend-gereja/services"
)

// 44-character tokens matching base64url-encoded 32 bytes
const (
	testCSRFToken  = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnop=="
	testCSRFToken2 = "ZYXWVUTSRQPONMLKJIHGFEDCBAzyxwvutsrqponmlk=="
)

// testBackend serves /api/login and /api/me for a single bearer token.
type testBackend struct {
	server  *httptest.Server
	meCalls atomic.Int32

	mu   sync.Mutex
	user map[string]interface{}
}

func newTestBackend(t *testing.T) *testBackend {
	t.Helper()
	tb := &testBackend{
		user: map[string]interface{}{"id": 5, "username": "majelis", "role_id": "2", "is_active": 1},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"token": "tok", "user": tb.currentUser()})
	})
	mux.HandleFunc("GET /api/me", func(w http.ResponseWriter, r *http.Request) {
		tb.meCalls.Add(1)
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(tb.currentUser())
	})

	tb.server = httptest.NewServer(mux)
	t.Cleanup(tb.server.Close)
	return tb
}

func (tb *testBackend) currentUser() map[string]interface{} {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.user
}

func (tb *testBackend) setUser(fields map[string]interface{}) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.user = fields
}

func (tb *testBackend) gateway(t *testing.T) *services.AuthGateway {
	t.Helper()
	api, err := services.NewAPIClient(services.APIConfig{
		APIURL:  tb.server.URL + "/api",
		RootURL: tb.server.URL,
		Timeout: time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}
	return services.NewAuthGateway(api)
}

// countingResolver records how often the guard asks for an identity.
type countingResolver struct {
	inner UserResolver
	calls atomic.Int32
}

func (c *countingResolver) FetchUser(ctx context.Context, s *services.Session) *models.User {
	c.calls.Add(1)
	return c.inner.FetchUser(ctx, s)
}

func newTestRegistry(t *testing.T) *services.MemoryRegistry {
	t.Helper()
	reg := services.NewMemoryRegistry(models.ModeLocal, time.Hour)
	t.Cleanup(func() { reg.Close() })
	return reg
}

// loggedInSession creates a registered session that has completed a local-mode login.
func loggedInSession(t *testing.T, reg services.SessionRegistry, gw *services.AuthGateway) *services.Session {
	t.Helper()
	sess, err := reg.Create(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := gw.Login(context.Background(), sess, "majelis", "rahasia"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return sess
}

func testSessionConfig(reg services.SessionRegistry) SessionConfig {
	return SessionConfig{Registry: reg, SameSite: http.SameSiteLaxMode, TTL: time.Hour}
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
