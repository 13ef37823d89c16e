// ABOUTME: Test helpers for e2e tests
// ABOUTME: Sanctum-style backend fake, environment setup and a TLS console with a cookie-keeping browser

package e2e

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/MuhammadJalaludinRumi/frontend-gereja/config"
	"github.com/MuhammadJalaludinRumi/frontend-gereja/handlers"
	"github.com/MuhammadJalaludinRumi/frontend-gereja/middleware"
	"github.com/MuhammadJalaludinRumi/frontend-gereja/services"
)

const (
	xsrfRaw     = "eyJpdiI6ImUyZSJ9%3D%3D"
	xsrfDecoded = "eyJpdiI6ImUyZSJ9=="
)

// withTestEnv sets the console's environment for one test.
//
// Example:
//
//	func TestSomething(t *testing.T) {
//	    withTestEnv(t, backend.URL, map[string]string{
//	        "SESSION_SECURE_COOKIE": "true",
//	    })
//	}
func withTestEnv(t *testing.T, apiBaseURL string, extra map[string]string) {
	t.Helper()

	t.Setenv("ENV_FILE", "testdata-does-not-exist.env")
	t.Setenv("API_BASE_URL", apiBaseURL)
	t.Setenv("SESSION_STORE", "memory")
	t.Setenv("LOGIN_RATE_LIMIT", "0")
	for key, value := range extra {
		t.Setenv(key, value)
	}
}

// sanctumBackend emulates cookie-based SPA authentication: a CSRF cookie
// endpoint, an XSRF-checked login, and identity bound to the backend session cookie.
type sanctumBackend struct {
	server *httptest.Server

	csrfCalls   atomic.Int32
	meCalls     atomic.Int32
	logoutCalls atomic.Int32
	newsCalls   atomic.Int32
	sawBearer   atomic.Bool

	mu       sync.Mutex
	sessions map[string]bool // backend session cookie -> authenticated
	nextID   int
}

func newSanctumBackend(t *testing.T) *sanctumBackend {
	t.Helper()
	sb := &sanctumBackend{sessions: make(map[string]bool)}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /sanctum/csrf-cookie", func(w http.ResponseWriter, r *http.Request) {
		sb.csrfCalls.Add(1)
		http.SetCookie(w, &http.Cookie{Name: services.XSRFCookieName, Value: xsrfRaw, Path: "/"})
		http.SetCookie(w, &http.Cookie{Name: "laravel_session", Value: sb.newSession(), Path: "/", HttpOnly: true})
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		if !sb.checkXSRF(w, r) {
			return
		}
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Username != "bendahara" || req.Password != "rahasia" {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "Username atau password salah"})
			return
		}
		sb.setAuthenticated(r, true)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"user": map[string]interface{}{"id": 7, "username": "bendahara", "role_id": "2", "is_active": true},
		})
	})
	mux.HandleFunc("GET /api/me", func(w http.ResponseWriter, r *http.Request) {
		sb.meCalls.Add(1)
		if !sb.authenticated(r) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthenticated."})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"id": 7, "username": "bendahara", "role_id": 2, "is_active": 1})
	})
	mux.HandleFunc("POST /api/logout", func(w http.ResponseWriter, r *http.Request) {
		sb.logoutCalls.Add(1)
		if !sb.checkXSRF(w, r) {
			return
		}
		sb.setAuthenticated(r, false)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /api/news", func(w http.ResponseWriter, r *http.Request) {
		sb.newsCalls.Add(1)
		if !sb.checkXSRF(w, r) {
			return
		}
		if !sb.authenticated(r) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthenticated."})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"title": "Ibadah Minggu"})
	})

	sb.server = httptest.NewServer(mux)
	t.Cleanup(sb.server.Close)
	return sb
}

func (sb *sanctumBackend) newSession() string {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.nextID++
	id := fmt.Sprintf("s%d", sb.nextID)
	sb.sessions[id] = false
	return id
}

func (sb *sanctumBackend) authenticated(r *http.Request) bool {
	if r.Header.Get("Authorization") != "" {
		sb.sawBearer.Store(true)
	}
	c, err := r.Cookie("laravel_session")
	if err != nil {
		return false
	}
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.sessions[c.Value]
}

func (sb *sanctumBackend) setAuthenticated(r *http.Request, v bool) {
	c, err := r.Cookie("laravel_session")
	if err != nil {
		return
	}
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.sessions[c.Value] = v
}

// expireAll drops every backend session, as if the backend restarted.
func (sb *sanctumBackend) expireAll() {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	for id := range sb.sessions {
		sb.sessions[id] = false
	}
}

func (sb *sanctumBackend) checkXSRF(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("Authorization") != "" {
		sb.sawBearer.Store(true)
	}
	if r.Header.Get(services.XSRFHeaderName) != xsrfDecoded {
		writeJSON(w, 419, map[string]string{"message": "CSRF token mismatch."})
		return false
	}
	if _, err := r.Cookie("laravel_session"); err != nil {
		writeJSON(w, 419, map[string]string{"message": "CSRF token mismatch."})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// console is a TLS console server wired the way main wires it, plus a browser.
type console struct {
	t      *testing.T
	server *httptest.Server
	client *http.Client
}

func startConsole(t *testing.T) *console {
	t.Helper()

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	transport, err := services.NewTransport(cfg.APIAllProxy)
	if err != nil {
		t.Fatalf("NewTransport failed: %v", err)
	}
	api, err := services.NewAPIClient(services.APIConfig{
		APIURL:    cfg.APIURL(),
		RootURL:   cfg.SanctumURL(),
		Timeout:   cfg.RequestTimeout,
		Transport: transport,
	})
	if err != nil {
		t.Fatalf("NewAPIClient failed: %v", err)
	}

	registry := services.NewMemoryRegistry(cfg.Mode(), cfg.SessionTTL)
	t.Cleanup(func() { registry.Close() })

	h := handlers.NewHandler(cfg, api, registry)
	t.Cleanup(h.Close)

	mux := http.NewServeMux()
	h.Register(mux)
	server := httptest.NewTLSServer(mux)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	client := server.Client()
	client.Jar = jar
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &console{t: t, server: server, client: client}
}

func (c *console) do(method, path, body string, header map[string]string) *http.Response {
	c.t.Helper()
	req, err := http.NewRequest(method, c.server.URL+path, strings.NewReader(body))
	if err != nil {
		c.t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		if token := c.cookie(middleware.CSRFCookieName); token != "" {
			req.Header.Set(middleware.CSRFHeaderName, token)
		}
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s failed: %v", method, path, err)
	}
	c.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (c *console) cookie(name string) string {
	u, _ := url.Parse(c.server.URL)
	for _, ck := range c.client.Jar.Cookies(u) {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}

// setCookie returns the Set-Cookie entry for name on resp, or nil.
func setCookie(resp *http.Response, name string) *http.Cookie {
	for _, ck := range resp.Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}
