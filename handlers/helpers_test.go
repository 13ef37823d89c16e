// ABOUTME: Test helpers for handler tests
// ABOUTME: Fake backend plus a console server driven by a cookie-keeping browser client

package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MuhammadJalaludinRumi/frontend-gereja/config"
	"github.com/MuhammadJalaludinRumi/frontend-gereja/middleware"
	"github.com/MuhammadJalaludinRumi/frontend-gereja/models"
	"github.com/MuhammadJalaludinRumi/frontend-gereja/services"
)

// backendUsers maps login usernames to their token and identity record.
var backendUsers = map[string]struct {
	token string
	user  map[string]interface{}
}{
	"admin":   {"tok-admin", map[string]interface{}{"id": 1, "username": "admin", "role_id": 1, "is_active": 1}},
	"majelis": {"tok-majelis", map[string]interface{}{"id": 5, "username": "majelis", "role_id": "2", "is_active": 1}},
	"pasif":   {"tok-pasif", map[string]interface{}{"id": 9, "username": "pasif", "role_id": 3, "is_active": 0}},
}

// fakeBackend emulates the church administration API in local (bearer) mode.
type fakeBackend struct {
	server *httptest.Server

	meCalls     atomic.Int32
	logoutCalls atomic.Int32

	mu       sync.Mutex
	lastAuth string
	lastBody string
	lastType string
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		var req models.LoginRequest
		json.NewDecoder(r.Body).Decode(&req)
		entry, ok := backendUsers[req.Username]
		if !ok || req.Password != "rahasia" {
			writeBackendJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "Invalid credentials"})
			return
		}
		writeBackendJSON(w, http.StatusOK, map[string]interface{}{"token": entry.token, "user": entry.user})
	})
	mux.HandleFunc("GET /api/me", func(w http.ResponseWriter, r *http.Request) {
		fb.meCalls.Add(1)
		user := fb.userFor(r)
		if user == nil {
			writeBackendJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthenticated."})
			return
		}
		writeBackendJSON(w, http.StatusOK, map[string]interface{}{"user": user})
	})
	mux.HandleFunc("POST /api/logout", func(w http.ResponseWriter, r *http.Request) {
		fb.logoutCalls.Add(1)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/api/members", func(w http.ResponseWriter, r *http.Request) {
		fb.record(r)
		if fb.userFor(r) == nil {
			writeBackendJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthenticated."})
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "laravel_session", Value: "secret"})
		w.Header().Set("X-Total-Count", "2")
		switch r.Method {
		case http.MethodGet:
			writeBackendJSON(w, http.StatusOK, map[string]interface{}{
				"data":  []map[string]string{{"name": "Yohanes"}, {"name": "Maria"}},
				"query": r.URL.RawQuery,
			})
		default:
			writeBackendJSON(w, http.StatusCreated, map[string]string{"created": "ok"})
		}
	})
	mux.HandleFunc("GET /api/expired", func(w http.ResponseWriter, r *http.Request) {
		writeBackendJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthenticated."})
	})
	mux.HandleFunc("/api/{$}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	fb.server = httptest.NewServer(mux)
	t.Cleanup(fb.server.Close)
	return fb
}

func (fb *fakeBackend) userFor(r *http.Request) map[string]interface{} {
	auth := r.Header.Get("Authorization")
	for _, entry := range backendUsers {
		if auth == "Bearer "+entry.token {
			return entry.user
		}
	}
	return nil
}

func (fb *fakeBackend) record(r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.lastAuth = r.Header.Get("Authorization")
	fb.lastBody = string(body)
	fb.lastType = r.Header.Get("Content-Type")
}

func (fb *fakeBackend) last() (auth, body, contentType string) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.lastAuth, fb.lastBody, fb.lastType
}

func writeBackendJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func testConfig(backendURL string) *config.Config {
	return &config.Config{
		Port:            "0",
		APIBaseURL:      backendURL,
		RequestTimeout:  time.Second,
		SessionSameSite: http.SameSiteLaxMode,
		SessionTTL:      time.Hour,
		SessionStore:    "memory",
	}
}

// console is a running console server plus a browser that keeps its cookies.
type console struct {
	t        *testing.T
	handler  *Handler
	registry services.SessionRegistry
	server   *httptest.Server
	client   *http.Client
}

func newConsole(t *testing.T, cfg *config.Config, registry services.SessionRegistry) *console {
	t.Helper()

	api, err := services.NewAPIClient(services.APIConfig{
		APIURL:  cfg.APIURL(),
		RootURL: cfg.SanctumURL(),
		Timeout: cfg.RequestTimeout,
	})
	if err != nil {
		t.Fatalf("NewAPIClient failed: %v", err)
	}
	if registry == nil {
		mem := services.NewMemoryRegistry(cfg.Mode(), cfg.SessionTTL)
		t.Cleanup(func() { mem.Close() })
		registry = mem
	}

	h := NewHandler(cfg, api, registry)
	t.Cleanup(h.Close)

	mux := http.NewServeMux()
	h.Register(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &console{
		t:        t,
		handler:  h,
		registry: registry,
		server:   server,
		client:   newBrowser(t),
	}
}

func newBrowser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// do sends a request from the browser. Mutating requests echo the CSRF cookie.
func (c *console) do(method, path string, body io.Reader, header map[string]string) *http.Response {
	c.t.Helper()
	req, err := http.NewRequest(method, c.server.URL+path, body)
	if err != nil {
		c.t.Fatal(err)
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

func (c *console) get(path string) *http.Response {
	return c.do(http.MethodGet, path, nil, nil)
}

func (c *console) login(username string) *http.Response {
	c.t.Helper()
	body := `{"username":"` + username + `","password":"rahasia"}`
	return c.do(http.MethodPost, "/login", strings.NewReader(body), map[string]string{"Content-Type": "application/json"})
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

func decodeBody(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
}
