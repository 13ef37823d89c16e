// ABOUTME: Test helpers for services tests
// ABOUTME: Fake church administration backend with sanctum-style CSRF cookies

package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MuhammadJalaludinRumi/frontend-gereja/models"
)

const (
	testToken         = "abc"
	testXSRFRaw       = "eyJpdiI6InRlc3QifQ%3D%3D"
	testXSRFDecoded   = "eyJpdiI6InRlc3QifQ=="
	testBackendCookie = "laravel_session"
)

// fakeBackend emulates the backend endpoints consumed by the gateway.
type fakeBackend struct {
	t      *testing.T
	server *httptest.Server

	csrfCalls   atomic.Int32
	loginCalls  atomic.Int32
	meCalls     atomic.Int32
	logoutCalls atomic.Int32

	mu          sync.Mutex
	wrapMe      bool
	meStatus    int
	meDelay     time.Duration
	meBody      string
	loginStatus int
	loginBody   string
	user        map[string]interface{}
	lastHeaders map[string]http.Header
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{
		t:           t,
		meStatus:    http.StatusOK,
		loginStatus: http.StatusOK,
		user: map[string]interface{}{
			"id": 1, "username": "admin", "role_id": 1, "is_active": 1,
		},
		lastHeaders: make(map[string]http.Header),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /sanctum/csrf-cookie", func(w http.ResponseWriter, r *http.Request) {
		fb.csrfCalls.Add(1)
		http.SetCookie(w, &http.Cookie{Name: XSRFCookieName, Value: testXSRFRaw, Path: "/"})
		http.SetCookie(w, &http.Cookie{Name: testBackendCookie, Value: "sess-1", Path: "/", HttpOnly: true})
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		fb.loginCalls.Add(1)
		fb.record("login", r)

		fb.mu.Lock()
		status, body := fb.loginStatus, fb.loginBody
		fb.mu.Unlock()

		if status != http.StatusOK {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			w.Write([]byte(body))
			return
		}

		var req models.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
			http.Error(w, `{"message":"bad body"}`, http.StatusBadRequest)
			return
		}
		if body != "" {
			w.Write([]byte(body))
			return
		}
		writeJSON(w, map[string]interface{}{"token": testToken, "user": fb.currentUser()})
	})
	mux.HandleFunc("GET /api/me", func(w http.ResponseWriter, r *http.Request) {
		fb.meCalls.Add(1)
		fb.record("me", r)

		fb.mu.Lock()
		status, delay, wrap, body := fb.meStatus, fb.meDelay, fb.wrapMe, fb.meBody
		fb.mu.Unlock()

		if delay > 0 {
			time.Sleep(delay)
		}
		if !fb.authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"Unauthenticated."}`))
			return
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		if body != "" {
			w.Write([]byte(body))
			return
		}
		if wrap {
			writeJSON(w, map[string]interface{}{"user": fb.currentUser()})
			return
		}
		writeJSON(w, fb.currentUser())
	})
	mux.HandleFunc("POST /api/logout", func(w http.ResponseWriter, r *http.Request) {
		fb.logoutCalls.Add(1)
		fb.record("logout", r)
		writeJSON(w, map[string]string{"message": "Logged out"})
	})
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		fb.record("proxy", r)
		if !fb.authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, map[string]interface{}{"data": []map[string]string{{"name": "Jemaat A"}}, "path": r.URL.Path, "query": r.URL.RawQuery})
	})

	fb.server = httptest.NewServer(mux)
	t.Cleanup(fb.server.Close)
	return fb
}

// authorized accepts either the bearer token or the backend session cookie.
func (fb *fakeBackend) authorized(r *http.Request) bool {
	if r.Header.Get("Authorization") == "Bearer "+testToken {
		return true
	}
	c, err := r.Cookie(testBackendCookie)
	return err == nil && c.Value != ""
}

func (fb *fakeBackend) record(name string, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.lastHeaders[name] = r.Header.Clone()
}

func (fb *fakeBackend) headers(name string) http.Header {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.lastHeaders[name]
}

func (fb *fakeBackend) currentUser() map[string]interface{} {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.user
}

func (fb *fakeBackend) set(fn func(fb *fakeBackend)) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fn(fb)
}

func (fb *fakeBackend) apiClient(t *testing.T, timeout time.Duration) *APIClient {
	t.Helper()
	api, err := NewAPIClient(APIConfig{
		APIURL:  fb.server.URL + "/api",
		RootURL: fb.server.URL,
		Timeout: timeout,
	})
	if err != nil {
		t.Fatalf("NewAPIClient failed: %v", err)
	}
	return api
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func newTestSession(t *testing.T, mode models.Mode) *Session {
	t.Helper()
	id, err := generateSessionID()
	if err != nil {
		t.Fatal(err)
	}
	return NewSession(id, mode)
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	return u
}
