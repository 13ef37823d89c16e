// ABOUTME: Backend REST client shared by the auth gateway and the console proxy
// ABOUTME: Every outbound request takes its auth headers from ResolveHeaders

package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MuhammadJalaludinRumi/frontend-gereja/metrics"
	"github.com/MuhammadJalaludinRumi/frontend-gereja/models"
)

// maxResponseBytes bounds responses the client reads into memory.
const maxResponseBytes = 1 << 20

// APIConfig configures an APIClient.
type APIConfig struct {
	APIURL    string // backend base ending in /api
	RootURL   string // backend root serving /sanctum/csrf-cookie
	Timeout   time.Duration
	Transport http.RoundTripper
}

// APIClient talks to the church administration backend on behalf of a session.
type APIClient struct {
	apiURL string
	client *http.Client
	primer *CSRFPrimer
}

// APIResponse is a fully read backend response.
type APIResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

// OK reports a 2xx status.
func (r *APIResponse) OK() bool {
	return r.Status >= 200 && r.Status <= 299
}

func NewAPIClient(cfg APIConfig) (*APIClient, error) {
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("API URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	client := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: cfg.Transport,
		// Redirects from the backend are passed to the caller untouched.
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	primer, err := NewCSRFPrimer(strings.TrimRight(cfg.RootURL, "/"), client)
	if err != nil {
		return nil, err
	}

	return &APIClient{
		apiURL: strings.TrimRight(cfg.APIURL, "/"),
		client: client,
		primer: primer,
	}, nil
}

// Primer exposes the CSRF primer used by this client.
func (a *APIClient) Primer() *CSRFPrimer {
	return a.primer
}

// DoJSON sends body (if non-nil) as JSON and reads the whole response.
func (a *APIClient) DoJSON(ctx context.Context, s *Session, method, path string, body interface{}) (*APIResponse, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := a.newRequest(ctx, s, method, path, reader, body != nil)
	if err != nil {
		return nil, err
	}

	resp, err := a.send(s, req, endpointLabel(path))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &NetworkError{Op: method + " " + path, Err: err}
	}

	return &APIResponse{Status: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// Ping reports whether the backend answers at all. Any HTTP status counts as reachable.
func (a *APIClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, a.apiURL+"/", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		metrics.BackendRequests.WithLabelValues("ping", metrics.StatusClass(0)).Inc()
		return &NetworkError{Op: "HEAD /", Err: err}
	}
	resp.Body.Close()
	metrics.BackendRequests.WithLabelValues("ping", metrics.StatusClass(resp.StatusCode)).Inc()
	return nil
}

// Forward relays a browser request to the backend and returns the raw response
// for streaming. The caller closes the body. A 401 means the backend no longer
// accepts the session's credential, so the session is cleared.
func (a *APIClient) Forward(ctx context.Context, s *Session, method, path, rawQuery string, body io.Reader, contentType string) (*http.Response, error) {
	target := path
	if rawQuery != "" {
		target += "?" + rawQuery
	}

	jsonBody := strings.HasPrefix(contentType, "application/json")
	req, err := a.newRequest(ctx, s, method, target, body, jsonBody)
	if err != nil {
		return nil, err
	}
	if contentType != "" && !jsonBody {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := a.send(s, req, "proxy")
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && s.HasCredential() {
		slog.Info("Backend rejected session credential, clearing session",
			"session", shortID(s.ID), "path", path)
		s.Clear()
	}
	return resp, nil
}

func (a *APIClient) newRequest(ctx context.Context, s *Session, method, path string, body io.Reader, jsonBody bool) (*http.Request, error) {
	csrf := ""
	if s.Mode == models.ModeProduction {
		csrf = a.primer.Token(s)
		if csrf == "" && isMutating(method) {
			if err := a.primer.Prime(ctx, s); err != nil {
				return nil, fmt.Errorf("failed to prime CSRF cookie: %w", err)
			}
			csrf = a.primer.Token(s)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, a.apiURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range ResolveHeaders(s.Mode, s.Token(), csrf, jsonBody) {
		req.Header[k] = v
	}
	return req, nil
}

func (a *APIClient) send(s *Session, req *http.Request, endpoint string) (*http.Response, error) {
	client := *a.client
	client.Jar = s.Jar()

	start := time.Now()
	resp, err := client.Do(req)
	metrics.BackendDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.BackendRequests.WithLabelValues(endpoint, metrics.StatusClass(0)).Inc()
		return nil, &NetworkError{Op: req.Method + " " + req.URL.Path, Err: err}
	}
	metrics.BackendRequests.WithLabelValues(endpoint, metrics.StatusClass(resp.StatusCode)).Inc()
	return resp, nil
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// endpointLabel keeps metric cardinality bounded to the auth endpoints.
func endpointLabel(path string) string {
	switch path {
	case "/login", "/me", "/logout":
		return strings.TrimPrefix(path, "/")
	}
	return "other"
}
