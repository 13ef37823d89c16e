// ABOUTME: Credential resolver choosing outbound auth headers per deployment mode
// ABOUTME: Includes the idempotent CSRF priming step for cookie-authenticated sessions

package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"golang.org/x/sync/singleflight"

	"github.com/MuhammadJalaludinRumi/frontend-gereja/metrics"
	"github.com/MuhammadJalaludinRumi/frontend-gereja/models"
)

const (
	// XSRFCookieName is the backend-issued cookie carrying the CSRF token.
	XSRFCookieName = "XSRF-TOKEN"
	// XSRFHeaderName is the header the backend expects the CSRF token in.
	XSRFHeaderName = "X-XSRF-TOKEN"

	csrfCookiePath = "/sanctum/csrf-cookie"
)

// ResolveHeaders computes the headers for one backend request. It is a pure
// function of its inputs:
//   - production: X-XSRF-TOKEN when csrf is known; never Authorization
//   - local: Authorization: Bearer when a token is cached; never X-XSRF-TOKEN
//
// jsonBody adds Content-Type: application/json.
func ResolveHeaders(mode models.Mode, token, csrf string, jsonBody bool) http.Header {
	h := http.Header{}
	h.Set("Accept", "application/json")
	if jsonBody {
		h.Set("Content-Type", "application/json")
	}

	switch mode {
	case models.ModeProduction:
		if csrf != "" {
			h.Set(XSRFHeaderName, csrf)
		}
	default:
		if token != "" {
			h.Set("Authorization", "Bearer "+token)
		}
	}
	return h
}

// CSRFPrimer fetches the CSRF-establishing endpoint into a session's cookie jar.
type CSRFPrimer struct {
	rootURL  *url.URL
	endpoint string
	client   *http.Client
	group    singleflight.Group
}

// NewCSRFPrimer creates a primer for the backend root (the API base without /api).
func NewCSRFPrimer(rootURL string, client *http.Client) (*CSRFPrimer, error) {
	u, err := url.Parse(rootURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend root URL %q: %w", rootURL, err)
	}
	return &CSRFPrimer{
		rootURL:  u,
		endpoint: rootURL + csrfCookiePath,
		client:   client,
	}, nil
}

// Token returns the current CSRF value from the session's jar, URL-decoded, or "".
func (p *CSRFPrimer) Token(s *Session) string {
	for _, c := range s.Jar().Cookies(p.rootURL) {
		if c.Name != XSRFCookieName {
			continue
		}
		if v, err := url.PathUnescape(c.Value); err == nil {
			return v
		}
		return c.Value
	}
	return ""
}

// Prime establishes a CSRF cookie for the session. Calling it again simply
// replaces the cookie, so redundant calls are harmless. Concurrent calls for
// the same session value share one request.
func (p *CSRFPrimer) Prime(ctx context.Context, s *Session) error {
	key := fmt.Sprintf("%s@%p", s.ID, s)
	_, err, _ := p.group.Do(key, func() (interface{}, error) {
		return nil, p.prime(ctx, s)
	})
	return err
}

func (p *CSRFPrimer) prime(ctx context.Context, s *Session) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create CSRF request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := *p.client
	client.Jar = s.Jar()

	resp, err := client.Do(req)
	if err != nil {
		metrics.BackendRequests.WithLabelValues("csrf-cookie", metrics.StatusClass(0)).Inc()
		return &NetworkError{Op: "GET " + csrfCookiePath, Err: err}
	}
	defer resp.Body.Close()
	metrics.BackendRequests.WithLabelValues("csrf-cookie", metrics.StatusClass(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("CSRF cookie request failed (status %d)", resp.StatusCode)
	}
	if p.Token(s) == "" {
		return fmt.Errorf("backend did not issue an %s cookie", XSRFCookieName)
	}

	slog.Debug("CSRF cookie primed", "session", shortID(s.ID))
	return nil
}

// shortID truncates a session ID for logs.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
