// ABOUTME: Rate limiting middleware with fixed-window counters
// ABOUTME: Windows live in a TTL cache so idle keys expire on their own

package middleware

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// counter tracks requests within a fixed time window.
type counter struct {
	count     int
	expiresAt time.Time
}

// RateLimiter enforces a maximum number of requests per time window.
// Each unique key gets an independent counter.
type RateLimiter struct {
	mu      sync.Mutex
	windows *ttlcache.Cache[string, *counter]
	limit   int
	window  time.Duration
}

// NewRateLimiter creates a rate limiter that allows limit requests per window.
// Call Stop to release the expiry goroutine.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	windows := ttlcache.New(
		ttlcache.WithTTL[string, *counter](window),
		ttlcache.WithDisableTouchOnHit[string, *counter](),
	)
	go windows.Start()

	return &RateLimiter{
		windows: windows,
		limit:   limit,
		window:  window,
	}
}

// Allow checks whether a request for the given key should be permitted.
// Returns true if within limits, or false with the duration until the window resets.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	item := rl.windows.Get(key)

	// The boundary instant starts a new window rather than returning
	// retryAfter==0 while still denying the request.
	if item == nil || !now.Before(item.Value().expiresAt) {
		rl.windows.Set(key, &counter{count: 1, expiresAt: now.Add(rl.window)}, ttlcache.DefaultTTL)
		return true, 0
	}

	c := item.Value()
	if c.count < rl.limit {
		c.count++
		return true, 0
	}
	return false, c.expiresAt.Sub(now)
}

// Len returns the number of live windows.
func (rl *RateLimiter) Len() int {
	return rl.windows.Len()
}

// Stop ends background expiry.
func (rl *RateLimiter) Stop() {
	rl.windows.Stop()
}

// ClientIP extracts the client IP from X-Forwarded-For (leftmost) or RemoteAddr.
// X-Forwarded-For is trusted, which is only safe behind a reverse proxy that sets it.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.SplitN(xff, ",", 2)
		ip := strings.TrimSpace(parts[0])
		if ip != "" && net.ParseIP(ip) != nil {
			return "ip:" + ip
		}
	}

	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return "ip:" + host
}

// RateLimit returns middleware that enforces rate limits using the given limiter and key function.
// If limiter is nil, the middleware is a no-op (disabled mode).
// If keyFunc returns an empty string, the request passes through (unidentifiable client).
func RateLimit(limiter *RateLimiter, keyFunc func(*http.Request) string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil || keyFunc == nil {
				next(w, r)
				return
			}

			key := keyFunc(r)
			if key == "" {
				next(w, r)
				return
			}

			allowed, retryAfter := limiter.Allow(key)
			if allowed {
				next(w, r)
				return
			}

			retrySeconds := int(math.Ceil(retryAfter.Seconds()))
			slog.Warn("Rate limit exceeded", "key", key, "path", sanitizePath(r.URL.Path), "retry_after", retrySeconds)

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", fmt.Sprintf("%d", retrySeconds))
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error":       "Too many login attempts, try again later",
				"retry_after": retrySeconds,
			})
		}
	}
}
