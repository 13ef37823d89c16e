// ABOUTME: Configuration loader for the console server
// ABOUTME: Loads settings from environment variables (optionally a .env file) with defaults

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/MuhammadJalaludinRumi/frontend-gereja/models"
)

const defaultAPIBase = "http://localhost:8000"

type Config struct {
	// Server
	Port string

	// Backend API
	APIBaseURL     string        // as configured, normalised by APIURL / SanctumURL
	APIAllProxy    string        // optional ssh+socks5://user@host:port?private-key=path
	RequestTimeout time.Duration // per backend call, default 10s

	// Session
	SessionSecureCookie bool          // production mode: cookie auth + XSRF, Secure cookies
	SessionSameSite     http.SameSite // lax, strict or none
	SessionTTL          time.Duration // idle lifetime of a console session, default 7 days
	SessionStore        string        // memory or redis
	RedisURL            string

	// Browser access
	CORSAllowedOrigins []string // origins allowed to call the console with credentials
	LoginRateLimit     int      // login attempts per client IP per minute, 0 disables
}

// Mode derives the deployment mode from the secure-cookie flag.
func (c *Config) Mode() models.Mode {
	if c.SessionSecureCookie {
		return models.ModeProduction
	}
	return models.ModeLocal
}

// APIURL returns the API base, always ending in /api.
func (c *Config) APIURL() string {
	base := strings.TrimRight(c.apiBase(), "/")
	if strings.HasSuffix(base, "/api") {
		return base
	}
	return base + "/api"
}

// SanctumURL returns the API base without its /api suffix. The CSRF cookie
// endpoint lives at the root of the backend, not under /api.
func (c *Config) SanctumURL() string {
	base := strings.TrimRight(c.apiBase(), "/")
	return strings.TrimSuffix(base, "/api")
}

func (c *Config) apiBase() string {
	if c.APIBaseURL == "" {
		return defaultAPIBase
	}
	return c.APIBaseURL
}

func Load() (*Config, error) {
	envFile := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	cfg := &Config{
		Port: getEnv("PORT", "8080"),

		APIBaseURL:     ensureScheme(getEnv("API_BASE_URL", defaultAPIBase)),
		APIAllProxy:    os.Getenv("API_ALL_PROXY"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT", 10)) * time.Second,

		SessionSecureCookie: getEnvBool("SESSION_SECURE_COOKIE", false),
		SessionTTL:          time.Duration(getEnvInt("SESSION_TTL", 7*24*60*60)) * time.Second,
		SessionStore:        strings.ToLower(getEnv("SESSION_STORE", "memory")),
		RedisURL:            os.Getenv("REDIS_URL"),

		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		LoginRateLimit:     getEnvInt("LOGIN_RATE_LIMIT", 10),
	}

	sameSite, err := parseSameSite(getEnv("SESSION_SAME_SITE", "lax"))
	if err != nil {
		return nil, err
	}
	cfg.SessionSameSite = sameSite

	if cfg.SessionSameSite == http.SameSiteNoneMode && !cfg.SessionSecureCookie {
		return nil, fmt.Errorf("SESSION_SAME_SITE=none requires SESSION_SECURE_COOKIE=true")
	}
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", cfg.RequestTimeout)
	}
	if cfg.SessionTTL < time.Minute {
		return nil, fmt.Errorf("SESSION_TTL must be at least 60 seconds, got %s", cfg.SessionTTL)
	}

	switch cfg.SessionStore {
	case "memory":
	case "redis":
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL is required when SESSION_STORE=redis")
		}
	default:
		return nil, fmt.Errorf("invalid SESSION_STORE: %q (must be memory or redis)", cfg.SessionStore)
	}

	if cfg.LoginRateLimit < 0 {
		return nil, fmt.Errorf("LOGIN_RATE_LIMIT must not be negative, got %d", cfg.LoginRateLimit)
	}
	for _, origin := range cfg.CORSAllowedOrigins {
		if origin == "*" {
			return nil, fmt.Errorf("CORS_ALLOWED_ORIGINS cannot contain * because console requests carry cookies")
		}
	}

	if cfg.APIAllProxy != "" && !strings.HasPrefix(cfg.APIAllProxy, "ssh+socks5://") {
		return nil, fmt.Errorf("API_ALL_PROXY must use the ssh+socks5:// scheme")
	}

	return cfg, nil
}

func parseSameSite(value string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("invalid SESSION_SAME_SITE: %q (must be lax, strict, or none)", value)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// splitList parses a comma separated list, dropping empty entries
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.TrimRight(part, "/"))
		}
	}
	return out
}

// ensureScheme adds http:// prefix if the URL has no scheme
func ensureScheme(url string) string {
	if url == "" {
		return url
	}
	if !strings.Contains(url, "://") {
		return "http://" + url
	}
	return url
}
