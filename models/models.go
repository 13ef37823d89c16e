// ABOUTME: Shared types for the console server: deployment mode, credential kinds, responses
// ABOUTME: JSON-serializable structures returned to the browser

package models

import "fmt"

// Mode selects which credential kind is authoritative for backend calls.
type Mode string

const (
	// ModeLocal authenticates with a bearer token returned by the backend login.
	ModeLocal Mode = "local"
	// ModeProduction authenticates with backend-issued http-only cookies plus an XSRF token.
	ModeProduction Mode = "production"
)

// ParseMode validates a mode string. Empty defaults to local.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "local", "dev", "development":
		return ModeLocal, nil
	case "production", "prod":
		return ModeProduction, nil
	default:
		return "", fmt.Errorf("invalid mode: %q (must be local or production)", s)
	}
}

// CredentialKind is the kind of secret a session currently holds.
type CredentialKind string

const (
	CredentialNone   CredentialKind = "none"
	CredentialBearer CredentialKind = "bearer"
	CredentialCookie CredentialKind = "cookie"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Code    int    `json:"code"`
}

// ViewResponse describes the console view a navigation resolved to.
type ViewResponse struct {
	View  string `json:"view"`
	Path  string `json:"path"`
	Roles []int  `json:"roles,omitempty"`
	User  *User  `json:"user,omitempty"`
}

// RedirectResponse is returned instead of a 302 for XHR navigations.
type RedirectResponse struct {
	Redirect string `json:"redirect"`
}

// HealthResponse is served by the liveness endpoint.
type HealthResponse struct {
	Status   string `json:"status"`
	Mode     Mode   `json:"mode"`
	Backend  string `json:"backend"`
	Sessions string `json:"sessions"`
}
