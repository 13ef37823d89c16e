// ABOUTME: Auth gateway performing login, identity resolution and logout against the backend
// ABOUTME: Normalises response shapes and is the only writer of session identity state

package services

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/MuhammadJalaludinRumi/frontend-gereja/logger"
	"github.com/MuhammadJalaludinRumi/frontend-gereja/metrics"
	"github.com/MuhammadJalaludinRumi/frontend-gereja/models"
)

// AuthGateway implements the login / fetch-current-user / logout operations.
type AuthGateway struct {
	api   *APIClient
	group singleflight.Group
}

func NewAuthGateway(api *APIClient) *AuthGateway {
	return &AuthGateway{api: api}
}

// Login exchanges credentials for an identity. On failure it returns *AuthError
// and leaves the session's identity and credential untouched.
func (g *AuthGateway) Login(ctx context.Context, s *Session, username, password string) (*models.User, error) {
	log := logger.FromContext(ctx)

	if strings.TrimSpace(username) == "" || password == "" {
		metrics.Logins.WithLabelValues("invalid").Inc()
		return nil, &AuthError{Message: "Username and password are required", Status: http.StatusBadRequest}
	}

	if s.Mode == models.ModeProduction {
		if err := g.api.Primer().Prime(ctx, s); err != nil {
			log.Warn("CSRF priming before login failed", "error", err)
			metrics.Logins.WithLabelValues("error").Inc()
			return nil, &AuthError{Message: genericLoginMessage, Err: err}
		}
	}

	resp, err := g.api.DoJSON(ctx, s, http.MethodPost, "/login", models.LoginRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		log.Warn("Login request failed", "username", username, "error", err)
		metrics.Logins.WithLabelValues("error").Inc()
		return nil, &AuthError{Message: genericLoginMessage, Err: err}
	}

	if !resp.OK() {
		msg := models.BackendMessage(resp.Body)
		if msg == "" {
			msg = genericLoginMessage
		}
		log.Info("Login rejected", "username", username, "status", resp.Status)
		metrics.Logins.WithLabelValues("rejected").Inc()
		return nil, &AuthError{Message: msg, Status: resp.Status}
	}

	result, err := models.ParseLoginResponse(resp.Body)
	if err != nil {
		log.Error("Unexpected login response", "error", err)
		metrics.Logins.WithLabelValues("error").Inc()
		return nil, &AuthError{Message: genericLoginMessage, Status: resp.Status, Err: err}
	}
	if s.Mode != models.ModeProduction && result.Token == "" {
		log.Error("Login response has no token in local mode")
		metrics.Logins.WithLabelValues("error").Inc()
		return nil, &AuthError{
			Message: genericLoginMessage,
			Status:  resp.Status,
			Err:     &models.ParseError{Reason: "login response has no token"},
		}
	}

	if err := s.establish(result.User, result.Token); err != nil {
		metrics.Logins.WithLabelValues("error").Inc()
		return nil, &AuthError{Message: genericLoginMessage, Err: err}
	}

	log.Info("User logged in", "username", result.User.Username, "role_id", int(result.User.RoleID), "mode", s.Mode)
	metrics.Logins.WithLabelValues("success").Inc()
	return result.User.Clone(), nil
}

type resolution struct {
	user            *models.User
	clearCredential bool
}

// FetchUser resolves the current identity. It never returns an error: a nil
// result means "not logged in" and the session has been cleared accordingly.
// Concurrent calls for the same session share one backend request.
func (g *AuthGateway) FetchUser(ctx context.Context, s *Session) *models.User {
	log := logger.FromContext(ctx)

	if !s.HasCredential() {
		log.Debug("Identity resolution skipped", "session", shortID(s.ID), "reason", ErrNoCredential)
		metrics.Resolutions.WithLabelValues("no_credential").Inc()
		return nil
	}

	// The shared call outlives any single caller; a cancelled navigation must
	// not be mistaken for a rejected credential by the other waiters.
	shareCtx := context.WithoutCancel(ctx)
	v, _, shared := g.group.Do(s.ID, func() (interface{}, error) {
		return g.resolve(shareCtx, s), nil
	})
	res := v.(resolution)
	if shared {
		log.Debug("Identity resolution coalesced", "session", shortID(s.ID))
	}

	switch {
	case res.user != nil:
		s.setUser(res.user)
		metrics.Resolutions.WithLabelValues("success").Inc()
		return res.user.Clone()
	case res.clearCredential:
		s.Clear()
		metrics.Resolutions.WithLabelValues("rejected").Inc()
	default:
		s.forgetUser()
		metrics.Resolutions.WithLabelValues("unavailable").Inc()
	}
	return nil
}

func (g *AuthGateway) resolve(ctx context.Context, s *Session) resolution {
	log := logger.FromContext(ctx)

	resp, err := g.api.DoJSON(ctx, s, http.MethodGet, "/me", nil)
	if err != nil {
		var netErr *NetworkError
		if errors.As(err, &netErr) && netErr.Timeout() {
			log.Warn("Identity resolution timed out", "session", shortID(s.ID))
		} else {
			log.Warn("Identity resolution failed", "session", shortID(s.ID), "error", err)
		}
		return resolution{clearCredential: true}
	}

	switch {
	case resp.Status == http.StatusUnauthorized || resp.Status == http.StatusForbidden:
		log.Info("Backend rejected credential", "session", shortID(s.ID), "status", resp.Status)
		return resolution{clearCredential: true}
	case !resp.OK():
		log.Warn("Identity resolution got unexpected status", "session", shortID(s.ID), "status", resp.Status)
		return resolution{}
	}

	user, err := models.ParseMeResponse(resp.Body)
	if err != nil {
		log.Error("Unexpected identity response", "session", shortID(s.ID), "error", err)
		return resolution{clearCredential: true}
	}
	return resolution{user: user}
}

// Logout invalidates the backend session best-effort and always clears the
// local session. The caller navigates to the login view afterwards.
func (g *AuthGateway) Logout(ctx context.Context, s *Session) {
	log := logger.FromContext(ctx)

	if s.HasCredential() {
		resp, err := g.api.DoJSON(ctx, s, http.MethodPost, "/logout", nil)
		switch {
		case err != nil:
			log.Warn("Backend logout failed, clearing local session anyway", "session", shortID(s.ID), "error", err)
		case !resp.OK():
			log.Warn("Backend logout returned error status, clearing local session anyway", "session", shortID(s.ID), "status", resp.Status)
		}
	}

	s.Clear()
	log.Info("User logged out", "session", shortID(s.ID))
}
