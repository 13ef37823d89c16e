// ABOUTME: Session middleware attaching the browser's console session to each request
// ABOUTME: Issues the CONSOLE_SID and CONSOLE_CSRF cookies and persists changed sessions

package middleware

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/MuhammadJalaludinRumi/frontend-gereja/logger"
	"github.com/MuhammadJalaludinRumi/frontend-gereja/models"
	"github.com/MuhammadJalaludinRumi/frontend-gereja/services"
)

const (
	// SessionCookieName identifies the browser's console session.
	SessionCookieName = "CONSOLE_SID"
	// CSRFCookieName carries the double-submit token readable by the console's scripts.
	CSRFCookieName = "CONSOLE_CSRF"
	// CSRFHeaderName is where scripts echo the CSRF cookie on mutating requests.
	CSRFHeaderName = "X-CSRF-Token"
)

// SessionConfig holds the session middleware settings.
type SessionConfig struct {
	Registry services.SessionRegistry
	Secure   bool
	SameSite http.SameSite
	TTL      time.Duration
}

// contextKey is a private type for context keys to avoid collisions
type contextKey string

const (
	sessionStateKey contextKey = "consoleSession"
	userKey         contextKey = "consoleUser"
)

// sessionState is shared between WithSession and the handlers it wraps.
type sessionState struct {
	cfg     SessionConfig
	session *services.Session
	// issued is set once the browser holds a CONSOLE_SID for session.
	issued bool
	ended  bool
}

// WithSession loads the browser's session from CONSOLE_SID. A missing, malformed
// or expired cookie gets an anonymous session that is neither stored nor sent to
// the browser; only login (ReplaceSession) turns it into a registered one.
// After the handler returns, a changed registered session is saved and an ended
// one is deleted.
func WithSession(cfg SessionConfig) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			log := logger.FromContext(r.Context())

			sess, presented, err := loadSession(r, cfg.Registry)
			if err != nil {
				log.Error("Failed to load console session", "error", err)
				writeJSONError(w, "Session store unavailable", http.StatusServiceUnavailable)
				return
			}
			issued := sess != nil
			if sess == nil {
				sess, err = cfg.Registry.New(r.Context())
				if err != nil {
					log.Error("Failed to allocate console session", "error", err)
					writeJSONError(w, "Internal server error", http.StatusInternalServerError)
					return
				}
				if presented {
					expireSessionCookie(w, cfg)
				}
			}

			if c, err := r.Cookie(CSRFCookieName); err != nil || len(c.Value) != csrfTokenLength {
				token, err := generateToken()
				if err != nil {
					log.Error("Failed to generate CSRF token", "error", err)
					writeJSONError(w, "Internal server error", http.StatusInternalServerError)
					return
				}
				setCSRFCookie(w, cfg, token)
			}

			state := &sessionState{cfg: cfg, session: sess, issued: issued}
			ctx := context.WithValue(r.Context(), sessionStateKey, state)
			next(w, r.WithContext(ctx))

			// The response is already written; persistence must not depend on the client staying.
			persistCtx := context.WithoutCancel(ctx)
			switch {
			case !state.issued:
			case state.ended:
				if err := cfg.Registry.Delete(persistCtx, state.session.ID); err != nil {
					log.Warn("Failed to delete console session", "error", err)
				}
			case state.session.Dirty() || !state.session.Persisted():
				err := cfg.Registry.Save(persistCtx, state.session)
				if errors.Is(err, services.ErrSessionNotFound) {
					log.Debug("Console session ended by another request; changes dropped")
				} else if err != nil {
					log.Warn("Failed to save console session", "error", err)
				}
			}
		}
	}
}

// loadSession returns the registered session named by CONSOLE_SID. presented
// reports whether the browser sent a cookie at all.
func loadSession(r *http.Request, registry services.SessionRegistry) (sess *services.Session, presented bool, err error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, false, nil
	}
	sess, err = registry.Get(r.Context(), cookie.Value)
	if errors.Is(err, services.ErrSessionNotFound) {
		return nil, true, nil
	}
	return sess, true, err
}

// SessionFromContext returns the console session attached by WithSession, or nil.
func SessionFromContext(ctx context.Context) *services.Session {
	state, ok := ctx.Value(sessionStateKey).(*sessionState)
	if !ok {
		return nil
	}
	return state.session
}

// UserFromContext returns the user admitted by RequireSession, or nil.
func UserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(userKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

func withUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// ReplaceSession swaps the request's session for sess and points CONSOLE_SID at
// it. sess is stored when the handler returns; a previously issued session is
// deleted.
// Login uses this so a session ID seen before authentication is never reused after it.
func ReplaceSession(w http.ResponseWriter, r *http.Request, sess *services.Session) {
	state, ok := r.Context().Value(sessionStateKey).(*sessionState)
	if !ok {
		return
	}
	old, oldIssued := state.session, state.issued
	state.session = sess
	state.issued = true
	state.ended = false
	setSessionCookie(w, state.cfg, sess.ID)

	if oldIssued && old != nil && old.ID != sess.ID {
		if err := state.cfg.Registry.Delete(r.Context(), old.ID); err != nil {
			logger.FromContext(r.Context()).Warn("Failed to delete replaced console session", "error", err)
		}
	}
}

// EndSession expires CONSOLE_SID and deletes the session once the handler returns.
func EndSession(w http.ResponseWriter, r *http.Request) {
	state, ok := r.Context().Value(sessionStateKey).(*sessionState)
	if !ok {
		return
	}
	state.ended = true
	expireSessionCookie(w, state.cfg)
}

func expireSessionCookie(w http.ResponseWriter, cfg SessionConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	})
}

func setSessionCookie(w http.ResponseWriter, cfg SessionConfig, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	})
}

// setCSRFCookie issues the double-submit token. It is not HttpOnly so scripts can echo it.
func setCSRFCookie(w http.ResponseWriter, cfg SessionConfig, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(cfg.TTL.Seconds()),
		HttpOnly: false,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	})
}

// generateToken returns 32 random bytes, base64url encoded (44 characters).
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
