// ABOUTME: Per-browser session holding the resolved identity and credential material
// ABOUTME: Owns the bearer token (local mode) or the backend cookie jar (production mode)

package services

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/MuhammadJalaludinRumi/frontend-gereja/models"
)

// sessionIDLength is the base64url length of a 32 byte session ID (with padding).
const sessionIDLength = 44

// Session is the authenticated identity for one browser. Only AuthGateway
// mutates user and credential; everything else reads. Safe for concurrent use.
type Session struct {
	ID        string
	Mode      models.Mode
	CreatedAt time.Time

	mu         sync.RWMutex
	user       *models.User
	credential models.CredentialKind
	token      string
	jar        *trackingJar
	updatedAt  time.Time
	dirty      bool
	persisted  bool
}

// NewSession creates an empty session.
func NewSession(id string, mode models.Mode) *Session {
	now := time.Now()
	s := &Session{
		ID:         id,
		Mode:       mode,
		CreatedAt:  now,
		credential: models.CredentialNone,
		updatedAt:  now,
	}
	s.jar = newTrackingJar(s)
	return s
}

// User returns a copy of the resolved identity, or nil.
func (s *Session) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.Clone()
}

// Credential returns the kind of credential currently held.
func (s *Session) Credential() models.CredentialKind {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credential
}

// HasCredential reports whether the session holds the credential kind that is
// authoritative for its mode.
func (s *Session) HasCredential() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch s.Mode {
	case models.ModeProduction:
		return s.credential == models.CredentialCookie
	default:
		return s.credential == models.CredentialBearer && s.token != ""
	}
}

// Token returns the cached bearer token. Always empty in production mode.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Jar returns the cookie jar used for every backend call of this session.
func (s *Session) Jar() http.CookieJar {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jar
}

// UpdatedAt returns the time of the last state change.
func (s *Session) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

// Dirty reports whether the session changed since it was loaded or saved.
func (s *Session) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

func (s *Session) markClean() {
	s.mu.Lock()
	s.dirty = false
	s.persisted = true
	s.mu.Unlock()
}

// Persisted reports whether the session was loaded from or written to a registry.
func (s *Session) Persisted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persisted
}

// SetBearer caches a bearer token. Production sessions never hold one.
func (s *Session) SetBearer(token string) error {
	if s.Mode == models.ModeProduction {
		return ErrBearerInProduction
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	if token == "" {
		s.credential = models.CredentialNone
	} else {
		s.credential = models.CredentialBearer
	}
	s.touchLocked()
	return nil
}

// establish records a successful login.
func (s *Session) establish(user *models.User, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.Mode {
	case models.ModeProduction:
		s.credential = models.CredentialCookie
		s.token = ""
	default:
		if token == "" {
			return fmt.Errorf("local mode login returned no token")
		}
		s.credential = models.CredentialBearer
		s.token = token
	}
	s.user = user.Clone()
	s.touchLocked()
	return nil
}

// setUser records a successful identity resolution.
func (s *Session) setUser(user *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user.Clone()
	s.touchLocked()
}

// forgetUser drops the identity but keeps the credential so the next
// navigation retries resolution.
func (s *Session) forgetUser() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return
	}
	s.user = nil
	s.touchLocked()
}

// Clear drops identity, credential and all backend cookies.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.credential = models.CredentialNone
	s.token = ""
	s.jar.reset()
	s.touchLocked()
}

func (s *Session) touchLocked() {
	s.updatedAt = time.Now()
	s.dirty = true
}

func (s *Session) markDirty() {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
}

// sessionSnapshot is the serialised form used by shared registries.
type sessionSnapshot struct {
	ID         string                `json:"id"`
	Mode       models.Mode           `json:"mode"`
	User       *models.User          `json:"user,omitempty"`
	Credential models.CredentialKind `json:"credential"`
	Token      string                `json:"token,omitempty"`
	Cookies    []snapshotCookie      `json:"cookies,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

type snapshotCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// snapshot captures the session. Cookies are those the jar would send to cookieURL.
func (s *Session) snapshot(cookieURL *url.URL) sessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := sessionSnapshot{
		ID:         s.ID,
		Mode:       s.Mode,
		User:       s.user.Clone(),
		Credential: s.credential,
		Token:      s.token,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.updatedAt,
	}
	if cookieURL != nil {
		for _, c := range s.jar.Cookies(cookieURL) {
			snap.Cookies = append(snap.Cookies, snapshotCookie{Name: c.Name, Value: c.Value})
		}
	}
	return snap
}

// restoreSession rebuilds a session from a snapshot.
func restoreSession(snap sessionSnapshot, cookieURL *url.URL) *Session {
	s := NewSession(snap.ID, snap.Mode)
	s.CreatedAt = snap.CreatedAt
	s.user = snap.User
	s.credential = snap.Credential
	if s.credential == "" {
		s.credential = models.CredentialNone
	}
	if snap.Mode != models.ModeProduction {
		s.token = snap.Token
	}
	s.updatedAt = snap.UpdatedAt
	s.persisted = true

	if cookieURL != nil && len(snap.Cookies) > 0 {
		cookies := make([]*http.Cookie, 0, len(snap.Cookies))
		for _, c := range snap.Cookies {
			cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
		}
		s.jar.inner.SetCookies(cookieURL, cookies)
	}
	return s
}

// trackingJar marks its session dirty whenever the backend sets cookies.
type trackingJar struct {
	mu    sync.RWMutex
	inner *cookiejar.Jar
	owner *Session
}

func newTrackingJar(owner *Session) *trackingJar {
	return &trackingJar{inner: newCookieJar(), owner: owner}
}

func newCookieJar() *cookiejar.Jar {
	// cookiejar.New only fails on invalid options.
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	return jar
}

func (j *trackingJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	if len(cookies) == 0 {
		return
	}
	j.mu.RLock()
	j.inner.SetCookies(u, cookies)
	j.mu.RUnlock()
	j.owner.markDirty()
}

func (j *trackingJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.inner.Cookies(u)
}

func (j *trackingJar) reset() {
	j.mu.Lock()
	j.inner = newCookieJar()
	j.mu.Unlock()
}

// generateSessionID returns 32 bytes of crypto randomness, base64url encoded.
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// validSessionID rejects IDs that could not have come from generateSessionID.
func validSessionID(id string) bool {
	if len(id) != sessionIDLength {
		return false
	}
	_, err := base64.URLEncoding.DecodeString(id)
	return err == nil
}
