// ABOUTME: Persists the CLI's bearer token between invocations
// ABOUTME: Stores one token file in the XDG config directory with owner-only permissions

package tokenstore

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/MuhammadJalaludinRumi/frontend-gereja/models"
)

// Lifetime matches the console's session TTL.
const Lifetime = 7 * 24 * time.Hour

// ErrNotLoggedIn means there is no usable token on disk.
var ErrNotLoggedIn = errors.New("not logged in")

// Token is what a successful login leaves on disk.
type Token struct {
	Token     string       `json:"token"`
	User      *models.User `json:"user,omitempty"`
	APIURL    string       `json:"api_url"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// Expired reports whether the token's local lifetime has passed.
func (t *Token) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}

// Store reads and writes a single token file.
type Store struct {
	path string
}

// New creates a store backed by path.
func New(path string) *Store {
	return &Store{path: path}
}

// DefaultPath returns CONSOLE_TOKEN_FILE, or token.json in the XDG config directory.
func DefaultPath() string {
	if p := os.Getenv("CONSOLE_TOKEN_FILE"); p != "" {
		return p
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "frontend-gereja", "token.json")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "token.json"
	}
	return filepath.Join(home, ".config", "frontend-gereja", "token.json")
}

// Path returns the token file location.
func (s *Store) Path() string {
	return s.path
}

// Load returns the stored token. A missing, unreadable or expired file is
// ErrNotLoggedIn; an expired file is removed.
func (s *Store) Load(now time.Time) (*Token, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotLoggedIn
	}
	if err != nil {
		return nil, err
	}

	var tok Token
	if err := json.Unmarshal(data, &tok); err != nil || tok.Token == "" {
		// Corrupt file, treat as logged out
		return nil, ErrNotLoggedIn
	}
	if tok.Expired(now) {
		s.Delete()
		return nil, ErrNotLoggedIn
	}
	return &tok, nil
}

// Save writes tok, creating the directory if needed.
func (s *Store) Save(tok *Token) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Delete removes the token file. A missing file is not an error.
func (s *Store) Delete() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
