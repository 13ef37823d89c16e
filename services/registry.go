// ABOUTME: Session registry mapping console session IDs to per-browser sessions
// ABOUTME: In-memory implementation with sliding expiry backed by the TTL cache

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/MuhammadJalaludinRumi/frontend-gereja/cache"
	"github.com/MuhammadJalaludinRumi/frontend-gereja/models"
)

// SessionRegistry owns every browser session of the process.
type SessionRegistry interface {
	// New allocates an empty session with a fresh ID without storing it.
	New(ctx context.Context) (*Session, error)
	// Create allocates an empty session with a fresh ID and stores it.
	Create(ctx context.Context) (*Session, error)
	// Get returns the session, or ErrSessionNotFound.
	Get(ctx context.Context, id string) (*Session, error)
	// Save persists changes made to the session. A session that was stored
	// before and has since been deleted is not written again; Save returns
	// ErrSessionNotFound instead.
	Save(ctx context.Context, s *Session) error
	// Delete removes the session. Deleting an unknown ID is not an error.
	Delete(ctx context.Context, id string) error
	// Close releases background resources.
	Close() error
}

// MemoryRegistry keeps sessions in process memory.
type MemoryRegistry struct {
	mode     models.Mode
	sessions *cache.Cache[*Session]
}

// NewMemoryRegistry creates a registry whose sessions expire after ttl without use.
func NewMemoryRegistry(mode models.Mode, ttl time.Duration) *MemoryRegistry {
	return &MemoryRegistry{
		mode:     mode,
		sessions: cache.New[*Session](ttl),
	}
}

func (r *MemoryRegistry) New(_ context.Context) (*Session, error) {
	id, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}
	return NewSession(id, r.mode), nil
}

func (r *MemoryRegistry) Create(ctx context.Context) (*Session, error) {
	s, err := r.New(ctx)
	if err != nil {
		return nil, err
	}
	r.sessions.Set(sessionKey(s.ID), s)
	s.markClean()
	return s, nil
}

func (r *MemoryRegistry) Get(_ context.Context, id string) (*Session, error) {
	if !validSessionID(id) {
		return nil, ErrSessionNotFound
	}
	s, ok := r.sessions.Get(sessionKey(id))
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Save stores a new session. Stored sessions are live pointers, so only the
// dirty flag is cleared.
func (r *MemoryRegistry) Save(_ context.Context, s *Session) error {
	if _, ok := r.sessions.Get(sessionKey(s.ID)); !ok {
		if s.Persisted() {
			return ErrSessionNotFound
		}
		r.sessions.Set(sessionKey(s.ID), s)
	}
	s.markClean()
	return nil
}

func (r *MemoryRegistry) Delete(_ context.Context, id string) error {
	r.sessions.Clear(sessionKey(id))
	return nil
}

// Len returns the number of live sessions.
func (r *MemoryRegistry) Len() int {
	return r.sessions.Len()
}

func (r *MemoryRegistry) Close() error {
	r.sessions.Close()
	return nil
}

// sessionKey returns the cache key for a session ID
func sessionKey(sessionID string) string {
	return "session:" + sessionID
}
