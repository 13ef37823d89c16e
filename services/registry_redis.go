// ABOUTME: Redis-backed session registry shared by several console instances
// ABOUTME: Stores JSON snapshots of sessions, including backend cookies, with sliding TTL

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MuhammadJalaludinRumi/frontend-gereja/models"
)

// RedisRegistry persists sessions in Redis. Each request works on its own
// Session value; concurrent saves of one session resolve last-write-wins,
// but a save never recreates a session another request deleted.
type RedisRegistry struct {
	client    *redis.Client
	prefix    string
	mode      models.Mode
	ttl       time.Duration
	cookieURL *url.URL
}

// NewRedisRegistry creates a registry. cookieURL is the backend root whose cookies are persisted.
func NewRedisRegistry(client *redis.Client, prefix string, mode models.Mode, ttl time.Duration, cookieURL string) (*RedisRegistry, error) {
	u, err := url.Parse(cookieURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL %q: %w", cookieURL, err)
	}
	if prefix == "" {
		prefix = "console"
	}
	return &RedisRegistry{
		client:    client,
		prefix:    prefix,
		mode:      mode,
		ttl:       ttl,
		cookieURL: u,
	}, nil
}

// Ping checks the connection to Redis.
func (r *RedisRegistry) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// redisKey returns the Redis key for a session ID
func (r *RedisRegistry) redisKey(id string) string {
	return fmt.Sprintf("%s:session:%s", r.prefix, id)
}

func (r *RedisRegistry) New(_ context.Context) (*Session, error) {
	id, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}
	return NewSession(id, r.mode), nil
}

func (r *RedisRegistry) Create(ctx context.Context) (*Session, error) {
	s, err := r.New(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.Save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *RedisRegistry) Get(ctx context.Context, id string) (*Session, error) {
	if !validSessionID(id) {
		return nil, ErrSessionNotFound
	}

	data, err := r.client.GetEx(ctx, r.redisKey(id), r.ttl).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session from Redis: %w", err)
	}

	var snap sessionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if snap.Mode != r.mode {
		// Sessions from a deployment running in the other mode carry the wrong credential kind.
		return nil, ErrSessionNotFound
	}
	return restoreSession(snap, r.cookieURL), nil
}

func (r *RedisRegistry) Save(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s.snapshot(r.cookieURL))
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	args := redis.SetArgs{TTL: r.ttl}
	if s.Persisted() {
		// Only overwrite; logout may have deleted the key since this copy was loaded.
		args.Mode = "XX"
	}
	err = r.client.SetArgs(ctx, r.redisKey(s.ID), data, args).Err()
	if errors.Is(err, redis.Nil) {
		return ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to store session in Redis: %w", err)
	}
	s.markClean()
	return nil
}

func (r *RedisRegistry) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.redisKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session from Redis: %w", err)
	}
	return nil
}

func (r *RedisRegistry) Close() error {
	return r.client.Close()
}
