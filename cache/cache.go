// ABOUTME: In-memory cache with sliding TTL expiration
// ABOUTME: Thread-safe generic cache backed by ttlcache with background cleanup

package cache

import (
	"log/slog"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Cache stores values by string key. Reading an entry extends its lifetime.
type Cache[V any] struct {
	store *ttlcache.Cache[string, V]
	ttl   time.Duration
}

func New[V any](ttl time.Duration) *Cache[V] {
	store := ttlcache.New(
		ttlcache.WithTTL[string, V](ttl),
	)
	c := &Cache[V]{
		store: store,
		ttl:   ttl,
	}
	go store.Start()
	return c
}

func (c *Cache[V]) Get(key string) (V, bool) {
	item := c.store.Get(key)
	if item == nil {
		slog.Debug("Cache miss", "namespace", namespace(key))
		var zero V
		return zero, false
	}

	slog.Debug("Cache hit", "namespace", namespace(key))
	return item.Value(), true
}

func (c *Cache[V]) Set(key string, value V) {
	c.store.Set(key, value, ttlcache.DefaultTTL)
	slog.Debug("Cache set", "namespace", namespace(key), "ttl", c.ttl)
}

// SetWithTTL stores a value with a custom TTL
func (c *Cache[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	c.store.Set(key, value, ttl)
	slog.Debug("Cache set", "namespace", namespace(key), "ttl", ttl)
}

func (c *Cache[V]) Clear(key string) {
	c.store.Delete(key)
}

// Len returns the number of live entries.
func (c *Cache[V]) Len() int {
	return c.store.Len()
}

// Close stops the background cleanup goroutine.
func (c *Cache[V]) Close() {
	c.store.Stop()
}

// namespace returns the part of key before the first colon. Keys embed
// session IDs, which are bearer secrets and must not reach the logs.
func namespace(key string) string {
	ns, _, found := strings.Cut(key, ":")
	if !found {
		return "-"
	}
	return ns
}
