package datasource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/reglet-dev/reglet-oracle/domain/entities"
	"github.com/reglet-dev/reglet-oracle/domain/ports"
)

// DefaultCacheTTL is how long a fetched value stays cached.
const DefaultCacheTTL = 30 * time.Second

// CachedSource decorates a DataSource with a read-through cache.
// Cache failures are logged and never fail a fetch. CurrentDataID is not cached;
// ids served from the cache are still reported to a source that tracks them.
type CachedSource struct {
	inner  ports.DataSource
	cache  ports.Cache
	logger *slog.Logger
	prefix string
}

// NewCachedSource wraps inner with cache. Keys are "<prefix>:<source>:<id>".
func NewCachedSource(inner ports.DataSource, cache ports.Cache, prefix string, logger *slog.Logger) *CachedSource {
	if logger == nil {
		logger = slog.Default()
	}
	if prefix == "" {
		prefix = "oracle"
	}
	return &CachedSource{inner: inner, cache: cache, prefix: prefix, logger: logger}
}

// Name returns the name of the wrapped source.
func (s *CachedSource) Name() string {
	if n, ok := s.inner.(interface{ Name() string }); ok {
		return n.Name()
	}
	return "cached"
}

// Key returns the cache key for id.
func (s *CachedSource) Key(id entities.DataID) string {
	return fmt.Sprintf("%s:%s:%d", s.prefix, s.Name(), id)
}

// Fetch returns the cached value for id, fetching and caching it on a miss.
func (s *CachedSource) Fetch(ctx context.Context, id entities.DataID) ([]byte, error) {
	key := s.Key(id)

	v, ok, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		s.logger.WarnContext(ctx, "datasource: cache read failed", "key", key, "error", err)
	case ok:
		if o, isObserver := s.inner.(idObserver); isObserver {
			o.observe(id)
		}
		return v, nil
	}

	v, err = s.inner.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, v); err != nil {
		s.logger.WarnContext(ctx, "datasource: cache write failed", "key", key, "error", err)
	}
	return v, nil
}

// idObserver is a source whose current id follows the ids it serves.
type idObserver interface {
	observe(id entities.DataID)
}

// CurrentDataID delegates to the wrapped source.
func (s *CachedSource) CurrentDataID(ctx context.Context) (entities.DataID, error) {
	return s.inner.CurrentDataID(ctx)
}

// RedisCache is a ports.Cache backed by redis.
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisCache creates a RedisCache; ttl <= 0 uses DefaultCacheTTL.
func NewRedisCache(client redis.Cmdable, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

// Get implements ports.Cache.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Set implements ports.Cache.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte) error {
	return c.client.Set(ctx, key, value, c.ttl).Err()
}

// MemoryCache is an in-process ports.Cache with per-entry expiry.
// Expired entries are dropped on Get and swept on Set at most once per TTL.
type MemoryCache struct {
	entries   map[string]memoryEntry
	now       func() time.Time
	lastSweep time.Time
	mu        sync.Mutex
	ttl       time.Duration
}

type memoryEntry struct {
	expires time.Time
	value   []byte
}

// NewMemoryCache creates a MemoryCache; ttl <= 0 uses DefaultCacheTTL.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &MemoryCache{entries: make(map[string]memoryEntry), ttl: ttl, now: time.Now}
}

// Get implements ports.Cache.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return slices.Clone(e.value), true, nil
}

// Set implements ports.Cache.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if now.Sub(c.lastSweep) >= c.ttl {
		for k, e := range c.entries {
			if !now.Before(e.expires) {
				delete(c.entries, k)
			}
		}
		c.lastSweep = now
	}
	c.entries[key] = memoryEntry{value: slices.Clone(value), expires: now.Add(c.ttl)}
	return nil
}
