package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores registry GET responses keyed by URL and header signature.
// Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CacheKey derives a stable cache key from a request URL and the headers
// that affect the response. The key is hashed so credentials carried in
// headers never appear in the cache backend.
func CacheKey(url string, headers map[string]string) string {
	sig := make([]string, 0, len(headers))
	for k, v := range headers {
		sig = append(sig, k+":"+v)
	}
	sort.Strings(sig)

	sum := sha256.Sum256([]byte(url + "||" + strings.Join(sig, "|")))
	return "registry:" + hex.EncodeToString(sum[:])
}

type memoryEntry struct {
	expiresAt time.Time
	value     []byte
}

// MemoryCache is an in-process TTL cache used when no Redis address is
// configured.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry)}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false, nil
	}
	return entry.value, true, nil
}

// Set implements Cache.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	c.entries[key] = memoryEntry{expiresAt: time.Now().Add(ttl), value: value}
	c.mu.Unlock()
	return nil
}

// RedisCache stores responses in Redis so cache entries survive restarts
// and are shared across workers.
type RedisCache struct {
	client redis.UniversalClient
}

// NewRedisCache wraps a Redis client as a registry cache.
func NewRedisCache(client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client}
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

var (
	_ Cache = (*MemoryCache)(nil)
	_ Cache = (*RedisCache)(nil)
)
