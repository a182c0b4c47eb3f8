// Package cache provides a small get/set cache used off the ingestion critical
// path (e.g. cross-run embedding reuse). A Redis server is used when reachable;
// otherwise an unbounded in-process map takes over so cache unavailability
// never fails the caller.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache stores opaque byte values by key with an optional TTL.
type Cache interface {
	// Get returns the value for key, or def when the key is absent or the
	// store is unreachable.
	Get(ctx context.Context, key string, def []byte) []byte

	// Set stores value under key. Errors are absorbed; a cache write is never
	// worth failing ingestion over.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)

	Close() error
}

// New connects to the Redis server at url. When the connection cannot be
// established, a local in-process cache is returned instead and the fallback
// is logged. logger may be nil.
func New(ctx context.Context, url string, logger *zap.Logger) Cache {
	if url == "" {
		return NewLocal()
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		if logger != nil {
			logger.Warn("invalid cache URL, using in-process cache", zap.Error(err))
		}
		return NewLocal()
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		if logger != nil {
			logger.Warn("cache server unreachable, using in-process cache", zap.Error(err))
		}
		_ = client.Close()
		return NewLocal()
	}
	if logger != nil {
		logger.Info("cache available through Redis server")
	}
	return &redisCache{client: client}
}

type redisCache struct {
	client *redis.Client
}

func (c *redisCache) Get(ctx context.Context, key string, def []byte) []byte {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return def
	}
	return val
}

func (c *redisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	_ = c.client.Set(ctx, key, value, ttl).Err()
}

func (c *redisCache) Close() error {
	return c.client.Close()
}

// LocalCache is the in-process fallback: an unbounded map. TTLs are ignored;
// entries live for the process lifetime.
type LocalCache struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewLocal returns an empty in-process cache.
func NewLocal() *LocalCache {
	return &LocalCache{entries: make(map[string][]byte)}
}

func (c *LocalCache) Get(ctx context.Context, key string, def []byte) []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if v, ok := c.entries[key]; ok {
		return v
	}
	return def
}

func (c *LocalCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

func (c *LocalCache) Close() error {
	return nil
}
