// Package cache provides a read-through cache for task lookups backed by the
// mono storage interface.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-monolith/mono/pkg/storage"
)

// CacheService defines the caching operations used by consumers.
type CacheService interface {
	// Get unmarshals the value stored under key into dest and reports whether
	// the key was found.
	Get(ctx context.Context, key string, dest any) (bool, error)

	// Set stores value under key with the default TTL.
	Set(ctx context.Context, key string, value any) error

	// SetWithTTL stores value under key with a custom TTL.
	SetWithTTL(ctx context.Context, key string, value any, ttl time.Duration) error

	// Delete removes keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	// Stats returns hit and miss counters.
	Stats() Stats

	// Close closes the underlying storage connection.
	Close() error
}

// Stats holds cache counters.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

type cacheService struct {
	storage storage.Storage
	prefix  string
	ttl     time.Duration
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewCacheService creates a CacheService wrapping the provided storage.
func NewCacheService(s storage.Storage, prefix string, ttl time.Duration, logger *slog.Logger) CacheService {
	if logger == nil {
		logger = slog.Default()
	}
	return &cacheService{
		storage: s,
		prefix:  prefix,
		ttl:     ttl,
		logger:  logger,
	}
}

func (c *cacheService) Get(ctx context.Context, key string, dest any) (bool, error) {
	fullKey := c.prefix + key

	data, err := c.storage.GetWithContext(ctx, fullKey)
	if err != nil {
		return false, fmt.Errorf("cache get error: %w", err)
	}

	if len(data) == 0 {
		c.misses.Add(1)
		c.logger.Debug("cache miss", "key", fullKey)
		return false, nil
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal error: %w", err)
	}

	c.hits.Add(1)
	c.logger.Debug("cache hit", "key", fullKey)
	return true, nil
}

func (c *cacheService) Set(ctx context.Context, key string, value any) error {
	return c.SetWithTTL(ctx, key, value, c.ttl)
}

func (c *cacheService) SetWithTTL(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}

	if err := c.storage.SetWithContext(ctx, c.prefix+key, data, ttl); err != nil {
		return fmt.Errorf("cache set error: %w", err)
	}
	return nil
}

func (c *cacheService) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if err := c.storage.DeleteWithContext(ctx, c.prefix+key); err != nil {
			return fmt.Errorf("cache delete error: %w", err)
		}
	}
	return nil
}

func (c *cacheService) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

func (c *cacheService) Close() error {
	return c.storage.Close()
}

// Noop is a CacheService that stores nothing. It stands in when no Redis
// server is configured.
type Noop struct{}

var _ CacheService = Noop{}

func (Noop) Get(context.Context, string, any) (bool, error) { return false, nil }
func (Noop) Set(context.Context, string, any) error { return nil }
func (Noop) SetWithTTL(context.Context, string, any, time.Duration) error { return nil }
func (Noop) Delete(context.Context, ...string) error { return nil }
func (Noop) Stats() Stats { return Stats{} }
func (Noop) Close() error { return nil }
