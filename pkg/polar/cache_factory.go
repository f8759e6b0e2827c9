package polar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fivetwenty-io/polar-client/internal/constants"
)

// CacheType represents the type of cache backend.
type CacheType string

const (
	// CacheTypeMemory represents in-memory cache.
	CacheTypeMemory CacheType = "memory"

	// CacheTypeNATS represents NATS KV cache.
	CacheTypeNATS CacheType = "nats"

	// CacheTypeNone represents no caching.
	CacheTypeNone CacheType = "none"
)

// Static errors for err113 compliance.
var (
	ErrNATSConfigRequired    = errors.New("NATS configuration required for NATS cache")
	ErrUnsupportedCacheType  = errors.New("unsupported cache type")
	ErrCacheDisabled         = errors.New("cache disabled")
	ErrKeyNotFoundInAnyCache = errors.New("key not found in any cache")
)

// CacheConfig configures cache backend.
type CacheConfig struct {
	// Type is the cache backend type
	Type CacheType

	// Memory cache configuration
	Memory *MemoryCacheConfig

	// NATS KV cache configuration
	NATS *NATSKVConfig

	// Common options applied to any backend. If nil, DefaultCacheOptions() is used.
	Options *CacheOptions

	// Policy selects cacheable responses. If nil, DefaultCachingPolicy() is used.
	Policy *CachingPolicy
}

// MemoryCacheConfig configures memory cache.
type MemoryCacheConfig struct {
	// MaxSize is the maximum number of items in the cache
	MaxSize int

	// CleanupInterval is the interval for cleaning up expired entries
	CleanupInterval string // Duration string like "1m", "5s"
}

// DefaultCacheConfig returns default cache configuration.
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Type: CacheTypeMemory,
		Memory: &MemoryCacheConfig{
			MaxSize:         constants.DefaultCacheSize,
			CleanupInterval: "1m",
		},
		Options: DefaultCacheOptions(),
	}
}

// NewCacheFromConfig creates a cache backend from configuration.
func NewCacheFromConfig(config *CacheConfig) (Cache, error) {
	if config == nil {
		config = DefaultCacheConfig()
	}

	switch config.Type {
	case CacheTypeMemory, "":
		cache, err := NewMemoryCacheFromConfig(config.Memory)
		if err != nil {
			return nil, err
		}

		return cache, nil

	case CacheTypeNATS:
		if config.NATS == nil {
			return nil, ErrNATSConfigRequired
		}

		cache, err := NewNATSKVCache(config.NATS)
		if err != nil {
			return nil, err
		}

		return cache, nil

	case CacheTypeNone:
		return NewNoOpCache(), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCacheType, config.Type)
	}
}

// NewMemoryCacheFromConfig creates a memory cache from configuration. A valid
// CleanupInterval starts a background sweep that runs until Close.
func NewMemoryCacheFromConfig(config *MemoryCacheConfig) (*MemoryCache, error) {
	if config == nil {
		config = &MemoryCacheConfig{
			MaxSize:         constants.DefaultCacheSize,
			CleanupInterval: "1m",
		}
	}

	cache := NewMemoryCache(config.MaxSize)

	if config.CleanupInterval != "" {
		interval, err := time.ParseDuration(config.CleanupInterval)
		if err != nil {
			return nil, fmt.Errorf("invalid cleanup interval %q: %w", config.CleanupInterval, err)
		}

		if interval > 0 {
			cache.StartCleanup(context.Background(), interval)
		}
	}

	return cache, nil
}

// NoOpCache is a cache that does nothing (no caching).
type NoOpCache struct{}

// NewNoOpCache creates a new no-op cache.
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

// Get always returns an error (nothing cached).
func (c *NoOpCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	return nil, ErrCacheDisabled
}

// Set does nothing.
func (c *NoOpCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	return nil
}

// Delete does nothing.
func (c *NoOpCache) Delete(ctx context.Context, key string) error {
	return nil
}

// Clear does nothing.
func (c *NoOpCache) Clear(ctx context.Context) error {
	return nil
}

// Has always returns false.
func (c *NoOpCache) Has(ctx context.Context, key string) bool {
	return false
}

// CacheChain layers backends, for example a memory L1 over a NATS L2.
type CacheChain struct {
	caches []Cache
}

// NewCacheChain creates a new cache chain.
func NewCacheChain(caches ...Cache) *CacheChain {
	return &CacheChain{
		caches: caches,
	}
}

// Get returns the first hit and back-fills the faster layers.
func (c *CacheChain) Get(ctx context.Context, key string) (*CacheEntry, error) {
	for i, cache := range c.caches {
		entry, err := cache.Get(ctx, key)
		if err == nil {
			for j := range i {
				_ = c.caches[j].Set(ctx, key, entry)
			}

			return entry, nil
		}
	}

	return nil, ErrKeyNotFoundInAnyCache
}

// Set stores an item in all caches.
func (c *CacheChain) Set(ctx context.Context, key string, entry *CacheEntry) error {
	var errs []error

	for _, cache := range c.caches {
		errs = append(errs, cache.Set(ctx, key, entry))
	}

	return errors.Join(errs...)
}

// Delete removes an item from all caches.
func (c *CacheChain) Delete(ctx context.Context, key string) error {
	var errs []error

	for _, cache := range c.caches {
		errs = append(errs, cache.Delete(ctx, key))
	}

	return errors.Join(errs...)
}

// Clear removes all items from all caches.
func (c *CacheChain) Clear(ctx context.Context) error {
	var errs []error

	for _, cache := range c.caches {
		errs = append(errs, cache.Clear(ctx))
	}

	return errors.Join(errs...)
}

// Has checks if a key exists in any cache.
func (c *CacheChain) Has(ctx context.Context, key string) bool {
	for _, cache := range c.caches {
		if cache.Has(ctx, key) {
			return true
		}
	}

	return false
}
