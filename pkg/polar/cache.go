package polar

import (
	"container/list"
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fivetwenty-io/polar-client/internal/constants"
)

// Cache stores raw GET response bodies.
type Cache interface {
	Get(ctx context.Context, key string) (*CacheEntry, error)
	Set(ctx context.Context, key string, entry *CacheEntry) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Has(ctx context.Context, key string) bool
}

// CacheEntry is a cached response body.
type CacheEntry struct {
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at"`
	ETag      string    `json:"etag,omitempty"`
}

// Expired reports whether the entry is past its expiry.
func (e *CacheEntry) Expired() bool {
	return !e.ExpiresAt.IsZero() && time.Now().After(e.ExpiresAt)
}

// CacheOptions are applied by CacheManager regardless of backend.
type CacheOptions struct {
	TTL         time.Duration
	MaxSize     int
	EnableETags bool
}

// DefaultCacheOptions returns a 30s TTL with ETags enabled.
func DefaultCacheOptions() *CacheOptions {
	return &CacheOptions{
		TTL:         constants.DefaultCacheTTL,
		MaxSize:     constants.DefaultCacheSize,
		EnableETags: true,
	}
}

type memoryItem struct {
	key   string
	entry *CacheEntry
}

// MemoryCache is a bounded LRU cache.
type MemoryCache struct {
	mu        sync.Mutex
	maxSize   int
	order     *list.List
	items     map[string]*list.Element
	stopSweep func()
}

// NewMemoryCache creates an LRU cache holding at most maxSize entries.
func NewMemoryCache(maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = constants.DefaultCacheSize
	}

	return &MemoryCache{
		maxSize: maxSize,
		order:   list.New(),
		items:   make(map[string]*list.Element),
	}
}

func (c *MemoryCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return nil, ErrCacheMiss
	}

	item := elem.Value.(*memoryItem)
	if item.entry.Expired() {
		c.removeElement(elem)
		return nil, ErrCacheEntryExpired
	}

	c.order.MoveToFront(elem)

	return item.entry, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		elem.Value.(*memoryItem).entry = entry
		c.order.MoveToFront(elem)

		return nil
	}

	c.items[key] = c.order.PushFront(&memoryItem{key: key, entry: entry})

	for c.order.Len() > c.maxSize {
		c.removeElement(c.order.Back())
	}

	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}

	return nil
}

func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	c.items = make(map[string]*list.Element)

	return nil
}

func (c *MemoryCache) Has(ctx context.Context, key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]

	return ok && !elem.Value.(*memoryItem).entry.Expired()
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.order.Len()
}

// Cleanup drops expired entries.
func (c *MemoryCache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for elem := c.order.Front(); elem != nil; {
		next := elem.Next()
		if elem.Value.(*memoryItem).entry.Expired() {
			c.removeElement(elem)
		}

		elem = next
	}
}

// StartCleanup runs Cleanup every interval until ctx is done or Close is
// called. A running sweep is replaced.
func (c *MemoryCache) StartCleanup(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	c.mu.Lock()
	previous := c.stopSweep
	c.stopSweep = func() {
		cancel()
		<-done
	}
	c.mu.Unlock()

	if previous != nil {
		previous()
	}

	go func() {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Cleanup()
			}
		}
	}()
}

// CleanupRunning reports whether a background sweep was started and not yet
// stopped by Close.
func (c *MemoryCache) CleanupRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.stopSweep != nil
}

// Close stops the background sweep and waits for it to exit. Stored entries
// stay readable.
func (c *MemoryCache) Close() {
	c.mu.Lock()
	stop := c.stopSweep
	c.stopSweep = nil
	c.mu.Unlock()

	if stop != nil {
		stop()
	}
}

func (c *MemoryCache) removeElement(elem *list.Element) {
	c.order.Remove(elem)
	delete(c.items, elem.Value.(*memoryItem).key)
}

// CacheStats counts cache outcomes.
type CacheStats struct {
	Hits   int64 `json:"hits"   yaml:"hits"`
	Misses int64 `json:"misses" yaml:"misses"`
	Sets   int64 `json:"sets"   yaml:"sets"`
	Clears int64 `json:"clears" yaml:"clears"`
}

// GetHitRate returns hits / (hits + misses), or 0 before any lookup.
func (s *CacheStats) GetHitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}

	return float64(s.Hits) / float64(total)
}

// CacheManager applies options on top of a Cache backend and keeps stats.
type CacheManager struct {
	cache   Cache
	options *CacheOptions

	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
	clears atomic.Int64
}

// NewCacheManager creates a manager. Nil arguments select a memory cache and
// DefaultCacheOptions.
func NewCacheManager(cache Cache, options *CacheOptions) *CacheManager {
	if options == nil {
		options = DefaultCacheOptions()
	}

	if cache == nil {
		cache = NewMemoryCache(options.MaxSize)
	}

	return &CacheManager{cache: cache, options: options}
}

// Options returns the manager options.
func (m *CacheManager) Options() *CacheOptions {
	return m.options
}

// GetCacheKey builds "METHOD:path" or "METHOD:path:encoded-params".
func (m *CacheManager) GetCacheKey(method, path string, params url.Values) string {
	key := method + ":" + path
	if len(params) > 0 {
		key += ":" + params.Encode()
	}

	return key
}

// Get returns cached data for key.
func (m *CacheManager) Get(ctx context.Context, key string) ([]byte, error) {
	entry, err := m.GetEntry(ctx, key)
	if err != nil {
		return nil, err
	}

	return entry.Data, nil
}

// GetEntry returns the cached entry for key.
func (m *CacheManager) GetEntry(ctx context.Context, key string) (*CacheEntry, error) {
	entry, err := m.cache.Get(ctx, key)
	if err != nil {
		m.misses.Add(1)
		return nil, err
	}

	m.hits.Add(1)

	return entry, nil
}

// Set stores data under key for ttl. A non-positive ttl uses the configured TTL.
func (m *CacheManager) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return m.SetWithETag(ctx, key, data, "", ttl)
}

// SetWithETag stores data together with its ETag.
func (m *CacheManager) SetWithETag(ctx context.Context, key string, data []byte, etag string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = m.options.TTL
	}

	if !m.options.EnableETags {
		etag = ""
	}

	err := m.cache.Set(ctx, key, &CacheEntry{
		Data:      data,
		ExpiresAt: time.Now().Add(ttl),
		ETag:      etag,
	})
	if err != nil {
		return err
	}

	m.sets.Add(1)

	return nil
}

// Invalidate drops every cached entry. It runs after successful mutations.
func (m *CacheManager) Invalidate(ctx context.Context) error {
	m.clears.Add(1)

	return m.cache.Clear(ctx)
}

// GetStats returns a snapshot of the counters.
func (m *CacheManager) GetStats() CacheStats {
	return CacheStats{
		Hits:   m.hits.Load(),
		Misses: m.misses.Load(),
		Sets:   m.sets.Load(),
		Clears: m.clears.Load(),
	}
}

// CachingPolicy decides which responses are cached.
type CachingPolicy struct {
	CacheGET     bool
	CachePOST    bool
	CacheErrors  bool
	IncludePaths []string
	ExcludePaths []string
}

// DefaultCachingPolicy caches successful GETs, except export job status which
// must always be read live.
func DefaultCachingPolicy() *CachingPolicy {
	return &CachingPolicy{
		CacheGET:     true,
		ExcludePaths: []string{constants.ExportsPath},
	}
}

// ShouldCache reports whether a response to method/path with status is cacheable.
func (p *CachingPolicy) ShouldCache(method, path string, status int) bool {
	switch method {
	case http.MethodGet:
		if !p.CacheGET {
			return false
		}
	case http.MethodPost:
		if !p.CachePOST {
			return false
		}
	default:
		return false
	}

	if status >= http.StatusBadRequest && !p.CacheErrors {
		return false
	}

	for _, prefix := range p.ExcludePaths {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}

	if len(p.IncludePaths) == 0 {
		return true
	}

	for _, prefix := range p.IncludePaths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}

	return false
}
