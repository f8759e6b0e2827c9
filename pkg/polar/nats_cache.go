package polar

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/fivetwenty-io/polar-client/internal/constants"
)

// NATSKVConfig configures a JetStream key-value cache.
type NATSKVConfig struct {
	// URL of the NATS server. Ignored when Conn is set.
	URL string
	// Bucket is created when missing.
	Bucket string
	// TTL is the bucket level expiry.
	TTL time.Duration
	// Options are passed to nats.Connect.
	Options []nats.Option
	// Conn reuses an existing connection instead of dialling URL.
	Conn *nats.Conn
}

// NATSKVCache stores cache entries in a JetStream KV bucket so several client
// processes share responses.
type NATSKVCache struct {
	conn  *nats.Conn
	owned bool
	kv    jetstream.KeyValue
}

// NewNATSKVCache connects and creates (or updates) the bucket.
func NewNATSKVCache(config *NATSKVConfig) (*NATSKVCache, error) {
	if config == nil {
		return nil, ErrNATSConfigRequired
	}

	conn := config.Conn
	owned := false

	if conn == nil {
		url := config.URL
		if url == "" {
			url = nats.DefaultURL
		}

		var err error

		conn, err = nats.Connect(url, config.Options...)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}

		owned = true
	}

	bucket := config.Bucket
	if bucket == "" {
		bucket = constants.DefaultNATSBucket
	}

	ttl := config.TTL
	if ttl <= 0 {
		ttl = constants.DefaultCacheTTL
	}

	js, err := jetstream.New(conn)
	if err != nil {
		closeOwned(conn, owned)
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), constants.ShortHTTPTimeout)
	defer cancel()

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "polar client response cache",
		TTL:         ttl,
	})
	if err != nil {
		closeOwned(conn, owned)
		return nil, fmt.Errorf("failed to create KV bucket %s: %w", bucket, err)
	}

	return &NATSKVCache{conn: conn, owned: owned, kv: kv}, nil
}

func (c *NATSKVCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	kve, err := c.kv.Get(ctx, natsKey(key))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, ErrCacheMiss
		}

		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}

	entry, err := Decode[CacheEntry](kve.Value(), "cache entry")
	if err != nil {
		return nil, err
	}

	if entry.Expired() {
		_ = c.kv.Delete(ctx, natsKey(key))
		return nil, ErrCacheEntryExpired
	}

	return &entry, nil
}

func (c *NATSKVCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	data, err := Encode(entry)
	if err != nil {
		return err
	}

	_, err = c.kv.Put(ctx, natsKey(key), data)
	if err != nil {
		return fmt.Errorf("failed to put cache entry: %w", err)
	}

	return nil
}

func (c *NATSKVCache) Delete(ctx context.Context, key string) error {
	err := c.kv.Delete(ctx, natsKey(key))
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}

	return nil
}

func (c *NATSKVCache) Clear(ctx context.Context) error {
	lister, err := c.kv.ListKeys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil
		}

		return fmt.Errorf("failed to list cache keys: %w", err)
	}

	for k := range lister.Keys() {
		err = c.kv.Purge(ctx, k)
		if err != nil {
			_ = lister.Stop()
			return fmt.Errorf("failed to purge cache key: %w", err)
		}
	}

	return nil
}

func (c *NATSKVCache) Has(ctx context.Context, key string) bool {
	_, err := c.Get(ctx, key)

	return err == nil
}

// Close closes the connection if the cache opened it.
func (c *NATSKVCache) Close() {
	closeOwned(c.conn, c.owned)
}

// natsKey maps arbitrary cache keys onto the KV key alphabet.
func natsKey(key string) string {
	sum := sha256.Sum256([]byte(key))

	return hex.EncodeToString(sum[:])
}

func closeOwned(conn *nats.Conn, owned bool) {
	if owned && conn != nil {
		conn.Close()
	}
}
