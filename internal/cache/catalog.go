// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// catalog.go provides a Valkey-backed cache for catalog read responses
// (tree, listings, lookups). Entries are namespaced by a generation number;
// any catalog write bumps the generation so every older entry becomes
// unreachable at once and expires on its own TTL.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// catalogKeyPrefix is the Valkey key prefix for cached catalog reads.
	catalogKeyPrefix = "catalog:"

	// generationKey holds the current catalog generation.
	generationKey = catalogKeyPrefix + "gen"

	// DefaultCatalogTTL is how long a cached catalog read stays valid.
	DefaultCatalogTTL = 2 * time.Minute
)

// CatalogCache manages catalog read caching in Valkey. A nil *CatalogCache
// is valid and caches nothing.
type CatalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCatalogCache creates a new catalog cache backed by the given Valkey
// client. A nil client disables caching.
func NewCatalogCache(client *redis.Client, ttl time.Duration) *CatalogCache {
	if client == nil {
		return nil
	}
	if ttl == 0 {
		ttl = DefaultCatalogTTL
	}
	return &CatalogCache{client: client, ttl: ttl}
}

// Generation returns the current catalog generation. ok is false when the
// cache is disabled or unreachable; callers then bypass it.
func (cc *CatalogCache) Generation(ctx context.Context) (gen int64, ok bool) {
	if cc == nil {
		return 0, false
	}
	gen, err := cc.client.Get(ctx, generationKey).Int64()
	if err == redis.Nil {
		return 0, true
	}
	if err != nil {
		slog.Warn("catalog cache generation error", "error", err)
		return 0, false
	}
	return gen, true
}

func entryKey(gen int64, key string) string {
	return catalogKeyPrefix + strconv.FormatInt(gen, 10) + ":" + key
}

// Get retrieves a cached value for key under generation gen.
func (cc *CatalogCache) Get(ctx context.Context, gen int64, key string) ([]byte, bool) {
	if cc == nil {
		return nil, false
	}
	val, err := cc.client.Get(ctx, entryKey(gen, key)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		slog.Warn("catalog cache get error", "key", key, "error", err)
		return nil, false
	}
	slog.Debug("catalog cache hit", "key", key, "gen", gen)
	return val, true
}

// Set stores a value for key under generation gen with the configured TTL.
func (cc *CatalogCache) Set(ctx context.Context, gen int64, key string, data []byte) {
	if cc == nil {
		return
	}
	if err := cc.client.Set(ctx, entryKey(gen, key), data, cc.ttl).Err(); err != nil {
		slog.Warn("catalog cache set error", "key", key, "error", err)
	}
}

// InvalidateAll makes every cached catalog read unreachable.
func (cc *CatalogCache) InvalidateAll(ctx context.Context) {
	if cc == nil {
		return
	}
	gen, err := cc.client.Incr(ctx, generationKey).Result()
	if err != nil {
		slog.Warn("catalog cache invalidate error", "error", err)
		return
	}
	slog.Debug("catalog cache invalidated", "gen", gen)
}

// Load returns the cached value for key, or calls load and caches its
// result. The generation is read before load runs, so a result computed
// from data that a concurrent write has since replaced is filed under the
// old generation and never served.
func Load[T any](ctx context.Context, cc *CatalogCache, key string, load func() (T, error)) (T, error) {
	gen, ok := cc.Generation(ctx)
	if !ok {
		return load()
	}

	if data, hit := cc.Get(ctx, gen, key); hit {
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			return v, nil
		}
		slog.Warn("catalog cache decode error", "key", key)
	}

	v, err := load()
	if err != nil {
		return v, err
	}
	if data, err := json.Marshal(v); err == nil {
		cc.Set(ctx, gen, key, data)
	}
	return v, nil
}

// keyEscaper escapes the separator inside key parts so distinct part
// lists never join to the same key.
var keyEscaper = strings.NewReplacer(`\`, `\\`, `|`, `\|`)

// Key joins key parts into a cache key.
func Key(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = keyEscaper.Replace(p)
	}
	return strings.Join(escaped, "|")
}
