// SPDX-License-Identifier: MIT

// Package cache stores completed summaries under a deterministic fingerprint
// of (normalized url, canonical options) so identical requests short-circuit
// the pipeline.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/ytsum/internal/kv"
	"github.com/ManuGH/ytsum/internal/types"
)

// Cache is a TTL-bounded result cache over the KV store.
type Cache struct {
	store  kv.Store
	ttl    time.Duration
	logger zerolog.Logger
}

// New builds a Cache writing entries with the given TTL.
func New(store kv.Store, ttl time.Duration, logger zerolog.Logger) *Cache {
	return &Cache{store: store, ttl: ttl, logger: logger}
}

// Fingerprint computes the stable cache key component for a request. Options
// are canonicalized with defaults made explicit so clients that omit defaults
// still hit.
func Fingerprint(rawURL string, opts types.Options) string {
	o := opts.Normalized()
	canonical := fmt.Sprintf("%s:length=%s:format=%s:mode=%s",
		normalizeURL(rawURL), o.Length, o.Format, o.TranscriptMode)
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// normalizeURL lowercases scheme and host and strips tracking noise from the
// query, keeping only the video id parameter when present.
func normalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return strings.TrimSpace(raw)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	if v := u.Query().Get("v"); v != "" {
		u.RawQuery = "v=" + v
	}
	return u.String()
}

// Lookup returns the cached entry for (url, options), if any. Backend read
// failures degrade to a miss.
func (c *Cache) Lookup(ctx context.Context, rawURL string, opts types.Options) (*types.CacheEntry, bool) {
	key := kv.CacheKey(Fingerprint(rawURL, opts))
	data, found, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache lookup failed")
		return nil, false
	}
	if !found {
		return nil, false
	}

	var entry types.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache entry unreadable, dropping")
		_ = c.store.Delete(ctx, key)
		return nil, false
	}
	return &entry, true
}

// Store caches a completed result. Callers only invoke this for jobs that
// reached completed status; failed and cancelled outcomes are never stored.
func (c *Cache) Store(ctx context.Context, rawURL string, opts types.Options, entry types.CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	key := kv.CacheKey(Fingerprint(rawURL, opts))
	if err := c.store.Put(ctx, key, data, c.ttl); err != nil {
		return fmt.Errorf("store cache entry: %w", err)
	}
	return nil
}

// Invalidate removes the entry for (url, options).
func (c *Cache) Invalidate(ctx context.Context, rawURL string, opts types.Options) error {
	return c.store.Delete(ctx, kv.CacheKey(Fingerprint(rawURL, opts)))
}
