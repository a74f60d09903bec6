// SPDX-License-Identifier: MIT

// Package kv provides a uniform key/value port with TTL semantics backed by
// either Redis or process memory. Values are opaque serialized records.
package kv

import (
	"context"
	"time"
)

// Store is the contract shared by both backends. Single-key operations are
// atomic at the store level; there are no cross-key transactions.
type Store interface {
	// Put stores value under key for ttl. A non-positive ttl keeps the key
	// until the store is discarded.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Get retrieves the value stored under key. The boolean reports presence;
	// expired keys read as absent.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Keys lists keys carrying the given prefix. May be O(n); intended for
	// diagnostics only.
	Keys(ctx context.Context, prefix string) ([]string, error)
	// Close releases backend resources.
	Close() error
}

// Key namespaces. Everything lives in a single KV namespace.
const (
	JobPrefix       = "job:"
	CachePrefix     = "cache:"
	RateLimitPrefix = "rl:"
)

// JobKey returns the store key for a job id.
func JobKey(id string) string { return JobPrefix + id }

// CacheKey returns the store key for a request fingerprint.
func CacheKey(fingerprint string) string { return CachePrefix + fingerprint }

// RateLimitKey returns the store key for a limiter class and client identity.
func RateLimitKey(class, identity string) string {
	return RateLimitPrefix + class + ":" + identity
}
