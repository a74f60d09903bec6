// SPDX-License-Identifier: MIT

package kv

import (
	"context"
	"strings"
	"sync"
	"time"
)

// entry represents a stored value with expiration time.
type entry struct {
	value      []byte
	expiration time.Time // zero means no expiry
}

// isExpired checks if the entry has expired.
func (e *entry) isExpired() bool {
	return !e.expiration.IsZero() && time.Now().After(e.expiration)
}

// Memory is the in-process development backend. All operations are safe under
// concurrent access.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*entry
	janitor *janitor
}

// NewMemory creates an in-memory store with automatic cleanup. The
// cleanupInterval determines how often expired entries are removed; zero
// disables the janitor and relies on lazy expiry alone.
func NewMemory(cleanupInterval time.Duration) *Memory {
	m := &Memory{entries: make(map[string]*entry)}
	if cleanupInterval > 0 {
		m.janitor = &janitor{
			interval: cleanupInterval,
			stop:     make(chan struct{}),
		}
		go m.janitor.run(m)
	}
	return m
}

// Put stores value under key.
func (m *Memory) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := &entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiration = time.Now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

// Get retrieves the value stored under key.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, found := m.entries[key]
	if !found || e.isExpired() {
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

// Delete removes key.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Keys lists keys with the given prefix, skipping expired entries.
func (m *Memory) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.entries))
	for k, e := range m.entries {
		if strings.HasPrefix(k, prefix) && !e.isExpired() {
			out = append(out, k)
		}
	}
	return out, nil
}

// Close stops the background cleanup goroutine. Safe to call more than once.
func (m *Memory) Close() error {
	if m.janitor != nil {
		m.janitor.stopOnce.Do(func() { close(m.janitor.stop) })
	}
	return nil
}

// deleteExpired removes all expired entries. Returns the number deleted.
func (m *Memory) deleteExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for key, e := range m.entries {
		if e.isExpired() {
			delete(m.entries, key)
			count++
		}
	}
	return count
}

// janitor performs periodic cleanup of expired entries.
type janitor struct {
	interval time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

func (j *janitor) run(m *Memory) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.deleteExpired()
		case <-j.stop:
			return
		}
	}
}
