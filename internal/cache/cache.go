// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache defines the injected cache interface used by stages that
// would otherwise keep ad-hoc module-level state, plus an in-memory
// implementation. Owning the cache at the caller keeps the pipeline
// testable without wiping process-wide state between tests.
package cache

import (
	"sync"
	"time"
)

// Cache is a minimal get/set interface with per-entry TTL.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
}

// entry pairs a value with its expiry. A zero expiry never expires.
type entry struct {
	value   any
	expires time.Time
}

// Memory is a mutex-guarded in-memory Cache. Expired entries are evicted
// lazily on read.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]entry)}
}

// Get returns the cached value for key, or false if absent or expired.
func (m *Memory) Get(key string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if !e.expires.IsZero() && time.Now().After(e.expires) {
		delete(m.entries, key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key. A ttl of 0 means no expiry.
func (m *Memory) Set(key string, value any, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := entry{value: value}
	if ttl > 0 {
		e.expires = time.Now().Add(ttl)
	}
	m.entries[key] = e
}
