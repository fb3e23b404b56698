// Copyright (c) 2025 Pinotboard
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package querycache keeps recently computed query outcomes in process memory for a
// fixed window. Entries are keyed by the literal SQL text; nothing is persisted and
// the cache is cleared when the process exits.
package querycache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// DefaultTTL is the window during which a repeated query is served from memory.
	DefaultTTL = 60 * time.Second
	// DefaultSize bounds the number of distinct queries kept.
	DefaultSize = 256
)

// Cache is a size-bounded, time-windowed map from SQL text to V.
// It is safe for concurrent use.
type Cache[V any] struct {
	lru *expirable.LRU[string, V]
	ttl time.Duration
}

// New creates a cache. Non-positive size or ttl fall back to the defaults.
func New[V any](size int, ttl time.Duration) *Cache[V] {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache[V]{lru: expirable.NewLRU[string, V](size, nil, ttl), ttl: ttl}
}

// Get returns the value stored for sql if it is still inside its window.
func (c *Cache[V]) Get(sql string) (V, bool) {
	return c.lru.Get(sql)
}

// Add stores v for sql, starting a fresh window.
func (c *Cache[V]) Add(sql string, v V) {
	c.lru.Add(sql, v)
}

// Remove drops the entry for sql.
func (c *Cache[V]) Remove(sql string) {
	c.lru.Remove(sql)
}

// Purge drops every entry.
func (c *Cache[V]) Purge() {
	c.lru.Purge()
}

// Len returns the number of entries, including ones whose window has passed but
// that have not been swept yet.
func (c *Cache[V]) Len() int {
	return c.lru.Len()
}

// TTL returns the cache window.
func (c *Cache[V]) TTL() time.Duration {
	return c.ttl
}
