package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultMemorySize = 100
	DefaultMemoryTTL  = time.Hour
)

// Memory is a size-bounded cache whose entries expire after a fixed TTL.
// It is safe for concurrent use.
type Memory[V any] struct {
	lru *expirable.LRU[string, V]
}

// NewMemory creates a Memory holding at most size entries for ttl each.
// Non-positive arguments select the defaults.
func NewMemory[V any](size int, ttl time.Duration) *Memory[V] {
	if size <= 0 {
		size = DefaultMemorySize
	}
	if ttl <= 0 {
		ttl = DefaultMemoryTTL
	}
	return &Memory[V]{lru: expirable.NewLRU[string, V](size, nil, ttl)}
}

// Get returns the value stored under key.
func (m *Memory[V]) Get(key string) (V, bool) { return m.lru.Get(key) }

// Add stores v under key, evicting the least recently used entry when full.
func (m *Memory[V]) Add(key string, v V) { m.lru.Add(key, v) }

// Len returns the number of live entries.
func (m *Memory[V]) Len() int { return m.lru.Len() }

// Purge removes every entry.
func (m *Memory[V]) Purge() { m.lru.Purge() }
