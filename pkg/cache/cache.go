// Package cache provides a generic, thread-safe LRU cache with optional
// per-entry TTL. The display pipeline uses it to keep resolved account names
// warm across navigation restarts.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// entry is one cached value with its expiry.
type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time // zero means no expiration
}

// LRU is a thread-safe LRU cache. When maxSize is exceeded the least
// recently used entry is evicted; entries past their TTL read as misses and
// are dropped lazily.
type LRU[V any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration // zero disables expiry
	items   map[string]*list.Element
	order   *list.List

	hits   uint64
	misses uint64
}

// NewLRU creates a cache holding at most maxSize entries, each valid for
// ttl. maxSize must be positive; ttl zero keeps entries until evicted.
func NewLRU[V any](maxSize int, ttl time.Duration) *LRU[V] {
	if maxSize <= 0 {
		maxSize = 128
	}
	return &LRU[V]{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		order:   list.New(),
	}
}

// Get retrieves a value and marks it recently used. Expired entries are
// removed and read as misses.
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, ok := c.items[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}

	e := element.Value.(*entry[V])
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		c.removeElement(element)
		c.misses++
		var zero V
		return zero, false
	}

	c.order.MoveToFront(element)
	c.hits++
	return e.value, true
}

// Set stores a value, evicting the least recently used entry on overflow.
func (c *LRU[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = time.Now().Add(c.ttl)
	}

	if element, ok := c.items[key]; ok {
		e := element.Value.(*entry[V])
		e.value = value
		e.expiresAt = expiresAt
		c.order.MoveToFront(element)
		return
	}

	c.items[key] = c.order.PushFront(&entry[V]{key: key, value: value, expiresAt: expiresAt})
	if len(c.items) > c.maxSize {
		if oldest := c.order.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
}

// Delete removes an entry. Returns whether the key was present.
func (c *LRU[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, ok := c.items[key]
	if !ok {
		return false
	}
	c.removeElement(element)
	return true
}

// Clear drops every entry.
func (c *LRU[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.order.Init()
}

// Size returns the current entry count, expired entries included.
func (c *LRU[V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns lifetime hit and miss counts.
func (c *LRU[V]) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *LRU[V]) removeElement(element *list.Element) {
	e := element.Value.(*entry[V])
	delete(c.items, e.key)
	c.order.Remove(element)
}
