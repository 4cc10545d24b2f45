package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSet(t *testing.T) {
	c := NewLRU[string](4, 0)

	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Set("a", "alpha")
	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "alpha", got)

	c.Set("a", "updated")
	got, _ = c.Get("a")
	assert.Equal(t, "updated", got)
	assert.Equal(t, 1, c.Size())
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU[int](2, 0)
	c.Set("a", 1)
	c.Set("b", 2)

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Set("c", 3)

	_, ok = c.Get("b")
	assert.False(t, ok, "least recently used entry should be evicted")
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestTTLExpiry(t *testing.T) {
	c := NewLRU[string](4, 20*time.Millisecond)
	c.Set("a", "alpha")

	_, ok := c.Get("a")
	require.True(t, ok)

	time.Sleep(30 * time.Millisecond)
	_, ok = c.Get("a")
	assert.False(t, ok, "expired entry reads as a miss")
	assert.Equal(t, 0, c.Size(), "expired entry is dropped on access")
}

func TestSetRefreshesTTL(t *testing.T) {
	c := NewLRU[string](4, 40*time.Millisecond)
	c.Set("a", "alpha")

	time.Sleep(25 * time.Millisecond)
	c.Set("a", "alpha")
	time.Sleep(25 * time.Millisecond)

	_, ok := c.Get("a")
	assert.True(t, ok, "rewriting an entry resets its expiry")
}

func TestDeleteAndClear(t *testing.T) {
	c := NewLRU[int](4, 0)
	c.Set("a", 1)
	c.Set("b", 2)

	assert.True(t, c.Delete("a"))
	assert.False(t, c.Delete("a"))

	c.Clear()
	assert.Equal(t, 0, c.Size())
	_, ok := c.Get("b")
	assert.False(t, ok)
}

func TestStats(t *testing.T) {
	c := NewLRU[int](4, 0)
	c.Set("a", 1)

	c.Get("a")
	c.Get("a")
	c.Get("missing")

	hits, misses := c.Stats()
	assert.Equal(t, uint64(2), hits)
	assert.Equal(t, uint64(1), misses)
}
