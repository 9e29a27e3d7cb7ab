package doccache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCache_GetSet(t *testing.T) {
	cache := New(4)

	key := CacheKey{OwnerID: "owner-1", Filename: "notes.pdf"}
	_, ok := cache.Get(key)
	assert.False(t, ok)

	cache.Set(key, "extracted text")

	text, ok := cache.Get(key)
	assert.True(t, ok)
	assert.Equal(t, "extracted text", text)
}

func TestCache_SetUpdatesExisting(t *testing.T) {
	cache := New(4)
	key := CacheKey{OwnerID: "owner-1", Filename: "notes.pdf"}

	cache.Set(key, "first version")
	cache.Set(key, "second version")

	text, ok := cache.Get(key)
	assert.True(t, ok)
	assert.Equal(t, "second version", text)
	assert.Equal(t, 1, cache.Stats().Size)
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	cache := New(3)

	for i := 0; i < 3; i++ {
		cache.Set(CacheKey{OwnerID: "owner-1", Filename: fmt.Sprintf("doc-%d.pdf", i)}, fmt.Sprintf("text %d", i))
	}

	// Touch doc-0 so doc-1 becomes least recently used
	_, ok := cache.Get(CacheKey{OwnerID: "owner-1", Filename: "doc-0.pdf"})
	assert.True(t, ok)

	cache.Set(CacheKey{OwnerID: "owner-1", Filename: "doc-3.pdf"}, "text 3")

	_, ok = cache.Get(CacheKey{OwnerID: "owner-1", Filename: "doc-1.pdf"})
	assert.False(t, ok, "least recently used entry should be evicted")
	_, ok = cache.Get(CacheKey{OwnerID: "owner-1", Filename: "doc-0.pdf"})
	assert.True(t, ok)
	_, ok = cache.Get(CacheKey{OwnerID: "owner-1", Filename: "doc-3.pdf"})
	assert.True(t, ok)
	assert.Equal(t, 3, cache.Stats().Size)
}

func TestCache_BoundedSize(t *testing.T) {
	cache := New(5)

	for i := 0; i < 20; i++ {
		cache.Set(CacheKey{OwnerID: "owner-1", Filename: fmt.Sprintf("doc-%d.pdf", i)}, "text")
	}

	assert.Equal(t, 5, cache.Stats().Size)
}

func TestCache_Invalidate(t *testing.T) {
	cache := New(4)
	key := CacheKey{OwnerID: "owner-1", Filename: "notes.pdf"}

	cache.Set(key, "extracted text")
	cache.Invalidate(key)

	_, ok := cache.Get(key)
	assert.False(t, ok)
}

func TestCache_InvalidateOwner(t *testing.T) {
	cache := New(8)

	cache.Set(CacheKey{OwnerID: "owner-1", Filename: "a.pdf"}, "a")
	cache.Set(CacheKey{OwnerID: "owner-1", Filename: "b.pdf"}, "b")
	cache.Set(CacheKey{OwnerID: "owner-2", Filename: "c.pdf"}, "c")

	cache.InvalidateOwner("owner-1")

	_, ok := cache.Get(CacheKey{OwnerID: "owner-1", Filename: "a.pdf"})
	assert.False(t, ok)
	_, ok = cache.Get(CacheKey{OwnerID: "owner-1", Filename: "b.pdf"})
	assert.False(t, ok)
	_, ok = cache.Get(CacheKey{OwnerID: "owner-2", Filename: "c.pdf"})
	assert.True(t, ok)
}

func TestCache_Clear(t *testing.T) {
	cache := New(4)
	cache.Set(CacheKey{OwnerID: "owner-1", Filename: "a.pdf"}, "a")
	cache.Set(CacheKey{OwnerID: "owner-2", Filename: "b.pdf"}, "b")

	cache.Clear()

	assert.Equal(t, 0, cache.Stats().Size)
	_, ok := cache.Get(CacheKey{OwnerID: "owner-1", Filename: "a.pdf"})
	assert.False(t, ok)
}

func TestCache_Stats(t *testing.T) {
	cache := New(4)
	key := CacheKey{OwnerID: "owner-1", Filename: "notes.pdf"}

	cache.Get(key) // miss
	cache.Set(key, "text")
	cache.Get(key) // hit
	cache.Get(key) // hit

	stats := cache.Stats()
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, 4, stats.MaxSize)
	assert.Equal(t, uint64(2), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.InDelta(t, 2.0/3.0, stats.HitRate, 0.001)
}

func TestCache_ZeroCapacityClamped(t *testing.T) {
	cache := New(0)
	cache.Set(CacheKey{OwnerID: "owner-1", Filename: "a.pdf"}, "a")

	assert.Equal(t, 1, cache.Stats().Size)
	assert.Equal(t, 1, cache.Stats().MaxSize)
}

func TestCacheKey_String(t *testing.T) {
	key := CacheKey{OwnerID: "owner-1", Filename: "notes.pdf"}
	assert.Equal(t, "owner-1:notes.pdf", key.String())
}
