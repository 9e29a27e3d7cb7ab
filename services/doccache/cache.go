package doccache

import (
	"container/list"
	"sync"
)

// CacheKey identifies one extracted document text per owner
type CacheKey struct {
	OwnerID  string
	Filename string
}

// String returns a string representation of the cache key
func (k CacheKey) String() string {
	return k.OwnerID + ":" + k.Filename
}

// cacheEntry represents a single cache entry
type cacheEntry struct {
	key     CacheKey
	text    string
	element *list.Element // For LRU tracking
}

// Cache is a bounded in-memory LRU cache for extracted document text,
// keyed by (owner, filename). Extraction is expensive; analysis and
// podcast generation hit the same documents repeatedly.
// Thread-safe implementation using sync.Mutex
type Cache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry // Key: CacheKey.String()
	lruList *list.List             // Doubly linked list for LRU tracking
	maxSize int                    // Maximum number of entries
	hits    uint64                 // Cache hit counter
	misses  uint64                 // Cache miss counter
}

// New creates a new Cache with the specified capacity
func New(maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &Cache{
		entries: make(map[string]*cacheEntry),
		lruList: list.New(),
		maxSize: maxSize,
	}
}

// Get retrieves a document's text from the cache
func (c *Cache) Get(key CacheKey) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key.String()]
	if !exists {
		c.misses++
		return "", false
	}

	// Move to front (most recently used)
	c.lruList.MoveToFront(entry.element)
	c.hits++

	return entry.text, true
}

// Set stores a document's extracted text in the cache
func (c *Cache) Set(key CacheKey, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	keyStr := key.String()

	// Check if entry already exists
	if entry, exists := c.entries[keyStr]; exists {
		entry.text = text
		c.lruList.MoveToFront(entry.element)
		return
	}

	// Evict least recently used entry if cache is full
	if c.lruList.Len() >= c.maxSize {
		c.evictLRU()
	}

	entry := &cacheEntry{
		key:  key,
		text: text,
	}
	entry.element = c.lruList.PushFront(keyStr)
	c.entries[keyStr] = entry
}

// Invalidate removes a specific cache entry
func (c *Cache) Invalidate(key CacheKey) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.removeEntry(key.String())
}

// InvalidateOwner removes all cache entries for one owner
func (c *Cache) InvalidateOwner(ownerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for keyStr, entry := range c.entries {
		if entry.key.OwnerID == ownerID {
			c.removeEntry(keyStr)
		}
	}
}

// Clear removes all entries from the cache
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
	c.lruList.Init()
}

// Stats returns cache statistics
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return CacheStats{
		Size:    c.lruList.Len(),
		MaxSize: c.maxSize,
		Hits:    c.hits,
		Misses:  c.misses,
		HitRate: c.calculateHitRate(),
	}
}

// CacheStats represents cache statistics
type CacheStats struct {
	Size    int
	MaxSize int
	Hits    uint64
	Misses  uint64
	HitRate float64
}

// calculateHitRate calculates the cache hit rate (lock held)
func (c *Cache) calculateHitRate() float64 {
	total := c.hits + c.misses
	if total == 0 {
		return 0
	}
	return float64(c.hits) / float64(total)
}

// removeEntry removes an entry from the cache (must be called with lock held)
func (c *Cache) removeEntry(keyStr string) {
	if entry, exists := c.entries[keyStr]; exists {
		c.lruList.Remove(entry.element)
		delete(c.entries, keyStr)
	}
}

// evictLRU evicts the least recently used entry (must be called with lock held)
func (c *Cache) evictLRU() {
	backElement := c.lruList.Back()
	if backElement != nil {
		keyStr := backElement.Value.(string)
		c.lruList.Remove(backElement)
		delete(c.entries, keyStr)
	}
}
