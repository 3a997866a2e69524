package cache

import (
	"container/list"
	"sync"
)

// MemoryCache is an in-process LRU of entries bounded by total byte size.
type MemoryCache struct {
	capacity int64
	size     int64

	items    map[Key]*list.Element
	eviction *list.List

	mu sync.Mutex

	hits, misses, evictions int64
}

type memoryItem struct {
	key   Key
	entry *Entry
	size  int64
}

// NewMemoryCache creates a cache holding at most capacity bytes.
func NewMemoryCache(capacity int64) *MemoryCache {
	return &MemoryCache{
		capacity: capacity,
		items:    make(map[Key]*list.Element),
		eviction: list.New(),
	}
}

// Get returns the entry for key and marks it most recently used.
func (c *MemoryCache) Get(key Key) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.eviction.MoveToFront(elem)
	c.hits++
	return elem.Value.(*memoryItem).entry, true
}

// Put stores an entry, evicting least recently used entries to make room.
func (c *MemoryCache) Put(key Key, e *Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	size := e.Size()
	if elem, ok := c.items[key]; ok {
		item := elem.Value.(*memoryItem)
		c.eviction.MoveToFront(elem)
		c.size += size - item.size
		item.entry = e
		item.size = size
		c.evictOverflow()
		return nil
	}

	if size > c.capacity {
		return ErrItemTooLarge
	}
	for c.size+size > c.capacity && c.eviction.Len() > 0 {
		c.evictOldest()
	}

	c.items[key] = c.eviction.PushFront(&memoryItem{key: key, entry: e, size: size})
	c.size += size
	return nil
}

// Contains reports whether key is cached without touching recency.
func (c *MemoryCache) Contains(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok
}

// Clear drops every entry.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[Key]*list.Element)
	c.eviction.Init()
	c.size = 0
}

// Stats reports the current contents and counters.
func (c *MemoryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Backend:   "memory",
		Entries:   int64(len(c.items)),
		Bytes:     c.size,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

// evictOverflow must be called with the lock held.
func (c *MemoryCache) evictOverflow() {
	for c.size > c.capacity && c.eviction.Len() > 1 {
		c.evictOldest()
	}
}

// evictOldest must be called with the lock held.
func (c *MemoryCache) evictOldest() {
	elem := c.eviction.Back()
	if elem == nil {
		return
	}
	c.eviction.Remove(elem)
	item := elem.Value.(*memoryItem)
	delete(c.items, item.key)
	c.size -= item.size
	c.evictions++
}
