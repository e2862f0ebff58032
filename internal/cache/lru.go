package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRUCache is a size-bounded map of rendered payloads with optional expiry.
//
// Every Purge starts a new generation. A reader that rendered against an
// older tree passes the generation it observed to SetAt, which drops the
// write instead of resurrecting a stale payload.
type LRUCache[T any] struct {
	mu         sync.Mutex
	capacity   int
	ttl        time.Duration
	entries    map[string]*list.Element
	order      *list.List // front is most recently used
	generation uint64
	now        func() time.Time

	hits, misses, stale uint64
}

type entry[T any] struct {
	key     string
	value   T
	expires time.Time // zero: never
}

// NewLRUCache holds at most capacity entries; a zero ttl never expires.
func NewLRUCache[T any](capacity int, ttl time.Duration) *LRUCache[T] {
	return &LRUCache[T]{
		capacity: max(capacity, 1),
		ttl:      ttl,
		entries:  make(map[string]*list.Element, capacity),
		order:    list.New(),
		now:      time.Now,
	}
}

func (c *LRUCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		e := el.Value.(*entry[T])
		if !c.expiredAt(e, c.now()) {
			c.order.MoveToFront(el)
			c.hits++
			return e.value, true
		}
		c.drop(el)
	}
	c.misses++
	var zero T
	return zero, false
}

// Generation identifies the current purge epoch.
func (c *LRUCache[T]) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Set stores value in the current generation.
func (c *LRUCache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(key, value)
}

// SetAt stores value only if no Purge happened since gen was read. It
// reports whether the value was kept.
func (c *LRUCache[T]) SetAt(gen uint64, key string, value T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		c.stale++
		return false
	}
	c.put(key, value)
	return true
}

func (c *LRUCache[T]) put(key string, value T) {
	e := &entry[T]{key: key, value: value}
	if c.ttl > 0 {
		e.expires = c.now().Add(c.ttl)
	}

	if el, ok := c.entries[key]; ok {
		el.Value = e
		c.order.MoveToFront(el)
		return
	}
	c.entries[key] = c.order.PushFront(e)
	for c.order.Len() > c.capacity {
		c.drop(c.order.Back())
	}
}

func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		c.drop(el)
	}
}

// Purge empties the cache and starts a new generation.
func (c *LRUCache[T]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
	c.order.Init()
	c.generation++
}

// CleanExpired removes expired entries and returns how many went.
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if c.expiredAt(el.Value.(*entry[T]), now) {
			c.drop(el)
			removed++
		}
		el = prev
	}
	return removed
}

func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats are counters since creation. stale counts SetAt calls refused
// because a Purge overtook them.
func (c *LRUCache[T]) Stats() (hits, misses, stale uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, c.stale
}

func (c *LRUCache[T]) expiredAt(e *entry[T], now time.Time) bool {
	return !e.expires.IsZero() && now.After(e.expires)
}

func (c *LRUCache[T]) drop(el *list.Element) {
	delete(c.entries, el.Value.(*entry[T]).key)
	c.order.Remove(el)
}
