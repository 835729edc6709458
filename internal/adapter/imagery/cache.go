package imagery

import (
	"context"
	"sync"

	"github.com/Copubah/dirty-nairobi/internal/observability"
)

// availability is the inner checker the cache decorates.
type availability interface {
	Available(ctx context.Context, url string) (bool, error)
}

// CachedChecker wraps a checker with an in-memory LRU cache keyed by URL.
type CachedChecker struct {
	inner   availability
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedChecker creates a cache decorator around a checker.
func NewCachedChecker(inner availability, maxEntries int, metrics *observability.Metrics) *CachedChecker {
	return &CachedChecker{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedChecker) Available(ctx context.Context, url string) (bool, error) {
	if ok, hit := c.cache.get(url); hit {
		c.metrics.ImageCache.WithLabelValues("hit").Inc()
		return ok, nil
	}
	c.metrics.ImageCache.WithLabelValues("miss").Inc()

	ok, err := c.inner.Available(ctx, url)
	if err != nil {
		// Errors are not cached so a flaky server gets another chance.
		return ok, err
	}
	c.cache.put(url, ok)
	return ok, nil
}

// Len returns the number of cached URLs.
func (c *CachedChecker) Len() int { return c.cache.len() }

// lruCache is a simple thread-safe LRU cache of availability answers.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value bool
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (value, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.unlink(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.unlink(c.tail)
}
