// Package cache provides a small bounded LRU cache with per-entry TTL,
// used to keep hot schedule reads off sqlite.
package cache

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

type entry struct {
	key     string
	value   any
	expires time.Time
}

// Cache is safe for concurrent use. Expired entries are dropped lazily when
// touched, so Len may briefly overcount.
type Cache struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	order   *list.List // front = most recent
	items   map[string]*list.Element

	now func() time.Time // swapped in tests
}

func New(maxSize int, ttl time.Duration) *Cache {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Cache{
		maxSize: maxSize,
		ttl:     ttl,
		order:   list.New(),
		items:   make(map[string]*list.Element),
		now:     time.Now,
	}
}

// Get returns the cached value and whether it was present and fresh. An
// expired entry counts as a miss and is removed.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*entry)
	if c.now().After(e.expires) {
		c.remove(el)
		return nil, false
	}
	c.order.MoveToFront(el)
	return e.value, true
}

// Put stores a value, refreshing recency and TTL. When full, the least
// recently used entry is evicted.
func (c *Cache) Put(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry)
		e.value = value
		e.expires = c.now().Add(c.ttl)
		c.order.MoveToFront(el)
		return
	}
	for len(c.items) >= c.maxSize {
		c.remove(c.order.Back())
	}
	el := c.order.PushFront(&entry{key: key, value: value, expires: c.now().Add(c.ttl)})
	c.items[key] = el
}

// Invalidate drops every entry whose key starts with prefix and returns the
// count. An empty prefix clears the whole cache.
func (c *Cache) Invalidate(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var victims []*list.Element
	for key, el := range c.items {
		if strings.HasPrefix(key, prefix) {
			victims = append(victims, el)
		}
	}
	for _, el := range victims {
		c.remove(el)
	}
	return len(victims)
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cache) remove(el *list.Element) {
	if el == nil {
		return
	}
	e := el.Value.(*entry)
	delete(c.items, e.key)
	c.order.Remove(el)
}
