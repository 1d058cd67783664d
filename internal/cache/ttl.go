// Package cache provides a bounded, mutex-guarded TTL cache keyed by string.
//
// Entries are replaced wholesale on Put and are fresh while
// now - CreatedAt < TTL. Reading a stale entry reports a miss but leaves
// the entry in place. When the entry cap is exceeded the entry with the
// oldest CreatedAt is evicted first.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// DefaultMaxEntries bounds a cache constructed without WithMaxEntries.
const DefaultMaxEntries = 1024

// Entry is a cached value with the time it was stored.
type Entry[V any] struct {
	Key       string
	CreatedAt time.Time
	Value     V
}

// Stats is a point-in-time view of cache activity.
type Stats struct {
	Entries   int
	Hits      uint64
	Misses    uint64
	Stale     uint64
	Evictions uint64
}

// Option configures a TTL cache.
type Option func(*options)

type options struct {
	maxEntries int
	nowFunc    func() time.Time
	onEvict    func(key string)
}

// WithMaxEntries caps the number of entries held. Values <= 0 are ignored.
func WithMaxEntries(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxEntries = n
		}
	}
}

// WithNowFunc overrides the clock for testing.
func WithNowFunc(f func() time.Time) Option {
	return func(o *options) {
		o.nowFunc = f
	}
}

// WithOnEvict registers a callback invoked (under the cache lock) for every
// capacity eviction.
func WithOnEvict(f func(key string)) Option {
	return func(o *options) {
		o.onEvict = f
	}
}

// TTL is a bounded cache of V values keyed by string. It is safe for
// concurrent use.
type TTL[V any] struct {
	ttl        time.Duration
	maxEntries int
	nowFunc    func() time.Time
	onEvict    func(key string)

	mu sync.Mutex
	// order holds *Entry[V] from newest (front) to oldest (back) CreatedAt.
	order *list.List
	items map[string]*list.Element
	stats Stats
}

// New returns a TTL cache whose entries stay fresh for ttl.
func New[V any](ttl time.Duration, opts ...Option) *TTL[V] {
	o := options{
		maxEntries: DefaultMaxEntries,
		nowFunc:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &TTL[V]{
		ttl:        ttl,
		maxEntries: o.maxEntries,
		nowFunc:    o.nowFunc,
		onEvict:    o.onEvict,
		order:      list.New(),
		items:      make(map[string]*list.Element),
	}
}

// Get returns the entry stored under key and whether it is still fresh.
// A missing key returns (nil, false). A stale entry is returned with
// fresh=false so callers can inspect it, and stays cached until replaced
// or evicted.
func (c *TTL[V]) Get(key string) (entry *Entry[V], fresh bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}

	e := el.Value.(*Entry[V])
	if c.nowFunc().Sub(e.CreatedAt) >= c.ttl {
		c.stats.Stale++
		c.stats.Misses++
		return e, false
	}

	c.stats.Hits++
	return e, true
}

// Put stores value under key with a fresh timestamp, replacing any
// previous entry.
func (c *TTL[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &Entry[V]{Key: key, CreatedAt: c.nowFunc(), Value: value}

	if el, ok := c.items[key]; ok {
		el.Value = e
		c.order.MoveToFront(el)
		return
	}

	c.items[key] = c.order.PushFront(e)
	for len(c.items) > c.maxEntries {
		c.evictOldest()
	}
}

// Delete removes key if present.
func (c *TTL[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.order.Remove(el)
		delete(c.items, key)
	}
}

// Len returns the number of entries held, fresh or stale.
func (c *TTL[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns a snapshot of cache counters.
func (c *TTL[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Entries = len(c.items)
	return s
}

// Purge drops all stale entries and returns how many were removed.
func (c *TTL[V]) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.nowFunc()
	removed := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		e := el.Value.(*Entry[V])
		if now.Sub(e.CreatedAt) >= c.ttl {
			c.order.Remove(el)
			delete(c.items, e.Key)
			removed++
		}
		el = prev
	}
	return removed
}

func (c *TTL[V]) evictOldest() {
	el := c.order.Back()
	if el == nil {
		return
	}
	e := el.Value.(*Entry[V])
	c.order.Remove(el)
	delete(c.items, e.Key)
	c.stats.Evictions++
	if c.onEvict != nil {
		c.onEvict(e.Key)
	}
}
