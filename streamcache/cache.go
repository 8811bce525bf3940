// Package streamcache keeps recently resolved streams so that replaying a
// reference does not hit the resolver while its URL is still valid.
//
// The cache is bounded: at capacity the oldest-inserted entry is evicted.
// An entry whose expiry falls inside the safety margin is treated as absent
// and dropped on read.
package streamcache

import (
	"container/list"
	"sync"
	"time"

	"github.com/KoTeuKa404/pymusic/clock"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

const (
	DefaultCapacity     = 50
	DefaultSafetyMargin = 120 * time.Second
)

// Entry is a resolved stream as stored in the cache.
type Entry struct {
	Ref          string
	URL          string
	Headers      map[string]string
	ExpiresAt    mo.Option[time.Time]
	InsertedAt   time.Time
	Title        string
	Channel      string
	ThumbnailURL string
}

// Cache is a bounded, expiry-aware store of resolved streams keyed by reference.
type Cache struct {
	mu       sync.Mutex
	capacity int
	margin   time.Duration
	clock    clock.Clock
	order    *list.List
	items    map[string]*list.Element
}

// New creates a cache. Non-positive arguments fall back to the defaults.
func New(capacity int, margin time.Duration, clk clock.Clock) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if margin <= 0 {
		margin = DefaultSafetyMargin
	}
	if clk == nil {
		clk = clock.Real{}
	}

	return &Cache{
		capacity: capacity,
		margin:   margin,
		clock:    clk,
		order:    list.New(),
		items:    make(map[string]*list.Element),
	}
}

// Get returns the entry for ref unless it is absent or expires within the safety margin.
func (c *Cache) Get(ref string) mo.Option[Entry] {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[ref]
	if !ok {
		return mo.None[Entry]()
	}

	entry := el.Value.(Entry)
	if !c.fresh(entry) {
		c.remove(el)
		return mo.None[Entry]()
	}

	return mo.Some(cloneEntry(entry))
}

// Put stores entry under ref, replacing any previous entry wholesale.
func (c *Cache) Put(ref string, entry Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry.Ref = ref
	entry.InsertedAt = c.clock.Now()
	c.insert(cloneEntry(entry))
}

// Invalidate drops the entry for ref, if any.
func (c *Cache) Invalidate(ref string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[ref]; ok {
		c.remove(el)
	}
}

// Len returns the number of stored entries, including ones that would miss on Get.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Snapshot returns the fresh entries, oldest-inserted first.
func (c *Cache) Snapshot() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := make([]Entry, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		entry := el.Value.(Entry)
		if c.fresh(entry) {
			entries = append(entries, cloneEntry(entry))
		}
	}
	return entries
}

// Restore inserts previously snapshotted entries, keeping their insertion times.
// Entries that are no longer fresh are skipped.
func (c *Cache) Restore(entries []Entry) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	restored := 0
	for _, entry := range entries {
		if entry.Ref == "" || !c.fresh(entry) {
			continue
		}
		if entry.InsertedAt.IsZero() {
			entry.InsertedAt = c.clock.Now()
		}
		c.insert(cloneEntry(entry))
		restored++
	}
	return restored
}

func (c *Cache) insert(entry Entry) {
	if el, ok := c.items[entry.Ref]; ok {
		c.remove(el)
	}
	for c.order.Len() >= c.capacity {
		c.remove(c.order.Front())
	}
	c.items[entry.Ref] = c.order.PushBack(entry)
}

func (c *Cache) remove(el *list.Element) {
	entry := c.order.Remove(el).(Entry)
	delete(c.items, entry.Ref)
}

// fresh reports whether the entry stays valid past now plus the safety margin.
// Entries without an expiry never go stale.
func (c *Cache) fresh(entry Entry) bool {
	expiresAt, ok := entry.ExpiresAt.Get()
	if !ok {
		return true
	}
	return c.clock.Now().Add(c.margin).Before(expiresAt)
}

func cloneEntry(entry Entry) Entry {
	if entry.Headers != nil {
		entry.Headers = lo.Assign(entry.Headers)
	}
	return entry
}
