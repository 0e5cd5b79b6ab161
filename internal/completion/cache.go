package completion

import (
	"sync"
	"time"

	"github.com/zeebo/blake3"

	"github.com/leapstack-labs/sqlsense/internal/analyzer"
	"github.com/leapstack-labs/sqlsense/internal/schema"
)

// cacheKey identifies a completion result. The digest covers the whole
// document so that edits far from the cursor still miss, and the schema
// pointer changes with every applied refresh.
type cacheKey struct {
	schema  *schema.Cache
	kind    analyzer.Kind
	offset  int
	manual  bool
	loading bool
	dialect string
	digest  [32]byte
}

func newCacheKey(req Request, kind analyzer.Kind) cacheKey {
	return cacheKey{
		schema:  req.Schema,
		kind:    kind,
		offset:  req.Offset,
		manual:  req.Manual,
		loading: req.Loading,
		dialect: req.Dialect.Name,
		digest:  blake3.Sum256([]byte(req.Text)),
	}
}

type cacheEntry struct {
	items  []Item
	stored time.Time
}

// resultCache is a small TTL cache of computed completion lists. When full,
// expired entries are dropped first and then the oldest one.
type resultCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	size    int
	now     func() time.Time
	entries map[cacheKey]cacheEntry
}

func newResultCache(ttl time.Duration, size int) *resultCache {
	return &resultCache{
		ttl:     ttl,
		size:    size,
		now:     time.Now,
		entries: make(map[cacheKey]cacheEntry, size),
	}
}

func (c *resultCache) get(k cacheKey) ([]Item, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[k]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.stored) > c.ttl {
		delete(c.entries, k)
		return nil, false
	}
	return e.items, true
}

func (c *resultCache) put(k cacheKey, items []Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if _, ok := c.entries[k]; !ok && len(c.entries) >= c.size {
		c.evict(now)
	}
	c.entries[k] = cacheEntry{items: items, stored: now}
}

// evict makes room for one entry. The caller holds mu.
func (c *resultCache) evict(now time.Time) {
	var (
		oldestKey cacheKey
		oldest    time.Time
		found     bool
	)
	for k, e := range c.entries {
		if now.Sub(e.stored) > c.ttl {
			delete(c.entries, k)
			continue
		}
		if !found || e.stored.Before(oldest) {
			oldestKey, oldest, found = k, e.stored, true
		}
	}
	if found && len(c.entries) >= c.size {
		delete(c.entries, oldestKey)
	}
}

func (c *resultCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

func (c *resultCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
