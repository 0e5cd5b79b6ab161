package completion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestCache(ttl time.Duration, size int) (*resultCache, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := newResultCache(ttl, size)
	c.now = clock.now
	return c, clock
}

func TestResultCache_Expiry(t *testing.T) {
	c, clock := newTestCache(30*time.Second, 10)
	k := cacheKey{offset: 1}
	c.put(k, []Item{{Label: "a"}})

	got, ok := c.get(k)
	assert.True(t, ok)
	assert.Equal(t, "a", got[0].Label)

	clock.t = clock.t.Add(31 * time.Second)
	_, ok = c.get(k)
	assert.False(t, ok)
	assert.Equal(t, 0, c.len())
}

func TestResultCache_EvictsOldest(t *testing.T) {
	c, clock := newTestCache(time.Minute, 2)
	c.put(cacheKey{offset: 1}, nil)
	clock.t = clock.t.Add(time.Second)
	c.put(cacheKey{offset: 2}, nil)
	clock.t = clock.t.Add(time.Second)
	c.put(cacheKey{offset: 3}, nil)

	assert.Equal(t, 2, c.len())
	_, ok := c.get(cacheKey{offset: 1})
	assert.False(t, ok)
	_, ok = c.get(cacheKey{offset: 3})
	assert.True(t, ok)
}

func TestResultCache_EvictsExpiredFirst(t *testing.T) {
	c, clock := newTestCache(10*time.Second, 2)
	c.put(cacheKey{offset: 1}, nil)
	clock.t = clock.t.Add(8 * time.Second)
	c.put(cacheKey{offset: 2}, nil)
	clock.t = clock.t.Add(5 * time.Second)
	c.put(cacheKey{offset: 3}, nil)

	_, ok := c.get(cacheKey{offset: 2})
	assert.True(t, ok)
	_, ok = c.get(cacheKey{offset: 3})
	assert.True(t, ok)
}

func TestResultCache_Clear(t *testing.T) {
	c, _ := newTestCache(time.Minute, 10)
	c.put(cacheKey{offset: 1}, nil)
	c.put(cacheKey{offset: 2}, nil)
	c.clear()
	assert.Equal(t, 0, c.len())
}
