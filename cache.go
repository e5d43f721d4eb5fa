package batch

import (
	"sync"
)

// entryKey scopes a cached result to its spec identity, so equal item keys
// from different specs never collide.
type entryKey struct {
	spec string
	key  any
}

type resultCache struct {
	data sync.Map
}

func newResultCache() *resultCache {
	return &resultCache{}
}

func (c *resultCache) Load(key entryKey) (any, bool) {
	return c.data.Load(key)
}

// LoadOrStore stores value only when no entry exists, reporting whether it
// stored.
func (c *resultCache) LoadOrStore(key entryKey, value any) bool {
	_, loaded := c.data.LoadOrStore(key, value)
	return !loaded
}

func (c *resultCache) Delete(key entryKey) {
	c.data.Delete(key)
}

func (c *resultCache) Size() int {
	count := 0
	c.data.Range(func(key, value any) bool {
		count++
		return true
	})
	return count
}

func (c *resultCache) Clear() {
	c.data.Range(func(key, value any) bool {
		c.data.Delete(key)
		return true
	})
}
