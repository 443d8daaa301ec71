package uptime

import "sync"

type cacheKey struct {
	monitorID   int64
	windowHours float64
}

// Cache is the process-wide UptimeCache from spec.md §3: readers may observe
// a slightly stale value between invalidation and recomputation, which
// spec.md §5 calls acceptable.
type Cache struct {
	mu   sync.RWMutex
	vals map[cacheKey]float64
}

func NewCache() *Cache {
	return &Cache{vals: make(map[cacheKey]float64)}
}

func (c *Cache) Get(monitorID int64, windowHours float64) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.vals[cacheKey{monitorID, windowHours}]
	return v, ok
}

func (c *Cache) Set(monitorID int64, windowHours float64, v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals[cacheKey{monitorID, windowHours}] = v
}

// Invalidate drops every cached window for monitorID.
func (c *Cache) Invalidate(monitorID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.vals {
		if k.monitorID == monitorID {
			delete(c.vals, k)
		}
	}
}
