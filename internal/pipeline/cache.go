package pipeline

import (
	"sync"
	"time"
)

// TableCache holds grids by table id. Size is an estimate of the bytes held
// in cell text; once it exceeds the limit the whole cache is dropped at the
// next check.
type TableCache struct {
	mu        sync.Mutex
	entries   map[int]Grid
	size      int64
	limit     int64
	interval  time.Duration
	lastCheck time.Time
	now       func() time.Time
}

func NewTableCache(limit int64, interval time.Duration) *TableCache {
	return &TableCache{
		entries:  map[int]Grid{},
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

func (c *TableCache) Get(tableID int) (Grid, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.entries[tableID]
	return g, ok
}

func (c *TableCache) Put(g Grid) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.entries[g.TableID]; ok {
		c.size -= old.bytes()
	}
	c.entries[g.TableID] = g
	c.size += g.bytes()

	now := c.now()
	if c.interval > 0 && now.Sub(c.lastCheck) < c.interval {
		return
	}
	c.lastCheck = now
	if c.limit > 0 && c.size > c.limit {
		c.entries = map[int]Grid{}
		c.size = 0
	}
}

func (c *TableCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *TableCache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}
