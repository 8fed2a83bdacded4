package projection

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// SnackInfo is the slice of snack data the machine projection denormalizes
// into slot entries.
type SnackInfo struct {
	Name       string
	PictureURL string
}

// SnackLookup fetches snack info from the authoritative store on cache miss.
type SnackLookup func(ctx context.Context, id uuid.UUID) (SnackInfo, error)

// SnackInfoCache is a bounded FIFO cache over SnackLookup. The synchronizer
// invalidates entries when snack update/delete events arrive; stale reads in
// between are acceptable for denormalized display fields.
type SnackInfoCache struct {
	lookup SnackLookup
	max    int

	mu      sync.Mutex
	entries map[uuid.UUID]SnackInfo
	order   []uuid.UUID
}

const defaultSnackCacheSize = 256

func NewSnackInfoCache(max int, lookup SnackLookup) *SnackInfoCache {
	if max <= 0 {
		max = defaultSnackCacheSize
	}
	return &SnackInfoCache{
		lookup:  lookup,
		max:     max,
		entries: map[uuid.UUID]SnackInfo{},
	}
}

func (c *SnackInfoCache) Get(ctx context.Context, id uuid.UUID) (SnackInfo, error) {
	c.mu.Lock()
	if info, ok := c.entries[id]; ok {
		c.mu.Unlock()
		return info, nil
	}
	c.mu.Unlock()

	info, err := c.lookup(ctx, id)
	if err != nil {
		return SnackInfo{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[id]; !ok {
		c.entries[id] = info
		c.order = append(c.order, id)
		for len(c.entries) > c.max {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
	}
	return info, nil
}

func (c *SnackInfoCache) Invalidate(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[id]; !ok {
		return
	}
	delete(c.entries, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *SnackInfoCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
