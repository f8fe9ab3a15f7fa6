package media

import (
	"sync"
	"time"
)

// SnapshotCache bounds rescan cost by holding the most recent catalog for a
// short TTL. The filesystem stays the ground truth: the TTL only debounces
// bursts of requests, and the watcher invalidates early on tree changes.
type SnapshotCache struct {
	builder *Builder
	ttl     time.Duration

	mu        sync.Mutex
	snapshot  *Catalog
	expiresAt time.Time
}

func NewSnapshotCache(builder *Builder, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{builder: builder, ttl: ttl}
}

// Get returns a current catalog snapshot, rebuilding it when the held one has
// expired. Callers hold the returned value for one logical operation.
func (c *SnapshotCache) Get() (*Catalog, error) {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snapshot != nil && now.Before(c.expiresAt) {
		return c.snapshot, nil
	}
	catalog, err := c.builder.Build()
	if err != nil {
		return nil, err
	}
	c.snapshot = catalog
	c.expiresAt = now.Add(c.ttl)
	return catalog, nil
}

// Invalidate drops the held snapshot so the next Get rescans.
func (c *SnapshotCache) Invalidate() {
	c.mu.Lock()
	c.snapshot = nil
	c.mu.Unlock()
}
