package relation

import (
	"floorplan/internal/planner/entity"
	"floorplan/internal/planner/metrics"
)

// Cache holds derived data keyed by owner entity. Entries are only ever
// dropped on invalidation; the next read recomputes them.
type Cache[V any] struct {
	kind    Kind
	entries map[entity.ID]V
}

func NewCache[V any](kind Kind) *Cache[V] {
	return &Cache[V]{kind: kind, entries: make(map[entity.ID]V)}
}

func (c *Cache[V]) Get(id entity.ID) (V, bool) {
	v, ok := c.entries[id]
	if ok {
		metrics.CacheOperations.WithLabelValues(string(c.kind), "hit").Inc()
	} else {
		metrics.CacheOperations.WithLabelValues(string(c.kind), "miss").Inc()
	}
	return v, ok
}

func (c *Cache[V]) Set(id entity.ID, v V) {
	c.entries[id] = v
	metrics.CacheEntries.WithLabelValues(string(c.kind)).Set(float64(len(c.entries)))
}

// Delete drops the entry for id. Deleting an absent entry is a no-op.
func (c *Cache[V]) Delete(id entity.ID) {
	if _, ok := c.entries[id]; !ok {
		return
	}
	delete(c.entries, id)
	metrics.CacheOperations.WithLabelValues(string(c.kind), "invalidate").Inc()
	metrics.CacheEntries.WithLabelValues(string(c.kind)).Set(float64(len(c.entries)))
}

func (c *Cache[V]) Clear() {
	clear(c.entries)
	metrics.CacheEntries.WithLabelValues(string(c.kind)).Set(0)
}

func (c *Cache[V]) Len() int {
	return len(c.entries)
}
