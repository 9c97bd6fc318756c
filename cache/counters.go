package cache

import "sync/atomic"

// Metrics is a point-in-time copy of the cumulative cache counters.
type Metrics struct {
	Hits      int64
	Misses    int64
	Created   int64
	Updated   int64
	Unchanged int64
	Revived   int64
	Recycled  int64
	Purged    int64
	Evicted   int64
}

// Counters accumulate cache activity. Caches sharing one Counters report combined metrics.
type Counters struct {
	hits      atomic.Int64
	misses    atomic.Int64
	created   atomic.Int64
	updated   atomic.Int64
	unchanged atomic.Int64
	revived   atomic.Int64
	recycled  atomic.Int64
	purged    atomic.Int64
	evicted   atomic.Int64
}

func NewCounters() *Counters {
	return &Counters{}
}

func (c *Counters) Metrics() Metrics { return c.snapshot() }

func (c *Counters) snapshot() Metrics {
	return Metrics{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Created:   c.created.Load(),
		Updated:   c.updated.Load(),
		Unchanged: c.unchanged.Load(),
		Revived:   c.revived.Load(),
		Recycled:  c.recycled.Load(),
		Purged:    c.purged.Load(),
		Evicted:   c.evicted.Load(),
	}
}

// Add returns the field-wise sum of m and o.
func (m Metrics) Add(o Metrics) Metrics {
	return Metrics{
		Hits:      m.Hits + o.Hits,
		Misses:    m.Misses + o.Misses,
		Created:   m.Created + o.Created,
		Updated:   m.Updated + o.Updated,
		Unchanged: m.Unchanged + o.Unchanged,
		Revived:   m.Revived + o.Revived,
		Recycled:  m.Recycled + o.Recycled,
		Purged:    m.Purged + o.Purged,
		Evicted:   m.Evicted + o.Evicted,
	}
}
