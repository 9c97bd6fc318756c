package purger

import "sync/atomic"

type purgerCounters struct {
	scans  atomic.Int64
	hits   atomic.Int64
	purged atomic.Int64
}

func (c *purgerCounters) snapshot() (scans, hits, purged int64) {
	return c.scans.Load(), c.hits.Load(), c.purged.Load()
}

func newPurgerCounters() *purgerCounters {
	return &purgerCounters{
		scans:  atomic.Int64{},
		hits:   atomic.Int64{},
		purged: atomic.Int64{},
	}
}
