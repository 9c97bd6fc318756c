package telemetry

import (
	"github.com/Borislavv/go-ash-mirror/cache"
	"github.com/Borislavv/go-ash-mirror/internal/purger"
)

type sampler struct {
	trackers func() []cache.Tracker
	purger   purger.Purger
}

func newSampler(trackers func() []cache.Tracker, p purger.Purger) sampler {
	return sampler{trackers: trackers, purger: p}
}

// snapshot holds cumulative counters (monotonic) keyed by cache name.
type snapshot struct {
	caches map[string]cache.Metrics

	purgeScans int64
	purgeHits  int64
	purged     int64
}

func (s sampler) snapshot() snapshot {
	trackers := s.trackers()
	snap := snapshot{caches: make(map[string]cache.Metrics, len(trackers))}
	for _, t := range trackers {
		snap.caches[t.Name()] = t.Metrics()
	}
	snap.purgeScans, snap.purgeHits, snap.purged = s.purger.Metrics()
	return snap
}

// deltaSnapshot converts cumulative snapshots to per-interval deltas.
// If counters reset (cur < prev), it treats cur as the delta.
func deltaSnapshot(prev, cur snapshot) snapshot {
	d := snapshot{
		caches:     make(map[string]cache.Metrics, len(cur.caches)),
		purgeScans: delta(prev.purgeScans, cur.purgeScans),
		purgeHits:  delta(prev.purgeHits, cur.purgeHits),
		purged:     delta(prev.purged, cur.purged),
	}
	for name, m := range cur.caches {
		d.caches[name] = deltaMetrics(prev.caches[name], m)
	}
	return d
}

func deltaMetrics(prev, cur cache.Metrics) cache.Metrics {
	return cache.Metrics{
		Hits:      delta(prev.Hits, cur.Hits),
		Misses:    delta(prev.Misses, cur.Misses),
		Created:   delta(prev.Created, cur.Created),
		Updated:   delta(prev.Updated, cur.Updated),
		Unchanged: delta(prev.Unchanged, cur.Unchanged),
		Revived:   delta(prev.Revived, cur.Revived),
		Recycled:  delta(prev.Recycled, cur.Recycled),
		Purged:    delta(prev.Purged, cur.Purged),
		Evicted:   delta(prev.Evicted, cur.Evicted),
	}
}

func delta(prev, cur int64) int64 {
	if cur >= prev {
		return cur - prev
	}
	return cur
}
