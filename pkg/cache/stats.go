package cache

import "sync/atomic"

// counters tracks cache activity for the lifetime of a Service instance.
// All fields are atomics so concurrent Get/Put callers never contend on a
// lock just to bump a metric.
type counters struct {
	totalQueries atomic.Int64
	hits         atomic.Int64
	misses       atomic.Int64
	evictions    atomic.Int64
	expired      atomic.Int64
}

func (c *counters) reset() {
	c.totalQueries.Store(0)
	c.hits.Store(0)
	c.misses.Store(0)
	c.evictions.Store(0)
	c.expired.Store(0)
}

// hitRatePercent returns hits as a percentage of all queries, 0 when no
// queries have been seen yet.
func hitRatePercent(hits, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}
