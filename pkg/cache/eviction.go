package cache

import (
	"context"
	"time"
)

// evictionSlack is how many entries beyond the overshoot a capacity pass
// removes. Deleting a little extra keeps sustained insert pressure from
// triggering an eviction on every single put.
const evictionSlack = 100

// evictor enforces the TTL and maximum-entry-count policies against the store.
type evictor struct {
	store      Store
	maxEntries int64
	ttl        time.Duration
}

// expire deletes entries whose creation time is past the TTL, measured from
// now, and reports how many were removed.
func (e *evictor) expire(ctx context.Context, now time.Time) (int64, error) {
	return e.store.DeleteOlderThan(ctx, now.Add(-e.ttl))
}

// enforceCapacity deletes the least recently accessed entries when the store
// holds more than maxEntries. It removes the overshoot plus evictionSlack in
// one batch; with few stored entries that can empty the store entirely, which
// is acceptable for a cache.
func (e *evictor) enforceCapacity(ctx context.Context) (int64, error) {
	count, err := e.store.CountAll(ctx)
	if err != nil {
		return 0, err
	}
	if count <= e.maxEntries {
		return 0, nil
	}

	toRemove := count - e.maxEntries + evictionSlack
	keys, err := e.store.ListOldestAccessed(ctx, int(toRemove))
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	return e.store.DeleteByKeys(ctx, keys)
}

// removeDuplicates deletes every entry that shares its (query text, document)
// pair with a newer entry, keeping only the most recently created one per
// pair. Duplicates accumulate when entries were written under an older key
// derivation or raced past the insert-time existence check.
func (e *evictor) removeDuplicates(ctx context.Context) (int64, error) {
	keys, err := e.store.FindDuplicateKeys(ctx)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	return e.store.DeleteByKeys(ctx, keys)
}
