package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Jackela/ai-enhanced-pdf-scholar-sub008/pkg/models"
)

// MemoryStore is an in-process Store backed by a map. It is safe for
// concurrent use and is the backend of choice for tests and single-shot
// tooling that has no database at hand.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	seq     int64
}

// memoryEntry pairs an entry with its insertion sequence so ordering ties
// resolve the way a rowid would.
type memoryEntry struct {
	models.CacheEntry
	seq int64
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*memoryEntry)}
}

func (m *MemoryStore) Insert(_ context.Context, entry *models.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[entry.Key]; ok {
		return nil
	}
	m.seq++
	m.entries[entry.Key] = &memoryEntry{CacheEntry: *entry, seq: m.seq}
	return nil
}

func (m *MemoryStore) Touch(_ context.Context, key string, accessedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return ErrNotFound
	}
	e.AccessedAt = accessedAt
	e.AccessCount++
	return nil
}

func (m *MemoryStore) FindByKey(_ context.Context, key string) (*models.CacheEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := e.CacheEntry
	return &out, nil
}

func (m *MemoryStore) ListRecentByDocument(_ context.Context, documentID int64, limit int) ([]models.CacheEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matched []*memoryEntry
	for _, e := range m.entries {
		if e.DocumentID == documentID {
			matched = append(matched, e)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].AccessedAt.Equal(matched[j].AccessedAt) {
			return matched[i].AccessedAt.After(matched[j].AccessedAt)
		}
		return matched[i].seq > matched[j].seq
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	out := make([]models.CacheEntry, len(matched))
	for i, e := range matched {
		out[i] = e.CacheEntry
	}
	return out, nil
}

func (m *MemoryStore) ListOldestAccessed(_ context.Context, limit int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := make([]*memoryEntry, 0, len(m.entries))
	for _, e := range m.entries {
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].AccessedAt.Equal(all[j].AccessedAt) {
			return all[i].AccessedAt.Before(all[j].AccessedAt)
		}
		return all[i].seq < all[j].seq
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	keys := make([]string, len(all))
	for i, e := range all {
		keys[i] = e.Key
	}
	return keys, nil
}

func (m *MemoryStore) FindDuplicateKeys(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	type group struct {
		queryText  string
		documentID int64
	}
	byGroup := make(map[group][]*memoryEntry)
	for _, e := range m.entries {
		g := group{e.QueryText, e.DocumentID}
		byGroup[g] = append(byGroup[g], e)
	}
	var stale []string
	for _, members := range byGroup {
		if len(members) < 2 {
			continue
		}
		// Keep the newest-created entry, seq breaking ties.
		sort.Slice(members, func(i, j int) bool {
			if !members[i].CreatedAt.Equal(members[j].CreatedAt) {
				return members[i].CreatedAt.After(members[j].CreatedAt)
			}
			return members[i].seq > members[j].seq
		})
		for _, e := range members[1:] {
			stale = append(stale, e.Key)
		}
	}
	return stale, nil
}

func (m *MemoryStore) DeleteByDocument(_ context.Context, documentID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for key, e := range m.entries {
		if e.DocumentID == documentID {
			delete(m.entries, key)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) DeleteByKeys(_ context.Context, keys []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, key := range keys {
		if _, ok := m.entries[key]; ok {
			delete(m.entries, key)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for key, e := range m.entries {
		if e.CreatedAt.Before(cutoff) {
			delete(m.entries, key)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) DeleteAll(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*memoryEntry)
	return nil
}

func (m *MemoryStore) CountAll(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.entries)), nil
}

func (m *MemoryStore) Aggregate(_ context.Context) (models.AggregateStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	agg := models.AggregateStats{TotalEntries: int64(len(m.entries))}
	if agg.TotalEntries == 0 {
		return agg, nil
	}
	var accessSum int64
	for _, e := range m.entries {
		accessSum += e.AccessCount
		agg.TotalQueryBytes += int64(e.QueryLength)
		agg.TotalResponseBytes += int64(e.ResponseLength)
		if agg.OldestCreatedAt.IsZero() || e.CreatedAt.Before(agg.OldestCreatedAt) {
			agg.OldestCreatedAt = e.CreatedAt
		}
		if e.AccessedAt.After(agg.NewestAccessedAt) {
			agg.NewestAccessedAt = e.AccessedAt
		}
	}
	agg.AverageAccessCount = float64(accessSum) / float64(agg.TotalEntries)
	return agg, nil
}

func (m *MemoryStore) CountByDocument(_ context.Context, limit int) ([]models.DocumentCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	byDoc := make(map[int64]int64)
	for _, e := range m.entries {
		byDoc[e.DocumentID]++
	}
	out := make([]models.DocumentCount, 0, len(byDoc))
	for id, n := range byDoc {
		out = append(out, models.DocumentCount{DocumentID: id, Entries: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Entries != out[j].Entries {
			return out[i].Entries > out[j].Entries
		}
		return out[i].DocumentID < out[j].DocumentID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
