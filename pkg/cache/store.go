package cache

import (
	"context"
	"errors"
	"time"

	"github.com/Jackela/ai-enhanced-pdf-scholar-sub008/pkg/models"
)

// ErrNotFound is returned by Store.FindByKey when no entry has the key.
var ErrNotFound = errors.New("cache entry not found")

// Store is the persistence contract the cache service runs against. Any
// backing store works as long as it keeps entries unique per key and can
// order them by access and creation time. Every method may fail; callers
// treat a failure as "the operation did not happen".
type Store interface {
	// Insert stores a new entry. Inserting a key that already exists is a
	// no-op, not an error: the first writer wins.
	Insert(ctx context.Context, entry *models.CacheEntry) error
	// Touch sets the entry's accessed_at to at and increments its access count.
	Touch(ctx context.Context, key string, at time.Time) error
	// FindByKey returns the entry with the given key, or ErrNotFound.
	FindByKey(ctx context.Context, key string) (*models.CacheEntry, error)
	// ListRecentByDocument returns up to limit entries for a document,
	// most recently accessed first.
	ListRecentByDocument(ctx context.Context, documentID int64, limit int) ([]models.CacheEntry, error)
	// ListOldestAccessed returns up to limit entry keys across all documents,
	// least recently accessed first.
	ListOldestAccessed(ctx context.Context, limit int) ([]string, error)
	// FindDuplicateKeys returns the keys of entries that share their
	// (query text, document) pair with a newer entry.
	FindDuplicateKeys(ctx context.Context) ([]string, error)
	// DeleteByDocument removes all entries for a document and reports how many.
	DeleteByDocument(ctx context.Context, documentID int64) (int64, error)
	// DeleteByKeys removes the given entries as a single transactional batch.
	DeleteByKeys(ctx context.Context, keys []string) (int64, error)
	// DeleteOlderThan removes entries created before cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	// DeleteAll removes every entry as a single transactional unit.
	DeleteAll(ctx context.Context) error
	// CountAll returns the number of stored entries.
	CountAll(ctx context.Context) (int64, error)
	// Aggregate summarizes the stored entries.
	Aggregate(ctx context.Context) (models.AggregateStats, error)
	// CountByDocument returns per-document entry counts, largest first,
	// capped at limit.
	CountByDocument(ctx context.Context, limit int) ([]models.DocumentCount, error)
	// Close releases the store's resources.
	Close() error
}
