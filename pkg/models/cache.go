package models

import "time"

// CacheEntry stores one cached RAG response for a document-scoped query.
// The payload fields (Key, QueryText, DocumentID, Response) never change
// after insert; only the access metadata does.
type CacheEntry struct {
	Key            string    `json:"key"`
	QueryText      string    `json:"query_text"`
	DocumentID     int64     `json:"document_id"`
	Response       string    `json:"response"`
	CreatedAt      time.Time `json:"created_at"`
	AccessedAt     time.Time `json:"accessed_at"`
	AccessCount    int64     `json:"access_count"`
	QueryLength    int       `json:"query_length"`
	ResponseLength int       `json:"response_length"`
}

// AggregateStats summarizes the stored entries in one pass over the store.
type AggregateStats struct {
	TotalEntries       int64     `json:"total_entries"`
	AverageAccessCount float64   `json:"average_access_count"`
	TotalQueryBytes    int64     `json:"total_query_bytes"`
	TotalResponseBytes int64     `json:"total_response_bytes"`
	OldestCreatedAt    time.Time `json:"oldest_created_at"`
	NewestAccessedAt   time.Time `json:"newest_accessed_at"`
}

// DocumentCount reports how many entries a single document holds.
type DocumentCount struct {
	DocumentID int64 `json:"document_id"`
	Entries    int64 `json:"entries"`
}

// OptimizeReport holds per-phase removal counts from a cache optimize run.
type OptimizeReport struct {
	ExpiredRemoved    int64 `json:"expired_removed"`
	DuplicatesRemoved int64 `json:"duplicates_removed"`
	LRURemoved        int64 `json:"lru_removed"`
}

// CacheConfigInfo echoes the immutable service configuration in reports.
type CacheConfigInfo struct {
	MaxEntries          int     `json:"max_entries"`
	TTLHours            float64 `json:"ttl_hours"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
}

// CacheStatistics combines the service's in-memory counters with a live
// aggregate over the store. Error is set when the store-side half of the
// report was unavailable.
type CacheStatistics struct {
	TotalQueries       int64           `json:"total_queries"`
	CacheHits          int64           `json:"cache_hits"`
	CacheMisses        int64           `json:"cache_misses"`
	Evictions          int64           `json:"evictions"`
	ExpiredEntries     int64           `json:"expired_entries"`
	HitRatePercent     float64         `json:"hit_rate_percent"`
	TotalEntries       int64           `json:"total_entries"`
	AverageAccessCount float64         `json:"average_access_count"`
	StorageKB          float64         `json:"storage_kb"`
	OldestEntry        time.Time       `json:"oldest_entry"`
	NewestAccess       time.Time       `json:"newest_access"`
	ByDocument         []DocumentCount `json:"by_document,omitempty"`
	Config             CacheConfigInfo `json:"config"`
	Error              string          `json:"error,omitempty"`
}
