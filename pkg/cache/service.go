package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Jackela/ai-enhanced-pdf-scholar-sub008/pkg/models"
)

// Config holds the immutable tuning knobs for a Service instance.
type Config struct {
	// MaxEntries caps how many entries the store may hold once capacity
	// enforcement has run.
	MaxEntries int `yaml:"max_entries"`
	// TTLHours is the age in hours past which an entry is stale.
	TTLHours float64 `yaml:"ttl_hours"`
	// SimilarityThreshold is the minimum token-set Jaccard score, in [0,1],
	// for the approximate-match fallback to accept a candidate.
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	// CandidateWindow bounds how many recently accessed entries the
	// approximate match scans per document.
	CandidateWindow int `yaml:"candidate_window"`
	// TopDocuments bounds the per-document distribution in statistics reports.
	TopDocuments int `yaml:"top_documents"`
}

// DefaultConfig returns the Config a Service uses out of the box.
func DefaultConfig() Config {
	return Config{
		MaxEntries:          1000,
		TTLHours:            24,
		SimilarityThreshold: 0.85,
		CandidateWindow:     50,
		TopDocuments:        10,
	}
}

// ttl returns the configured TTL as a duration.
func (c Config) ttl() time.Duration {
	return time.Duration(c.TTLHours * float64(time.Hour))
}

func (c Config) validate() error {
	if c.MaxEntries <= 0 {
		return fmt.Errorf("max_entries must be positive, got %d", c.MaxEntries)
	}
	if c.TTLHours <= 0 {
		return fmt.Errorf("ttl_hours must be positive, got %g", c.TTLHours)
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity_threshold must be in [0,1], got %g", c.SimilarityThreshold)
	}
	return nil
}

// Service is the query-result cache fronting the RAG pipeline. All work runs
// on the caller's goroutine; the service holds no locks of its own and is
// safe for concurrent use as long as the Store is.
//
// Storage trouble after construction never surfaces as an error: every
// operation degrades to its safe result (miss, false, zero) so callers can
// treat the cache as always available.
type Service struct {
	store  Store
	cfg    Config
	logger *zap.SugaredLogger
	match  matcher
	evict  evictor
	counts counters
}

// New creates a Service over the given store. A zero CandidateWindow or
// TopDocuments falls back to the default; the remaining knobs must be valid.
// A nil logger disables logging.
func New(store Store, cfg Config, logger *zap.SugaredLogger) (*Service, error) {
	if store == nil {
		return nil, errors.New("cache: store is required")
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("cache config: %w", err)
	}
	if cfg.CandidateWindow <= 0 {
		cfg.CandidateWindow = DefaultConfig().CandidateWindow
	}
	if cfg.TopDocuments <= 0 {
		cfg.TopDocuments = DefaultConfig().TopDocuments
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &Service{
		store:  store,
		cfg:    cfg,
		logger: logger,
		match:  matcher{store: store, threshold: cfg.SimilarityThreshold, window: cfg.CandidateWindow},
		evict:  evictor{store: store, maxEntries: int64(cfg.MaxEntries), ttl: cfg.ttl()},
	}, nil
}

// Get returns the cached response for a query, trying the exact key first and
// falling back to the approximate match among the document's recent entries.
// Expired entries never hit, even while they are still physically present.
// Storage errors count as misses.
func (s *Service) Get(ctx context.Context, query string, documentID int64) (string, bool) {
	s.counts.totalQueries.Add(1)

	now := time.Now().UTC()
	cutoff := now.Add(-s.cfg.ttl())

	entry, err := s.store.FindByKey(ctx, QueryKey(query, documentID))
	switch {
	case err == nil:
		if !entry.CreatedAt.Before(cutoff) {
			s.touch(ctx, entry.Key, now)
			s.counts.hits.Add(1)
			return entry.Response, true
		}
		// Stale entry still on disk: fall through to the similarity scan,
		// which skips it by the same cutoff.
	case !errors.Is(err, ErrNotFound):
		s.logger.Warnw("cache lookup failed", "document_id", documentID, "error", err)
		s.counts.misses.Add(1)
		return "", false
	}

	best, ok, err := s.match.bestMatch(ctx, query, documentID, cutoff)
	if err != nil {
		s.logger.Warnw("similarity scan failed", "document_id", documentID, "error", err)
	} else if ok {
		s.touch(ctx, best.Key, now)
		s.counts.hits.Add(1)
		return best.Response, true
	}

	s.counts.misses.Add(1)
	return "", false
}

// Put caches a response for a query. Blank queries and responses are
// rejected. A second put for the same normalized query and document is a
// no-op that still reports success, regardless of the existing entry's age.
// Returns false only when storage failed.
func (s *Service) Put(ctx context.Context, query string, documentID int64, response string) bool {
	if strings.TrimSpace(query) == "" || strings.TrimSpace(response) == "" {
		return false
	}

	key := QueryKey(query, documentID)
	_, err := s.store.FindByKey(ctx, key)
	if err == nil {
		return true
	}
	if !errors.Is(err, ErrNotFound) {
		s.logger.Warnw("cache existence check failed", "document_id", documentID, "error", err)
		return false
	}

	// Opportunistic cleanup before the insert, best effort on both counts.
	now := time.Now().UTC()
	if n, err := s.evict.enforceCapacity(ctx); err != nil {
		s.logger.Warnw("capacity enforcement failed", "error", err)
	} else {
		s.counts.evictions.Add(n)
	}
	if n, err := s.evict.expire(ctx, now); err != nil {
		s.logger.Warnw("ttl cleanup failed", "error", err)
	} else {
		s.counts.expired.Add(n)
	}

	entry := &models.CacheEntry{
		Key:            key,
		QueryText:      query,
		DocumentID:     documentID,
		Response:       response,
		CreatedAt:      now,
		AccessedAt:     now,
		AccessCount:    1,
		QueryLength:    len(query),
		ResponseLength: len(response),
	}
	if err := s.store.Insert(ctx, entry); err != nil {
		s.logger.Warnw("cache insert failed", "document_id", documentID, "error", err)
		return false
	}
	return true
}

// InvalidateDocument removes every entry cached for the document and returns
// how many were removed, 0 on storage failure.
func (s *Service) InvalidateDocument(ctx context.Context, documentID int64) int64 {
	n, err := s.store.DeleteByDocument(ctx, documentID)
	if err != nil {
		s.logger.Warnw("document invalidation failed", "document_id", documentID, "error", err)
		return 0
	}
	s.logger.Debugw("document cache invalidated", "document_id", documentID, "removed", n)
	return n
}

// Clear empties the store and, on success, resets all counters.
func (s *Service) Clear(ctx context.Context) bool {
	if err := s.store.DeleteAll(ctx); err != nil {
		s.logger.Warnw("cache clear failed", "error", err)
		return false
	}
	s.counts.reset()
	return true
}

// Optimize runs TTL cleanup, duplicate removal, and capacity enforcement, in
// that order, and reports how many entries each phase removed. A failed phase
// reports 0 and the remaining phases still run.
func (s *Service) Optimize(ctx context.Context) models.OptimizeReport {
	var report models.OptimizeReport
	now := time.Now().UTC()

	if n, err := s.evict.expire(ctx, now); err != nil {
		s.logger.Warnw("optimize: ttl cleanup failed", "error", err)
	} else {
		report.ExpiredRemoved = n
		s.counts.expired.Add(n)
	}

	if n, err := s.evict.removeDuplicates(ctx); err != nil {
		s.logger.Warnw("optimize: duplicate removal failed", "error", err)
	} else {
		report.DuplicatesRemoved = n
	}

	if n, err := s.evict.enforceCapacity(ctx); err != nil {
		s.logger.Warnw("optimize: capacity enforcement failed", "error", err)
	} else {
		report.LRURemoved = n
		s.counts.evictions.Add(n)
	}

	return report
}

// Stats reports the service counters combined with a live aggregate over the
// store. It never fails; when the store-side aggregate is unavailable the
// counters still come back and Error carries the reason.
func (s *Service) Stats(ctx context.Context) models.CacheStatistics {
	total := s.counts.totalQueries.Load()
	hits := s.counts.hits.Load()

	out := models.CacheStatistics{
		TotalQueries:   total,
		CacheHits:      hits,
		CacheMisses:    s.counts.misses.Load(),
		Evictions:      s.counts.evictions.Load(),
		ExpiredEntries: s.counts.expired.Load(),
		HitRatePercent: hitRatePercent(hits, total),
		Config: models.CacheConfigInfo{
			MaxEntries:          s.cfg.MaxEntries,
			TTLHours:            s.cfg.TTLHours,
			SimilarityThreshold: s.cfg.SimilarityThreshold,
		},
	}

	agg, err := s.store.Aggregate(ctx)
	if err != nil {
		s.logger.Warnw("aggregate stats unavailable", "error", err)
		out.Error = err.Error()
		return out
	}
	out.TotalEntries = agg.TotalEntries
	out.AverageAccessCount = agg.AverageAccessCount
	out.StorageKB = float64(agg.TotalQueryBytes+agg.TotalResponseBytes) / 1024
	out.OldestEntry = agg.OldestCreatedAt
	out.NewestAccess = agg.NewestAccessedAt

	byDoc, err := s.store.CountByDocument(ctx, s.cfg.TopDocuments)
	if err != nil {
		s.logger.Warnw("per-document counts unavailable", "error", err)
		out.Error = err.Error()
		return out
	}
	out.ByDocument = byDoc

	return out
}

// touch updates an entry's access metadata. Failures are logged and dropped:
// access counts are metrics, and losing one update never invalidates a hit.
func (s *Service) touch(ctx context.Context, key string, at time.Time) {
	if err := s.store.Touch(ctx, key, at); err != nil {
		s.logger.Debugw("access metadata update failed", "error", err)
	}
}
