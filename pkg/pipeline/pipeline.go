// Package pipeline plugs the query cache in front of a RAG engine.
package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/Jackela/ai-enhanced-pdf-scholar-sub008/pkg/cache"
)

// Engine answers a query against a single indexed document.
type Engine interface {
	Query(ctx context.Context, query string, documentID int64) (string, error)
}

// CachedEngine serves answers from the cache when it can and falls through
// to the wrapped engine when it cannot. A nil cache service disables caching
// and every query reaches the engine.
type CachedEngine struct {
	engine Engine
	cache  *cache.Service
	logger *zap.SugaredLogger
}

// NewCachedEngine wraps an engine with the cache service.
func NewCachedEngine(engine Engine, svc *cache.Service, logger *zap.SugaredLogger) *CachedEngine {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &CachedEngine{engine: engine, cache: svc, logger: logger}
}

// Query returns the cached answer when one exists, otherwise asks the engine
// and caches its answer. Engine errors pass through uncached.
func (e *CachedEngine) Query(ctx context.Context, query string, documentID int64) (string, error) {
	if e.cache != nil {
		if resp, ok := e.cache.Get(ctx, query, documentID); ok {
			e.logger.Debugw("query served from cache", "document_id", documentID)
			return resp, nil
		}
	}

	resp, err := e.engine.Query(ctx, query, documentID)
	if err != nil {
		return "", err
	}

	if e.cache != nil {
		e.cache.Put(ctx, query, documentID, resp)
	}
	return resp, nil
}

// InvalidateDocument drops the document's cached answers, typically after its
// content or index changed. Returns how many entries were removed.
func (e *CachedEngine) InvalidateDocument(ctx context.Context, documentID int64) int64 {
	if e.cache == nil {
		return 0
	}
	return e.cache.InvalidateDocument(ctx, documentID)
}
