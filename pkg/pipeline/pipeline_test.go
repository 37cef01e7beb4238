package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Jackela/ai-enhanced-pdf-scholar-sub008/pkg/cache"
)

// stubEngine counts how often the underlying engine actually runs.
type stubEngine struct {
	calls int
	err   error
}

func (s *stubEngine) Query(_ context.Context, query string, documentID int64) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return fmt.Sprintf("answer to %q for %d", query, documentID), nil
}

func setup(t *testing.T) (*stubEngine, *CachedEngine, context.Context) {
	t.Helper()
	svc, err := cache.New(cache.NewMemoryStore(), cache.DefaultConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	engine := &stubEngine{}
	return engine, NewCachedEngine(engine, svc, nil), context.Background()
}

func TestQueryCachesEngineAnswer(t *testing.T) {
	engine, cached, ctx := setup(t)

	first, err := cached.Query(ctx, "what is attention", 7)
	if err != nil {
		t.Fatal(err)
	}
	second, err := cached.Query(ctx, "what is attention", 7)
	if err != nil {
		t.Fatal(err)
	}

	if first != second {
		t.Errorf("expected identical answers, got %q and %q", first, second)
	}
	if engine.calls != 1 {
		t.Errorf("expected 1 engine call, got %d", engine.calls)
	}
}

func TestQueryEngineErrorNotCached(t *testing.T) {
	engine, cached, ctx := setup(t)
	engine.err = errors.New("index unavailable")

	if _, err := cached.Query(ctx, "what is attention", 7); err == nil {
		t.Fatal("expected engine error to propagate")
	}

	// After recovery the engine answers and its answer is cached.
	engine.err = nil
	if _, err := cached.Query(ctx, "what is attention", 7); err != nil {
		t.Fatal(err)
	}
	if _, err := cached.Query(ctx, "what is attention", 7); err != nil {
		t.Fatal(err)
	}
	if engine.calls != 3 {
		t.Errorf("expected 3 engine calls, got %d", engine.calls)
	}
}

func TestInvalidateDocumentForcesRequery(t *testing.T) {
	engine, cached, ctx := setup(t)

	if _, err := cached.Query(ctx, "what is attention", 7); err != nil {
		t.Fatal(err)
	}
	if n := cached.InvalidateDocument(ctx, 7); n != 1 {
		t.Errorf("expected 1 invalidated, got %d", n)
	}
	if _, err := cached.Query(ctx, "what is attention", 7); err != nil {
		t.Fatal(err)
	}

	if engine.calls != 2 {
		t.Errorf("expected 2 engine calls, got %d", engine.calls)
	}
}

func TestNilCachePassesThrough(t *testing.T) {
	engine := &stubEngine{}
	cached := NewCachedEngine(engine, nil, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := cached.Query(ctx, "what is attention", 7); err != nil {
			t.Fatal(err)
		}
	}
	if engine.calls != 3 {
		t.Errorf("expected every query to reach the engine, got %d calls", engine.calls)
	}
	if n := cached.InvalidateDocument(ctx, 7); n != 0 {
		t.Errorf("expected no-op invalidation, got %d", n)
	}
}
