package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Jackela/ai-enhanced-pdf-scholar-sub008/pkg/models"
)

func TestMemoryStoreTieBreakOnEqualAccess(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	// Identical access times: insertion order decides.
	first := insertAt(t, s, "first query", 1, "a", now)
	second := insertAt(t, s, "second query", 1, "b", now)
	third := insertAt(t, s, "third query", 1, "c", now)

	keys, err := s.ListOldestAccessed(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if keys[0] != first.Key || keys[1] != second.Key || keys[2] != third.Key {
		t.Errorf("expected insertion order for equal access times, got %v", keys)
	}

	entries, err := s.ListRecentByDocument(ctx, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if entries[0].Key != third.Key || entries[2].Key != first.Key {
		t.Errorf("expected newest insertion first, got %q first", entries[0].QueryText)
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	e := insertAt(t, s, "what is attention", 7, "answer", time.Now().UTC())

	got, err := s.FindByKey(ctx, e.Key)
	if err != nil {
		t.Fatal(err)
	}
	got.Response = "mutated"

	again, err := s.FindByKey(ctx, e.Key)
	if err != nil {
		t.Fatal(err)
	}
	if again.Response != "answer" {
		t.Error("expected stored entry to be unaffected by caller mutation")
	}
}

func TestMemoryStoreDeleteOlderThanBoundary(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	cutoff := time.Now().UTC()

	stale := insertAt(t, s, "stale query", 1, "a", cutoff.Add(-time.Minute))
	boundary := insertAt(t, s, "boundary query", 1, "b", cutoff)

	n, err := s.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 removed, got %d", n)
	}
	if _, err := s.FindByKey(ctx, stale.Key); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected stale entry gone, got %v", err)
	}
	if _, err := s.FindByKey(ctx, boundary.Key); err != nil {
		t.Errorf("expected boundary entry to survive, got %v", err)
	}
}

func TestMemoryStoreConcurrentUse(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			query := fmt.Sprintf("question number %d", i)
			doc := int64(i % 3)
			e := &models.CacheEntry{
				Key:         QueryKey(query, doc),
				QueryText:   query,
				DocumentID:  doc,
				Response:    "answer",
				CreatedAt:   now,
				AccessedAt:  now,
				AccessCount: 1,
			}
			if err := s.Insert(ctx, e); err != nil {
				t.Errorf("insert failed: %v", err)
				return
			}
			if _, err := s.FindByKey(ctx, e.Key); err != nil {
				t.Errorf("lookup after insert failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	n, err := s.CountAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 10 {
		t.Errorf("expected 10 entries, got %d", n)
	}
}
