package cache

import (
	"context"
	"strings"
	"time"

	"github.com/Jackela/ai-enhanced-pdf-scholar-sub008/pkg/models"
)

// tokenize splits s into its set of lowercased whitespace-delimited tokens.
// Punctuation is kept attached to its token, so "ai?" and "ai" are distinct.
func tokenize(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// jaccard returns the intersection-over-union of the two token sets, or 0
// when both are empty.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	var shared int
	for tok := range a {
		if _, ok := b[tok]; ok {
			shared++
		}
	}
	union := len(a) + len(b) - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}

// matcher finds an approximately equivalent cached query when an exact key
// lookup misses.
type matcher struct {
	store     Store
	threshold float64
	window    int
}

// bestMatch scans the document's most recently accessed entries and returns
// the one whose stored query tokens overlap the new query the most, provided
// the best score reaches the threshold. Only a strictly greater score
// replaces the current best, so among equally good candidates the most
// recently accessed one wins. Entries created before cutoff are already
// stale and never match.
func (m *matcher) bestMatch(ctx context.Context, query string, documentID int64, cutoff time.Time) (*models.CacheEntry, bool, error) {
	candidates, err := m.store.ListRecentByDocument(ctx, documentID, m.window)
	if err != nil {
		return nil, false, err
	}

	queryTokens := tokenize(query)
	var best *models.CacheEntry
	bestScore := 0.0

	for i := range candidates {
		c := &candidates[i]
		if c.CreatedAt.Before(cutoff) {
			continue
		}
		score := jaccard(queryTokens, tokenize(c.QueryText))
		if score > bestScore {
			bestScore = score
			best = c
		}
	}

	if best == nil || bestScore < m.threshold {
		return nil, false, nil
	}
	return best, true, nil
}
