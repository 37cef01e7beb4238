package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// QueryKey derives the cache key for a query within a document scope.
// The query is lowercased and stripped of leading/trailing whitespace before
// hashing, so "What is AI?" and " what is ai? " share a key. Interior
// whitespace and punctuation are significant: queries differing only by a
// doubled space produce distinct keys.
func QueryKey(query string, documentID int64) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	h := sha256.Sum256([]byte(normalized + ":" + strconv.FormatInt(documentID, 10)))
	return hex.EncodeToString(h[:])[:16]
}
