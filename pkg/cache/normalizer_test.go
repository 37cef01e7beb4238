package cache

import "testing"

func TestQueryKeyNormalization(t *testing.T) {
	base := QueryKey("what is attention", 7)

	if QueryKey("What Is Attention", 7) != base {
		t.Error("expected case-insensitive keys")
	}
	if QueryKey("  what is attention\n", 7) != base {
		t.Error("expected surrounding whitespace to be ignored")
	}

	// Interior spacing and punctuation stay significant.
	if QueryKey("what  is attention", 7) == base {
		t.Error("expected interior whitespace to change the key")
	}
	if QueryKey("what is attention?", 7) == base {
		t.Error("expected punctuation to change the key")
	}
}

func TestQueryKeyDocumentScoping(t *testing.T) {
	if QueryKey("what is attention", 7) == QueryKey("what is attention", 8) {
		t.Error("expected different documents to produce different keys")
	}
}

func TestQueryKeyFormat(t *testing.T) {
	key := QueryKey("what is attention", 7)
	if len(key) != 16 {
		t.Fatalf("expected 16-character key, got %d", len(key))
	}
	for _, c := range key {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			t.Fatalf("expected lowercase hex, got %q", key)
		}
	}

	// Stable across calls.
	if QueryKey("what is attention", 7) != key {
		t.Error("expected deterministic keys")
	}
}
