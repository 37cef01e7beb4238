package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Backend != "sqlite" {
		t.Errorf("expected sqlite backend, got %s", cfg.Backend)
	}
	if cfg.DBPath != "scholarcache.db" {
		t.Errorf("expected scholarcache.db, got %s", cfg.DBPath)
	}
	if cfg.Cache.MaxEntries != 1000 {
		t.Errorf("expected 1000 max entries, got %d", cfg.Cache.MaxEntries)
	}
	if cfg.Cache.TTLHours != 24 {
		t.Errorf("expected 24h TTL, got %g", cfg.Cache.TTLHours)
	}
	if cfg.Cache.SimilarityThreshold != 0.85 {
		t.Errorf("expected 0.85 threshold, got %g", cfg.Cache.SimilarityThreshold)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_REDIS_PASSWORD", "s3cret")

	content := `
backend: redis
db_path: "test.db"
redis:
  addr: "redis.internal:6380"
  password: ${TEST_REDIS_PASSWORD}
  db: 2
cache:
  max_entries: 500
  ttl_hours: 12
  similarity_threshold: 0.9
`
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Backend != "redis" {
		t.Errorf("expected redis backend, got %s", cfg.Backend)
	}
	if cfg.Redis.Addr != "redis.internal:6380" {
		t.Errorf("expected redis.internal:6380, got %s", cfg.Redis.Addr)
	}
	if cfg.Redis.Password != "s3cret" {
		t.Errorf("env var not expanded: got %s", cfg.Redis.Password)
	}
	if cfg.Redis.DB != 2 {
		t.Errorf("expected db 2, got %d", cfg.Redis.DB)
	}
	if cfg.Cache.MaxEntries != 500 {
		t.Errorf("expected 500 max entries, got %d", cfg.Cache.MaxEntries)
	}
	if cfg.Cache.TTLHours != 12 {
		t.Errorf("expected 12h TTL, got %g", cfg.Cache.TTLHours)
	}

	// Knobs absent from the file keep their defaults.
	if cfg.Cache.CandidateWindow != 50 {
		t.Errorf("expected default candidate window, got %d", cfg.Cache.CandidateWindow)
	}
	if cfg.Redis.Prefix != "ragcache" {
		t.Errorf("expected default prefix, got %s", cfg.Redis.Prefix)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for missing file")
	}
}
