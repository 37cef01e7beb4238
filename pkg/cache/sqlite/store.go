package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Jackela/ai-enhanced-pdf-scholar-sub008/pkg/cache"
	"github.com/Jackela/ai-enhanced-pdf-scholar-sub008/pkg/models"
)

// Store persists cache entries in SQLite.
type Store struct {
	db *sql.DB
}

var _ cache.Store = (*Store)(nil)

const createCacheTable = `
CREATE TABLE IF NOT EXISTS rag_query_cache (
	key TEXT PRIMARY KEY,
	query_text TEXT NOT NULL,
	document_id INTEGER NOT NULL,
	response TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	accessed_at DATETIME NOT NULL,
	access_count INTEGER NOT NULL DEFAULT 1,
	query_length INTEGER NOT NULL,
	response_length INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_rag_cache_document ON rag_query_cache(document_id);
CREATE INDEX IF NOT EXISTS idx_rag_cache_accessed ON rag_query_cache(accessed_at);
CREATE INDEX IF NOT EXISTS idx_rag_cache_created ON rag_query_cache(created_at);
`

// deleteChunkSize bounds the IN clause of batched deletes, well under
// SQLite's default 999 variable limit.
const deleteChunkSize = 500

// New opens (creating if needed) the cache database at the given path.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(createCacheTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Insert(ctx context.Context, entry *models.CacheEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO rag_query_cache
		 (key, query_text, document_id, response, created_at, accessed_at, access_count, query_length, response_length)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Key, entry.QueryText, entry.DocumentID, entry.Response,
		entry.CreatedAt, entry.AccessedAt, entry.AccessCount,
		entry.QueryLength, entry.ResponseLength,
	)
	if err != nil {
		return fmt.Errorf("insert cache entry: %w", err)
	}
	return nil
}

func (s *Store) Touch(ctx context.Context, key string, accessedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE rag_query_cache SET accessed_at = ?, access_count = access_count + 1 WHERE key = ?`,
		accessedAt, key,
	)
	if err != nil {
		return fmt.Errorf("touch cache entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("touch cache entry: %w", err)
	}
	if n == 0 {
		return cache.ErrNotFound
	}
	return nil
}

func (s *Store) FindByKey(ctx context.Context, key string) (*models.CacheEntry, error) {
	var e models.CacheEntry
	err := s.db.QueryRowContext(ctx,
		`SELECT key, query_text, document_id, response, created_at, accessed_at, access_count, query_length, response_length
		 FROM rag_query_cache WHERE key = ?`,
		key,
	).Scan(&e.Key, &e.QueryText, &e.DocumentID, &e.Response,
		&e.CreatedAt, &e.AccessedAt, &e.AccessCount, &e.QueryLength, &e.ResponseLength)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cache.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find cache entry: %w", err)
	}
	return &e, nil
}

func (s *Store) ListRecentByDocument(ctx context.Context, documentID int64, limit int) ([]models.CacheEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, query_text, document_id, response, created_at, accessed_at, access_count, query_length, response_length
		 FROM rag_query_cache WHERE document_id = ?
		 ORDER BY accessed_at DESC, rowid DESC LIMIT ?`,
		documentID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list recent entries: %w", err)
	}
	defer rows.Close()

	var entries []models.CacheEntry
	for rows.Next() {
		var e models.CacheEntry
		if err := rows.Scan(&e.Key, &e.QueryText, &e.DocumentID, &e.Response,
			&e.CreatedAt, &e.AccessedAt, &e.AccessCount, &e.QueryLength, &e.ResponseLength); err != nil {
			return nil, fmt.Errorf("scan cache entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list recent entries: %w", err)
	}
	return entries, nil
}

func (s *Store) ListOldestAccessed(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM rag_query_cache ORDER BY accessed_at ASC, rowid ASC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list oldest entries: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan cache key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list oldest entries: %w", err)
	}
	return keys, nil
}

// FindDuplicateKeys returns the keys of entries shadowed by a newer entry for
// the same verbatim query and document. Creation time decides which entry
// survives, rowid breaking ties.
func (s *Store) FindDuplicateKeys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT e.key FROM rag_query_cache e
		 WHERE EXISTS (
			SELECT 1 FROM rag_query_cache n
			WHERE n.query_text = e.query_text
			  AND n.document_id = e.document_id
			  AND (n.created_at > e.created_at
			       OR (n.created_at = e.created_at AND n.rowid > e.rowid))
		 )`,
	)
	if err != nil {
		return nil, fmt.Errorf("find duplicate entries: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan duplicate key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find duplicate entries: %w", err)
	}
	return keys, nil
}

func (s *Store) DeleteByDocument(ctx context.Context, documentID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM rag_query_cache WHERE document_id = ?`, documentID,
	)
	if err != nil {
		return 0, fmt.Errorf("delete document entries: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) DeleteByKeys(ctx context.Context, keys []string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("delete cache entries: %w", err)
	}
	defer tx.Rollback()

	var total int64
	for start := 0; start < len(keys); start += deleteChunkSize {
		end := start + deleteChunkSize
		if end > len(keys) {
			end = len(keys)
		}
		chunk := keys[start:end]

		placeholders := strings.Repeat("?,", len(chunk))
		placeholders = placeholders[:len(placeholders)-1]
		args := make([]any, len(chunk))
		for i, k := range chunk {
			args[i] = k
		}

		res, err := tx.ExecContext(ctx,
			`DELETE FROM rag_query_cache WHERE key IN (`+placeholders+`)`, args...,
		)
		if err != nil {
			return 0, fmt.Errorf("delete cache entries: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("delete cache entries: %w", err)
		}
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("delete cache entries: %w", err)
	}
	return total, nil
}

func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM rag_query_cache WHERE created_at < ?`, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired entries: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM rag_query_cache`); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

func (s *Store) CountAll(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rag_query_cache`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count cache entries: %w", err)
	}
	return count, nil
}

func (s *Store) Aggregate(ctx context.Context) (models.AggregateStats, error) {
	var agg models.AggregateStats
	var avg sql.NullFloat64
	var oldest, newest sql.NullTime

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), AVG(access_count),
		        COALESCE(SUM(query_length), 0), COALESCE(SUM(response_length), 0),
		        MIN(created_at), MAX(accessed_at)
		 FROM rag_query_cache`,
	).Scan(&agg.TotalEntries, &avg, &agg.TotalQueryBytes, &agg.TotalResponseBytes, &oldest, &newest)
	if err != nil {
		return models.AggregateStats{}, fmt.Errorf("aggregate cache stats: %w", err)
	}

	if avg.Valid {
		agg.AverageAccessCount = avg.Float64
	}
	if oldest.Valid {
		agg.OldestCreatedAt = oldest.Time
	}
	if newest.Valid {
		agg.NewestAccessedAt = newest.Time
	}
	return agg, nil
}

func (s *Store) CountByDocument(ctx context.Context, limit int) ([]models.DocumentCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT document_id, COUNT(*) AS n FROM rag_query_cache
		 GROUP BY document_id ORDER BY n DESC, document_id ASC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("count entries by document: %w", err)
	}
	defer rows.Close()

	var counts []models.DocumentCount
	for rows.Next() {
		var dc models.DocumentCount
		if err := rows.Scan(&dc.DocumentID, &dc.Entries); err != nil {
			return nil, fmt.Errorf("scan document count: %w", err)
		}
		counts = append(counts, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count entries by document: %w", err)
	}
	return counts, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
