package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/Jackela/ai-enhanced-pdf-scholar-sub008/pkg/cache"
	"github.com/Jackela/ai-enhanced-pdf-scholar-sub008/pkg/models"
)

// Config selects the Redis server and key namespace.
type Config struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// Store persists cache entries in Redis so multiple pipeline workers can
// share one cache. Each entry lives in a hash; sorted sets keyed on access
// and creation time provide the orderings the engine asks for.
//
// Scan-shaped operations (Aggregate, FindDuplicateKeys) walk every entry.
// They stay cheap because capacity enforcement bounds the entry count.
type Store struct {
	client *goredis.Client
	prefix string
}

var _ cache.Store = (*Store)(nil)

// entryRecord is the immutable part of an entry, msgpack-encoded into the
// hash's v field. Access time and count live in separate hash fields so a
// touch never rewrites the blob.
type entryRecord struct {
	Key            string `msgpack:"k"`
	QueryText      string `msgpack:"q"`
	DocumentID     int64  `msgpack:"d"`
	Response       string `msgpack:"r"`
	CreatedAt      int64  `msgpack:"c"`
	QueryLength    int    `msgpack:"ql"`
	ResponseLength int    `msgpack:"rl"`
}

// Sorted-set scores are unix microseconds: exact in a float64 score for the
// next couple of centuries, unlike nanoseconds.
func scoreOf(t time.Time) float64 { return float64(t.UnixMicro()) }

func timeOf(micro int64) time.Time { return time.UnixMicro(micro).UTC() }

// New connects to Redis and verifies the server is reachable.
func New(cfg Config) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "ragcache"
	}
	return &Store{client: client, prefix: prefix}, nil
}

func (s *Store) entryKey(key string) string { return s.prefix + ":entry:" + key }

func (s *Store) docKey(documentID int64) string {
	return s.prefix + ":doc:" + strconv.FormatInt(documentID, 10)
}

func (s *Store) accessKey() string  { return s.prefix + ":access" }
func (s *Store) createdKey() string { return s.prefix + ":created" }
func (s *Store) docsKey() string    { return s.prefix + ":docs" }

func (s *Store) Insert(ctx context.Context, entry *models.CacheEntry) error {
	blob, err := msgpack.Marshal(entryRecord{
		Key:            entry.Key,
		QueryText:      entry.QueryText,
		DocumentID:     entry.DocumentID,
		Response:       entry.Response,
		CreatedAt:      entry.CreatedAt.UnixMicro(),
		QueryLength:    entry.QueryLength,
		ResponseLength: entry.ResponseLength,
	})
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	k := s.entryKey(entry.Key)
	created, err := s.client.HSetNX(ctx, k, "v", blob).Result()
	if err != nil {
		return fmt.Errorf("insert cache entry: %w", err)
	}
	if !created {
		return nil
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, k,
		"d", entry.DocumentID,
		"at", entry.AccessedAt.UnixMicro(),
		"n", entry.AccessCount,
	)
	pipe.ZAdd(ctx, s.accessKey(), goredis.Z{Score: scoreOf(entry.AccessedAt), Member: entry.Key})
	pipe.ZAdd(ctx, s.createdKey(), goredis.Z{Score: scoreOf(entry.CreatedAt), Member: entry.Key})
	pipe.ZAdd(ctx, s.docKey(entry.DocumentID), goredis.Z{Score: scoreOf(entry.AccessedAt), Member: entry.Key})
	pipe.SAdd(ctx, s.docsKey(), entry.DocumentID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("index cache entry: %w", err)
	}
	return nil
}

func (s *Store) Touch(ctx context.Context, key string, accessedAt time.Time) error {
	k := s.entryKey(key)
	doc, err := s.client.HGet(ctx, k, "d").Int64()
	if errors.Is(err, goredis.Nil) {
		return cache.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("touch cache entry: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, k, "at", accessedAt.UnixMicro())
	pipe.HIncrBy(ctx, k, "n", 1)
	pipe.ZAdd(ctx, s.accessKey(), goredis.Z{Score: scoreOf(accessedAt), Member: key})
	pipe.ZAdd(ctx, s.docKey(doc), goredis.Z{Score: scoreOf(accessedAt), Member: key})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("touch cache entry: %w", err)
	}
	return nil
}

func (s *Store) FindByKey(ctx context.Context, key string) (*models.CacheEntry, error) {
	vals, err := s.client.HMGet(ctx, s.entryKey(key), "v", "at", "n").Result()
	if err != nil {
		return nil, fmt.Errorf("find cache entry: %w", err)
	}
	e, err := decodeEntry(vals)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) ListRecentByDocument(ctx context.Context, documentID int64, limit int) ([]models.CacheEntry, error) {
	keys, err := s.client.ZRevRange(ctx, s.docKey(documentID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list recent entries: %w", err)
	}
	return s.fetchEntries(ctx, keys)
}

func (s *Store) ListOldestAccessed(ctx context.Context, limit int) ([]string, error) {
	keys, err := s.client.ZRange(ctx, s.accessKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list oldest entries: %w", err)
	}
	return keys, nil
}

// FindDuplicateKeys walks every document's entries and reports those shadowed
// by a newer entry for the same verbatim query. Creation time decides the
// survivor, key order breaking exact ties.
func (s *Store) FindDuplicateKeys(ctx context.Context) ([]string, error) {
	docs, err := s.client.SMembers(ctx, s.docsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("find duplicate entries: %w", err)
	}

	var stale []string
	for _, doc := range docs {
		id, err := strconv.ParseInt(doc, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("find duplicate entries: bad document id %q", doc)
		}
		keys, err := s.client.ZRange(ctx, s.docKey(id), 0, -1).Result()
		if err != nil {
			return nil, fmt.Errorf("find duplicate entries: %w", err)
		}
		entries, err := s.fetchEntries(ctx, keys)
		if err != nil {
			return nil, err
		}

		newest := make(map[string]models.CacheEntry)
		for _, e := range entries {
			best, ok := newest[e.QueryText]
			if !ok || e.CreatedAt.After(best.CreatedAt) ||
				(e.CreatedAt.Equal(best.CreatedAt) && e.Key > best.Key) {
				newest[e.QueryText] = e
			}
		}
		for _, e := range entries {
			if newest[e.QueryText].Key != e.Key {
				stale = append(stale, e.Key)
			}
		}
	}
	return stale, nil
}

func (s *Store) DeleteByDocument(ctx context.Context, documentID int64) (int64, error) {
	keys, err := s.client.ZRange(ctx, s.docKey(documentID), 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("delete document entries: %w", err)
	}

	pipe := s.client.TxPipeline()
	var dels []*goredis.IntCmd
	for _, key := range keys {
		dels = append(dels, pipe.Del(ctx, s.entryKey(key)))
		pipe.ZRem(ctx, s.accessKey(), key)
		pipe.ZRem(ctx, s.createdKey(), key)
	}
	pipe.Del(ctx, s.docKey(documentID))
	pipe.SRem(ctx, s.docsKey(), documentID)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("delete document entries: %w", err)
	}

	var n int64
	for _, del := range dels {
		n += del.Val()
	}
	return n, nil
}

func (s *Store) DeleteByKeys(ctx context.Context, keys []string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	// Per-entry document ids first, so the doc indexes shrink too.
	readPipe := s.client.Pipeline()
	docCmds := make([]*goredis.StringCmd, len(keys))
	for i, key := range keys {
		docCmds[i] = readPipe.HGet(ctx, s.entryKey(key), "d")
	}
	if _, err := readPipe.Exec(ctx); err != nil && !errors.Is(err, goredis.Nil) {
		return 0, fmt.Errorf("delete cache entries: %w", err)
	}

	pipe := s.client.TxPipeline()
	var dels []*goredis.IntCmd
	for i, key := range keys {
		dels = append(dels, pipe.Del(ctx, s.entryKey(key)))
		pipe.ZRem(ctx, s.accessKey(), key)
		pipe.ZRem(ctx, s.createdKey(), key)
		if doc, err := docCmds[i].Int64(); err == nil {
			pipe.ZRem(ctx, s.docKey(doc), key)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("delete cache entries: %w", err)
	}

	var n int64
	for _, del := range dels {
		n += del.Val()
	}
	return n, nil
}

func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	keys, err := s.client.ZRangeByScore(ctx, s.createdKey(), &goredis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(cutoff.UnixMicro(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("delete expired entries: %w", err)
	}
	return s.DeleteByKeys(ctx, keys)
}

func (s *Store) DeleteAll(ctx context.Context) error {
	keys, err := s.client.ZRange(ctx, s.accessKey(), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	docs, err := s.client.SMembers(ctx, s.docsKey()).Result()
	if err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}

	pipe := s.client.TxPipeline()
	for _, key := range keys {
		pipe.Del(ctx, s.entryKey(key))
	}
	for _, doc := range docs {
		if id, err := strconv.ParseInt(doc, 10, 64); err == nil {
			pipe.Del(ctx, s.docKey(id))
		}
	}
	pipe.Del(ctx, s.accessKey(), s.createdKey(), s.docsKey())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

func (s *Store) CountAll(ctx context.Context) (int64, error) {
	n, err := s.client.ZCard(ctx, s.accessKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("count cache entries: %w", err)
	}
	return n, nil
}

func (s *Store) Aggregate(ctx context.Context) (models.AggregateStats, error) {
	keys, err := s.client.ZRange(ctx, s.accessKey(), 0, -1).Result()
	if err != nil {
		return models.AggregateStats{}, fmt.Errorf("aggregate cache stats: %w", err)
	}

	agg := models.AggregateStats{TotalEntries: int64(len(keys))}
	if agg.TotalEntries == 0 {
		return agg, nil
	}

	entries, err := s.fetchEntries(ctx, keys)
	if err != nil {
		return models.AggregateStats{}, err
	}

	var accessSum int64
	for _, e := range entries {
		accessSum += e.AccessCount
		agg.TotalQueryBytes += int64(e.QueryLength)
		agg.TotalResponseBytes += int64(e.ResponseLength)
		if agg.OldestCreatedAt.IsZero() || e.CreatedAt.Before(agg.OldestCreatedAt) {
			agg.OldestCreatedAt = e.CreatedAt
		}
		if e.AccessedAt.After(agg.NewestAccessedAt) {
			agg.NewestAccessedAt = e.AccessedAt
		}
	}
	agg.TotalEntries = int64(len(entries))
	if agg.TotalEntries > 0 {
		agg.AverageAccessCount = float64(accessSum) / float64(agg.TotalEntries)
	}
	return agg, nil
}

func (s *Store) CountByDocument(ctx context.Context, limit int) ([]models.DocumentCount, error) {
	docs, err := s.client.SMembers(ctx, s.docsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("count entries by document: %w", err)
	}

	pipe := s.client.Pipeline()
	cards := make([]*goredis.IntCmd, len(docs))
	ids := make([]int64, len(docs))
	for i, doc := range docs {
		id, err := strconv.ParseInt(doc, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("count entries by document: bad document id %q", doc)
		}
		ids[i] = id
		cards[i] = pipe.ZCard(ctx, s.docKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("count entries by document: %w", err)
	}

	counts := make([]models.DocumentCount, 0, len(docs))
	for i := range docs {
		if n := cards[i].Val(); n > 0 {
			counts = append(counts, models.DocumentCount{DocumentID: ids[i], Entries: n})
		}
	}
	sortDocumentCounts(counts)
	if limit > 0 && len(counts) > limit {
		counts = counts[:limit]
	}
	return counts, nil
}

// Close releases the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// fetchEntries loads entries for the given keys in one pipeline round trip,
// silently skipping keys deleted since they were listed.
func (s *Store) fetchEntries(ctx context.Context, keys []string) ([]models.CacheEntry, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*goredis.SliceCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.HMGet(ctx, s.entryKey(key), "v", "at", "n")
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("fetch cache entries: %w", err)
	}

	entries := make([]models.CacheEntry, 0, len(keys))
	for _, cmd := range cmds {
		e, err := decodeEntry(cmd.Val())
		if errors.Is(err, cache.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// decodeEntry rebuilds an entry from the v, at and n hash fields.
func decodeEntry(vals []any) (models.CacheEntry, error) {
	if len(vals) != 3 || vals[0] == nil {
		return models.CacheEntry{}, cache.ErrNotFound
	}
	blob, ok := vals[0].(string)
	if !ok {
		return models.CacheEntry{}, fmt.Errorf("decode cache entry: unexpected value type %T", vals[0])
	}

	var rec entryRecord
	if err := msgpack.Unmarshal([]byte(blob), &rec); err != nil {
		return models.CacheEntry{}, fmt.Errorf("decode cache entry: %w", err)
	}

	e := models.CacheEntry{
		Key:            rec.Key,
		QueryText:      rec.QueryText,
		DocumentID:     rec.DocumentID,
		Response:       rec.Response,
		CreatedAt:      timeOf(rec.CreatedAt),
		AccessedAt:     timeOf(rec.CreatedAt),
		AccessCount:    1,
		QueryLength:    rec.QueryLength,
		ResponseLength: rec.ResponseLength,
	}
	if at, ok := vals[1].(string); ok {
		if micro, err := strconv.ParseInt(at, 10, 64); err == nil {
			e.AccessedAt = timeOf(micro)
		}
	}
	if n, ok := vals[2].(string); ok {
		if count, err := strconv.ParseInt(n, 10, 64); err == nil {
			e.AccessCount = count
		}
	}
	return e, nil
}

func sortDocumentCounts(counts []models.DocumentCount) {
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Entries != counts[j].Entries {
			return counts[i].Entries > counts[j].Entries
		}
		return counts[i].DocumentID < counts[j].DocumentID
	})
}
