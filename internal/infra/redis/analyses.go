package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/placefinder/internal/core/domain"
	"github.com/vietddude/placefinder/internal/infra/storage"
)

const (
	analysisIndexKey = "placefinder:analyses"
	// analysisRetention bounds how long history stays in Redis.
	analysisRetention = 7 * 24 * time.Hour
)

// AnalysisRepo implements storage.AnalysisRepository using Redis. Records are
// JSON strings indexed by a sorted set scored by creation time.
type AnalysisRepo struct {
	rdb *redis.Client
}

// NewAnalysisRepo creates a new Redis-backed analysis repository.
func NewAnalysisRepo(store *Store) *AnalysisRepo {
	return &AnalysisRepo{rdb: store.rdb}
}

func analysisKey(id string) string {
	return fmt.Sprintf("placefinder:analysis:%s", id)
}

func latestKey(sourceURL string) string {
	return fmt.Sprintf("placefinder:analysis_latest:%s", sourceURL)
}

// Save stores the record and indexes it.
func (r *AnalysisRepo) Save(ctx context.Context, record *domain.AnalysisRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis: %w", err)
	}

	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, analysisKey(record.ID), data, analysisRetention)
	pipe.ZAdd(ctx, analysisIndexKey, redis.Z{
		Score:  float64(record.CreatedAt.UnixMilli()),
		Member: record.ID,
	})
	pipe.Set(ctx, latestKey(record.SourceURL), record.ID, analysisRetention)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}

	// Trim index entries older than the retention window
	cutoff := time.Now().Add(-analysisRetention).UnixMilli()
	if err := r.rdb.ZRemRangeByScore(ctx, analysisIndexKey, "-inf", fmt.Sprintf("(%d", cutoff)).Err(); err != nil {
		return fmt.Errorf("failed to trim analysis index: %w", err)
	}
	return nil
}

// Get retrieves a record by ID.
func (r *AnalysisRepo) Get(ctx context.Context, id string) (*domain.AnalysisRecord, error) {
	data, err := r.rdb.Get(ctx, analysisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrAnalysisNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}

	var rec domain.AnalysisRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal analysis: %w", err)
	}
	return &rec, nil
}

// ListRecent returns the newest records first.
func (r *AnalysisRepo) ListRecent(ctx context.Context, limit int) ([]*domain.AnalysisRecord, error) {
	if limit <= 0 {
		limit = storage.DefaultListLimit
	}

	ids, err := r.rdb.ZRevRange(ctx, analysisIndexKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("zrevrange failed: %w", err)
	}

	recs := make([]*domain.AnalysisRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := r.Get(ctx, id)
		if errors.Is(err, storage.ErrAnalysisNotFound) {
			// Data expired but ID still indexed, remove it
			r.rdb.ZRem(ctx, analysisIndexKey, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// LatestForURL returns the newest record for a canonical URL.
func (r *AnalysisRepo) LatestForURL(ctx context.Context, sourceURL string) (*domain.AnalysisRecord, error) {
	id, err := r.rdb.Get(ctx, latestKey(sourceURL)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrAnalysisNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest analysis: %w", err)
	}
	return r.Get(ctx, id)
}

// DeleteOlderThan removes records created before the cutoff. Records past the
// retention window expire on their own; this drops them earlier.
func (r *AnalysisRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	cutoff := fmt.Sprintf("(%d", before.UnixMilli())
	ids, err := r.rdb.ZRangeByScore(ctx, analysisIndexKey, &redis.ZRangeBy{Min: "-inf", Max: cutoff}).Result()
	if err != nil {
		return 0, fmt.Errorf("zrangebyscore failed: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = analysisKey(id)
	}

	pipe := r.rdb.TxPipeline()
	pipe.Del(ctx, keys...)
	pipe.ZRemRangeByScore(ctx, analysisIndexKey, "-inf", cutoff)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to prune analyses: %w", err)
	}
	return int64(len(ids)), nil
}
