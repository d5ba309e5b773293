package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/placefinder/internal/core/domain"
)

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// Enabled reports whether a remote tier is configured.
func (c Config) Enabled() bool {
	return c.URL != ""
}

// Store is the remote cache tier backed by Redis string keys with TTL.
type Store struct {
	rdb *redis.Client
}

// NewStore creates a store. The connection is not checked here; callers
// Ping before relying on it.
func NewStore(cfg Config) (*Store, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	return NewStoreFromClient(redis.NewClient(opts)), nil
}

// NewStoreFromClient wraps an existing client.
func NewStoreFromClient(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// Get returns the entry for key with its remaining TTL, or nil on a miss.
func (s *Store) Get(ctx context.Context, key string) (*domain.CacheEntry, error) {
	pipe := s.rdb.Pipeline()
	getCmd := pipe.Get(ctx, key)
	ttlCmd := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get failed: %w", err)
	}

	val, err := getCmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get failed: %w", err)
	}

	// -1 (no expiry) and -2 (gone) come back as raw negative durations
	ttl := ttlCmd.Val()
	if ttl < 0 {
		ttl = 0
	}

	return &domain.CacheEntry{
		Key:      key,
		Value:    val,
		StoredAt: time.Now(),
		TTL:      ttl,
	}, nil
}

// Set stores the entry value with its TTL.
func (s *Store) Set(ctx context.Context, entry domain.CacheEntry) error {
	if err := s.rdb.Set(ctx, entry.Key, entry.Value, entry.TTL).Err(); err != nil {
		return fmt.Errorf("set failed: %w", err)
	}
	return nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("del failed: %w", err)
	}
	return nil
}
