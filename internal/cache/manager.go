// Package cache stores extraction results across an in-process tier (L1) and
// an optional remote tier (L2).
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vietddude/placefinder/internal/core/domain"
	"github.com/vietddude/placefinder/internal/metrics"
)

// Store is the remote tier. Get returns a nil entry and a nil error on a
// miss; the returned entry's TTL is its remaining lifetime.
type Store interface {
	Get(ctx context.Context, key string) (*domain.CacheEntry, error)
	Set(ctx context.Context, entry domain.CacheEntry) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// Config holds cache settings.
type Config struct {
	L1MaxEntries  int           `yaml:"l1_max_entries"`
	L1TTL         time.Duration `yaml:"l1_ttl"` // upper bound for L1 entries, 0 means the entry TTL
	RemoteTimeout time.Duration `yaml:"remote_timeout"`
}

const (
	defaultL1MaxEntries  = 1000
	defaultRemoteTimeout = 500 * time.Millisecond
	// promotionTTL applies to promoted entries that carry no expiry in L2.
	promotionTTL = 5 * time.Minute
)

// Manager is the tiered cache. Remote failures are logged and treated as
// misses or no-op writes; Get and Set never fail because of the remote tier.
type Manager struct {
	cfg    Config
	l1     *memoryTier
	remote Store

	remoteReady atomic.Bool
	closeOnce   sync.Once
	stats       counters
	now         func() time.Time
}

// NewManager creates a manager. remote may be nil for an L1-only cache.
// The remote tier is unused until Initialize succeeds.
func NewManager(cfg Config, remote Store) *Manager {
	if cfg.L1MaxEntries <= 0 {
		cfg.L1MaxEntries = defaultL1MaxEntries
	}
	if cfg.RemoteTimeout <= 0 {
		cfg.RemoteTimeout = defaultRemoteTimeout
	}
	return &Manager{
		cfg:    cfg,
		l1:     newMemoryTier(cfg.L1MaxEntries),
		remote: remote,
		now:    time.Now,
	}
}

// Initialize checks the remote tier. On failure the manager keeps serving
// from L1 only and the error is returned for the caller to log.
func (m *Manager) Initialize(ctx context.Context) error {
	if m.remote == nil {
		slog.Info("Remote cache tier disabled, using in-process cache only")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := m.remote.Ping(ctx); err != nil {
		m.remoteReady.Store(false)
		return fmt.Errorf("remote cache unavailable: %w", err)
	}
	m.remoteReady.Store(true)
	slog.Info("Remote cache tier connected")
	return nil
}

// Close releases the remote tier. Safe to call more than once and after a
// failed Initialize.
func (m *Manager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		m.remoteReady.Store(false)
		if m.remote != nil {
			err = m.remote.Close()
		}
	})
	return err
}

// Get looks up key in L1, then L2. An L2 hit is copied into L1 before it is
// returned, unless a Set or Invalidate for the key landed during the remote
// read.
func (m *Manager) Get(ctx context.Context, key string) (*domain.PlaceExtractionResult, bool) {
	m.stats.total.Add(1)
	now := m.now()

	if entry, ok := m.l1.get(key, now); ok {
		if result, err := decode(entry.Value); err == nil {
			m.stats.hits.Add(1)
			m.stats.l1Hits.Add(1)
			metrics.CacheRequests.WithLabelValues("l1").Inc()
			return result, true
		}
		m.l1.delete(key)
	}

	gen := m.l1.generation(key)
	if entry := m.remoteGet(ctx, key); entry != nil {
		result, err := decode(entry.Value)
		if err != nil {
			m.l1.release()
			slog.Warn("Dropping undecodable remote cache entry", "key", key, "error", err)
		} else {
			if !m.l1.setIfGeneration(m.l1Entry(key, entry.Value, entry.TTL, now), gen) {
				slog.Debug("Skipped promotion of a key changed during the remote read", "key", key)
			}
			m.stats.hits.Add(1)
			m.stats.l2Hits.Add(1)
			metrics.CacheRequests.WithLabelValues("l2").Inc()
			return result, true
		}
	} else {
		m.l1.release()
	}

	m.stats.misses.Add(1)
	metrics.CacheRequests.WithLabelValues("none").Inc()
	return nil, false
}

// Set writes the result to both tiers with the given TTL.
func (m *Manager) Set(ctx context.Context, key string, result *domain.PlaceExtractionResult, ttl time.Duration) {
	if result == nil || ttl <= 0 {
		return
	}

	value, err := json.Marshal(result)
	if err != nil {
		slog.Error("Failed to encode cache value", "key", key, "error", err)
		return
	}
	now := m.now()

	m.l1.set(m.l1Entry(key, value, ttl, now))

	if !m.remoteReady.Load() {
		return
	}
	rctx, cancel := context.WithTimeout(ctx, m.cfg.RemoteTimeout)
	defer cancel()

	remoteValue := make([]byte, len(value))
	copy(remoteValue, value)
	if err := m.remote.Set(rctx, domain.CacheEntry{Key: key, Value: remoteValue, StoredAt: now, TTL: ttl}); err != nil {
		metrics.CacheErrors.WithLabelValues("set").Inc()
		slog.Warn("Remote cache write failed", "key", key, "error", err)
	}
}

// Invalidate removes key from both tiers. L1 is always cleared; a remote
// failure is returned because the entry may still be served from L2.
func (m *Manager) Invalidate(ctx context.Context, key string) error {
	m.l1.delete(key)

	if !m.remoteReady.Load() {
		return nil
	}
	rctx, cancel := context.WithTimeout(ctx, m.cfg.RemoteTimeout)
	defer cancel()

	if err := m.remote.Delete(rctx, key); err != nil {
		metrics.CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("invalidate %s: %w", key, err)
	}
	return nil
}

// Stats returns the cumulative counters.
func (m *Manager) Stats() Stats {
	s := m.stats.snapshot()
	s.L1Entries = m.l1.len()
	s.RemoteEnabled = m.remoteReady.Load()
	return s
}

func (m *Manager) remoteGet(ctx context.Context, key string) *domain.CacheEntry {
	if !m.remoteReady.Load() {
		return nil
	}
	rctx, cancel := context.WithTimeout(ctx, m.cfg.RemoteTimeout)
	defer cancel()

	entry, err := m.remote.Get(rctx, key)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			metrics.CacheErrors.WithLabelValues("get").Inc()
			slog.Warn("Remote cache read failed, treating as miss", "key", key, "error", err)
		}
		return nil
	}
	return entry
}

func (m *Manager) l1Entry(key string, value []byte, ttl time.Duration, now time.Time) domain.CacheEntry {
	if ttl <= 0 {
		ttl = promotionTTL
	}
	if m.cfg.L1TTL > 0 && m.cfg.L1TTL < ttl {
		ttl = m.cfg.L1TTL
	}
	return domain.CacheEntry{Key: key, Value: value, StoredAt: now, TTL: ttl}
}

func decode(value []byte) (*domain.PlaceExtractionResult, error) {
	var result domain.PlaceExtractionResult
	if err := json.Unmarshal(value, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
