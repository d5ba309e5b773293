// Package analyzer runs the cache → fetch → inference → extraction pipeline
// for a post URL and keeps a history of runs.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/vietddude/placefinder/internal/cache"
	"github.com/vietddude/placefinder/internal/core/domain"
	"github.com/vietddude/placefinder/internal/infra/retry"
	"github.com/vietddude/placefinder/internal/infra/storage"
	"github.com/vietddude/placefinder/internal/metrics"
)

// Fetcher produces a content snapshot for a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*domain.ContentSnapshot, error)
}

// Inferencer asks the model for place candidates.
type Inferencer interface {
	Analyze(ctx context.Context, snapshot domain.ContentSnapshot) (*domain.InferenceResponse, error)
}

// Extractor turns candidates into places.
type Extractor interface {
	Extract(resp *domain.InferenceResponse, snapshot domain.ContentSnapshot) (*domain.PlaceExtractionResult, error)
}

// ResultCache is the tiered result cache.
type ResultCache interface {
	Get(ctx context.Context, key string) (*domain.PlaceExtractionResult, bool)
	Set(ctx context.Context, key string, result *domain.PlaceExtractionResult, ttl time.Duration)
	Invalidate(ctx context.Context, key string) error
	Stats() cache.Stats
}

// Config holds analyzer settings.
type Config struct {
	DefaultTTL              time.Duration `yaml:"default_ttl"`
	HighConfidenceTTL       time.Duration `yaml:"high_confidence_ttl"`
	HighConfidenceThreshold float64       `yaml:"high_confidence_threshold"`
	Timeout                 time.Duration `yaml:"timeout"`
	// Coalesce shares one in-flight analysis between concurrent misses on
	// the same URL.
	Coalesce bool `yaml:"coalesce"`
}

// DefaultConfig returns the standard TTL policy.
func DefaultConfig() Config {
	return Config{
		DefaultTTL:              1800 * time.Second,
		HighConfidenceTTL:       3600 * time.Second,
		HighConfidenceThreshold: 0.8,
		Timeout:                 90 * time.Second,
	}
}

// Deps are the collaborators of a Service.
type Deps struct {
	Fetcher    Fetcher
	Inference  Inferencer
	Extractor  Extractor
	Cache      ResultCache
	History    storage.AnalysisRepository
	FetchRetry *retry.Executor // nil uses retry.DefaultPolicy
}

// Outcome is the result of one Analyze call.
type Outcome struct {
	AnalysisID      string                        `json:"analysis_id"`
	CanonicalURL    string                        `json:"canonical_url"`
	CacheKey        string                        `json:"cache_key"`
	ServedFromCache bool                          `json:"served_from_cache"`
	Result          *domain.PlaceExtractionResult `json:"result"`
}

// Service orchestrates analyses.
type Service struct {
	cfg        Config
	fetcher    Fetcher
	inference  Inferencer
	extractor  Extractor
	cache      ResultCache
	history    storage.AnalysisRepository
	fetchRetry *retry.Executor

	group singleflight.Group
	now   func() time.Time
	newID func() string
}

// New creates a Service. Zero config fields take DefaultConfig values.
func New(cfg Config, deps Deps) *Service {
	def := DefaultConfig()
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = def.DefaultTTL
	}
	if cfg.HighConfidenceTTL <= 0 {
		cfg.HighConfidenceTTL = def.HighConfidenceTTL
	}
	if cfg.HighConfidenceThreshold <= 0 {
		cfg.HighConfidenceThreshold = def.HighConfidenceThreshold
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if deps.FetchRetry == nil {
		deps.FetchRetry = retry.NewExecutor("fetch", retry.DefaultPolicy)
	}

	return &Service{
		cfg:        cfg,
		fetcher:    deps.Fetcher,
		inference:  deps.Inference,
		extractor:  deps.Extractor,
		cache:      deps.Cache,
		history:    deps.History,
		fetchRetry: deps.FetchRetry,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// TTLFor returns the cache lifetime for a result with the given confidence.
func (s *Service) TTLFor(confidence float64) time.Duration {
	if confidence > s.cfg.HighConfidenceThreshold {
		return s.cfg.HighConfidenceTTL
	}
	return s.cfg.DefaultTTL
}

// Analyze returns the places mentioned in the post at rawURL. Cached results
// are returned unless forceRefresh is set. A result computed for a request
// whose context ended is never cached.
func (s *Service) Analyze(ctx context.Context, rawURL string, forceRefresh bool) (*Outcome, error) {
	start := s.now()

	canonical, err := cache.CanonicalURL(rawURL)
	if err != nil {
		return nil, err
	}
	key := cache.KeyFor(canonical)

	if !forceRefresh {
		if result, ok := s.cache.Get(ctx, key); ok {
			out := &Outcome{CanonicalURL: canonical, CacheKey: key, ServedFromCache: true, Result: result}
			out.AnalysisID = s.recordCached(ctx, canonical, result)
			metrics.AnalysesTotal.WithLabelValues("cached").Inc()
			metrics.AnalysisLatency.WithLabelValues("true").Observe(time.Since(start).Seconds())
			return out, nil
		}
	}

	var out *Outcome
	if s.cfg.Coalesce {
		// The shared run outlives any single caller and is bounded only by
		// the analysis timeout. Each caller leaves on its own context.
		runCtx := context.WithoutCancel(ctx)
		ch := s.group.DoChan(key, func() (any, error) {
			runCtx, cancel := context.WithTimeout(runCtx, s.cfg.Timeout)
			defer cancel()
			return s.run(runCtx, canonical, key)
		})
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case r := <-ch:
			if r.Err != nil {
				return nil, r.Err
			}
			out = r.Val.(*Outcome)
			if r.Shared {
				slog.Debug("Joined in-flight analysis", "url", canonical)
			}
		}
	} else {
		ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
		out, err = s.run(ctx, canonical, key)
		if err != nil {
			return nil, err
		}
	}

	metrics.AnalysisLatency.WithLabelValues("false").Observe(time.Since(start).Seconds())
	return out, nil
}

func (s *Service) run(ctx context.Context, canonical, key string) (*Outcome, error) {
	rec := &domain.AnalysisRecord{
		ID:        s.newID(),
		SourceURL: canonical,
		Status:    domain.AnalysisStatusPending,
		CreatedAt: s.now(),
	}
	rec.UpdatedAt = rec.CreatedAt
	s.saveRecord(ctx, rec)

	result, err := s.pipeline(ctx, canonical)
	if err != nil {
		s.fail(ctx, rec, err)
		return nil, err
	}

	if ctx.Err() != nil {
		s.fail(ctx, rec, ctx.Err())
		return nil, ctx.Err()
	}

	ttl := s.TTLFor(result.ConfidenceScore)
	s.cache.Set(ctx, key, result, ttl)

	rec.Status = domain.AnalysisStatusCompleted
	rec.ConfidenceScore = result.ConfidenceScore
	rec.PlaceCount = len(result.Places)
	rec.UpdatedAt = s.now()
	s.saveRecord(ctx, rec)

	metrics.AnalysesTotal.WithLabelValues("completed").Inc()
	slog.Info("Analysis completed",
		"id", rec.ID,
		"url", canonical,
		"places", rec.PlaceCount,
		"confidence", result.ConfidenceScore,
		"ttl", ttl,
	)

	return &Outcome{AnalysisID: rec.ID, CanonicalURL: canonical, CacheKey: key, Result: result}, nil
}

func (s *Service) pipeline(ctx context.Context, canonical string) (*domain.PlaceExtractionResult, error) {
	snapshot, err := retry.Do(ctx, s.fetchRetry, func(ctx context.Context) (*domain.ContentSnapshot, error) {
		return s.fetcher.Fetch(ctx, canonical)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	resp, err := s.inference.Analyze(ctx, *snapshot)
	if err != nil {
		return nil, err
	}

	result, err := s.extractor.Extract(resp, *snapshot)
	if err != nil {
		return nil, fmt.Errorf("extraction failed: %w", err)
	}
	return result, nil
}

// Invalidate drops the cached result for rawURL.
func (s *Service) Invalidate(ctx context.Context, rawURL string) (string, error) {
	canonical, err := cache.CanonicalURL(rawURL)
	if err != nil {
		return "", err
	}
	if err := s.cache.Invalidate(ctx, cache.KeyFor(canonical)); err != nil {
		return canonical, err
	}
	slog.Info("Cache entry invalidated", "url", canonical)
	return canonical, nil
}

// CacheStats returns the cache counters.
func (s *Service) CacheStats() cache.Stats {
	return s.cache.Stats()
}

// Analysis returns a recorded run.
func (s *Service) Analysis(ctx context.Context, id string) (*domain.AnalysisRecord, error) {
	if s.history == nil {
		return nil, storage.ErrAnalysisNotFound
	}
	return s.history.Get(ctx, id)
}

// RecentAnalyses returns the newest recorded runs.
func (s *Service) RecentAnalyses(ctx context.Context, limit int) ([]*domain.AnalysisRecord, error) {
	if s.history == nil {
		return nil, nil
	}
	return s.history.ListRecent(ctx, limit)
}

func (s *Service) recordCached(ctx context.Context, canonical string, result *domain.PlaceExtractionResult) string {
	now := s.now()
	rec := &domain.AnalysisRecord{
		ID:              s.newID(),
		SourceURL:       canonical,
		Status:          domain.AnalysisStatusCompleted,
		ConfidenceScore: result.ConfidenceScore,
		PlaceCount:      len(result.Places),
		ServedFromCache: true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.saveRecord(ctx, rec)
	return rec.ID
}

func (s *Service) fail(ctx context.Context, rec *domain.AnalysisRecord, err error) {
	rec.Status = domain.AnalysisStatusFailed
	rec.Error = err.Error()
	rec.UpdatedAt = s.now()
	// The request context may already be done; history is still written
	s.saveRecord(context.WithoutCancel(ctx), rec)

	outcome := "failed"
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		outcome = "cancelled"
	}
	metrics.AnalysesTotal.WithLabelValues(outcome).Inc()
	slog.Warn("Analysis failed", "id", rec.ID, "url", rec.SourceURL, "error", err)
}

func (s *Service) saveRecord(ctx context.Context, rec *domain.AnalysisRecord) {
	if s.history == nil {
		return
	}
	if err := s.history.Save(ctx, rec); err != nil {
		slog.Warn("Failed to record analysis", "id", rec.ID, "error", err)
	}
}
