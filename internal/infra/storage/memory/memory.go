package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vietddude/placefinder/internal/core/domain"
	"github.com/vietddude/placefinder/internal/infra/storage"
)

// MemoryStorage keeps analysis records in process. Records are copied on the
// way in and out so callers never share state with the store.
type MemoryStorage struct {
	analyses map[string]domain.AnalysisRecord
	mu       sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		analyses: make(map[string]domain.AnalysisRecord),
	}
}

// -----------------------------------------------------------------------------
// Analysis Repository
// -----------------------------------------------------------------------------

type AnalysisRepo struct {
	store *MemoryStorage
}

func NewAnalysisRepo(store *MemoryStorage) *AnalysisRepo {
	return &AnalysisRepo{store: store}
}

func (r *AnalysisRepo) Save(ctx context.Context, record *domain.AnalysisRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.analyses[record.ID] = *record
	return nil
}

func (r *AnalysisRepo) Get(ctx context.Context, id string) (*domain.AnalysisRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	rec, ok := r.store.analyses[id]
	if !ok {
		return nil, storage.ErrAnalysisNotFound
	}
	return &rec, nil
}

func (r *AnalysisRepo) ListRecent(ctx context.Context, limit int) ([]*domain.AnalysisRecord, error) {
	if limit <= 0 {
		limit = storage.DefaultListLimit
	}

	r.store.mu.RLock()
	all := make([]*domain.AnalysisRecord, 0, len(r.store.analyses))
	for _, rec := range r.store.analyses {
		all = append(all, &rec)
	}
	r.store.mu.RUnlock()

	sortNewestFirst(all)
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *AnalysisRepo) LatestForURL(ctx context.Context, sourceURL string) (*domain.AnalysisRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var latest *domain.AnalysisRecord
	for _, rec := range r.store.analyses {
		if rec.SourceURL != sourceURL {
			continue
		}
		if latest == nil || rec.CreatedAt.After(latest.CreatedAt) {
			latest = &rec
		}
	}
	if latest == nil {
		return nil, storage.ErrAnalysisNotFound
	}
	return latest, nil
}

func (r *AnalysisRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var n int64
	for id, rec := range r.store.analyses {
		if rec.CreatedAt.Before(before) {
			delete(r.store.analyses, id)
			n++
		}
	}
	return n, nil
}

func sortNewestFirst(recs []*domain.AnalysisRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].CreatedAt.After(recs[j].CreatedAt)
		}
		return recs[i].ID < recs[j].ID
	})
}
