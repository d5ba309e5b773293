package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/vietddude/placefinder/internal/core/domain"
	redisstore "github.com/vietddude/placefinder/internal/infra/redis"
)

// fakeStore is an in-memory Store with switchable failures.
type fakeStore struct {
	mu      sync.Mutex
	entries map[string]domain.CacheEntry
	fail    error
	closed  int
	gets    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]domain.CacheEntry)}
}

func (f *fakeStore) Get(ctx context.Context, key string) (*domain.CacheEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.fail != nil {
		return nil, f.fail
	}
	e, ok := f.entries[key]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (f *fakeStore) Set(ctx context.Context, entry domain.CacheEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.entries[entry.Key] = entry
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	delete(f.entries, key)
	return nil
}

func (f *fakeStore) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fail
}

func (f *fakeStore) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeStore) setFail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = err
}

func sampleResult(name string) *domain.PlaceExtractionResult {
	return &domain.PlaceExtractionResult{
		Places: []domain.ExtractedPlace{{
			Name:     name,
			Category: domain.CategoryCafe,
			Keywords: []string{"cafe"},
		}},
		TotalCandidatesFound: 1,
		ValidationErrors:     []string{},
		ConfidenceScore:      0.88,
		DataQualityScore:     0.7,
	}
}

func newInitializedManager(t *testing.T, cfg Config, remote Store) *Manager {
	t.Helper()
	m := NewManager(cfg, remote)
	if err := m.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestManager_EmptyCacheMiss(t *testing.T) {
	m := newInitializedManager(t, Config{}, newFakeStore())

	result, ok := m.Get(context.Background(), "k")
	if ok || result != nil {
		t.Fatalf("expected miss, got %+v", result)
	}

	s := m.Stats()
	if s.Misses != 1 || s.TotalRequests != 1 || s.Hits != 0 {
		t.Errorf("unexpected stats after miss: %+v", s)
	}
	if s.HitRate != 0 {
		t.Errorf("expected zero hit rate, got %f", s.HitRate)
	}
}

func TestManager_RoundTrip(t *testing.T) {
	ctx := context.Background()
	m := newInitializedManager(t, Config{}, newFakeStore())

	m.Set(ctx, "k", sampleResult("Onion"), time.Hour)

	got, ok := m.Get(ctx, "k")
	if !ok {
		t.Fatal("expected hit")
	}
	if got.Places[0].Name != "Onion" || got.ConfidenceScore != 0.88 {
		t.Errorf("unexpected result: %+v", got)
	}

	s := m.Stats()
	if s.L1Hits != 1 || s.Hits != 1 || s.L2Hits != 0 {
		t.Errorf("expected one L1 hit, got %+v", s)
	}
}

func TestManager_ReturnedValuesAreIndependent(t *testing.T) {
	ctx := context.Background()
	m := newInitializedManager(t, Config{}, nil)

	original := sampleResult("Onion")
	m.Set(ctx, "k", original, time.Hour)
	original.Places[0].Name = "changed"

	first, _ := m.Get(ctx, "k")
	first.Places[0].Name = "mutated"

	second, _ := m.Get(ctx, "k")
	if second.Places[0].Name != "Onion" {
		t.Errorf("cached value was shared with a caller, got %q", second.Places[0].Name)
	}
}

func TestManager_PromotesRemoteHits(t *testing.T) {
	ctx := context.Background()
	remote := newFakeStore()
	m := newInitializedManager(t, Config{}, remote)

	// Populated by another process
	seed := NewManager(Config{}, remote)
	_ = seed.Initialize(ctx)
	seed.Set(ctx, "k", sampleResult("Onion"), time.Hour)

	if _, ok := m.Get(ctx, "k"); !ok {
		t.Fatal("expected L2 hit")
	}
	if _, ok := m.Get(ctx, "k"); !ok {
		t.Fatal("expected L1 hit after promotion")
	}

	s := m.Stats()
	if s.L2Hits != 1 || s.L1Hits != 1 || s.Hits != 2 || s.TotalRequests != 2 {
		t.Errorf("unexpected stats: %+v", s)
	}
	if remote.gets != 1 {
		t.Errorf("expected the remote tier to be read once, got %d", remote.gets)
	}
	if s.L1HitRate != 0.5 || s.L2HitRate != 0.5 || s.HitRate != 1 {
		t.Errorf("unexpected rates: %+v", s)
	}
}

func TestManager_InvalidateRemovesBothTiers(t *testing.T) {
	ctx := context.Background()
	remote := newFakeStore()
	m := newInitializedManager(t, Config{}, remote)

	m.Set(ctx, "k", sampleResult("Onion"), time.Hour)
	if err := m.Invalidate(ctx, "k"); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}

	if _, ok := m.Get(ctx, "k"); ok {
		t.Error("expected miss after invalidate")
	}
	if len(remote.entries) != 0 {
		t.Errorf("expected remote entry removed, got %d entries", len(remote.entries))
	}
}

// blockingStore parks the first Get after it has read the entry, until
// release is closed.
type blockingStore struct {
	*fakeStore
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (b *blockingStore) Get(ctx context.Context, key string) (*domain.CacheEntry, error) {
	entry, err := b.fakeStore.Get(ctx, key)
	b.once.Do(func() {
		close(b.entered)
		<-b.release
	})
	return entry, err
}

func TestManager_InvalidateDuringRemoteRead(t *testing.T) {
	ctx := context.Background()
	remote := &blockingStore{
		fakeStore: newFakeStore(),
		entered:   make(chan struct{}),
		release:   make(chan struct{}),
	}
	seed := NewManager(Config{}, remote.fakeStore)
	_ = seed.Initialize(ctx)
	seed.Set(ctx, "k", sampleResult("Onion"), time.Hour)

	m := newInitializedManager(t, Config{}, remote)

	done := make(chan bool)
	go func() {
		_, ok := m.Get(ctx, "k")
		done <- ok
	}()

	<-remote.entered
	if err := m.Invalidate(ctx, "k"); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	close(remote.release)
	<-done

	if _, ok := m.Get(ctx, "k"); ok {
		t.Fatal("expected miss after invalidate, entry was promoted back into L1")
	}
	if n := m.Stats().L1Entries; n != 0 {
		t.Errorf("expected empty L1, got %d entries", n)
	}
}

func TestMemoryTier_PromotionGeneration(t *testing.T) {
	tier := newMemoryTier(0)
	entry := domain.CacheEntry{Key: "k", Value: []byte("old"), StoredAt: time.Now(), TTL: time.Hour}

	gen := tier.generation("k")
	tier.set(domain.CacheEntry{Key: "k", Value: []byte("new"), StoredAt: time.Now(), TTL: time.Hour})
	if tier.setIfGeneration(entry, gen) {
		t.Fatal("expected promotion to be skipped after a concurrent set")
	}
	got, ok := tier.get("k", time.Now())
	if !ok || string(got.Value) != "new" {
		t.Errorf("expected the newer value to survive, got %q", got.Value)
	}

	gen = tier.generation("other")
	if !tier.setIfGeneration(domain.CacheEntry{Key: "other", Value: []byte("v"), StoredAt: time.Now(), TTL: time.Hour}, gen) {
		t.Error("expected promotion of an untouched key to be stored")
	}
	if tier.pending != 0 || len(tier.gens) != 0 {
		t.Errorf("expected no pending reads, got pending=%d gens=%d", tier.pending, len(tier.gens))
	}
}

func TestManager_L1Expiry(t *testing.T) {
	ctx := context.Background()
	m := newInitializedManager(t, Config{}, nil)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	m.Set(ctx, "k", sampleResult("Onion"), time.Minute)

	now = now.Add(59 * time.Second)
	if _, ok := m.Get(ctx, "k"); !ok {
		t.Fatal("expected hit within TTL")
	}

	now = now.Add(2 * time.Second)
	if _, ok := m.Get(ctx, "k"); ok {
		t.Error("expected miss after TTL")
	}
}

func TestManager_L1TTLCap(t *testing.T) {
	ctx := context.Background()
	remote := newFakeStore()
	m := newInitializedManager(t, Config{L1TTL: 10 * time.Second}, remote)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	m.Set(ctx, "k", sampleResult("Onion"), time.Hour)
	if got := remote.entries["k"].TTL; got != time.Hour {
		t.Errorf("expected remote TTL of 1h, got %s", got)
	}

	now = now.Add(11 * time.Second)
	if _, ok := m.Get(ctx, "k"); !ok {
		t.Fatal("expected remote hit after L1 expiry")
	}
	if s := m.Stats(); s.L2Hits != 1 {
		t.Errorf("expected the hit to come from L2, got %+v", s)
	}
}

func TestManager_LRUEviction(t *testing.T) {
	ctx := context.Background()
	m := newInitializedManager(t, Config{L1MaxEntries: 2}, nil)

	m.Set(ctx, "a", sampleResult("A"), time.Hour)
	m.Set(ctx, "b", sampleResult("B"), time.Hour)
	m.Get(ctx, "a") // a becomes most recently used
	m.Set(ctx, "c", sampleResult("C"), time.Hour)

	if _, ok := m.Get(ctx, "b"); ok {
		t.Error("expected least recently used entry to be evicted")
	}
	if _, ok := m.Get(ctx, "a"); !ok {
		t.Error("expected recently used entry to survive")
	}
	if _, ok := m.Get(ctx, "c"); !ok {
		t.Error("expected newest entry to survive")
	}
	if n := m.Stats().L1Entries; n != 2 {
		t.Errorf("expected 2 L1 entries, got %d", n)
	}
}

func TestManager_RemoteFailureDegradesToMiss(t *testing.T) {
	ctx := context.Background()
	remote := newFakeStore()
	m := newInitializedManager(t, Config{}, remote)

	remote.setFail(errors.New("connection refused"))

	m.Set(ctx, "k", sampleResult("Onion"), time.Hour)
	if _, ok := m.Get(ctx, "k"); !ok {
		t.Error("expected L1 to keep serving while L2 is down")
	}
	if _, ok := m.Get(ctx, "other"); ok {
		t.Error("expected miss")
	}

	if err := m.Invalidate(ctx, "k"); err == nil {
		t.Error("expected remote invalidate failure to be reported")
	}
	if _, ok := m.Get(ctx, "k"); ok {
		t.Error("expected L1 cleared even when L2 delete fails")
	}
}

func TestManager_FailedInitialize(t *testing.T) {
	ctx := context.Background()
	remote := newFakeStore()
	remote.setFail(errors.New("dial tcp: connection refused"))

	m := NewManager(Config{}, remote)
	if err := m.Initialize(ctx); err == nil {
		t.Fatal("expected Initialize error")
	}

	m.Set(ctx, "k", sampleResult("Onion"), time.Hour)
	if _, ok := m.Get(ctx, "k"); !ok {
		t.Error("expected in-process tier to work without the remote tier")
	}
	if remote.gets != 0 {
		t.Errorf("expected no remote reads after failed initialize, got %d", remote.gets)
	}
	if m.Stats().RemoteEnabled {
		t.Error("expected remote tier reported as disabled")
	}

	if err := m.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if remote.closed != 1 {
		t.Errorf("expected remote closed once, got %d", remote.closed)
	}
}

func TestManager_StatsCountEveryGet(t *testing.T) {
	ctx := context.Background()
	m := newInitializedManager(t, Config{}, newFakeStore())
	m.Set(ctx, "hit", sampleResult("Onion"), time.Hour)

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				m.Get(ctx, "hit")
			} else {
				m.Get(ctx, "miss")
			}
		}(i)
	}
	wg.Wait()

	s := m.Stats()
	if s.TotalRequests != n {
		t.Errorf("expected %d requests, got %d", n, s.TotalRequests)
	}
	if s.Hits+s.Misses != n {
		t.Errorf("hits %d + misses %d != %d", s.Hits, s.Misses, n)
	}
	if s.Hits != n/2 {
		t.Errorf("expected %d hits, got %d", n/2, s.Hits)
	}
}

func TestManager_WithRedis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	store, err := redisstore.NewStore(redisstore.Config{URL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	writer := newInitializedManager(t, Config{}, store)
	writer.Set(ctx, "k", sampleResult("Onion"), time.Hour)

	reader := NewManager(Config{}, store)
	if err := reader.Initialize(ctx); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	got, ok := reader.Get(ctx, "k")
	if !ok || got.Places[0].Name != "Onion" {
		t.Fatalf("expected remote hit, got %+v", got)
	}
	if s := reader.Stats(); s.L2Hits != 1 {
		t.Errorf("expected L2 hit, got %+v", s)
	}

	mr.FastForward(2 * time.Hour)
	if _, ok := freshManager(t, store).Get(ctx, "k"); ok {
		t.Error("expected remote entry to expire")
	}
}

// freshManager returns an initialized manager with an empty L1.
func freshManager(t *testing.T, remote Store) *Manager {
	t.Helper()
	m := NewManager(Config{}, remote)
	if err := m.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	return m
}
