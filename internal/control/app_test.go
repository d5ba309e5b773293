package control

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/vietddude/placefinder/internal/core/config"
	"github.com/vietddude/placefinder/internal/core/domain"
	"github.com/vietddude/placefinder/internal/infra/inference"
)

const reply = `{
  "confidence": "high",
  "places": [{
    "name": "Maple Tree House",
    "address": "Itaewon-ro 27ga-gil 44, Yongsan-gu, Seoul",
    "category": "korean bbq",
    "description": "Charcoal grilled galbi",
    "keywords": ["galbi"],
    "recommendation_score": 9,
    "confidence": "high"
  }]
}`

type stubCompleter struct{ calls int }

func (s *stubCompleter) Complete(ctx context.Context, p inference.Prompt) (string, error) {
	s.calls++
	return reply, nil
}

type stubFetcher struct{}

func (stubFetcher) Fetch(ctx context.Context, url string) (*domain.ContentSnapshot, error) {
	return &domain.ContentSnapshot{SourceURL: url, Title: "Galbi night", Description: "Itaewon"}, nil
}

func loadConfig(t *testing.T, yaml string) config.AppConfig {
	t.Helper()
	cfg, err := config.Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	cfg.Server.Port = 0
	return *cfg
}

func TestNewApp_RequiresAPIKey(t *testing.T) {
	_, err := NewApp(context.Background(), loadConfig(t, "{}"), WithFetcher(stubFetcher{}))
	if err == nil || !strings.Contains(err.Error(), "api key") {
		t.Fatalf("expected api key error, got %v", err)
	}
}

func TestApp_AnalyzeWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := loadConfig(t, "redis:\n  url: redis://"+mr.Addr()+"\nhistory:\n  backend: redis\n")

	completer := &stubCompleter{}
	app, err := NewApp(context.Background(), cfg, WithCompleter(completer), WithFetcher(stubFetcher{}))
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	defer app.Close()

	ctx := context.Background()
	out, err := app.Service().Analyze(ctx, "https://instagram.com/p/abc", false)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(out.Result.Places) != 1 {
		t.Fatalf("expected 1 place, got %d", len(out.Result.Places))
	}
	if !mr.Exists(out.CacheKey) {
		t.Error("expected result in the remote tier")
	}
	if ttl := mr.TTL(out.CacheKey); ttl != time.Hour {
		t.Errorf("expected high confidence TTL of 1h, got %s", ttl)
	}

	rec, err := app.Service().Analysis(ctx, out.AnalysisID)
	if err != nil {
		t.Fatalf("expected history in redis: %v", err)
	}
	if rec.Status != domain.AnalysisStatusCompleted {
		t.Errorf("expected completed, got %s", rec.Status)
	}

	if !app.Service().CacheStats().RemoteEnabled {
		t.Error("expected remote tier enabled")
	}
}

func TestApp_UnreachableRedisFallsBackToL1(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := loadConfig(t, "redis:\n  url: redis://"+addr+"\n")
	completer := &stubCompleter{}
	app, err := NewApp(context.Background(), cfg, WithCompleter(completer), WithFetcher(stubFetcher{}))
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	defer app.Close()

	ctx := context.Background()
	for range 2 {
		if _, err := app.Service().Analyze(ctx, "https://instagram.com/p/abc", false); err != nil {
			t.Fatalf("Analyze failed: %v", err)
		}
	}
	if completer.calls != 1 {
		t.Errorf("expected the second call to hit L1, got %d inference calls", completer.calls)
	}
	if app.Service().CacheStats().RemoteEnabled {
		t.Error("expected remote tier disabled")
	}
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	app, err := NewApp(context.Background(), loadConfig(t, "{}"), WithCompleter(&stubCompleter{}), WithFetcher(stubFetcher{}))
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestOpenHistory(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	cfg := loadConfig(t, "redis:\n  url: redis://"+mr.Addr()+"\nhistory:\n  backend: redis\n")

	repo, closeFn, err := OpenHistory(ctx, cfg)
	if err != nil {
		t.Fatalf("OpenHistory failed: %v", err)
	}
	defer closeFn()

	rec := &domain.AnalysisRecord{ID: "a1", SourceURL: "https://instagram.com/p/abc", CreatedAt: time.Now()}
	if err := repo.Save(ctx, rec); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := repo.Get(ctx, "a1"); err != nil {
		t.Errorf("Get failed: %v", err)
	}

	if _, _, err := OpenHistory(ctx, config.AppConfig{History: config.HistoryConfig{Backend: config.HistoryRedis}}); err == nil {
		t.Error("expected an error without a redis url")
	}
}
