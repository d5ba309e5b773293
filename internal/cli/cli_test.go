package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vietddude/placefinder/internal/cache"
	"github.com/vietddude/placefinder/internal/core/domain"
)

func TestFetchStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/cache/stats" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(cache.Stats{Hits: 3, Misses: 1, TotalRequests: 4, HitRate: 0.75, RemoteEnabled: true})
	}))
	defer srv.Close()

	stats, err := fetchStats(context.Background(), srv.URL+"/")
	if err != nil {
		t.Fatalf("fetchStats failed: %v", err)
	}
	if stats.Hits != 3 || !stats.RemoteEnabled {
		t.Errorf("unexpected stats: %+v", stats)
	}

	var buf bytes.Buffer
	printStats(&buf, stats)
	if !strings.Contains(buf.String(), "75.0%") {
		t.Errorf("expected hit rate in output, got:\n%s", buf.String())
	}
}

func TestFetchStats_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := fetchStats(context.Background(), srv.URL); err == nil || !strings.Contains(err.Error(), "500") {
		t.Errorf("expected status error, got %v", err)
	}
}

func TestInvalidateRemote(t *testing.T) {
	var gotMethod, gotPath, gotURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath, gotURL = r.Method, r.URL.Path, r.URL.Query().Get("url")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"canonical_url": "https://instagram.com/p/abc",
			"status":        "invalidated",
		})
	}))
	defer srv.Close()

	canonical, err := invalidateRemote(context.Background(), srv.URL+"/", "https://www.instagram.com/p/abc/?igsh=x&y=1")
	if err != nil {
		t.Fatalf("invalidateRemote failed: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/api/cache" {
		t.Errorf("unexpected request %s %s", gotMethod, gotPath)
	}
	if gotURL != "https://www.instagram.com/p/abc/?igsh=x&y=1" {
		t.Errorf("expected the raw url to be forwarded, got %q", gotURL)
	}
	if canonical != "https://instagram.com/p/abc" {
		t.Errorf("unexpected canonical url %q", canonical)
	}
}

func TestInvalidateRemote_BadRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid source url"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	if _, err := invalidateRemote(context.Background(), srv.URL, "ftp://x"); err == nil || !strings.Contains(err.Error(), "400") {
		t.Errorf("expected status error, got %v", err)
	}
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	printHistory(&buf, []*domain.AnalysisRecord{{
		ID:              "a1",
		SourceURL:       "https://instagram.com/p/abc",
		Status:          domain.AnalysisStatusCompleted,
		PlaceCount:      2,
		ConfidenceScore: 0.88,
		CreatedAt:       time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}})

	out := buf.String()
	for _, want := range []string{"STATUS", "a1", "completed", "0.88", "2024-05-01T12:00:00Z", "https://instagram.com/p/abc"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}
