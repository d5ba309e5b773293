// Package server exposes the analyzer over HTTP together with health and
// metrics endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/placefinder/internal/analyzer"
	"github.com/vietddude/placefinder/internal/cache"
	"github.com/vietddude/placefinder/internal/core/domain"
	"github.com/vietddude/placefinder/internal/infra/content"
	"github.com/vietddude/placefinder/internal/infra/inference"
	"github.com/vietddude/placefinder/internal/infra/storage"
)

// Analyzer is the subset of analyzer.Service used by the HTTP API.
type Analyzer interface {
	Analyze(ctx context.Context, rawURL string, forceRefresh bool) (*analyzer.Outcome, error)
	Invalidate(ctx context.Context, rawURL string) (string, error)
	CacheStats() cache.Stats
	Analysis(ctx context.Context, id string) (*domain.AnalysisRecord, error)
	RecentAnalyses(ctx context.Context, limit int) ([]*domain.AnalysisRecord, error)
}

// Server provides the HTTP API.
type Server struct {
	analyzer Analyzer
	monitor  *Monitor
	server   *http.Server
}

// New creates a server listening on port.
func New(a Analyzer, monitor *Monitor, port int) *Server {
	s := &Server{
		analyzer: a,
		monitor:  monitor,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	s.server.Handler = s.Handler()
	return s
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /health/detailed", s.handleDetailed)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /api/cache/stats", s.handleCacheStats)
	mux.HandleFunc("DELETE /api/cache", s.handleInvalidate)
	mux.HandleFunc("GET /api/analyses", s.handleRecent)
	mux.HandleFunc("GET /api/analyses/{id}", s.handleAnalysis)
	return mux
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	slog.Info("HTTP server listening", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.monitor.CheckHealth(r.Context())

	status := http.StatusOK
	if report.SystemStatus == StatusCritical {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"status": string(report.SystemStatus)})
}

func (s *Server) handleDetailed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.monitor.CheckHealth(r.Context()))
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		writeError(w, http.StatusBadRequest, "url parameter is required")
		return
	}
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	out, err := s.analyzer.Analyze(r.Context(), rawURL, force)
	if err != nil {
		status, msg := analyzeErrorStatus(err)
		if status >= http.StatusInternalServerError {
			slog.Warn("Analyze request failed", "url", rawURL, "status", status, "error", err)
		}
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.analyzer.CacheStats())
}

func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		writeError(w, http.StatusBadRequest, "url parameter is required")
		return
	}

	canonical, err := s.analyzer.Invalidate(r.Context(), rawURL)
	if err != nil {
		if errors.Is(err, cache.ErrInvalidURL) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"canonical_url": canonical, "status": "invalidated"})
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := storage.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	records, err := s.analyzer.RecentAnalyses(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list analyses")
		return
	}
	if records == nil {
		records = []*domain.AnalysisRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	rec, err := s.analyzer.Analysis(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, storage.ErrAnalysisNotFound) {
			writeError(w, http.StatusNotFound, "analysis not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load analysis")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// analyzeErrorStatus maps pipeline errors to an HTTP status and a message
// safe to show to clients.
func analyzeErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, cache.ErrInvalidURL):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, content.ErrNotFound):
		return http.StatusNotFound, "content not found"
	case errors.Is(err, analyzer.ErrFetchFailed):
		return http.StatusBadGateway, "failed to fetch content"
	case errors.Is(err, inference.ErrRateLimited), errors.Is(err, inference.ErrServiceUnavailable):
		return http.StatusServiceUnavailable, "analysis service busy, try again later"
	case errors.Is(err, inference.ErrInvalidResponse):
		return http.StatusBadGateway, "analysis service degraded"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "analysis timed out"
	default:
		return http.StatusInternalServerError, "analysis failed"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
