package storage

import (
	"context"
	"errors"
	"time"

	"github.com/vietddude/placefinder/internal/core/domain"
)

var (
	// ErrAnalysisNotFound is returned when an analysis record doesn't exist
	ErrAnalysisNotFound = errors.New("analysis not found")
)

// AnalysisRepository handles analysis history storage operations
type AnalysisRepository interface {
	// Save inserts or updates a record by ID
	Save(ctx context.Context, record *domain.AnalysisRecord) error

	// Get retrieves a record by ID
	Get(ctx context.Context, id string) (*domain.AnalysisRecord, error)

	// ListRecent returns the newest records first
	ListRecent(ctx context.Context, limit int) ([]*domain.AnalysisRecord, error)

	// LatestForURL returns the newest record for a canonical URL
	LatestForURL(ctx context.Context, sourceURL string) (*domain.AnalysisRecord, error)

	// DeleteOlderThan removes records created before the cutoff
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// DefaultListLimit bounds ListRecent when the caller passes no limit.
const DefaultListLimit = 50
