package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vietddude/placefinder/internal/core/domain"
	"github.com/vietddude/placefinder/internal/infra/storage"
)

const analysisColumns = `id, source_url, status, confidence_score, place_count, served_from_cache, error, created_at, updated_at`

// AnalysisRepo implements storage.AnalysisRepository using PostgreSQL.
type AnalysisRepo struct {
	db *DB
}

// NewAnalysisRepo creates a new PostgreSQL analysis repository.
func NewAnalysisRepo(db *DB) *AnalysisRepo {
	return &AnalysisRepo{db: db}
}

// Save upserts a record.
func (r *AnalysisRepo) Save(ctx context.Context, record *domain.AnalysisRecord) error {
	query := `
		INSERT INTO analyses (` + analysisColumns + `)
		VALUES (:id, :source_url, :status, :confidence_score, :place_count, :served_from_cache, :error, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			confidence_score = EXCLUDED.confidence_score,
			place_count = EXCLUDED.place_count,
			served_from_cache = EXCLUDED.served_from_cache,
			error = EXCLUDED.error,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}
	return nil
}

// Get retrieves a record by ID.
func (r *AnalysisRepo) Get(ctx context.Context, id string) (*domain.AnalysisRecord, error) {
	query := `SELECT ` + analysisColumns + ` FROM analyses WHERE id = $1`

	var rec domain.AnalysisRecord
	if err := r.db.GetContext(ctx, &rec, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrAnalysisNotFound
		}
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}
	return &rec, nil
}

// ListRecent returns the newest records first.
func (r *AnalysisRepo) ListRecent(ctx context.Context, limit int) ([]*domain.AnalysisRecord, error) {
	if limit <= 0 {
		limit = storage.DefaultListLimit
	}
	query := `SELECT ` + analysisColumns + ` FROM analyses ORDER BY created_at DESC, id ASC LIMIT $1`

	var recs []*domain.AnalysisRecord
	if err := r.db.SelectContext(ctx, &recs, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	return recs, nil
}

// LatestForURL returns the newest record for a canonical URL.
func (r *AnalysisRepo) LatestForURL(ctx context.Context, sourceURL string) (*domain.AnalysisRecord, error) {
	query := `
		SELECT ` + analysisColumns + `
		FROM analyses
		WHERE source_url = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	var rec domain.AnalysisRecord
	if err := r.db.GetContext(ctx, &rec, query, sourceURL); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrAnalysisNotFound
		}
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}
	return &rec, nil
}

// DeleteOlderThan removes records created before the cutoff.
func (r *AnalysisRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM analyses WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to prune analyses: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned analyses: %w", err)
	}
	return n, nil
}
