package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/placefinder/internal/infra/storage"
)

// Pruner deletes analysis records older than the retention period.
type Pruner struct {
	retention time.Duration
	repo      storage.AnalysisRepository
	now       func() time.Time
}

// NewPruner creates a new Pruner worker. A zero retention disables pruning.
func NewPruner(retention time.Duration, repo storage.AnalysisRepository) *Pruner {
	return &Pruner{
		retention: retention,
		repo:      repo,
		now:       time.Now,
	}
}

// Start runs the pruner loop.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		return
	}

	// 10% of the retention period, between 1 minute and 1 hour
	interval := min(p.retention/10, 1*time.Hour)
	interval = max(interval, 1*time.Minute)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *Pruner) prune(ctx context.Context) {
	cutoff := p.now().Add(-p.retention)
	n, err := p.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		slog.Error("Failed to prune analysis history", "cutoff", cutoff, "error", err)
		return
	}
	if n > 0 {
		slog.Info("Pruned analysis history", "deleted", n, "cutoff", cutoff)
	}
}
