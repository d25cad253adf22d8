package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/smashingtags/homelabarr-containers/internal/infra/storage"
)

// Pruner deletes old connection events based on retention policy.
type Pruner struct {
	retention time.Duration
	repo      storage.Pruner
	now       func() time.Time
}

// NewPruner creates a new Pruner worker.
func NewPruner(retention time.Duration, repo storage.Pruner) *Pruner {
	return &Pruner{
		retention: retention,
		repo:      repo,
		now:       time.Now,
	}
}

// Start runs the pruner loop.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 || p.repo == nil {
		return // Retention disabled
	}

	// Check at 10% of the retention period, clamped to [1m, 1h]
	interval := min(p.retention/10, 1*time.Hour)
	interval = max(interval, 1*time.Minute)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Initial prune
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
	threshold := p.now().Add(-p.retention)

	n, err := p.repo.DeleteOlderThan(ctx, threshold)
	if err != nil {
		slog.Error("Failed to prune connection events", "before", threshold, "error", err)
		return
	}
	if n > 0 {
		slog.Debug("Pruned connection events", "count", n, "before", threshold)
	}
}
