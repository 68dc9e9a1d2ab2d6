// Package scheduler periodically refreshes prices that have gone stale.
package scheduler

import (
	"context"
	"log/slog"
	"time"
)

const (
	defaultInterval = time.Hour
	defaultMaxAge   = 24 * time.Hour
)

// Refresher re-resolves prices older than maxAge and reports how many it refreshed.
type Refresher interface {
	RefreshStale(ctx context.Context, maxAge time.Duration) (int, error)
}

type Config struct {
	Interval time.Duration
	MaxAge   time.Duration
}

// Run performs one pass immediately, then one per interval, and blocks until
// ctx is cancelled.
func Run(ctx context.Context, r Refresher, cfg Config, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "scheduler")

	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = defaultMaxAge
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("scheduler started", "interval", interval, "max_age", maxAge)

	refresh(ctx, r, maxAge, logger)

	for {
		select {
		case <-ctx.Done():
			logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			refresh(ctx, r, maxAge, logger)
		}
	}
}

func refresh(ctx context.Context, r Refresher, maxAge time.Duration, logger *slog.Logger) {
	start := time.Now()
	n, err := r.RefreshStale(ctx, maxAge)
	if err != nil {
		if ctx.Err() == nil {
			logger.Error("stale price refresh failed", "error", err, "refreshed", n)
		}
		return
	}
	logger.Info("stale prices refreshed", "refreshed", n, "duration_ms", time.Since(start).Milliseconds())
}
