package jobs

import (
	"context"
	"log/slog"
	"time"
)

const (
	DefaultRetention     = 24 * time.Hour
	DefaultEvictInterval = 10 * time.Minute
)

// Janitor periodically evicts jobs older than the retention window.
type Janitor struct {
	Store     Store
	Retention time.Duration
	Interval  time.Duration
	Logger    *slog.Logger
}

// Run evicts once immediately and then on every tick until ctx is done.
func (j *Janitor) Run(ctx context.Context) {
	retention := j.Retention
	if retention <= 0 {
		retention = DefaultRetention
	}
	interval := j.Interval
	if interval <= 0 {
		interval = DefaultEvictInterval
	}
	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		n, err := j.Store.Evict(ctx, retention)
		switch {
		case err != nil && ctx.Err() == nil:
			logger.Warn("job eviction failed", "error", err)
		case n > 0:
			logger.Info("evicted expired jobs", "count", n, "retention", retention)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
