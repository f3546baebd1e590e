// Package refresher periodically updates the download engine.
package refresher

import (
	"context"
	"log/slog"
	"time"

	"github.com/m3rciful/mediabot/core/logger"
	"github.com/m3rciful/mediabot/internal/metrics"
)

// DefaultInterval is the time between two updates.
const DefaultInterval = time.Hour

// Updater is the engine side of the refresher.
type Updater interface {
	SelfUpdate(ctx context.Context) error
}

// Refresher calls SelfUpdate on a fixed interval.
type Refresher struct {
	updater  Updater
	interval time.Duration
	metrics  *metrics.Metrics
}

// New returns a refresher; a non-positive interval means DefaultInterval.
func New(u Updater, interval time.Duration, m *metrics.Metrics) *Refresher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Refresher{updater: u, interval: interval, metrics: m}
}

// Run blocks until ctx is done. The first update happens one interval after start.
func (r *Refresher) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Refresher) tick(ctx context.Context) {
	start := time.Now()
	err := r.updater.SelfUpdate(ctx)
	r.metrics.EngineUpdate(err)
	if err != nil {
		logger.Warn(ctx, "refresher", "engine.update",
			slog.String("status", "fail"),
			slog.Any("err", err),
		)
		return
	}
	logger.Info(ctx, "refresher", "engine.update",
		slog.String("status", "ok"),
		slog.Duration("took_ms", logger.Took(start)),
	)
}
