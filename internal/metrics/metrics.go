// Package metrics exposes Prometheus collectors for the bot and an optional
// HTTP listener serving them.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/m3rciful/mediabot/core/logger"
)

const namespace = "mediabot"

// Metrics holds the bot collectors. A nil *Metrics is a valid no-op.
type Metrics struct {
	downloads        *prometheus.CounterVec
	downloadDuration *prometheus.HistogramVec
	engineUpdates    *prometheus.CounterVec
	snapshotFailures prometheus.Counter
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Download requests by format and outcome.",
		}, []string{"format", "outcome"}),
		downloadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "download_duration_seconds",
			Help:      "Time spent in the download engine.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"format"}),
		engineUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_updates_total",
			Help:      "Engine self-update attempts by outcome.",
		}, []string{"outcome"}),
		snapshotFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_failures_total",
			Help:      "Registry snapshot saves that failed.",
		}),
	}
	for _, c := range []prometheus.Collector{m.downloads, m.downloadDuration, m.engineUpdates, m.snapshotFailures} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("metrics: register: %w", err)
		}
	}
	return m, nil
}

// ObserveDownload records a finished download attempt.
func (m *Metrics) ObserveDownload(format, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.downloads.WithLabelValues(format, outcome).Inc()
	m.downloadDuration.WithLabelValues(format).Observe(took.Seconds())
}

// EngineUpdate records a self-update attempt.
func (m *Metrics) EngineUpdate(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "fail"
	}
	m.engineUpdates.WithLabelValues(outcome).Inc()
}

// SnapshotFailed records a failed registry save.
func (m *Metrics) SnapshotFailed(error) {
	if m == nil {
		return
	}
	m.snapshotFailures.Inc()
}

// Serve exposes g on listen at /metrics until ctx is done.
func Serve(ctx context.Context, listen string, g prometheus.Gatherer) error {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "metrics", "metrics.listen", slog.String("listen", listen))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics: listen %s: %w", listen, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics: shutdown: %w", err)
		}
		return ctx.Err()
	}
}
