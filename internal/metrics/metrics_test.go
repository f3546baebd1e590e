package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.ObserveDownload("hd", "ok", time.Second)
	m.ObserveDownload("hd", "ok", time.Second)
	m.ObserveDownload("audio", "fail", time.Second)
	m.EngineUpdate(nil)
	m.EngineUpdate(errors.New("x"))
	m.SnapshotFailed(errors.New("x"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.downloads.WithLabelValues("hd", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.downloads.WithLabelValues("audio", "fail")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.engineUpdates.WithLabelValues("fail")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.snapshotFailures))

	_, err = New(reg)
	assert.Error(t, err, "duplicate registration must fail")
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveDownload("hd", "ok", time.Second)
	m.EngineUpdate(nil)
	m.SnapshotFailed(nil)
}

func TestServeStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, "127.0.0.1:0", prometheus.NewRegistry()) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not stop")
	}
}
