// Package metrics exposes Prometheus counters for credential synchronization.
// Registration is lazy and optional: until InitMetrics is called every
// recording method is a no-op, so library callers pay nothing.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncStartedTotal   *prometheus.CounterVec
	syncCompletedTotal *prometheus.CounterVec
	syncDuration       *prometheus.HistogramVec
	storeAttemptsTotal *prometheus.CounterVec

	metricsOnce       sync.Once
	metricsRegistered bool
)

// SyncMetrics provides methods to record synchronization metrics.
type SyncMetrics struct{}

// NewSyncMetrics creates a new SyncMetrics instance.
// Metrics are only recorded after InitMetrics has run.
func NewSyncMetrics() *SyncMetrics {
	return &SyncMetrics{}
}

// InitMetrics registers all Prometheus metrics.
// Call once at startup when metrics are enabled.
func InitMetrics() {
	metricsOnce.Do(func() {
		syncStartedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credsync_sync_started_total",
				Help: "Total number of credential fan-out operations started",
			},
			[]string{"operation"},
		)

		syncCompletedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credsync_sync_completed_total",
				Help: "Total number of credential fan-out operations completed",
			},
			[]string{"operation", "status"},
		)

		syncDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "credsync_sync_duration_seconds",
				Help:    "Duration of credential fan-out operations in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"operation"},
		)

		storeAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credsync_store_attempts_total",
				Help: "Total number of per-store propagation attempts",
			},
			[]string{"store", "result"},
		)

		metricsRegistered = true
	})
}

// RecordSyncStarted records the start of a fan-out operation.
func (m *SyncMetrics) RecordSyncStarted(operation string) {
	if !metricsRegistered || syncStartedTotal == nil {
		return
	}
	syncStartedTotal.WithLabelValues(operation).Inc()
}

// RecordSyncCompleted records a finished fan-out with its outcome status.
func (m *SyncMetrics) RecordSyncCompleted(operation, status string, durationSeconds float64) {
	if !metricsRegistered {
		return
	}

	if syncCompletedTotal != nil {
		syncCompletedTotal.WithLabelValues(operation, status).Inc()
	}

	if syncDuration != nil {
		syncDuration.WithLabelValues(operation).Observe(durationSeconds)
	}
}

// RecordStoreAttempt records one propagation attempt against a store.
func (m *SyncMetrics) RecordStoreAttempt(store string, success bool) {
	if !metricsRegistered || storeAttemptsTotal == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	storeAttemptsTotal.WithLabelValues(store, result).Inc()
}
