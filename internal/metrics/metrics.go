// Package metrics exposes pipeline and relocation counters on a private
// prometheus registry, served at /metrics while watch mode runs.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"winnow/internal/logging"
)

const shutdownTimeout = 5 * time.Second

// Metrics carries the sorter's instrumentation. A nil *Metrics is valid and
// records nothing, so callers never branch on whether metrics are enabled.
type Metrics struct {
	registry *prometheus.Registry

	stageTotal       *prometheus.CounterVec
	stageDuration    *prometheus.HistogramVec
	inFlight         prometheus.Gauge
	cacheLookupTotal *prometheus.CounterVec
	relocationsTotal *prometheus.CounterVec
	watchEventsTotal prometheus.Counter
}

// New builds the registry and all instruments.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	stageTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "winnow",
			Subsystem: "pipeline",
			Name:      "stage_total",
			Help:      "Items leaving each pipeline stage by status.",
		},
		[]string{"stage", "status"},
	)
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "winnow",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Per-item stage duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage"},
	)
	inFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "winnow",
			Subsystem: "pipeline",
			Name:      "in_flight",
			Help:      "Images currently holding a pipeline permit.",
		},
	)
	cacheLookupTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "winnow",
			Subsystem: "cache",
			Name:      "lookup_total",
			Help:      "Tag cache lookups by result.",
		},
		[]string{"result"},
	)
	relocationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "winnow",
			Subsystem: "relocate",
			Name:      "outcomes_total",
			Help:      "Relocation decisions by outcome.",
		},
		[]string{"outcome"},
	)
	watchEventsTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "winnow",
			Subsystem: "watch",
			Name:      "images_total",
			Help:      "Images picked up by the filesystem watcher.",
		},
	)

	registry.MustRegister(
		stageTotal,
		stageDuration,
		inFlight,
		cacheLookupTotal,
		relocationsTotal,
		watchEventsTotal,
	)

	return &Metrics{
		registry:         registry,
		stageTotal:       stageTotal,
		stageDuration:    stageDuration,
		inFlight:         inFlight,
		cacheLookupTotal: cacheLookupTotal,
		relocationsTotal: relocationsTotal,
		watchEventsTotal: watchEventsTotal,
	}
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StageCompleted records one item leaving a stage successfully.
func (m *Metrics) StageCompleted(stage string, duration time.Duration) {
	if m == nil {
		return
	}
	m.stageTotal.WithLabelValues(stage, "ok").Inc()
	m.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// StageDropped records one item dropped by a stage.
func (m *Metrics) StageDropped(stage string) {
	if m == nil {
		return
	}
	m.stageTotal.WithLabelValues(stage, "dropped").Inc()
}

// ItemStarted marks a permit acquired.
func (m *Metrics) ItemStarted() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

// ItemFinished marks a permit released.
func (m *Metrics) ItemFinished() {
	if m == nil {
		return
	}
	m.inFlight.Dec()
}

// CacheLookup records a tag cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookupTotal.WithLabelValues(result).Inc()
}

// Relocation records one relocation decision by outcome.
func (m *Metrics) Relocation(outcome string) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.relocationsTotal.WithLabelValues(outcome).Inc()
}

// WatchEvent records one image picked up by the watcher.
func (m *Metrics) WatchEvent() {
	if m == nil {
		return
	}
	m.watchEventsTotal.Inc()
}

// Serve exposes /metrics on bind until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, bind string, logger *slog.Logger) error {
	if m == nil {
		return nil
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "metrics")

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{
		Addr:         bind,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics endpoint listening", logging.String("bind", bind))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics endpoint shutdown failed", logging.Error(err))
	}
	return <-errCh
}
