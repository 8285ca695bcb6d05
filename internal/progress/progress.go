// Package progress periodically reports pipeline counters while a run is in
// flight. Reporting is best effort: the monitor never blocks the pipeline
// and never outlives its context.
package progress

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"winnow/internal/logging"
	"winnow/internal/pipeline"
)

const defaultInterval = 5 * time.Second

// Tracker supplies run counters. *pipeline.Stats satisfies it.
type Tracker interface {
	Snapshot() pipeline.Snapshot
}

// Monitor logs progress snapshots on a fixed cadence, deduplicated through
// a sampler so quiet stretches stay quiet.
type Monitor struct {
	logger   *slog.Logger
	interval time.Duration
	sampler  *logging.ProgressSampler
}

// NewMonitor builds a monitor. A non-positive interval falls back to five
// seconds.
func NewMonitor(logger *slog.Logger, interval time.Duration) *Monitor {
	if logger == nil {
		logger = logging.NewNop()
	}
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Monitor{
		logger:   logging.NewComponentLogger(logger, "progress"),
		interval: interval,
		sampler:  logging.NewProgressSampler(0),
	}
}

// Watch reports until ctx is cancelled. Run it in its own goroutine next to
// the pipeline and cancel the context once the run drains.
func (m *Monitor) Watch(ctx context.Context, stage string, tracker Tracker) {
	if tracker == nil || tracker.Snapshot().Total == 0 {
		return
	}
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	start := time.Now()
	m.sampler.Reset()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.report(stage, tracker.Snapshot(), start)
		}
	}
}

func (m *Monitor) report(stage string, snap pipeline.Snapshot, start time.Time) {
	percent := float64(snap.Processed) / float64(snap.Total) * 100
	message := fmt.Sprintf("%d/%d processed (%d loaded, %d predicted)",
		snap.Processed, snap.Total, snap.Loaded, snap.Predicted)
	if !m.sampler.ShouldLog(percent, stage, message) {
		return
	}
	attrs := []any{
		logging.String(logging.FieldProgressStage, stage),
		logging.Float64(logging.FieldProgressPercent, percent),
		logging.String(logging.FieldProgressMessage, message),
	}
	if eta, ok := estimate(snap, time.Since(start)); ok {
		attrs = append(attrs, logging.String(logging.FieldProgressETA, eta.Round(time.Second).String()))
	}
	m.logger.Info("pipeline progress", attrs...)
}

// estimate projects the remaining time from the average pace so far.
func estimate(snap pipeline.Snapshot, elapsed time.Duration) (time.Duration, bool) {
	if snap.Processed <= 0 || elapsed <= 0 || snap.Processed >= snap.Total {
		return 0, false
	}
	perItem := elapsed / time.Duration(snap.Processed)
	return perItem * time.Duration(snap.Total-snap.Processed), true
}
