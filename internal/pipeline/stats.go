package pipeline

import (
	"runtime"
	"sync/atomic"
)

// Permits returns the effective permit-pool size: the configured value when
// positive, otherwise one less than the CPU count with a floor of one.
func Permits(configured int) int {
	if configured > 0 {
		return configured
	}
	n := runtime.NumCPU() - 1
	if n < 1 {
		n = 1
	}
	return n
}

// Stats tracks one pipeline invocation. Counters only grow; the total is
// fixed at construction.
type Stats struct {
	total     int64
	loaded    atomic.Int64
	predicted atomic.Int64
	processed atomic.Int64
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Total     int64
	Loaded    int64
	Predicted int64
	Processed int64
}

// NewStats builds counters for a run over total items.
func NewStats(total int) *Stats {
	return &Stats{total: int64(total)}
}

func (s *Stats) Total() int64     { return s.total }
func (s *Stats) Loaded() int64    { return s.loaded.Load() }
func (s *Stats) Predicted() int64 { return s.predicted.Load() }
func (s *Stats) Processed() int64 { return s.processed.Load() }

// Snapshot copies the counters for progress reporting.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Total:     s.total,
		Loaded:    s.loaded.Load(),
		Predicted: s.predicted.Load(),
		Processed: s.processed.Load(),
	}
}
