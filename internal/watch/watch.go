// Package watch runs the live mode: an fsnotify watcher on the source
// directory feeds newly created images, once their size settles, through a
// runner one at a time.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"winnow/internal/logging"
	"winnow/internal/metrics"
	"winnow/internal/selector"
)

const (
	defaultSettleInterval = 400 * time.Millisecond
	defaultSettleTimeout  = 30 * time.Second
	defaultQueueSize      = 64
)

// Runner processes one settled image. The sorter's single-image entry point
// satisfies it.
type Runner interface {
	ProcessFile(ctx context.Context, path string) error
}

// Options tunes one watch monitor.
type Options struct {
	SourceDir      string
	SettleInterval time.Duration
	SettleTimeout  time.Duration
	QueueSize      int
}

func (o *Options) normalize() {
	if o.SettleInterval <= 0 {
		o.SettleInterval = defaultSettleInterval
	}
	if o.SettleTimeout <= 0 {
		o.SettleTimeout = defaultSettleTimeout
	}
	if o.QueueSize <= 0 {
		o.QueueSize = defaultQueueSize
	}
}

// Monitor owns the watcher lifecycle. Create events are filtered and
// enqueued by the event loop; a single worker drains the queue so watched
// images never process concurrently.
type Monitor struct {
	opts    Options
	runner  Runner
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	watcher *fsnotify.Watcher
	queue   chan string
}

// NewMonitor builds a monitor around the runner.
func NewMonitor(opts Options, runner Runner, logger *slog.Logger, m *metrics.Metrics) *Monitor {
	if logger == nil {
		logger = logging.NewNop()
	}
	opts.normalize()
	return &Monitor{
		opts:    opts,
		runner:  runner,
		logger:  logging.NewComponentLogger(logger, "watch"),
		metrics: m,
	}
}

// Start begins watching the source directory. It fails when the directory
// cannot be watched or the monitor already runs.
func (m *Monitor) Start(ctx context.Context) error {
	if m == nil {
		return errors.New("watch monitor unavailable")
	}
	if m.runner == nil {
		return errors.New("watch monitor requires a runner")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return errors.New("watch monitor already running")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(m.opts.SourceDir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", m.opts.SourceDir, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.ctx = runCtx
	m.cancel = cancel
	m.watcher = watcher
	m.queue = make(chan string, m.opts.QueueSize)
	m.running = true

	m.wg.Add(2)
	go m.eventLoop()
	go m.workLoop()

	m.logger.Info("watching for new images",
		logging.String("source_dir", m.opts.SourceDir),
		logging.String(logging.FieldMode, "watch"))
	return nil
}

// Stop halts the watcher and waits for in-flight work to finish.
func (m *Monitor) Stop() {
	if m == nil {
		return
	}
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	watcher := m.watcher
	m.running = false
	m.cancel = nil
	m.watcher = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if watcher != nil {
		if err := watcher.Close(); err != nil {
			m.logger.Warn("failed to close watcher", logging.Error(err))
		}
	}
	m.wg.Wait()
}

// eventLoop filters watcher events down to image creations and enqueues
// them. A full queue drops the event with a warning rather than stalling
// the kernel event stream.
func (m *Monitor) eventLoop() {
	defer m.wg.Done()
	for {
		select {
		case <-m.ctx.Done():
			return
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) || !selector.IsImage(event.Name) {
				continue
			}
			m.metrics.WatchEvent()
			select {
			case m.queue <- event.Name:
			default:
				m.logger.Warn("ingestion queue full; dropping image",
					logging.String(logging.FieldImage, event.Name),
					logging.String(logging.FieldEventType, "watch_queue_full"),
					logging.String(logging.FieldErrorHint, "raise watch.queue_size or run a batch pass to catch up"))
			}
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.logger.Warn("watcher error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "watch_error"))
		}
	}
}

func (m *Monitor) workLoop() {
	defer m.wg.Done()
	for {
		select {
		case <-m.ctx.Done():
			return
		case path := <-m.queue:
			m.handle(path)
		}
	}
}

func (m *Monitor) handle(path string) {
	ctx := m.ctx
	if err := m.awaitSettle(ctx, path); err != nil {
		if ctx.Err() != nil {
			return
		}
		m.logger.Warn("image never settled; skipping",
			logging.String(logging.FieldImage, path),
			logging.String(logging.FieldEventType, "watch_settle_failed"),
			logging.Error(err))
		return
	}
	if err := m.runner.ProcessFile(ctx, path); err != nil {
		if ctx.Err() != nil {
			return
		}
		m.logger.Warn("failed to process watched image",
			logging.String(logging.FieldImage, path),
			logging.String(logging.FieldEventType, "watch_process_failed"),
			logging.Error(err))
	}
}

// awaitSettle waits until two consecutive size samples taken one settle
// interval apart agree. Files still growing at the timeout are given up on.
func (m *Monitor) awaitSettle(ctx context.Context, path string) error {
	deadline := time.Now().Add(m.opts.SettleTimeout)
	var lastSize int64 = -1
	for {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("stat watched image: %w", err)
		}
		size := info.Size()
		if size == lastSize {
			return nil
		}
		lastSize = size
		if time.Now().After(deadline) {
			return fmt.Errorf("size still changing after %s", m.opts.SettleTimeout)
		}
		timer := time.NewTimer(m.opts.SettleInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
