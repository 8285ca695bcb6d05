// Package sorter wires the full winnow flow together: scan the source,
// dedup against the tag cache, pipeline the misses, then relocate matches
// into the destination. One coarse mutex serializes batch passes and
// watched files so their item sequences never interleave.
package sorter

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"winnow/internal/config"
	"winnow/internal/history"
	"winnow/internal/identity"
	"winnow/internal/logging"
	"winnow/internal/metrics"
	"winnow/internal/pipeline"
	"winnow/internal/progress"
	"winnow/internal/relocate"
	"winnow/internal/services"
	"winnow/internal/tagcache"
	"winnow/internal/tagger"
	"winnow/internal/translator"
)

const (
	modeBatch = "batch"
	modeWatch = "watch"
)

// Summary reports what one run saw and did.
type Summary struct {
	RunID     string
	Mode      string
	Scanned   int
	Selected  int
	CacheHits int
	Processed int64
	Relocated int
	NoMatch   int
	Skipped   int
	Errors    int
	Elapsed   time.Duration
}

func (s Summary) counters() history.Counters {
	return history.Counters{
		Scanned:   int64(s.Scanned),
		Selected:  int64(s.Selected),
		CacheHits: int64(s.CacheHits),
		Processed: s.Processed,
		Relocated: int64(s.Relocated),
		Skipped:   int64(s.NoMatch + s.Skipped),
	}
}

// Sorter is the orchestrator owning the cache, target set, and
// capabilities for one winnow process.
type Sorter struct {
	cfg       *config.Config
	logger    *slog.Logger
	cache     *tagcache.Cache
	tagger    tagger.Tagger
	relocator *relocate.Relocator
	history   *history.Store
	metrics   *metrics.Metrics
	progress  *progress.Monitor

	// batchPipeline runs at the configured concurrency; watchPipeline
	// processes one watched file at a time.
	batchPipeline *pipeline.Pipeline
	watchPipeline *pipeline.Pipeline

	lock *flock.Flock

	mu sync.Mutex

	watchMu       sync.Mutex
	watchRunID    string
	watchCounters history.Counters
}

// New assembles a sorter and takes the cross-process cache lock. Callers
// must Close it to release the lock.
func New(cfg *config.Config, tag tagger.Tagger, trans translator.Translator, cache *tagcache.Cache, hist *history.Store, m *metrics.Metrics, logger *slog.Logger) (*Sorter, error) {
	if cfg == nil {
		return nil, errors.New("sorter requires a config")
	}
	if tag == nil {
		return nil, errors.New("sorter requires a tagger")
	}
	if cache == nil {
		return nil, errors.New("sorter requires a cache")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "sorter", "ensure directories", "failed to create working directories", err)
	}

	thresholds := tagger.Thresholds{
		General:       cfg.Tagger.GeneralThreshold,
		Character:     cfg.Tagger.CharacterThreshold,
		GeneralMCut:   cfg.Tagger.GeneralMCut,
		CharacterMCut: cfg.Tagger.CharacterMCut,
	}
	batchCfg := pipeline.Config{
		Concurrency:     cfg.Pipeline.Concurrency,
		Thresholds:      thresholds,
		ModelRepository: cfg.Tagger.ModelRepository,
	}
	watchCfg := batchCfg
	watchCfg.Concurrency = 1

	s := &Sorter{
		cfg:           cfg,
		logger:        logging.NewComponentLogger(logger, "sorter"),
		cache:         cache,
		tagger:        tag,
		relocator:     relocate.New(cfg.Paths.DestinationDir, relocate.NewTargetSet(cfg.Targets.Tags), cache, logger),
		history:       hist,
		metrics:       m,
		progress:      progress.NewMonitor(logger, 0),
		batchPipeline: pipeline.New(batchCfg, tag, trans, logger, m),
		watchPipeline: pipeline.New(watchCfg, tag, trans, logger, m),
	}

	if err := s.acquireLock(); err != nil {
		return nil, err
	}
	return s, nil
}

// acquireLock takes an advisory lock next to the cache file so two winnow
// processes never share one cache. A pathless cache has nothing to protect.
func (s *Sorter) acquireLock() error {
	cachePath := s.cfg.Paths.CachePath
	if cachePath == "" {
		return nil
	}
	lockPath := cachePath + ".lock"
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "sorter", "lock cache", "failed to create cache directory", err)
	}

	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "sorter", "lock cache", "failed to acquire cache lock", err)
	}
	if !ok {
		return services.Wrap(services.ErrConfiguration, "sorter", "lock cache", "another winnow process is using this cache", nil)
	}
	s.lock = lock
	return nil
}

// Close releases the cache lock.
func (s *Sorter) Close() error {
	if s == nil || s.lock == nil {
		return nil
	}
	if err := s.lock.Unlock(); err != nil {
		s.logger.Warn("failed to release cache lock", logging.Error(err))
		return err
	}
	s.lock = nil
	return nil
}

// cacheSink persists each finished record as the pipeline hands it over.
func (s *Sorter) cacheSink(logger *slog.Logger) pipeline.Sink {
	return func(fp identity.Fingerprint, record tagcache.Record) {
		if err := s.cache.Upsert(fp, record); err != nil {
			logger.Warn("failed to persist tag record",
				logging.String(logging.FieldImage, record.Path),
				logging.String(logging.FieldFingerprint, fp.Short()),
				logging.String(logging.FieldEventType, "cache_persist_failed"),
				logging.Error(err))
		}
	}
}

func (s *Sorter) journalRelocation(ctx context.Context, logger *slog.Logger, runID string, fp identity.Fingerprint, sourcePath string, result relocate.Result) {
	if runID == "" {
		return
	}
	rel := history.Relocation{
		RunID:       runID,
		Fingerprint: string(fp),
		SourcePath:  sourcePath,
		Destination: result.Destination,
		MatchedTag:  result.MatchedTag,
		Outcome:     string(result.Outcome),
	}
	if err := s.history.AddRelocation(ctx, rel); err != nil {
		logger.Warn("failed to journal relocation", logging.Error(err))
	}
}

// finishRun closes out the journal entry even when the run context was
// already cancelled.
func (s *Sorter) finishRun(ctx context.Context, logger *slog.Logger, runID string, counters history.Counters, runErr error) {
	message := ""
	if runErr != nil {
		message = runErr.Error()
	}
	if err := s.history.FinishRun(context.WithoutCancel(ctx), runID, counters, message); err != nil {
		logger.Warn("failed to journal run completion", logging.Error(err))
	}
}
