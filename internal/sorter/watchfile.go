package sorter

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"winnow/internal/history"
	"winnow/internal/identity"
	"winnow/internal/logging"
	"winnow/internal/pipeline"
	"winnow/internal/relocate"
	"winnow/internal/selector"
	"winnow/internal/services"
)

// ProcessFile runs one watched image through the same fingerprint, tag,
// and relocate flow as a batch pass. It shares the batch mutex, so a
// watched file waits out any batch run in progress.
func (s *Sorter) ProcessFile(ctx context.Context, path string) error {
	if !selector.IsImage(path) {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	runID := s.currentWatchRun()
	ctx = services.WithMode(ctx, modeWatch)
	if runID != "" {
		ctx = services.WithRunID(ctx, runID)
	}
	logger := logging.WithContext(ctx, s.logger)

	fp, err := identity.Compute(ctx, path)
	if err != nil {
		return services.Wrap(services.ErrTransient, "sorter", "fingerprint", "failed to fingerprint watched image", err)
	}
	s.addWatchCounters(history.Counters{Scanned: 1, Selected: 1})

	record, cached := s.cache.Lookup(fp)
	if cached {
		s.metrics.CacheLookup(true)
		s.addWatchCounters(history.Counters{CacheHits: 1})
	} else {
		s.metrics.CacheLookup(false)
		stats := pipeline.NewStats(1)
		requests := []pipeline.Request{{Path: path, Fingerprint: fp}}
		if err := s.watchPipeline.Run(ctx, requests, stats, s.cacheSink(logger)); err != nil {
			return err
		}
		s.addWatchCounters(history.Counters{Processed: stats.Processed()})
		record, cached = s.cache.Lookup(fp)
		if !cached {
			// Dropped during tagging; the warning is already logged.
			return nil
		}
	}

	if record.Path != path {
		record.Path = path
		record.FileName = filepath.Base(path)
		if err := s.cache.Upsert(fp, record); err != nil {
			logger.Warn("failed to refresh cached path", logging.Error(err))
		}
	}

	result, err := s.relocator.Relocate(ctx, fp, record)
	if err != nil {
		return err
	}
	s.metrics.Relocation(string(result.Outcome))
	s.journalRelocation(ctx, logger, runID, fp, path, result)
	if result.Outcome == relocate.OutcomeMoved {
		s.addWatchCounters(history.Counters{Relocated: 1})
	} else {
		s.addWatchCounters(history.Counters{Skipped: 1})
	}
	return nil
}

// BeginWatch opens a journal entry covering one watch session and returns
// its run id.
func (s *Sorter) BeginWatch(ctx context.Context) string {
	runID := uuid.NewString()

	s.watchMu.Lock()
	s.watchRunID = runID
	s.watchCounters = history.Counters{}
	s.watchMu.Unlock()

	if err := s.history.BeginRun(ctx, runID, modeWatch, time.Now()); err != nil {
		s.logger.Warn("failed to journal watch start", logging.Error(err))
	}
	return runID
}

// EndWatch closes the journal entry opened by BeginWatch with the counters
// accumulated across the session.
func (s *Sorter) EndWatch(ctx context.Context) {
	s.watchMu.Lock()
	runID := s.watchRunID
	counters := s.watchCounters
	s.watchRunID = ""
	s.watchCounters = history.Counters{}
	s.watchMu.Unlock()

	if runID == "" {
		return
	}
	if err := s.history.FinishRun(context.WithoutCancel(ctx), runID, counters, ""); err != nil {
		s.logger.Warn("failed to journal watch completion", logging.Error(err))
	}
}

func (s *Sorter) currentWatchRun() string {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	return s.watchRunID
}

func (s *Sorter) addWatchCounters(delta history.Counters) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	s.watchCounters.Scanned += delta.Scanned
	s.watchCounters.Selected += delta.Selected
	s.watchCounters.CacheHits += delta.CacheHits
	s.watchCounters.Processed += delta.Processed
	s.watchCounters.Relocated += delta.Relocated
	s.watchCounters.Skipped += delta.Skipped
}
