package sorter

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"winnow/internal/identity"
	"winnow/internal/logging"
	"winnow/internal/pipeline"
	"winnow/internal/preflight"
	"winnow/internal/relocate"
	"winnow/internal/selector"
	"winnow/internal/services"
)

type batchItem struct {
	path        string
	fingerprint identity.Fingerprint
}

// RunBatch processes every image currently in the source directory: list,
// select one file per logical image, fingerprint, tag the cache misses,
// then relocate everything with a match. Relocation starts only after the
// pipeline has drained, so a run that dies mid-tagging moves nothing it
// did not finish.
func (s *Sorter) RunBatch(ctx context.Context) (Summary, error) {
	if err := preflight.Gate(ctx, s.cfg, s.tagger); err != nil {
		return Summary{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	summary := Summary{RunID: uuid.NewString(), Mode: modeBatch}
	ctx = services.WithRunID(ctx, summary.RunID)
	ctx = services.WithMode(ctx, modeBatch)
	logger := logging.WithContext(ctx, s.logger)

	if err := s.history.BeginRun(ctx, summary.RunID, modeBatch, start); err != nil {
		logger.Warn("failed to journal run start", logging.Error(err))
	}

	paths, err := selector.List(s.cfg.Paths.SourceDir)
	if err != nil {
		wrapped := services.Wrap(services.ErrTransient, "sorter", "scan source", "failed to list source directory", err)
		s.finishRun(ctx, logger, summary.RunID, summary.counters(), wrapped)
		return summary, wrapped
	}
	summary.Scanned = len(paths)

	selections := selector.Select(paths)
	summary.Selected = len(selections)
	logger.Info("batch scan complete",
		logging.Int("scanned", summary.Scanned),
		logging.Int("selected", summary.Selected))

	items := make([]batchItem, 0, len(selections))
	requests := make([]pipeline.Request, 0, len(selections))
	queued := make(map[identity.Fingerprint]struct{})
	for _, sel := range selections {
		fp, err := identity.Compute(ctx, sel.Path)
		if err != nil {
			if ctx.Err() != nil {
				s.finishRun(ctx, logger, summary.RunID, summary.counters(), ctx.Err())
				return summary, ctx.Err()
			}
			logger.Warn("failed to fingerprint image; skipping",
				logging.String(logging.FieldImage, sel.Path),
				logging.Error(err))
			summary.Errors++
			continue
		}
		items = append(items, batchItem{path: sel.Path, fingerprint: fp})
		if _, ok := s.cache.Lookup(fp); ok {
			s.metrics.CacheLookup(true)
			summary.CacheHits++
			continue
		}
		if _, dup := queued[fp]; dup {
			// Identical bytes under another name; one request covers both.
			summary.CacheHits++
			continue
		}
		s.metrics.CacheLookup(false)
		queued[fp] = struct{}{}
		requests = append(requests, pipeline.Request{Path: sel.Path, Fingerprint: fp})
	}

	if len(requests) > 0 {
		stats := pipeline.NewStats(len(requests))
		if err := s.runPipeline(ctx, s.batchPipeline, requests, stats, logger); err != nil {
			summary.Processed = stats.Processed()
			s.finishRun(ctx, logger, summary.RunID, summary.counters(), err)
			return summary, err
		}
		summary.Processed = stats.Processed()
	}

	if err := s.relocateAll(ctx, logger, summary.RunID, items, &summary); err != nil {
		s.finishRun(ctx, logger, summary.RunID, summary.counters(), err)
		return summary, err
	}

	summary.Elapsed = time.Since(start)
	s.finishRun(ctx, logger, summary.RunID, summary.counters(), nil)
	logger.Info("batch run complete",
		logging.Int("scanned", summary.Scanned),
		logging.Int("selected", summary.Selected),
		logging.Int("cache_hits", summary.CacheHits),
		logging.Int64("processed", summary.Processed),
		logging.Int("relocated", summary.Relocated),
		logging.Int("no_match", summary.NoMatch),
		logging.Int("skipped", summary.Skipped),
		logging.Int("errors", summary.Errors),
		logging.Duration("elapsed", summary.Elapsed))
	return summary, nil
}

// runPipeline runs the tagging pipeline with a progress monitor attached
// for the duration of the run.
func (s *Sorter) runPipeline(ctx context.Context, p *pipeline.Pipeline, requests []pipeline.Request, stats *pipeline.Stats, logger *slog.Logger) error {
	progressCtx, stopProgress := context.WithCancel(ctx)
	var progressDone sync.WaitGroup
	progressDone.Add(1)
	go func() {
		defer progressDone.Done()
		s.progress.Watch(progressCtx, modeBatch, stats)
	}()

	err := p.Run(ctx, requests, stats, s.cacheSink(logger))
	stopProgress()
	progressDone.Wait()
	return err
}

// relocateAll sweeps every fingerprinted item after the pipeline drained.
// Items absent from the cache were dropped during tagging and are left
// alone for a later rerun.
func (s *Sorter) relocateAll(ctx context.Context, logger *slog.Logger, runID string, items []batchItem, summary *Summary) error {
	for _, item := range items {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		record, ok := s.cache.Lookup(item.fingerprint)
		if !ok {
			continue
		}
		// A cached record can point at an older path for the same bytes.
		// Refresh it so the copy reads the file that is actually present.
		if record.Path != item.path {
			record.Path = item.path
			record.FileName = filepath.Base(item.path)
			if err := s.cache.Upsert(item.fingerprint, record); err != nil {
				logger.Warn("failed to refresh cached path", logging.Error(err))
			}
		}

		result, err := s.relocator.Relocate(ctx, item.fingerprint, record)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("failed to relocate image",
				logging.String(logging.FieldImage, item.path),
				logging.String(logging.FieldFingerprint, item.fingerprint.Short()),
				logging.Error(err))
			summary.Errors++
			continue
		}
		s.metrics.Relocation(string(result.Outcome))
		s.journalRelocation(ctx, logger, runID, item.fingerprint, item.path, result)
		switch result.Outcome {
		case relocate.OutcomeMoved:
			summary.Relocated++
		case relocate.OutcomeNoMatch:
			summary.NoMatch++
		default:
			summary.Skipped++
		}
	}
	return nil
}
