package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"winnow/internal/config"
	"winnow/internal/history"
	"winnow/internal/logging"
	"winnow/internal/metrics"
	"winnow/internal/sorter"
	"winnow/internal/tagcache"
	"winnow/internal/tagger"
	"winnow/internal/translator"
	"winnow/internal/watch"
)

func newTagger(cfg *config.Config, logger *slog.Logger) tagger.Tagger {
	return tagger.New(tagger.Config{
		Endpoint:        cfg.Tagger.Endpoint,
		ModelRepository: cfg.Tagger.ModelRepository,
		InputEdge:       cfg.Pipeline.InputEdge,
		TimeoutSeconds:  cfg.Tagger.TimeoutSeconds,
		RetryAttempts:   cfg.Tagger.RetryAttempts,
	}, logger)
}

func newProcessLogger(cfg *config.Config) (*slog.Logger, error) {
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	if dir := cfg.Logging.Directory; dir != "" {
		logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
			logging.RetentionTarget{
				Dir:     dir,
				Pattern: "winnow*.log",
				Exclude: []string{filepath.Join(dir, "winnow.log")},
			})
	}
	return logger, nil
}

// buildSorter wires a sorter from config. A history store that fails to
// open degrades to journal-free operation with a warning.
func buildSorter(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*sorter.Sorter, *history.Store, error) {
	tag := newTagger(cfg, logger)
	trans := translator.Load(cfg.Paths.TranslationPath, logger)
	cache := tagcache.New(cfg.Paths.CachePath, logger)

	var hist *history.Store
	if cfg.History.Enabled {
		store, err := history.Open(cfg.Paths.HistoryPath)
		if err != nil {
			logger.Warn("failed to open history journal; runs will not be recorded",
				logging.Error(err))
		} else {
			hist = store
		}
	}

	s, err := sorter.New(cfg, tag, trans, cache, hist, m, logger)
	if err != nil {
		if hist != nil {
			hist.Close()
		}
		return nil, nil, err
	}
	return s, hist, nil
}

func runBatchProcess(cmdCtx context.Context, ctx *commandContext, out io.Writer) error {
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := newProcessLogger(cfg)
	if err != nil {
		return err
	}

	s, hist, err := buildSorter(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer func() {
		s.Close()
		if hist != nil {
			hist.Close()
		}
	}()

	summary, err := s.RunBatch(signalCtx)
	if err != nil {
		return err
	}
	printSummary(out, summary)
	return nil
}

func runWatchProcess(cmdCtx context.Context, ctx *commandContext, out io.Writer) error {
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := newProcessLogger(cfg)
	if err != nil {
		return err
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	s, hist, err := buildSorter(cfg, logger, m)
	if err != nil {
		return err
	}
	defer func() {
		s.Close()
		if hist != nil {
			hist.Close()
		}
	}()

	if m != nil {
		go func() {
			if err := m.Serve(signalCtx, cfg.Metrics.Bind, logger); err != nil {
				logger.Warn("metrics endpoint failed", logging.Error(err))
			}
		}()
	}

	monitor := watch.NewMonitor(watch.Options{
		SourceDir:      cfg.Paths.SourceDir,
		SettleInterval: time.Duration(cfg.Watch.SettleIntervalMillis) * time.Millisecond,
		SettleTimeout:  time.Duration(cfg.Watch.SettleTimeoutSeconds) * time.Second,
		QueueSize:      cfg.Watch.QueueSize,
	}, s, logger, m)

	// The watcher registers before the catch-up pass so images created
	// mid-pass queue instead of slipping through; cache dedup absorbs any
	// overlap between the two.
	s.BeginWatch(signalCtx)
	if err := monitor.Start(signalCtx); err != nil {
		s.EndWatch(signalCtx)
		return err
	}

	summary, err := s.RunBatch(signalCtx)
	if err != nil {
		monitor.Stop()
		s.EndWatch(signalCtx)
		return err
	}
	printSummary(out, summary)
	fmt.Fprintf(out, "Watching %s for new images; press Ctrl-C to stop.\n", cfg.Paths.SourceDir)

	<-signalCtx.Done()
	logger.Info("winnow watch shutting down")
	monitor.Stop()
	s.EndWatch(signalCtx)
	return nil
}

func printSummary(out io.Writer, summary sorter.Summary) {
	fmt.Fprintf(out, "Run %s finished in %s\n", shortID(summary.RunID), summary.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(out, "  scanned %d, selected %d, cache hits %d, tagged %d\n",
		summary.Scanned, summary.Selected, summary.CacheHits, summary.Processed)
	fmt.Fprintf(out, "  relocated %d, no match %d, skipped %d, errors %d\n",
		summary.Relocated, summary.NoMatch, summary.Skipped, summary.Errors)
}
