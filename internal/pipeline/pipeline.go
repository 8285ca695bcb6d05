package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"winnow/internal/identity"
	"winnow/internal/logging"
	"winnow/internal/metrics"
	"winnow/internal/tagcache"
	"winnow/internal/tagger"
	"winnow/internal/translator"
)

// Request is one image submitted to the pipeline.
type Request struct {
	Path        string
	Fingerprint identity.Fingerprint
}

// Sink receives each finalized record, called synchronously from the
// post-process stage.
type Sink func(fingerprint identity.Fingerprint, record tagcache.Record)

// Config tunes one pipeline instance.
type Config struct {
	Concurrency     int
	Thresholds      tagger.Thresholds
	ModelRepository string
}

// item is one image moving through the stages, owned exclusively by the
// stage currently holding it.
type item struct {
	req        Request
	input      tagger.Input
	prediction tagger.Prediction
	record     tagcache.Record
}

// Pipeline runs load, infer, and post-process over submitted images.
type Pipeline struct {
	cfg        Config
	tagger     tagger.Tagger
	translator translator.Translator
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// New builds a pipeline around the given capabilities.
func New(cfg Config, tag tagger.Tagger, trans translator.Translator, logger *slog.Logger, m *metrics.Metrics) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	if trans == nil {
		trans = translator.Passthrough{}
	}
	return &Pipeline{
		cfg:        cfg,
		tagger:     tag,
		translator: trans,
		logger:     logging.NewComponentLogger(logger, "pipeline"),
		metrics:    m,
	}
}

// Run processes requests and hands each surviving record to sink. It returns
// once post-process has drained, or with the context error on cancellation.
func (p *Pipeline) Run(ctx context.Context, requests []Request, stats *Stats, sink Sink) error {
	if len(requests) == 0 {
		return nil
	}
	if stats == nil {
		stats = NewStats(len(requests))
	}
	if sink == nil {
		sink = func(identity.Fingerprint, tagcache.Record) {}
	}

	permits := Permits(p.cfg.Concurrency)
	sem := semaphore.NewWeighted(int64(permits))

	group, ctx := errgroup.WithContext(ctx)
	loadCh := make(chan Request)
	inferCh := make(chan *item)
	postCh := make(chan *item)

	group.Go(func() error {
		defer close(loadCh)
		for _, req := range requests {
			select {
			case loadCh <- req:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	var loadWG, inferWG sync.WaitGroup
	for i := 0; i < permits; i++ {
		loadWG.Add(1)
		group.Go(func() error {
			defer loadWG.Done()
			return p.runLoad(ctx, sem, stats, loadCh, inferCh)
		})
		inferWG.Add(1)
		group.Go(func() error {
			defer inferWG.Done()
			return p.runInfer(ctx, sem, stats, inferCh, postCh)
		})
		group.Go(func() error {
			return p.runPostProcess(ctx, sem, stats, postCh, sink)
		})
	}
	go func() {
		loadWG.Wait()
		close(inferCh)
	}()
	go func() {
		inferWG.Wait()
		close(postCh)
	}()

	return group.Wait()
}

func (p *Pipeline) runLoad(ctx context.Context, sem *semaphore.Weighted, stats *Stats, in <-chan Request, out chan<- *item) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req, ok := <-in:
			if !ok {
				return nil
			}
			it, err := p.loadOne(ctx, sem, stats, req)
			if err != nil {
				return err
			}
			if it == nil {
				continue
			}
			select {
			case out <- it:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (p *Pipeline) runInfer(ctx context.Context, sem *semaphore.Weighted, stats *Stats, in <-chan *item, out chan<- *item) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case it, ok := <-in:
			if !ok {
				return nil
			}
			it, err := p.inferOne(ctx, sem, stats, it)
			if err != nil {
				return err
			}
			if it == nil {
				continue
			}
			select {
			case out <- it:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (p *Pipeline) runPostProcess(ctx context.Context, sem *semaphore.Weighted, stats *Stats, in <-chan *item, sink Sink) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case it, ok := <-in:
			if !ok {
				return nil
			}
			record, err := p.finalizeOne(ctx, sem, it)
			if err != nil {
				return err
			}
			if record == nil {
				continue
			}
			sink(it.req.Fingerprint, *record)
			stats.processed.Add(1)
		}
	}
}

// dropItem logs a per-item failure and records the drop; the pipeline keeps
// going.
func (p *Pipeline) dropItem(stage string, req Request, msg string, err error) {
	p.metrics.StageDropped(stage)
	p.logger.Warn(msg,
		logging.String(logging.FieldStage, stage),
		logging.String(logging.FieldImage, req.Path),
		logging.String(logging.FieldFingerprint, req.Fingerprint.Short()),
		logging.String(logging.FieldEventType, "item_dropped"),
		logging.String(logging.FieldErrorHint, "image skipped; fix the file and rerun"),
		logging.Error(err))
}
