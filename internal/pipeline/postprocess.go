package pipeline

import (
	"context"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"winnow/internal/tagcache"
	"winnow/internal/tagger"
	"winnow/internal/translator"
)

// inferOne asks the tagging service for a prediction. Service failures drop
// the item; only cancellation aborts the run.
func (p *Pipeline) inferOne(ctx context.Context, sem *semaphore.Weighted, stats *Stats, it *item) (*item, error) {
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	p.metrics.ItemStarted()
	defer func() {
		sem.Release(1)
		p.metrics.ItemFinished()
	}()

	start := time.Now()
	prediction, err := p.tagger.Predict(ctx, it.input, p.cfg.Thresholds)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.dropItem("infer", it.req, "inference failed", err)
		return nil, nil
	}
	it.prediction = prediction
	it.input.Data = nil
	stats.predicted.Add(1)
	p.metrics.StageCompleted("infer", time.Since(start))
	return it, nil
}

// finalizeOne turns a prediction into the finished record. The permit is
// released before the worker hands the record to the sink.
func (p *Pipeline) finalizeOne(ctx context.Context, sem *semaphore.Weighted, it *item) (*tagcache.Record, error) {
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	p.metrics.ItemStarted()
	defer func() {
		sem.Release(1)
		p.metrics.ItemFinished()
	}()

	start := time.Now()
	record := it.record
	record.Tags = mergeTags(it.prediction)
	record.TranslatedTags = translateOrdered(p.translator, record.Tags)
	record.TaggedAt = time.Now().UTC()
	record.Tagger = p.cfg.ModelRepository
	p.metrics.StageCompleted("post_process", time.Since(start))
	return &record, nil
}

// mergeTags flattens a prediction into one ordered tag list: the
// description's tags first in caption order, then each category in name
// order with its tags strongest first. The first occurrence of a tag wins.
func mergeTags(prediction tagger.Prediction) []string {
	var ordered []string
	seen := make(map[string]struct{})
	add := func(tag string) {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			return
		}
		if _, dup := seen[tag]; dup {
			return
		}
		seen[tag] = struct{}{}
		ordered = append(ordered, tag)
	}

	if prediction.Description != "" {
		for _, tag := range strings.Split(prediction.Description, ",") {
			add(tag)
		}
	}

	categories := make([]string, 0, len(prediction.Categories))
	for name := range prediction.Categories {
		categories = append(categories, name)
	}
	sort.Strings(categories)
	for _, name := range categories {
		scores := prediction.Categories[name]
		tags := make([]string, 0, len(scores))
		for tag := range scores {
			tags = append(tags, tag)
		}
		sort.Slice(tags, func(i, j int) bool {
			if scores[tags[i]] != scores[tags[j]] {
				return scores[tags[i]] > scores[tags[j]]
			}
			return tags[i] < tags[j]
		})
		for _, tag := range tags {
			add(tag)
		}
	}
	return ordered
}

// translateOrdered maps tags to display names in the same order, falling
// back to the raw tag when the translator has no entry.
func translateOrdered(trans translator.Translator, tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	mapping := trans.Translate(tags)
	out := make([]string, len(tags))
	for i, tag := range tags {
		if display, ok := mapping[tag]; ok && display != "" {
			out[i] = display
		} else {
			out[i] = tag
		}
	}
	return out
}
