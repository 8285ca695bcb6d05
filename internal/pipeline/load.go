package pipeline

import (
	"bytes"
	"context"
	"image"
	"os"
	"path/filepath"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"golang.org/x/sync/semaphore"

	"winnow/internal/identity"
	"winnow/internal/tagcache"
)

// loadOne reads and decodes one image and prepares the model input. A nil
// item with a nil error means the image was dropped; an error aborts the
// run.
func (p *Pipeline) loadOne(ctx context.Context, sem *semaphore.Weighted, stats *Stats, req Request) (*item, error) {
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	p.metrics.ItemStarted()
	defer func() {
		sem.Release(1)
		p.metrics.ItemFinished()
	}()

	start := time.Now()
	raw, err := os.ReadFile(req.Path)
	if err != nil {
		p.dropItem("load", req, "failed to read image", err)
		return nil, nil
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		p.dropItem("load", req, "failed to decode image", err)
		return nil, nil
	}
	input, err := p.tagger.Prepare(img)
	if err != nil {
		p.dropItem("load", req, "failed to prepare model input", err)
		return nil, nil
	}

	record := tagcache.Record{
		Path:     req.Path,
		FileName: filepath.Base(req.Path),
		Width:    input.Width,
		Height:   input.Height,
	}
	// Hash and capture time are enrichment; a record without them is still
	// usable.
	if hash, err := identity.PerceptualHash(img); err == nil {
		record.PerceptualHash = hash
	}
	if captured, ok := identity.CaptureTime(raw); ok {
		record.CapturedAt = captured
	}

	stats.loaded.Add(1)
	p.metrics.StageCompleted("load", time.Since(start))
	return &item{req: req, input: input, record: record}, nil
}
