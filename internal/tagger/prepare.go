package tagger

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/disintegration/imaging"
)

const jpegQuality = 90

// prepareInput scales img to fit within edge on both sides (never upscaling)
// and encodes it as JPEG. The returned dimensions are the original ones.
func prepareInput(img image.Image, edge int) (Input, error) {
	if img == nil {
		return Input{}, errors.New("tagger prepare: image required")
	}
	bounds := img.Bounds()
	scaled := imaging.Fit(img, edge, edge, imaging.Lanczos)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return Input{}, fmt.Errorf("tagger prepare: encode input: %w", err)
	}
	return Input{Data: buf.Bytes(), Width: bounds.Dx(), Height: bounds.Dy()}, nil
}
