package identity

import (
	"fmt"
	"image"
	"strconv"

	"github.com/corona10/goimagehash"
)

// PerceptualHash returns the 64-bit difference hash of img as lowercase hex.
// Unlike the content fingerprint this survives re-encoding and mild resizing,
// which makes it useful for spotting visually identical files with different
// bytes.
func PerceptualHash(img image.Image) (string, error) {
	hash, err := goimagehash.DifferenceHash(img)
	if err != nil {
		return "", fmt.Errorf("difference hash: %w", err)
	}
	return fmt.Sprintf("%016x", hash.GetHash()), nil
}

// Distance returns the Hamming distance between two perceptual hashes
// produced by PerceptualHash.
func Distance(a, b string) (int, error) {
	left, err := parsePerceptualHash(a)
	if err != nil {
		return 0, err
	}
	right, err := parsePerceptualHash(b)
	if err != nil {
		return 0, err
	}
	return left.Distance(right)
}

func parsePerceptualHash(value string) (*goimagehash.ImageHash, error) {
	bits, err := strconv.ParseUint(value, 16, 64)
	if err != nil {
		return nil, fmt.Errorf("parse perceptual hash %q: %w", value, err)
	}
	return goimagehash.NewImageHash(bits, goimagehash.DHash), nil
}
