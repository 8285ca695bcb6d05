// Package selector turns a raw directory listing into one canonical file per
// logical image. Gallery exports often carry resolution variants side by side
// (img_0.jpg, img_720.jpg); the selector groups them and keeps the best one.
package selector

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
	".bmp":  {},
}

// Selection describes the winning variant chosen for one logical image.
type Selection struct {
	Path     string
	Base     string
	Variants int
}

// IsImage reports whether path carries a supported image extension.
func IsImage(path string) bool {
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// List returns the full paths of supported image files directly inside dir,
// in directory order. Subdirectories are not descended into.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list source directory: %w", err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !IsImage(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	return paths, nil
}

// Select groups paths into logical images and returns one winner per group,
// ordered by each group's first appearance in the input. Output is
// deterministic for a given input sequence.
func Select(paths []string) []Selection {
	type group struct {
		bestPath string
		bestRank int
		count    int
	}

	groups := make(map[string]*group)
	var order []string
	for _, path := range paths {
		base, rank := logicalKey(filepath.Base(path))
		g, ok := groups[base]
		if !ok {
			groups[base] = &group{bestPath: path, bestRank: rank, count: 1}
			order = append(order, base)
			continue
		}
		g.count++
		// Strictly greater: on equal rank the earlier listing entry stays.
		if rank > g.bestRank {
			g.bestPath = path
			g.bestRank = rank
		}
	}

	selections := make([]Selection, 0, len(order))
	for _, base := range order {
		g := groups[base]
		selections = append(selections, Selection{Path: g.bestPath, Base: base, Variants: g.count})
	}
	return selections
}

// logicalKey derives the group key for a file name plus the file's rank
// within that group. A trailing "_<digits>" token on the stem is the
// resolution marker: higher values outrank lower, unsuffixed files rank
// lowest (-1). Non-numeric suffixes are part of the name, not a marker.
func logicalKey(name string) (string, int) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	idx := strings.LastIndex(stem, "_")
	if idx <= 0 || idx == len(stem)-1 {
		return stem, -1
	}
	suffix := stem[idx+1:]
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return stem, -1
		}
	}
	value, err := strconv.Atoi(suffix)
	if err != nil {
		return stem, -1
	}
	return stem[:idx], value
}
