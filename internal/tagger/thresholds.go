package tagger

import (
	"sort"
	"strings"
)

// characterMCutFloor keeps the dynamic character cutoff from dipping so low
// that one-off weak character scores flood the result.
const characterMCutFloor = 0.15

// Thresholds carries the per-category cutoffs for one prediction.
type Thresholds struct {
	General       float64
	Character     float64
	GeneralMCut   bool
	CharacterMCut bool
}

// mcutThreshold picks the cutoff at the widest gap between consecutive
// scores sorted descending. It needs at least two scores to find a gap.
func mcutThreshold(scores map[string]float64) (float64, bool) {
	if len(scores) < 2 {
		return 0, false
	}
	sorted := make([]float64, 0, len(scores))
	for _, score := range scores {
		sorted = append(sorted, score)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	cutoff := 0.0
	widest := -1.0
	for i := 0; i < len(sorted)-1; i++ {
		gap := sorted[i] - sorted[i+1]
		if gap > widest {
			widest = gap
			cutoff = (sorted[i] + sorted[i+1]) / 2
		}
	}
	return cutoff, true
}

func generalCutoff(scores map[string]float64, thresholds Thresholds) float64 {
	if thresholds.GeneralMCut {
		if cutoff, ok := mcutThreshold(scores); ok {
			return cutoff
		}
	}
	return thresholds.General
}

func characterCutoff(scores map[string]float64, thresholds Thresholds) float64 {
	if thresholds.CharacterMCut {
		if cutoff, ok := mcutThreshold(scores); ok {
			if cutoff < characterMCutFloor {
				cutoff = characterMCutFloor
			}
			return cutoff
		}
	}
	return thresholds.Character
}

// filterScores keeps tags scoring strictly above the cutoff.
func filterScores(scores map[string]float64, cutoff float64) map[string]float64 {
	kept := make(map[string]float64, len(scores))
	for tag, score := range scores {
		if score > cutoff {
			kept[tag] = score
		}
	}
	return kept
}

// caption renders tags as a comma-separated list, strongest first, name
// order breaking score ties.
func caption(scores map[string]float64) string {
	names := make([]string, 0, len(scores))
	for tag := range scores {
		names = append(names, tag)
	}
	sort.Slice(names, func(i, j int) bool {
		if scores[names[i]] != scores[names[j]] {
			return scores[names[i]] > scores[names[j]]
		}
		return names[i] < names[j]
	})
	return strings.Join(names, ", ")
}
