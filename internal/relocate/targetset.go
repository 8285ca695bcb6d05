package relocate

import (
	"strings"

	"golang.org/x/text/cases"
)

// TargetSet is an immutable set of substrings that select records for
// relocation. Matching is case-insensitive via Unicode case folding, so
// "STRASSE" and "straße" meet in the middle.
type TargetSet struct {
	raw    []string
	folded []string
}

// NewTargetSet builds a TargetSet from the configured target tags. Blank
// entries are dropped.
func NewTargetSet(targets []string) TargetSet {
	folder := cases.Fold()
	set := TargetSet{}
	for _, target := range targets {
		trimmed := strings.TrimSpace(target)
		if trimmed == "" {
			continue
		}
		set.raw = append(set.raw, trimmed)
		set.folded = append(set.folded, folder.String(trimmed))
	}
	return set
}

// Empty reports whether the set has no targets.
func (s TargetSet) Empty() bool {
	return len(s.folded) == 0
}

// Size returns the number of targets.
func (s TargetSet) Size() int {
	return len(s.folded)
}

// Targets returns a copy of the configured target strings.
func (s TargetSet) Targets() []string {
	out := make([]string, len(s.raw))
	copy(out, s.raw)
	return out
}

// Match scans the given tag lists for the first tag containing any target
// substring. It returns the matching tag, the target it contained, and
// whether anything matched.
func (s TargetSet) Match(tagLists ...[]string) (string, string, bool) {
	if len(s.folded) == 0 {
		return "", "", false
	}
	folder := cases.Fold()
	for _, tags := range tagLists {
		for _, tag := range tags {
			foldedTag := folder.String(tag)
			for i, target := range s.folded {
				if strings.Contains(foldedTag, target) {
					return tag, s.raw[i], true
				}
			}
		}
	}
	return "", "", false
}
