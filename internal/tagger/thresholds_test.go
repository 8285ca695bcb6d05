package tagger

import "testing"

func TestMCutThresholdPicksWidestGap(t *testing.T) {
	scores := map[string]float64{
		"sky":    0.9,
		"cloud":  0.8,
		"noise":  0.3,
		"static": 0.25,
	}
	cutoff, ok := mcutThreshold(scores)
	if !ok {
		t.Fatal("expected a cutoff")
	}
	if cutoff != 0.55 {
		t.Fatalf("expected cutoff 0.55 between 0.8 and 0.3, got %v", cutoff)
	}
}

func TestMCutThresholdNeedsTwoScores(t *testing.T) {
	if _, ok := mcutThreshold(nil); ok {
		t.Fatal("expected no cutoff for empty scores")
	}
	if _, ok := mcutThreshold(map[string]float64{"only": 0.5}); ok {
		t.Fatal("expected no cutoff for a single score")
	}
}

func TestGeneralCutoffFallsBackToFixedThreshold(t *testing.T) {
	thresholds := Thresholds{General: 0.35, GeneralMCut: true}
	if got := generalCutoff(map[string]float64{"only": 0.5}, thresholds); got != 0.35 {
		t.Fatalf("expected fixed threshold 0.35 when MCUT has too few scores, got %v", got)
	}
	thresholds.GeneralMCut = false
	if got := generalCutoff(map[string]float64{"a": 0.9, "b": 0.1}, thresholds); got != 0.35 {
		t.Fatalf("expected fixed threshold 0.35 when MCUT is off, got %v", got)
	}
}

func TestCharacterCutoffKeepsFloorUnderMCut(t *testing.T) {
	scores := map[string]float64{"alice": 0.10, "bob": 0.02}
	thresholds := Thresholds{Character: 0.85, CharacterMCut: true}
	if got := characterCutoff(scores, thresholds); got != characterMCutFloor {
		t.Fatalf("expected the 0.15 floor, got %v", got)
	}
}

func TestFilterScoresIsStrictlyAbove(t *testing.T) {
	scores := map[string]float64{
		"keep":     0.36,
		"boundary": 0.35,
		"drop":     0.1,
	}
	kept := filterScores(scores, 0.35)
	if len(kept) != 1 {
		t.Fatalf("expected one surviving tag, got %v", kept)
	}
	if _, ok := kept["keep"]; !ok {
		t.Fatalf("expected keep to survive, got %v", kept)
	}
}

func TestCaptionOrdersByScoreThenName(t *testing.T) {
	scores := map[string]float64{
		"banana": 0.9,
		"apple":  0.9,
		"cherry": 0.95,
	}
	if got, want := caption(scores), "cherry, apple, banana"; got != want {
		t.Fatalf("caption %q, want %q", got, want)
	}
	if caption(nil) != "" {
		t.Fatal("expected empty caption for no tags")
	}
}
