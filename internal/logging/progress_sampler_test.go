package logging

import "testing"

func TestNewProgressSamplerDefaultsBucketSize(t *testing.T) {
	for _, size := range []float64{0, -1} {
		s := NewProgressSampler(size)
		if s.bucketSize != 5 {
			t.Errorf("bucketSize = %v, want 5", s.bucketSize)
		}
		if s.lastBucket != -1 {
			t.Errorf("lastBucket = %d, want -1", s.lastBucket)
		}
	}
}

func TestProgressSamplerNilReceiver(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(50, "infer", "message") {
		t.Error("ShouldLog on nil sampler should always return true")
	}
	s.Reset()
}

func TestProgressSamplerPhaseChange(t *testing.T) {
	s := NewProgressSampler(5)

	if !s.ShouldLog(0, "load", "starting") {
		t.Error("first phase should log")
	}
	if s.ShouldLog(0, "load", "still loading") {
		t.Error("same phase and percent should not log again")
	}
	if !s.ShouldLog(0, "infer", "starting") {
		t.Error("phase change should log")
	}
	if s.lastPhase != "infer" {
		t.Errorf("lastPhase = %q, want infer", s.lastPhase)
	}
}

func TestProgressSamplerPercentBuckets(t *testing.T) {
	s := NewProgressSampler(5)

	if !s.ShouldLog(0, "run", "") {
		t.Error("0% should log")
	}
	if s.ShouldLog(3, "run", "") {
		t.Error("3% should not log, same bucket")
	}
	if !s.ShouldLog(5, "run", "") {
		t.Error("5% should log, new bucket")
	}
	if !s.ShouldLog(10, "run", "") {
		t.Error("10% should log, new bucket")
	}
}

func TestProgressSamplerCapsAtHundredPercent(t *testing.T) {
	s := NewProgressSampler(5)

	s.ShouldLog(95, "run", "")
	if !s.ShouldLog(100, "run", "") {
		t.Error("100% should log")
	}
	if s.ShouldLog(105, "run", "") {
		t.Error("105% should reuse the 100% bucket")
	}
}

func TestProgressSamplerNegativePercent(t *testing.T) {
	s := NewProgressSampler(5)

	if !s.ShouldLog(-1, "unknown", "") {
		t.Error("first call should log via phase change")
	}
	if s.ShouldLog(-1, "unknown", "") {
		t.Error("negative percent should not trigger bucket logging")
	}
}

func TestProgressSamplerBucketResetOnPhaseChange(t *testing.T) {
	s := NewProgressSampler(5)

	s.ShouldLog(50, "load", "")
	s.ShouldLog(0, "infer", "")
	if !s.ShouldLog(10, "infer", "") {
		t.Error("10% should log after phase change reset the bucket")
	}
}

func TestProgressSamplerIgnoresMessage(t *testing.T) {
	s := NewProgressSampler(5)

	s.ShouldLog(10, "run", "first message")
	if s.ShouldLog(10, "run", "different message with ETA") {
		t.Error("message changes alone should not trigger logging")
	}
}

func TestProgressSamplerReset(t *testing.T) {
	s := NewProgressSampler(5)
	s.ShouldLog(50, "load", "")

	s.Reset()

	if s.lastPhase != "" || s.lastBucket != -1 {
		t.Errorf("expected cleared state after reset, got phase=%q bucket=%d", s.lastPhase, s.lastBucket)
	}
	if !s.ShouldLog(50, "load", "") {
		t.Error("should log after reset")
	}
}
