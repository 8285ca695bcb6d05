package preflight

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"winnow/internal/config"
	"winnow/internal/services"
	"winnow/internal/tagger"
)

type stubTagger struct {
	healthErr error
}

func (s stubTagger) Prepare(image.Image) (tagger.Input, error) {
	return tagger.Input{}, nil
}

func (s stubTagger) Predict(context.Context, tagger.Input, tagger.Thresholds) (tagger.Prediction, error) {
	return tagger.Prediction{}, nil
}

func (s stubTagger) HealthCheck(context.Context) error { return s.healthErr }

func TestCheckSourceDirectory_OK(t *testing.T) {
	result := CheckSourceDirectory(t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckSourceDirectory_NotExist(t *testing.T) {
	result := CheckSourceDirectory(filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckSourceDirectory_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckSourceDirectory(f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckDestinationDirectory_Creatable(t *testing.T) {
	result := CheckDestinationDirectory(filepath.Join(t.TempDir(), "a", "b", "sorted"))
	if !result.Passed {
		t.Fatalf("expected pass for creatable destination, got: %s", result.Detail)
	}
}

func TestCheckFreeSpace_TempDir(t *testing.T) {
	result := CheckFreeSpace(t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
	if result.Detail == "" {
		t.Fatal("expected a space figure in the detail")
	}
}

func TestCheckCacheFile_WillBeCreated(t *testing.T) {
	result := CheckCacheFile(filepath.Join(t.TempDir(), "cache", "tags.json"))
	if !result.Passed {
		t.Fatalf("expected pass for creatable cache, got: %s", result.Detail)
	}
}

func TestCheckTranslation_Missing(t *testing.T) {
	result := CheckTranslation(filepath.Join(t.TempDir(), "lexicon.json"))
	if result.Passed {
		t.Fatal("expected advisory failure for missing lexicon")
	}
}

func TestCheckTagger(t *testing.T) {
	ok := CheckTagger(context.Background(), stubTagger{})
	if !ok.Passed {
		t.Fatalf("expected pass for healthy tagger, got: %s", ok.Detail)
	}

	failed := CheckTagger(context.Background(), stubTagger{healthErr: errors.New("connection refused")})
	if failed.Passed {
		t.Fatal("expected failure for unhealthy tagger")
	}
	if failed.Detail != "connection refused" {
		t.Errorf("detail = %q", failed.Detail)
	}

	missing := CheckTagger(context.Background(), nil)
	if missing.Passed {
		t.Fatal("expected failure for nil tagger")
	}
}

func newGateConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.SourceDir = filepath.Join(base, "source")
	cfg.Paths.DestinationDir = filepath.Join(base, "sorted")
	cfg.Paths.CachePath = filepath.Join(base, "tags.json")
	cfg.Targets.Tags = []string{"cat"}
	if err := os.MkdirAll(cfg.Paths.SourceDir, 0o755); err != nil {
		t.Fatal(err)
	}
	return &cfg
}

func TestGate_OK(t *testing.T) {
	cfg := newGateConfig(t)
	if err := Gate(context.Background(), cfg, stubTagger{}); err != nil {
		t.Fatalf("Gate: %v", err)
	}
}

func TestGate_MissingSource(t *testing.T) {
	cfg := newGateConfig(t)
	cfg.Paths.SourceDir = filepath.Join(cfg.Paths.SourceDir, "nope")
	err := Gate(context.Background(), cfg, stubTagger{})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("Gate error = %v, want configuration error", err)
	}
}

func TestGate_NoTargets(t *testing.T) {
	cfg := newGateConfig(t)
	cfg.Targets.Tags = nil
	err := Gate(context.Background(), cfg, stubTagger{})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("Gate error = %v, want configuration error", err)
	}
}

func TestGate_UnhealthyTagger(t *testing.T) {
	cfg := newGateConfig(t)
	err := Gate(context.Background(), cfg, stubTagger{healthErr: errors.New("boom")})
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("Gate error = %v, want external service error", err)
	}
}

func TestRunAllCoversConfiguredChecks(t *testing.T) {
	cfg := newGateConfig(t)
	cfg.Paths.TranslationPath = filepath.Join(t.TempDir(), "lexicon.json")
	results := RunAll(context.Background(), cfg, stubTagger{})

	names := make(map[string]bool, len(results))
	for _, result := range results {
		names[result.Name] = true
	}
	for _, want := range []string{
		"Source directory",
		"Destination directory",
		"Destination free space",
		"Tag cache",
		"Tag lexicon",
		"History database",
		"Tagging service",
	} {
		if !names[want] {
			t.Errorf("RunAll missing check %q", want)
		}
	}
}
