package relocate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"winnow/internal/identity"
	"winnow/internal/tagcache"
)

func writeSource(t *testing.T, dir, name, content string) (string, identity.Fingerprint) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	fp, err := identity.Compute(context.Background(), path)
	if err != nil {
		t.Fatalf("fingerprint %s: %v", name, err)
	}
	return path, fp
}

func newTestRelocator(t *testing.T, targets []string) (*Relocator, string, *tagcache.Cache) {
	t.Helper()
	destDir := t.TempDir()
	cache := tagcache.New(filepath.Join(t.TempDir(), "tagcache.json"), nil)
	r := New(destDir, NewTargetSet(targets), cache, nil)
	return r, destDir, cache
}

func TestRelocateMovesMatchingRecord(t *testing.T) {
	srcDir := t.TempDir()
	path, fp := writeSource(t, srcDir, "cat.jpg", "cat bytes")

	r, destDir, cache := newTestRelocator(t, []string{"cat"})
	record := tagcache.Record{
		Path:           path,
		FileName:       "cat.jpg",
		Tags:           []string{"cat", "outdoor"},
		TranslatedTags: []string{"cat", "outdoor"},
		TaggedAt:       time.Now(),
	}
	if err := cache.Upsert(fp, record); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	result, err := r.Relocate(context.Background(), fp, record)
	if err != nil {
		t.Fatalf("Relocate: %v", err)
	}
	if result.Outcome != OutcomeMoved {
		t.Fatalf("unexpected outcome: %s", result.Outcome)
	}
	if result.MatchedTag != "cat" {
		t.Fatalf("unexpected matched tag: %s", result.MatchedTag)
	}

	name := filepath.Base(result.Destination)
	if StripTimestampPrefix(name) != "cat.jpg" {
		t.Fatalf("destination name not timestamp-prefixed: %s", name)
	}
	got, readErr := os.ReadFile(filepath.Join(destDir, name))
	if readErr != nil {
		t.Fatalf("read destination: %v", readErr)
	}
	if string(got) != "cat bytes" {
		t.Fatalf("destination content mismatch: %q", got)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("source should remain after copy: %v", err)
	}

	// A verified byte-for-byte copy keeps the fingerprint; the record behind
	// it must now point at the destination.
	if result.Fingerprint != fp {
		t.Fatalf("copy changed the digest: %s vs %s", result.Fingerprint, fp)
	}
	updated, ok := cache.Lookup(fp)
	if !ok {
		t.Fatal("cache entry vanished after re-key")
	}
	if updated.Path != result.Destination || updated.FileName != name {
		t.Fatalf("record not re-pointed: %+v", updated)
	}
}

func TestRelocateNoMatchLeavesEverythingAlone(t *testing.T) {
	srcDir := t.TempDir()
	path, fp := writeSource(t, srcDir, "dog.jpg", "dog bytes")

	r, destDir, _ := newTestRelocator(t, []string{"cat"})
	record := tagcache.Record{Path: path, FileName: "dog.jpg", Tags: []string{"dog"}}

	result, err := r.Relocate(context.Background(), fp, record)
	if err != nil {
		t.Fatalf("Relocate: %v", err)
	}
	if result.Outcome != OutcomeNoMatch {
		t.Fatalf("unexpected outcome: %s", result.Outcome)
	}
	entries, _ := os.ReadDir(destDir)
	if len(entries) != 0 {
		t.Fatalf("destination should stay empty, has %d entries", len(entries))
	}
}

func TestRelocateSkipsWhenBaseNameAlreadyPresent(t *testing.T) {
	srcDir := t.TempDir()
	path, fp := writeSource(t, srcDir, "cat.jpg", "new cat bytes")

	r, destDir, _ := newTestRelocator(t, []string{"cat"})
	existing := filepath.Join(destDir, "20230101_000000_000_cat.jpg")
	if err := os.WriteFile(existing, []byte("old cat bytes"), 0o644); err != nil {
		t.Fatalf("seed destination: %v", err)
	}

	record := tagcache.Record{Path: path, FileName: "cat.jpg", Tags: []string{"cat"}}
	result, err := r.Relocate(context.Background(), fp, record)
	if err != nil {
		t.Fatalf("Relocate: %v", err)
	}
	if result.Outcome != OutcomeAlreadyRelocated {
		t.Fatalf("unexpected outcome: %s", result.Outcome)
	}

	entries, _ := os.ReadDir(destDir)
	if len(entries) != 1 {
		t.Fatalf("expected exactly one destination file, got %d", len(entries))
	}
}

func TestRelocateSkipsTimestampPrefixedSourceAgainstItself(t *testing.T) {
	// A file relocated earlier and re-listed from the destination folder via
	// the cache must not be copied again: its stripped base matches itself.
	srcDir := t.TempDir()
	path, fp := writeSource(t, srcDir, "20230101_000000_000_cat.jpg", "cat bytes")

	r, destDir, _ := newTestRelocator(t, []string{"cat"})
	if err := os.WriteFile(filepath.Join(destDir, "20240101_000000_000_cat.jpg"), []byte("cat bytes"), 0o644); err != nil {
		t.Fatalf("seed destination: %v", err)
	}

	record := tagcache.Record{Path: path, FileName: filepath.Base(path), Tags: []string{"cat"}}
	result, err := r.Relocate(context.Background(), fp, record)
	if err != nil {
		t.Fatalf("Relocate: %v", err)
	}
	if result.Outcome != OutcomeAlreadyRelocated {
		t.Fatalf("unexpected outcome: %s", result.Outcome)
	}
}

func TestRelocateCollisionOnExactName(t *testing.T) {
	srcDir := t.TempDir()
	path, fp := writeSource(t, srcDir, "cat.jpg", "late cat")

	r, destDir, _ := newTestRelocator(t, []string{"cat"})
	fixed := time.Date(2024, 6, 15, 10, 30, 0, 0, time.Local)
	r.now = func() time.Time { return fixed }

	// Occupy the exact destination name with a directory: the base-name scan
	// skips directories, so the exclusive create is what detects the clash,
	// mirroring a same-millisecond race between two writers.
	exact := filepath.Join(destDir, TimestampedName("cat.jpg", fixed))
	if err := os.Mkdir(exact, 0o755); err != nil {
		t.Fatalf("seed destination: %v", err)
	}

	record := tagcache.Record{Path: path, FileName: "cat.jpg", Tags: []string{"cat"}}
	result, err := r.Relocate(context.Background(), fp, record)
	if err != nil {
		t.Fatalf("collision should not be an error: %v", err)
	}
	if result.Outcome != OutcomeCollision {
		t.Fatalf("unexpected outcome: %s", result.Outcome)
	}
}

func TestRelocateExactlyOneDestinationForSharedBase(t *testing.T) {
	srcDir := t.TempDir()
	firstPath, firstFP := writeSource(t, srcDir, "cat.jpg", "first copy")
	secondDir := t.TempDir()
	secondPath, secondFP := writeSource(t, secondDir, "cat.jpg", "second copy")

	r, destDir, _ := newTestRelocator(t, []string{"cat"})

	first := tagcache.Record{Path: firstPath, FileName: "cat.jpg", Tags: []string{"cat"}}
	second := tagcache.Record{Path: secondPath, FileName: "cat.jpg", Tags: []string{"cat"}}

	resultFirst, err := r.Relocate(context.Background(), firstFP, first)
	if err != nil {
		t.Fatalf("first Relocate: %v", err)
	}
	resultSecond, err := r.Relocate(context.Background(), secondFP, second)
	if err != nil {
		t.Fatalf("second Relocate: %v", err)
	}

	if resultFirst.Outcome != OutcomeMoved {
		t.Fatalf("first should move, got %s", resultFirst.Outcome)
	}
	if resultSecond.Outcome != OutcomeAlreadyRelocated {
		t.Fatalf("second should skip, got %s", resultSecond.Outcome)
	}

	entries, _ := os.ReadDir(destDir)
	count := 0
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), "_cat.jpg") {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one relocated cat.jpg, got %d", count)
	}
}

func TestRelocateCancelledContext(t *testing.T) {
	r, _, _ := newTestRelocator(t, []string{"cat"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Relocate(ctx, "fp", tagcache.Record{}); err == nil {
		t.Fatal("expected context error")
	}
}
