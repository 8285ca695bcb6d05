package main

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"winnow/internal/testsupport"
)

func TestVersionCommand(t *testing.T) {
	stdout, _, err := runCLI(t, "", "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	requireContains(t, stdout, "winnow dev")
}

func TestCheckCommandPassesAgainstHealthyService(t *testing.T) {
	server := newTagServer(t, "cat")
	env := newCLIEnv(t, server.URL)

	stdout, _, err := runCLI(t, env.configPath, "check")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	requireContains(t, stdout, "Tagging service")
	requireContains(t, stdout, "checks passed")
}

func TestCheckCommandFailsWhenServiceIsDown(t *testing.T) {
	server := newTagServer(t)
	endpoint := server.URL
	server.Close()
	env := newCLIEnv(t, endpoint)

	stdout, _, err := runCLI(t, env.configPath, "check")
	if err == nil {
		t.Fatal("expected check to fail with the service down")
	}
	requireContains(t, stdout, "FAIL")
	requireContains(t, err.Error(), "checks failed")
}

func TestRunCommandSortsMatchingImages(t *testing.T) {
	server := newTagServer(t, "cat", "whiskers")
	env := newCLIEnv(t, server.URL)
	testsupport.WriteImage(t, filepath.Join(env.sourceDir, "cat.png"), 3, 3)
	if err := os.WriteFile(filepath.Join(env.sourceDir, "notes.txt"), []byte("not an image"), 0o644); err != nil {
		t.Fatalf("write notes: %v", err)
	}

	stdout, _, err := runCLI(t, env.configPath, "run")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, stdout, "finished in")
	requireContains(t, stdout, "relocated 1")

	entries, err := os.ReadDir(env.destDir)
	if err != nil {
		t.Fatalf("read destination: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 relocated image, found %d", len(entries))
	}
	pattern := regexp.MustCompile(`^\d{8}_\d{6}_\d{3}_cat\.png$`)
	if !pattern.MatchString(entries[0].Name()) {
		t.Fatalf("unexpected destination name %q", entries[0].Name())
	}
	if _, err := os.Stat(filepath.Join(env.sourceDir, "cat.png")); err != nil {
		t.Fatalf("source image must be retained: %v", err)
	}
	if _, err := os.Stat(env.cachePath); err != nil {
		t.Fatalf("cache file must exist after the run: %v", err)
	}

	// Rerunning serves the image from the cache and leaves the copy alone.
	stdout, _, err = runCLI(t, env.configPath, "run")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	requireContains(t, stdout, "cache hits 1, tagged 0")
	requireContains(t, stdout, "skipped 1")
}

func TestRunCommandFailsWhenSourceDirMissing(t *testing.T) {
	server := newTagServer(t, "cat")
	env := newCLIEnv(t, server.URL)
	if err := os.RemoveAll(env.sourceDir); err != nil {
		t.Fatalf("remove source dir: %v", err)
	}

	if _, _, err := runCLI(t, env.configPath, "run"); err == nil {
		t.Fatal("expected run to fail without a source directory")
	}
}
