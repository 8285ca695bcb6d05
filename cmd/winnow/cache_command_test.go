package main

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"winnow/internal/identity"
	"winnow/internal/tagcache"
)

func seedCache(t *testing.T, env *cliEnv) {
	t.Helper()
	cache := tagcache.New(env.cachePath, nil)
	records := []struct {
		fp     identity.Fingerprint
		record tagcache.Record
	}{
		{
			fp: identity.Fingerprint("aaaa1111aaaa1111aaaa1111aaaa1111aaaa1111aaaa1111aaaa1111aaaa1111"),
			record: tagcache.Record{
				Path:           "/pics/cat.png",
				FileName:       "cat.png",
				Tags:           []string{"cat", "whiskers"},
				TranslatedTags: []string{"cat", "whiskers"},
				TaggedAt:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			},
		},
		{
			fp: identity.Fingerprint("bbbb2222bbbb2222bbbb2222bbbb2222bbbb2222bbbb2222bbbb2222bbbb2222"),
			record: tagcache.Record{
				Path:           "/pics/dog.png",
				FileName:       "dog.png",
				Tags:           []string{"dog"},
				TranslatedTags: []string{"dog"},
				TaggedAt:       time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC),
			},
		},
	}
	for _, entry := range records {
		if err := cache.Upsert(entry.fp, entry.record); err != nil {
			t.Fatalf("seed cache: %v", err)
		}
	}
}

func TestCacheListEmpty(t *testing.T) {
	env := newCLIEnv(t, "http://127.0.0.1:1")

	stdout, _, err := runCLI(t, env.configPath, "cache", "list")
	if err != nil {
		t.Fatalf("cache list: %v", err)
	}
	requireContains(t, stdout, "Cache is empty.")
}

func TestCacheListShowsRecordsNewestFirst(t *testing.T) {
	env := newCLIEnv(t, "http://127.0.0.1:1")
	seedCache(t, env)

	stdout, _, err := runCLI(t, env.configPath, "cache", "list")
	if err != nil {
		t.Fatalf("cache list: %v", err)
	}
	requireContains(t, stdout, "cat.png")
	requireContains(t, stdout, "dog.png")
	requireContains(t, stdout, "2 cached records.")
	if strings.Index(stdout, "dog.png") > strings.Index(stdout, "cat.png") {
		t.Fatal("expected the newest record first")
	}
}

func TestCacheListJSON(t *testing.T) {
	env := newCLIEnv(t, "http://127.0.0.1:1")
	seedCache(t, env)

	stdout, _, err := runCLI(t, env.configPath, "cache", "list", "--json")
	if err != nil {
		t.Fatalf("cache list --json: %v", err)
	}
	var rows []cacheEntryRow
	if err := json.Unmarshal([]byte(stdout), &rows); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].FileName != "dog.png" {
		t.Fatalf("expected dog.png first, got %q", rows[0].FileName)
	}
	if len(rows[1].Tags) != 2 || rows[1].Tags[0] != "cat" {
		t.Fatalf("unexpected tags %v", rows[1].Tags)
	}
}

func TestCacheClear(t *testing.T) {
	env := newCLIEnv(t, "http://127.0.0.1:1")
	seedCache(t, env)

	stdout, _, err := runCLI(t, env.configPath, "cache", "clear")
	if err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	requireContains(t, stdout, "Cleared 2 cached records.")

	stdout, _, err = runCLI(t, env.configPath, "cache", "list")
	if err != nil {
		t.Fatalf("cache list after clear: %v", err)
	}
	requireContains(t, stdout, "Cache is empty.")
}

func TestCachePath(t *testing.T) {
	env := newCLIEnv(t, "http://127.0.0.1:1")

	stdout, _, err := runCLI(t, env.configPath, "cache", "path")
	if err != nil {
		t.Fatalf("cache path: %v", err)
	}
	if strings.TrimSpace(stdout) != env.cachePath {
		t.Fatalf("expected %q, got %q", env.cachePath, strings.TrimSpace(stdout))
	}
}
