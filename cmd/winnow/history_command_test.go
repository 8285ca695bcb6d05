package main

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"winnow/internal/history"
)

func seedHistory(t *testing.T, env *cliEnv) string {
	t.Helper()
	store, err := history.Open(env.historyPath)
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	const runID = "4f5a6b7c-0000-4000-8000-000000000001"
	if err := store.BeginRun(ctx, runID, "batch", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("begin run: %v", err)
	}
	counters := history.Counters{Scanned: 3, Selected: 2, CacheHits: 1, Processed: 1, Relocated: 1, Skipped: 1}
	if err := store.FinishRun(ctx, runID, counters, ""); err != nil {
		t.Fatalf("finish run: %v", err)
	}
	err = store.AddRelocation(ctx, history.Relocation{
		RunID:       runID,
		Fingerprint: "aaaa1111aaaa1111aaaa1111aaaa1111aaaa1111aaaa1111aaaa1111aaaa1111",
		SourcePath:  "/pics/cat.png",
		Destination: "/sorted/20260301_090001_123_cat.png",
		MatchedTag:  "cat",
		Outcome:     "moved",
	})
	if err != nil {
		t.Fatalf("add relocation: %v", err)
	}
	return runID
}

func TestHistoryListEmpty(t *testing.T) {
	env := newCLIEnv(t, "http://127.0.0.1:1")

	stdout, _, err := runCLI(t, env.configPath, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, stdout, "No runs recorded yet.")
}

func TestHistoryListShowsRuns(t *testing.T) {
	env := newCLIEnv(t, "http://127.0.0.1:1")
	runID := seedHistory(t, env)

	stdout, _, err := runCLI(t, env.configPath, "history", "list")
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	requireContains(t, stdout, shortID(runID))
	requireContains(t, stdout, "batch")
	requireContains(t, stdout, "ok")
}

func TestHistoryShowByPrefix(t *testing.T) {
	env := newCLIEnv(t, "http://127.0.0.1:1")
	runID := seedHistory(t, env)

	stdout, _, err := runCLI(t, env.configPath, "history", "show", runID[:8])
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	requireContains(t, stdout, "Run "+runID)
	requireContains(t, stdout, "scanned 3, selected 2, cache hits 1, tagged 1, relocated 1, skipped 1")
	requireContains(t, stdout, "moved")
	requireContains(t, stdout, "20260301_090001_123_cat.png")
}

func TestHistoryShowJSON(t *testing.T) {
	env := newCLIEnv(t, "http://127.0.0.1:1")
	runID := seedHistory(t, env)

	stdout, _, err := runCLI(t, env.configPath, "history", "show", "--json", runID)
	if err != nil {
		t.Fatalf("history show --json: %v", err)
	}
	var decoded struct {
		Run         runRow          `json:"run"`
		Relocations []relocationRow `json:"relocations"`
	}
	if err := json.Unmarshal([]byte(stdout), &decoded); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if decoded.Run.ID != runID {
		t.Fatalf("unexpected run id %q", decoded.Run.ID)
	}
	if len(decoded.Relocations) != 1 || decoded.Relocations[0].Outcome != "moved" {
		t.Fatalf("unexpected relocations %+v", decoded.Relocations)
	}
}

func TestHistoryShowUnknownRun(t *testing.T) {
	env := newCLIEnv(t, "http://127.0.0.1:1")
	seedHistory(t, env)

	_, _, err := runCLI(t, env.configPath, "history", "show", "zzzz")
	if err == nil {
		t.Fatal("expected an error for an unknown run id")
	}
	requireContains(t, err.Error(), "no run matches")
}
