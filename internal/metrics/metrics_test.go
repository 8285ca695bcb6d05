package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetricsExposesInstruments(t *testing.T) {
	m := New()
	m.StageCompleted("infer", 120*time.Millisecond)
	m.StageDropped("load")
	m.ItemStarted()
	m.CacheLookup(true)
	m.CacheLookup(false)
	m.Relocation("moved")
	m.WatchEvent()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		`winnow_pipeline_stage_total{stage="infer",status="ok"} 1`,
		`winnow_pipeline_stage_total{stage="load",status="dropped"} 1`,
		`winnow_pipeline_in_flight 1`,
		`winnow_cache_lookup_total{result="hit"} 1`,
		`winnow_cache_lookup_total{result="miss"} 1`,
		`winnow_relocate_outcomes_total{outcome="moved"} 1`,
		`winnow_watch_images_total 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected exposition to contain %q", want)
		}
	}
}

func TestInFlightGaugeTracksPermits(t *testing.T) {
	m := New()
	m.ItemStarted()
	m.ItemStarted()
	m.ItemFinished()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "winnow_pipeline_in_flight 1") {
		t.Fatal("expected the gauge to read 1 after two starts and one finish")
	}
}

func TestNilMetricsRecordsNothing(t *testing.T) {
	var m *Metrics
	m.StageCompleted("infer", time.Second)
	m.StageDropped("load")
	m.ItemStarted()
	m.ItemFinished()
	m.CacheLookup(true)
	m.Relocation("moved")
	m.WatchEvent()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 from the nil handler, got %d", rec.Code)
	}

	if err := m.Serve(context.Background(), "127.0.0.1:0", nil); err != nil {
		t.Fatalf("nil Serve returned error: %v", err)
	}
}

func TestServeStopsOnContextCancel(t *testing.T) {
	m := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Serve(ctx, "127.0.0.1:0", nil) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not stop after cancellation")
	}
}
