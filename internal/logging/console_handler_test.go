package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func newTestPrettyLogger(buf *bytes.Buffer, level slog.Level) *slog.Logger {
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)
	return slog.New(newPrettyHandler(buf, levelVar, false))
}

func TestPrettyHandlerHeaderIncludesComponentAndSubject(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestPrettyLogger(&buf, slog.LevelInfo)

	logger.Info("prediction complete",
		String(FieldComponent, "pipeline"),
		String(FieldMode, "batch"),
		String(FieldImage, "cat_720.jpg"),
		String(FieldStage, "infer"),
	)

	out := buf.String()
	if !strings.Contains(out, "[pipeline]") {
		t.Fatalf("expected component header, got %q", out)
	}
	if !strings.Contains(out, "Batch · cat_720.jpg (infer)") {
		t.Fatalf("expected subject in header, got %q", out)
	}
	if !strings.Contains(out, "prediction complete") {
		t.Fatalf("expected message in output, got %q", out)
	}
}

func TestPrettyHandlerRendersInfoFieldsAsBullets(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestPrettyLogger(&buf, slog.LevelInfo)

	logger.Info("run summary",
		String(FieldComponent, "sorter"),
		Int("processed", 12),
		Int("relocated", 4),
	)

	out := buf.String()
	if !strings.Contains(out, "- Processed: 12") {
		t.Fatalf("expected processed bullet, got %q", out)
	}
	if !strings.Contains(out, "- Relocated: 4") {
		t.Fatalf("expected relocated bullet, got %q", out)
	}
}

func TestPrettyHandlerSuppressesRepeatedInfoFields(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestPrettyLogger(&buf, slog.LevelInfo)

	logger.Info("progress",
		String(FieldComponent, "progress"),
		String(FieldImage, "cat.jpg"),
		Int("total", 20),
	)
	first := buf.String()
	buf.Reset()

	logger.Info("progress",
		String(FieldComponent, "progress"),
		String(FieldImage, "cat.jpg"),
		Int("total", 20),
	)
	second := buf.String()

	if !strings.Contains(first, "- Total: 20") {
		t.Fatalf("expected total field on first emit, got %q", first)
	}
	if strings.Contains(second, "- Total: 20") {
		t.Fatalf("expected repeated field to be suppressed, got %q", second)
	}
}

func TestPrettyHandlerDebugDumpsAllAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestPrettyLogger(&buf, slog.LevelDebug)

	logger.Debug("cache probe",
		String(FieldComponent, "tagcache"),
		String(FieldFingerprint, "ab12"),
	)

	out := buf.String()
	if !strings.Contains(out, "fingerprint: ab12") {
		t.Fatalf("expected fingerprint attr in debug output, got %q", out)
	}
}

func TestPrettyHandlerHonorsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestPrettyLogger(&buf, slog.LevelWarn)

	logger.Info("quiet")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered at warn level, got %q", buf.String())
	}

	logger.Warn("loud")
	if !strings.Contains(buf.String(), "WARN") {
		t.Fatalf("expected WARN label, got %q", buf.String())
	}
}

func TestSelectInfoFieldsHighlightOrder(t *testing.T) {
	attrs := []kv{
		{key: "total", value: slog.IntValue(5).Resolve()},
		{key: FieldEventType, value: slog.StringValue("run_complete").Resolve()},
	}

	fields, hidden := selectInfoFields(attrs, 0, true)
	if hidden != 0 {
		t.Fatalf("expected no hidden fields, got %d", hidden)
	}
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}
	if fields[0].label != "Event" {
		t.Fatalf("expected highlighted event_type first, got %q", fields[0].label)
	}
}

func TestSelectInfoFieldsHidesDebugOnlyKeys(t *testing.T) {
	attrs := []kv{
		{key: FieldFingerprint, value: slog.StringValue("deadbeef").Resolve()},
		{key: "source_path", value: slog.StringValue("/tmp/in").Resolve()},
		{key: "processed", value: slog.IntValue(3).Resolve()},
	}

	fields, hidden := selectInfoFields(attrs, 0, false)
	if hidden != 2 {
		t.Fatalf("expected 2 hidden fields, got %d", hidden)
	}
	if len(fields) != 1 || fields[0].label != "Processed" {
		t.Fatalf("expected only processed field, got %+v", fields)
	}
}

func TestSelectInfoFieldsLimit(t *testing.T) {
	attrs := []kv{
		{key: "loaded", value: slog.IntValue(1).Resolve()},
		{key: "predicted", value: slog.IntValue(2).Resolve()},
		{key: "processed", value: slog.IntValue(3).Resolve()},
	}

	fields, hidden := selectInfoFields(attrs, 2, false)
	if len(fields) != 2 {
		t.Fatalf("expected limit of 2 fields, got %d", len(fields))
	}
	if hidden != 1 {
		t.Fatalf("expected 1 hidden field, got %d", hidden)
	}
}

func TestFormatValueForKeyByteSizes(t *testing.T) {
	got := formatValueForKey("file_size_bytes", slog.Int64Value(3*1024*1024))
	if got != "3.00 MiB" {
		t.Fatalf("formatValueForKey byte size = %q, want 3.00 MiB", got)
	}
}

func TestFormatValueForKeyDurations(t *testing.T) {
	got := formatValueForKey("stage_duration", slog.DurationValue(90*time.Second))
	if got != "1m30s" {
		t.Fatalf("formatValueForKey duration = %q, want 1m30s", got)
	}
}

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.00 KiB"},
		{5 * 1024 * 1024 * 1024, "5.00 GiB"},
	}
	for _, tc := range cases {
		if got := formatBytes(tc.in); got != tc.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatDurationHuman(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{450 * time.Millisecond, "450ms"},
		{2500 * time.Millisecond, "2.5s"},
		{95 * time.Second, "1m35s"},
		{3*time.Hour + 7*time.Minute, "3h07m"},
	}
	for _, tc := range cases {
		if got := formatDurationHuman(tc.in); got != tc.want {
			t.Errorf("formatDurationHuman(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTitleizeKey(t *testing.T) {
	if got := titleizeKey("cache_hit_rate"); got != "Cache Hit Rate" {
		t.Fatalf("titleizeKey = %q, want Cache Hit Rate", got)
	}
}
