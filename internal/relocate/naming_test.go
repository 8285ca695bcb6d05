package relocate

import (
	"testing"
	"time"
)

func TestTimestampedName(t *testing.T) {
	ts := time.Date(2024, 6, 15, 10, 30, 0, 123*int(time.Millisecond), time.Local)
	got := TimestampedName("cat.jpg", ts)
	if got != "20240615_103000_123_cat.jpg" {
		t.Fatalf("unexpected name: %s", got)
	}
}

func TestStripTimestampPrefix(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"20240615_103000_123_cat.jpg", "cat.jpg"},
		{"cat.jpg", "cat.jpg"},
		{"20240615_103000_cat.jpg", "20240615_103000_cat.jpg"},
		{"20240615_103000_123_20230101_000000_000_cat.jpg", "20230101_000000_000_cat.jpg"},
		{"1234_cat.jpg", "1234_cat.jpg"},
	}
	for _, tc := range cases {
		if got := StripTimestampPrefix(tc.name); got != tc.want {
			t.Errorf("StripTimestampPrefix(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestTimestampedNameRoundTripsThroughStrip(t *testing.T) {
	name := TimestampedName("holiday_720.png", time.Now())
	if got := StripTimestampPrefix(name); got != "holiday_720.png" {
		t.Fatalf("round trip lost the base name: %s", got)
	}
}
