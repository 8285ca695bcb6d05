package identity

import (
	"bytes"
	"time"

	"github.com/bep/imagemeta"
)

// exifTimeTags in preference order. The first one present wins.
var exifTimeTags = []string{"DateTimeOriginal", "DateTimeDigitized", "DateTime"}

// CaptureTime extracts the EXIF capture timestamp from raw image bytes.
// It degrades gracefully: unparseable data or missing tags yield ok == false,
// never an error.
func CaptureTime(data []byte) (time.Time, bool) {
	if len(data) == 0 {
		return time.Time{}, false
	}

	wanted := make(map[string]bool, len(exifTimeTags))
	for _, tag := range exifTimeTags {
		wanted[tag] = true
	}

	found := make(map[string]time.Time, len(exifTimeTags))
	_, err := imagemeta.Decode(imagemeta.Options{
		R:       bytes.NewReader(data),
		Sources: imagemeta.EXIF,
		ShouldHandleTag: func(ti imagemeta.TagInfo) bool {
			return wanted[ti.Tag]
		},
		HandleTag: func(ti imagemeta.TagInfo) error {
			if ts, ok := tagValueTime(ti.Value); ok {
				found[ti.Tag] = ts
			}
			return nil
		},
	})
	if err != nil || len(found) == 0 {
		return time.Time{}, false
	}

	for _, tag := range exifTimeTags {
		if ts, ok := found[tag]; ok {
			return ts, true
		}
	}
	return time.Time{}, false
}

// tagValueTime copes with decoders that surface EXIF dates either as time.Time
// or as the raw "2006:01:02 15:04:05" string.
func tagValueTime(v any) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		if val.IsZero() {
			return time.Time{}, false
		}
		return val, true
	case string:
		return parseEXIFTime(val)
	default:
		return time.Time{}, false
	}
}

func parseEXIFTime(value string) (time.Time, bool) {
	for _, layout := range []string{"2006:01:02 15:04:05", "2006-01-02 15:04:05", time.RFC3339} {
		if ts, err := time.ParseInLocation(layout, value, time.Local); err == nil && !ts.IsZero() {
			return ts, true
		}
	}
	return time.Time{}, false
}
