package relocate

import (
	"fmt"
	"regexp"
	"time"
)

// timestampPrefixRe matches the yyyyMMdd_HHmmss_mmm_ prefix a previous
// relocation stamped onto a file name.
var timestampPrefixRe = regexp.MustCompile(`^\d{8}_\d{6}_\d{3}_`)

// StripTimestampPrefix returns name without a leading relocation timestamp.
// Names that never went through relocation come back unchanged. Only one
// prefix is stripped; the remainder is the original base name.
func StripTimestampPrefix(name string) string {
	return timestampPrefixRe.ReplaceAllString(name, "")
}

// TimestampedName prefixes base with ts down to the millisecond, yielding the
// destination file name for a relocation performed at that instant.
func TimestampedName(base string, ts time.Time) string {
	return fmt.Sprintf("%s_%03d_%s", ts.Format("20060102_150405"), ts.Nanosecond()/int(time.Millisecond), base)
}
