package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"winnow/internal/tagger"
)

const (
	taggerCheckTimeout = 10 * time.Second

	// lowSpaceBytes is the free-space floor below which the destination
	// check fails.
	lowSpaceBytes = 256 << 20
)

// CheckSourceDirectory verifies the source directory exists and is readable.
// The source is never written, so write permission is not required.
func CheckSourceDirectory(path string) Result {
	const name = "Source directory"
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read ok)", path)}
}

// CheckDestinationDirectory verifies the destination is writable, or can be
// created under a writable ancestor.
func CheckDestinationDirectory(path string) Result {
	const name = "Destination directory"
	info, err := os.Stat(path)
	if err == nil {
		if !info.IsDir() {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
		}
		if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
	}
	if !os.IsNotExist(err) {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}

	anchor := nearestExisting(path)
	if err := unix.Access(anchor, unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create under %s: %v)", path, anchor, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
}

// CheckFreeSpace reports the space available for new relocations.
func CheckFreeSpace(path string) Result {
	const name = "Destination free space"
	anchor := nearestExisting(path)

	var st unix.Statfs_t
	if err := unix.Statfs(anchor, &st); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", anchor, err)}
	}
	available := int64(st.Bavail) * int64(st.Bsize)
	if available < lowSpaceBytes {
		return Result{Name: name, Detail: fmt.Sprintf("low free space: %s available", formatBytes(available))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s available", formatBytes(available))}
}

// CheckCacheFile verifies the tag cache file is usable, or creatable.
func CheckCacheFile(path string) Result {
	const name = "Tag cache"
	if path == "" {
		return Result{Name: name, Passed: true, Detail: "not configured (records kept in memory only)"}
	}
	info, err := os.Stat(path)
	if err == nil {
		if info.IsDir() {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
		}
		if err := unix.Access(path, unix.R_OK|unix.W_OK); err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, formatBytes(info.Size()))}
	}
	if !os.IsNotExist(err) {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}

	anchor := nearestExisting(path)
	if err := unix.Access(anchor, unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create under %s: %v)", path, anchor, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
}

// CheckTranslation verifies the tag lexicon file is readable. A missing
// lexicon is advisory: the run proceeds with tags untranslated.
func CheckTranslation(path string) Result {
	const name = "Tag lexicon"
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (missing; tags pass through untranslated)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, formatBytes(info.Size()))}
}

// CheckHistory verifies the run journal database location is writable.
func CheckHistory(path string) Result {
	const name = "History database"
	if path == "" {
		return Result{Name: name, Detail: "history enabled but no path configured"}
	}
	if info, err := os.Stat(path); err == nil {
		if info.IsDir() {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
		}
		if err := unix.Access(path, unix.R_OK|unix.W_OK); err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, formatBytes(info.Size()))}
	}

	anchor := nearestExisting(path)
	if err := unix.Access(anchor, unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create under %s: %v)", path, anchor, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
}

// CheckTagger verifies the tagging service answers its health endpoint. It
// uses a short timeout and whatever retry budget the client carries.
func CheckTagger(ctx context.Context, tag tagger.Tagger) Result {
	const name = "Tagging service"
	if tag == nil {
		return Result{Name: name, Detail: "not configured"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, taggerCheckTimeout)
	defer cancel()

	if err := tag.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeTaggerError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "service reachable"}
}

// nearestExisting walks up from path to the closest ancestor that exists.
func nearestExisting(path string) string {
	current := filepath.Clean(path)
	for {
		if _, err := os.Stat(current); err == nil {
			return current
		}
		parent := filepath.Dir(current)
		if parent == current {
			return current
		}
		current = parent
	}
}

func formatBytes(value int64) string {
	const (
		kiB = int64(1024)
		miB = kiB * 1024
		giB = miB * 1024
	)
	switch {
	case value >= giB:
		return fmt.Sprintf("%.1f GiB", float64(value)/float64(giB))
	case value >= miB:
		return fmt.Sprintf("%.1f MiB", float64(value)/float64(miB))
	case value >= kiB:
		return fmt.Sprintf("%.1f KiB", float64(value)/float64(kiB))
	default:
		return fmt.Sprintf("%d B", value)
	}
}

// summarizeTaggerError produces a human-readable summary for health check
// failures.
func summarizeTaggerError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (tagging service unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (tagging service unreachable)"
	}
	return err.Error()
}
