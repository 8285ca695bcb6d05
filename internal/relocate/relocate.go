// Package relocate copies tag-matching images into the destination folder
// under collision-safe timestamped names and keeps the tag cache pointed at
// the relocated files.
package relocate

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"winnow/internal/fileutil"
	"winnow/internal/identity"
	"winnow/internal/logging"
	"winnow/internal/services"
	"winnow/internal/tagcache"
)

// Outcome describes what Relocate decided for one record.
type Outcome string

const (
	// OutcomeMoved: the file was copied into the destination and the cache
	// entry re-keyed under the destination digest.
	OutcomeMoved Outcome = "moved"
	// OutcomeNoMatch: no tag contained a target substring.
	OutcomeNoMatch Outcome = "no_match"
	// OutcomeAlreadyRelocated: the destination already holds a file with the
	// same stripped base name.
	OutcomeAlreadyRelocated Outcome = "already_relocated"
	// OutcomeCollision: another writer created the exact destination name
	// between the scan and the copy; the existing file wins.
	OutcomeCollision Outcome = "collision"
)

// Result reports the decision and, for moves, where the file went.
type Result struct {
	Outcome     Outcome
	Destination string
	Fingerprint identity.Fingerprint
	MatchedTag  string
	Target      string
}

// Relocator applies the target filter to records and performs the copy +
// cache re-key for matches. Callers serialize invocations; the Relocator
// itself only guards against concurrent writers via exclusive creation.
type Relocator struct {
	destDir string
	targets TargetSet
	cache   *tagcache.Cache
	logger  *slog.Logger
	now     func() time.Time
}

// New builds a Relocator moving matches into destDir.
func New(destDir string, targets TargetSet, cache *tagcache.Cache, logger *slog.Logger) *Relocator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Relocator{
		destDir: destDir,
		targets: targets,
		cache:   cache,
		logger:  logging.NewComponentLogger(logger, "relocate"),
		now:     time.Now,
	}
}

// Relocate decides whether the record matches the target set and, if so,
// copies its file into the destination under a fresh timestamped name. The
// cache entry is re-keyed under the destination file's digest with the new
// path recorded. Collisions are decisions, not errors.
func (r *Relocator) Relocate(ctx context.Context, fp identity.Fingerprint, record tagcache.Record) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	default:
	}

	matchedTag, target, ok := r.targets.Match(record.Tags, record.TranslatedTags)
	if !ok {
		r.logger.Debug("no target tag matched",
			logging.String(logging.FieldImage, record.FileName),
			logging.Int("tag_count", len(record.Tags)))
		return Result{Outcome: OutcomeNoMatch}, nil
	}

	base := StripTimestampPrefix(record.FileName)
	present, err := r.alreadyRelocated(base)
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "relocate", "scan destination",
			"Failed to scan destination directory", err)
	}
	if present {
		r.logger.Info("skipping image, already relocated",
			logging.String(logging.FieldImage, record.FileName),
			logging.String(logging.FieldDecisionType, "relocation"),
			logging.String("decision_result", string(OutcomeAlreadyRelocated)),
			logging.String("matched_tag", matchedTag))
		return Result{Outcome: OutcomeAlreadyRelocated, MatchedTag: matchedTag, Target: target}, nil
	}

	name := TimestampedName(base, r.now())
	destination := filepath.Join(r.destDir, name)

	digest, err := fileutil.CopyFileExclusive(record.Path, destination)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			r.logger.Info("skipping image, destination name taken",
				logging.String(logging.FieldImage, record.FileName),
				logging.String(logging.FieldDecisionType, "relocation"),
				logging.String("decision_result", string(OutcomeCollision)),
				logging.String("destination", destination))
			return Result{Outcome: OutcomeCollision, MatchedTag: matchedTag, Target: target}, nil
		}
		return Result{}, services.Wrap(services.ErrTransient, "relocate", "copy image",
			"Failed to copy image into destination directory", err)
	}

	destFP := identity.Fingerprint(digest)
	record.Path = destination
	record.FileName = name
	if err := r.cache.Rekey(fp, destFP, record); err != nil {
		// The file is safely in place; a failed persist only costs a re-tag
		// after the next restart.
		r.logger.Warn("failed to re-key cache entry after relocation",
			logging.String(logging.FieldEventType, "relocation_rekey_failed"),
			logging.String(logging.FieldImage, name),
			logging.Error(err))
	}

	r.logger.Info("relocated image",
		logging.String(logging.FieldImage, base),
		logging.String("matched_tag", matchedTag),
		logging.String("target", target),
		logging.String("destination", destination))

	return Result{
		Outcome:     OutcomeMoved,
		Destination: destination,
		Fingerprint: destFP,
		MatchedTag:  matchedTag,
		Target:      target,
	}, nil
}

// alreadyRelocated reports whether the destination holds any file whose
// stripped name equals base.
func (r *Relocator) alreadyRelocated(base string) (bool, error) {
	entries, err := os.ReadDir(r.destDir)
	if err != nil {
		return false, err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if StripTimestampPrefix(entry.Name()) == base {
			return true, nil
		}
	}
	return false, nil
}
