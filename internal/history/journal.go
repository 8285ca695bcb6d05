package history

import (
	"context"
	"fmt"
	"time"
)

// Run is one orchestrator invocation recorded in the journal.
type Run struct {
	ID           string
	Mode         string
	StartedAt    time.Time
	FinishedAt   time.Time
	Counters     Counters
	ErrorMessage string
}

// Finished reports whether the run recorded a completion timestamp. A run
// without one was interrupted before it could finish.
func (r Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// Counters summarizes what one run saw and did.
type Counters struct {
	Scanned   int64
	Selected  int64
	CacheHits int64
	Processed int64
	Relocated int64
	Skipped   int64
}

// Relocation is one relocation decision recorded under a run.
type Relocation struct {
	RunID       string
	Fingerprint string
	SourcePath  string
	Destination string
	MatchedTag  string
	Outcome     string
	CreatedAt   time.Time
}

// BeginRun inserts a new run row with zeroed counters.
func (s *Store) BeginRun(ctx context.Context, id, mode string, startedAt time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.execWithRetry(
		ctx,
		`INSERT INTO runs (run_id, mode, started_at) VALUES (?, ?, ?)`,
		id,
		mode,
		startedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun stamps the completion time and final counters on a run.
func (s *Store) FinishRun(ctx context.Context, id string, counters Counters, errorMessage string) error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.execWithRetry(
		ctx,
		`UPDATE runs SET
            finished_at = ?,
            scanned = ?, selected = ?, cache_hits = ?,
            processed = ?, relocated = ?, skipped = ?,
            error_message = ?
        WHERE run_id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano),
		counters.Scanned,
		counters.Selected,
		counters.CacheHits,
		counters.Processed,
		counters.Relocated,
		counters.Skipped,
		nullableString(errorMessage),
		id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// AddRelocation appends one relocation decision to a run's journal.
func (s *Store) AddRelocation(ctx context.Context, rel Relocation) error {
	if s == nil || s.db == nil {
		return nil
	}
	createdAt := rel.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	err := s.execWithRetry(
		ctx,
		`INSERT INTO relocations (
            run_id, fingerprint, source_path, destination_path,
            matched_tag, outcome, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rel.RunID,
		rel.Fingerprint,
		rel.SourcePath,
		rel.Destination,
		rel.MatchedTag,
		rel.Outcome,
		createdAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert relocation: %w", err)
	}
	return nil
}
