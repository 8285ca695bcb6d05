package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"winnow/internal/services"
)

const runColumns = "run_id, mode, started_at, finished_at, scanned, selected, cache_hits, processed, relocated, skipped, error_message"

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run          Run
		finishedRaw  sql.NullString
		startedRaw   sql.NullString
		errorMessage sql.NullString
	)
	err := scanner.Scan(
		&run.ID,
		&run.Mode,
		&startedRaw,
		&finishedRaw,
		&run.Counters.Scanned,
		&run.Counters.Selected,
		&run.Counters.CacheHits,
		&run.Counters.Processed,
		&run.Counters.Relocated,
		&run.Counters.Skipped,
		&errorMessage,
	)
	if err != nil {
		return nil, err
	}
	run.StartedAt = parseTime(startedRaw)
	run.FinishedAt = parseTime(finishedRaw)
	run.ErrorMessage = errorMessage.String
	return &run, nil
}

// ListRuns returns the most recent runs, newest first. A non-positive limit
// selects a default of 20.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM runs ORDER BY started_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun looks a run up by its full identifier or a unique prefix of it.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	if s == nil || s.db == nil {
		return nil, services.Wrap(services.ErrNotFound, "history", "get run", "history is not enabled", nil)
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, services.Wrap(services.ErrValidation, "history", "get run", "run id required", nil)
	}
	ctx = ensureContext(ctx)

	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE run_id = ?", id)
	run, err := scanRun(row)
	if err == nil {
		return run, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get run: %w", err)
	}

	// Abbreviated ids are a unique-prefix lookup.
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM runs WHERE substr(run_id, 1, ?) = ? LIMIT 2", len(id), id)
	if err != nil {
		return nil, fmt.Errorf("get run by prefix: %w", err)
	}
	defer rows.Close()

	var matches []*Run
	for rows.Next() {
		match, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	switch len(matches) {
	case 0:
		return nil, services.Wrap(services.ErrNotFound, "history", "get run", fmt.Sprintf("no run matches %q", id), nil)
	case 1:
		return matches[0], nil
	default:
		return nil, services.Wrap(services.ErrValidation, "history", "get run", fmt.Sprintf("run id prefix %q is ambiguous", id), nil)
	}
}

// Relocations returns a run's relocation decisions in journal order.
func (s *Store) Relocations(ctx context.Context, runID string) ([]Relocation, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, fingerprint, source_path, destination_path, matched_tag, outcome, created_at
         FROM relocations WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list relocations: %w", err)
	}
	defer rows.Close()

	var relocations []Relocation
	for rows.Next() {
		var (
			rel        Relocation
			createdRaw sql.NullString
		)
		err := rows.Scan(
			&rel.RunID,
			&rel.Fingerprint,
			&rel.SourcePath,
			&rel.Destination,
			&rel.MatchedTag,
			&rel.Outcome,
			&createdRaw,
		)
		if err != nil {
			return nil, fmt.Errorf("scan relocation: %w", err)
		}
		rel.CreatedAt = parseTime(createdRaw)
		relocations = append(relocations, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate relocations: %w", err)
	}
	return relocations, nil
}
