package store

import (
	"context"
	"fmt"

	"github.com/roach88/loanwatch/internal/cycle"
	"github.com/roach88/loanwatch/internal/record"
)

// Records returns the full stored snapshot, ordered deterministically by
// key (binary collation).
//
// Returns an empty slice (not nil) when no prior cycle has persisted a
// snapshot - the caller reads that as the baseline-run signal.
func (s *Store) Records(ctx context.Context) ([]record.Stored, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, stage, status,
		       requested_cents, approved_cents, max_approved_cents,
		       notes, loss_reason,
		       source_created_at, source_updated_at, last_observed_at
		FROM records
		ORDER BY key COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []record.Stored{}
	for rows.Next() {
		rec, err := scanStored(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// Runs returns the most recent run summaries, newest first, up to limit.
func (s *Store) Runs(ctx context.Context, limit int) ([]cycle.Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, duration_ms, baseline,
		       observed, changes, new_records, delivered, missing, error
		FROM runs
		ORDER BY started_at DESC, id COLLATE BINARY DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	summaries := []cycle.Summary{}
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return summaries, nil
}
