package store

import (
	"context"
	"fmt"

	"github.com/roach88/loanwatch/internal/cycle"
	"github.com/roach88/loanwatch/internal/record"
)

// SaveRecords upserts the projected snapshot in a single transaction.
//
// All-or-nothing: either every observed record lands or none do, so a
// failure mid-save leaves the previous baseline intact for the next cycle.
// Keys absent from the snapshot are left untouched (upsert-only contract;
// see Prune for retention).
func (s *Store) SaveRecords(ctx context.Context, records []record.Stored) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save records: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records
		(key, stage, status,
		 requested_cents, approved_cents, max_approved_cents,
		 notes, loss_reason,
		 source_created_at, source_updated_at, last_observed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			stage              = excluded.stage,
			status             = excluded.status,
			requested_cents    = excluded.requested_cents,
			approved_cents     = excluded.approved_cents,
			max_approved_cents = excluded.max_approved_cents,
			notes              = excluded.notes,
			loss_reason        = excluded.loss_reason,
			source_created_at  = excluded.source_created_at,
			source_updated_at  = excluded.source_updated_at,
			last_observed_at   = excluded.last_observed_at
	`)
	if err != nil {
		return fmt.Errorf("save records: prepare: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if rec.Key == "" {
			return fmt.Errorf("save records: record without identity key")
		}
		if _, err := stmt.ExecContext(ctx,
			string(rec.Key), rec.Stage, rec.Status,
			amountToDB(rec.RequestedAmount),
			amountToDB(rec.ApprovedAmount),
			amountToDB(rec.MaxApprovedAmount),
			textToDB(rec.Notes),
			textToDB(rec.LossReason),
			timeToDB(rec.SourceCreatedAt),
			timeToDB(rec.SourceUpdatedAt),
			timeToDB(rec.LastObservedAt),
		); err != nil {
			return fmt.Errorf("save records: upsert %s: %w", rec.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save records: commit: %w", err)
	}
	return nil
}

// Record appends one run summary row. Implements cycle.RunLog.
// ON CONFLICT DO NOTHING: re-recording the same cycle id is a no-op.
func (s *Store) Record(ctx context.Context, sum cycle.Summary) error {
	var errText any
	if sum.Err != "" {
		errText = sum.Err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, started_at, duration_ms, baseline,
		 observed, changes, new_records, delivered, missing, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		sum.CycleID,
		timeToDB(sum.StartedAt),
		sum.Duration.Milliseconds(),
		sum.Baseline,
		sum.Observed,
		sum.Changes,
		sum.NewRecords,
		sum.Delivered,
		sum.Missing,
		errText,
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", sum.CycleID, err)
	}
	return nil
}
