package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/loanwatch/internal/cycle"
	"github.com/roach88/loanwatch/internal/record"
)

// Timestamps are stored as RFC 3339 UTC TEXT so the rows stay readable in
// the sqlite3 shell and sort lexicographically in time order.
const timeLayout = time.RFC3339Nano

func timeToDB(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func timeFromDB(s sql.NullString) (time.Time, error) {
	if !s.Valid || s.String == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeLayout, s.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s.String, err)
	}
	return t, nil
}

func amountToDB(a record.Amount) any {
	if !a.Valid {
		return nil
	}
	return a.Cents
}

func amountFromDB(n sql.NullInt64) record.Amount {
	if !n.Valid {
		return record.Amount{}
	}
	return record.Cents(n.Int64)
}

func textToDB(t record.Text) any {
	if !t.Valid {
		return nil
	}
	return t.Value
}

func textFromDB(s sql.NullString) record.Text {
	if !s.Valid {
		return record.Text{}
	}
	return record.Text{Value: s.String, Valid: true}
}

// scanner matches both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanStored(row scanner) (record.Stored, error) {
	var (
		rec                  record.Stored
		key                  string
		requested, approved  sql.NullInt64
		maxApproved          sql.NullInt64
		notes, lossReason    sql.NullString
		createdAt, updatedAt sql.NullString
		observedAt           string
	)
	if err := row.Scan(&key, &rec.Stage, &rec.Status,
		&requested, &approved, &maxApproved,
		&notes, &lossReason,
		&createdAt, &updatedAt, &observedAt); err != nil {
		return record.Stored{}, fmt.Errorf("scan record: %w", err)
	}

	rec.Key = record.Key(key)
	rec.RequestedAmount = amountFromDB(requested)
	rec.ApprovedAmount = amountFromDB(approved)
	rec.MaxApprovedAmount = amountFromDB(maxApproved)
	rec.Notes = textFromDB(notes)
	rec.LossReason = textFromDB(lossReason)

	var err error
	if rec.SourceCreatedAt, err = timeFromDB(createdAt); err != nil {
		return record.Stored{}, err
	}
	if rec.SourceUpdatedAt, err = timeFromDB(updatedAt); err != nil {
		return record.Stored{}, err
	}
	if rec.LastObservedAt, err = timeFromDB(sql.NullString{String: observedAt, Valid: true}); err != nil {
		return record.Stored{}, err
	}
	return rec, nil
}

func scanSummary(row scanner) (cycle.Summary, error) {
	var (
		sum        cycle.Summary
		startedAt  string
		durationMS int64
		errText    sql.NullString
	)
	if err := row.Scan(&sum.CycleID, &startedAt, &durationMS, &sum.Baseline,
		&sum.Observed, &sum.Changes, &sum.NewRecords, &sum.Delivered,
		&sum.Missing, &errText); err != nil {
		return cycle.Summary{}, fmt.Errorf("scan run: %w", err)
	}

	var err error
	if sum.StartedAt, err = timeFromDB(sql.NullString{String: startedAt, Valid: true}); err != nil {
		return cycle.Summary{}, err
	}
	sum.Duration = time.Duration(durationMS) * time.Millisecond
	if errText.Valid {
		sum.Err = errText.String
	}
	return sum, nil
}
