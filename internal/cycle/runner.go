// Package cycle orchestrates one poll cycle: fetch, reconcile, filter,
// deliver, persist, summarize.
//
// The runner owns no state between invocations; everything it needs is
// handed in (collaborator handles, clock) and everything it produces is
// returned or handed out (summary, projected snapshot). The external
// scheduler guarantees cycles never overlap.
package cycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/loanwatch/internal/change"
	"github.com/roach88/loanwatch/internal/diff"
	"github.com/roach88/loanwatch/internal/policy"
	"github.com/roach88/loanwatch/internal/record"
	"github.com/roach88/loanwatch/internal/snapshot"
)

// Source delivers the current observed record set. A failed acquisition
// must return an error, never a truncated set: a partial set would read as
// "many records disappeared".
type Source interface {
	Fetch(ctx context.Context) ([]record.Observed, error)
}

// SnapshotStore reads the previous cycle's baseline and persists the next
// one. Records must return an empty slice exactly when no prior cycle
// succeeded; that return is the baseline-run signal. SaveRecords must be
// atomic relative to the next cycle's read.
type SnapshotStore interface {
	Records(ctx context.Context) ([]record.Stored, error)
	SaveRecords(ctx context.Context, records []record.Stored) error
}

// Notifier delivers the delivery-eligible events. It owns formatting and
// transport and must tolerate duplicate delivery attempts; the runner does
// not track acknowledgement.
type Notifier interface {
	Deliver(ctx context.Context, events []change.Event) error
}

// RunLog records the per-cycle summary, success or failure.
type RunLog interface {
	Record(ctx context.Context, s Summary) error
}

// Summary is the per-cycle run record.
type Summary struct {
	CycleID    string        `json:"cycle_id"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Baseline   bool          `json:"baseline"`
	Observed   int           `json:"observed"`
	Changes    int           `json:"changes"`
	NewRecords int           `json:"new_records"`
	Delivered  int           `json:"delivered"`
	Missing    int           `json:"missing"`
	Err        string        `json:"error,omitempty"`
}

// Runner executes one cycle to completion.
type Runner struct {
	source   Source
	store    SnapshotStore
	notifier Notifier
	runLog   RunLog
	policy   *policy.Policy
	recon    *diff.Reconciler

	// Now supplies the cycle timestamp; defaults to time.Now. Overridable
	// for deterministic tests.
	Now func() time.Time
}

// NewRunner wires a runner. The reconciler shares the policy's classifier
// so reclassification and suppression read the same closed vocabulary.
func NewRunner(src Source, store SnapshotStore, n Notifier, rl RunLog, p *policy.Policy) *Runner {
	return &Runner{
		source:   src,
		store:    store,
		notifier: n,
		runLog:   rl,
		policy:   p,
		recon:    diff.New(p.Classifier()),
		Now:      time.Now,
	}
}

// Run executes one poll cycle and returns its summary.
//
// Any collaborator failure aborts the remaining steps for this cycle; the
// error is returned after the run log records the failed summary. The next
// cycle starts from whatever baseline was last fully persisted.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	started := r.Now()
	sum := Summary{
		CycleID:   uuid.Must(uuid.NewV7()).String(),
		StartedAt: started,
	}
	log := slog.With("cycle", sum.CycleID)

	finish := func(err error) (Summary, error) {
		sum.Duration = r.Now().Sub(started)
		if err != nil {
			sum.Err = err.Error()
		}
		if logErr := r.runLog.Record(ctx, sum); logErr != nil {
			log.Error("run log write failed", "error", logErr)
			if err == nil {
				err = fmt.Errorf("record run summary: %w", logErr)
			}
		}
		return sum, err
	}

	observed, err := r.source.Fetch(ctx)
	if err != nil {
		return finish(fmt.Errorf("fetch observed records: %w", err))
	}
	sum.Observed = len(observed)

	stored, err := r.store.Records(ctx)
	if err != nil {
		return finish(fmt.Errorf("read stored records: %w", err))
	}
	sum.Baseline = len(stored) == 0

	res, err := r.recon.Reconcile(observed, stored)
	if err != nil {
		return finish(fmt.Errorf("reconcile: %w", err))
	}
	sum.Changes = len(res.Events)
	sum.NewRecords = len(res.New)
	sum.Missing = len(res.Missing)
	if len(res.Missing) > 0 {
		// Could be pagination, could be genuinely gone. Surfaced, never
		// guessed at.
		log.Warn("stored records missing from observation",
			"count", len(res.Missing), "keys", res.Missing)
	}

	eligible := r.policy.Filter(res.Events, policy.RunContext{Baseline: sum.Baseline})
	sum.Delivered = len(eligible)
	log.Info("cycle reconciled",
		"observed", sum.Observed, "baseline", sum.Baseline,
		"changes", sum.Changes, "new", sum.NewRecords, "eligible", len(eligible))

	delivered := false
	if len(eligible) > 0 {
		if err := r.notifier.Deliver(ctx, eligible); err != nil {
			sum.Delivered = 0
			return finish(fmt.Errorf("deliver notifications: %w", err))
		}
		delivered = true
	}

	projected := snapshot.Project(observed, started)
	if err := r.store.SaveRecords(ctx, projected); err != nil {
		if delivered {
			// Notifications went out but the baseline did not advance, so
			// the next cycle will detect and deliver the same changes
			// again. Duplicate delivery, not corruption.
			log.Error("snapshot persistence failed after delivery; next cycle may re-notify",
				"error", err)
		}
		return finish(fmt.Errorf("save snapshot: %w", err))
	}

	return finish(nil)
}
