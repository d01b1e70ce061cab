// Package diff matches each poll's observed records against the stored
// baseline and emits typed change events for every field-level difference.
//
// The reconciler and detector are pure: no I/O, no retries, no state beyond
// their arguments. Everything here is deterministic in the order records
// were observed.
package diff

import (
	"github.com/roach88/loanwatch/internal/change"
	"github.com/roach88/loanwatch/internal/record"
)

// StatusClassifier reports whether a status label denotes a terminal
// closed/not-applicable disposition. The reconciler uses it to reclassify a
// status transition into a Closed event; the vocabulary itself lives in the
// notification policy configuration.
type StatusClassifier interface {
	StatusTerminal(status string) bool
}

// Result is the outcome of reconciling one cycle.
type Result struct {
	// New, Updated, Unchanged partition the observed set. Order within each
	// group follows observation order.
	New       []record.Observed
	Updated   []record.Observed
	Unchanged []record.Observed

	// Events is the full ordered change event list: per record in
	// observation order, per field in check order.
	Events []change.Event

	// Missing lists keys present in the stored set but absent from this
	// observation. The portal's pagination makes "absent" ambiguous
	// (filtered vs genuinely gone), so missing keys produce no events and
	// no deletion; they are surfaced here so the caller can log them.
	Missing []record.Key
}

// Reconciler drives change detection for one cycle.
type Reconciler struct {
	status StatusClassifier
}

// New creates a Reconciler using the given status classifier for the
// closed reclassification rule.
func New(status StatusClassifier) *Reconciler {
	return &Reconciler{status: status}
}

// Reconcile joins the observed set against the stored set by identity key
// and classifies every observed record as new, updated, or unchanged.
//
// Returns an InputError (failing the whole cycle) if any record is missing
// its key or either set has two records for one key. Two portal rows whose
// emails normalize to the same key would otherwise diff against the same
// baseline twice, with the later row silently winning the projection.
func (r *Reconciler) Reconcile(observed []record.Observed, stored []record.Stored) (Result, error) {
	prev := make(map[record.Key]record.Stored, len(stored))
	for _, s := range stored {
		if s.Key == "" {
			return Result{}, &InputError{Code: ErrCodeMissingKey, Source: "stored"}
		}
		if _, ok := prev[s.Key]; ok {
			return Result{}, &InputError{Code: ErrCodeDuplicateKey, Key: s.Key, Source: "stored"}
		}
		prev[s.Key] = s
	}

	var res Result
	seen := make(map[record.Key]bool, len(observed))
	for _, obs := range observed {
		if obs.Key == "" {
			return Result{}, &InputError{Code: ErrCodeMissingKey, Source: "observed"}
		}
		if seen[obs.Key] {
			return Result{}, &InputError{Code: ErrCodeDuplicateKey, Key: obs.Key, Source: "observed"}
		}
		seen[obs.Key] = true

		base, ok := prev[obs.Key]
		if !ok {
			// First observation of this key: one new_record event, no
			// field-level diffing against a baseline that does not exist.
			res.New = append(res.New, obs)
			res.Events = append(res.Events, change.NewRecord{Observed: obs})
			continue
		}

		events := r.detect(base, obs)
		if len(events) == 0 {
			res.Unchanged = append(res.Unchanged, obs)
			continue
		}
		res.Updated = append(res.Updated, obs)
		res.Events = append(res.Events, events...)
	}

	// Stored order determines Missing order, keeping the report
	// deterministic for a deterministic store read.
	for _, s := range stored {
		if !seen[s.Key] {
			res.Missing = append(res.Missing, s.Key)
		}
	}

	return res, nil
}

// detect runs the ordered field checks for one matched pair: stage, status,
// amounts (requested, approved, max approved), notes, loss reason. Each
// check yields zero or one event, so a pair differing in two independent
// fields yields exactly two events.
func (r *Reconciler) detect(prev record.Stored, obs record.Observed) []change.Event {
	var events []change.Event

	if !record.EqualLabel(prev.Stage, obs.Stage) {
		events = append(events, change.StageChange{
			Observed: obs,
			Previous: prev.Stage,
			Current:  obs.Stage,
		})
	}

	if !record.EqualLabel(prev.Status, obs.Status) {
		// A transition into the closed vocabulary is reclassified, not
		// doubled: exactly one event per status transition.
		if r.status != nil && r.status.StatusTerminal(obs.Status) {
			events = append(events, change.Closed{
				Observed: obs,
				Previous: prev.Status,
				Current:  obs.Status,
			})
		} else {
			events = append(events, change.StatusChange{
				Observed: obs,
				Previous: prev.Status,
				Current:  obs.Status,
			})
		}
	}

	amounts := []struct {
		field      change.AmountField
		prev, next record.Amount
	}{
		{change.FieldRequestedAmount, prev.RequestedAmount, obs.RequestedAmount},
		{change.FieldApprovedAmount, prev.ApprovedAmount, obs.ApprovedAmount},
		{change.FieldMaxApprovedAmount, prev.MaxApprovedAmount, obs.MaxApprovedAmount},
	}
	for _, a := range amounts {
		if a.prev.Changed(a.next) {
			events = append(events, change.AmountChange{
				Observed: obs,
				Field:    a.field,
				Previous: a.prev,
				Current:  a.next,
			})
		}
	}

	if prev.Notes.Changed(obs.Notes) {
		events = append(events, change.NotesChange{
			Observed: obs,
			Previous: prev.Notes,
			Current:  obs.Notes,
		})
	}

	if prev.LossReason.Changed(obs.LossReason) {
		events = append(events, change.LossReasonChange{
			Observed: obs,
			Previous: prev.LossReason,
			Current:  obs.LossReason,
		})
	}

	return events
}
