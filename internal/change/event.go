// Package change defines the typed change events the reconciler emits.
//
// Each detected difference is its own variant carrying exactly the fields
// that kind needs, rather than one wide struct with fields that are only
// meaningful for some kinds. Events are ephemeral: produced during a cycle,
// optionally filtered and delivered, then discarded. They are never
// persisted.
package change

import "github.com/roach88/loanwatch/internal/record"

// Kind identifies the variant of a change event.
type Kind string

const (
	KindNewRecord        Kind = "new_record"
	KindStageChange      Kind = "stage_change"
	KindStatusChange     Kind = "status_change"
	KindAmountChange     Kind = "amount_change"
	KindNotesChange      Kind = "notes_change"
	KindLossReasonChange Kind = "loss_reason_change"

	// KindClosed is a status change whose new value falls in the configured
	// closed vocabulary. It replaces the status_change event for that
	// transition; a single transition never yields both.
	KindClosed Kind = "closed"
)

// AmountField names which monetary field an AmountChange refers to.
type AmountField string

const (
	FieldRequestedAmount   AmountField = "requested_amount"
	FieldApprovedAmount    AmountField = "approved_amount"
	FieldMaxApprovedAmount AmountField = "max_approved_amount"
)

// Event is one detected difference between an observed record and its
// stored baseline. The concrete type determines the kind; Record returns
// the triggering observation so the policy can inspect its current status
// and stage.
type Event interface {
	Kind() Kind
	Record() record.Observed
}

// NewRecord marks a key observed for the first time. No field-level pairs:
// there is no baseline to diff against.
type NewRecord struct {
	Observed record.Observed
}

func (e NewRecord) Kind() Kind              { return KindNewRecord }
func (e NewRecord) Record() record.Observed { return e.Observed }

// StageChange is a move between pipeline buckets.
type StageChange struct {
	Observed record.Observed
	Previous string
	Current  string
}

func (e StageChange) Kind() Kind              { return KindStageChange }
func (e StageChange) Record() record.Observed { return e.Observed }

// StatusChange is a status label transition into a non-closed value.
type StatusChange struct {
	Observed record.Observed
	Previous string
	Current  string
}

func (e StatusChange) Kind() Kind              { return KindStatusChange }
func (e StatusChange) Record() record.Observed { return e.Observed }

// Closed is a status label transition into the closed vocabulary.
type Closed struct {
	Observed record.Observed
	Previous string
	Current  string
}

func (e Closed) Kind() Kind              { return KindClosed }
func (e Closed) Record() record.Observed { return e.Observed }

// AmountChange is a monetary field gaining a value or moving to a new one.
// Previous may be null (first time the portal rendered the field).
type AmountChange struct {
	Observed record.Observed
	Field    AmountField
	Previous record.Amount
	Current  record.Amount
}

func (e AmountChange) Kind() Kind              { return KindAmountChange }
func (e AmountChange) Record() record.Observed { return e.Observed }

// NotesChange is the free-text notes field gaining or changing content.
type NotesChange struct {
	Observed record.Observed
	Previous record.Text
	Current  record.Text
}

func (e NotesChange) Kind() Kind              { return KindNotesChange }
func (e NotesChange) Record() record.Observed { return e.Observed }

// LossReasonChange is the loss reason field gaining or changing content.
type LossReasonChange struct {
	Observed record.Observed
	Previous record.Text
	Current  record.Text
}

func (e LossReasonChange) Kind() Kind              { return KindLossReasonChange }
func (e LossReasonChange) Record() record.Observed { return e.Observed }
