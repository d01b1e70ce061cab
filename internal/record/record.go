// Package record defines the value types shared by the reconciler, the
// notification policy, and the snapshot store: the observed record delivered
// by the portal export, the stored record persisted between poll cycles, and
// the nullable field wrappers both are built from.
package record

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Key is the stable, cycle-spanning identity of one tracked application.
// It is derived from the applicant email, so two observations of the same
// application always carry the same key regardless of how the portal cased
// or padded the address.
type Key string

// NormalizeKey derives a Key from a raw applicant email.
//
// Normalization is trim + lowercase + Unicode NFC. The same normalization
// must be applied on every path that produces a Key (acquisition and
// storage), otherwise the cross-cycle join silently splits one application
// into two.
func NormalizeKey(email string) Key {
	return Key(norm.NFC.String(strings.ToLower(strings.TrimSpace(email))))
}

// Amount is a nullable currency amount in whole cents.
//
// The zero value is null. Null means "the portal did not render this field",
// never "the field was cleared" - see Changed for the direction rule.
type Amount struct {
	Cents int64
	Valid bool
}

// Cents returns a non-null Amount.
func Cents(n int64) Amount {
	return Amount{Cents: n, Valid: true}
}

// Equal reports field-level equality: both null, or both non-null with the
// same cent value. Amounts are discrete currency units; there is no epsilon.
func (a Amount) Equal(b Amount) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Cents == b.Cents
}

// Changed reports whether observing next after a constitutes a change event
// on an optional amount field.
//
// An observed null is "unknown", not "cleared": a non-null stored value
// followed by an observed null must NOT fire, or a single poll where the
// portal fails to render the field would storm false changes. Only the
// direction that introduces information fires.
func (a Amount) Changed(next Amount) bool {
	if !next.Valid {
		return false
	}
	if !a.Valid {
		return true
	}
	return a.Cents != next.Cents
}

// Text is a nullable free-text field (notes, loss reason). Same null
// semantics as Amount. Comparison trims surrounding whitespace; case is
// significant.
type Text struct {
	Value string
	Valid bool
}

// String returns a non-null Text with the value trimmed.
func String(s string) Text {
	return Text{Value: strings.TrimSpace(s), Valid: true}
}

// Equal reports trimmed, case-sensitive equality, with null equal only to
// null.
func (t Text) Equal(u Text) bool {
	if t.Valid != u.Valid {
		return false
	}
	return !t.Valid || strings.TrimSpace(t.Value) == strings.TrimSpace(u.Value)
}

// Changed applies the same null-is-unknown direction rule as Amount.Changed.
func (t Text) Changed(next Text) bool {
	if !next.Valid {
		return false
	}
	if !t.Valid {
		return true
	}
	return strings.TrimSpace(t.Value) != strings.TrimSpace(next.Value)
}

// EqualLabel reports equality for required text fields (stage, status):
// byte-identical after trimming. Case is significant - status labels are an
// enumerated vocabulary, and folding case here would mask real transitions.
func EqualLabel(a, b string) bool {
	return strings.TrimSpace(a) == strings.TrimSpace(b)
}

// Observed is the result of one poll for one application: what the portal
// export currently shows. Produced fresh each cycle by the acquisition
// client and never retained across cycles.
type Observed struct {
	Key    Key
	Stage  string // pipeline bucket, the portal's "tab"
	Status string // free-text status label

	RequestedAmount   Amount
	ApprovedAmount    Amount
	MaxApprovedAmount Amount

	Notes      Text
	LossReason Text

	// Provenance timestamps from the source system.
	SourceCreatedAt time.Time
	SourceUpdatedAt time.Time
}

// Stored is the last-known state for one key, the comparison baseline for
// the next cycle. The field list is the wire contract with the snapshot
// store and must stay stable.
type Stored struct {
	Key    Key
	Stage  string
	Status string

	RequestedAmount   Amount
	ApprovedAmount    Amount
	MaxApprovedAmount Amount

	Notes      Text
	LossReason Text

	SourceCreatedAt time.Time
	SourceUpdatedAt time.Time

	// LastObservedAt is the cycle timestamp of the poll that produced this
	// record.
	LastObservedAt time.Time
}

// EqualFields reports whether an observed record differs from its stored
// baseline in any comparable field, under the direction rules above. Used
// by the reconciler to classify updated vs unchanged.
func EqualFields(prev Stored, obs Observed) bool {
	if !EqualLabel(prev.Stage, obs.Stage) || !EqualLabel(prev.Status, obs.Status) {
		return false
	}
	if prev.RequestedAmount.Changed(obs.RequestedAmount) ||
		prev.ApprovedAmount.Changed(obs.ApprovedAmount) ||
		prev.MaxApprovedAmount.Changed(obs.MaxApprovedAmount) {
		return false
	}
	if prev.Notes.Changed(obs.Notes) || prev.LossReason.Changed(obs.LossReason) {
		return false
	}
	return true
}
