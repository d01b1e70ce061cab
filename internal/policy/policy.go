// Package policy decides which detected change events are delivery-eligible.
//
// The business vocabulary (which status labels mean "closed", which pipeline
// stages are excluded from notification) is injected as data, not embedded
// in control flow, so the filtering rules stay auditable and testable
// against alternate configurations.
package policy

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/roach88/loanwatch/internal/change"
)

// Vocabulary is the configured business vocabulary the classifier is built
// from.
type Vocabulary struct {
	// ClosedStatuses are matched case-insensitively as substrings of a
	// record's status label, e.g. ["closed", "n/a"]. Must be non-empty.
	ClosedStatuses []string

	// ExcludedStages are stage names whose records are never notified
	// about, matched case-insensitively as whole labels. May be empty.
	ExcludedStages []string
}

// Classifier answers the two vocabulary questions the detector and policy
// need: is this status terminal, is this stage excluded.
type Classifier struct {
	closed []string
	stages map[string]bool
}

// NewClassifier validates the vocabulary and builds a classifier.
//
// An empty closed vocabulary is a configuration error: the closed
// reclassification rule would silently never fire and closed applications
// would be notified about as ordinary status changes. Fail at startup, not
// per record.
func NewClassifier(v Vocabulary) (*Classifier, error) {
	c := &Classifier{stages: make(map[string]bool, len(v.ExcludedStages))}
	for _, s := range v.ClosedStatuses {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		c.closed = append(c.closed, fold(s))
	}
	if len(c.closed) == 0 {
		return nil, errors.New("policy: closed status vocabulary is empty")
	}
	for _, s := range v.ExcludedStages {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, fmt.Errorf("policy: excluded stage list contains a blank entry")
		}
		c.stages[fold(s)] = true
	}
	return c, nil
}

// StatusTerminal reports whether a status label denotes a closed or
// not-applicable disposition: case-insensitive substring match against the
// configured vocabulary.
func (c *Classifier) StatusTerminal(status string) bool {
	folded := fold(strings.TrimSpace(status))
	for _, term := range c.closed {
		if strings.Contains(folded, term) {
			return true
		}
	}
	return false
}

// StageExcluded reports whether a stage is in the excluded terminal set:
// case-insensitive whole-label match.
func (c *Classifier) StageExcluded(stage string) bool {
	return c.stages[fold(strings.TrimSpace(stage))]
}

// fold case-folds for caseless matching. A new Caser per call: cases.Caser
// carries internal state and is not safe for reuse across goroutines.
func fold(s string) string {
	return cases.Fold().String(s)
}

// RunContext is the per-cycle metadata the policy needs.
type RunContext struct {
	// Baseline is true when the stored set was empty at cycle start, i.e.
	// this cycle establishes the comparison baseline.
	Baseline bool
}

// Policy filters change events down to the delivery-eligible subset.
type Policy struct {
	classifier *Classifier

	// DeliverClosed opts in to delivering the closed transition itself.
	// Default profile suppresses it: closed applications are detected but
	// never notified about. Events on records that are already closed are
	// suppressed under either profile.
	DeliverClosed bool
}

// NewPolicy creates a Policy over the given classifier.
func NewPolicy(c *Classifier, deliverClosed bool) *Policy {
	return &Policy{classifier: c, DeliverClosed: deliverClosed}
}

// Classifier exposes the underlying classifier so the reconciler can share
// the same closed vocabulary for reclassification.
func (p *Policy) Classifier() *Classifier { return p.classifier }

// Filter returns the delivery-eligible subset of events, order preserved.
//
// Precedence:
//  1. Baseline run: nothing is eligible, regardless of kind.
//  2. Record's current status is terminal: drop, unless the event is the
//     closed transition itself and the DeliverClosed profile is on.
//  3. Record's stage is excluded: drop. Evaluated independently of rule 2;
//     a record can reach an excluded stage without a closed status label.
//  4. Everything else is eligible.
//
// Always returns a non-nil slice so an empty result is distinguishable
// from "not filtered".
func (p *Policy) Filter(events []change.Event, rc RunContext) []change.Event {
	eligible := make([]change.Event, 0, len(events))
	if rc.Baseline {
		return eligible
	}
	for _, ev := range events {
		rec := ev.Record()
		if p.classifier.StatusTerminal(rec.Status) {
			if !(p.DeliverClosed && ev.Kind() == change.KindClosed) {
				continue
			}
		}
		if p.classifier.StageExcluded(rec.Stage) {
			continue
		}
		eligible = append(eligible, ev)
	}
	return eligible
}
