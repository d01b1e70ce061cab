package notify

import (
	"fmt"
	"strings"

	"github.com/roach88/loanwatch/internal/change"
	"github.com/roach88/loanwatch/internal/record"
)

// FormatEvent renders one change event as a single human-readable line.
func FormatEvent(ev change.Event) string {
	key := ev.Record().Key
	switch e := ev.(type) {
	case change.NewRecord:
		return fmt.Sprintf("%s: new application in %q (%s)", key, e.Observed.Stage, e.Observed.Status)
	case change.StageChange:
		return fmt.Sprintf("%s: stage %q -> %q", key, e.Previous, e.Current)
	case change.StatusChange:
		return fmt.Sprintf("%s: status %q -> %q", key, e.Previous, e.Current)
	case change.Closed:
		return fmt.Sprintf("%s: closed (%q -> %q)", key, e.Previous, e.Current)
	case change.AmountChange:
		return fmt.Sprintf("%s: %s %s -> %s",
			key, amountLabel(e.Field), formatAmount(e.Previous), formatAmount(e.Current))
	case change.NotesChange:
		return fmt.Sprintf("%s: notes updated: %q", key, e.Current.Value)
	case change.LossReasonChange:
		return fmt.Sprintf("%s: loss reason: %q", key, e.Current.Value)
	default:
		return fmt.Sprintf("%s: %s", key, ev.Kind())
	}
}

// FormatDigest renders one cycle's delivery-eligible events as a single
// message: a count line followed by one line per event, in event order.
func FormatDigest(events []change.Event) string {
	var b strings.Builder
	if len(events) == 1 {
		b.WriteString("loanwatch: 1 change detected\n")
	} else {
		fmt.Fprintf(&b, "loanwatch: %d changes detected\n", len(events))
	}
	for _, ev := range events {
		b.WriteString("- ")
		b.WriteString(FormatEvent(ev))
		b.WriteString("\n")
	}
	return b.String()
}

func amountLabel(f change.AmountField) string {
	switch f {
	case change.FieldRequestedAmount:
		return "requested amount"
	case change.FieldApprovedAmount:
		return "approved amount"
	case change.FieldMaxApprovedAmount:
		return "max approved amount"
	default:
		return string(f)
	}
}

func formatAmount(a record.Amount) string {
	if !a.Valid {
		return "(none)"
	}
	sign := ""
	cents := a.Cents
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}
