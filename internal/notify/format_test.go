package notify

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"

	"github.com/roach88/loanwatch/internal/change"
	"github.com/roach88/loanwatch/internal/record"
)

func digestEvents() []change.Event {
	a := record.Observed{Key: "a@x.com", Stage: "Accepted & Approved", Status: "Approved for Loan"}
	b := record.Observed{Key: "b@x.com", Stage: "Submitted", Status: "Docs Requested"}
	c := record.Observed{Key: "c@x.com", Stage: "Submitted", Status: "New"}

	return []change.Event{
		change.StageChange{Observed: a, Previous: "Submitted", Current: "Accepted & Approved"},
		change.AmountChange{
			Observed: a,
			Field:    change.FieldApprovedAmount,
			Previous: record.Amount{},
			Current:  record.Cents(1000000),
		},
		change.StatusChange{Observed: b, Previous: "Approved for Loan", Current: "Docs Requested"},
		change.NotesChange{Observed: b, Current: record.String("docs received")},
		change.LossReasonChange{Observed: b, Current: record.String("rate too high")},
		change.NewRecord{Observed: c},
		change.Closed{Observed: a, Previous: "Approved for Loan", Current: "Closed"},
	}
}

func TestFormatDigest_Golden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "digest", []byte(FormatDigest(digestEvents())))
}

func TestFormatDigest_SingleChange(t *testing.T) {
	events := digestEvents()[:1]
	got := FormatDigest(events)
	assert.Equal(t,
		"loanwatch: 1 change detected\n- a@x.com: stage \"Submitted\" -> \"Accepted & Approved\"\n",
		got)
}

func TestFormatAmount(t *testing.T) {
	testCases := []struct {
		amount record.Amount
		want   string
	}{
		{record.Amount{}, "(none)"},
		{record.Cents(1000000), "$10000.00"},
		{record.Cents(500050), "$5000.50"},
		{record.Cents(5), "$0.05"},
		{record.Cents(-2500), "-$25.00"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, formatAmount(tc.amount))
	}
}
