package snapshot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/loanwatch/internal/record"
)

func TestProject(t *testing.T) {
	cycle := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	created := cycle.Add(-72 * time.Hour)

	observed := []record.Observed{
		{
			Key:               "a@x.com",
			Stage:             "Submitted",
			Status:            "Approved for Loan",
			RequestedAmount:   record.Cents(500000),
			MaxApprovedAmount: record.Cents(900000),
			Notes:             record.String("docs received"),
			SourceCreatedAt:   created,
			SourceUpdatedAt:   created.Add(time.Hour),
		},
		{Key: "b@x.com", Stage: "Funded", Status: "Closed"},
	}

	stored := Project(observed, cycle)
	require.Len(t, stored, 2)

	a := stored[0]
	assert.Equal(t, record.Key("a@x.com"), a.Key)
	assert.Equal(t, "Submitted", a.Stage)
	assert.Equal(t, "Approved for Loan", a.Status)
	assert.Equal(t, record.Cents(500000), a.RequestedAmount)
	assert.False(t, a.ApprovedAmount.Valid)
	assert.Equal(t, record.Cents(900000), a.MaxApprovedAmount)
	assert.Equal(t, record.String("docs received"), a.Notes)
	assert.Equal(t, created, a.SourceCreatedAt)
	assert.Equal(t, cycle, a.LastObservedAt)

	assert.Equal(t, record.Key("b@x.com"), stored[1].Key)
	assert.Equal(t, cycle, stored[1].LastObservedAt)
}

func TestProject_Empty(t *testing.T) {
	stored := Project(nil, time.Now())
	require.NotNil(t, stored)
	assert.Empty(t, stored)
}

func TestProject_RoundTripIsStable(t *testing.T) {
	// Projecting twice at the same timestamp yields identical baselines.
	cycle := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	observed := []record.Observed{{Key: "a@x.com", Stage: "Submitted", Status: "Approved for Loan"}}

	assert.Equal(t, Project(observed, cycle), Project(observed, cycle))
}
