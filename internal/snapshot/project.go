// Package snapshot projects one cycle's observed record set into the stored
// shape that becomes the next cycle's comparison baseline.
package snapshot

import (
	"time"

	"github.com/roach88/loanwatch/internal/record"
)

// Project maps every observed record to a stored record with LastObservedAt
// set to the cycle timestamp. The projection is upsert-only: keys that were
// not observed this cycle are simply absent from the result, and deciding
// what to do with them (retain, expire) belongs to the store, never to this
// mapping.
func Project(observed []record.Observed, at time.Time) []record.Stored {
	stored := make([]record.Stored, 0, len(observed))
	for _, obs := range observed {
		stored = append(stored, record.Stored{
			Key:               obs.Key,
			Stage:             obs.Stage,
			Status:            obs.Status,
			RequestedAmount:   obs.RequestedAmount,
			ApprovedAmount:    obs.ApprovedAmount,
			MaxApprovedAmount: obs.MaxApprovedAmount,
			Notes:             obs.Notes,
			LossReason:        obs.LossReason,
			SourceCreatedAt:   obs.SourceCreatedAt,
			SourceUpdatedAt:   obs.SourceUpdatedAt,
			LastObservedAt:    at,
		})
	}
	return stored
}
