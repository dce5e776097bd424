package service

import "time"

// Outcomes reported with every recorded auth operation.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// AuthMetrics records auth core activity.
type AuthMetrics interface {
	// RecordOperation counts one finished operation by name and outcome.
	RecordOperation(operation, outcome string)

	// RecordPasswordHash observes the time spent hashing a password.
	RecordPasswordHash(duration time.Duration)
}
