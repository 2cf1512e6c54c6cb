package cleanup

import "time"

// Delete outcomes reported to Metrics.
const (
	OutcomeDeleted  = "deleted"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Run outcomes reported to Metrics.
const (
	RunCompleted  = "completed"
	RunPartial    = "partial"
	RunSkipped    = "skipped"
	RunAuthFailed = "auth_failed"
)

// Metrics receives cleanup observations. Implementations must be safe for
// concurrent use.
type Metrics interface {
	ObserveDelete(kind Kind, outcome string, d time.Duration)
	ObserveRun(outcome string, d time.Duration)
	ObserveDecision(policy Policy, cleanup bool)
	SetTracked(kind Kind, n int)
}

type noopMetrics struct{}

func (noopMetrics) ObserveDelete(Kind, string, time.Duration) {}
func (noopMetrics) ObserveRun(string, time.Duration)          {}
func (noopMetrics) ObserveDecision(Policy, bool)              {}
func (noopMetrics) SetTracked(Kind, int)                      {}
