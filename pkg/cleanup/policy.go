package cleanup

import (
	"fmt"
	"math"
	"strconv"
)

// RunStatus is the outcome reported by the runner for one test attempt.
type RunStatus string

const (
	StatusPassed      RunStatus = "passed"
	StatusFailed      RunStatus = "failed"
	StatusTimedOut    RunStatus = "timedOut"
	StatusSkipped     RunStatus = "skipped"
	StatusInterrupted RunStatus = "interrupted"
)

// Outcome describes one finished test attempt.
type Outcome struct {
	// Retry is the zero-based attempt index.
	Retry int

	// MaxRetries is the configured retry ceiling. nil means the runner
	// reported no usable number.
	MaxRetries *int

	Status RunStatus
}

// Ceiling returns the retry ceiling, treating a missing or negative value
// as zero.
func (o Outcome) Ceiling() int {
	if o.MaxRetries == nil || *o.MaxRetries < 0 {
		return 0
	}
	return *o.MaxRetries
}

// IsFinalRetry reports whether no further attempt of this test will run.
// With an unknown ceiling every attempt counts as final.
func (o Outcome) IsFinalRetry() bool {
	return o.Retry >= o.Ceiling()
}

// Retries returns a pointer to n, for building an Outcome.
func Retries(n int) *int {
	return &n
}

// RetriesFromFloat converts a numeric ceiling from a loosely typed source.
// NaN and infinities yield nil.
func RetriesFromFloat(f float64) *int {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	n := int(f)
	return &n
}

// ParseRetries parses a ceiling from an environment-style string. Anything
// that is not an integer yields nil.
func ParseRetries(s string) *int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

// Policy decides when tracked entities are deleted.
type Policy int

const (
	// PolicyLastTestOrFailure deletes on the final attempt of the suite's
	// last test, or on the final attempt of any earlier test that failed.
	// Used for suite-scoped fixtures.
	PolicyLastTestOrFailure Policy = iota

	// PolicyPassOnly deletes only when the final attempt passed. Failed
	// fixtures are kept for debugging. Used for per-test fixtures.
	PolicyPassOnly
)

func (p Policy) String() string {
	switch p {
	case PolicyLastTestOrFailure:
		return "last-or-failure"
	case PolicyPassOnly:
		return "pass-only"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy converts a configuration string into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "last-or-failure", "":
		return PolicyLastTestOrFailure, nil
	case "pass-only":
		return PolicyPassOnly, nil
	default:
		return 0, fmt.Errorf("unknown cleanup policy %q (want last-or-failure or pass-only)", s)
	}
}

// ShouldCleanup evaluates the policy. lastTest is only consulted by
// PolicyLastTestOrFailure.
func (p Policy) ShouldCleanup(o Outcome, lastTest bool) bool {
	final := o.IsFinalRetry()
	switch p {
	case PolicyLastTestOrFailure:
		if lastTest {
			return final
		}
		return final && o.Status == StatusFailed
	case PolicyPassOnly:
		return final && o.Status == StatusPassed
	default:
		return false
	}
}
