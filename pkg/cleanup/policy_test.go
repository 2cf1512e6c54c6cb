package cleanup

import (
	"context"
	"math"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLastTestOrFailure(t *testing.T) {
	p := PolicyLastTestOrFailure

	tests := []struct {
		name     string
		outcome  Outcome
		lastTest bool
		want     bool
	}{
		{"non-last failed first attempt", Outcome{Retry: 0, MaxRetries: Retries(2), Status: StatusFailed}, false, false},
		{"non-last failed final attempt", Outcome{Retry: 2, MaxRetries: Retries(2), Status: StatusFailed}, false, true},
		{"non-last passed final attempt", Outcome{Retry: 2, MaxRetries: Retries(2), Status: StatusPassed}, false, false},
		{"non-last timed out final attempt", Outcome{Retry: 2, MaxRetries: Retries(2), Status: StatusTimedOut}, false, false},
		{"last passed final attempt", Outcome{Retry: 1, MaxRetries: Retries(1), Status: StatusPassed}, true, true},
		{"last failed final attempt", Outcome{Retry: 1, MaxRetries: Retries(1), Status: StatusFailed}, true, true},
		{"last failed early attempt", Outcome{Retry: 0, MaxRetries: Retries(1), Status: StatusFailed}, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.ShouldCleanup(tt.outcome, tt.lastTest))
		})
	}
}

func TestPassOnly(t *testing.T) {
	p := PolicyPassOnly

	assert.True(t, p.ShouldCleanup(Outcome{Retry: 1, MaxRetries: Retries(1), Status: StatusPassed}, false))
	assert.False(t, p.ShouldCleanup(Outcome{Retry: 1, MaxRetries: Retries(1), Status: StatusFailed}, false))
	assert.False(t, p.ShouldCleanup(Outcome{Retry: 0, MaxRetries: Retries(1), Status: StatusPassed}, false))
	assert.False(t, p.ShouldCleanup(Outcome{Retry: 0, MaxRetries: Retries(0), Status: StatusSkipped}, true))
}

func TestUnknownRetryCeiling(t *testing.T) {
	for _, maxRetries := range []*int{nil, RetriesFromFloat(math.NaN()), ParseRetries("abc"), ParseRetries(""), Retries(-1)} {
		o := Outcome{Retry: 0, MaxRetries: maxRetries, Status: StatusPassed}
		assert.Equal(t, 0, o.Ceiling())
		assert.True(t, o.IsFinalRetry())
		assert.True(t, PolicyPassOnly.ShouldCleanup(o, false))
		assert.True(t, PolicyLastTestOrFailure.ShouldCleanup(o, true))

		o.Status = StatusFailed
		assert.True(t, PolicyLastTestOrFailure.ShouldCleanup(o, false))
	}

	assert.Equal(t, 3, *RetriesFromFloat(3))
	assert.Equal(t, 2, *ParseRetries("2"))
	assert.Nil(t, RetriesFromFloat(math.Inf(1)))
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("pass-only")
	require.NoError(t, err)
	assert.Equal(t, PolicyPassOnly, p)

	p, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyLastTestOrFailure, p)
	assert.Equal(t, "last-or-failure", p.String())

	_, err = ParsePolicy("always")
	assert.Error(t, err)
}

func TestRegistryEvaluate(t *testing.T) {
	ctx := context.Background()

	t.Run("SuiteDataDeferredUntilLastTest", func(t *testing.T) {
		r := NewRegistry(Options{})
		id := SuiteIdentifier("S")
		r.Tracker.TrackUser(id, "u1", "")

		dm := authedManager()
		dm.On("DeleteUser", mock.Anything, "u1").Return(nil).Once()

		r.Suites.RegisterTest("S", "a", 2)
		d := r.Evaluate(ctx, Request{
			Policy: PolicyLastTestOrFailure, Identifier: id, Suite: "S", Test: "a",
			Outcome: Outcome{Retry: 0, MaxRetries: Retries(0), Status: StatusPassed},
		}, dm)
		assert.False(t, d.Cleanup)
		assert.False(t, d.LastTest)
		assert.Nil(t, d.Result)

		r.Suites.RegisterTest("S", "b", 2)
		d = r.Evaluate(ctx, Request{
			Policy: PolicyLastTestOrFailure, Identifier: id, Suite: "S", Test: "b",
			Outcome: Outcome{Retry: 0, MaxRetries: Retries(0), Status: StatusPassed},
		}, dm)
		assert.True(t, d.Cleanup)
		assert.True(t, d.LastTest)
		require.NotNil(t, d.Result)
		assert.Equal(t, 1, d.Result.Deleted)
		dm.AssertExpectations(t)
	})

	t.Run("PassOnlyPreservesFailedData", func(t *testing.T) {
		r := NewRegistry(Options{})
		r.Tracker.TrackUser("t", "u1", "")
		r.Tracker.TrackApplication("t", "a1", "")

		dm := &mockDataManager{}
		d := r.Evaluate(ctx, Request{
			Policy: PolicyPassOnly, Identifier: "t",
			Outcome: Outcome{Retry: 1, MaxRetries: Retries(1), Status: StatusFailed},
		}, dm)

		assert.False(t, d.Cleanup)
		require.NotNil(t, d.Preserved)
		assert.Equal(t, Status{Users: 1, Applications: 1}, *d.Preserved)
		assert.Equal(t, 2, r.Tracker.Status("t").Total())
		dm.AssertNotCalled(t, "DeleteUser", mock.Anything, mock.Anything)
	})

	t.Run("PanicsAreContained", func(t *testing.T) {
		r := NewRegistry(Options{})
		r.Tracker.TrackUser("t", "u1", "")

		dm := authedManager()
		dm.On("DeleteUser", mock.Anything, "u1").Run(func(mock.Arguments) { panic("driver exploded") })

		var d Decision
		require.NotPanics(t, func() {
			d = r.Evaluate(ctx, Request{
				Policy: PolicyPassOnly, Identifier: "t",
				Outcome: Outcome{MaxRetries: Retries(0), Status: StatusPassed},
			}, dm)
		})
		assert.True(t, d.Cleanup)
		assert.ErrorContains(t, d.Err, "driver exploded")
	})

	t.Run("AuthFailureReported", func(t *testing.T) {
		r := NewRegistry(Options{Fallback: Credentials{Email: "admin@example.com", Password: "pw"}})
		r.Tracker.TrackUser("t", "u1", "")

		dm := &mockDataManager{}
		dm.On("Headers").Return(http.Header{})
		dm.On("HasValidToken").Return(false)
		dm.On("Authenticate", mock.Anything, "admin@example.com", "pw").Return(false)

		d := r.Evaluate(ctx, Request{
			Policy: PolicyPassOnly, Identifier: "t",
			Outcome: Outcome{MaxRetries: Retries(0), Status: StatusPassed},
		}, dm)
		assert.ErrorIs(t, d.Err, ErrAuthenticationFailed)
		assert.False(t, r.Executor.IsCompleted("t"))
	})
}

func TestRegistrySweep(t *testing.T) {
	m := newRecordingMetrics()
	r := NewRegistry(Options{Metrics: m, Journal: newMemJournal()})
	r.Tracker.TrackUser("suite_A", "u1", "")
	r.Tracker.TrackSession("suite_B", "s1")

	dm := authedManager()
	dm.On("DeleteUser", mock.Anything, "u1").Return(nil)
	dm.On("DeleteSession", mock.Anything, "s1").Return(nil)

	results, err := r.Sweep(context.Background(), dm)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Empty(t, r.Tracker.Identifiers())
	assert.Equal(t, 0, m.tracked[KindUser])
	dm.AssertExpectations(t)
}

func TestRegistrySweepKeepsPreservedData(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(Options{})
	r.Tracker.TrackUser("kept", "u1", "")
	r.Tracker.TrackUser("leftover", "u2", "")

	dm := authedManager()
	d := r.Evaluate(ctx, Request{
		Policy: PolicyPassOnly, Identifier: "kept",
		Outcome: Outcome{MaxRetries: Retries(0), Status: StatusFailed},
	}, dm)
	require.NotNil(t, d.Preserved)

	dm.On("DeleteUser", mock.Anything, "u2").Return(nil)
	results, err := r.Sweep(ctx, dm)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "leftover", results[0].Identifier)
	assert.Equal(t, []string{"kept"}, r.Tracker.Identifiers())
	dm.AssertNotCalled(t, "DeleteUser", mock.Anything, "u1")
	dm.AssertExpectations(t)
}
