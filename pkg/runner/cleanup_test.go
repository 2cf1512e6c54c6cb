package runner

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/screening-e2e/pkg/cleanup"
)

func TestCleanupOnLastTestOfSuite(t *testing.T) {
	env, dm := testEnv(t, 0)
	s := newSuite(newFakeReporter("TestSuite"), "shared", Options{Env: env})

	var afterFirst []string
	s.TestWithCleanup("creates", func(t *T) {
		t.Track(cleanup.User("u1", "u1@e2e.example.com"))
	}, WithSuiteIdentifier())
	s.TestWithCleanup("extends", func(t *T) {
		afterFirst = dm.Deleted()
		t.Track(cleanup.Application("a1", "app"))
	}, WithSuiteIdentifier())
	s.Run()

	assert.Empty(t, afterFirst, "first test of the suite keeps data")
	assert.Equal(t, []string{"application:a1", "user:u1"}, dm.Deleted())
}

func TestCleanupOnFinalFailure(t *testing.T) {
	env, dm := testEnv(t, 1)
	r := newFakeReporter("TestSuite")
	s := newSuite(r, "failing", Options{Env: env})

	var decisions []cleanup.Decision
	s.TestWithCleanup("breaks", func(t *T) {
		t.Track(cleanup.User(fmt.Sprintf("u-%d", t.Info().Retry), ""))
		t.Errorf("nope")
	}, OnDecision(func(d cleanup.Decision) {
		decisions = append(decisions, d)
	}))
	s.TestWithCleanup("after", func(t *T) {})
	s.Run()

	require.Len(t, decisions, 2)
	assert.False(t, decisions[0].Cleanup, "a retry is still coming")
	assert.True(t, decisions[1].Cleanup)
	assert.True(t, decisions[1].FinalRetry)
	// Both attempts registered, so the retry count fills the suite.
	assert.True(t, decisions[1].LastTest)
	assert.ElementsMatch(t, []string{"user:u-0", "user:u-1"}, dm.Deleted())
}

func TestPassOnlyPreservesFailedData(t *testing.T) {
	env, dm := testEnv(t, 0)
	s := newSuite(newFakeReporter("TestSuite"), "debuggable", Options{Env: env})

	var decision cleanup.Decision
	s.TestWithCleanup("fails", func(t *T) {
		t.Track(cleanup.User("u1", ""), cleanup.Session("s1"))
		t.Errorf("keep it")
	}, WithPolicy(cleanup.PolicyPassOnly), OnDecision(func(d cleanup.Decision) {
		decision = d
	}))
	s.Run()

	assert.False(t, decision.Cleanup)
	require.NotNil(t, decision.Preserved)
	assert.Equal(t, 1, decision.Preserved.Users)
	assert.Equal(t, 1, decision.Preserved.Sessions)
	assert.Empty(t, dm.Deleted())
}

func TestPassOnlyCleansAfterRetryPasses(t *testing.T) {
	env, dm := testEnv(t, 1, WithDefaultPolicy(cleanup.PolicyPassOnly))
	s := newSuite(newFakeReporter("TestSuite"), "flaky", Options{Env: env})

	s.TestWithCleanup("eventually", func(t *T) {
		t.Track(cleanup.Session(fmt.Sprintf("s%d", t.Info().Retry)))
		if t.Info().Retry == 0 {
			t.Errorf("first attempt fails")
		}
	})
	s.Run()

	assert.ElementsMatch(t, []string{"session:s0", "session:s1"}, dm.Deleted())
}

func TestCleanupUsesTestIdentifier(t *testing.T) {
	env, _ := testEnv(t, 0)
	s := newSuite(newFakeReporter("TestApplicants"), "applicants", Options{Env: env})

	var id, explicit string
	s.TestWithCleanup("one", func(t *T) {
		id = t.Identifier()
	})
	s.TestWithCleanup("two", func(t *T) {
		explicit = t.Identifier()
	}, WithIdentifier("custom"))
	s.Run()

	assert.Equal(t, cleanup.TestIdentifier([]string{"TestApplicants", "applicants", "one"}), id)
	assert.Equal(t, "custom", explicit)
}

func TestCleanupDataManagerOverride(t *testing.T) {
	env, envDM := testEnv(t, 0)
	override := &recordingManager{}
	s := newSuite(newFakeReporter("TestSuite"), "override", Options{Env: env})

	s.TestWithCleanup("only", func(t *T) {
		t.Track(cleanup.User("u1", ""))
	}, WithDataManager(override))
	s.Run()

	assert.Empty(t, envDM.Deleted())
	assert.Equal(t, []string{"user:u1"}, override.Deleted())
}

func TestTotalTestsOverride(t *testing.T) {
	env, dm := testEnv(t, 0)
	s := newSuite(newFakeReporter("TestSuite"), "partial", Options{Env: env})

	s.TestWithCleanup("first", func(t *T) {
		t.Track(cleanup.User("u1", ""))
	}, WithSuiteIdentifier(), WithTotalTests(1))
	s.TestWithCleanup("second", func(t *T) {}, WithSuiteIdentifier(), WithTotalTests(1))
	s.Run()

	assert.Equal(t, []string{"user:u1"}, dm.Deleted())
}

func TestTrackOutsideCleanupFails(t *testing.T) {
	env, _ := testEnv(t, 0)
	r := newFakeReporter("TestSuite")
	s := newSuite(r, "plain", Options{Env: env})

	s.Test("no identifier", func(t *T) {
		t.Track(cleanup.User("u1", ""))
	})
	s.Run()

	require.True(t, r.child(0).failed())
	assert.Contains(t, r.child(0).errors[0], "Track called outside TestWithCleanup")
}

func TestEnvSweepRemovesDataLeftByEarlyPass(t *testing.T) {
	env, dm := testEnv(t, 1)
	s := newSuite(newFakeReporter("TestSuite"), "retried", Options{Env: env})

	s.TestWithCleanup("only", func(t *T) {
		t.Track(cleanup.User("u1", ""))
	}, WithSuiteIdentifier())
	s.Run()

	// Passed on the first attempt, so the final retry never ran.
	assert.Empty(t, dm.Deleted())

	results, err := env.Sweep(t.Context())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, []string{"user:u1"}, dm.Deleted())
	assert.Empty(t, env.Registry.Tracker.Identifiers())
}

func TestEnvSweepKeepsPreservedData(t *testing.T) {
	env, dm := testEnv(t, 0, WithDefaultPolicy(cleanup.PolicyPassOnly))
	s := newSuite(newFakeReporter("TestSuite"), "debuggable", Options{Env: env})

	s.TestWithCleanup("fails", func(t *T) {
		t.Track(cleanup.User("u1", ""))
		t.Errorf("keep it")
	})
	s.Run()

	results, err := env.Sweep(t.Context())
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, dm.Deleted())
}
