package cleanup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityTracker(t *testing.T) {
	t.Run("StatusCountsPerIdentifier", func(t *testing.T) {
		tr := NewEntityTracker()
		tr.TrackUser("suite_A", "u1", "a@example.com")
		tr.TrackUser("suite_A", "u2", "b@example.com")
		tr.TrackSession("suite_A", "s1")
		tr.TrackApplication("other", "app1", "App")

		assert.Equal(t, Status{Users: 2, Sessions: 1}, tr.Status("suite_A"))
		assert.Equal(t, Status{Applications: 1}, tr.Status("other"))
		assert.Equal(t, Status{}, tr.Status("unknown"))
		assert.Equal(t, 3, tr.Status("suite_A").Total())
	})

	t.Run("EntitiesInDeletionOrder", func(t *testing.T) {
		tr := NewEntityTracker()
		tr.TrackUser("id", "u1", "")
		tr.TrackApplication("id", "a1", "")
		tr.TrackSession("id", "s1")
		tr.TrackUser("id", "u2", "")

		var got []string
		for _, e := range tr.Entities("id") {
			got = append(got, e.ID)
		}
		assert.Equal(t, []string{"s1", "a1", "u1", "u2"}, got)
	})

	t.Run("IgnoresEmptyID", func(t *testing.T) {
		tr := NewEntityTracker()
		tr.TrackUser("id", "", "nobody@example.com")
		assert.Equal(t, 0, tr.Status("id").Total())
		assert.Empty(t, tr.Identifiers())
	})

	t.Run("DuplicatesAreKept", func(t *testing.T) {
		tr := NewEntityTracker()
		tr.TrackUser("id", "u1", "")
		tr.TrackUser("id", "u1", "")
		assert.Equal(t, 2, tr.Status("id").Users)
	})

	t.Run("AllAndIdentifiers", func(t *testing.T) {
		tr := NewEntityTracker()
		tr.TrackUser("b", "u1", "")
		tr.TrackUser("a", "u2", "")
		tr.TrackSession("a", "s1")

		assert.Equal(t, []string{"a", "b"}, tr.Identifiers())
		all := tr.All()
		assert.Len(t, all[KindUser], 2)
		assert.Len(t, all[KindSession], 1)
	})

	t.Run("ClearForgetsJournal", func(t *testing.T) {
		j := newMemJournal()
		tr := NewEntityTracker(WithJournal(j))
		tr.TrackUser("id", "u1", "")
		require.Len(t, j.appended["id"], 1)

		tr.Clear("id")
		assert.Equal(t, Status{}, tr.Status("id"))
		assert.Empty(t, j.appended)
		assert.Equal(t, []string{"id"}, j.forgot)
	})
}

func TestSuiteTracker(t *testing.T) {
	t.Run("LastTestDetection", func(t *testing.T) {
		s := NewSuiteTracker()
		assert.Equal(t, 1, s.RegisterTest("S", "a", 3))
		assert.Equal(t, 2, s.RegisterTest("S", "b", 3))
		assert.False(t, s.IsLastTest("S", "b"))

		assert.Equal(t, 3, s.RegisterTest("S", "c", 3))
		assert.True(t, s.IsLastTest("S", "c"))
		assert.False(t, s.IsLastTest("S", "a"))
	})

	t.Run("UnknownSuite", func(t *testing.T) {
		s := NewSuiteTracker()
		assert.False(t, s.IsLastTest("nope", "a"))
		_, ok := s.Registration("nope")
		assert.False(t, ok)
	})

	t.Run("FirstTotalWins", func(t *testing.T) {
		s := NewSuiteTracker()
		s.RegisterTest("S", "a", 2)
		s.RegisterTest("S", "b", 5)

		reg, ok := s.Registration("S")
		require.True(t, ok)
		assert.Equal(t, 2, reg.TotalTests)
		assert.True(t, s.IsLastTest("S", "b"))
	})

	t.Run("RetriesInflateCount", func(t *testing.T) {
		s := NewSuiteTracker()
		s.RegisterTest("S", "a", 2)
		s.RegisterTest("S", "a", 2) // retry of a
		assert.True(t, s.IsLastTest("S", "a"), "retry counts as a new registration")

		s.RegisterTest("S", "b", 2)
		assert.False(t, s.IsLastTest("S", "b"), "count overshoots the total")

		reg, _ := s.Registration("S")
		assert.Equal(t, []string{"a", "a", "b"}, reg.RegisteredTests)
		assert.Equal(t, 3, reg.CurrentCount)
	})

	t.Run("DedupRetries", func(t *testing.T) {
		s := NewSuiteTracker(WithDedupRetries())
		s.RegisterTest("S", "a", 2)
		assert.Equal(t, 1, s.RegisterTest("S", "a", 2))
		assert.False(t, s.IsLastTest("S", "a"))

		assert.Equal(t, 2, s.RegisterTest("S", "b", 2))
		assert.True(t, s.IsLastTest("S", "b"))
	})

	t.Run("ClearSuite", func(t *testing.T) {
		s := NewSuiteTracker()
		s.RegisterTest("S", "a", 1)
		s.ClearSuite("S")
		assert.Equal(t, 1, s.RegisterTest("S", "a", 1))
	})
}

func TestIdentifiers(t *testing.T) {
	path := []string{"TestLogin", "Login page", "rejects a bad password"}

	id := TestIdentifier(path)
	assert.Equal(t, id, TestIdentifier(path))
	assert.Regexp(t, `^[a-z0-9_]+_[0-9a-f]{8}$`, id)
	assert.NotEqual(t, id, TestIdentifier([]string{"TestLogin", "Login page", "rejects a bad password!"}))
	assert.Equal(t, "test_", TestIdentifier(nil)[:5])

	assert.Equal(t, "Login page", SuiteName(path))
	assert.Equal(t, "only", SuiteName([]string{"only"}))
	assert.Equal(t, "", SuiteName(nil))

	assert.Equal(t, "suite_Login page", SuiteIdentifier("Login page"))
	assert.True(t, IsSuiteIdentifier(SuiteIdentifier("x")))
	assert.False(t, IsSuiteIdentifier(id))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("session")
	require.NoError(t, err)
	assert.Equal(t, KindSession, k)

	_, err = ParseKind("group")
	assert.Error(t, err)
}
