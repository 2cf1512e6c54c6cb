//go:build e2e

package e2e

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/screening-e2e/pkg/cleanup"
	"github.com/marmos91/screening-e2e/pkg/datamanager"
	"github.com/marmos91/screening-e2e/pkg/runner"
)

// TestApplicants shares one applicant fixture across the suite. It is
// deleted after the last test, or as soon as a test fails for good.
func TestApplicants(t *testing.T) {
	requireAPI(t)

	var fixture datamanager.Created
	s := runner.NewSuite(t, "applicants", runner.Options{})

	s.TestWithCleanup("creates an applicant with an application", func(rt *runner.T) {
		fixture = seed(rt, datamanager.Spec{
			Users:        []datamanager.UserSpec{{FirstName: "Ada", LastName: "Applicant", Role: "applicant"}},
			Applications: []datamanager.ApplicationSpec{{Status: "submitted"}},
		})
		require.Len(rt, fixture.Users, 1)
		require.Len(rt, fixture.Applications, 1)
		assert.Equal(rt, fixture.Users[0].ID, fixture.Applications[0].UserID)
	}, runner.WithSuiteIdentifier())

	s.TestWithCleanup("reads the applicant back", func(rt *runner.T) {
		require.NotEmpty(rt, fixture.Users, "fixture missing")
		client := dataManager(rt).Client()

		u, err := client.GetUser(rt.Context(), fixture.Users[0].ID)
		require.NoError(rt, err)
		assert.Equal(rt, fixture.Users[0].Email, u.Email)

		a, err := client.GetApplication(rt.Context(), fixture.Applications[0].ID)
		require.NoError(rt, err)
		assert.Equal(rt, "submitted", a.Status)
	}, runner.WithSuiteIdentifier())

	s.TestWithCleanup("opens a screening session", func(rt *runner.T) {
		require.NotEmpty(rt, fixture.Applications, "fixture missing")
		created := seed(rt, datamanager.Spec{
			Sessions: []datamanager.SessionSpec{{
				UserID:        fixture.Users[0].ID,
				ApplicationID: fixture.Applications[0].ID,
			}},
		})
		require.Len(rt, created.Sessions, 1)

		sess, err := dataManager(rt).Client().GetSession(rt.Context(), created.Sessions[0].ID)
		require.NoError(rt, err)
		assert.Equal(rt, fixture.Applications[0].ID, sess.ApplicationID)
	}, runner.WithSuiteIdentifier(), reportPreserved(t))

	s.Run()
}

// TestDeletedUserIsGone checks the API the cleanup executor relies on:
// deleting a user twice yields a not-found error the second time.
func TestDeletedUserIsGone(t *testing.T) {
	requireAPI(t)

	s := runner.NewSuite(t, "users", runner.Options{})
	s.Test("second delete is not found", func(rt *runner.T) {
		dm := dataManager(rt)
		created, err := dm.CreateEntities(rt.Context(), datamanager.Spec{
			Users: []datamanager.UserSpec{{}},
		})
		require.NoError(rt, err)
		id := created.Users[0].ID

		require.NoError(rt, dm.DeleteUser(rt.Context(), id))
		err = dm.DeleteUser(rt.Context(), id)
		require.Error(rt, err)
		assert.True(rt, cleanup.IsNotFound(err), "got %v", err)
	})
	s.Run()
}
