//go:build e2e

package e2e

import (
	"context"
	"testing"

	"github.com/marmos91/screening-e2e/pkg/browser"
	"github.com/marmos91/screening-e2e/pkg/cleanup"
	"github.com/marmos91/screening-e2e/pkg/datamanager"
	"github.com/marmos91/screening-e2e/pkg/runner"
)

// dataManager returns the environment's data manager, authenticated with
// the admin credentials.
func dataManager(t *runner.T) *datamanager.Manager {
	dm, ok := t.Env().DataManager.(*datamanager.Manager)
	if !ok {
		t.Fatalf("environment has no API data manager")
		return nil
	}
	if err := dm.EnsureAuthenticated(t.Context()); err != nil {
		t.Fatalf("admin login failed: %v", err)
		return nil
	}
	return dm
}

// seed creates spec and tracks whatever was created, including a partial
// result, under the test's cleanup identifier.
func seed(t *runner.T, spec datamanager.Spec) datamanager.Created {
	dm := dataManager(t)
	created, err := dm.CreateEntities(t.Context(), spec)
	created.Track(t.Env().Registry.Tracker, t.Identifier())
	if err != nil {
		t.Fatalf("seed test data: %v", err)
	}
	return created
}

// openBrowser starts a browser for one attempt and closes it when the
// attempt ends.
func openBrowser(t *runner.T) *browser.Browser {
	if cfg.Browser.BaseURL == "" {
		t.Skip("browser.base_url is not configured")
		return nil
	}
	b, err := browser.New(t.Context(), browser.ConfigFrom(cfg.Browser))
	if err != nil {
		t.Fatalf("start browser: %v", err)
		return nil
	}
	t.AfterAttempt(func(_ context.Context, info runner.Info) {
		if errs := b.ConsoleErrors(); len(errs) > 0 {
			t.Logf("console errors (%s): %v", info.Status, errs)
		}
		b.Close()
	})
	return b
}

// requireAPI skips suites that need the backend when none is configured.
func requireAPI(t *testing.T) {
	t.Helper()
	if cfg.API.BaseURL == "" {
		t.Skip("api.base_url is not configured")
	}
}

// reportPreserved logs what a failed test left behind for inspection.
func reportPreserved(t *testing.T) runner.CleanupOption {
	return runner.OnDecision(func(d cleanup.Decision) {
		if d.Preserved != nil && d.Preserved.Total() > 0 {
			t.Logf("kept %d users, %d applications, %d sessions for debugging",
				d.Preserved.Users, d.Preserved.Applications, d.Preserved.Sessions)
		}
	})
}
