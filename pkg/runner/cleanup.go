package runner

import (
	"context"

	"github.com/marmos91/screening-e2e/pkg/cleanup"
)

type cleanupOptions struct {
	policy      *cleanup.Policy
	identifier  string
	suiteScoped bool
	totalTests  int
	dm          cleanup.DataManager
	onDecision  func(cleanup.Decision)
}

// CleanupOption configures TestWithCleanup.
type CleanupOption func(*cleanupOptions)

// WithPolicy selects the cleanup policy. The default is the environment's.
func WithPolicy(p cleanup.Policy) CleanupOption {
	return func(o *cleanupOptions) {
		o.policy = &p
	}
}

// WithIdentifier tracks entities under an explicit identifier.
func WithIdentifier(id string) CleanupOption {
	return func(o *cleanupOptions) {
		o.identifier = id
	}
}

// WithSuiteIdentifier tracks entities under the suite's identifier, so
// every test in the suite shares them.
func WithSuiteIdentifier() CleanupOption {
	return func(o *cleanupOptions) {
		o.suiteScoped = true
	}
}

// WithTotalTests overrides the suite size used to find its last test. The
// default is the number of tests declared on the suite.
func WithTotalTests(n int) CleanupOption {
	return func(o *cleanupOptions) {
		o.totalTests = n
	}
}

// WithDataManager overrides the environment's data manager.
func WithDataManager(dm cleanup.DataManager) CleanupOption {
	return func(o *cleanupOptions) {
		o.dm = dm
	}
}

// OnDecision observes each cleanup decision, e.g. to report preserved data.
func OnDecision(fn func(cleanup.Decision)) CleanupOption {
	return func(o *cleanupOptions) {
		o.onDecision = fn
	}
}

// TestWithCleanup declares a test whose tracked entities are cleaned up
// according to a policy. Each attempt registers with the suite tracker
// before fn runs; after the attempt the policy is evaluated with its final
// status. Cleanup problems are logged and never change the test result.
func (s *Suite) TestWithCleanup(name string, fn func(*T), opts ...CleanupOption) {
	o := cleanupOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	s.Test(name, func(t *T) {
		env := t.Env()
		info := t.Info()
		suite := info.Suite()

		policy := env.Policy
		if o.policy != nil {
			policy = *o.policy
		}

		id := o.identifier
		switch {
		case id != "":
		case o.suiteScoped:
			id = cleanup.SuiteIdentifier(suite)
		default:
			id = cleanup.TestIdentifier(info.TitlePath)
		}

		total := o.totalTests
		if total <= 0 {
			total = s.Len()
		}

		dm := o.dm
		if dm == nil {
			dm = env.DataManager
		}

		env.Registry.Suites.RegisterTest(suite, name, total)
		t.setIdentifier(id)

		t.AfterAttempt(func(ctx context.Context, info Info) {
			d := env.Registry.Evaluate(ctx, cleanup.Request{
				Policy:     policy,
				Identifier: id,
				Suite:      suite,
				Test:       name,
				Outcome: cleanup.Outcome{
					Retry:      info.Retry,
					MaxRetries: cleanup.Retries(info.Retries),
					Status:     info.Status,
				},
			}, dm)
			if o.onDecision != nil {
				o.onDecision(d)
			}
		})

		fn(t)
	})
}
