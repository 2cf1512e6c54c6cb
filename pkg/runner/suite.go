// Package runner runs end-to-end suites on top of go test. It adds what
// testing.T lacks for remote fixtures: serial suites with per-test retries,
// attempt timeouts, attempt metadata, and cleanup hooks that see the final
// outcome of each attempt.
//
//	func TestApplicants(t *testing.T) {
//		s := runner.NewSuite(t, "applicants", runner.Options{})
//		s.TestWithCleanup("creates a user", func(t *runner.T) {
//			...
//		}, runner.WithPolicy(cleanup.PolicyPassOnly))
//		s.Run()
//	}
package runner

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/marmos91/screening-e2e/internal/logger"
	"github.com/marmos91/screening-e2e/internal/telemetry"
	"github.com/marmos91/screening-e2e/pkg/cleanup"
)

// abandonGrace is how long a timed-out body gets to return after its
// context is canceled before the runner moves on without it.
const abandonGrace = 5 * time.Second

// Options configures a Suite.
type Options struct {
	// Retries is the number of extra attempts for a failing test. nil uses
	// the environment's value; negative values count as zero.
	Retries *int

	// AttemptTimeout bounds each attempt. Zero uses the environment's.
	AttemptTimeout time.Duration

	// Env is the environment to run in. nil uses DefaultEnv().
	Env *Env
}

type testCase struct {
	name string
	fn   func(*T)
}

// Suite is an ordered list of tests run serially, in declaration order.
type Suite struct {
	r    reporter
	name string
	env  *Env

	retries        int
	attemptTimeout time.Duration

	tests []testCase
	ran   bool
}

// NewSuite creates a suite that reports to t.
func NewSuite(t *testing.T, name string, opts Options) *Suite {
	return newSuite(testingReporter{t: t}, name, opts)
}

func newSuite(r reporter, name string, opts Options) *Suite {
	env := opts.Env
	if env == nil {
		env = DefaultEnv()
	}

	retries := opts.Retries
	if retries == nil {
		retries = env.Retries
	}

	timeout := opts.AttemptTimeout
	if timeout <= 0 {
		timeout = env.AttemptTimeout
	}

	return &Suite{
		r:              r,
		name:           name,
		env:            env,
		retries:        cleanup.Outcome{MaxRetries: retries}.Ceiling(),
		attemptTimeout: timeout,
	}
}

// Name returns the suite name.
func (s *Suite) Name() string {
	return s.name
}

// Len returns the number of declared tests.
func (s *Suite) Len() int {
	return len(s.tests)
}

// Test declares a test. Tests must be declared before Run.
func (s *Suite) Test(name string, fn func(*T)) {
	if s.ran {
		panic("runner: Test called after Run")
	}
	s.tests = append(s.tests, testCase{name: name, fn: fn})
}

// Run runs every declared test as a subtest and clears the suite's
// position state afterwards. An interrupted run skips the remaining tests.
func (s *Suite) Run() {
	s.ran = true
	s.env.Registry.Suites.RegisterTestSuite(s.name, len(s.tests))
	defer s.env.Registry.Suites.ClearSuite(s.name)

	interrupted := false
	for _, tc := range s.tests {
		s.r.Run(tc.name, func(r reporter) {
			if interrupted {
				r.Skip("run interrupted")
				return
			}
			interrupted = s.runTest(r, tc)
		})
	}
}

func (s *Suite) titlePath(test string) []string {
	return []string{s.r.Name(), s.name, test}
}

// runTest runs up to retries+1 attempts and reports the outcome. It returns
// true when the run was interrupted.
func (s *Suite) runTest(r reporter, tc testCase) bool {
	attempts := s.retries + 1

	for attempt := 0; attempt < attempts; attempt++ {
		res := s.runAttempt(tc, attempt)
		for _, line := range res.logs {
			r.Logf("[attempt %d] %s", attempt+1, line)
		}

		switch res.status {
		case cleanup.StatusPassed:
			if attempt > 0 {
				r.Logf("passed on retry %d", attempt)
			}
			return false

		case cleanup.StatusSkipped:
			r.Skip(res.skipReason)
			return false

		case cleanup.StatusInterrupted:
			r.Errorf("interrupted during attempt %d", attempt+1)
			return true
		}

		summary := fmt.Sprintf("attempt %d/%d %s", attempt+1, attempts, res.status)
		if len(res.messages) > 0 {
			summary += ":\n" + strings.Join(res.messages, "\n")
		}
		if attempt+1 < attempts {
			r.Logf("%s", summary)
			continue
		}
		r.Errorf("%s", summary)
	}
	return false
}

type attemptResult struct {
	status     cleanup.RunStatus
	skipReason string
	messages   []string
	logs       []string
}

func (s *Suite) runAttempt(tc testCase, attempt int) attemptResult {
	base := s.env.context()
	start := time.Now()

	ctx, span := telemetry.StartAttemptSpan(base, s.name, tc.name, attempt, s.retries)
	defer span.End()

	lc := logger.NewLogContext(s.name, tc.name, attempt, s.retries).
		WithTrace(telemetry.TraceID(ctx))
	ctx = logger.WithContext(ctx, lc)
	logger.DebugCtx(ctx, "Attempt started")

	var (
		attemptCtx context.Context
		cancel     context.CancelFunc
	)
	if s.attemptTimeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, s.attemptTimeout)
	} else {
		attemptCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	t := &T{
		ctx:   attemptCtx,
		env:   s.env,
		suite: s,
		info: Info{
			TitlePath: s.titlePath(tc.name),
			Retry:     attempt,
			Retries:   s.retries,
		},
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if p := recover(); p != nil {
				t.Errorf("panic: %v\n%s", p, debug.Stack())
			}
		}()
		tc.fn(t)
	}()

	select {
	case <-done:
	case <-attemptCtx.Done():
		select {
		case <-done:
		case <-time.After(abandonGrace):
			logger.WarnCtx(ctx, "Test body ignored cancellation, abandoning it")
		}
	}
	// A body that returns because its context expired still timed out.
	timedOut := errors.Is(attemptCtx.Err(), context.DeadlineExceeded)

	failed, skipped, reason, messages, logs := t.snapshot()
	res := attemptResult{skipReason: reason, messages: messages, logs: logs}

	switch {
	case base.Err() != nil:
		res.status = cleanup.StatusInterrupted
	case timedOut:
		res.status = cleanup.StatusTimedOut
		res.messages = append(res.messages, fmt.Sprintf("timed out after %s", s.attemptTimeout))
	case failed:
		res.status = cleanup.StatusFailed
	case skipped:
		res.status = cleanup.StatusSkipped
	default:
		res.status = cleanup.StatusPassed
	}

	span.SetAttributes(telemetry.Status(string(res.status)), attribute.Int("e2e.attempt.messages", len(res.messages)))
	logger.InfoCtx(ctx, "Attempt finished",
		logger.KeyStatus, string(res.status),
		logger.DurationMs(time.Since(start)))

	info := t.Info()
	info.Status = res.status
	s.runHooks(ctx, t, info)

	return res
}

// runHooks runs AfterAttempt hooks with a context that survives the
// attempt's cancellation but is still bounded.
func (s *Suite) runHooks(ctx context.Context, t *T, info Info) {
	hooks := t.hooks()
	if len(hooks) == 0 {
		return
	}

	hookCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.env.CleanupTimeout)
	defer cancel()

	for i := len(hooks) - 1; i >= 0; i-- {
		func() {
			defer func() {
				if p := recover(); p != nil {
					logger.ErrorCtx(hookCtx, "❌ After-attempt hook panicked",
						logger.KeyError, fmt.Sprint(p))
				}
			}()
			hooks[i](hookCtx, info)
		}()
	}
}
