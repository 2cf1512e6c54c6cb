package cleanup

import (
	"context"
	"fmt"
	"sync"

	"github.com/marmos91/screening-e2e/internal/logger"
)

// Registry owns the cleanup state shared by every test in one process.
// Build it once, typically in TestMain, and hand it to fixtures.
type Registry struct {
	Tracker  *EntityTracker
	Suites   *SuiteTracker
	Executor *Executor

	metrics Metrics

	mu        sync.Mutex
	preserved map[string]bool
}

// Options configures NewRegistry.
type Options struct {
	Journal      Journal
	Fallback     Credentials
	Metrics      Metrics
	DedupRetries bool
}

// NewRegistry wires an EntityTracker, SuiteTracker and Executor together.
func NewRegistry(opts Options) *Registry {
	var trackerOpts []TrackerOption
	if opts.Journal != nil {
		trackerOpts = append(trackerOpts, WithJournal(opts.Journal))
	}
	var suiteOpts []SuiteOption
	if opts.DedupRetries {
		suiteOpts = append(suiteOpts, WithDedupRetries())
	}
	m := opts.Metrics
	if m == nil {
		m = noopMetrics{}
	}

	tracker := NewEntityTracker(trackerOpts...)
	return &Registry{
		Tracker: tracker,
		Suites:  NewSuiteTracker(suiteOpts...),
		Executor: NewExecutor(tracker,
			WithFallbackCredentials(opts.Fallback),
			WithMetrics(m)),
		metrics:   m,
		preserved: make(map[string]bool),
	}
}

// Request describes a finished attempt to evaluate.
type Request struct {
	Policy     Policy
	Identifier string
	Suite      string
	Test       string
	Outcome    Outcome
}

// Decision is the result of Evaluate.
type Decision struct {
	Policy     Policy
	Cleanup    bool
	FinalRetry bool
	LastTest   bool

	// Preserved holds the counts of entities kept for debugging when a
	// pass-only fixture's final attempt did not pass.
	Preserved *Status

	// Result is set when the executor ran.
	Result *Result
	Err    error
}

// Evaluate applies req.Policy to a finished attempt and, when it says so,
// runs the executor. It never panics and never returns an error to the
// caller: a teardown must not change the test's own outcome. Problems are
// logged and reported in Decision.Err.
func (r *Registry) Evaluate(ctx context.Context, req Request, dm DataManager) (d Decision) {
	d = Decision{
		Policy:     req.Policy,
		FinalRetry: req.Outcome.IsFinalRetry(),
	}
	defer func() {
		if p := recover(); p != nil {
			d.Err = fmt.Errorf("cleanup panicked: %v", p)
			logger.ErrorCtx(ctx, "❌ Cleanup panicked",
				logger.KeyIdentifier, req.Identifier,
				logger.KeyError, d.Err)
		}
	}()

	if req.Policy == PolicyLastTestOrFailure {
		d.LastTest = r.Suites.IsLastTest(req.Suite, req.Test)
	}
	d.Cleanup = req.Policy.ShouldCleanup(req.Outcome, d.LastTest)
	r.metrics.ObserveDecision(req.Policy, d.Cleanup)

	fields := []any{
		logger.KeyIdentifier, req.Identifier,
		logger.KeyPolicy, req.Policy.String(),
		logger.KeyStatus, string(req.Outcome.Status),
	}
	fields = append(fields, logger.Retry(req.Outcome.Retry, req.Outcome.Ceiling())...)

	if !d.Cleanup {
		switch {
		case !d.FinalRetry:
			logger.DebugCtx(ctx, "⏭️ Skipping cleanup, another attempt will run", fields...)
		case req.Policy == PolicyPassOnly:
			st := r.Tracker.Status(req.Identifier)
			d.Preserved = &st
			r.mu.Lock()
			r.preserved[req.Identifier] = true
			r.mu.Unlock()
			logger.WarnCtx(ctx, "🔍 Preserving test data for debugging", append(fields,
				logger.KeyUsers, st.Users,
				logger.KeyApplications, st.Applications,
				logger.KeySessions, st.Sessions)...)
		default:
			logger.DebugCtx(ctx, "⏭️ Skipping cleanup, suite still running",
				append(fields, logger.KeyLastTest, d.LastTest)...)
		}
		return d
	}

	logger.InfoCtx(ctx, "Running cleanup", append(fields, logger.KeyLastTest, d.LastTest)...)
	res, err := r.Executor.Run(ctx, req.Identifier, dm)
	d.Result = &res
	d.Err = err
	if err != nil {
		logger.ErrorCtx(ctx, "❌ Cleanup failed", append(fields, logger.KeyError, err)...)
	}
	r.reportTracked()
	return d
}

// Sweep cleans up every identifier still holding entities, e.g. suite data
// whose last test never ran or passed before its final retry. Identifiers
// Evaluate preserved for debugging are left alone. It returns the first
// error encountered but attempts every identifier.
func (r *Registry) Sweep(ctx context.Context, dm DataManager) ([]Result, error) {
	var (
		results  []Result
		firstErr error
	)
	for _, id := range r.Tracker.Identifiers() {
		if r.isPreserved(id) {
			logger.DebugCtx(ctx, "Sweep keeping preserved data", logger.KeyIdentifier, id)
			continue
		}
		res, err := r.Executor.Run(ctx, id, dm)
		results = append(results, res)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("sweep %s: %w", id, err)
		}
	}
	r.reportTracked()
	return results, firstErr
}

func (r *Registry) isPreserved(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.preserved[id]
}

func (r *Registry) reportTracked() {
	all := r.Tracker.All()
	for _, k := range deletionOrder {
		r.metrics.SetTracked(k, len(all[k]))
	}
}
