package cleanup

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/marmos91/screening-e2e/internal/logger"
	"github.com/marmos91/screening-e2e/internal/telemetry"
)

// DataManager is the subset of the data manager the executor needs.
type DataManager interface {
	// Authenticate logs in and stores the resulting token. It reports
	// success and never returns an error.
	Authenticate(ctx context.Context, email, password string) bool

	// Headers returns the headers sent with API requests. An empty
	// Authorization header means the manager has not logged in yet.
	Headers() http.Header

	// HasValidToken reports whether the manager holds a token that is set
	// and not expired.
	HasValidToken() bool

	DeleteUser(ctx context.Context, id string) error
	DeleteApplication(ctx context.Context, id string) error
	DeleteSession(ctx context.Context, id string) error
}

// Credentials are used to log in when a data manager has no token.
type Credentials struct {
	Email    string
	Password string
}

// Result summarizes one executor run.
type Result struct {
	Identifier string

	// AlreadyDone is set when the identifier had already been cleaned up
	// and nothing was attempted.
	AlreadyDone bool

	Attempted int

	// Deleted counts successful deletes, including entities that were
	// already gone.
	Deleted  int
	NotFound int
	Errors   []EntityError

	Duration time.Duration
}

// Failed returns the number of deletes that errored.
func (r Result) Failed() int {
	return len(r.Errors)
}

// Executor deletes tracked entities through a DataManager. Each identifier
// is processed at most once per Executor; concurrent requests for the same
// identifier share a single run.
type Executor struct {
	tracker  *EntityTracker
	fallback Credentials
	metrics  Metrics

	group singleflight.Group

	mu        sync.Mutex
	completed map[string]struct{}
	inflight  map[string]struct{}
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithFallbackCredentials sets the login used when a data manager arrives
// unauthenticated.
func WithFallbackCredentials(c Credentials) ExecutorOption {
	return func(e *Executor) {
		e.fallback = c
	}
}

// WithMetrics reports deletes and runs to m.
func WithMetrics(m Metrics) ExecutorOption {
	return func(e *Executor) {
		if m != nil {
			e.metrics = m
		}
	}
}

// NewExecutor creates an executor that deletes entities recorded in tracker.
func NewExecutor(tracker *EntityTracker, opts ...ExecutorOption) *Executor {
	e := &Executor{
		tracker:   tracker,
		metrics:   noopMetrics{},
		completed: make(map[string]struct{}),
		inflight:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// IsCompleted reports whether identifier has already been cleaned up.
func (e *Executor) IsCompleted(identifier string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.completed[identifier]
	return ok
}

func (e *Executor) markCompleted(identifier string) {
	e.mu.Lock()
	e.completed[identifier] = struct{}{}
	e.mu.Unlock()
}

// Run deletes everything tracked under identifier. Individual delete
// failures are reported in the Result and do not stop the run. The only
// errors returned are ErrNoDataManager and ErrAuthenticationFailed; in both
// cases the identifier stays eligible for a later run.
func (e *Executor) Run(ctx context.Context, identifier string, dm DataManager) (Result, error) {
	if e.IsCompleted(identifier) {
		logger.DebugCtx(ctx, "⏭️ Cleanup already done", logger.KeyIdentifier, identifier)
		e.metrics.ObserveRun(RunSkipped, 0)
		return Result{Identifier: identifier, AlreadyDone: true}, nil
	}
	if dm == nil {
		return Result{Identifier: identifier}, ErrNoDataManager
	}

	v, err, _ := e.group.Do(identifier, func() (any, error) {
		// A previous flight may have finished since the check above.
		if e.IsCompleted(identifier) {
			return Result{Identifier: identifier, AlreadyDone: true}, nil
		}
		e.setInflight(identifier, true)
		defer e.setInflight(identifier, false)
		return e.run(ctx, identifier, dm)
	})
	res, _ := v.(Result)
	return res, err
}

// TryRun is Run without waiting: if a run for identifier is already in
// flight it returns ErrCleanupInProgress immediately.
func (e *Executor) TryRun(ctx context.Context, identifier string, dm DataManager) (Result, error) {
	e.mu.Lock()
	_, busy := e.inflight[identifier]
	e.mu.Unlock()
	if busy {
		return Result{Identifier: identifier}, ErrCleanupInProgress
	}
	return e.Run(ctx, identifier, dm)
}

func (e *Executor) setInflight(identifier string, on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if on {
		e.inflight[identifier] = struct{}{}
	} else {
		delete(e.inflight, identifier)
	}
}

func (e *Executor) run(ctx context.Context, identifier string, dm DataManager) (Result, error) {
	start := time.Now()
	ctx, span := telemetry.StartCleanupSpan(ctx, identifier)
	defer span.End()

	res := Result{Identifier: identifier}
	entities := e.tracker.Entities(identifier)

	if len(entities) > 0 && !dm.HasValidToken() {
		msg := "No auth token, logging in with fallback credentials"
		if dm.Headers().Get("Authorization") != "" {
			msg = "Auth token expired, logging in with fallback credentials"
		}
		logger.InfoCtx(ctx, msg,
			logger.KeyIdentifier, identifier,
			logger.KeyEmail, e.fallback.Email)
		if !dm.Authenticate(ctx, e.fallback.Email, e.fallback.Password) {
			logger.ErrorCtx(ctx, "❌ Cleanup aborted: authentication failed",
				logger.KeyIdentifier, identifier)
			telemetry.RecordError(ctx, ErrAuthenticationFailed)
			res.Duration = time.Since(start)
			e.metrics.ObserveRun(RunAuthFailed, res.Duration)
			return res, ErrAuthenticationFailed
		}
	}

	for _, ent := range entities {
		res.Attempted++
		outcome, err := e.deleteOne(ctx, dm, ent)
		switch outcome {
		case OutcomeDeleted:
			res.Deleted++
		case OutcomeNotFound:
			res.Deleted++
			res.NotFound++
		default:
			res.Errors = append(res.Errors, EntityError{Entity: ent, Err: err})
		}
	}

	e.tracker.Clear(identifier)
	if len(res.Errors) > 0 {
		failed := make([]Entity, len(res.Errors))
		for i, ee := range res.Errors {
			failed[i] = ee.Entity
		}
		e.tracker.keepJournaled(identifier, failed)
	}
	e.markCompleted(identifier)
	res.Duration = time.Since(start)

	runOutcome := RunCompleted
	if len(res.Errors) > 0 {
		runOutcome = RunPartial
		telemetry.RecordError(ctx, fmt.Errorf("%d of %d deletes failed", len(res.Errors), res.Attempted))
	}
	span.SetAttributes(telemetry.Outcome(runOutcome))
	e.metrics.ObserveRun(runOutcome, res.Duration)

	logger.InfoCtx(ctx, "✅ Cleanup finished",
		logger.KeyIdentifier, identifier,
		logger.KeyDeleted, res.Deleted,
		logger.KeyNotFound, res.NotFound,
		logger.KeyFailed, len(res.Errors),
		logger.DurationMs(res.Duration))
	return res, nil
}

func (e *Executor) deleteOne(ctx context.Context, dm DataManager, ent Entity) (string, error) {
	ctx, span := telemetry.StartDeleteSpan(ctx, string(ent.Kind), ent.ID)
	defer span.End()

	start := time.Now()
	var err error
	switch ent.Kind {
	case KindSession:
		err = dm.DeleteSession(ctx, ent.ID)
	case KindApplication:
		err = dm.DeleteApplication(ctx, ent.ID)
	case KindUser:
		err = dm.DeleteUser(ctx, ent.ID)
	default:
		err = fmt.Errorf("unknown entity kind %q", ent.Kind)
	}
	elapsed := time.Since(start)

	var outcome string
	switch {
	case err == nil:
		outcome = OutcomeDeleted
		logger.DebugCtx(ctx, "Deleted entity",
			logger.KeyEntityKind, string(ent.Kind),
			logger.KeyEntityID, ent.ID)
	case IsNotFound(err):
		outcome = OutcomeNotFound
		logger.DebugCtx(ctx, "Entity already gone",
			logger.KeyEntityKind, string(ent.Kind),
			logger.KeyEntityID, ent.ID)
	default:
		outcome = OutcomeError
		telemetry.RecordError(ctx, err)
		logger.WarnCtx(ctx, "Failed to delete entity",
			logger.KeyEntityKind, string(ent.Kind),
			logger.KeyEntityID, ent.ID,
			logger.KeyEntityLabel, ent.Label,
			logger.KeyError, err)
	}
	span.SetAttributes(telemetry.Outcome(outcome))
	e.metrics.ObserveDelete(ent.Kind, outcome, elapsed)
	return outcome, err
}
