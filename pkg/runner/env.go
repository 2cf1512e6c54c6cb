package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/marmos91/screening-e2e/internal/logger"
	"github.com/marmos91/screening-e2e/internal/telemetry"
	"github.com/marmos91/screening-e2e/pkg/cleanup"
	"github.com/marmos91/screening-e2e/pkg/cleanup/journal"
	"github.com/marmos91/screening-e2e/pkg/config"
	"github.com/marmos91/screening-e2e/pkg/datamanager"
	"github.com/marmos91/screening-e2e/pkg/metrics"
	"github.com/marmos91/screening-e2e/pkg/snapshot"

	// Registers the Prometheus cleanup and snapshot metrics constructors.
	_ "github.com/marmos91/screening-e2e/pkg/metrics/prometheus"
)

// DefaultCleanupTimeout bounds the AfterAttempt hooks of one attempt.
const DefaultCleanupTimeout = 2 * time.Minute

// Env is the process-scoped state suites run against. Build it once, in
// TestMain, with Bootstrap or NewEnv.
type Env struct {
	Registry *cleanup.Registry

	// DataManager is used by TestWithCleanup unless overridden per test.
	DataManager cleanup.DataManager

	// Policy is the default cleanup policy of TestWithCleanup.
	Policy cleanup.Policy

	// Retries is the default retry ceiling. nil means no retries.
	Retries *int

	AttemptTimeout time.Duration
	CleanupTimeout time.Duration

	// Data is how test data was bootstrapped. It is nil when the
	// environment was not built from a config.
	Data *snapshot.Resolution

	ctx context.Context
}

// EnvOption configures NewEnv.
type EnvOption func(*Env)

// WithContext sets the context attempts derive from. Canceling it
// interrupts the run.
func WithContext(ctx context.Context) EnvOption {
	return func(e *Env) {
		e.ctx = ctx
	}
}

// WithDefaultDataManager sets Env.DataManager.
func WithDefaultDataManager(dm cleanup.DataManager) EnvOption {
	return func(e *Env) {
		e.DataManager = dm
	}
}

// WithDefaultPolicy sets Env.Policy.
func WithDefaultPolicy(p cleanup.Policy) EnvOption {
	return func(e *Env) {
		e.Policy = p
	}
}

// WithRetries sets Env.Retries.
func WithRetries(n int) EnvOption {
	return func(e *Env) {
		e.Retries = cleanup.Retries(n)
	}
}

// WithAttemptTimeout sets Env.AttemptTimeout.
func WithAttemptTimeout(d time.Duration) EnvOption {
	return func(e *Env) {
		e.AttemptTimeout = d
	}
}

// WithCleanupTimeout sets Env.CleanupTimeout.
func WithCleanupTimeout(d time.Duration) EnvOption {
	return func(e *Env) {
		e.CleanupTimeout = d
	}
}

// NewEnv creates an environment around reg. A nil reg gets a fresh
// registry without journal or metrics.
func NewEnv(reg *cleanup.Registry, opts ...EnvOption) *Env {
	if reg == nil {
		reg = cleanup.NewRegistry(cleanup.Options{})
	}
	e := &Env{
		Registry:       reg,
		Policy:         cleanup.PolicyLastTestOrFailure,
		CleanupTimeout: DefaultCleanupTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.CleanupTimeout <= 0 {
		e.CleanupTimeout = DefaultCleanupTimeout
	}
	return e
}

func (e *Env) context() context.Context {
	if e.ctx == nil {
		return context.Background()
	}
	return e.ctx
}

var defaultEnv atomic.Pointer[Env]

// SetDefaultEnv makes env the environment of suites created without
// Options.Env.
func SetDefaultEnv(env *Env) {
	defaultEnv.Store(env)
}

// DefaultEnv returns the environment set with SetDefaultEnv, creating a
// bare one on first use.
func DefaultEnv() *Env {
	if env := defaultEnv.Load(); env != nil {
		return env
	}
	defaultEnv.CompareAndSwap(nil, NewEnv(nil))
	return defaultEnv.Load()
}

// Sweep cleans up identifiers that still hold entities once every suite has
// run. With retries, a suite whose last test passes before its final retry
// never reaches a cleanup decision, and its data is only removed here. Data
// preserved for debugging is kept.
func (e *Env) Sweep(ctx context.Context) ([]cleanup.Result, error) {
	if e.DataManager == nil || len(e.Registry.Tracker.Identifiers()) == 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, e.CleanupTimeout)
	defer cancel()

	results, err := e.Registry.Sweep(ctx, e.DataManager)
	deleted := 0
	for _, res := range results {
		deleted += res.Deleted
	}
	if len(results) > 0 {
		logger.InfoCtx(ctx, "Swept leftover test data",
			logger.KeyCount, len(results),
			logger.KeyDeleted, deleted)
	}
	return results, err
}

// Teardown releases what Bootstrap set up. It is safe to call once.
type Teardown func(ctx context.Context) error

// Bootstrap builds an Env from cfg: it initializes logging and tracing,
// opens the cleanup journal, creates the data manager and resolves the
// data mode, restoring a snapshot when one is selected. SIGINT and SIGTERM
// interrupt the run. The Env is also installed as the default.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Env, Teardown, error) {
	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return nil, nil, err
	}

	policy, err := cleanup.ParsePolicy(cfg.Cleanup.Policy)
	if err != nil {
		return nil, nil, err
	}

	tcfg := telemetry.DefaultConfig()
	tcfg.Enabled = cfg.Telemetry.Enabled
	tcfg.Endpoint = cfg.Telemetry.Endpoint
	tcfg.Insecure = cfg.Telemetry.Insecure
	tcfg.SampleRate = cfg.Telemetry.SampleRate
	tcfg.Run = telemetry.RunInfo{
		DataMode: cfg.Snapshot.DataMode,
		Policy:   policy.String(),
		Retries:  cfg.Runner.Retries,
	}
	shutdownTracing, err := telemetry.Init(ctx, tcfg)
	if err != nil {
		return nil, nil, err
	}

	var closers []func(context.Context) error
	closers = append(closers, shutdownTracing)
	fail := func(err error) (*Env, Teardown, error) {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i](ctx)
		}
		return nil, nil, err
	}

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		textfile := cfg.Metrics.Textfile
		closers = append(closers, func(context.Context) error {
			return metrics.WriteTextfile(textfile)
		})
	}

	opts := cleanup.Options{
		Fallback: cleanup.Credentials{
			Email:    cfg.API.AdminEmail,
			Password: cfg.API.AdminPassword,
		},
		Metrics:      metrics.NewCleanupMetrics(),
		DedupRetries: cfg.Cleanup.DedupRetries,
	}
	if cfg.Cleanup.JournalPath != "" {
		j, err := journal.Open(cfg.Cleanup.JournalPath)
		if err != nil {
			return fail(err)
		}
		opts.Journal = j
		closers = append(closers, func(context.Context) error { return j.Close() })
	}

	dm := datamanager.New(datamanager.Config{
		BaseURL:     cfg.API.BaseURL,
		Timeout:     cfg.API.Timeout,
		Email:       cfg.API.AdminEmail,
		Password:    cfg.API.AdminPassword,
		DeviceOS:    cfg.API.DeviceOS,
		EmailDomain: cfg.API.EmailDomain,
	})

	res, err := bootstrapData(ctx, cfg)
	if err != nil {
		return fail(err)
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	closers = append(closers, func(context.Context) error {
		stop()
		return nil
	})

	env := NewEnv(cleanup.NewRegistry(opts),
		WithContext(runCtx),
		WithDefaultDataManager(dm),
		WithDefaultPolicy(policy),
		WithRetries(cfg.Runner.Retries),
		WithAttemptTimeout(cfg.Runner.AttemptTimeout),
		WithCleanupTimeout(cfg.Cleanup.RequestTimeout))
	env.Data = res
	SetDefaultEnv(env)

	// Runs before the journal closes so swept records are forgotten.
	closers = append(closers, func(ctx context.Context) error {
		_, err := env.Sweep(ctx)
		return err
	})

	logger.Info("E2E environment ready",
		logger.KeyPolicy, policy.String(),
		logger.KeyDataMode, string(res.Effective),
		"retries", cfg.Runner.Retries,
		"journal", cfg.Cleanup.JournalPath != "")

	teardown := func(ctx context.Context) error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](ctx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
	return env, teardown, nil
}

// bootstrapData resolves the data mode and restores the chosen snapshot.
func bootstrapData(ctx context.Context, cfg *config.Config) (*snapshot.Resolution, error) {
	mode, err := snapshot.ParseMode(cfg.Snapshot.DataMode)
	if err != nil {
		return nil, err
	}
	if mode == snapshot.ModeDynamic {
		res := snapshot.Resolution{Requested: mode, Effective: mode, Reason: "dynamic mode requested"}
		return &res, nil
	}

	mgr, err := snapshot.NewManagerFromConfig(ctx, cfg.Snapshot,
		snapshot.WithMetrics(metrics.NewSnapshotMetrics()))
	if err != nil {
		return nil, err
	}
	defer mgr.Close()

	res, err := mgr.Resolve(ctx, mode)
	if err != nil {
		return nil, err
	}
	if res.UseSnapshot() {
		if err := mgr.Restore(ctx, res.Snapshot.Name); err != nil {
			return nil, fmt.Errorf("failed to restore snapshot %s: %w", res.Snapshot.Name, err)
		}
	}
	return &res, nil
}
