package runner

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/marmos91/screening-e2e/internal/logger"
	"github.com/marmos91/screening-e2e/pkg/cleanup"
)

// Info describes the attempt a test body is running in.
type Info struct {
	// TitlePath is [go test name, suite, test].
	TitlePath []string

	// Retry is the zero-based attempt index.
	Retry int

	// Retries is the retry ceiling for the test.
	Retries int

	// Status is empty while the body runs and set once the attempt has
	// finished, when AfterAttempt hooks see it.
	Status cleanup.RunStatus
}

// Suite returns the suite name from the title path.
func (i Info) Suite() string {
	return cleanup.SuiteName(i.TitlePath)
}

// Test returns the test name.
func (i Info) Test() string {
	if len(i.TitlePath) == 0 {
		return ""
	}
	return i.TitlePath[len(i.TitlePath)-1]
}

type afterHook func(ctx context.Context, info Info)

// T is handed to a test body for one attempt. It satisfies testify's
// assert.TestingT and require.TestingT.
type T struct {
	ctx   context.Context
	info  Info
	env   *Env
	suite *Suite

	mu         sync.Mutex
	failed     bool
	skipped    bool
	skipReason string
	messages   []string
	logs       []string
	identifier string
	after      []afterHook
}

// Context is canceled when the attempt times out or the run is interrupted.
func (t *T) Context() context.Context {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ctx
}

// Info returns the attempt metadata.
func (t *T) Info() Info {
	info := t.info
	info.TitlePath = append([]string(nil), t.info.TitlePath...)
	return info
}

// Env returns the environment the suite runs in.
func (t *T) Env() *Env {
	return t.env
}

// Name returns "suite/test".
func (t *T) Name() string {
	return t.info.Suite() + "/" + t.info.Test()
}

// Identifier returns the cleanup identifier of a TestWithCleanup test, or
// "" for plain tests.
func (t *T) Identifier() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.identifier
}

// Track records entities under the test's cleanup identifier.
func (t *T) Track(entities ...cleanup.Entity) {
	id := t.Identifier()
	if id == "" {
		t.Errorf("Track called outside TestWithCleanup")
		return
	}
	for _, e := range entities {
		t.env.Registry.Tracker.Track(id, e)
	}
}

// Helper is a no-op; it exists for interface compatibility.
func (t *T) Helper() {}

// Errorf marks the attempt failed and records the message.
func (t *T) Errorf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failed = true
	t.messages = append(t.messages, strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// Fail marks the attempt failed and continues.
func (t *T) Fail() {
	t.mu.Lock()
	t.failed = true
	t.mu.Unlock()
}

// FailNow marks the attempt failed and stops the body.
func (t *T) FailNow() {
	t.Fail()
	runtime.Goexit()
}

// Fatalf is Errorf followed by FailNow.
func (t *T) Fatalf(format string, args ...any) {
	t.Errorf(format, args...)
	runtime.Goexit()
}

// Failed reports whether the attempt has failed so far.
func (t *T) Failed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failed
}

// Logf records a line that is reported with the attempt.
func (t *T) Logf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.logs = append(t.logs, fmt.Sprintf(format, args...))
}

// Skip marks the test skipped and stops the body.
func (t *T) Skip(args ...any) {
	t.mu.Lock()
	t.skipped = true
	t.skipReason = strings.TrimSpace(fmt.Sprintln(args...))
	t.mu.Unlock()
	runtime.Goexit()
}

// Skipf is Skip with formatting.
func (t *T) Skipf(format string, args ...any) {
	t.Skip(fmt.Sprintf(format, args...))
}

// AfterAttempt registers fn to run after the attempt finishes, with the
// attempt's final Status. Hooks run in reverse registration order, also
// when the body failed, panicked or timed out.
func (t *T) AfterAttempt(fn func(ctx context.Context, info Info)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.after = append(t.after, fn)
}

func (t *T) setIdentifier(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.identifier = id
	if lc := logger.FromContext(t.ctx); lc != nil {
		t.ctx = logger.WithContext(t.ctx, lc.WithIdentifier(id))
	}
}

func (t *T) snapshot() (failed, skipped bool, reason string, messages, logs []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failed, t.skipped, t.skipReason,
		append([]string(nil), t.messages...),
		append([]string(nil), t.logs...)
}

func (t *T) hooks() []afterHook {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]afterHook(nil), t.after...)
}
