package logger

import (
	"context"
	"time"
)

type contextKey struct{}

var logContextKey = contextKey{}

// LogContext holds the per-test logging context: which suite and test an
// operation belongs to and which attempt of that test is running.
type LogContext struct {
	TraceID    string
	Suite      string
	Test       string
	Identifier string // cleanup identifier the test tracks entities under
	Attempt    int    // 0-based retry index
	MaxRetries int
	StartTime  time.Time
}

// WithContext returns a new context carrying lc.
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a LogContext for one attempt of a test.
func NewLogContext(suite, test string, attempt, maxRetries int) *LogContext {
	return &LogContext{
		Suite:      suite,
		Test:       test,
		Attempt:    attempt,
		MaxRetries: maxRetries,
		StartTime:  time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	clone := *lc
	return &clone
}

// WithIdentifier returns a copy with the cleanup identifier set
func (lc *LogContext) WithIdentifier(id string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Identifier = id
	}
	return clone
}

// WithTrace returns a copy with the trace ID set
func (lc *LogContext) WithTrace(traceID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
