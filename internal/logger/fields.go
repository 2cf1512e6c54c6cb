package logger

import (
	"log/slog"
	"time"
)

// Standard field keys for structured logging.
// Use these keys consistently so log lines from test bodies, fixtures and the
// cleanup subsystem can be filtered by the same attributes.
const (
	// ========================================================================
	// Tracing
	// ========================================================================
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// ========================================================================
	// Test runner
	// ========================================================================
	KeySuite      = "suite"       // Suite name (titlePath[1] or titlePath[0])
	KeyTest       = "test"        // Test name
	KeyTestID     = "test_id"     // Stable per-test identifier
	KeyIdentifier = "identifier"  // Cleanup identifier (test or suite scoped)
	KeyRetry      = "retry"       // 0-based attempt index
	KeyMaxRetries = "max_retries" // Configured retry ceiling
	KeyStatus     = "status"      // Attempt outcome: passed, failed, timedOut, ...
	KeyPolicy     = "policy"      // Cleanup policy variant
	KeyLastTest   = "last_test"   // Whether the test is last in its suite
	KeyTotalTests = "total_tests" // Declared suite size
	KeyRegistered = "registered"  // Registrations seen so far for a suite

	// ========================================================================
	// Tracked entities
	// ========================================================================
	KeyEntityKind   = "entity_kind"
	KeyEntityID     = "entity_id"
	KeyEntityLabel  = "entity_label"
	KeyUsers        = "users"
	KeyApplications = "applications"
	KeySessions     = "sessions"

	// ========================================================================
	// Remote API
	// ========================================================================
	KeyMethod     = "method"
	KeyURL        = "url"
	KeyHTTPStatus = "http_status"
	KeyEmail      = "email"

	// ========================================================================
	// Snapshots
	// ========================================================================
	KeySnapshot = "snapshot"
	KeyDataMode = "data_mode"
	KeyPath     = "path"
	KeyBucket   = "bucket"
	KeyKey      = "key"

	// ========================================================================
	// Operation metadata
	// ========================================================================
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyErrors     = "errors"
	KeyDeleted    = "deleted"
	KeyNotFound   = "not_found"
	KeyFailed     = "failed"
	KeyCount      = "count"
)

// Suite returns a slog.Attr for the suite name
func Suite(name string) slog.Attr {
	return slog.String(KeySuite, name)
}

// Test returns a slog.Attr for the test name
func Test(name string) slog.Attr {
	return slog.String(KeyTest, name)
}

// Identifier returns a slog.Attr for a cleanup identifier
func Identifier(id string) slog.Attr {
	return slog.String(KeyIdentifier, id)
}

// Retry returns the attempt index and retry ceiling as a pair of attrs.
func Retry(retry, maxRetries int) []any {
	return []any{slog.Int(KeyRetry, retry), slog.Int(KeyMaxRetries, maxRetries)}
}

// EntityKind returns a slog.Attr for a tracked entity kind
func EntityKind(kind string) slog.Attr {
	return slog.String(KeyEntityKind, kind)
}

// EntityID returns a slog.Attr for a remote entity ID
func EntityID(id string) slog.Attr {
	return slog.String(KeyEntityID, id)
}

// EntityLabel returns a slog.Attr for an entity's display label (e.g. email)
func EntityLabel(label string) slog.Attr {
	return slog.String(KeyEntityLabel, label)
}

// DurationMs returns a slog.Attr for an elapsed duration in milliseconds
func DurationMs(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMs, float64(d.Microseconds())/1000.0)
}

// Err returns a slog.Attr for an error. A nil error yields an empty attr,
// which the handlers skip.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
