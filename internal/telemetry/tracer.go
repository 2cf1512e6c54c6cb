package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for test run spans.
const (
	AttrSuite      = "e2e.suite"
	AttrTest       = "e2e.test"
	AttrRetry      = "e2e.retry"
	AttrMaxRetries = "e2e.max_retries"
	AttrStatus     = "e2e.status"

	AttrIdentifier = "cleanup.identifier"
	AttrEntityKind = "cleanup.entity.kind"
	AttrEntityID   = "cleanup.entity.id"
	AttrOutcome    = "cleanup.outcome"

	AttrHTTPMethod = "http.request.method"
	AttrHTTPRoute  = "http.route"
	AttrHTTPStatus = "http.response.status_code"

	AttrSnapshot = "snapshot.name"
	AttrSelector = "browser.selector"
	AttrBucket   = "storage.bucket"
)

// Span names.
const (
	SpanSuiteRun     = "e2e.suite"
	SpanTestAttempt  = "e2e.attempt"
	SpanCleanupRun   = "cleanup.run"
	SpanCleanupEntry = "cleanup.delete"
	SpanAPIRequest   = "api.request"
	SpanSnapshot     = "snapshot"
	SpanBrowserStep  = "browser"
)

func Suite(name string) attribute.KeyValue {
	return attribute.String(AttrSuite, name)
}

func Test(name string) attribute.KeyValue {
	return attribute.String(AttrTest, name)
}

func Retry(retry, maxRetries int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrRetry, retry),
		attribute.Int(AttrMaxRetries, maxRetries),
	}
}

func Status(status string) attribute.KeyValue {
	return attribute.String(AttrStatus, status)
}

func Identifier(id string) attribute.KeyValue {
	return attribute.String(AttrIdentifier, id)
}

func EntityKind(kind string) attribute.KeyValue {
	return attribute.String(AttrEntityKind, kind)
}

func EntityID(id string) attribute.KeyValue {
	return attribute.String(AttrEntityID, id)
}

func Outcome(outcome string) attribute.KeyValue {
	return attribute.String(AttrOutcome, outcome)
}

func HTTPStatus(code int) attribute.KeyValue {
	return attribute.Int(AttrHTTPStatus, code)
}

func Bucket(name string) attribute.KeyValue {
	return attribute.String(AttrBucket, name)
}

// StartAttemptSpan starts a span for one attempt of a test.
func StartAttemptSpan(ctx context.Context, suite, test string, retry, maxRetries int) (context.Context, trace.Span) {
	attrs := append([]attribute.KeyValue{Suite(suite), Test(test)}, Retry(retry, maxRetries)...)
	return startSpan(ctx, SpanTestAttempt, trace.WithAttributes(attrs...))
}

// StartCleanupSpan starts the span wrapping one executor run.
func StartCleanupSpan(ctx context.Context, identifier string) (context.Context, trace.Span) {
	return startSpan(ctx, SpanCleanupRun, trace.WithAttributes(Identifier(identifier)))
}

// StartDeleteSpan starts a span for a single entity delete.
func StartDeleteSpan(ctx context.Context, kind, id string) (context.Context, trace.Span) {
	return startSpan(ctx, SpanCleanupEntry, trace.WithAttributes(EntityKind(kind), EntityID(id)))
}

// StartAPISpan starts a client span for a data manager request.
func StartAPISpan(ctx context.Context, method, route string) (context.Context, trace.Span) {
	return startSpan(ctx, SpanAPIRequest,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(AttrHTTPMethod, method),
			attribute.String(AttrHTTPRoute, route),
		))
}

// StartSnapshotSpan starts a span for a snapshot operation such as
// "create" or "restore".
func StartSnapshotSpan(ctx context.Context, operation, name string) (context.Context, trace.Span) {
	return startSpan(ctx, SpanSnapshot+"."+operation,
		trace.WithAttributes(attribute.String(AttrSnapshot, name)))
}

// StartBrowserStepSpan starts a span for one browser step such as
// "navigate" or "click".
func StartBrowserStepSpan(ctx context.Context, step, target string) (context.Context, trace.Span) {
	return startSpan(ctx, SpanBrowserStep+"."+step,
		trace.WithAttributes(attribute.String(AttrSelector, target)))
}
