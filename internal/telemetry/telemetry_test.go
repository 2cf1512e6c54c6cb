package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// useRecorder swaps the package tracer for one backed by an in-memory
// exporter for the duration of the test.
func useRecorder(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))

	prev := tracer
	tracer = tp.Tracer(instrumentationName)
	t.Cleanup(func() {
		tracer = prev
		_ = tp.Shutdown(context.Background())
	})
	return exp
}

func attrMap(kvs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(kvs))
	for _, kv := range kvs {
		m[string(kv.Key)] = kv.Value
	}
	return m
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, DefaultServiceName, cfg.ServiceName)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()

	shutdown, err := Init(ctx, DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(ctx))

	spanCtx, span := StartCleanupSpan(ctx, "suite_X")
	assert.False(t, span.SpanContext().IsValid())
	assert.Empty(t, TraceID(spanCtx))
	span.End()
}

func TestNoActiveSpan(t *testing.T) {
	ctx := context.Background()

	assert.Empty(t, TraceID(ctx))
	require.NotPanics(t, func() {
		RecordError(ctx, errors.New("boom"))
		RecordError(ctx, nil)
		SetAttributes(ctx, Suite("s"))
	})
}

func TestAttemptSpanAttributes(t *testing.T) {
	exp := useRecorder(t)

	ctx, span := StartAttemptSpan(context.Background(), "Login", "rejects bad password", 1, 2)
	assert.NotEmpty(t, TraceID(ctx))
	span.End()

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, SpanTestAttempt, spans[0].Name)

	attrs := attrMap(spans[0].Attributes)
	assert.Equal(t, "Login", attrs[AttrSuite].AsString())
	assert.Equal(t, "rejects bad password", attrs[AttrTest].AsString())
	assert.Equal(t, int64(1), attrs[AttrRetry].AsInt64())
	assert.Equal(t, int64(2), attrs[AttrMaxRetries].AsInt64())
}

func TestDeleteSpanNestsUnderCleanup(t *testing.T) {
	exp := useRecorder(t)

	ctx, run := StartCleanupSpan(context.Background(), "suite_Login")
	delCtx, del := StartDeleteSpan(ctx, "user", "u-1")
	RecordError(delCtx, errors.New("500 internal"))
	del.End()
	run.End()

	spans := exp.GetSpans()
	require.Len(t, spans, 2)

	deleteSpan, runSpan := spans[0], spans[1]
	assert.Equal(t, SpanCleanupEntry, deleteSpan.Name)
	assert.Equal(t, SpanCleanupRun, runSpan.Name)
	assert.Equal(t, runSpan.SpanContext.SpanID(), deleteSpan.Parent.SpanID())
	assert.Equal(t, codes.Error, deleteSpan.Status.Code)
	assert.Equal(t, "u-1", attrMap(deleteSpan.Attributes)[AttrEntityID].AsString())
}

func TestAPISpanIsClientKind(t *testing.T) {
	exp := useRecorder(t)

	_, span := StartAPISpan(context.Background(), "DELETE", "/users/{id}")
	span.SetAttributes(HTTPStatus(404))
	span.End()

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "client", spans[0].SpanKind.String())
	assert.Equal(t, int64(404), attrMap(spans[0].Attributes)[AttrHTTPStatus].AsInt64())
}

func TestRunResourceDescribesRun(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Run = RunInfo{DataMode: "auto", Policy: "pass-only", Retries: 2}

	res, err := runResource(context.Background(), cfg)
	require.NoError(t, err)

	attrs := attrMap(res.Attributes())
	assert.Equal(t, DefaultServiceName, attrs["service.name"].AsString())
	assert.Equal(t, "auto", attrs[AttrRunDataMode].AsString())
	assert.Equal(t, "pass-only", attrs[AttrRunPolicy].AsString())
	assert.Equal(t, int64(2), attrs[AttrRunRetries].AsInt64())
}

func TestRunResourceOmitsUnsetRunInfo(t *testing.T) {
	res, err := runResource(context.Background(), Config{})
	require.NoError(t, err)

	attrs := attrMap(res.Attributes())
	assert.Equal(t, DefaultServiceName, attrs["service.name"].AsString())
	assert.NotContains(t, attrs, AttrRunDataMode)
	assert.NotContains(t, attrs, AttrRunPolicy)
}

func TestSamplerFor(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), samplerFor(1).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), samplerFor(0).Description())
	assert.Equal(t, sdktrace.TraceIDRatioBased(0.25).Description(), samplerFor(0.25).Description())
}
