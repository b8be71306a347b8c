package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newBufferLogger() (*zap.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	core := zapcore.NewCore(encoder, zapcore.AddSync(&buf), zapcore.DebugLevel)
	return zap.New(core), &buf
}

func noopSpanContext(t *testing.T) (context.Context, trace.Span) {
	t.Helper()
	tracer := noop.NewTracerProvider().Tracer("governance-test")
	return tracer.Start(context.Background(), "invoke")
}

func TestWithContextRoundTrip(t *testing.T) {
	logger, err := NewForEnvironment("development")
	require.NoError(t, err)

	ctx := WithContext(context.Background(), logger)
	assert.NotNil(t, FromContext(ctx))
}

func TestFromContextFallsBackToNop(t *testing.T) {
	logger := FromContext(context.Background())
	require.NotNil(t, logger)
	assert.NotPanics(t, func() {
		logger.Info("no logger attached")
		logger.With(zap.String("key", "value")).Warn("still fine")
	})
}

func TestFromContextIgnoresWrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), LoggerKey, "not a logger")
	logger := FromContext(ctx)
	require.NotNil(t, logger)
	assert.NotPanics(t, func() { logger.Info("ok") })
}

func TestCorrelationAccessors(t *testing.T) {
	logger, err := NewForEnvironment("development")
	require.NoError(t, err)

	ctx := context.Background()
	ctx, _ = WithRequestID(ctx, logger, "req-1")
	ctx, _ = WithTenantID(ctx, logger, "tenant-1")
	ctx, enriched := WithUserID(ctx, logger, "user-1")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "tenant-1", GetTenantID(ctx))
	assert.Equal(t, "user-1", GetUserID(ctx))
	assert.NotEqual(t, logger, enriched)
}

func TestCorrelationAccessorsEmptyContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRequestID(ctx))
	assert.Empty(t, GetTenantID(ctx))
	assert.Empty(t, GetUserID(ctx))
}

func TestWithRequestIDOverrides(t *testing.T) {
	logger := zap.NewNop()
	ctx := context.Background()

	ctx, _ = WithRequestID(ctx, logger, "first")
	ctx, _ = WithRequestID(ctx, logger, "second")

	assert.Equal(t, "second", GetRequestID(ctx))
}

func TestContextKeysDistinct(t *testing.T) {
	keys := []contextKey{LoggerKey, RequestIDKey, TenantIDKey, UserIDKey}
	seen := make(map[contextKey]bool)
	for _, key := range keys {
		assert.False(t, seen[key], "duplicate context key %q", key)
		seen[key] = true
	}
}

func TestEnrichedLoggerStoredInContext(t *testing.T) {
	base, buf := newBufferLogger()

	ctx, _ := WithRequestID(context.Background(), base, "req-abc")
	FromContext(ctx).Info("lookup")

	assert.Contains(t, buf.String(), `"request_id":"req-abc"`)
}

func TestTraceAccessorsWithoutSpan(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))
	assert.Empty(t, GetSpanID(ctx))
}

func TestTraceAccessorsWithNoopSpan(t *testing.T) {
	ctx, span := noopSpanContext(t)
	defer span.End()

	// Noop spans carry an invalid span context, so both IDs stay empty.
	require.False(t, trace.SpanFromContext(ctx).SpanContext().IsValid())
	assert.Empty(t, GetTraceID(ctx))
	assert.Empty(t, GetSpanID(ctx))
}

func TestWithTraceContextWithoutValidSpan(t *testing.T) {
	base := zap.NewNop()

	assert.Equal(t, base, WithTraceContext(context.Background(), base))

	ctx, span := noopSpanContext(t)
	defer span.End()
	assert.Equal(t, base, WithTraceContext(ctx, base))
}

func TestL(t *testing.T) {
	cl := L(context.Background())
	require.NotNil(t, cl)
	assert.NotNil(t, cl.ctx)
	assert.NotNil(t, cl.logger)

	base, err := NewForEnvironment("development")
	require.NoError(t, err)
	cl = L(WithContext(context.Background(), base))
	assert.NotNil(t, cl.logger)
}

func TestWithLoggerKeepsExplicitLogger(t *testing.T) {
	base := zap.NewNop()
	cl := WithLogger(context.Background(), base)
	require.NotNil(t, cl)
	assert.Equal(t, base, cl.logger)
}

func TestContextLoggerWith(t *testing.T) {
	base, _ := newBufferLogger()
	ctx := context.Background()

	child := WithLogger(ctx, base).With(zap.String("feature", "chat"))
	require.NotNil(t, child)
	assert.Equal(t, ctx, child.ctx)
	assert.NotEqual(t, base, child.logger)

	chained := child.With(zap.String("model", "gpt-4o-mini"))
	assert.NotPanics(t, func() { chained.Info("chained") })
}

func TestContextLoggerLevelsDoNotPanic(t *testing.T) {
	cl := WithLogger(context.Background(), zap.NewNop())
	assert.NotPanics(t, func() {
		cl.Debug("d")
		cl.Info("i")
		cl.Warn("w")
		cl.Error("e")
	})
}

func TestContextLoggerNilLogger(t *testing.T) {
	cl := &ContextLogger{ctx: context.Background()}
	assert.NotPanics(t, func() { cl.Info("nil underlying logger") })
}

func TestContextLoggerZapAndSugar(t *testing.T) {
	cl := WithLogger(context.Background(), zap.NewNop())

	require.NotNil(t, cl.Zap())
	require.NotNil(t, cl.Sugar())
	assert.NotPanics(t, func() {
		cl.Zap().Info("plain")
		cl.Sugar().Infof("sugared %s", "entry")
	})
}

func TestContextLoggerInjectsCorrelationFields(t *testing.T) {
	base, buf := newBufferLogger()

	ctx := context.Background()
	ctx = context.WithValue(ctx, RequestIDKey, "req-123")
	ctx = context.WithValue(ctx, TenantIDKey, "tenant-456")
	ctx = context.WithValue(ctx, UserIDKey, "user-789")

	WithLogger(ctx, base).Info("invoke denied", zap.String("feature", "ocr"))

	output := buf.String()
	assert.Contains(t, output, `"request_id":"req-123"`)
	assert.Contains(t, output, `"tenant_id":"tenant-456"`)
	assert.Contains(t, output, `"user_id":"user-789"`)
	assert.Contains(t, output, `"feature":"ocr"`)
	assert.Contains(t, output, `"msg":"invoke denied"`)
}

func TestContextLoggerSkipsEmptyCorrelationFields(t *testing.T) {
	base, buf := newBufferLogger()

	WithLogger(context.Background(), base).Info("bare entry")

	output := buf.String()
	assert.Contains(t, output, `"msg":"bare entry"`)
	assert.NotContains(t, output, `"request_id"`)
	assert.NotContains(t, output, `"tenant_id"`)
	assert.NotContains(t, output, `"user_id"`)
}
