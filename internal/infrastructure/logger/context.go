package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// contextKey keeps this package's context values from colliding with others
type contextKey string

const (
	// LoggerKey carries the request-scoped logger
	LoggerKey contextKey = "logger"
	// RequestIDKey carries the request ID
	RequestIDKey contextKey = "request_id"
	// TenantIDKey carries the tenant ID
	TenantIDKey contextKey = "tenant_id"
	// UserIDKey carries the authenticated user ID
	UserIDKey contextKey = "user_id"
)

// WithContext attaches the logger to the context
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext returns the context's logger, or a no-op logger when none is
// attached
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID stores the request ID and returns a logger tagged with it
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	return tagged(ctx, logger, RequestIDKey, "request_id", requestID)
}

// WithTenantID stores the tenant ID and returns a logger tagged with it
func WithTenantID(ctx context.Context, logger *zap.Logger, tenantID string) (context.Context, *zap.Logger) {
	return tagged(ctx, logger, TenantIDKey, "tenant_id", tenantID)
}

// WithUserID stores the user ID and returns a logger tagged with it
func WithUserID(ctx context.Context, logger *zap.Logger, userID string) (context.Context, *zap.Logger) {
	return tagged(ctx, logger, UserIDKey, "user_id", userID)
}

func tagged(ctx context.Context, logger *zap.Logger, key contextKey, field, value string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, key, value)
	child := logger.With(zap.String(field, value))
	return WithContext(ctx, child), child
}

// GetRequestID returns the request ID stored in the context, if any
func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, RequestIDKey)
}

// GetTenantID returns the tenant ID stored in the context, if any
func GetTenantID(ctx context.Context) string {
	return stringValue(ctx, TenantIDKey)
}

// GetUserID returns the user ID stored in the context, if any
func GetUserID(ctx context.Context) string {
	return stringValue(ctx, UserIDKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	if value, ok := ctx.Value(key).(string); ok {
		return value
	}
	return ""
}

// traceFields returns trace_id and span_id fields for the context's active
// span; nil when there is no valid span
func traceFields(ctx context.Context) []zap.Field {
	spanCtx := trace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.IsValid() {
		return nil
	}
	return []zap.Field{
		zap.String("trace_id", spanCtx.TraceID().String()),
		zap.String("span_id", spanCtx.SpanID().String()),
	}
}

// GetTraceID returns the active span's trace ID, or "" without a valid span
func GetTraceID(ctx context.Context) string {
	spanCtx := trace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}

// GetSpanID returns the active span's span ID, or "" without a valid span
func GetSpanID(ctx context.Context) string {
	spanCtx := trace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.SpanID().String()
}

// WithTraceContext tags the logger with trace_id and span_id from the
// context's span. Without a valid span the logger is returned unchanged.
func WithTraceContext(ctx context.Context, logger *zap.Logger) *zap.Logger {
	fields := traceFields(ctx)
	if fields == nil {
		return logger
	}
	return logger.With(fields...)
}

// ContextLogger logs with automatic correlation: every entry picks up
// trace_id, span_id, request_id, tenant_id and user_id from the context.
type ContextLogger struct {
	ctx    context.Context
	logger *zap.Logger
}

// L wraps the context's logger in a ContextLogger.
// Usage: logger.L(ctx).Info("message", zap.String("key", "value"))
func L(ctx context.Context) *ContextLogger {
	return &ContextLogger{ctx: ctx, logger: FromContext(ctx)}
}

// WithLogger builds a ContextLogger around an explicit logger instead of the
// one stored in the context
func WithLogger(ctx context.Context, logger *zap.Logger) *ContextLogger {
	return &ContextLogger{ctx: ctx, logger: logger}
}

// enrich tags the underlying logger with every correlation field present in
// the context
func (cl *ContextLogger) enrich() *zap.Logger {
	l := cl.logger
	if l == nil {
		l = zap.NewNop()
	}

	if fields := traceFields(cl.ctx); fields != nil {
		l = l.With(fields...)
	}
	if requestID := GetRequestID(cl.ctx); requestID != "" {
		l = l.With(zap.String("request_id", requestID))
	}
	if tenantID := GetTenantID(cl.ctx); tenantID != "" {
		l = l.With(zap.String("tenant_id", tenantID))
	}
	if userID := GetUserID(cl.ctx); userID != "" {
		l = l.With(zap.String("user_id", userID))
	}
	return l
}

// With creates a child ContextLogger carrying additional fields
func (cl *ContextLogger) With(fields ...zap.Field) *ContextLogger {
	return &ContextLogger{ctx: cl.ctx, logger: cl.logger.With(fields...)}
}

// Debug logs at debug level with correlation fields
func (cl *ContextLogger) Debug(msg string, fields ...zap.Field) {
	cl.enrich().Debug(msg, fields...)
}

// Info logs at info level with correlation fields
func (cl *ContextLogger) Info(msg string, fields ...zap.Field) {
	cl.enrich().Info(msg, fields...)
}

// Warn logs at warn level with correlation fields
func (cl *ContextLogger) Warn(msg string, fields ...zap.Field) {
	cl.enrich().Warn(msg, fields...)
}

// Error logs at error level with correlation fields
func (cl *ContextLogger) Error(msg string, fields ...zap.Field) {
	cl.enrich().Error(msg, fields...)
}

// Fatal logs at fatal level with correlation fields, then exits
func (cl *ContextLogger) Fatal(msg string, fields ...zap.Field) {
	cl.enrich().Fatal(msg, fields...)
}

// Panic logs at panic level with correlation fields, then panics
func (cl *ContextLogger) Panic(msg string, fields ...zap.Field) {
	cl.enrich().Panic(msg, fields...)
}

// Zap returns the enriched *zap.Logger for APIs that want one directly
func (cl *ContextLogger) Zap() *zap.Logger {
	return cl.enrich()
}

// Sugar returns the enriched logger in sugared form
func (cl *ContextLogger) Sugar() *zap.SugaredLogger {
	return cl.enrich().Sugar()
}
