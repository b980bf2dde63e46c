package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	subjectKey
)

// WithContext stores l in ctx
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the logger stored in ctx, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// WithSubject records the authenticated token subject in ctx and on the
// logger stored with it
func WithSubject(ctx context.Context, l *zap.Logger, subject string) (context.Context, *zap.Logger) {
	enriched := OrNop(l).With(zap.String("subject", subject))
	ctx = context.WithValue(ctx, subjectKey, subject)
	return WithContext(ctx, enriched), enriched
}

// GetSubject returns the token subject, empty for unauthenticated requests
func GetSubject(ctx context.Context) string {
	sub, _ := ctx.Value(subjectKey).(string)
	return sub
}

// WithTraceContext adds trace_id and span_id of the span in ctx, if any
func WithTraceContext(ctx context.Context, l *zap.Logger) *zap.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return l
	}
	return l.With(
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	)
}
