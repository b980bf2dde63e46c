package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/printbridge/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func tracedRouter(t *testing.T) (*gin.Engine, *tracetest.SpanRecorder) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(t.Context()) })

	r := gin.New()
	r.Use(RequestID())
	r.Use(Tracing(TracingConfig{ServiceName: "printbridge-test", Enabled: true, TracerProvider: tp})...)
	r.POST("/api/v1/printers/:name/jobs/:jobId/:action", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.POST("/api/v1/commands/:name", func(c *gin.Context) {
		c.Status(http.StatusBadRequest)
	})
	r.GET("/api/v1/printers/:name", func(c *gin.Context) {
		c.Status(http.StatusBadGateway)
	})
	return r, sr
}

func endedSpan(t *testing.T, sr *tracetest.SpanRecorder) (sdktrace.ReadOnlySpan, *attribute.Set) {
	t.Helper()
	spans := sr.Ended()
	require.Len(t, spans, 1)
	set := attribute.NewSet(spans[0].Attributes()...)
	return spans[0], &set
}

func TestTracing_Disabled(t *testing.T) {
	assert.Empty(t, Tracing(TracingConfig{Enabled: false}))
}

func TestTracing_JobRoute(t *testing.T) {
	r, sr := tracedRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/printers/Office/jobs/12/pause", nil)
	req.Header.Set(RequestIDKey, "req-trace")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	span, attrs := endedSpan(t, sr)
	assert.Equal(t, "POST /api/v1/printers/:name/jobs/:jobId/:action", span.Name())
	assert.NotEqual(t, codes.Error, span.Status().Code)

	v, _ := attrs.Value(telemetry.AttrRequestID)
	assert.Equal(t, "req-trace", v.AsString())
	v, _ = attrs.Value(telemetry.AttrPrinter)
	assert.Equal(t, "Office", v.AsString())
	v, _ = attrs.Value(telemetry.AttrJobID)
	assert.Equal(t, int64(12), v.AsInt64())
	v, _ = attrs.Value(telemetry.AttrJobAction)
	assert.Equal(t, "PAUSE", v.AsString())
}

func TestTracing_CommandRoute(t *testing.T) {
	r, sr := tracedRouter(t)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/commands/get_printers", nil))

	span, attrs := endedSpan(t, sr)
	v, ok := attrs.Value(telemetry.AttrCommand)
	assert.True(t, ok)
	assert.Equal(t, "get_printers", v.AsString())
	assert.False(t, attrs.HasValue(telemetry.AttrPrinter))
	// client errors leave server spans unset
	assert.NotEqual(t, codes.Error, span.Status().Code)
}

func TestTracing_ServerError(t *testing.T) {
	r, sr := tracedRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/printers/Label", nil))
	require.Equal(t, http.StatusBadGateway, w.Code)

	span, _ := endedSpan(t, sr)
	assert.Equal(t, codes.Error, span.Status().Code)
}

func TestAnnotateSpan_WithoutSpan(t *testing.T) {
	r := gin.New()
	r.Use(annotateSpan)
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	w := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	})
}

func TestRequestIDFrom(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.Header.Set(RequestIDKey, strings.Repeat("x", MaxRequestIDLength+50))
	assert.Len(t, RequestIDFrom(c), MaxRequestIDLength)

	c.Set(RequestIDKey, "ctx-id")
	assert.Equal(t, "ctx-id", RequestIDFrom(c))
}
