// Package middleware provides the gin middleware of the printbridge HTTP API.
package middleware

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/printbridge/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
	// TracerProvider overrides the global provider
	TracerProvider trace.TracerProvider
}

// Tracing returns the otelgin server span handler followed by annotateSpan.
// Span names follow the route pattern, e.g.
// "POST /api/v1/printers/:name/jobs/:jobId/:action". Disabled tracing
// returns no handlers.
func Tracing(cfg TracingConfig) []gin.HandlerFunc {
	if !cfg.Enabled {
		return nil
	}
	var opts []otelgin.Option
	if cfg.TracerProvider != nil {
		opts = append(opts, otelgin.WithTracerProvider(cfg.TracerProvider))
	}
	return []gin.HandlerFunc{otelgin.Middleware(cfg.ServiceName, opts...), annotateSpan}
}

// annotateSpan adds the request id, the token subject and the printer, job
// or command of the route once the handlers ran
func annotateSpan(c *gin.Context) {
	c.Next()

	span := trace.SpanFromContext(c.Request.Context())
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(routeAttributes(c)...)
}

func routeAttributes(c *gin.Context) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if id := RequestIDFrom(c); id != "" {
		attrs = append(attrs, telemetry.AttrRequestID.String(id))
	}
	if sub := GetJWTSubject(c); sub != "" {
		attrs = append(attrs, telemetry.AttrSubject.String(sub))
	}

	command := strings.Contains(c.FullPath(), "/commands/")
	for _, p := range c.Params {
		switch p.Key {
		case "name":
			if command {
				attrs = append(attrs, telemetry.AttrCommand.String(p.Value))
			} else {
				attrs = append(attrs, telemetry.AttrPrinter.String(p.Value))
			}
		case "jobId":
			if id, err := strconv.Atoi(p.Value); err == nil {
				attrs = append(attrs, telemetry.AttrJobID.Int(id))
			}
		case "action":
			attrs = append(attrs, telemetry.AttrJobAction.String(strings.ToUpper(p.Value)))
		}
	}
	return attrs
}
