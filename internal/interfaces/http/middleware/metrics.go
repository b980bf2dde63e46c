package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/printbridge/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// HTTPMetricsConfig holds configuration for HTTP metrics middleware.
type HTTPMetricsConfig struct {
	MeterProvider *telemetry.MeterProvider
	Logger        *zap.Logger
}

// responseSizeBuckets run from a JSON error envelope to a printer listing
// with driver details
var responseSizeBuckets = []float64{128, 512, 2048, 8192, 32768, 131072, 524288}

type httpInstruments struct {
	requests metric.Int64Counter
	inFlight metric.Int64UpDownCounter
	latency  *telemetry.Histogram
	size     *telemetry.Histogram
}

func newHTTPInstruments(meter metric.Meter) (*httpInstruments, error) {
	var (
		in  httpInstruments
		err error
	)
	if in.requests, err = meter.Int64Counter("http_server_request_total",
		metric.WithDescription("HTTP requests by route and status"),
		metric.WithUnit("{request}")); err != nil {
		return nil, err
	}
	if in.inFlight, err = meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("HTTP requests being served"),
		metric.WithUnit("{request}")); err != nil {
		return nil, err
	}
	if in.latency, err = telemetry.NewHistogram(meter, "http_server_request_duration_seconds",
		"HTTP request latency", "s", telemetry.HTTPDurationBuckets...); err != nil {
		return nil, err
	}
	if in.size, err = telemetry.NewHistogram(meter, "http_server_response_size_bytes",
		"HTTP response body size", "By", responseSizeBuckets...); err != nil {
		return nil, err
	}
	return &in, nil
}

func (in *httpInstruments) observe(ctx context.Context, c *gin.Context, elapsed time.Duration) {
	route := []attribute.KeyValue{
		telemetry.AttrHTTPMethod.String(c.Request.Method),
		telemetry.AttrHTTPRoute.String(routePattern(c)),
	}
	in.requests.Add(ctx, 1, metric.WithAttributes(append(route, telemetry.AttrHTTPStatusCode.Int(c.Writer.Status()))...))
	in.latency.ObserveDuration(ctx, elapsed, route...)
	if n := c.Writer.Size(); n > 0 {
		in.size.Observe(ctx, float64(n), route...)
	}
}

// HTTPMetrics records request count, latency, response size and in-flight
// requests per route. It is a passthrough when metrics are disabled.
func HTTPMetrics(cfg HTTPMetricsConfig) gin.HandlerFunc {
	if cfg.MeterProvider == nil || !cfg.MeterProvider.IsEnabled() {
		return passthrough
	}
	return HTTPMetricsWithMeter(cfg.MeterProvider.Meter("printbridge/http"), cfg.Logger)
}

// HTTPMetricsWithMeter records HTTP metrics on meter
func HTTPMetricsWithMeter(meter metric.Meter, logger *zap.Logger) gin.HandlerFunc {
	in, err := newHTTPInstruments(meter)
	if err != nil {
		if logger != nil {
			logger.Warn("HTTP metrics disabled", zap.Error(err))
		}
		return passthrough
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()

		in.inFlight.Add(ctx, 1)
		defer in.inFlight.Add(ctx, -1)

		c.Next()
		in.observe(ctx, c, time.Since(start))
	}
}

func passthrough(c *gin.Context) { c.Next() }

// routePattern keeps cardinality bounded: "/api/v1/printers/:name", never the
// printer name itself
func routePattern(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unknown"
}
