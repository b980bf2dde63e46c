package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Attribute keys shared by spans and metrics of the print pipeline
var (
	AttrBackend   = attribute.Key("printbridge.backend")
	AttrOperation = attribute.Key("printbridge.operation")
	AttrOutcome   = attribute.Key("printbridge.outcome")
	AttrErrorCode = attribute.Key("printbridge.error_code")
	AttrPrinter   = attribute.Key("printbridge.printer")
	AttrJobAction = attribute.Key("printbridge.job_action")
	AttrJobID     = attribute.Key("printbridge.job_id")
	AttrPath      = attribute.Key("printbridge.path")
	AttrPages     = attribute.Key("printbridge.pages")
	AttrCount     = attribute.Key("printbridge.count")
	AttrCommand   = attribute.Key("printbridge.command")
	AttrRequestID = attribute.Key("printbridge.request_id")
	AttrSubject   = attribute.Key("printbridge.subject")

	AttrHTTPMethod     = attribute.Key("http.method")
	AttrHTTPRoute      = attribute.Key("http.route")
	AttrHTTPStatusCode = attribute.Key("http.status_code")
)

// Histogram boundaries, in seconds
var (
	// SpoolerDurationBuckets span lpstat (milliseconds) to a rasterizing driver
	// (tens of seconds)
	SpoolerDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

	RenderDurationBuckets = []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30}

	// HTTPDurationBuckets reach tens of seconds since print submissions wait
	// for the spooler
	HTTPDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
)

// Counter is a monotonic int64 counter
type Counter struct {
	inst metric.Int64Counter
}

// NewCounter creates a counter on meter
func NewCounter(meter metric.Meter, name, description, unit string) (*Counter, error) {
	inst, err := meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		return nil, fmt.Errorf("counter %s: %w", name, err)
	}
	return &Counter{inst: inst}, nil
}

// Add increments the counter by n
func (c *Counter) Add(ctx context.Context, n int64, attrs ...attribute.KeyValue) {
	c.inst.Add(ctx, n, metric.WithAttributes(attrs...))
}

// Histogram is a float64 distribution
type Histogram struct {
	inst metric.Float64Histogram
}

// NewHistogram creates a histogram on meter. Without buckets the SDK defaults apply.
func NewHistogram(meter metric.Meter, name, description, unit string, buckets ...float64) (*Histogram, error) {
	opts := []metric.Float64HistogramOption{metric.WithDescription(description), metric.WithUnit(unit)}
	if len(buckets) > 0 {
		opts = append(opts, metric.WithExplicitBucketBoundaries(buckets...))
	}
	inst, err := meter.Float64Histogram(name, opts...)
	if err != nil {
		return nil, fmt.Errorf("histogram %s: %w", name, err)
	}
	return &Histogram{inst: inst}, nil
}

// Observe records v
func (h *Histogram) Observe(ctx context.Context, v float64, attrs ...attribute.KeyValue) {
	h.inst.Record(ctx, v, metric.WithAttributes(attrs...))
}

// ObserveDuration records d in seconds
func (h *Histogram) ObserveDuration(ctx context.Context, d time.Duration, attrs ...attribute.KeyValue) {
	h.inst.Record(ctx, d.Seconds(), metric.WithAttributes(attrs...))
}

// Gauge holds the last recorded int64 value per attribute set
type Gauge struct {
	inst metric.Int64Gauge
}

// NewGauge creates a gauge on meter
func NewGauge(meter metric.Meter, name, description, unit string) (*Gauge, error) {
	inst, err := meter.Int64Gauge(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		return nil, fmt.Errorf("gauge %s: %w", name, err)
	}
	return &Gauge{inst: inst}, nil
}

// Set records v
func (g *Gauge) Set(ctx context.Context, v int64, attrs ...attribute.KeyValue) {
	g.inst.Record(ctx, v, metric.WithAttributes(attrs...))
}
