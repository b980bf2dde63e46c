package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/printbridge/backend/internal/domain/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Outcome values for AttrOutcome
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// SpoolerMetrics records the activity of the print pipeline: backend calls,
// submitted jobs and pages, visible printers, scratch sweeps and HTML renders.
// A nil *SpoolerMetrics records nothing.
type SpoolerMetrics struct {
	backend string
	logger  *zap.Logger

	operationsTotal   *Counter
	operationDuration *Histogram
	jobsSubmitted     *Counter
	pagesSubmitted    *Counter
	printersVisible   *Gauge
	tempFilesSwept    *Counter
	renderDuration    *Histogram
}

// SpoolerMetricsConfig holds configuration for spooler metrics.
type SpoolerMetricsConfig struct {
	Meter metric.Meter
	// Backend is attached to every data point, e.g. "cups"
	Backend string
	Logger  *zap.Logger
}

// NewSpoolerMetrics creates the spooler instruments on cfg.Meter.
func NewSpoolerMetrics(cfg SpoolerMetricsConfig) (*SpoolerMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sm := &SpoolerMetrics{backend: cfg.Backend, logger: logger}
	var err error

	if sm.operationsTotal, err = NewCounter(cfg.Meter,
		"printbridge_spooler_operations_total",
		"Print backend operations by outcome",
		"{operations}",
	); err != nil {
		return nil, err
	}
	if sm.operationDuration, err = NewHistogram(cfg.Meter,
		"printbridge_spooler_operation_duration_seconds",
		"Duration of print backend operations",
		"s",
		SpoolerDurationBuckets...,
	); err != nil {
		return nil, err
	}
	if sm.jobsSubmitted, err = NewCounter(cfg.Meter,
		"printbridge_jobs_submitted_total",
		"Print jobs accepted by the spooler",
		"{jobs}",
	); err != nil {
		return nil, err
	}
	if sm.pagesSubmitted, err = NewCounter(cfg.Meter,
		"printbridge_pages_submitted_total",
		"Document pages accepted by the spooler, before copies",
		"{pages}",
	); err != nil {
		return nil, err
	}
	if sm.printersVisible, err = NewGauge(cfg.Meter,
		"printbridge_printers",
		"Printers reported by the last directory query",
		"{printers}",
	); err != nil {
		return nil, err
	}
	if sm.tempFilesSwept, err = NewCounter(cfg.Meter,
		"printbridge_temp_files_swept_total",
		"Stale scratch files removed by the sweeper",
		"{files}",
	); err != nil {
		return nil, err
	}
	if sm.renderDuration, err = NewHistogram(cfg.Meter,
		"printbridge_render_duration_seconds",
		"Duration of HTML to PDF rendering",
		"s",
		RenderDurationBuckets...,
	); err != nil {
		return nil, err
	}
	return sm, nil
}

// RecordOperation counts one backend call and its duration. err decides the
// outcome; domain errors also contribute their code.
func (sm *SpoolerMetrics) RecordOperation(ctx context.Context, operation string, d time.Duration, err error) {
	if sm == nil {
		return
	}
	attrs := []attribute.KeyValue{
		AttrBackend.String(sm.backend),
		AttrOperation.String(operation),
	}
	if err != nil {
		attrs = append(attrs, AttrOutcome.String(OutcomeFailure), AttrErrorCode.String(ErrorCode(err)))
	} else {
		attrs = append(attrs, AttrOutcome.String(OutcomeSuccess))
	}
	sm.operationsTotal.Add(ctx, 1, attrs...)
	sm.operationDuration.ObserveDuration(ctx, d, attrs[:2]...)
}

// RecordSubmitted counts an accepted job and its pages
func (sm *SpoolerMetrics) RecordSubmitted(ctx context.Context, pages int) {
	if sm == nil {
		return
	}
	attr := AttrBackend.String(sm.backend)
	sm.jobsSubmitted.Add(ctx, 1, attr)
	if pages > 0 {
		sm.pagesSubmitted.Add(ctx, int64(pages), attr)
	}
}

// RecordPrinters records the size of the last printer listing
func (sm *SpoolerMetrics) RecordPrinters(ctx context.Context, count int) {
	if sm == nil {
		return
	}
	sm.printersVisible.Set(ctx, int64(count), AttrBackend.String(sm.backend))
}

// RecordSweep counts removed scratch files
func (sm *SpoolerMetrics) RecordSweep(ctx context.Context, removed int) {
	if sm == nil || removed <= 0 {
		return
	}
	sm.tempFilesSwept.Add(ctx, int64(removed))
}

// RecordRender records one HTML render
func (sm *SpoolerMetrics) RecordRender(ctx context.Context, d time.Duration, err error) {
	if sm == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	sm.renderDuration.ObserveDuration(ctx, d, AttrOutcome.String(outcome))
}

// ErrorCode returns the DomainError code carried by err, or "INTERNAL"
func ErrorCode(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return "CANCELLED"
	}
	return "INTERNAL"
}

// ErrMeterNil is returned by NewSpoolerMetrics without a meter
var ErrMeterNil = errors.New("spooler metrics: meter is nil")
