package telemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/printbridge/backend/internal/domain/printing"
	"github.com/printbridge/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNewSpoolerMetrics_NilMeter(t *testing.T) {
	sm, err := telemetry.NewSpoolerMetrics(telemetry.SpoolerMetricsConfig{})
	require.Error(t, err)
	assert.Nil(t, sm)
	assert.ErrorIs(t, err, telemetry.ErrMeterNil)
}

func TestSpoolerMetrics_NilReceiver(t *testing.T) {
	var sm *telemetry.SpoolerMetrics
	ctx := context.Background()

	// Should not panic
	sm.RecordOperation(ctx, "list_printers", time.Millisecond, nil)
	sm.RecordSubmitted(ctx, 3)
	sm.RecordPrinters(ctx, 2)
	sm.RecordSweep(ctx, 1)
	sm.RecordRender(ctx, time.Second, nil)
}

func TestSpoolerMetrics_Noop(t *testing.T) {
	sm, err := telemetry.NewSpoolerMetrics(telemetry.SpoolerMetricsConfig{
		Meter:   noop.NewMeterProvider().Meter("test"),
		Backend: "memory",
	})
	require.NoError(t, err)
	sm.RecordOperation(context.Background(), "submit", time.Second, printing.ErrDevice)
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestSpoolerMetrics_Records(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	sm, err := telemetry.NewSpoolerMetrics(telemetry.SpoolerMetricsConfig{
		Meter:   provider.Meter("test"),
		Backend: "cups",
	})
	require.NoError(t, err)

	ctx := context.Background()
	sm.RecordOperation(ctx, "submit", 20*time.Millisecond, nil)
	sm.RecordOperation(ctx, "submit", 5*time.Millisecond, printing.ErrDevice)
	sm.RecordSubmitted(ctx, 4)
	sm.RecordPrinters(ctx, 3)
	sm.RecordSweep(ctx, 2)
	sm.RecordSweep(ctx, 0)

	metrics := collect(t, reader)

	ops, ok := metrics["printbridge_spooler_operations_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, ops.DataPoints, 2)
	for _, dp := range ops.DataPoints {
		backend, _ := dp.Attributes.Value(telemetry.AttrBackend)
		assert.Equal(t, "cups", backend.AsString())
		outcome, _ := dp.Attributes.Value(telemetry.AttrOutcome)
		if outcome.AsString() == telemetry.OutcomeFailure {
			code, _ := dp.Attributes.Value(telemetry.AttrErrorCode)
			assert.Equal(t, printing.ErrCodeDevice, code.AsString())
		}
		assert.Equal(t, int64(1), dp.Value)
	}

	pages, ok := metrics["printbridge_pages_submitted_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, pages.DataPoints, 1)
	assert.Equal(t, int64(4), pages.DataPoints[0].Value)

	printers, ok := metrics["printbridge_printers"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, printers.DataPoints, 1)
	assert.Equal(t, int64(3), printers.DataPoints[0].Value)

	swept, ok := metrics["printbridge_temp_files_swept_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Equal(t, int64(2), swept.DataPoints[0].Value)

	duration, ok := metrics["printbridge_spooler_operation_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, duration.DataPoints, 1)
	assert.Equal(t, uint64(2), duration.DataPoints[0].Count)
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, printing.ErrCodeJobNotFound, telemetry.ErrorCode(printing.NewJobNotFoundError("Office", 3)))
	assert.Equal(t, "CANCELLED", telemetry.ErrorCode(context.DeadlineExceeded))
	assert.Equal(t, "INTERNAL", telemetry.ErrorCode(errors.New("boom")))
}
