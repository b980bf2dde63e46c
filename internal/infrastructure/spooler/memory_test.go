package spooler

import (
	"context"
	"errors"
	"testing"

	"github.com/printbridge/backend/internal/domain/printing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemoryBackend() *MemoryBackend {
	return NewMemoryBackend([]MemoryPrinter{
		{Name: "Office", IsDefault: true, Port: "ipp://office", Driver: "Generic PDF"},
		{Name: "Label", Status: printing.PrinterStatusOffline},
	}, nil)
}

func submitTo(t *testing.T, b *MemoryBackend, printer string) int {
	t.Helper()
	res, err := b.Submit(context.Background(), printing.SubmitRequest{
		Printer:  printer,
		Path:     "/tmp/printbridge/doc.pdf",
		Settings: printing.DefaultPrintSettings(),
	})
	require.NoError(t, err)
	return res.JobID
}

func TestMemoryBackend_ListPrinters(t *testing.T) {
	b := newTestMemoryBackend()
	submitTo(t, b, "Office")

	printers, err := b.ListPrinters(context.Background())
	require.NoError(t, err)
	require.Len(t, printers, 2)
	assert.Equal(t, "Office", printers[0].Name)
	assert.True(t, printers[0].IsDefault)
	assert.Equal(t, printing.PrinterStatusIdle, printers[0].Status)
	assert.Equal(t, 1, printers[0].JobCount)
	assert.Equal(t, printing.PrinterStatusOffline, printers[1].Status)
}

func TestMemoryBackend_MatchNameIsExact(t *testing.T) {
	b := newTestMemoryBackend()
	assert.True(t, b.MatchName("Office", "Office"))
	assert.False(t, b.MatchName("Office", "office"))
}

func TestMemoryBackend_Submit(t *testing.T) {
	b := newTestMemoryBackend()

	first := submitTo(t, b, "Office")
	second := submitTo(t, b, "Office")
	assert.Equal(t, first+1, second)

	jobs, err := b.ListJobs(context.Background(), "Office")
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "doc.pdf", jobs[0].DocumentName)
	assert.Equal(t, printing.JobStatusQueued, jobs[0].Status)
	assert.Equal(t, 2, jobs[1].Position)
}

func TestMemoryBackend_Submit_Rejected(t *testing.T) {
	b := newTestMemoryBackend()

	_, err := b.Submit(context.Background(), printing.SubmitRequest{Printer: "Label", Path: "/tmp/a.pdf"})
	assert.True(t, errors.Is(err, printing.ErrDevice))

	_, err = b.Submit(context.Background(), printing.SubmitRequest{Printer: "Ghost", Path: "/tmp/a.pdf"})
	assert.True(t, errors.Is(err, printing.ErrDevice))
}

func TestMemoryBackend_ListJobs_UnknownPrinter(t *testing.T) {
	b := newTestMemoryBackend()
	_, err := b.ListJobs(context.Background(), "Ghost")
	assert.True(t, errors.Is(err, printing.ErrDevice))
}

func TestMemoryBackend_PauseResume(t *testing.T) {
	b := newTestMemoryBackend()
	id := submitTo(t, b, "Office")
	ctx := context.Background()

	job, err := b.ControlJob(ctx, "Office", id, printing.JobActionPause)
	require.NoError(t, err)
	assert.Equal(t, printing.JobStatusPaused, job.Status)

	job, err = b.ControlJob(ctx, "Office", id, printing.JobActionResume)
	require.NoError(t, err)
	assert.Equal(t, printing.JobStatusQueued, job.Status)

	current, err := b.GetJob(ctx, "Office", id)
	require.NoError(t, err)
	assert.Equal(t, printing.JobStatusQueued, current.Status)
}

func TestMemoryBackend_Restart(t *testing.T) {
	b := newTestMemoryBackend()
	id := submitTo(t, b, "Office")
	require.NoError(t, b.Advance("Office", id, printing.JobStatusPrinting))

	job, err := b.ControlJob(context.Background(), "Office", id, printing.JobActionRestart)
	require.NoError(t, err)
	assert.Equal(t, printing.JobStatusQueued, job.Status)
}

func TestMemoryBackend_CompletedJobLeavesQueue(t *testing.T) {
	b := newTestMemoryBackend()
	id := submitTo(t, b, "Office")
	require.NoError(t, b.Advance("Office", id, printing.JobStatusPrinting))
	require.NoError(t, b.Advance("Office", id, printing.JobStatusCompleted))

	_, err := b.ControlJob(context.Background(), "Office", id, printing.JobActionPause)
	assert.True(t, errors.Is(err, printing.ErrJobNotFound))

	_, err = b.GetJob(context.Background(), "Office", id)
	assert.True(t, errors.Is(err, printing.ErrJobNotFound))
}

func TestMemoryBackend_RemoveTwice(t *testing.T) {
	b := newTestMemoryBackend()
	id := submitTo(t, b, "Office")
	ctx := context.Background()

	job, err := b.ControlJob(ctx, "Office", id, printing.JobActionRemove)
	require.NoError(t, err)
	assert.Equal(t, printing.JobStatusDeleted, job.Status)

	_, err = b.ControlJob(ctx, "Office", id, printing.JobActionRemove)
	assert.True(t, errors.Is(err, printing.ErrJobNotFound))

	jobs, err := b.ListJobs(ctx, "Office")
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestMemoryBackend_ReadOnly(t *testing.T) {
	b := newTestMemoryBackend()
	id := submitTo(t, b, "Office")
	b.SetReadOnly(true)

	_, err := b.ControlJob(context.Background(), "Office", id, printing.JobActionPause)
	assert.True(t, errors.Is(err, printing.ErrPermission))
}

func TestMemoryBackend_InvalidAction(t *testing.T) {
	b := newTestMemoryBackend()
	id := submitTo(t, b, "Office")

	_, err := b.ControlJob(context.Background(), "Office", id, printing.JobAction("explode"))
	assert.True(t, errors.Is(err, printing.ErrDevice))
}

func TestMemoryBackend_CancelledContext(t *testing.T) {
	b := newTestMemoryBackend()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.ListPrinters(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUnsupportedBackend(t *testing.T) {
	b := NewUnsupportedBackend("plan9")
	ctx := context.Background()

	assert.False(t, b.Supported())
	assert.Equal(t, "plan9", b.Platform())

	_, err := b.ListPrinters(ctx)
	assert.ErrorIs(t, err, printing.ErrUnsupportedPlatform)
	_, err = b.Submit(ctx, printing.SubmitRequest{})
	assert.ErrorIs(t, err, printing.ErrUnsupportedPlatform)
	_, err = b.ListJobs(ctx, "x")
	assert.ErrorIs(t, err, printing.ErrUnsupportedPlatform)
	_, err = b.GetJob(ctx, "x", 1)
	assert.ErrorIs(t, err, printing.ErrUnsupportedPlatform)
	_, err = b.ControlJob(ctx, "x", 1, printing.JobActionPause)
	assert.ErrorIs(t, err, printing.ErrUnsupportedPlatform)
}
