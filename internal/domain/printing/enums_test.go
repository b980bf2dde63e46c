package printing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobStatus_IsValid(t *testing.T) {
	tests := []struct {
		status   JobStatus
		expected bool
	}{
		{JobStatusQueued, true},
		{JobStatusPrinting, true},
		{JobStatusPaused, true},
		{JobStatusCompleted, true},
		{JobStatusError, true},
		{JobStatusDeleted, true},
		{JobStatus(""), false},
		{JobStatus("SPOOLING"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.status.IsValid())
		})
	}
}

func TestJobStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name     string
		from     JobStatus
		to       JobStatus
		expected bool
	}{
		{"queued to printing", JobStatusQueued, JobStatusPrinting, true},
		{"queued to paused", JobStatusQueued, JobStatusPaused, true},
		{"queued to deleted", JobStatusQueued, JobStatusDeleted, true},
		{"queued to completed", JobStatusQueued, JobStatusCompleted, false},
		{"printing to completed", JobStatusPrinting, JobStatusCompleted, true},
		{"printing to error", JobStatusPrinting, JobStatusError, true},
		{"paused to queued", JobStatusPaused, JobStatusQueued, true},
		{"paused to printing", JobStatusPaused, JobStatusPrinting, false},
		{"error to deleted", JobStatusError, JobStatusDeleted, true},
		{"completed is terminal", JobStatusCompleted, JobStatusQueued, false},
		{"deleted is terminal", JobStatusDeleted, JobStatusQueued, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestJobAction_Apply(t *testing.T) {
	tests := []struct {
		name     string
		action   JobAction
		from     JobStatus
		expected JobStatus
		ok       bool
	}{
		{"pause queued", JobActionPause, JobStatusQueued, JobStatusPaused, true},
		{"pause printing", JobActionPause, JobStatusPrinting, JobStatusPaused, true},
		{"resume paused", JobActionResume, JobStatusPaused, JobStatusQueued, true},
		{"resume queued is a no-op", JobActionResume, JobStatusQueued, JobStatusQueued, true},
		{"restart error", JobActionRestart, JobStatusError, JobStatusQueued, true},
		{"remove paused", JobActionRemove, JobStatusPaused, JobStatusDeleted, true},
		{"pause completed", JobActionPause, JobStatusCompleted, JobStatusCompleted, false},
		{"remove deleted", JobActionRemove, JobStatusDeleted, JobStatusDeleted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.action.Apply(tt.from)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestPaperSize(t *testing.T) {
	t.Run("parse is case insensitive", func(t *testing.T) {
		p, ok := ParsePaperSize("LETTER")
		assert.True(t, ok)
		assert.Equal(t, PaperSizeLetter, p)
	})

	t.Run("unknown paper", func(t *testing.T) {
		_, ok := ParsePaperSize("B5")
		assert.False(t, ok)
	})

	t.Run("dimensions", func(t *testing.T) {
		w, h := PaperSizeA4.Dimensions()
		assert.Equal(t, 210, w)
		assert.Equal(t, 297, h)
		w, h = PaperSizeLetter.Dimensions()
		assert.Equal(t, 216, w)
		assert.Equal(t, 279, h)
	})

	t.Run("cups media", func(t *testing.T) {
		assert.Equal(t, "A4", PaperSizeA4.CUPSMedia())
		assert.Equal(t, "Legal", PaperSizeLegal.CUPSMedia())
	})
}

func TestPrinterStatus_AcceptsJobs(t *testing.T) {
	assert.True(t, PrinterStatusIdle.AcceptsJobs())
	assert.True(t, PrinterStatusPrinting.AcceptsJobs())
	assert.True(t, PrinterStatusUnknown.AcceptsJobs())
	assert.False(t, PrinterStatusOffline.AcceptsJobs())
	assert.False(t, PrinterStatusError.AcceptsJobs())
}
