package spooler

import (
	"context"

	"github.com/printbridge/backend/internal/domain/printing"
)

// UnsupportedBackend stands in on platforms without a native print backend.
// Every printing capability fails with UNSUPPORTED_PLATFORM.
type UnsupportedBackend struct {
	platform string
}

// NewUnsupportedBackend creates the placeholder backend for platform
func NewUnsupportedBackend(platform string) *UnsupportedBackend {
	return &UnsupportedBackend{platform: platform}
}

// Name identifies the backend
func (b *UnsupportedBackend) Name() string { return "unsupported" }

// Supported is always false
func (b *UnsupportedBackend) Supported() bool { return false }

// Platform returns the operating system the process runs on
func (b *UnsupportedBackend) Platform() string { return b.platform }

// MatchName compares names exactly
func (b *UnsupportedBackend) MatchName(printerName, query string) bool {
	return printerName == query
}

func (b *UnsupportedBackend) ListPrinters(context.Context) ([]printing.PrinterInfo, error) {
	return nil, printing.ErrUnsupportedPlatform
}

func (b *UnsupportedBackend) Submit(context.Context, printing.SubmitRequest) (*printing.SubmitResult, error) {
	return nil, printing.ErrUnsupportedPlatform
}

func (b *UnsupportedBackend) ListJobs(context.Context, string) ([]printing.JobInfo, error) {
	return nil, printing.ErrUnsupportedPlatform
}

func (b *UnsupportedBackend) GetJob(context.Context, string, int) (*printing.JobInfo, error) {
	return nil, printing.ErrUnsupportedPlatform
}

func (b *UnsupportedBackend) ControlJob(context.Context, string, int, printing.JobAction) (*printing.JobInfo, error) {
	return nil, printing.ErrUnsupportedPlatform
}

var _ printing.PrintBackend = (*UnsupportedBackend)(nil)
