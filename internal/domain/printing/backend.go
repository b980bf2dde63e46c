package printing

import (
	"context"
	"time"
)

// SubmitRequest is a fully validated submission handed to a backend
type SubmitRequest struct {
	Printer  string
	Path     string
	Title    string
	Settings PrintSettings
}

// SubmitResult describes a submission accepted by the spooler
type SubmitResult struct {
	ID      string `json:"id"`
	Printer string `json:"printer"`

	// JobID is 0 when the native pipeline does not report one
	JobID    int       `json:"job_id"`
	Accepted time.Time `json:"accepted"`
	Pages    int       `json:"pages"`
	Removed  bool      `json:"removed"`
}

// PrintBackend is the capability interface over a native print subsystem.
// One implementation is selected per process at startup.
type PrintBackend interface {
	// Name identifies the implementation, e.g. "cups"
	Name() string
	// Supported is false for the placeholder used on platforms without a native backend
	Supported() bool
	// MatchName applies the directory service's name comparison rules
	MatchName(printerName, query string) bool

	ListPrinters(ctx context.Context) ([]PrinterInfo, error)
	// Submit blocks until the spooler has accepted the document
	Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error)
	ListJobs(ctx context.Context, printer string) ([]JobInfo, error)
	GetJob(ctx context.Context, printer string, jobID int) (*JobInfo, error)
	ControlJob(ctx context.Context, printer string, jobID int, action JobAction) (*JobInfo, error)
}
