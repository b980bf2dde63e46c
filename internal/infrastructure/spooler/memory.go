package spooler

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/printbridge/backend/internal/domain/printing"
	"go.uber.org/zap"
)

// MemoryPrinter seeds a printer in the simulated spooler
type MemoryPrinter struct {
	Name      string
	Status    printing.PrinterStatus
	IsDefault bool
	Port      string
	Driver    string
}

// MemoryBackend is a simulated spooler for development and tests. It follows
// the native queue semantics: jobs leave the queue when they complete or are
// removed, and control of a job that left the queue fails with JOB_NOT_FOUND.
type MemoryBackend struct {
	mu       sync.Mutex
	printers []printing.PrinterInfo
	queues   map[string][]printing.JobInfo
	nextID   int
	readOnly bool
	owner    string
	logger   *zap.Logger
}

// NewMemoryBackend creates a simulated spooler holding the given printers
func NewMemoryBackend(printers []MemoryPrinter, logger *zap.Logger) *MemoryBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &MemoryBackend{
		queues: make(map[string][]printing.JobInfo),
		nextID: 1,
		owner:  "printbridge",
		logger: logger.Named("memory"),
	}
	for _, p := range printers {
		b.AddPrinter(p)
	}
	return b
}

// AddPrinter installs a printer
func (b *MemoryBackend) AddPrinter(p MemoryPrinter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p.Status == "" {
		p.Status = printing.PrinterStatusIdle
	}
	b.printers = append(b.printers, printing.PrinterInfo{
		Name:      p.Name,
		Status:    p.Status,
		IsDefault: p.IsDefault,
		Port:      p.Port,
		Driver:    p.Driver,
	})
}

// SetPrinterStatus changes the state of an installed printer
func (b *MemoryBackend) SetPrinterStatus(name string, status printing.PrinterStatus) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.printers {
		if b.printers[i].Name == name {
			b.printers[i].Status = status
			return true
		}
	}
	return false
}

// SetReadOnly makes every job-control call fail with PERMISSION_DENIED, the way
// the native spooler treats a caller without administer rights.
func (b *MemoryBackend) SetReadOnly(readOnly bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.readOnly = readOnly
}

// Advance moves a job to status the way the native scheduler would. Jobs
// reaching a terminal status leave the queue.
func (b *MemoryBackend) Advance(printer string, jobID int, status printing.JobStatus) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	queue := b.queues[printer]
	for i := range queue {
		if queue[i].JobID != jobID {
			continue
		}
		if !queue[i].Status.CanTransitionTo(status) {
			return printing.NewDeviceError(nil, "job %d cannot move from %s to %s", jobID, queue[i].Status, status)
		}
		if status.IsTerminal() {
			b.queues[printer] = append(queue[:i:i], queue[i+1:]...)
			return nil
		}
		queue[i].Status = status
		return nil
	}
	return printing.NewJobNotFoundError(printer, jobID)
}

// Name identifies the backend
func (b *MemoryBackend) Name() string { return "memory" }

// Supported is true; the simulated spooler implements every capability
func (b *MemoryBackend) Supported() bool { return true }

// MatchName compares names exactly
func (b *MemoryBackend) MatchName(printerName, query string) bool {
	return printing.ExactNameMatcher(printerName, query)
}

// ListPrinters returns a snapshot of the installed printers
func (b *MemoryBackend) ListPrinters(ctx context.Context) ([]printing.PrinterInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]printing.PrinterInfo, len(b.printers))
	copy(out, b.printers)
	for i := range out {
		out[i].JobCount = len(b.queues[out[i].Name])
	}
	return out, nil
}

func (b *MemoryBackend) printer(name string) (printing.PrinterInfo, bool) {
	for _, p := range b.printers {
		if p.Name == name {
			return p, true
		}
	}
	return printing.PrinterInfo{}, false
}

// Submit appends a job to the printer queue
func (b *MemoryBackend) Submit(ctx context.Context, req printing.SubmitRequest) (*printing.SubmitResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.printer(req.Printer)
	if !ok {
		return nil, printing.NewDeviceError(nil, "printer %q does not exist", req.Printer)
	}
	if !p.Status.AcceptsJobs() {
		return nil, printing.NewDeviceError(nil, "printer %q is %s", req.Printer, p.Status)
	}

	title := req.Title
	if title == "" {
		title = filepath.Base(req.Path)
	}
	now := time.Now()
	job := printing.JobInfo{
		JobID:         b.nextID,
		PrinterName:   p.Name,
		DocumentName:  title,
		Status:        printing.JobStatusQueued,
		Owner:         b.owner,
		SubmittedTime: now,
		Position:      len(b.queues[p.Name]) + 1,
	}
	b.nextID++
	b.queues[p.Name] = append(b.queues[p.Name], job)

	b.logger.Debug("job queued", zap.String("printer", p.Name), zap.Int("job_id", job.JobID))
	return &printing.SubmitResult{
		Printer:  p.Name,
		JobID:    job.JobID,
		Accepted: now,
	}, nil
}

// ListJobs returns a snapshot of one printer queue
func (b *MemoryBackend) ListJobs(ctx context.Context, printer string) ([]printing.JobInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.printer(printer); !ok {
		return nil, printing.NewDeviceError(nil, "printer %q does not exist", printer)
	}
	out := make([]printing.JobInfo, len(b.queues[printer]))
	copy(out, b.queues[printer])
	return out, nil
}

// GetJob returns one queued job
func (b *MemoryBackend) GetJob(ctx context.Context, printer string, jobID int) (*printing.JobInfo, error) {
	jobs, err := b.ListJobs(ctx, printer)
	if err != nil {
		return nil, err
	}
	return findJob(jobs, printer, jobID)
}

// ControlJob applies a job-control primitive
func (b *MemoryBackend) ControlJob(ctx context.Context, printer string, jobID int, action printing.JobAction) (*printing.JobInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !action.IsValid() {
		return nil, printing.NewDeviceError(nil, "unsupported job action %q", action)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.printer(printer); !ok {
		return nil, printing.NewDeviceError(nil, "printer %q does not exist", printer)
	}
	if b.readOnly {
		return nil, printing.NewPermissionError(nil, "not allowed to %s jobs on printer %q", action, printer)
	}

	queue := b.queues[printer]
	for i := range queue {
		if queue[i].JobID != jobID {
			continue
		}
		next, ok := action.Apply(queue[i].Status)
		if !ok {
			break
		}
		snapshot := queue[i]
		snapshot.Status = next
		if next == printing.JobStatusDeleted {
			b.queues[printer] = append(queue[:i:i], queue[i+1:]...)
		} else {
			queue[i].Status = next
		}
		return &snapshot, nil
	}
	return nil, printing.NewJobNotFoundError(printer, jobID)
}

var _ printing.PrintBackend = (*MemoryBackend)(nil)
