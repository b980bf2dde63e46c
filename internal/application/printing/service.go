package printing

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/printbridge/backend/internal/domain/printing"
	"github.com/printbridge/backend/internal/domain/shared"
	"github.com/printbridge/backend/internal/infrastructure/document"
	"github.com/printbridge/backend/internal/infrastructure/render"
	"github.com/printbridge/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const serviceName = "print_service"

// DefaultMaxParallel bounds the fan-out of ListAllJobs
const DefaultMaxParallel = 4

// TempFileStore is the scratch space used for uploads and rendered documents
type TempFileStore interface {
	Dir() string
	Create(ctx context.Context, payload, filename string) (string, error)
	Store(ctx context.Context, data []byte, filename string) (string, error)
	Remove(ctx context.Context, filename string) error
	RemovePath(ctx context.Context, path string) error
	Sweep(ctx context.Context, olderThan time.Duration) (int, error)
}

// DocumentInspector validates a document before it reaches the spooler
type DocumentInspector interface {
	Inspect(ctx context.Context, path string) (*document.Info, error)
}

// PrintService exposes the native print subsystem as typed use cases
type PrintService struct {
	backend     printing.PrintBackend
	files       TempFileStore
	inspector   DocumentInspector
	renderer    render.Renderer
	metrics     *telemetry.SpoolerMetrics
	maxParallel int
	logger      *zap.Logger
}

// Option configures optional PrintService collaborators
type Option func(*PrintService)

// WithRenderer enables PrintHTML
func WithRenderer(r render.Renderer) Option {
	return func(s *PrintService) { s.renderer = r }
}

// WithMetrics records spooler metrics
func WithMetrics(m *telemetry.SpoolerMetrics) Option {
	return func(s *PrintService) { s.metrics = m }
}

// WithMaxParallel bounds concurrent queue queries in ListAllJobs
func WithMaxParallel(n int) Option {
	return func(s *PrintService) {
		if n > 0 {
			s.maxParallel = n
		}
	}
}

// NewPrintService creates a new PrintService
func NewPrintService(
	backend printing.PrintBackend,
	files TempFileStore,
	inspector DocumentInspector,
	logger *zap.Logger,
	opts ...Option,
) *PrintService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &PrintService{
		backend:     backend,
		files:       files,
		inspector:   inspector,
		renderer:    render.DisabledRenderer{},
		maxParallel: DefaultMaxParallel,
		logger:      logger.Named("print"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backend returns the name of the active print backend
func (s *PrintService) Backend() string {
	return s.backend.Name()
}

// Supported reports whether the host has a native print backend
func (s *PrintService) Supported() bool {
	return s.backend.Supported()
}

func (s *PrintService) requireSupported() error {
	if !s.backend.Supported() {
		return printing.ErrUnsupportedPlatform
	}
	return nil
}

// observe finishes the span and records the backend call
func (s *PrintService) observe(ctx context.Context, op string, start time.Time, err error) {
	s.metrics.RecordOperation(ctx, op, time.Since(start), err)
	if err != nil {
		telemetry.Fail(trace.SpanFromContext(ctx), err)
	}
}

// =============================================================================
// Temp File Operations
// =============================================================================

// CreateTempFile stores a base64 document in scratch space
func (s *PrintService) CreateTempFile(ctx context.Context, req CreateTempFileRequest) (*TempFileResponse, error) {
	path, err := s.files.Create(ctx, req.BufferData, req.Filename)
	if err != nil {
		return nil, err
	}
	return &TempFileResponse{Path: path}, nil
}

// RemoveTempFile deletes a scratch file by name
func (s *PrintService) RemoveTempFile(ctx context.Context, filename string) error {
	return s.files.Remove(ctx, filename)
}

// SweepTempFiles deletes scratch files older than olderThan
func (s *PrintService) SweepTempFiles(ctx context.Context, olderThan time.Duration) (int, error) {
	removed, err := s.files.Sweep(ctx, olderThan)
	s.metrics.RecordSweep(ctx, removed)
	if removed > 0 {
		s.logger.Info("stale temp files removed", zap.Int("count", removed))
	}
	return removed, err
}

// =============================================================================
// Printer Directory
// =============================================================================

// ListPrinters returns every installed printer. The result is never nil.
func (s *PrintService) ListPrinters(ctx context.Context) (printers []printing.PrinterInfo, err error) {
	ctx, span := telemetry.StartSpan(ctx, serviceName+".list_printers",
		telemetry.AttrBackend.String(s.backend.Name()))
	defer span.End()
	defer func(start time.Time) { s.observe(ctx, "list_printers", start, err) }(time.Now())

	printers, err = s.backend.ListPrinters(ctx)
	if err != nil {
		return nil, err
	}
	if printers == nil {
		printers = []printing.PrinterInfo{}
	}
	span.SetAttributes(telemetry.AttrCount.Int(len(printers)))
	s.metrics.RecordPrinters(ctx, len(printers))
	return printers, nil
}

// GetPrintersByName returns the printers whose name matches name under the
// backend's comparison rules
func (s *PrintService) GetPrintersByName(ctx context.Context, name string) ([]printing.PrinterInfo, error) {
	printers, err := s.ListPrinters(ctx)
	if err != nil {
		return nil, err
	}
	return printing.FilterByName(printers, unquote(name), s.backend.MatchName), nil
}

// resolvePrinter finds the destination of a print request. An empty name
// selects the default printer; a printer reference is accepted in place of a
// name.
func (s *PrintService) resolvePrinter(ctx context.Context, name string) (printing.PrinterInfo, error) {
	printers, err := s.ListPrinters(ctx)
	if err != nil {
		return printing.PrinterInfo{}, err
	}

	if name == "" {
		p, ok := printing.DefaultPrinter(printers)
		if !ok {
			return printing.PrinterInfo{}, printing.NewDeviceError(nil, "no default printer is configured")
		}
		return p, nil
	}

	matches := printing.FilterByName(printers, name, s.backend.MatchName)
	if len(matches) == 0 {
		if decoded, ok := printing.DecodePrinterRef(name); ok {
			matches = printing.FilterByName(printers, decoded, s.backend.MatchName)
		}
	}
	if len(matches) == 0 {
		return printing.PrinterInfo{}, printing.NewDeviceError(nil, "printer %q does not exist", name)
	}
	return matches[0], nil
}

// =============================================================================
// Job Submission
// =============================================================================

// PrintPDF submits a PDF to a printer and blocks until the spooler accepts it.
// The source file is removed only after a successful submission.
func (s *PrintService) PrintPDF(ctx context.Context, opts printing.PrintOptions) (result *printing.SubmitResult, err error) {
	if err := s.requireSupported(); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, serviceName+".print_pdf",
		telemetry.AttrPath.String(opts.Path))
	defer span.End()

	settings, err := printing.ParsePrintSettings(opts.PrintSetting)
	if err != nil {
		telemetry.Fail(span, err)
		return nil, err
	}

	info, err := s.inspector.Inspect(ctx, opts.Path)
	if err != nil {
		telemetry.Fail(span, err)
		return nil, err
	}
	if maxPage := settings.Range.MaxPage(); maxPage > info.Pages {
		err = printing.NewDocumentError(nil, "page range %s exceeds the %d pages of %s",
			settings.Range, info.Pages, filepath.Base(opts.Path))
		telemetry.Fail(span, err)
		return nil, err
	}

	printer, err := s.resolvePrinter(ctx, opts.PrinterName())
	if err != nil {
		telemetry.Fail(span, err)
		return nil, err
	}
	if !printer.Status.AcceptsJobs() {
		err = printing.NewDeviceError(nil, "printer %q is %s", printer.Name, printer.Status)
		telemetry.Fail(span, err)
		return nil, err
	}
	span.SetAttributes(
		telemetry.AttrPrinter.String(printer.Name),
		telemetry.AttrPages.Int(info.Pages),
	)

	start := time.Now()
	result, err = s.backend.Submit(ctx, printing.SubmitRequest{
		Printer:  printer.Name,
		Path:     opts.Path,
		Title:    filepath.Base(opts.Path),
		Settings: settings,
	})
	s.observe(ctx, "submit", start, err)
	if err != nil {
		s.logger.Warn("print submission failed",
			zap.String("printer", printer.Name),
			zap.String("path", opts.Path),
			zap.Error(err))
		return nil, err
	}

	result.ID = opts.ID
	if result.Pages == 0 {
		result.Pages = info.Pages
	}
	s.metrics.RecordSubmitted(ctx, info.Pages)
	span.SetAttributes(telemetry.AttrJobID.Int(result.JobID))

	if opts.RemoveAfterPrint {
		if rmErr := s.files.RemovePath(ctx, opts.Path); rmErr != nil {
			s.logger.Warn("source file not removed after print",
				zap.String("path", opts.Path),
				zap.Error(rmErr))
		} else {
			result.Removed = true
			span.AddEvent("source_removed")
		}
	}

	s.logger.Info("print job submitted",
		zap.String("id", opts.ID),
		zap.String("printer", result.Printer),
		zap.Int("job_id", result.JobID),
		zap.Int("pages", result.Pages),
		zap.Int("copies", settings.Copies))
	return result, nil
}

// PrintHTML renders HTML to a scratch PDF and prints it. The rendered file
// is always removed afterwards.
func (s *PrintService) PrintHTML(ctx context.Context, req PrintHTMLRequest) (*printing.SubmitResult, error) {
	if err := s.requireSupported(); err != nil {
		return nil, err
	}
	settings, err := printing.ParsePrintSettings(req.PrinterSetting)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, serviceName+".print_html")
	defer span.End()

	start := time.Now()
	rendered, err := s.renderer.Render(ctx, &render.Request{
		HTML:        req.HTML,
		PaperSize:   settings.Paper,
		Orientation: settings.Orientation,
		Margins:     render.DefaultMargins(),
		Title:       req.Title,
		HeaderHTML:  req.HeaderHTML,
		FooterHTML:  req.FooterHTML,
	})
	s.metrics.RecordRender(ctx, time.Since(start), err)
	if err != nil {
		telemetry.Fail(span, err)
		return nil, renderFailure(err)
	}

	path, err := s.files.Store(ctx, rendered.PDF, "render-"+uuid.NewString()+".pdf")
	if err != nil {
		return nil, err
	}

	result, err := s.PrintPDF(ctx, printing.PrintOptions{
		ID:               req.ID,
		Path:             path,
		PrintSetting:     req.PrinterSetting,
		RemoveAfterPrint: true,
	})
	if err != nil {
		if rmErr := s.files.RemovePath(ctx, path); rmErr != nil {
			s.logger.Warn("rendered file not removed", zap.String("path", path), zap.Error(rmErr))
		}
		return nil, err
	}
	return result, nil
}

// renderFailure maps renderer errors onto domain error kinds
func renderFailure(err error) error {
	var rerr *render.Error
	if !errors.As(err, &rerr) {
		return printing.NewDocumentError(err, "HTML rendering failed")
	}
	switch rerr.Code {
	case render.ErrCodeInvalidHTML, render.ErrCodeInvalidPaperSize:
		return shared.WrapDomainError(shared.ErrInvalidInput.Code, rerr.Message, err)
	case render.ErrCodeDisabled:
		return shared.WrapDomainError(shared.ErrInvalidState.Code, "HTML printing is disabled", err)
	default:
		return printing.NewDocumentError(err, "HTML rendering failed")
	}
}

// PaperSizes lists the paper sizes accepted in print settings
func (s *PrintService) PaperSizes() []PaperSizeResponse {
	sizes := printing.AllPaperSizes()
	out := make([]PaperSizeResponse, len(sizes))
	for i, p := range sizes {
		w, h := p.Dimensions()
		out[i] = PaperSizeResponse{Code: string(p), Width: w, Height: h}
	}
	return out
}

// =============================================================================
// Job Queue
// =============================================================================

// ListJobs returns the queue of one printer
func (s *PrintService) ListJobs(ctx context.Context, printer string) (jobs []printing.JobInfo, err error) {
	printer, err = requirePrinter(printer)
	if err != nil {
		return nil, err
	}
	ctx, span := telemetry.StartSpan(ctx, serviceName+".list_jobs",
		telemetry.AttrPrinter.String(printer))
	defer span.End()
	defer func(start time.Time) { s.observe(ctx, "list_jobs", start, err) }(time.Now())

	jobs, err = s.backend.ListJobs(ctx, printer)
	if err != nil {
		return nil, err
	}
	if jobs == nil {
		jobs = []printing.JobInfo{}
	}
	return jobs, nil
}

// ListAllJobs queries the queue of every printer concurrently. Results keep
// the printer order of ListPrinters.
func (s *PrintService) ListAllJobs(ctx context.Context) ([]printing.JobInfo, error) {
	printers, err := s.ListPrinters(ctx)
	if err != nil {
		return nil, err
	}

	queues := make([][]printing.JobInfo, len(printers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxParallel)
	for i, p := range printers {
		g.Go(func() error {
			jobs, err := s.ListJobs(gctx, p.Name)
			if err != nil {
				return fmt.Errorf("list jobs of %s: %w", p.Name, err)
			}
			queues[i] = jobs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := make([]printing.JobInfo, 0)
	for _, q := range queues {
		all = append(all, q...)
	}
	return all, nil
}

// GetJob returns one queue entry
func (s *PrintService) GetJob(ctx context.Context, printer string, jobID int) (job *printing.JobInfo, err error) {
	printer, err = requirePrinter(printer)
	if err != nil {
		return nil, err
	}
	if err := requireJobID(jobID); err != nil {
		return nil, err
	}
	ctx, span := telemetry.StartSpan(ctx, serviceName+".get_job",
		telemetry.AttrPrinter.String(printer),
		telemetry.AttrJobID.Int(jobID))
	defer span.End()
	defer func(start time.Time) { s.observe(ctx, "get_job", start, err) }(time.Now())

	return s.backend.GetJob(ctx, printer, jobID)
}

// GetJobByRef returns the queue entry named by a job reference
func (s *PrintService) GetJobByRef(ctx context.Context, ref string) (*printing.JobInfo, error) {
	printer, jobID, ok := printing.DecodeJobRef(ref)
	if !ok {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Malformed job reference")
	}
	return s.GetJob(ctx, printer, jobID)
}

// ControlJob applies a job-control primitive and returns the job afterwards.
// A job that is no longer queued is JOB_NOT_FOUND.
func (s *PrintService) ControlJob(ctx context.Context, printer string, jobID int, action printing.JobAction) (job *printing.JobInfo, err error) {
	printer, err = requirePrinter(printer)
	if err != nil {
		return nil, err
	}
	if err := requireJobID(jobID); err != nil {
		return nil, err
	}
	if !action.IsValid() {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code,
			fmt.Sprintf("Unknown job action %q", action))
	}

	ctx, span := telemetry.StartSpan(ctx, serviceName+".control_job",
		telemetry.AttrPrinter.String(printer),
		telemetry.AttrJobID.Int(jobID),
		telemetry.AttrJobAction.String(string(action)))
	defer span.End()
	op := "control_job." + strings.ToLower(string(action))
	defer func(start time.Time) { s.observe(ctx, op, start, err) }(time.Now())

	job, err = s.backend.ControlJob(ctx, printer, jobID, action)
	if err != nil {
		s.logger.Warn("job control failed",
			zap.String("printer", printer),
			zap.Int("job_id", jobID),
			zap.String("action", string(action)),
			zap.Error(err))
		return nil, err
	}
	s.logger.Info("job control applied",
		zap.String("printer", printer),
		zap.Int("job_id", jobID),
		zap.String("action", string(action)),
		zap.String("status", string(job.Status)))
	return job, nil
}

// ControlAllJobs applies action to every job of every printer. Jobs that
// leave the queue before the action reaches them are reported as skipped;
// any other failure aborts the batch.
func (s *PrintService) ControlAllJobs(ctx context.Context, action printing.JobAction) (*BulkControlResult, error) {
	if !action.IsValid() {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code,
			fmt.Sprintf("Unknown job action %q", action))
	}
	jobs, err := s.ListAllJobs(ctx)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, serviceName+".control_all_jobs",
		telemetry.AttrJobAction.String(string(action)),
		telemetry.AttrCount.Int(len(jobs)))
	defer span.End()

	applied := make([]*printing.JobInfo, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxParallel)
	for i, j := range jobs {
		g.Go(func() error {
			job, err := s.ControlJob(gctx, j.PrinterName, j.JobID, action)
			switch {
			case errors.Is(err, printing.ErrJobNotFound):
				return nil
			case err != nil:
				return fmt.Errorf("%s job %d on %s: %w", strings.ToLower(string(action)), j.JobID, j.PrinterName, err)
			}
			applied[i] = job
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		telemetry.Fail(span, err)
		return nil, err
	}

	result := &BulkControlResult{Action: action, Applied: []printing.JobInfo{}, Skipped: []printing.JobInfo{}}
	for i, job := range applied {
		if job == nil {
			result.Skipped = append(result.Skipped, jobs[i])
			continue
		}
		result.Applied = append(result.Applied, *job)
	}
	s.logger.Info("bulk job control applied",
		zap.String("action", string(action)),
		zap.Int("applied", len(result.Applied)),
		zap.Int("skipped", len(result.Skipped)))
	return result, nil
}

// PauseJob holds a queued job
func (s *PrintService) PauseJob(ctx context.Context, printer string, jobID int) (*printing.JobInfo, error) {
	return s.ControlJob(ctx, printer, jobID, printing.JobActionPause)
}

// ResumeJob releases a held job
func (s *PrintService) ResumeJob(ctx context.Context, printer string, jobID int) (*printing.JobInfo, error) {
	return s.ControlJob(ctx, printer, jobID, printing.JobActionResume)
}

// RestartJob sends a job through the printer again from the first page
func (s *PrintService) RestartJob(ctx context.Context, printer string, jobID int) (*printing.JobInfo, error) {
	return s.ControlJob(ctx, printer, jobID, printing.JobActionRestart)
}

// RemoveJob cancels a job and takes it out of the queue
func (s *PrintService) RemoveJob(ctx context.Context, printer string, jobID int) (*printing.JobInfo, error) {
	return s.ControlJob(ctx, printer, jobID, printing.JobActionRemove)
}

// =============================================================================
// Helper Functions
// =============================================================================

func unquote(name string) string {
	return strings.Trim(strings.TrimSpace(name), `"`)
}

func requirePrinter(name string) (string, error) {
	name = unquote(name)
	if name == "" {
		return "", shared.NewDomainError(shared.ErrInvalidInput.Code, "Printer name is required")
	}
	return name, nil
}

func requireJobID(jobID int) error {
	if jobID <= 0 {
		return shared.NewDomainError(shared.ErrInvalidInput.Code, "Job id must be a positive integer")
	}
	return nil
}
