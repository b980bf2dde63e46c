// Package command maps the externally invokable command names onto the print
// service. Results leave this package as strings: JSON for data, "true" or
// "false" and paths for scratch files, and UnsupportedOS on hosts without a
// native print backend.
package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/invopop/jsonschema"
	"github.com/printbridge/backend/internal/application/printing"
	domain "github.com/printbridge/backend/internal/domain/printing"
	"github.com/printbridge/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// UnsupportedOS is returned by every native command on an unsupported host
const UnsupportedOS = "Unsupported OS"

// Command names
const (
	CreateTempFile    = "create_temp_file"
	RemoveTempFile    = "remove_temp_file"
	GetPrinters       = "get_printers"
	GetPrintersByName = "get_printers_by_name"
	PrintPDF          = "print_pdf"
	GetJobs           = "get_jobs"
	GetJobsByID       = "get_jobs_by_id"
	ResumeJob         = "resume_job"
	RestartJob        = "restart_job"
	PauseJob          = "pause_job"
	RemoveJob         = "remove_job"
)

// ErrUnknownCommand is returned by Invoke for names that are not registered
var ErrUnknownCommand = shared.NewDomainError(shared.ErrInvalidInput.Code, "Unknown command")

type handler func(ctx context.Context, args json.RawMessage) (string, error)

type command struct {
	native  bool
	args    any
	handler handler
}

// Descriptor documents one command
type Descriptor struct {
	Name   string             `json:"name"`
	Native bool               `json:"native"`
	Args   *jsonschema.Schema `json:"args"`
}

// Failure is the JSON body returned when a native command fails
type Failure struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Surface dispatches command names to the print service
type Surface struct {
	service   *printing.PrintService
	supported bool
	commands  map[string]command
	logger    *zap.Logger
}

// NewSurface creates the command surface over service
func NewSurface(service *printing.PrintService, logger *zap.Logger) *Surface {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Surface{
		service:   service,
		supported: service.Supported(),
		logger:    logger.Named("command"),
	}
	s.commands = map[string]command{
		CreateTempFile:    {args: CreateTempFileArgs{}, handler: s.createTempFile},
		RemoveTempFile:    {args: RemoveTempFileArgs{}, handler: s.removeTempFile},
		GetPrinters:       {native: true, args: NoArgs{}, handler: s.getPrinters},
		GetPrintersByName: {native: true, args: PrinterArgs{}, handler: s.getPrintersByName},
		PrintPDF:          {native: true, args: PrintPDFArgs{}, handler: s.printPDF},
		GetJobs:           {native: true, args: PrinterArgs{}, handler: s.getJobs},
		GetJobsByID:       {native: true, args: JobArgs{}, handler: s.getJob},
		ResumeJob:         {native: true, args: JobArgs{}, handler: s.control(domain.JobActionResume)},
		RestartJob:        {native: true, args: JobArgs{}, handler: s.control(domain.JobActionRestart)},
		PauseJob:          {native: true, args: JobArgs{}, handler: s.control(domain.JobActionPause)},
		RemoveJob:         {native: true, args: JobArgs{}, handler: s.control(domain.JobActionRemove)},
	}
	return s
}

// Invoke runs the named command. The error is non-nil only for unknown
// commands and undecodable arguments; operation failures are part of the
// returned string.
func (s *Surface) Invoke(ctx context.Context, name string, args json.RawMessage) (string, error) {
	cmd, ok := s.commands[name]
	if !ok {
		return "", shared.NewDomainError(ErrUnknownCommand.Code, fmt.Sprintf("Unknown command %q", name))
	}
	if cmd.native && !s.supported {
		return UnsupportedOS, nil
	}
	out, err := cmd.handler(ctx, args)
	if err != nil {
		s.logger.Debug("command rejected", zap.String("command", name), zap.Error(err))
		return "", err
	}
	return out, nil
}

// Commands lists every command with the JSON Schema of its arguments
func (s *Surface) Commands() []Descriptor {
	reflector := jsonschema.Reflector{
		ExpandedStruct:            true,
		DoNotReference:            true,
		AllowAdditionalProperties: true,
	}
	out := make([]Descriptor, 0, len(s.commands))
	for name, cmd := range s.commands {
		out = append(out, Descriptor{
			Name:   name,
			Native: cmd.native,
			Args:   reflector.Reflect(cmd.args),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// =============================================================================
// Temp files
// =============================================================================

func (s *Surface) createTempFile(ctx context.Context, raw json.RawMessage) (string, error) {
	var args CreateTempFileArgs
	if err := decodeArgs(raw, &args); err != nil {
		s.logger.Warn("create_temp_file arguments rejected", zap.Error(err))
		return "", nil
	}
	resp, err := s.service.CreateTempFile(ctx, printing.CreateTempFileRequest{
		BufferData: args.BufferData,
		Filename:   args.Filename,
	})
	if err != nil {
		s.logger.Warn("create_temp_file failed", zap.String("filename", args.Filename), zap.Error(err))
		return "", nil
	}
	return resp.Path, nil
}

func (s *Surface) removeTempFile(ctx context.Context, raw json.RawMessage) (string, error) {
	var args RemoveTempFileArgs
	if err := decodeArgs(raw, &args); err != nil {
		s.logger.Debug("remove_temp_file arguments rejected", zap.Error(err))
		return "false", nil
	}
	if err := s.service.RemoveTempFile(ctx, args.Filename); err != nil {
		s.logger.Debug("remove_temp_file failed", zap.String("filename", args.Filename), zap.Error(err))
		return "false", nil
	}
	return "true", nil
}

// =============================================================================
// Native commands
// =============================================================================

func (s *Surface) getPrinters(ctx context.Context, _ json.RawMessage) (string, error) {
	printers, err := s.service.ListPrinters(ctx)
	if err != nil {
		return s.failure(err), nil
	}
	return s.encode(printing.ToPrinterResponses(printers)), nil
}

func (s *Surface) getPrintersByName(ctx context.Context, raw json.RawMessage) (string, error) {
	var args PrinterArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	printers, err := s.service.GetPrintersByName(ctx, args.PrinterName)
	if err != nil {
		return s.failure(err), nil
	}
	return s.encode(printing.ToPrinterResponses(printers)), nil
}

func (s *Surface) printPDF(ctx context.Context, raw json.RawMessage) (string, error) {
	var args PrintPDFArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	result, err := s.service.PrintPDF(ctx, domain.PrintOptions{
		ID:               args.ID,
		Path:             args.Path,
		PrintSetting:     args.PrinterSetting,
		RemoveAfterPrint: bool(args.RemoveAfterPrint),
	})
	if err != nil {
		return s.failure(err), nil
	}
	return s.encode(printing.ToSubmitResponse(result)), nil
}

func (s *Surface) getJobs(ctx context.Context, raw json.RawMessage) (string, error) {
	var args PrinterArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	jobs, err := s.service.ListJobs(ctx, args.PrinterName)
	if err != nil {
		return s.failure(err), nil
	}
	return s.encode(printing.ToJobResponses(jobs)), nil
}

func (s *Surface) getJob(ctx context.Context, raw json.RawMessage) (string, error) {
	var args JobArgs
	if err := decodeArgs(raw, &args); err != nil {
		return "", err
	}
	job, err := s.service.GetJob(ctx, args.PrinterName, int(args.JobID))
	if err != nil {
		return s.failure(err), nil
	}
	return s.encode(printing.ToJobResponse(job)), nil
}

func (s *Surface) control(action domain.JobAction) handler {
	return func(ctx context.Context, raw json.RawMessage) (string, error) {
		var args JobArgs
		if err := decodeArgs(raw, &args); err != nil {
			return "", err
		}
		job, err := s.service.ControlJob(ctx, args.PrinterName, int(args.JobID), action)
		if err != nil {
			return s.failure(err), nil
		}
		return s.encode(printing.ToJobResponse(job)), nil
	}
}

// =============================================================================
// Encoding
// =============================================================================

func decodeArgs(raw json.RawMessage, v any) error {
	if err := decode(raw, v); err != nil {
		return shared.WrapDomainError(shared.ErrInvalidInput.Code, "Invalid command arguments", err)
	}
	return nil
}

func (s *Surface) encode(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("command result not encodable", zap.Error(err))
		return s.failure(err)
	}
	return string(data)
}

// failure renders err as a Failure object
func (s *Surface) failure(err error) string {
	f := Failure{Code: "INTERNAL_ERROR", Message: "An internal error occurred"}
	var de *shared.DomainError
	if errors.As(err, &de) {
		f.Code = de.Code
		f.Message = de.Error()
	} else if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		f.Code = "CANCELLED"
		f.Message = err.Error()
	}
	data, _ := json.Marshal(f)
	return string(data)
}
