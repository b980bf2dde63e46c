package spooler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/printbridge/backend/internal/domain/printing"
	"go.uber.org/zap"
)

// WindowsConfig contains the tools used by the Windows backend
type WindowsConfig struct {
	PowerShellPath string
	// SumatraPath is the SumatraPDF executable used to render PDFs to a printer
	SumatraPath string
	Timeout     time.Duration
}

// WindowsBackend drives the Windows print spooler through the PrintManagement
// PowerShell cmdlets and prints PDFs with SumatraPDF.
type WindowsBackend struct {
	config WindowsConfig
	runner CommandRunner
	logger *zap.Logger
}

// NewWindowsBackend creates a Windows backend
func NewWindowsBackend(config WindowsConfig, runner CommandRunner, logger *zap.Logger) *WindowsBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	config.PowerShellPath = orDefault(config.PowerShellPath, "powershell.exe")
	config.SumatraPath = orDefault(config.SumatraPath, "SumatraPDF.exe")
	return &WindowsBackend{
		config: config,
		runner: runner,
		logger: logger.Named("windows"),
	}
}

// Name identifies the backend
func (b *WindowsBackend) Name() string { return "windows" }

// Supported is always true for Windows
func (b *WindowsBackend) Supported() bool { return true }

// MatchName compares names case-insensitively, as the spooler does
func (b *WindowsBackend) MatchName(printerName, query string) bool {
	return foldedNameMatch(printerName, query)
}

const psPreamble = "$ErrorActionPreference='Stop';" +
	"[Console]::OutputEncoding=[System.Text.Encoding]::UTF8;"

// psQuote renders s as a single-quoted PowerShell literal
func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (b *WindowsBackend) powershell(ctx context.Context, script string) (*CommandResult, error) {
	return b.runner.Run(ctx, CommandRequest{
		Command: b.config.PowerShellPath,
		Args:    []string{"-NoProfile", "-NonInteractive", "-ExecutionPolicy", "Bypass", "-Command", psPreamble + script},
		Timeout: b.config.Timeout,
	})
}

type psPrinter struct {
	Name           string `json:"Name"`
	DriverName     string `json:"DriverName"`
	PortName       string `json:"PortName"`
	ShareName      string `json:"ShareName"`
	ComputerName   string `json:"ComputerName"`
	PrintProcessor string `json:"PrintProcessor"`
	Location       string `json:"Location"`
	Comment        string `json:"Comment"`
	Type           string `json:"Type"`
	Shared         bool   `json:"Shared"`
	Priority       int    `json:"Priority"`
	JobCount       int    `json:"JobCount"`
	PrinterStatus  int    `json:"PrinterStatus"`
	IsDefault      bool   `json:"IsDefault"`
}

const listPrintersScript = `$d=(Get-CimInstance -ClassName Win32_Printer -Filter 'Default=TRUE').Name;` +
	`Get-Printer | Select-Object Name,DriverName,PortName,ShareName,ComputerName,PrintProcessor,Location,Comment,Shared,Priority,JobCount,` +
	`@{n='Type';e={[string]$_.Type}},@{n='PrinterStatus';e={[int]$_.PrinterStatus}},@{n='IsDefault';e={$_.Name -eq $d}}` +
	` | ConvertTo-Json -Compress`

// ListPrinters enumerates installed printers with Get-Printer
func (b *WindowsBackend) ListPrinters(ctx context.Context) ([]printing.PrinterInfo, error) {
	res, err := b.powershell(ctx, listPrintersScript)
	if err != nil {
		return nil, runFailure("Get-Printer", "", err)
	}
	if res.Failed() {
		return nil, classifyFailure("Get-Printer", res, "", 0)
	}

	var raw []psPrinter
	if err := decodePSList(res.Stdout, &raw); err != nil {
		return nil, printing.NewDeviceError(err, "cannot decode printer list")
	}

	printers := make([]printing.PrinterInfo, 0, len(raw))
	for _, p := range raw {
		printers = append(printers, printing.PrinterInfo{
			Name:           p.Name,
			Status:         windowsPrinterStatus(p.PrinterStatus),
			IsDefault:      p.IsDefault,
			Port:           p.PortName,
			Driver:         p.DriverName,
			Description:    p.Comment,
			Location:       p.Location,
			JobCount:       p.JobCount,
			Shared:         p.Shared,
			ShareName:      p.ShareName,
			ComputerName:   p.ComputerName,
			PrintProcessor: p.PrintProcessor,
			Type:           p.Type,
			Priority:       p.Priority,
		})
	}
	return printers, nil
}

type psJob struct {
	ID            int    `json:"Id"`
	DocumentName  string `json:"DocumentName"`
	UserName      string `json:"UserName"`
	ComputerName  string `json:"ComputerName"`
	Datatype      string `json:"Datatype"`
	PrinterName   string `json:"PrinterName"`
	PagesPrinted  int    `json:"PagesPrinted"`
	TotalPages    int    `json:"TotalPages"`
	Size          int64  `json:"Size"`
	Priority      int    `json:"Priority"`
	Position      int    `json:"Position"`
	JobStatus     int    `json:"JobStatus"`
	SubmittedTime psTime `json:"SubmittedTime"`
}

func listJobsScript(printer string) string {
	return `Get-PrintJob -PrinterName ` + psQuote(printer) +
		` | Select-Object Id,DocumentName,UserName,ComputerName,Datatype,PrinterName,PagesPrinted,TotalPages,Size,Priority,Position,` +
		`@{n='JobStatus';e={[int]$_.JobStatus}},SubmittedTime | ConvertTo-Json -Compress`
}

// ListJobs reads a printer queue with Get-PrintJob
func (b *WindowsBackend) ListJobs(ctx context.Context, printer string) ([]printing.JobInfo, error) {
	res, err := b.powershell(ctx, listJobsScript(printer))
	if err != nil {
		return nil, runFailure("Get-PrintJob", printer, err)
	}
	if res.Failed() {
		return nil, classifyFailure("Get-PrintJob", res, printer, 0)
	}

	var raw []psJob
	if err := decodePSList(res.Stdout, &raw); err != nil {
		return nil, printing.NewDeviceError(err, "cannot decode job list of printer %q", printer)
	}

	jobs := make([]printing.JobInfo, 0, len(raw))
	for _, j := range raw {
		name := j.PrinterName
		if name == "" {
			name = printer
		}
		jobs = append(jobs, printing.JobInfo{
			JobID:         j.ID,
			PrinterName:   name,
			DocumentName:  j.DocumentName,
			Status:        WindowsJobStatus(j.JobStatus),
			Owner:         j.UserName,
			SubmittedTime: time.Time(j.SubmittedTime),
			StatusCode:    j.JobStatus,
			StatusText:    DescribeWindowsJobStatus(j.JobStatus),
			PagesPrinted:  j.PagesPrinted,
			TotalPages:    j.TotalPages,
			Size:          j.Size,
			Priority:      j.Priority,
			Position:      j.Position,
			DataType:      j.Datatype,
			ComputerName:  j.ComputerName,
		})
	}
	sortJobs(jobs)
	return jobs, nil
}

// GetJob finds one job in the printer queue
func (b *WindowsBackend) GetJob(ctx context.Context, printer string, jobID int) (*printing.JobInfo, error) {
	jobs, err := b.ListJobs(ctx, printer)
	if err != nil {
		return nil, err
	}
	return findJob(jobs, printer, jobID)
}

var jobCmdlets = map[printing.JobAction]string{
	printing.JobActionPause:   "Suspend-PrintJob",
	printing.JobActionResume:  "Resume-PrintJob",
	printing.JobActionRestart: "Restart-PrintJob",
	printing.JobActionRemove:  "Remove-PrintJob",
}

// ControlJob runs the PrintManagement cmdlet for action
func (b *WindowsBackend) ControlJob(ctx context.Context, printer string, jobID int, action printing.JobAction) (*printing.JobInfo, error) {
	cmdlet, ok := jobCmdlets[action]
	if !ok {
		return nil, printing.NewDeviceError(nil, "unsupported job action %q", action)
	}
	job, err := b.GetJob(ctx, printer, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		return nil, printing.NewJobNotFoundError(printer, jobID)
	}

	script := fmt.Sprintf("%s -PrinterName %s -ID %d", cmdlet, psQuote(job.PrinterName), jobID)
	res, err := b.powershell(ctx, script)
	if err != nil {
		return nil, runFailure(cmdlet, printer, err)
	}
	if res.Failed() {
		return nil, classifyFailure(cmdlet, res, printer, jobID)
	}

	b.logger.Info("job control applied",
		zap.String("printer", printer),
		zap.Int("job_id", jobID),
		zap.String("cmdlet", cmdlet))

	return refreshAfterControl(ctx, b, *job, action), nil
}

// Submit prints a PDF through SumatraPDF, which exits once the document has
// been spooled. The spooler job id is recovered from the queue by document name.
func (b *WindowsBackend) Submit(ctx context.Context, req printing.SubmitRequest) (*printing.SubmitResult, error) {
	args := []string{
		"-print-to", req.Printer,
		"-print-settings", req.Settings.SumatraArg(),
		"-silent",
		"-exit-when-done",
		req.Path,
	}
	res, err := b.runner.Run(ctx, CommandRequest{
		Command: b.config.SumatraPath,
		Args:    args,
		Timeout: b.config.Timeout,
	})
	if err != nil {
		return nil, runFailure("SumatraPDF", req.Printer, err)
	}
	if res.Failed() {
		return nil, classifyFailure("SumatraPDF", res, req.Printer, 0)
	}

	result := &printing.SubmitResult{
		Printer:  req.Printer,
		Accepted: time.Now(),
	}
	if jobs, err := b.ListJobs(ctx, req.Printer); err == nil {
		doc := filepath.Base(req.Path)
		for _, j := range jobs {
			if j.DocumentName == doc && j.JobID > result.JobID {
				result.JobID = j.JobID
			}
		}
	}

	b.logger.Info("job submitted",
		zap.String("printer", req.Printer),
		zap.Int("job_id", result.JobID),
		zap.String("path", req.Path))
	return result, nil
}

// decodePSList decodes ConvertTo-Json output, which is an object for a single
// item, an array for several and empty for none.
func decodePSList[T any](out string, dst *[]T) error {
	data := bytes.TrimSpace([]byte(out))
	if len(data) == 0 {
		*dst = []T{}
		return nil
	}
	if data[0] == '[' {
		return json.Unmarshal(data, dst)
	}
	var one T
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*dst = []T{one}
	return nil
}

// psTime accepts both "/Date(ms)/" (Windows PowerShell 5.1) and ISO-8601 (PowerShell 7)
type psTime time.Time

var msDatePattern = regexp.MustCompile(`^/Date\((-?\d+)([+-]\d{4})?\)/$`)

func (t *psTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil || s == "" {
		*t = psTime{}
		return nil
	}
	if m := msDatePattern.FindStringSubmatch(s); m != nil {
		ms, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return err
		}
		*t = psTime(time.UnixMilli(ms))
		return nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("unrecognized time %q: %w", s, err)
	}
	*t = psTime(parsed)
	return nil
}

// Windows job status bit flags (JOB_STATUS_*)
const (
	winJobPaused           = 0x1
	winJobError            = 0x2
	winJobDeleting         = 0x4
	winJobSpooling         = 0x8
	winJobPrinting         = 0x10
	winJobOffline          = 0x20
	winJobPaperOut         = 0x40
	winJobPrinted          = 0x80
	winJobDeleted          = 0x100
	winJobBlocked          = 0x200
	winJobUserIntervention = 0x400
	winJobRestarted        = 0x800
	winJobCompleted        = 0x1000
	winJobRetained         = 0x2000
)

var windowsJobFlagNames = []struct {
	flag int
	name string
}{
	{winJobPaused, "Paused"},
	{winJobError, "Error"},
	{winJobDeleting, "Deleting"},
	{winJobSpooling, "Spooling"},
	{winJobPrinting, "Printing"},
	{winJobOffline, "Offline"},
	{winJobPaperOut, "PaperOut"},
	{winJobPrinted, "Printed"},
	{winJobDeleted, "Deleted"},
	{winJobBlocked, "Blocked"},
	{winJobUserIntervention, "UserIntervention"},
	{winJobRestarted, "Restarted"},
	{winJobCompleted, "Completed"},
	{winJobRetained, "Retained"},
}

// DescribeWindowsJobStatus renders the set flags, e.g. "Printing, Retained".
// Zero is "Normal".
func DescribeWindowsJobStatus(code int) string {
	if code == 0 {
		return "Normal"
	}
	var names []string
	for _, f := range windowsJobFlagNames {
		if code&f.flag != 0 {
			names = append(names, f.name)
		}
	}
	return strings.Join(names, ", ")
}

// WindowsJobStatus normalizes JOB_STATUS_* flags. When several flags are set
// the most significant condition for the caller wins.
func WindowsJobStatus(code int) printing.JobStatus {
	switch {
	case code&(winJobDeleted|winJobDeleting) != 0:
		return printing.JobStatusDeleted
	case code&(winJobError|winJobOffline|winJobPaperOut|winJobUserIntervention|winJobBlocked) != 0:
		return printing.JobStatusError
	case code&winJobPaused != 0:
		return printing.JobStatusPaused
	case code&(winJobPrinting|winJobSpooling) != 0:
		return printing.JobStatusPrinting
	case code&(winJobCompleted|winJobPrinted) != 0:
		return printing.JobStatusCompleted
	default:
		return printing.JobStatusQueued
	}
}

// windowsPrinterStatus normalizes the PrintManagement PrinterStatus enum
func windowsPrinterStatus(code int) printing.PrinterStatus {
	switch code {
	case 0, 14, 25: // Normal, Waiting, PowerSave
		return printing.PrinterStatusIdle
	case 1, 3: // Paused, PendingDeletion
		return printing.PrinterStatusPaused
	case 2, 4, 5, 7, 12, 19, 21, 22, 23: // Error, PaperJam, PaperOut, PaperProblem, OutputBinFull, NoToner, UserIntervention, OutOfMemory, DoorOpen
		return printing.PrinterStatusError
	case 8, 13: // Offline, NotAvailable
		return printing.PrinterStatusOffline
	case 9, 10, 11, 15, 16, 17: // IOActive, Busy, Printing, Processing, Initializing, WarmingUp
		return printing.PrinterStatusPrinting
	default:
		return printing.PrinterStatusUnknown
	}
}

var _ printing.PrintBackend = (*WindowsBackend)(nil)
