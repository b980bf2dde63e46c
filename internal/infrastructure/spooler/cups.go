package spooler

import (
	"bufio"
	"context"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/printbridge/backend/internal/domain/printing"
	"go.uber.org/zap"
)

// CUPSConfig contains the paths of the CUPS command-line tools
type CUPSConfig struct {
	LPPath        string
	LPStatPath    string
	LPOptionsPath string
	LPQPath       string
	CancelPath    string
	// Timeout bounds each tool invocation
	Timeout time.Duration
}

// CUPSBackend drives the CUPS spooler through lp, lpstat, lpoptions, lpq and cancel.
// All tools run with LC_ALL=C so their output can be parsed.
type CUPSBackend struct {
	config CUPSConfig
	runner CommandRunner
	logger *zap.Logger
}

// NewCUPSBackend creates a CUPS backend. Missing tool paths default to the bare
// tool names, resolved through PATH.
func NewCUPSBackend(config CUPSConfig, runner CommandRunner, logger *zap.Logger) *CUPSBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	config.LPPath = orDefault(config.LPPath, "lp")
	config.LPStatPath = orDefault(config.LPStatPath, "lpstat")
	config.LPOptionsPath = orDefault(config.LPOptionsPath, "lpoptions")
	config.LPQPath = orDefault(config.LPQPath, "lpq")
	config.CancelPath = orDefault(config.CancelPath, "cancel")
	return &CUPSBackend{
		config: config,
		runner: runner,
		logger: logger.Named("cups"),
	}
}

// Name identifies the backend
func (b *CUPSBackend) Name() string { return "cups" }

// Supported is always true for CUPS
func (b *CUPSBackend) Supported() bool { return true }

// MatchName compares queue names case-insensitively, as cupsd does
func (b *CUPSBackend) MatchName(printerName, query string) bool {
	return foldedNameMatch(printerName, query)
}

func (b *CUPSBackend) run(ctx context.Context, command string, args ...string) (*CommandResult, error) {
	return b.runner.Run(ctx, CommandRequest{
		Command: command,
		Args:    args,
		Env:     []string{"LC_ALL=C", "LANG=C"},
		Timeout: b.config.Timeout,
	})
}

// ListPrinters enumerates the CUPS destinations
func (b *CUPSBackend) ListPrinters(ctx context.Context) ([]printing.PrinterInfo, error) {
	res, err := b.run(ctx, b.config.LPStatPath, "-p")
	if err != nil {
		return nil, runFailure("lpstat", "", err)
	}
	if res.Failed() {
		if noDestinations(res) {
			return []printing.PrinterInfo{}, nil
		}
		return nil, classifyFailure("lpstat", res, "", 0)
	}

	printers := parseLPStatPrinters(res.Stdout)
	if len(printers) == 0 {
		return printers, nil
	}

	defaultName := b.defaultDestination(ctx)
	devices := b.deviceURIs(ctx)
	counts := b.jobCounts(ctx)

	for i := range printers {
		p := &printers[i]
		p.IsDefault = p.Name == defaultName
		p.Port = devices[p.Name]
		p.JobCount = counts[p.Name]
		b.applyOptions(ctx, p)
	}
	return printers, nil
}

func noDestinations(res *CommandResult) bool {
	return strings.Contains(res.Stderr, "No destinations added") ||
		strings.Contains(res.Stdout, "No destinations added")
}

func (b *CUPSBackend) defaultDestination(ctx context.Context) string {
	res, err := b.run(ctx, b.config.LPStatPath, "-d")
	if err != nil || res.Failed() {
		return ""
	}
	return parseLPStatDefault(res.Stdout)
}

func (b *CUPSBackend) deviceURIs(ctx context.Context) map[string]string {
	res, err := b.run(ctx, b.config.LPStatPath, "-v")
	if err != nil || res.Failed() {
		b.logger.Warn("cannot read device URIs", zap.Error(err))
		return map[string]string{}
	}
	return parseLPStatDevices(res.Stdout)
}

func (b *CUPSBackend) jobCounts(ctx context.Context) map[string]int {
	counts := map[string]int{}
	res, err := b.run(ctx, b.config.LPStatPath, "-o")
	if err != nil || res.Failed() {
		return counts
	}
	for _, j := range parseLPStatJobs(res.Stdout) {
		counts[j.PrinterName]++
	}
	return counts
}

// applyOptions fills driver, description and sharing details from lpoptions
func (b *CUPSBackend) applyOptions(ctx context.Context, p *printing.PrinterInfo) {
	res, err := b.run(ctx, b.config.LPOptionsPath, "-p", p.Name)
	if err != nil || res.Failed() {
		b.logger.Warn("cannot read printer options", zap.String("printer", p.Name), zap.Error(err))
		return
	}
	opts := parseLPOptions(res.Stdout)
	p.Driver = opts["printer-make-and-model"]
	p.Description = opts["printer-info"]
	p.Location = opts["printer-location"]
	p.Shared = opts["printer-is-shared"] == "true"
	if p.Shared {
		p.ShareName = p.Name
	}
	p.Type = opts["printer-type"]
	if strings.Contains(opts["printer-state-reasons"], "offline") ||
		opts["printer-is-accepting-jobs"] == "false" {
		p.Status = printing.PrinterStatusOffline
	}
}

// Submit queues a document with lp and returns once cupsd has accepted it
func (b *CUPSBackend) Submit(ctx context.Context, req printing.SubmitRequest) (*printing.SubmitResult, error) {
	title := req.Title
	if title == "" {
		title = filepath.Base(req.Path)
	}
	args := []string{"-d", req.Printer, "-t", title}
	args = append(args, req.Settings.LPOptions()...)
	args = append(args, "--", req.Path)

	res, err := b.run(ctx, b.config.LPPath, args...)
	if err != nil {
		return nil, runFailure("lp", req.Printer, err)
	}
	if res.Failed() {
		return nil, classifyFailure("lp", res, req.Printer, 0)
	}

	_, jobID, ok := parseRequestID(res.Stdout)
	if !ok {
		b.logger.Warn("lp accepted the job without a request id", zap.String("stdout", res.Stdout))
	}

	b.logger.Info("job submitted",
		zap.String("printer", req.Printer),
		zap.Int("job_id", jobID),
		zap.String("path", req.Path))

	return &printing.SubmitResult{
		Printer:  req.Printer,
		JobID:    jobID,
		Accepted: time.Now(),
	}, nil
}

// ListJobs returns the not-completed jobs of one printer
func (b *CUPSBackend) ListJobs(ctx context.Context, printer string) ([]printing.JobInfo, error) {
	res, err := b.run(ctx, b.config.LPStatPath, "-l", "-o", printer)
	if err != nil {
		return nil, runFailure("lpstat", printer, err)
	}
	if res.Failed() {
		return nil, classifyFailure("lpstat", res, printer, 0)
	}

	jobs := parseLPStatJobs(res.Stdout)
	jobs = filterJobsForPrinter(jobs, printer, b.MatchName)

	// lpq supplies document names and the active job; it is optional detail.
	if lpq, err := b.run(ctx, b.config.LPQPath, "-P", printer); err == nil && !lpq.Failed() {
		entries := parseLPQ(lpq.Stdout)
		for i := range jobs {
			if e, ok := entries[jobs[i].JobID]; ok {
				jobs[i].DocumentName = e.file
				jobs[i].Position = e.position
				if e.active && jobs[i].Status == printing.JobStatusQueued {
					jobs[i].Status = printing.JobStatusPrinting
				}
			}
		}
	}
	return jobs, nil
}

// GetJob finds one job in the printer queue
func (b *CUPSBackend) GetJob(ctx context.Context, printer string, jobID int) (*printing.JobInfo, error) {
	jobs, err := b.ListJobs(ctx, printer)
	if err != nil {
		return nil, err
	}
	return findJob(jobs, printer, jobID)
}

// ControlJob issues hold, resume, restart or cancel for a queued job
func (b *CUPSBackend) ControlJob(ctx context.Context, printer string, jobID int, action printing.JobAction) (*printing.JobInfo, error) {
	job, err := b.GetJob(ctx, printer, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		return nil, printing.NewJobNotFoundError(printer, jobID)
	}

	queueID := job.PrinterName + "-" + strconv.Itoa(jobID)
	command, args := b.config.LPPath, []string{"-i", queueID, "-H"}
	switch action {
	case printing.JobActionPause:
		args = append(args, "hold")
	case printing.JobActionResume:
		args = append(args, "resume")
	case printing.JobActionRestart:
		args = append(args, "restart")
	case printing.JobActionRemove:
		command, args = b.config.CancelPath, []string{queueID}
	default:
		return nil, printing.NewDeviceError(nil, "unsupported job action %q", action)
	}

	res, err := b.run(ctx, command, args...)
	if err != nil {
		return nil, runFailure(filepath.Base(command), printer, err)
	}
	if res.Failed() {
		return nil, classifyFailure(filepath.Base(command), res, printer, jobID)
	}

	b.logger.Info("job control applied",
		zap.String("printer", printer),
		zap.Int("job_id", jobID),
		zap.String("action", action.String()))

	return refreshAfterControl(ctx, b, *job, action), nil
}

// refreshAfterControl re-reads the job. When the spooler no longer lists it
// the expected post-action snapshot is returned instead.
func refreshAfterControl(ctx context.Context, backend printing.PrintBackend, job printing.JobInfo, action printing.JobAction) *printing.JobInfo {
	next, _ := action.Apply(job.Status)
	if action != printing.JobActionRemove {
		if fresh, err := backend.GetJob(ctx, job.PrinterName, job.JobID); err == nil {
			return fresh
		}
	}
	job.Status = next
	return &job
}

func findJob(jobs []printing.JobInfo, printer string, jobID int) (*printing.JobInfo, error) {
	for i := range jobs {
		if jobs[i].JobID == jobID {
			return &jobs[i], nil
		}
	}
	return nil, printing.NewJobNotFoundError(printer, jobID)
}

func filterJobsForPrinter(jobs []printing.JobInfo, printer string, match printing.NameMatcher) []printing.JobInfo {
	out := jobs[:0]
	for _, j := range jobs {
		if match(j.PrinterName, printer) {
			out = append(out, j)
		}
	}
	return out
}

// =============================================================================
// Output parsing
// =============================================================================

var (
	requestIDPattern = regexp.MustCompile(`request id is (\S+)-(\d+)`)
	printerLine      = regexp.MustCompile(`^printer (\S+) (.*)$`)
	deviceLine       = regexp.MustCompile(`^device for (\S+): (\S+)`)
)

// parseRequestID extracts "<printer>-<id>" from lp output
func parseRequestID(out string) (string, int, bool) {
	m := requestIDPattern.FindStringSubmatch(out)
	if m == nil {
		return "", 0, false
	}
	id, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return m[1], id, true
}

// parseLPStatPrinters parses "lpstat -p" output
func parseLPStatPrinters(out string) []printing.PrinterInfo {
	printers := []printing.PrinterInfo{}
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			// Reason lines belong to the previous printer
			if n := len(printers); n > 0 && looksOffline(line) {
				printers[n-1].Status = printing.PrinterStatusOffline
			}
			continue
		}
		m := printerLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		printers = append(printers, printing.PrinterInfo{
			Name:   m[1],
			Status: lpstatPrinterStatus(m[2]),
		})
	}
	return printers
}

func lpstatPrinterStatus(rest string) printing.PrinterStatus {
	switch {
	case strings.HasPrefix(rest, "is idle"):
		return printing.PrinterStatusIdle
	case strings.HasPrefix(rest, "now printing"):
		return printing.PrinterStatusPrinting
	case strings.HasPrefix(rest, "disabled"):
		return printing.PrinterStatusPaused
	default:
		return printing.PrinterStatusUnknown
	}
}

func looksOffline(reason string) bool {
	r := strings.ToLower(reason)
	return strings.Contains(r, "offline") || strings.Contains(r, "not connected") ||
		strings.Contains(r, "unplugged") || strings.Contains(r, "not responding")
}

// parseLPStatDefault parses "lpstat -d" output
func parseLPStatDefault(out string) string {
	const prefix = "system default destination:"
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix))
		}
	}
	return ""
}

// parseLPStatDevices parses "lpstat -v" output
func parseLPStatDevices(out string) map[string]string {
	devices := map[string]string{}
	for _, line := range strings.Split(out, "\n") {
		if m := deviceLine.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			devices[m[1]] = m[2]
		}
	}
	return devices
}

// lpstatTimeLayouts are the %c renderings cupsd produces in the C locale and
// in common English locales.
var lpstatTimeLayouts = []string{
	"Mon Jan _2 15:04:05 2006",
	"Mon 02 Jan 2006 03:04:05 PM MST",
	"Mon _2 Jan 2006 15:04:05 MST",
	"Mon Jan _2 15:04:05 MST 2006",
}

// parseLPStatJobs parses "lpstat -o" and "lpstat -l -o" output. Each job line is
// "<printer>-<id> <owner> <size> <date...>" followed, with -l, by indented
// detail lines.
func parseLPStatJobs(out string) []printing.JobInfo {
	jobs := []printing.JobInfo{}
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			if n := len(jobs); n > 0 {
				applyJobDetail(&jobs[n-1], strings.TrimSpace(line))
			}
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		dash := strings.LastIndex(fields[0], "-")
		if dash <= 0 {
			continue
		}
		id, err := strconv.Atoi(fields[0][dash+1:])
		if err != nil {
			continue
		}
		size, _ := strconv.ParseInt(fields[2], 10, 64)
		jobs = append(jobs, printing.JobInfo{
			JobID:         id,
			PrinterName:   fields[0][:dash],
			Owner:         fields[1],
			Size:          size,
			Status:        printing.JobStatusQueued,
			SubmittedTime: parseLPStatTime(strings.Join(fields[3:], " ")),
		})
	}
	return jobs
}

func applyJobDetail(job *printing.JobInfo, detail string) {
	switch {
	case strings.HasPrefix(detail, "Status:"):
		job.StatusText = strings.TrimSpace(strings.TrimPrefix(detail, "Status:"))
	case strings.HasPrefix(detail, "Alerts:"):
		alerts := strings.TrimSpace(strings.TrimPrefix(detail, "Alerts:"))
		switch {
		case strings.Contains(alerts, "job-hold-until-specified"),
			strings.Contains(alerts, "job-suspended"):
			job.Status = printing.JobStatusPaused
		case strings.Contains(alerts, "job-printing"):
			job.Status = printing.JobStatusPrinting
		case strings.Contains(alerts, "aborted"),
			strings.Contains(alerts, "job-stopped"):
			job.Status = printing.JobStatusError
		}
		if job.StatusText == "" {
			job.StatusText = alerts
		}
	}
}

func parseLPStatTime(s string) time.Time {
	for _, layout := range lpstatTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

type lpqEntry struct {
	position int
	active   bool
	file     string
}

// parseLPQ parses "lpq -P <printer>" output:
//
//	Rank    Owner   Job     File(s)                         Total Size
//	active  alice   12      report.pdf                      1024 bytes
func parseLPQ(out string) map[int]lpqEntry {
	entries := map[int]lpqEntry{}
	position := 0
	header := false
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[0] == "Rank" {
			header = true
			continue
		}
		if !header || len(fields) < 6 {
			continue
		}
		id, err := strconv.Atoi(fields[2])
		if err != nil {
			continue
		}
		position++
		// File(s) spans everything between the job id and "<n> bytes"
		entries[id] = lpqEntry{
			position: position,
			active:   fields[0] == "active",
			file:     strings.Join(fields[3:len(fields)-2], " "),
		}
	}
	return entries
}

// parseLPOptions splits "lpoptions -p" output into key/value pairs, honoring
// single quotes, double quotes and backslash escapes. Bare keys map to "".
func parseLPOptions(out string) map[string]string {
	opts := map[string]string{}
	var tokens []string
	var cur strings.Builder
	var quote rune
	escaped := false
	inToken := false

	flush := func() {
		if inToken {
			tokens = append(tokens, cur.String())
			cur.Reset()
			inToken = false
		}
	}

	for _, r := range strings.TrimSpace(out) {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
			inToken = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inToken = true
		case r == ' ' || r == '\t' || r == '\n':
			flush()
		default:
			cur.WriteRune(r)
			inToken = true
		}
	}
	flush()

	for _, tok := range tokens {
		k, v, _ := strings.Cut(tok, "=")
		opts[k] = v
	}
	return opts
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// sortJobs orders jobs by id, which is the submission order in every spooler
func sortJobs(jobs []printing.JobInfo) {
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].JobID < jobs[j].JobID })
}

var _ printing.PrintBackend = (*CUPSBackend)(nil)
