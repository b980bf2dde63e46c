package spooler

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/printbridge/backend/internal/domain/printing"
)

var (
	permissionPattern = regexp.MustCompile(`(?i)not authori[sz]ed|forbidden|access (is|was) denied|permission denied|not allowed|unauthori[sz]ed`)
	staleJobPattern   = regexp.MustCompile(`(?i)job[^\n]*(does not exist|not found|is finished|cannot be altered|already (completed|canceled|cancelled|aborted))|no matching msft_printjob|invalid job id`)
)

// commandFailure is the cause attached to errors produced from a failed tool run
type commandFailure struct {
	command  string
	exitCode int
	stderr   string
}

func (f *commandFailure) Error() string {
	return fmt.Sprintf("%s exited with status %d: %s", f.command, f.exitCode, strings.TrimSpace(f.stderr))
}

// classifyFailure maps the output of a failed spooler tool onto a domain error.
// Job-level messages win over generic device errors so that stale ids surface
// as JOB_NOT_FOUND.
func classifyFailure(command string, res *CommandResult, printer string, jobID int) error {
	msg := strings.TrimSpace(res.Stderr)
	if msg == "" {
		msg = strings.TrimSpace(res.Stdout)
	}
	cause := &commandFailure{command: command, exitCode: res.ExitCode, stderr: msg}

	switch {
	case permissionPattern.MatchString(msg):
		return printing.NewPermissionError(cause, "spooler refused %s on printer %q", command, printer)
	case jobID > 0 && staleJobPattern.MatchString(msg):
		return printing.NewJobNotFoundError(printer, jobID)
	default:
		return printing.NewDeviceError(cause, "printer %q: %s", printer, firstLine(msg))
	}
}

// runFailure wraps an error from starting or timing out a tool
func runFailure(command, printer string, err error) error {
	if errors.Is(err, ErrCommandTimeout) {
		return printing.NewDeviceError(err, "printer %q did not respond to %s", printer, command)
	}
	return printing.NewDeviceError(err, "cannot run %s", command)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
