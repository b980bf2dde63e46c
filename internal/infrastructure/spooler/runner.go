package spooler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultCommandTimeout = 30 * time.Second

// CommandRequest holds parameters for one spooler tool invocation
type CommandRequest struct {
	Command string
	Args    []string
	// Env is appended to the inherited environment
	Env     []string
	Timeout time.Duration
}

// CommandResult is the outcome of a command that ran to completion
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Failed reports a non-zero exit status
func (r *CommandResult) Failed() bool {
	return r.ExitCode != 0
}

// CommandRunner executes native spooler tools. Backends depend on this
// interface so tests can replace the host tools with canned output.
type CommandRunner interface {
	// Run returns an error only when the command could not be started or did
	// not finish in time. A non-zero exit is reported through CommandResult.
	Run(ctx context.Context, req CommandRequest) (*CommandResult, error)
}

// ErrCommandTimeout is returned when a spooler tool exceeds its timeout
var ErrCommandTimeout = errors.New("spooler command timed out")

// ExecRunner runs commands with os/exec
type ExecRunner struct {
	logger         *zap.Logger
	defaultTimeout time.Duration
}

// NewExecRunner creates a runner. A zero timeout selects 30s.
func NewExecRunner(timeout time.Duration, logger *zap.Logger) *ExecRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	return &ExecRunner{logger: logger, defaultTimeout: timeout}
}

// Run executes req and captures stdout and stderr
func (r *ExecRunner) Run(ctx context.Context, req CommandRequest) (*CommandResult, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = r.defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, req.Command, req.Args...)
	if len(req.Env) > 0 {
		cmd.Env = append(os.Environ(), sanitizeEnv(req.Env)...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	r.logger.Debug("spooler command finished",
		zap.String("command", filepath.Base(req.Command)),
		zap.Strings("args", req.Args),
		zap.Duration("duration", elapsed))

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %v: %s", ErrCommandTimeout, timeout, filepath.Base(req.Command))
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, ctx.Err()
		}
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("failed to run %s: %w", filepath.Base(req.Command), err)
		}
	}

	return &CommandResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: cmd.ProcessState.ExitCode(),
		Duration: elapsed,
	}, nil
}

// sanitizeEnv drops loader variables that would let a request alter which
// code the spooler tools load.
func sanitizeEnv(env []string) []string {
	out := make([]string, 0, len(env))
	for _, kv := range env {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, "LD_") || strings.HasPrefix(key, "DYLD_") {
			continue
		}
		out = append(out, kv)
	}
	return out
}

// resolveBinaryPath finds the full path to a spooler tool
func resolveBinaryPath(path string) (string, error) {
	if filepath.IsAbs(path) {
		if _, err := os.Stat(path); err != nil {
			return "", err
		}
		return path, nil
	}
	return exec.LookPath(path)
}

var _ CommandRunner = (*ExecRunner)(nil)
