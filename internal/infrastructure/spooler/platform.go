// Package spooler contains the PrintBackend implementations that talk to the
// host print subsystem, and the selection of one of them at startup.
package spooler

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/printbridge/backend/internal/domain/printing"
	"go.uber.org/zap"
)

// Backend names accepted by Config.Backend
const (
	BackendAuto        = "auto"
	BackendCUPS        = "cups"
	BackendWindows     = "windows"
	BackendMemory      = "memory"
	BackendUnsupported = "none"
)

// Config selects and configures the print backend
type Config struct {
	// Backend overrides platform detection; empty or "auto" detects
	Backend        string
	CommandTimeout time.Duration
	CUPS           CUPSConfig
	Windows        WindowsConfig
	// MemoryPrinters seeds the simulated spooler
	MemoryPrinters []MemoryPrinter
}

// cupsPlatforms are the operating systems that ship CUPS
var cupsPlatforms = map[string]bool{
	"linux":   true,
	"darwin":  true,
	"freebsd": true,
	"netbsd":  true,
	"openbsd": true,
}

// New selects the backend for goos once, at startup. A nil runner uses os/exec.
func New(cfg Config, goos string, runner CommandRunner, logger *zap.Logger) (printing.PrintBackend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if goos == "" {
		goos = runtime.GOOS
	}
	if runner == nil {
		runner = NewExecRunner(cfg.CommandTimeout, logger)
	}
	if cfg.CUPS.Timeout == 0 {
		cfg.CUPS.Timeout = cfg.CommandTimeout
	}
	if cfg.Windows.Timeout == 0 {
		cfg.Windows.Timeout = cfg.CommandTimeout
	}

	name := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if name == "" || name == BackendAuto {
		name = detect(goos)
	}

	var backend printing.PrintBackend
	switch name {
	case BackendCUPS:
		backend = NewCUPSBackend(cfg.CUPS, runner, logger)
	case BackendWindows:
		backend = NewWindowsBackend(cfg.Windows, runner, logger)
	case BackendMemory:
		backend = NewMemoryBackend(cfg.MemoryPrinters, logger)
	case BackendUnsupported:
		backend = NewUnsupportedBackend(goos)
	default:
		return nil, fmt.Errorf("unknown print backend %q", cfg.Backend)
	}

	logger.Info("print backend selected",
		zap.String("backend", backend.Name()),
		zap.String("platform", goos),
		zap.Bool("supported", backend.Supported()))
	return backend, nil
}

func detect(goos string) string {
	switch {
	case goos == "windows":
		return BackendWindows
	case cupsPlatforms[goos]:
		return BackendCUPS
	default:
		return BackendUnsupported
	}
}

// CheckTools verifies that the native tools of backend can be found, so that a
// misconfigured host fails at startup instead of on the first request.
func CheckTools(backend printing.PrintBackend) error {
	var tools []string
	switch b := backend.(type) {
	case *CUPSBackend:
		tools = []string{b.config.LPPath, b.config.LPStatPath, b.config.CancelPath}
	case *WindowsBackend:
		tools = []string{b.config.PowerShellPath, b.config.SumatraPath}
	}
	for _, tool := range tools {
		if _, err := resolveBinaryPath(tool); err != nil {
			return fmt.Errorf("print tool %s not found: %w", tool, err)
		}
	}
	return nil
}
