package printing

import (
	"fmt"

	"github.com/printbridge/backend/internal/domain/shared"
)

// Error codes for the printing context
const (
	ErrCodeDecode      = "DECODE_ERROR"
	ErrCodeIO          = "IO_ERROR"
	ErrCodeDevice      = "DEVICE_ERROR"
	ErrCodeDocument    = "DOCUMENT_ERROR"
	ErrCodeJobNotFound = "JOB_NOT_FOUND"
	ErrCodePermission  = "PERMISSION_DENIED"
	ErrCodeUnsupported = "UNSUPPORTED_PLATFORM"
)

// Sentinel errors, compared by code through errors.Is
var (
	ErrDecode              = shared.NewDomainError(ErrCodeDecode, "Payload is not valid base64")
	ErrIO                  = shared.NewDomainError(ErrCodeIO, "Filesystem operation failed")
	ErrDevice              = shared.NewDomainError(ErrCodeDevice, "Printer is unreachable or rejected the settings")
	ErrDocument            = shared.NewDomainError(ErrCodeDocument, "Document cannot be read")
	ErrJobNotFound         = shared.NewDomainError(ErrCodeJobNotFound, "Print job not found")
	ErrPermission          = shared.NewDomainError(ErrCodePermission, "Insufficient spooler privileges")
	ErrUnsupportedPlatform = shared.NewDomainError(ErrCodeUnsupported, "Unsupported OS")
)

// NewDeviceError reports an unreachable printer or rejected settings
func NewDeviceError(cause error, format string, args ...any) *shared.DomainError {
	return shared.WrapDomainError(ErrCodeDevice, fmt.Sprintf(format, args...), cause)
}

// NewDocumentError reports an unreadable or invalid source document
func NewDocumentError(cause error, format string, args ...any) *shared.DomainError {
	return shared.WrapDomainError(ErrCodeDocument, fmt.Sprintf(format, args...), cause)
}

// NewJobNotFoundError reports a stale job id
func NewJobNotFoundError(printer string, jobID int) *shared.DomainError {
	return shared.NewDomainError(ErrCodeJobNotFound,
		fmt.Sprintf("job %d not found on printer %q", jobID, printer))
}

// NewPermissionError reports a spooler privilege failure
func NewPermissionError(cause error, format string, args ...any) *shared.DomainError {
	return shared.WrapDomainError(ErrCodePermission, fmt.Sprintf(format, args...), cause)
}

// NewIOError reports a local filesystem failure
func NewIOError(cause error, format string, args ...any) *shared.DomainError {
	return shared.WrapDomainError(ErrCodeIO, fmt.Sprintf(format, args...), cause)
}
