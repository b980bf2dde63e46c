package dto

import (
	"net/http"
	"strings"
)

// API error codes. Domain codes ("DEVICE_ERROR", "JOB_NOT_FOUND") are
// converted with NormalizeErrorCode before they reach a client.
const (
	ErrCodeInternal  = "ERR_INTERNAL"
	ErrCodeCancelled = "ERR_CANCELLED"

	ErrCodeBadRequest      = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput    = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON     = "ERR_INVALID_JSON"
	ErrCodeValidation      = "ERR_VALIDATION"
	ErrCodePayloadTooLarge = "ERR_PAYLOAD_TOO_LARGE"

	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"

	// ErrCodeNotFound covers scratch files and unknown routes
	ErrCodeNotFound    = "ERR_NOT_FOUND"
	ErrCodeJobNotFound = "ERR_JOB_NOT_FOUND"
	// ErrCodeInvalidState is returned for features disabled by configuration
	ErrCodeInvalidState = "ERR_INVALID_STATE"

	ErrCodeDecode              = "ERR_DECODE"
	ErrCodeIO                  = "ERR_IO"
	ErrCodeDevice              = "ERR_DEVICE"
	ErrCodeDocument            = "ERR_DOCUMENT"
	ErrCodePermissionDenied    = "ERR_PERMISSION_DENIED"
	ErrCodeUnsupportedPlatform = "ERR_UNSUPPORTED_PLATFORM"
)

// httpStatus holds the status of every API code
var httpStatus = map[string]int{
	ErrCodeInternal:  http.StatusInternalServerError,
	ErrCodeCancelled: http.StatusGatewayTimeout,

	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodePayloadTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	ErrCodeNotFound:     http.StatusNotFound,
	ErrCodeJobNotFound:  http.StatusNotFound,
	ErrCodeInvalidState: http.StatusConflict,

	// The spooler or the printer is the failing upstream
	ErrCodeDecode:              http.StatusBadRequest,
	ErrCodeIO:                  http.StatusInternalServerError,
	ErrCodeDevice:              http.StatusBadGateway,
	ErrCodeDocument:            http.StatusUnprocessableEntity,
	ErrCodePermissionDenied:    http.StatusForbidden,
	ErrCodeUnsupportedPlatform: http.StatusNotImplemented,
}

// GetHTTPStatus returns the status for an API code, 500 when unknown
func GetHTTPStatus(code string) int {
	if status, ok := httpStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// IsKnownCode reports whether code is an API code
func IsKnownCode(code string) bool {
	_, ok := httpStatus[code]
	return ok
}

// NormalizeErrorCode turns a domain code into its API code: "DEVICE_ERROR"
// and "JOB_NOT_FOUND" become "ERR_DEVICE" and "ERR_JOB_NOT_FOUND". API codes
// and codes without an API counterpart are returned unchanged.
func NormalizeErrorCode(code string) string {
	if strings.HasPrefix(code, "ERR_") {
		return code
	}
	if api := "ERR_" + strings.TrimSuffix(code, "_ERROR"); IsKnownCode(api) {
		return api
	}
	return code
}
