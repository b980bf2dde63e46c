// Package render converts HTML content into PDF documents that can be handed
// to the print backend.
//
// Two engines are available:
//   - ChromedpRenderer drives a headless Chrome through the DevTools protocol
//   - WkhtmltopdfRenderer shells out to the wkhtmltopdf binary
//
// Engine "none" installs DisabledRenderer, which rejects every request.
package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/printbridge/backend/internal/domain/printing"
	"go.uber.org/zap"
)

// Engine names accepted by Config.Engine
const (
	EngineChromedp    = "chromedp"
	EngineWkhtmltopdf = "wkhtmltopdf"
	EngineNone        = "none"
)

// Margins in millimeters
type Margins struct {
	Top    int
	Right  int
	Bottom int
	Left   int
}

// DefaultMargins returns 10mm on every side
func DefaultMargins() Margins {
	return Margins{Top: 10, Right: 10, Bottom: 10, Left: 10}
}

// Request contains the parameters for rendering HTML to PDF
type Request struct {
	// HTML content to render; fragments are wrapped in a full document
	HTML        string
	PaperSize   printing.PaperSize
	Orientation printing.Orientation
	Margins     Margins
	// Title for the PDF document metadata
	Title string
	// HeaderHTML and FooterHTML are optional page decorations
	HeaderHTML string
	FooterHTML string
	// Timeout overrides the default rendering timeout
	Timeout time.Duration
}

// Result contains the output from PDF rendering
type Result struct {
	PDF      []byte
	Pages    int
	Duration time.Duration
}

// Renderer converts HTML content to a PDF document
type Renderer interface {
	Render(ctx context.Context, req *Request) (*Result, error)
	// Close releases any resources held by the renderer
	Close() error
}

// Error represents an error during PDF rendering
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Error codes for rendering failures
const (
	ErrCodeRenderTimeout    = "RENDER_TIMEOUT"
	ErrCodeRenderFailed     = "RENDER_FAILED"
	ErrCodeInvalidHTML      = "INVALID_HTML"
	ErrCodeBinaryNotFound   = "BINARY_NOT_FOUND"
	ErrCodeInvalidPaperSize = "INVALID_PAPER_SIZE"
	ErrCodeDisabled         = "RENDER_DISABLED"
)

// NewError creates a new render Error
func NewError(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// validate applies the checks shared by every engine
func validate(req *Request) error {
	if req == nil {
		return NewError(ErrCodeInvalidHTML, "render request is nil", nil)
	}
	if strings.TrimSpace(req.HTML) == "" {
		return NewError(ErrCodeInvalidHTML, "HTML content is empty", nil)
	}
	if !req.PaperSize.IsValid() {
		return NewError(ErrCodeInvalidPaperSize, "invalid paper size: "+string(req.PaperSize), nil)
	}
	return nil
}

// newResult checks the engine output and counts its pages with pdfcpu
func newResult(logger *zap.Logger, pdf []byte, start time.Time) (*Result, error) {
	if len(pdf) == 0 {
		return nil, NewError(ErrCodeRenderFailed, "generated PDF is empty", nil)
	}
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	pages, err := api.PageCount(bytes.NewReader(pdf), conf)
	if err != nil {
		return nil, NewError(ErrCodeRenderFailed, "generated PDF is unreadable", err)
	}
	result := &Result{PDF: pdf, Pages: pages, Duration: time.Since(start)}
	logger.Info("PDF rendered",
		zap.Int("bytes", len(pdf)),
		zap.Int("pages", pages),
		zap.Duration("duration", result.Duration))
	return result, nil
}

// Config selects and configures the rendering engine
type Config struct {
	Engine          string
	Timeout         time.Duration
	ChromeRemoteURL string
	ChromeNoSandbox bool
	WkhtmltopdfPath string
	TempDir         string
}

// New creates the renderer named by cfg.Engine
func New(cfg Config, logger *zap.Logger) (Renderer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Engine)) {
	case EngineChromedp, "":
		return NewChromedpRenderer(ChromedpConfig{
			Timeout:   cfg.Timeout,
			RemoteURL: cfg.ChromeRemoteURL,
			NoSandbox: cfg.ChromeNoSandbox,
			Logger:    logger.Named("chromedp"),
		}), nil
	case EngineWkhtmltopdf:
		r, err := NewWkhtmltopdfRenderer(WkhtmltopdfConfig{
			BinaryPath: cfg.WkhtmltopdfPath,
			Timeout:    cfg.Timeout,
			TempDir:    cfg.TempDir,
			Logger:     logger.Named("wkhtmltopdf"),
		})
		if err != nil {
			return nil, err
		}
		return r, nil
	case EngineNone:
		return DisabledRenderer{}, nil
	default:
		return nil, fmt.Errorf("unknown render engine %q", cfg.Engine)
	}
}

// DisabledRenderer is installed when HTML printing is turned off
type DisabledRenderer struct{}

func (DisabledRenderer) Render(context.Context, *Request) (*Result, error) {
	return nil, NewError(ErrCodeDisabled, "HTML rendering is disabled", nil)
}

func (DisabledRenderer) Close() error { return nil }

var _ Renderer = DisabledRenderer{}
