package render

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/printbridge/backend/internal/domain/printing"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	defaultWkhtmltopdfTimeout = 30 * time.Second
	wkhtmltopdfDPI            = 96
	wkhtmltopdfImageQuality   = 94
)

// WkhtmltopdfConfig configures a WkhtmltopdfRenderer
type WkhtmltopdfConfig struct {
	// BinaryPath is looked up in PATH unless absolute; "wkhtmltopdf" when empty
	BinaryPath string
	Timeout    time.Duration
	// TempDir receives a short-lived work directory per render
	TempDir string
	Logger  *zap.Logger
}

// WkhtmltopdfRenderer prints HTML with the wkhtmltopdf binary. JavaScript
// and local file access are disabled for every document.
type WkhtmltopdfRenderer struct {
	binary  string
	timeout time.Duration
	tempDir string
	logger  *zap.Logger
}

// NewWkhtmltopdfRenderer resolves the binary up front so a missing
// installation is reported at startup
func NewWkhtmltopdfRenderer(cfg WkhtmltopdfConfig) (*WkhtmltopdfRenderer, error) {
	name := cfg.BinaryPath
	if name == "" {
		name = "wkhtmltopdf"
	}
	binary, err := lookBinary(name)
	if err != nil {
		return nil, NewError(ErrCodeBinaryNotFound, "wkhtmltopdf binary not found: "+name, err)
	}

	r := &WkhtmltopdfRenderer{
		binary:  binary,
		timeout: orDefault(cfg.Timeout, defaultWkhtmltopdfTimeout),
		tempDir: cfg.TempDir,
		logger:  cfg.Logger,
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	return r, nil
}

func lookBinary(name string) (string, error) {
	if !filepath.IsAbs(name) {
		return exec.LookPath(name)
	}
	if _, err := os.Stat(name); err != nil {
		return "", err
	}
	return name, nil
}

// Render writes the document and its decorations into a work directory,
// runs wkhtmltopdf on them and reads back the PDF. The work directory is
// removed on return.
func (r *WkhtmltopdfRenderer) Render(ctx context.Context, req *Request) (*Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	start := time.Now()
	timeout := orDefault(req.Timeout, r.timeout)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	work, err := os.MkdirTemp(r.tempDir, "render-*")
	if err != nil {
		return nil, NewError(ErrCodeRenderFailed, "create render directory", err)
	}
	defer os.RemoveAll(work)

	files := map[string]string{"page.html": buildDocument(req)}
	if req.HeaderHTML != "" {
		files["header.html"] = req.HeaderHTML
	}
	if req.FooterHTML != "" {
		files["footer.html"] = req.FooterHTML
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(work, name), []byte(content), 0o600); err != nil {
			return nil, NewError(ErrCodeRenderFailed, "write "+name, err)
		}
	}

	args := wkhtmltopdfArgs(req, work)
	r.logger.Debug("running wkhtmltopdf", zap.String("binary", r.binary), zap.Strings("args", args))

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.binary, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, interrupted(ctxErr, timeout, err)
		}
		msg := strings.TrimSpace(stderr.String())
		r.logger.Error("wkhtmltopdf failed", zap.Error(err), zap.String("stderr", msg))
		return nil, NewError(ErrCodeRenderFailed, "wkhtmltopdf: "+msg, err)
	}

	pdf, err := os.ReadFile(filepath.Join(work, "out.pdf"))
	if err != nil {
		return nil, NewError(ErrCodeRenderFailed, "read generated PDF", err)
	}
	return newResult(r.logger, pdf, start)
}

// wkhtmltopdfArgs builds the command line for the files Render wrote into work
func wkhtmltopdfArgs(req *Request, work string) []string {
	orientation := "Portrait"
	if req.Orientation == printing.OrientationLandscape {
		orientation = "Landscape"
	}
	mm := func(v int) string { return strconv.Itoa(v) + "mm" }

	args := []string{
		"--quiet",
		"--encoding", "UTF-8",
		"--dpi", strconv.Itoa(wkhtmltopdfDPI),
		"--image-quality", strconv.Itoa(wkhtmltopdfImageQuality),
		"--page-size", wkhtmltopdfPageSize(req.PaperSize),
		"--orientation", orientation,
		"--margin-top", mm(req.Margins.Top),
		"--margin-right", mm(req.Margins.Right),
		"--margin-bottom", mm(req.Margins.Bottom),
		"--margin-left", mm(req.Margins.Left),
		"--disable-javascript",
		"--disable-local-file-access",
	}
	if req.Title != "" {
		args = append(args, "--title", req.Title)
	}
	if req.HeaderHTML != "" {
		args = append(args, "--header-html", filepath.Join(work, "header.html"))
	}
	if req.FooterHTML != "" {
		args = append(args, "--footer-html", filepath.Join(work, "footer.html"))
	}
	return append(args, filepath.Join(work, "page.html"), filepath.Join(work, "out.pdf"))
}

// wkhtmltopdfPageSize returns the Qt page size name
func wkhtmltopdfPageSize(p printing.PaperSize) string {
	switch p {
	case printing.PaperSizeLetter, printing.PaperSizeLegal, printing.PaperSizeTabloid:
		return cases.Title(language.Und).String(string(p))
	default:
		return string(p)
	}
}

// Close is a no-op; every render runs its own process
func (r *WkhtmltopdfRenderer) Close() error {
	return nil
}

var _ Renderer = (*WkhtmltopdfRenderer)(nil)
