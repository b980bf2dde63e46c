package render

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/printbridge/backend/internal/domain/printing"
	"go.uber.org/zap"
)

const (
	defaultChromeTimeout = 30 * time.Second
	// decorationMarginMM keeps room for Chrome's header and footer templates
	decorationMarginMM = 10
	mmPerInch          = 25.4
)

// ChromedpConfig configures a ChromedpRenderer
type ChromedpConfig struct {
	Timeout time.Duration
	// RemoteURL is the DevTools URL of a running Chrome. When empty a
	// headless Chrome is launched on the first render.
	RemoteURL string
	// NoSandbox is required when the bridge runs as root
	NoSandbox bool
	Logger    *zap.Logger
}

// ChromedpRenderer prints HTML with headless Chrome. One browser serves all
// renders; each render opens its own tab.
type ChromedpRenderer struct {
	timeout time.Duration
	logger  *zap.Logger
	browser context.Context
	stop    context.CancelFunc
}

// NewChromedpRenderer prepares the browser allocator. Nothing is launched
// until the first Render, so hosts without Chrome can still start.
func NewChromedpRenderer(cfg ChromedpConfig) *ChromedpRenderer {
	r := &ChromedpRenderer{timeout: cfg.Timeout, logger: cfg.Logger}
	if r.timeout <= 0 {
		r.timeout = defaultChromeTimeout
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}

	if cfg.RemoteURL != "" {
		r.browser, r.stop = chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
		return r
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	r.browser, r.stop = chromedp.NewExecAllocator(context.Background(), opts...)
	return r
}

// Render loads the document into a blank tab and prints it
func (r *ChromedpRenderer) Render(ctx context.Context, req *Request) (*Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	start := time.Now()
	timeout := orDefault(req.Timeout, r.timeout)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tab, closeTab := chromedp.NewContext(r.browser, chromedp.WithLogf(r.logger.Sugar().Debugf))
	defer closeTab()
	// a cancelled request closes the tab
	defer context.AfterFunc(ctx, closeTab)()

	var pdf []byte
	err := chromedp.Run(tab,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, buildDocument(req)).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) (err error) {
			pdf, _, err = printParams(req).Do(ctx)
			return err
		}),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, interrupted(ctxErr, timeout, err)
		}
		r.logger.Error("chromedp rendering failed", zap.Error(err))
		return nil, NewError(ErrCodeRenderFailed, "chrome could not print the document", err)
	}
	return newResult(r.logger, pdf, start)
}

// printParams maps the request onto Page.printToPDF, whose lengths are in inches
func printParams(req *Request) *page.PrintToPDFParams {
	width, height := req.PaperSize.Dimensions()
	m := req.Margins
	top, bottom := m.Top, m.Bottom

	p := page.PrintToPDF().
		WithPrintBackground(true).
		WithPaperWidth(inches(width)).
		WithPaperHeight(inches(height)).
		WithLandscape(req.Orientation == printing.OrientationLandscape)

	if req.HeaderHTML != "" || req.FooterHTML != "" {
		p = p.WithDisplayHeaderFooter(true).
			WithHeaderTemplate(req.HeaderHTML).
			WithFooterTemplate(req.FooterHTML)
		if req.HeaderHTML != "" {
			top = max(top, decorationMarginMM)
		}
		if req.FooterHTML != "" {
			bottom = max(bottom, decorationMarginMM)
		}
	}
	return p.WithMarginTop(inches(top)).
		WithMarginRight(inches(m.Right)).
		WithMarginBottom(inches(bottom)).
		WithMarginLeft(inches(m.Left))
}

// buildDocument wraps an HTML fragment in a complete UTF-8 document. Full
// documents are returned unchanged.
func buildDocument(req *Request) string {
	lower := strings.ToLower(req.HTML)
	if strings.Contains(lower, "<!doctype") || strings.Contains(lower, "<html") {
		return req.HTML
	}
	var title string
	if req.Title != "" {
		title = "<title>" + html.EscapeString(req.Title) + "</title>"
	}
	return fmt.Sprintf(`<!DOCTYPE html><html><head><meta charset="UTF-8">%s</head><body>%s</body></html>`,
		title, req.HTML)
}

// Close stops the browser, if one was launched
func (r *ChromedpRenderer) Close() error {
	r.stop()
	return nil
}

func inches(mm int) float64 {
	return float64(mm) / mmPerInch
}

// interrupted reports a render cut short by its context
func interrupted(ctxErr error, timeout time.Duration, cause error) error {
	if errors.Is(ctxErr, context.DeadlineExceeded) {
		return NewError(ErrCodeRenderTimeout, fmt.Sprintf("PDF rendering timed out after %v", timeout), cause)
	}
	return NewError(ErrCodeRenderTimeout, "PDF rendering was cancelled", cause)
}

// orDefault returns d, or fallback when d is not positive
func orDefault(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}

var _ Renderer = (*ChromedpRenderer)(nil)
