// Package document checks source documents before they are handed to the spooler.
package document

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/printbridge/backend/internal/domain/printing"
	"go.uber.org/zap"
)

var pdfMagic = []byte("%PDF-")

// Info describes an inspected document
type Info struct {
	Path  string
	Pages int
	Size  int64
}

// PDFInspector validates PDFs with pdfcpu in relaxed mode, which accepts the
// minor defects printer drivers tolerate
type PDFInspector struct {
	conf   *model.Configuration
	logger *zap.Logger
}

// NewPDFInspector creates a PDF inspector
func NewPDFInspector(logger *zap.Logger) *PDFInspector {
	if logger == nil {
		logger = zap.NewNop()
	}
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &PDFInspector{
		conf:   conf,
		logger: logger.Named("document"),
	}
}

// Inspect checks that path is a readable, structurally valid PDF and returns
// its page count. Every failure is a DOCUMENT_ERROR.
func (i *PDFInspector) Inspect(ctx context.Context, path string) (*Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if path == "" {
		return nil, printing.NewDocumentError(nil, "document path is required")
	}

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, printing.NewDocumentError(err, "document %s does not exist", path)
	case err != nil:
		return nil, printing.NewDocumentError(err, "document %s cannot be read", path)
	case info.IsDir():
		return nil, printing.NewDocumentError(nil, "document %s is a directory", path)
	case info.Size() == 0:
		return nil, printing.NewDocumentError(nil, "document %s is empty", path)
	}

	if err := checkHeader(path); err != nil {
		return nil, err
	}

	if err := api.ValidateFile(path, i.conf); err != nil {
		return nil, printing.NewDocumentError(err, "document %s is not a valid PDF", path)
	}
	pages, err := api.PageCountFile(path)
	if err != nil {
		return nil, printing.NewDocumentError(err, "cannot count pages of %s", path)
	}

	i.logger.Debug("document inspected",
		zap.String("path", path),
		zap.Int("pages", pages),
		zap.Int64("size", info.Size()))
	return &Info{Path: path, Pages: pages, Size: info.Size()}, nil
}

// checkHeader looks for the PDF signature in the first KiB, where readers
// allow leading garbage
func checkHeader(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return printing.NewDocumentError(err, "document %s cannot be read", path)
	}
	defer f.Close()

	head := make([]byte, 1024)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return printing.NewDocumentError(err, "document %s cannot be read", path)
	}
	if !bytes.Contains(head[:n], pdfMagic) {
		return printing.NewDocumentError(nil, "document %s is not a PDF", path)
	}
	return nil
}
