package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/printbridge/backend/internal/domain/printing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// minimalPDF builds a well-formed PDF with blank pages and a correct xref table
func minimalPDF(pages int) []byte {
	var objects []string
	kids := ""
	for i := 0; i < pages; i++ {
		kids += fmt.Sprintf("%d 0 R ", 3+i)
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, pages))
	for i := 0; i < pages; i++ {
		objects = append(objects, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] /Resources << >> >>")
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestPDFInspector_Inspect(t *testing.T) {
	path := writeFile(t, "three.pdf", minimalPDF(3))

	info, err := NewPDFInspector(nil).Inspect(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, info.Path)
	assert.Equal(t, 3, info.Pages)
	assert.Positive(t, info.Size)
}

func TestPDFInspector_Rejects(t *testing.T) {
	inspector := NewPDFInspector(nil)
	ctx := context.Background()

	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"empty path", func(*testing.T) string { return "" }},
		{"missing file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing.pdf") }},
		{"directory", func(t *testing.T) string { return t.TempDir() }},
		{"empty file", func(t *testing.T) string { return writeFile(t, "empty.pdf", nil) }},
		{"not a pdf", func(t *testing.T) string { return writeFile(t, "note.pdf", []byte("hello printer")) }},
		{"truncated pdf", func(t *testing.T) string {
			return writeFile(t, "broken.pdf", []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog\n"))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := inspector.Inspect(ctx, tt.path(t))
			require.Error(t, err)
			assert.True(t, errors.Is(err, printing.ErrDocument), err.Error())
		})
	}
}

func TestPDFInspector_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPDFInspector(nil).Inspect(ctx, "/tmp/a.pdf")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCheckHeader(t *testing.T) {
	ok := writeFile(t, "lead.pdf", append([]byte("\xef\xbb\xbf"), []byte("%PDF-1.7\n")...))
	assert.NoError(t, checkHeader(ok))

	bad := writeFile(t, "text.pdf", []byte("plain text"))
	assert.True(t, errors.Is(checkHeader(bad), printing.ErrDocument))
}
