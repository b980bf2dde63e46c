package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	printingapp "github.com/printbridge/backend/internal/application/printing"
	"github.com/printbridge/backend/internal/domain/printing"
	"github.com/printbridge/backend/internal/infrastructure/document"
	"github.com/printbridge/backend/internal/infrastructure/render"
	"github.com/printbridge/backend/internal/infrastructure/spooler"
	"github.com/printbridge/backend/internal/infrastructure/tempfile"
	"github.com/printbridge/backend/internal/interfaces/http/dto"
	"github.com/printbridge/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	middleware.SetupValidator()
}

// fixedInspector reports a fixed page count for any existing file
type fixedInspector int

func (f fixedInspector) Inspect(_ context.Context, path string) (*document.Info, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, printing.NewDocumentError(err, "document %s does not exist", path)
	}
	return &document.Info{Path: path, Pages: int(f)}, nil
}

// stubRenderer returns a fixed PDF for any HTML
type stubRenderer struct{}

func (stubRenderer) Render(_ context.Context, req *render.Request) (*render.Result, error) {
	if req.HTML == "" {
		return nil, render.NewError(render.ErrCodeInvalidHTML, "HTML content is required", nil)
	}
	return &render.Result{PDF: []byte("%PDF-1.7"), Pages: 1}, nil
}

func (stubRenderer) Close() error { return nil }

type printFixture struct {
	router  *gin.Engine
	backend *spooler.MemoryBackend
	files   *tempfile.Manager
}

func newPrintFixture(t *testing.T, backend printing.PrintBackend, opts ...printingapp.Option) *printFixture {
	t.Helper()
	files, err := tempfile.NewManager(&tempfile.Config{Dir: t.TempDir()})
	require.NoError(t, err)
	service := printingapp.NewPrintService(backend, files, fixedInspector(2), nil, opts...)
	h := NewPrintHandler(service)

	r := gin.New()
	api := r.Group("/api/v1")
	api.POST("/temp-files", h.CreateTempFile)
	api.DELETE("/temp-files/:filename", h.RemoveTempFile)
	api.GET("/printers", h.ListPrinters)
	api.GET("/printers/:name", h.GetPrinter)
	api.GET("/paper-sizes", h.PaperSizes)
	api.POST("/print-jobs", h.PrintPDF)
	api.POST("/print-jobs/html", h.PrintHTML)
	api.GET("/jobs", h.ListAllJobs)
	api.GET("/jobs/ref/:ref", h.GetJobByRef)
	api.POST("/jobs/:action", h.ControlAllJobs)
	api.GET("/printers/:name/jobs", h.ListJobs)
	api.GET("/printers/:name/jobs/:jobId", h.GetJob)
	api.POST("/printers/:name/jobs/:jobId/:action", h.ControlJob)
	api.DELETE("/printers/:name/jobs/:jobId", h.RemoveJob)

	mem, _ := backend.(*spooler.MemoryBackend)
	return &printFixture{router: r, backend: mem, files: files}
}

func newMemoryFixture(t *testing.T, opts ...printingapp.Option) *printFixture {
	t.Helper()
	return newPrintFixture(t, spooler.NewMemoryBackend([]spooler.MemoryPrinter{
		{Name: "Office", IsDefault: true},
		{Name: "Label", Status: printing.PrinterStatusOffline},
	}, nil), opts...)
}

func (f *printFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var resp APIResponse[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	require.True(t, resp.Success, w.Body.String())
	return resp.Data
}

// scratchFiles lists the scratch directory without its owner marker
func scratchFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		if e.Name() != tempfile.OwnerMarker {
			names = append(names, e.Name())
		}
	}
	return names
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	require.NotNil(t, resp.Error, w.Body.String())
	assert.False(t, resp.Success)
	return resp.Error.Code
}

func (f *printFixture) upload(t *testing.T, name string) string {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/v1/temp-files", map[string]string{
		"buffer_data": "JVBERi0xLjc=",
		"filename":    name,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeData[printingapp.TempFileResponse](t, w).Path
}

func TestPrintHandler_TempFiles(t *testing.T) {
	f := newMemoryFixture(t)

	path := f.upload(t, "doc.pdf")
	assert.Equal(t, filepath.Join(f.files.Dir(), "doc.pdf"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(data))

	w := f.do(t, http.MethodDelete, "/api/v1/temp-files/doc.pdf", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.NoFileExists(t, path)

	w = f.do(t, http.MethodDelete, "/api/v1/temp-files/doc.pdf", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, dto.ErrCodeNotFound, errorCode(t, w))
}

func TestPrintHandler_TempFileRejections(t *testing.T) {
	f := newMemoryFixture(t)

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"missing data", map[string]string{"filename": "a.pdf"}, http.StatusBadRequest, dto.ErrCodeValidation},
		{"path traversal", map[string]string{"buffer_data": "JVBERi0xLjc=", "filename": "../a.pdf"}, http.StatusBadRequest, dto.ErrCodeValidation},
		{"bad base64", map[string]string{"buffer_data": "not base64!", "filename": "a.pdf"}, http.StatusBadRequest, dto.ErrCodeDecode},
		{"not json", "plain", http.StatusBadRequest, dto.ErrCodeInvalidJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/api/v1/temp-files", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, errorCode(t, w))
		})
	}

	assert.Empty(t, scratchFiles(t, f.files.Dir()))
}

func TestPrintHandler_Printers(t *testing.T) {
	f := newMemoryFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/printers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	all := decodeData[[]printingapp.PrinterResponse](t, w)
	require.Len(t, all, 2)
	assert.True(t, all[0].IsDefault)

	w = f.do(t, http.MethodGet, "/api/v1/printers?name=Label", nil)
	filtered := decodeData[[]printingapp.PrinterResponse](t, w)
	require.Len(t, filtered, 1)
	assert.Equal(t, "Label", filtered[0].Name)

	w = f.do(t, http.MethodGet, "/api/v1/printers?name=Nope", nil)
	assert.Empty(t, decodeData[[]printingapp.PrinterResponse](t, w))

	w = f.do(t, http.MethodGet, "/api/v1/printers/Office", nil)
	assert.Equal(t, "Office", decodeData[printingapp.PrinterResponse](t, w).Name)

	w = f.do(t, http.MethodGet, "/api/v1/printers/"+printing.EncodePrinterRef("Label"), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Label", decodeData[printingapp.PrinterResponse](t, w).Name)

	w = f.do(t, http.MethodGet, "/api/v1/printers/Nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/paper-sizes", nil)
	sizes := decodeData[[]printingapp.PaperSizeResponse](t, w)
	assert.Len(t, sizes, len(printing.AllPaperSizes()))
}

func TestPrintHandler_PrintAndControl(t *testing.T) {
	f := newMemoryFixture(t)
	path := f.upload(t, "job.pdf")

	w := f.do(t, http.MethodPost, "/api/v1/print-jobs", map[string]any{
		"id":                 "Office",
		"path":               path,
		"printer_setting":    "-print-settings 1-2,A4,simplex,noscale,portrait,monochrome,2x",
		"remove_after_print": true,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	submitted := decodeData[printingapp.SubmitResponse](t, w)
	assert.Equal(t, "Office", submitted.Printer)
	assert.Equal(t, 1, submitted.JobID)
	assert.True(t, submitted.Removed)
	assert.NoFileExists(t, path)

	w = f.do(t, http.MethodGet, "/api/v1/printers/Office/jobs", nil)
	require.Len(t, decodeData[[]printingapp.JobResponse](t, w), 1)

	w = f.do(t, http.MethodPost, "/api/v1/printers/Office/jobs/1/pause", nil)
	assert.Equal(t, printing.JobStatusPaused, decodeData[printingapp.JobResponse](t, w).Status)

	w = f.do(t, http.MethodPost, "/api/v1/printers/Office/jobs/1/resume", nil)
	assert.Equal(t, printing.JobStatusQueued, decodeData[printingapp.JobResponse](t, w).Status)

	w = f.do(t, http.MethodPost, "/api/v1/printers/Office/jobs/1/restart", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/jobs/ref/"+submitted.JobRef, nil)
	job := decodeData[printingapp.JobResponse](t, w)
	assert.Equal(t, 1, job.JobID)
	assert.Equal(t, "Office", job.PrinterName)

	w = f.do(t, http.MethodGet, "/api/v1/jobs", nil)
	assert.Len(t, decodeData[[]printingapp.JobResponse](t, w), 1)

	w = f.do(t, http.MethodDelete, "/api/v1/printers/Office/jobs/1", nil)
	assert.Equal(t, printing.JobStatusDeleted, decodeData[printingapp.JobResponse](t, w).Status)

	w = f.do(t, http.MethodDelete, "/api/v1/printers/Office/jobs/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, dto.ErrCodeJobNotFound, errorCode(t, w))
}

func TestPrintHandler_ControlAllJobs(t *testing.T) {
	f := newMemoryFixture(t)
	ctx := context.Background()
	for range 3 {
		_, err := f.backend.Submit(ctx, printing.SubmitRequest{Printer: "Office", Path: "/tmp/x.pdf"})
		require.NoError(t, err)
	}

	w := f.do(t, http.MethodPost, "/api/v1/jobs/pause", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	paused := decodeData[printingapp.BulkControlResponse](t, w)
	assert.Equal(t, printing.JobActionPause, paused.Action)
	require.Len(t, paused.Applied, 3)
	assert.Empty(t, paused.Skipped)
	for _, job := range paused.Applied {
		assert.Equal(t, printing.JobStatusPaused, job.Status)
		assert.NotEmpty(t, job.Ref)
	}

	w = f.do(t, http.MethodPost, "/api/v1/jobs/remove", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decodeData[printingapp.BulkControlResponse](t, w).Applied, 3)

	w = f.do(t, http.MethodGet, "/api/v1/jobs", nil)
	assert.Empty(t, decodeData[[]printingapp.JobResponse](t, w))

	w = f.do(t, http.MethodPost, "/api/v1/jobs/explode", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPrintHandler_JobRejections(t *testing.T) {
	f := newMemoryFixture(t)

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"non numeric job id", http.MethodGet, "/api/v1/printers/Office/jobs/abc", http.StatusBadRequest},
		{"zero job id", http.MethodGet, "/api/v1/printers/Office/jobs/0", http.StatusBadRequest},
		{"unknown action", http.MethodPost, "/api/v1/printers/Office/jobs/1/explode", http.StatusNotFound},
		{"remove via action", http.MethodPost, "/api/v1/printers/Office/jobs/1/remove", http.StatusNotFound},
		{"stale job", http.MethodPost, "/api/v1/printers/Office/jobs/42/pause", http.StatusNotFound},
		{"malformed ref", http.MethodGet, "/api/v1/jobs/ref/!!", http.StatusBadRequest},
		{"unknown printer", http.MethodGet, "/api/v1/printers/Nope/jobs", http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, tt.method, tt.path, nil)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestPrintHandler_PrintToOfflinePrinterKeepsFile(t *testing.T) {
	f := newMemoryFixture(t)
	path := f.upload(t, "label.pdf")

	w := f.do(t, http.MethodPost, "/api/v1/print-jobs", map[string]any{
		"id":                 "Label",
		"path":               path,
		"remove_after_print": true,
	})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, dto.ErrCodeDevice, errorCode(t, w))
	assert.FileExists(t, path)

	w = f.do(t, http.MethodPost, "/api/v1/print-jobs", map[string]any{"path": filepath.Join(f.files.Dir(), "missing.pdf")})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, dto.ErrCodeDocument, errorCode(t, w))

	w = f.do(t, http.MethodPost, "/api/v1/print-jobs", map[string]any{"id": "Office"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeValidation, errorCode(t, w))
}

func TestPrintHandler_PrintHTML(t *testing.T) {
	t.Run("disabled renderer", func(t *testing.T) {
		f := newMemoryFixture(t)
		w := f.do(t, http.MethodPost, "/api/v1/print-jobs/html", map[string]any{"html": "<p>hi</p>"})
		assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())
		assert.Equal(t, dto.ErrCodeInvalidState, errorCode(t, w))
	})

	t.Run("rendered and printed", func(t *testing.T) {
		f := newMemoryFixture(t, printingapp.WithRenderer(stubRenderer{}))
		w := f.do(t, http.MethodPost, "/api/v1/print-jobs/html", map[string]any{
			"id":    "Office",
			"html":  "<p>hi</p>",
			"title": "Greeting",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		submitted := decodeData[printingapp.SubmitResponse](t, w)
		assert.Equal(t, "Office", submitted.Printer)
		assert.True(t, submitted.Removed)

		assert.Empty(t, scratchFiles(t, f.files.Dir()))
	})
}

func TestPrintHandler_UnsupportedPlatform(t *testing.T) {
	f := newPrintFixture(t, spooler.NewUnsupportedBackend("plan9"))

	for _, path := range []string{"/api/v1/printers", "/api/v1/jobs", "/api/v1/printers/Office/jobs"} {
		w := f.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotImplemented, w.Code, path)
		assert.Equal(t, dto.ErrCodeUnsupportedPlatform, errorCode(t, w), path)
	}

	// scratch files do not depend on the print backend
	f.upload(t, "a.pdf")
}
