package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	printingapp "github.com/printbridge/backend/internal/application/printing"
	"github.com/printbridge/backend/internal/domain/printing"
	"github.com/printbridge/backend/internal/domain/shared"
)

// PrintHandler exposes the print service as typed REST endpoints
type PrintHandler struct {
	BaseHandler
	printService *printingapp.PrintService
}

// NewPrintHandler creates a new PrintHandler
func NewPrintHandler(printService *printingapp.PrintService) *PrintHandler {
	return &PrintHandler{
		printService: printService,
	}
}

// =============================================================================
// Temp Files
// =============================================================================

// CreateTempFile godoc
// @ID           createTempFile
// @Summary      Store a base64 document in scratch space
// @Tags         temp-files
// @Accept       json
// @Produce      json
// @Param        request body printingapp.CreateTempFileRequest true "Document"
// @Success      201 {object} APIResponse[printingapp.TempFileResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /temp-files [post]
func (h *PrintHandler) CreateTempFile(c *gin.Context) {
	var req printingapp.CreateTempFileRequest
	if !h.BindJSON(c, &req) {
		return
	}
	resp, err := h.printService.CreateTempFile(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, resp)
}

// RemoveTempFile godoc
// @ID           removeTempFile
// @Summary      Delete a scratch file
// @Tags         temp-files
// @Param        filename path string true "File name"
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Router       /temp-files/{filename} [delete]
func (h *PrintHandler) RemoveTempFile(c *gin.Context) {
	if err := h.printService.RemoveTempFile(c.Request.Context(), c.Param("filename")); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.NoContent(c)
}

// =============================================================================
// Printers
// =============================================================================

// ListPrinters godoc
// @ID           listPrinters
// @Summary      List installed printers
// @Description  With ?name= only printers whose name matches are returned
// @Tags         printers
// @Produce      json
// @Param        name query string false "Printer name"
// @Success      200 {object} APIResponse[[]printingapp.PrinterResponse]
// @Failure      501 {object} ErrorResponse
// @Router       /printers [get]
func (h *PrintHandler) ListPrinters(c *gin.Context) {
	var (
		printers []printing.PrinterInfo
		err      error
	)
	if name, ok := c.GetQuery("name"); ok {
		printers, err = h.printService.GetPrintersByName(c.Request.Context(), name)
	} else {
		printers, err = h.printService.ListPrinters(c.Request.Context())
	}
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.List(c, printingapp.ToPrinterResponses(printers), len(printers))
}

// GetPrinter godoc
// @ID           getPrinter
// @Summary      Get one printer by name or reference
// @Tags         printers
// @Produce      json
// @Param        name path string true "Printer name or reference"
// @Success      200 {object} APIResponse[printingapp.PrinterResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /printers/{name} [get]
func (h *PrintHandler) GetPrinter(c *gin.Context) {
	ctx := c.Request.Context()
	name := c.Param("name")
	printers, err := h.printService.GetPrintersByName(ctx, name)
	if err == nil && len(printers) == 0 {
		if decoded, ok := printing.DecodePrinterRef(name); ok {
			printers, err = h.printService.GetPrintersByName(ctx, decoded)
		}
	}
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	if len(printers) == 0 {
		h.NotFound(c, "Printer "+strconv.Quote(name)+" not found")
		return
	}
	h.Success(c, printingapp.ToPrinterResponses(printers[:1])[0])
}

// PaperSizes godoc
// @ID           listPaperSizes
// @Summary      List paper sizes accepted in print settings
// @Tags         printers
// @Produce      json
// @Success      200 {object} APIResponse[[]printingapp.PaperSizeResponse]
// @Router       /paper-sizes [get]
func (h *PrintHandler) PaperSizes(c *gin.Context) {
	h.Success(c, h.printService.PaperSizes())
}

// =============================================================================
// Print Jobs
// =============================================================================

// PrintPDF godoc
// @ID           printPDF
// @Summary      Submit a PDF on disk to a printer
// @Description  Blocks until the spooler accepts the job
// @Tags         print-jobs
// @Accept       json
// @Produce      json
// @Param        request body printingapp.PrintPDFRequest true "Print request"
// @Success      201 {object} APIResponse[printingapp.SubmitResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Failure      501 {object} ErrorResponse
// @Router       /print-jobs [post]
func (h *PrintHandler) PrintPDF(c *gin.Context) {
	var req printingapp.PrintPDFRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.printService.PrintPDF(c.Request.Context(), req.Options())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, printingapp.ToSubmitResponse(result))
}

// PrintHTML godoc
// @ID           printHTML
// @Summary      Render HTML to PDF and print it
// @Tags         print-jobs
// @Accept       json
// @Produce      json
// @Param        request body printingapp.PrintHTMLRequest true "HTML print request"
// @Success      201 {object} APIResponse[printingapp.SubmitResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /print-jobs/html [post]
func (h *PrintHandler) PrintHTML(c *gin.Context) {
	var req printingapp.PrintHTMLRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.printService.PrintHTML(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, printingapp.ToSubmitResponse(result))
}

// =============================================================================
// Job Queue
// =============================================================================

// ListAllJobs godoc
// @ID           listAllJobs
// @Summary      List the queues of every printer
// @Tags         jobs
// @Produce      json
// @Success      200 {object} APIResponse[[]printingapp.JobResponse]
// @Router       /jobs [get]
func (h *PrintHandler) ListAllJobs(c *gin.Context) {
	jobs, err := h.printService.ListAllJobs(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.List(c, printingapp.ToJobResponses(jobs), len(jobs))
}

// ListJobs godoc
// @ID           listPrinterJobs
// @Summary      List the queue of one printer
// @Tags         jobs
// @Produce      json
// @Param        name path string true "Printer name"
// @Success      200 {object} APIResponse[[]printingapp.JobResponse]
// @Failure      502 {object} ErrorResponse
// @Router       /printers/{name}/jobs [get]
func (h *PrintHandler) ListJobs(c *gin.Context) {
	jobs, err := h.printService.ListJobs(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.List(c, printingapp.ToJobResponses(jobs), len(jobs))
}

// GetJob godoc
// @ID           getPrinterJob
// @Summary      Get one queued job
// @Tags         jobs
// @Produce      json
// @Param        name path string true "Printer name"
// @Param        jobId path int true "Job id"
// @Success      200 {object} APIResponse[printingapp.JobResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /printers/{name}/jobs/{jobId} [get]
func (h *PrintHandler) GetJob(c *gin.Context) {
	jobID, ok := h.jobID(c)
	if !ok {
		return
	}
	job, err := h.printService.GetJob(c.Request.Context(), c.Param("name"), jobID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, printingapp.ToJobResponse(job))
}

// GetJobByRef godoc
// @ID           getJobByRef
// @Summary      Get a job by its reference
// @Tags         jobs
// @Produce      json
// @Param        ref path string true "Job reference"
// @Success      200 {object} APIResponse[printingapp.JobResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /jobs/ref/{ref} [get]
func (h *PrintHandler) GetJobByRef(c *gin.Context) {
	job, err := h.printService.GetJobByRef(c.Request.Context(), c.Param("ref"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, printingapp.ToJobResponse(job))
}

// ControlJob godoc
// @ID           controlPrinterJob
// @Summary      Pause, resume or restart a job
// @Tags         jobs
// @Produce      json
// @Param        name path string true "Printer name"
// @Param        jobId path int true "Job id"
// @Param        action path string true "pause, resume or restart"
// @Success      200 {object} APIResponse[printingapp.JobResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /printers/{name}/jobs/{jobId}/{action} [post]
func (h *PrintHandler) ControlJob(c *gin.Context) {
	action := printing.JobAction(strings.ToUpper(c.Param("action")))
	if !action.IsValid() || action == printing.JobActionRemove {
		h.NotFound(c, "Unknown job action "+strconv.Quote(c.Param("action")))
		return
	}
	h.control(c, action)
}

// ControlAllJobs godoc
// @ID           controlAllJobs
// @Summary      Apply a job action to every job of every printer
// @Tags         jobs
// @Produce      json
// @Param        action path string true "pause, resume, restart or remove"
// @Success      200 {object} APIResponse[printingapp.BulkControlResponse]
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /jobs/{action} [post]
func (h *PrintHandler) ControlAllJobs(c *gin.Context) {
	action := printing.JobAction(strings.ToUpper(c.Param("action")))
	if !action.IsValid() {
		h.NotFound(c, "Unknown job action "+strconv.Quote(c.Param("action")))
		return
	}
	result, err := h.printService.ControlAllJobs(c.Request.Context(), action)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, printingapp.ToBulkControlResponse(result))
}

// RemoveJob godoc
// @ID           removePrinterJob
// @Summary      Cancel a job and take it out of the queue
// @Tags         jobs
// @Produce      json
// @Param        name path string true "Printer name"
// @Param        jobId path int true "Job id"
// @Success      200 {object} APIResponse[printingapp.JobResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /printers/{name}/jobs/{jobId} [delete]
func (h *PrintHandler) RemoveJob(c *gin.Context) {
	h.control(c, printing.JobActionRemove)
}

func (h *PrintHandler) control(c *gin.Context, action printing.JobAction) {
	jobID, ok := h.jobID(c)
	if !ok {
		return
	}
	job, err := h.printService.ControlJob(c.Request.Context(), c.Param("name"), jobID, action)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, printingapp.ToJobResponse(job))
}

// jobID parses the :jobId path parameter
func (h *PrintHandler) jobID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("jobId"))
	if err != nil || id <= 0 {
		h.HandleDomainError(c, shared.NewDomainError(shared.ErrInvalidInput.Code, "Job id must be a positive integer"))
		return 0, false
	}
	return id, true
}

