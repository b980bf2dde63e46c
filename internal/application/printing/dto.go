package printing

import (
	"time"

	"github.com/printbridge/backend/internal/domain/printing"
)

// =============================================================================
// Temp File DTOs
// =============================================================================

// CreateTempFileRequest carries a base64 document to store in scratch space
type CreateTempFileRequest struct {
	BufferData string `json:"buffer_data" binding:"required"`
	Filename   string `json:"filename" binding:"required,safefilename"`
}

// TempFileResponse is the stored scratch file
type TempFileResponse struct {
	Path string `json:"path"`
}

// =============================================================================
// Print DTOs
// =============================================================================

// PrintPDFRequest submits a PDF already on disk
type PrintPDFRequest struct {
	// ID names the destination printer and tracks the request; empty selects
	// the default printer
	ID               string `json:"id" binding:"omitempty,max=512"`
	Path             string `json:"path" binding:"required"`
	PrinterSetting   string `json:"printer_setting" binding:"omitempty,max=256"`
	RemoveAfterPrint bool   `json:"remove_after_print"`
}

// Options converts the request into domain print options
func (r PrintPDFRequest) Options() printing.PrintOptions {
	return printing.PrintOptions{
		ID:               r.ID,
		Path:             r.Path,
		PrintSetting:     r.PrinterSetting,
		RemoveAfterPrint: r.RemoveAfterPrint,
	}
}

// PrintHTMLRequest renders HTML to a scratch PDF and prints it
type PrintHTMLRequest struct {
	ID             string `json:"id" binding:"omitempty,max=512"`
	HTML           string `json:"html" binding:"required"`
	Title          string `json:"title" binding:"omitempty,max=200"`
	HeaderHTML     string `json:"header_html"`
	FooterHTML     string `json:"footer_html"`
	PrinterSetting string `json:"printer_setting" binding:"omitempty,max=256"`
}

// SubmitResponse is an accepted submission
type SubmitResponse struct {
	ID       string    `json:"id"`
	Printer  string    `json:"printer"`
	JobID    int       `json:"job_id"`
	JobRef   string    `json:"job_ref,omitempty"`
	Accepted time.Time `json:"accepted"`
	Pages    int       `json:"pages"`
	Removed  bool      `json:"removed"`
}

// ToSubmitResponse converts a backend result
func ToSubmitResponse(r *printing.SubmitResult) *SubmitResponse {
	resp := &SubmitResponse{
		ID:       r.ID,
		Printer:  r.Printer,
		JobID:    r.JobID,
		Accepted: r.Accepted,
		Pages:    r.Pages,
		Removed:  r.Removed,
	}
	if r.JobID > 0 {
		resp.JobRef = printing.EncodeJobRef(r.Printer, r.JobID)
	}
	return resp
}

// =============================================================================
// Printer and Job DTOs
// =============================================================================

// PrinterResponse is a printer snapshot with its opaque reference
type PrinterResponse struct {
	printing.PrinterInfo
	Ref string `json:"ref"`
}

// ToPrinterResponses attaches references to printer snapshots
func ToPrinterResponses(printers []printing.PrinterInfo) []PrinterResponse {
	out := make([]PrinterResponse, len(printers))
	for i, p := range printers {
		out[i] = PrinterResponse{PrinterInfo: p, Ref: printing.EncodePrinterRef(p.Name)}
	}
	return out
}

// JobResponse is a queue entry with its opaque reference
type JobResponse struct {
	printing.JobInfo
	Ref string `json:"ref"`
}

// ToJobResponse attaches a reference to a job snapshot
func ToJobResponse(j *printing.JobInfo) *JobResponse {
	return &JobResponse{JobInfo: *j, Ref: j.Ref()}
}

// ToJobResponses attaches references to job snapshots
func ToJobResponses(jobs []printing.JobInfo) []JobResponse {
	out := make([]JobResponse, len(jobs))
	for i := range jobs {
		out[i] = *ToJobResponse(&jobs[i])
	}
	return out
}

// BulkControlResult is the outcome of ControlAllJobs. Applied holds the
// post-control snapshots, Skipped the listed jobs that were gone by then.
type BulkControlResult struct {
	Action  printing.JobAction
	Applied []printing.JobInfo
	Skipped []printing.JobInfo
}

// BulkControlResponse is the HTTP shape of BulkControlResult
type BulkControlResponse struct {
	Action  printing.JobAction `json:"action"`
	Applied []JobResponse      `json:"applied"`
	Skipped []JobResponse      `json:"skipped"`
}

// ToBulkControlResponse attaches references to both job lists
func ToBulkControlResponse(r *BulkControlResult) *BulkControlResponse {
	return &BulkControlResponse{
		Action:  r.Action,
		Applied: ToJobResponses(r.Applied),
		Skipped: ToJobResponses(r.Skipped),
	}
}

// PaperSizeResponse describes a supported paper size
type PaperSizeResponse struct {
	Code   string `json:"code"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}
