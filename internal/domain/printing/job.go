package printing

import (
	"encoding/base64"
	"strconv"
	"strings"
	"time"
)

// JobRefSeparator joins printer name and job id inside a job reference
const JobRefSeparator = "_@_"

// JobInfo is a snapshot of one entry in a printer queue. It changes only
// through native job-control calls.
type JobInfo struct {
	JobID         int       `json:"job_id"`
	PrinterName   string    `json:"printer_name"`
	DocumentName  string    `json:"document_name"`
	Status        JobStatus `json:"status"`
	Owner         string    `json:"owner"`
	SubmittedTime time.Time `json:"submitted_time"`

	// StatusCode carries the raw native status when the backend exposes one
	StatusCode   int    `json:"status_code,omitempty"`
	StatusText   string `json:"status_text,omitempty"`
	PagesPrinted int    `json:"pages_printed,omitempty"`
	TotalPages   int    `json:"total_pages,omitempty"`
	Size         int64  `json:"size,omitempty"`
	Priority     int    `json:"priority,omitempty"`
	Position     int    `json:"position,omitempty"`
	DataType     string `json:"data_type,omitempty"`
	ComputerName string `json:"computer_name,omitempty"`
}

// Ref returns the opaque reference for the job
func (j JobInfo) Ref() string {
	return EncodeJobRef(j.PrinterName, j.JobID)
}

// EncodeJobRef builds base64("<printer>_@_<id>")
func EncodeJobRef(printer string, jobID int) string {
	return base64.StdEncoding.EncodeToString([]byte(printer + JobRefSeparator + strconv.Itoa(jobID)))
}

// DecodeJobRef splits a job reference back into printer name and job id
func DecodeJobRef(ref string) (printer string, jobID int, ok bool) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(ref))
	if err != nil {
		return "", 0, false
	}
	s := string(raw)
	i := strings.LastIndex(s, JobRefSeparator)
	if i <= 0 {
		return "", 0, false
	}
	id, err := strconv.Atoi(s[i+len(JobRefSeparator):])
	if err != nil || id <= 0 {
		return "", 0, false
	}
	return s[:i], id, true
}
