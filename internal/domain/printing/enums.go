package printing

import "strings"

// JobStatus is the normalized status of a job in a native print queue.
// The native spooler owns the state machine; this type only describes it.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "QUEUED"
	JobStatusPrinting  JobStatus = "PRINTING"
	JobStatusPaused    JobStatus = "PAUSED"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusError     JobStatus = "ERROR"
	JobStatusDeleted   JobStatus = "DELETED"
)

// IsValid checks if the JobStatus is a valid value
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusQueued, JobStatusPrinting, JobStatusPaused,
		JobStatusCompleted, JobStatusError, JobStatusDeleted:
		return true
	}
	return false
}

// String returns the string representation of JobStatus
func (s JobStatus) String() string {
	return string(s)
}

// IsTerminal returns true once the job has left the queue
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusDeleted
}

// CanTransitionTo checks if the spooler can move a job from s to target
func (s JobStatus) CanTransitionTo(target JobStatus) bool {
	switch s {
	case JobStatusQueued:
		return target == JobStatusPrinting || target == JobStatusPaused || target == JobStatusDeleted
	case JobStatusPrinting:
		switch target {
		case JobStatusCompleted, JobStatusPaused, JobStatusError, JobStatusDeleted, JobStatusQueued:
			return true
		}
	case JobStatusPaused:
		return target == JobStatusQueued || target == JobStatusDeleted
	case JobStatusError:
		return target == JobStatusQueued || target == JobStatusDeleted
	case JobStatusCompleted, JobStatusDeleted:
		return false
	}
	return false
}

// JobAction is a job-control primitive offered by the native spooler
type JobAction string

const (
	JobActionPause   JobAction = "PAUSE"
	JobActionResume  JobAction = "RESUME"
	JobActionRestart JobAction = "RESTART"
	JobActionRemove  JobAction = "REMOVE"
)

// IsValid checks if the JobAction is a valid value
func (a JobAction) IsValid() bool {
	switch a {
	case JobActionPause, JobActionResume, JobActionRestart, JobActionRemove:
		return true
	}
	return false
}

// String returns the string representation of JobAction
func (a JobAction) String() string {
	return string(a)
}

// Apply returns the status a job in status from ends up in after the action.
// The second result is false when the job is no longer in the queue.
func (a JobAction) Apply(from JobStatus) (JobStatus, bool) {
	if from.IsTerminal() {
		return from, false
	}
	switch a {
	case JobActionPause:
		return JobStatusPaused, true
	case JobActionResume:
		if from == JobStatusPaused {
			return JobStatusQueued, true
		}
		return from, true
	case JobActionRestart:
		return JobStatusQueued, true
	case JobActionRemove:
		return JobStatusDeleted, true
	}
	return from, false
}

// AllJobActions returns all valid JobAction values
func AllJobActions() []JobAction {
	return []JobAction{JobActionPause, JobActionResume, JobActionRestart, JobActionRemove}
}

// PrinterStatus is the normalized state of a printer queue
type PrinterStatus string

const (
	PrinterStatusIdle     PrinterStatus = "IDLE"
	PrinterStatusPrinting PrinterStatus = "PRINTING"
	PrinterStatusPaused   PrinterStatus = "PAUSED"
	PrinterStatusError    PrinterStatus = "ERROR"
	PrinterStatusOffline  PrinterStatus = "OFFLINE"
	PrinterStatusUnknown  PrinterStatus = "UNKNOWN"
)

// String returns the string representation of PrinterStatus
func (s PrinterStatus) String() string {
	return string(s)
}

// AcceptsJobs reports whether a submission to a printer in this state can succeed
func (s PrinterStatus) AcceptsJobs() bool {
	return s != PrinterStatusOffline && s != PrinterStatusError
}

// PaperSize is a paper name understood by the native print pipeline
type PaperSize string

const (
	PaperSizeA2      PaperSize = "A2"
	PaperSizeA3      PaperSize = "A3"
	PaperSizeA4      PaperSize = "A4"
	PaperSizeA5      PaperSize = "A5"
	PaperSizeA6      PaperSize = "A6"
	PaperSizeLetter  PaperSize = "letter"
	PaperSizeLegal   PaperSize = "legal"
	PaperSizeTabloid PaperSize = "tabloid"
)

// AllPaperSizes returns all valid PaperSize values
func AllPaperSizes() []PaperSize {
	return []PaperSize{
		PaperSizeA2, PaperSizeA3, PaperSizeA4, PaperSizeA5, PaperSizeA6,
		PaperSizeLetter, PaperSizeLegal, PaperSizeTabloid,
	}
}

// ParsePaperSize matches a paper name case-insensitively
func ParsePaperSize(s string) (PaperSize, bool) {
	for _, p := range AllPaperSizes() {
		if strings.EqualFold(string(p), s) {
			return p, true
		}
	}
	return "", false
}

// IsValid checks if the PaperSize is a valid value
func (p PaperSize) IsValid() bool {
	_, ok := ParsePaperSize(string(p))
	return ok
}

// String returns the string representation of PaperSize
func (p PaperSize) String() string {
	return string(p)
}

// Dimensions returns the paper dimensions in millimeters (width, height)
func (p PaperSize) Dimensions() (width, height int) {
	switch p {
	case PaperSizeA2:
		return 420, 594
	case PaperSizeA3:
		return 297, 420
	case PaperSizeA5:
		return 148, 210
	case PaperSizeA6:
		return 105, 148
	case PaperSizeLetter:
		return 216, 279
	case PaperSizeLegal:
		return 216, 356
	case PaperSizeTabloid:
		return 279, 432
	default:
		return 210, 297
	}
}

// CUPSMedia returns the IPP media keyword for the paper size
func (p PaperSize) CUPSMedia() string {
	switch p {
	case PaperSizeLetter:
		return "Letter"
	case PaperSizeLegal:
		return "Legal"
	case PaperSizeTabloid:
		return "Tabloid"
	default:
		return string(p)
	}
}

// DuplexMethod selects single or double sided output
type DuplexMethod string

const (
	DuplexSimplex     DuplexMethod = "simplex"
	DuplexDuplex      DuplexMethod = "duplex"
	DuplexDuplexShort DuplexMethod = "duplexshort"
	DuplexDuplexLong  DuplexMethod = "duplexlong"
)

// IsValid checks if the DuplexMethod is a valid value
func (d DuplexMethod) IsValid() bool {
	switch d {
	case DuplexSimplex, DuplexDuplex, DuplexDuplexShort, DuplexDuplexLong:
		return true
	}
	return false
}

// CUPSSides returns the IPP sides keyword
func (d DuplexMethod) CUPSSides() string {
	switch d {
	case DuplexDuplex, DuplexDuplexLong:
		return "two-sided-long-edge"
	case DuplexDuplexShort:
		return "two-sided-short-edge"
	default:
		return "one-sided"
	}
}

// ScaleMode controls how pages are fitted to the paper
type ScaleMode string

const (
	ScaleNone   ScaleMode = "noscale"
	ScaleShrink ScaleMode = "shrink"
	ScaleFit    ScaleMode = "fit"
)

// IsValid checks if the ScaleMode is a valid value
func (s ScaleMode) IsValid() bool {
	switch s {
	case ScaleNone, ScaleShrink, ScaleFit:
		return true
	}
	return false
}

// Orientation represents the page orientation for printing
type Orientation string

const (
	OrientationPortrait  Orientation = "portrait"
	OrientationLandscape Orientation = "landscape"
)

// IsValid checks if the Orientation is a valid value
func (o Orientation) IsValid() bool {
	switch o {
	case OrientationPortrait, OrientationLandscape:
		return true
	}
	return false
}

// String returns the string representation of Orientation
func (o Orientation) String() string {
	return string(o)
}

// ColorMode selects color or grayscale output
type ColorMode string

const (
	ColorModeColor      ColorMode = "color"
	ColorModeMonochrome ColorMode = "monochrome"
)

// IsValid checks if the ColorMode is a valid value
func (c ColorMode) IsValid() bool {
	return c == ColorModeColor || c == ColorModeMonochrome
}
