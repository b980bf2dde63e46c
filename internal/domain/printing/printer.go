package printing

import (
	"encoding/base64"
	"strings"
)

// PrinterInfo is a read-only snapshot of one installed printer, taken from
// the native spooler at query time. A printer has no identity beyond its name.
type PrinterInfo struct {
	Name      string        `json:"name"`
	Status    PrinterStatus `json:"status"`
	IsDefault bool          `json:"is_default"`
	Port      string        `json:"port"`
	Driver    string        `json:"driver"`

	// Optional native detail, filled in when the backend reports it
	Description    string `json:"description,omitempty"`
	Location       string `json:"location,omitempty"`
	JobCount       int    `json:"job_count"`
	Shared         bool   `json:"shared"`
	ShareName      string `json:"share_name,omitempty"`
	ComputerName   string `json:"computer_name,omitempty"`
	PrintProcessor string `json:"print_processor,omitempty"`
	Type           string `json:"type,omitempty"`
	Priority       int    `json:"priority,omitempty"`
}

// NameMatcher decides whether a printer name matches a query, following the
// case rules of the native directory service.
type NameMatcher func(printerName, query string) bool

// ExactNameMatcher compares names byte for byte
func ExactNameMatcher(printerName, query string) bool {
	return printerName == query
}

// FilterByName returns the printers whose name matches query. The result
// preserves the order of printers and is always a subset of it.
func FilterByName(printers []PrinterInfo, query string, match NameMatcher) []PrinterInfo {
	if match == nil {
		match = ExactNameMatcher
	}
	out := make([]PrinterInfo, 0, 1)
	for _, p := range printers {
		if match(p.Name, query) {
			out = append(out, p)
		}
	}
	return out
}

// DefaultPrinter returns the printer flagged as the system default
func DefaultPrinter(printers []PrinterInfo) (PrinterInfo, bool) {
	for _, p := range printers {
		if p.IsDefault {
			return p, true
		}
	}
	return PrinterInfo{}, false
}

// EncodePrinterRef returns the opaque printer reference handed to frontends
func EncodePrinterRef(name string) string {
	return base64.StdEncoding.EncodeToString([]byte(name))
}

// DecodePrinterRef reverses EncodePrinterRef
func DecodePrinterRef(ref string) (string, bool) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(ref))
	if err != nil || len(raw) == 0 {
		return "", false
	}
	return string(raw), true
}
