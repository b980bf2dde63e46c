package spooler

import "golang.org/x/text/cases"

// foldedNameMatch compares printer names the way CUPS and the Windows print
// spooler do: case-insensitively, with full Unicode case folding.
func foldedNameMatch(printerName, query string) bool {
	// A Caser carries state, so each comparison gets its own.
	fold := cases.Fold()
	return fold.String(printerName) == fold.String(query)
}
