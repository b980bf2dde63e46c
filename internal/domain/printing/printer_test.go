package printing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePrinters() []PrinterInfo {
	return []PrinterInfo{
		{Name: "Office", Status: PrinterStatusIdle, IsDefault: true},
		{Name: "office", Status: PrinterStatusIdle},
		{Name: "Label", Status: PrinterStatusOffline},
	}
}

func TestFilterByName_ExactIsSubset(t *testing.T) {
	all := samplePrinters()
	got := FilterByName(all, "Office", ExactNameMatcher)
	require.Len(t, got, 1)
	assert.Equal(t, "Office", got[0].Name)

	for _, p := range got {
		assert.Contains(t, all, p)
	}
}

func TestFilterByName_CustomMatcher(t *testing.T) {
	got := FilterByName(samplePrinters(), "OFFICE", strings.EqualFold)
	assert.Len(t, got, 2)
}

func TestFilterByName_NoMatchIsEmptyNotNil(t *testing.T) {
	got := FilterByName(samplePrinters(), "Missing", nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDefaultPrinter(t *testing.T) {
	p, ok := DefaultPrinter(samplePrinters())
	assert.True(t, ok)
	assert.Equal(t, "Office", p.Name)

	_, ok = DefaultPrinter(nil)
	assert.False(t, ok)
}

func TestPrinterRef(t *testing.T) {
	ref := EncodePrinterRef("HP LaserJet")
	name, ok := DecodePrinterRef(ref)
	assert.True(t, ok)
	assert.Equal(t, "HP LaserJet", name)

	_, ok = DecodePrinterRef("%%%")
	assert.False(t, ok)
}

func TestJobRef(t *testing.T) {
	ref := EncodeJobRef("Office_@_2", 42)
	printer, id, ok := DecodeJobRef(ref)
	require.True(t, ok)
	assert.Equal(t, "Office_@_2", printer)
	assert.Equal(t, 42, id)

	job := JobInfo{JobID: 7, PrinterName: "Label"}
	printer, id, ok = DecodeJobRef(job.Ref())
	require.True(t, ok)
	assert.Equal(t, "Label", printer)
	assert.Equal(t, 7, id)

	_, _, ok = DecodeJobRef(EncodePrinterRef("no separator"))
	assert.False(t, ok)
	_, _, ok = DecodeJobRef(EncodePrinterRef("Office_@_abc"))
	assert.False(t, ok)
}
