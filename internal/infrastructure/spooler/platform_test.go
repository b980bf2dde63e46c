package spooler

import (
	"testing"

	"github.com/printbridge/backend/internal/domain/printing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DetectsPlatform(t *testing.T) {
	tests := []struct {
		goos      string
		want      string
		supported bool
	}{
		{"linux", "cups", true},
		{"darwin", "cups", true},
		{"freebsd", "cups", true},
		{"windows", "windows", true},
		{"plan9", "unsupported", false},
		{"js", "unsupported", false},
	}
	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			backend, err := New(Config{}, tt.goos, newFakeRunner(), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, backend.Name())
			assert.Equal(t, tt.supported, backend.Supported())
		})
	}
}

func TestNew_Override(t *testing.T) {
	backend, err := New(Config{
		Backend:        " Memory ",
		MemoryPrinters: []MemoryPrinter{{Name: "Sim", IsDefault: true}},
	}, "windows", nil, nil)
	require.NoError(t, err)
	require.IsType(t, &MemoryBackend{}, backend)

	backend, err = New(Config{Backend: BackendUnsupported}, "linux", nil, nil)
	require.NoError(t, err)
	assert.False(t, backend.Supported())
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := New(Config{Backend: "lpd"}, "linux", nil, nil)
	assert.Error(t, err)
}

func TestNew_InheritsCommandTimeout(t *testing.T) {
	backend, err := New(Config{Backend: BackendCUPS, CommandTimeout: 5e9}, "linux", newFakeRunner(), nil)
	require.NoError(t, err)
	cups, ok := backend.(*CUPSBackend)
	require.True(t, ok)
	assert.Equal(t, float64(5), cups.config.Timeout.Seconds())
}

func TestCheckTools(t *testing.T) {
	assert.NoError(t, CheckTools(NewMemoryBackend(nil, nil)))

	cups := NewCUPSBackend(CUPSConfig{LPPath: "/nonexistent/lp"}, newFakeRunner(), nil)
	assert.Error(t, CheckTools(cups))

	var _ printing.PrintBackend = cups
}
