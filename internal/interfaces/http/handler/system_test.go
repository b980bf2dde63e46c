package handler

import (
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type fakeBackendInfo struct {
	name      string
	supported bool
}

func (f fakeBackendInfo) Backend() string { return f.name }
func (f fakeBackendInfo) Supported() bool { return f.supported }

func TestNewSystemHandler(t *testing.T) {
	h := NewSystemHandler(fakeBackendInfo{name: "cups", supported: true})
	assert.NotNil(t, h)
	assert.False(t, h.startTime.IsZero())
	assert.Equal(t, runtime.GOOS, h.goos)
}

func TestSystemHandler_Health(t *testing.T) {
	tests := []struct {
		name    string
		backend fakeBackendInfo
	}{
		{"supported", fakeBackendInfo{name: "cups", supported: true}},
		{"unsupported", fakeBackendInfo{name: "unsupported", supported: false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSystemHandler(tt.backend)
			h.goos = "plan9"

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

			h.Health(c)

			assert.Equal(t, http.StatusOK, w.Code)
			health := decodeData[HealthResponse](t, w)
			assert.Equal(t, "ok", health.Status)
			assert.Equal(t, "plan9", health.Platform)
			assert.Equal(t, tt.backend.name, health.Backend)
			assert.Equal(t, tt.backend.supported, health.Supported)
			assert.Equal(t, Version, health.Version)
			assert.NotEmpty(t, health.GoVersion)
		})
	}
}

func TestSystemHandler_Ping(t *testing.T) {
	h := NewSystemHandler(fakeBackendInfo{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/ping", nil)

	h.Ping(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", decodeData[PingResponse](t, w).Message)
}
