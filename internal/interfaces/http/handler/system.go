package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/printbridge/backend/internal/interfaces/http/dto"
)

// Version is the build version reported by the health endpoints
var Version = "dev"

// BackendInfo is what the system handler needs to know about the print backend
type BackendInfo interface {
	Backend() string
	Supported() bool
}

// SystemHandler serves health and build information
type SystemHandler struct {
	BaseHandler
	backend   BackendInfo
	goos      string
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(backend BackendInfo) *SystemHandler {
	return &SystemHandler{
		backend:   backend,
		goos:      runtime.GOOS,
		startTime: time.Now(),
	}
}

// HealthResponse reports the platform and the print backend selected for it
// @name HandlerHealthResponse
type HealthResponse struct {
	Status    string `json:"status" example:"ok"`
	Platform  string `json:"platform" example:"linux"`
	Backend   string `json:"backend" example:"cups"`
	Supported bool   `json:"supported" example:"true"`
	Version   string `json:"version" example:"1.0.0"`
	GoVersion string `json:"go_version" example:"go1.25.5"`
	Uptime    string `json:"uptime" example:"1h30m45s"`
}

// Health godoc
// @ID           getHealth
// @Summary      Health check
// @Description  Reports the host platform and whether it has a native print backend
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[HealthResponse]
// @Router       /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(HealthResponse{
		Status:    "ok",
		Platform:  h.goos,
		Backend:   h.backend.Backend(),
		Supported: h.backend.Supported(),
		Version:   Version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}))
}

// PingResponse represents the ping response
// @name HandlerPingResponse
type PingResponse struct {
	Message   string `json:"message" example:"pong"`
	Timestamp string `json:"timestamp" example:"2026-01-23T12:00:00Z"`
}

// Ping godoc
// @ID           pingSystem
// @Summary      Ping the API
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[PingResponse]
// @Router       /ping [get]
func (h *SystemHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(PingResponse{
		Message:   "pong",
		Timestamp: time.Now().Format(time.RFC3339),
	}))
}
