package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/printbridge/backend/internal/application/command"
	"github.com/printbridge/backend/internal/interfaces/http/dto"
)

// CommandHandler exposes the command surface over HTTP. Results are written
// as text/plain exactly as the surface returns them.
type CommandHandler struct {
	BaseHandler
	surface *command.Surface
}

// NewCommandHandler creates a new CommandHandler
func NewCommandHandler(surface *command.Surface) *CommandHandler {
	return &CommandHandler{surface: surface}
}

// Invoke godoc
// @ID           invokeCommand
// @Summary      Invoke a command by name
// @Description  The body is the JSON argument object. Native commands answer "Unsupported OS" on hosts without a print backend.
// @Tags         commands
// @Accept       json
// @Produce      plain
// @Param        name path string true "Command name"
// @Success      200 {string} string
// @Failure      400 {object} ErrorResponse
// @Router       /commands/{name} [post]
func (h *CommandHandler) Invoke(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodePayloadTooLarge, "Request body too large")
			return
		}
		h.BadRequest(c, "Request body could not be read")
		return
	}
	out, err := h.surface.Invoke(c.Request.Context(), c.Param("name"), body)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	c.String(http.StatusOK, out)
}

// ListCommands godoc
// @ID           listCommands
// @Summary      List commands with the JSON Schema of their arguments
// @Tags         commands
// @Produce      json
// @Success      200 {object} APIResponse[[]command.Descriptor]
// @Router       /commands [get]
func (h *CommandHandler) ListCommands(c *gin.Context) {
	commands := h.surface.Commands()
	h.List(c, commands, len(commands))
}
