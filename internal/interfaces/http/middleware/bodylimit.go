package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/printbridge/backend/internal/interfaces/http/dto"
)

// BodyLimit caps request bodies at maxBytes. Uploads arrive base64 encoded
// inside JSON, so the cap applies to the encoded size. A declared length over
// the cap is rejected up front; chunked bodies fail with *http.MaxBytesError
// once the handler reads past it. maxBytes <= 0 disables the limit.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	if maxBytes <= 0 {
		return passthrough
	}
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponseWithRequestID(
				dto.ErrCodePayloadTooLarge,
				fmt.Sprintf("Request body exceeds %d bytes", maxBytes),
				RequestIDFrom(c),
			))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
