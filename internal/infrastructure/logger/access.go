package logger

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// AccessLog stores a request logger tagged with the request id, method and
// path in the request context, then writes one access line per request.
// Server errors log at error level, client errors at warn.
func AccessLog(base *zap.Logger, requestID func(*gin.Context) string) gin.HandlerFunc {
	base = OrNop(base)
	return func(c *gin.Context) {
		start := time.Now()
		reqLog := base.With(
			zap.String("request_id", requestID(c)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		c.Request = c.Request.WithContext(WithContext(c.Request.Context(), reqLog))

		c.Next()

		status := c.Writer.Status()
		level := zapcore.InfoLevel
		switch {
		case status >= http.StatusInternalServerError:
			level = zapcore.ErrorLevel
		case status >= http.StatusBadRequest:
			level = zapcore.WarnLevel
		}

		// the subject is only known once authentication ran
		reqLog = FromContext(c.Request.Context())
		if ce := WithTraceContext(c.Request.Context(), reqLog).Check(level, "request"); ce != nil {
			fields := []zap.Field{
				zap.Int("status", status),
				zap.Duration("latency", time.Since(start)),
				zap.String("client_ip", c.ClientIP()),
				zap.Int("bytes", c.Writer.Size()),
			}
			if q := c.Request.URL.RawQuery; q != "" {
				fields = append(fields, zap.String("query", q))
			}
			if len(c.Errors) > 0 {
				fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
			}
			ce.Write(fields...)
		}
	}
}

// Recovery turns a handler panic into a 500 and logs it with the request
// logger when AccessLog already ran
func Recovery(base *zap.Logger) gin.HandlerFunc {
	base = OrNop(base)
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log := base
				if _, ok := c.Request.Context().Value(loggerKey).(*zap.Logger); ok {
					log = FromContext(c.Request.Context())
				}
				log.Error("panic recovered", zap.Any("panic", r), zap.Stack("stacktrace"))
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}
