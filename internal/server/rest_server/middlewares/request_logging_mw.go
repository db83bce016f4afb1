package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/okieraised/smartfarm-agent/internal/constants"
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/log"
	"go.uber.org/zap"
)

// RequestLoggingMW emits one entry per request once the handler returns.
// Node routes carry node_id; errors attached to the context are listed.
func RequestLoggingMW(logger *log.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = log.Default()
	}
	return func(ctx *gin.Context) {
		began := time.Now()
		ctx.Next()

		status := ctx.Writer.Status()
		fields := make([]zap.Field, 0, 8)
		fields = append(fields,
			zap.String(constants.APIFieldRequestID, ctx.GetString(constants.APIFieldRequestID)),
			zap.String("method", ctx.Request.Method),
			zap.String("route", ctx.FullPath()),
			zap.String("path", ctx.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("took", time.Since(began)),
			zap.String("client", ctx.ClientIP()),
		)
		if id := ctx.Param("id"); id != "" {
			fields = append(fields, zap.String("node_id", id))
		}
		if len(ctx.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", ctx.Errors.Errors()))
		}

		switch {
		case status >= 500 || len(ctx.Errors) > 0:
			logger.Warn("http request", fields...)
		case ctx.IsWebsocket():
			logger.Info("websocket closed", fields...)
		default:
			logger.Debug("http request", fields...)
		}
	}
}
