package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/okieraised/smartfarm-agent/internal/constants"
)

// RequestIDMW reuses the caller's X-Request-ID when present and echoes the
// id back on the response.
func RequestIDMW() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		requestID := ctx.GetHeader(constants.HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		ctx.Set(constants.APIFieldRequestID, requestID)
		ctx.Header(constants.HeaderXRequestID, requestID)
		ctx.Next()
	}
}
