package middlewares

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/okieraised/smartfarm-agent/internal/cerrors"
)

// RequestTimeoutMW bounds the request context and answers with
// ErrGenericRequestTimedOut when the handler overruns. Websocket upgrades
// are long-lived and pass through untouched.
func RequestTimeoutMW(limit time.Duration) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if limit <= 0 || ctx.IsWebsocket() {
			ctx.Next()
			return
		}
		reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), limit)
		defer cancel()
		ctx.Request = ctx.Request.WithContext(reqCtx)

		ctx.Next()

		if reqCtx.Err() == context.DeadlineExceeded && !ctx.Writer.Written() {
			abortWith(ctx, cerrors.ErrGenericRequestTimedOut, map[string]any{"limit": limit.String()})
		}
	}
}
