package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/okieraised/smartfarm-agent/internal/cerrors"
)

// NoRouteMW answers unknown paths with ErrGenericUnknownAPIPath, echoing
// what was asked for.
func NoRouteMW() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		abortWith(ctx, cerrors.ErrGenericUnknownAPIPath, map[string]any{
			"method": ctx.Request.Method,
			"path":   ctx.Request.URL.Path,
		})
	}
}
