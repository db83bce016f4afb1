package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/okieraised/smartfarm-agent/internal/api_response"
	"github.com/okieraised/smartfarm-agent/internal/cerrors"
)

func abortWith(ctx *gin.Context, appErr *cerrors.AppError, meta map[string]any) {
	ctx.AbortWithStatusJSON(api_response.Fail(ctx, appErr, meta))
}
