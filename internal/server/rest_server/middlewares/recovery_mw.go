package middlewares

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/okieraised/smartfarm-agent/internal/cerrors"
	"github.com/okieraised/smartfarm-agent/internal/constants"
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/log"
	"go.uber.org/zap"
)

// RecoveryMW turns a handler panic into a 500 envelope. Nothing is written
// if the handler already started the response.
func RecoveryMW(logger *log.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = log.Default()
	}
	return func(ctx *gin.Context) {
		defer func() {
			p := recover()
			if p == nil {
				return
			}
			logger.Error("handler panicked",
				zap.String(constants.APIFieldRequestID, ctx.GetString(constants.APIFieldRequestID)),
				zap.String("route", ctx.FullPath()),
				zap.String("node_id", ctx.Param("id")),
				zap.String("panic", fmt.Sprint(p)),
				zap.ByteString("stack", debug.Stack()),
			)
			if ctx.Writer.Written() {
				ctx.Abort()
				return
			}
			abortWith(ctx, cerrors.ErrGenericInternalServer, nil)
		}()
		ctx.Next()
	}
}
