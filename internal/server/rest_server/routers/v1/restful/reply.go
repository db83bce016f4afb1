package restful

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/okieraised/smartfarm-agent/internal/api_response"
	"github.com/okieraised/smartfarm-agent/internal/cerrors"
	"github.com/okieraised/smartfarm-agent/internal/constants"
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/log"
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/tracer_client"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

func startRequestSpan(tracer trace.Tracer, ctx *gin.Context) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String(constants.APIFieldRequestID, ctx.GetString(constants.APIFieldRequestID))}
	if id := ctx.Param("id"); id != "" {
		attrs = append(attrs, tracer_client.AttrNodeID.String(id))
	}
	return tracer.Start(ctx, ctx.Request.URL.Path, trace.WithAttributes(attrs...))
}

func requestLogger(l *log.Logger, ctx *gin.Context) *log.Logger {
	return l.With(zap.String(constants.APIFieldRequestID, ctx.GetString(constants.APIFieldRequestID)))
}

// reply writes the service result, mapping an AppError to its HTTP status.
func reply(ctx *gin.Context, lg *log.Logger, result *api_response.BaseOutput, appErr *cerrors.AppError) {
	if appErr == nil {
		ctx.JSON(http.StatusOK, api_response.FromOutput(ctx, result))
		return
	}
	status, resp := api_response.Fail(ctx, appErr, nil)
	if status >= http.StatusInternalServerError {
		lg.Error(appErr.Error())
	} else {
		lg.Debug(appErr.Error())
	}
	ctx.JSON(status, resp)
}

func badRequest(ctx *gin.Context, lg *log.Logger, err error) {
	lg.Debug("rejected request", zap.Error(err))
	ctx.JSON(api_response.Fail(ctx, cerrors.ErrGenericBadRequest, nil))
}
