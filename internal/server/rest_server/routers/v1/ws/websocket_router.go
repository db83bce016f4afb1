package ws

import (
	"github.com/gin-gonic/gin"
	"github.com/okieraised/smartfarm-agent/internal/api_response"
	"github.com/okieraised/smartfarm-agent/internal/constants"
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/log"
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/tracer_client"
	"github.com/okieraised/smartfarm-agent/internal/server/rest_server/services/v1/ws"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// WebsocketRouter mounts the live feed. GET /ws?nodes=A001,B001 limits the
// feed to the listed nodes from the first message on.
type WebsocketRouter struct {
	svc    ws.IWebsocketService
	logger *log.Logger
	tracer trace.Tracer
}

func NewWebsocketRouter(svc ws.IWebsocketService) *WebsocketRouter {
	return &WebsocketRouter{
		svc:    svc,
		logger: log.Default().Named("livefeed_router"),
		tracer: tracer_client.Tracer("livefeed_router"),
	}
}

func (r *WebsocketRouter) Routes(engine *gin.RouterGroup) {
	engine.GET("", r.subscribe)
}

func (r *WebsocketRouter) subscribe(ctx *gin.Context) {
	requestID := ctx.GetString(constants.APIFieldRequestID)
	spanCtx, span := r.tracer.Start(ctx, "livefeed.subscribe", trace.WithAttributes(
		attribute.String(constants.APIFieldRequestID, requestID),
		attribute.String("nodes", ctx.Query("nodes")),
	))
	defer span.End()

	_, appErr := r.svc.Subscribe(ctx, spanCtx, r.tracer)
	if appErr == nil {
		return
	}
	r.logger.Error("live feed unavailable", zap.String(constants.APIFieldRequestID, requestID), zap.Error(appErr))
	ctx.JSON(api_response.Fail(ctx, appErr, nil))
}
