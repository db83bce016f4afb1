package restful

import (
	"github.com/gin-gonic/gin"
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/log"
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/tracer_client"
	"github.com/okieraised/smartfarm-agent/internal/server/rest_server/services/v1/restful"
	"go.opentelemetry.io/otel/trace"
)

type HistoryRouter struct {
	svc    restful.IHistoryService
	logger *log.Logger
	tracer trace.Tracer
}

func NewHistoryRouter(svc restful.IHistoryService) *HistoryRouter {
	return &HistoryRouter{
		svc:    svc,
		logger: log.Default().Named("history_router"),
		tracer: tracer_client.Tracer("history_http_router"),
	}
}

func (r *HistoryRouter) Routes(engine *gin.RouterGroup) {
	routes := engine.Group("/history")
	routes.GET("", r.history)
	routes.GET("/series", r.series)
}

// history serves ?date=YYYY-MM-DD&node_id=...
func (r *HistoryRouter) history(ctx *gin.Context) {
	rootCtx, span := startRequestSpan(r.tracer, ctx)
	defer span.End()

	result, appErr := r.svc.History(ctx, &restful.HistoryInput{
		TracerCtx: rootCtx,
		Tracer:    r.tracer,
		Date:      ctx.Query("date"),
		NodeID:    ctx.Query("node_id"),
	})
	reply(ctx, requestLogger(r.logger, ctx), result, appErr)
}

// series serves ?date=YYYY-MM-DD&node_id=... as chart data.
func (r *HistoryRouter) series(ctx *gin.Context) {
	rootCtx, span := startRequestSpan(r.tracer, ctx)
	defer span.End()

	result, appErr := r.svc.Series(ctx, &restful.HistoryInput{
		TracerCtx: rootCtx,
		Tracer:    r.tracer,
		Date:      ctx.Query("date"),
		NodeID:    ctx.Query("node_id"),
	})
	reply(ctx, requestLogger(r.logger, ctx), result, appErr)
}
