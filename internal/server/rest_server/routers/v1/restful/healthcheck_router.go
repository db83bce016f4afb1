package restful

import (
	"github.com/gin-gonic/gin"
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/log"
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/tracer_client"
	"github.com/okieraised/smartfarm-agent/internal/server/rest_server/services/v1/restful"
	"go.opentelemetry.io/otel/trace"
)

// HealthcheckRouter serves the host report on /health and the farm-only
// check on /health/farm.
type HealthcheckRouter struct {
	svc    restful.IHealthcheckService
	logger *log.Logger
	tracer trace.Tracer
}

func NewHealthcheckRouter(svc restful.IHealthcheckService) *HealthcheckRouter {
	return &HealthcheckRouter{
		svc:    svc,
		logger: log.Default().Named("healthcheck_router"),
		tracer: tracer_client.Tracer("healthcheck_http_router"),
	}
}

func (r *HealthcheckRouter) Routes(engine *gin.RouterGroup) {
	routes := engine.Group("/health")
	routes.GET("", r.host)
	routes.GET("/farm", r.farm)
}

func (r *HealthcheckRouter) host(ctx *gin.Context) {
	spanCtx, span := startRequestSpan(r.tracer, ctx)
	defer span.End()

	lg := requestLogger(r.logger, ctx)
	result, appErr := r.svc.Healthcheck(ctx, &restful.HealthcheckInput{
		TracerCtx: spanCtx,
		Tracer:    r.tracer,
	})
	reply(ctx, lg, result, appErr)
}

func (r *HealthcheckRouter) farm(ctx *gin.Context) {
	_, span := startRequestSpan(r.tracer, ctx)
	defer span.End()

	result, appErr := r.svc.Farm(ctx)
	reply(ctx, requestLogger(r.logger, ctx), result, appErr)
}
