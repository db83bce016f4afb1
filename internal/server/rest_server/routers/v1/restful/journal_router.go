package restful

import (
	"github.com/gin-gonic/gin"
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/log"
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/tracer_client"
	"github.com/okieraised/smartfarm-agent/internal/journal"
	"github.com/okieraised/smartfarm-agent/internal/server/rest_server/services/v1/restful"
	"go.opentelemetry.io/otel/trace"
)

type JournalRouter struct {
	svc    restful.IJournalService
	logger *log.Logger
	tracer trace.Tracer
}

func NewJournalRouter(svc restful.IJournalService) *JournalRouter {
	return &JournalRouter{
		svc:    svc,
		logger: log.Default().Named("journal_router"),
		tracer: tracer_client.Tracer("journal_http_router"),
	}
}

func (r *JournalRouter) Routes(engine *gin.RouterGroup) {
	routes := engine.Group("/journal")
	routes.GET("", r.list)
	routes.POST("", r.add)
}

func (r *JournalRouter) list(ctx *gin.Context) {
	rootCtx, span := startRequestSpan(r.tracer, ctx)
	defer span.End()

	result, appErr := r.svc.ListEntries(ctx, &restful.JournalInput{TracerCtx: rootCtx, Tracer: r.tracer})
	reply(ctx, requestLogger(r.logger, ctx), result, appErr)
}

func (r *JournalRouter) add(ctx *gin.Context) {
	rootCtx, span := startRequestSpan(r.tracer, ctx)
	defer span.End()
	lg := requestLogger(r.logger, ctx)

	_, cSpan := r.tracer.Start(rootCtx, "serialization")
	var entry journal.Entry
	err := ctx.ShouldBindJSON(&entry)
	cSpan.End()
	if err != nil {
		badRequest(ctx, lg, err)
		return
	}

	result, appErr := r.svc.AddEntry(ctx, &restful.AddJournalInput{
		JournalInput: restful.JournalInput{TracerCtx: rootCtx, Tracer: r.tracer},
		Entry:        entry,
	})
	reply(ctx, lg, result, appErr)
}
