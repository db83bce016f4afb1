package restful

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/okieraised/smartfarm-agent/internal/cerrors"
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/log"
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/tracer_client"
	"github.com/okieraised/smartfarm-agent/internal/node"
	"github.com/okieraised/smartfarm-agent/internal/server/rest_server/services/v1/restful"
	"go.opentelemetry.io/otel/trace"
)

type NodeRouter struct {
	svc    restful.INodeService
	logger *log.Logger
	tracer trace.Tracer
}

func NewNodeRouter(svc restful.INodeService) *NodeRouter {
	return &NodeRouter{
		svc:    svc,
		logger: log.Default().Named("node_router"),
		tracer: tracer_client.Tracer("node_http_router"),
	}
}

func (r *NodeRouter) Routes(engine *gin.RouterGroup) {
	routes := engine.Group("/nodes")
	routes.GET("", r.list)
	routes.GET("/:id", r.get)
	routes.PATCH("/:id", r.update)
	routes.GET("/:id/pins", r.pins)
	routes.GET("/:id/snapshot", r.snapshot)
	routes.POST("/:id/recipe", r.applyRecipe)
}

func (r *NodeRouter) nodeInput(ctx *gin.Context, tracerCtx context.Context) restful.NodeInput {
	return restful.NodeInput{
		TracerCtx: tracerCtx,
		Tracer:    r.tracer,
		NodeID:    ctx.Param("id"),
	}
}

func (r *NodeRouter) list(ctx *gin.Context) {
	rootCtx, span := startRequestSpan(r.tracer, ctx)
	defer span.End()

	in := r.nodeInput(ctx, rootCtx)
	result, appErr := r.svc.ListNodes(ctx, &in)
	reply(ctx, requestLogger(r.logger, ctx), result, appErr)
}

func (r *NodeRouter) get(ctx *gin.Context) {
	rootCtx, span := startRequestSpan(r.tracer, ctx)
	defer span.End()

	in := r.nodeInput(ctx, rootCtx)
	result, appErr := r.svc.GetNode(ctx, &in)
	reply(ctx, requestLogger(r.logger, ctx), result, appErr)
}

func (r *NodeRouter) pins(ctx *gin.Context) {
	rootCtx, span := startRequestSpan(r.tracer, ctx)
	defer span.End()

	in := r.nodeInput(ctx, rootCtx)
	result, appErr := r.svc.GetPins(ctx, &in)
	reply(ctx, requestLogger(r.logger, ctx), result, appErr)
}

func (r *NodeRouter) snapshot(ctx *gin.Context) {
	rootCtx, span := startRequestSpan(r.tracer, ctx)
	defer span.End()

	in := r.nodeInput(ctx, rootCtx)
	result, appErr := r.svc.GetSnapshot(ctx, &in)
	reply(ctx, requestLogger(r.logger, ctx), result, appErr)
}

type UpdateNodeRequest struct {
	Label *string `json:"label"`
	Zone  *string `json:"zone"`
}

func (req *UpdateNodeRequest) validate() *cerrors.AppError {
	if req.Label == nil && req.Zone == nil {
		return cerrors.ErrGenericBadRequest.WithMessage("nothing to update")
	}
	return nil
}

func (r *NodeRouter) update(ctx *gin.Context) {
	rootCtx, span := startRequestSpan(r.tracer, ctx)
	defer span.End()
	lg := requestLogger(r.logger, ctx)

	_, cSpan := r.tracer.Start(rootCtx, "serialization")
	var req UpdateNodeRequest
	err := ctx.ShouldBindJSON(&req)
	cSpan.End()
	if err != nil {
		badRequest(ctx, lg, err)
		return
	}
	if appErr := req.validate(); appErr != nil {
		reply(ctx, lg, nil, appErr)
		return
	}

	result, appErr := r.svc.UpdateNode(ctx, &restful.UpdateNodeInput{
		NodeInput: r.nodeInput(ctx, rootCtx),
		Update:    node.Update{Label: req.Label, Zone: req.Zone},
	})
	reply(ctx, lg, result, appErr)
}

type ApplyRecipeRequest struct {
	Recipe string `json:"recipe"`
}

func (req *ApplyRecipeRequest) validate() *cerrors.AppError {
	if strings.TrimSpace(req.Recipe) == "" {
		return cerrors.ErrMalformedRecipeKey.WithMessage("recipe is required")
	}
	return nil
}

func (r *NodeRouter) applyRecipe(ctx *gin.Context) {
	rootCtx, span := startRequestSpan(r.tracer, ctx)
	defer span.End()
	lg := requestLogger(r.logger, ctx)

	_, cSpan := r.tracer.Start(rootCtx, "serialization")
	var req ApplyRecipeRequest
	err := ctx.ShouldBindJSON(&req)
	cSpan.End()
	if err != nil {
		badRequest(ctx, lg, err)
		return
	}
	if appErr := req.validate(); appErr != nil {
		reply(ctx, lg, nil, appErr)
		return
	}

	result, appErr := r.svc.ApplyRecipe(ctx, &restful.ApplyRecipeInput{
		NodeInput: r.nodeInput(ctx, rootCtx),
		Recipe:    req.Recipe,
	})
	reply(ctx, lg, result, appErr)
}
