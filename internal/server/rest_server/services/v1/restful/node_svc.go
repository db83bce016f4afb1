package restful

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/okieraised/smartfarm-agent/internal/api_response"
	"github.com/okieraised/smartfarm-agent/internal/cerrors"
	"github.com/okieraised/smartfarm-agent/internal/constants"
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/log"
	"github.com/okieraised/smartfarm-agent/internal/node"
	"github.com/okieraised/smartfarm-agent/internal/registry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type INodeService interface {
	ListNodes(ctx *gin.Context, input *NodeInput) (*api_response.BaseOutput, *cerrors.AppError)
	GetNode(ctx *gin.Context, input *NodeInput) (*api_response.BaseOutput, *cerrors.AppError)
	GetPins(ctx *gin.Context, input *NodeInput) (*api_response.BaseOutput, *cerrors.AppError)
	GetSnapshot(ctx *gin.Context, input *NodeInput) (*api_response.BaseOutput, *cerrors.AppError)
	UpdateNode(ctx *gin.Context, input *UpdateNodeInput) (*api_response.BaseOutput, *cerrors.AppError)
	ApplyRecipe(ctx *gin.Context, input *ApplyRecipeInput) (*api_response.BaseOutput, *cerrors.AppError)
}

type NodeService struct {
	registry *registry.Registry
	logger   *log.Logger
}

func NewNodeService(options ...func(*NodeService)) *NodeService {
	svc := &NodeService{}
	for _, opt := range options {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = log.Default()
	}
	return svc
}

func WithNodeRegistry(reg *registry.Registry) func(*NodeService) {
	return func(svc *NodeService) {
		svc.registry = reg
	}
}

func WithNodeLogger(l *log.Logger) func(*NodeService) {
	return func(svc *NodeService) {
		svc.logger = l
	}
}

type NodeInput struct {
	TracerCtx context.Context
	Tracer    trace.Tracer
	NodeID    string
}

type UpdateNodeInput struct {
	NodeInput
	Update node.Update
}

type ApplyRecipeInput struct {
	NodeInput
	Recipe string `json:"recipe"`
}

type PinsOutput struct {
	Pins     map[string]node.PinInfo `json:"pins"`
	FreePins node.PinBudget          `json:"free_pins"`
}

func ok(data any, count int) *api_response.BaseOutput {
	return &api_response.BaseOutput{
		Code:    cerrors.OK.Code,
		Message: cerrors.OK.Message,
		Data:    data,
		Count:   count,
	}
}

func (svc *NodeService) lookup(ctx *gin.Context, input *NodeInput) (*node.Node, *cerrors.AppError) {
	_, span := input.Tracer.Start(input.TracerCtx, "lookup-node")
	defer span.End()

	n, found := svc.registry.Get(input.NodeID)
	if !found {
		svc.logger.With(
			zap.String(constants.APIFieldRequestID, ctx.GetString(constants.APIFieldRequestID)),
			zap.String(constants.APIFieldNodeID, input.NodeID),
		).Debug("node not found")
		return nil, cerrors.ErrNodeNotFound.WithMessage("node %s not found", input.NodeID)
	}
	return n, nil
}

func (svc *NodeService) ListNodes(_ *gin.Context, input *NodeInput) (*api_response.BaseOutput, *cerrors.AppError) {
	_, span := input.Tracer.Start(input.TracerCtx, "list-nodes")
	defer span.End()

	nodes := svc.registry.Enumerate()
	infos := make([]node.Info, 0, len(nodes))
	for _, n := range nodes {
		infos = append(infos, n.Info())
	}
	return ok(infos, len(infos)), nil
}

func (svc *NodeService) GetNode(ctx *gin.Context, input *NodeInput) (*api_response.BaseOutput, *cerrors.AppError) {
	n, appErr := svc.lookup(ctx, input)
	if appErr != nil {
		return nil, appErr
	}
	return ok(n.Info(), 0), nil
}

func (svc *NodeService) GetPins(ctx *gin.Context, input *NodeInput) (*api_response.BaseOutput, *cerrors.AppError) {
	n, appErr := svc.lookup(ctx, input)
	if appErr != nil {
		return nil, appErr
	}
	pins := n.GetPinMap()
	return ok(PinsOutput{Pins: pins, FreePins: n.FreePins()}, len(pins)), nil
}

func (svc *NodeService) GetSnapshot(ctx *gin.Context, input *NodeInput) (*api_response.BaseOutput, *cerrors.AppError) {
	n, appErr := svc.lookup(ctx, input)
	if appErr != nil {
		return nil, appErr
	}
	_, span := input.Tracer.Start(input.TracerCtx, "snapshot")
	defer span.End()
	return ok(n.Snapshot(), 0), nil
}

func (svc *NodeService) UpdateNode(ctx *gin.Context, input *UpdateNodeInput) (*api_response.BaseOutput, *cerrors.AppError) {
	n, appErr := svc.lookup(ctx, &input.NodeInput)
	if appErr != nil {
		return nil, appErr
	}
	n.UpdateFields(input.Update)
	return ok(n.Info(), 0), nil
}

func (svc *NodeService) ApplyRecipe(ctx *gin.Context, input *ApplyRecipeInput) (*api_response.BaseOutput, *cerrors.AppError) {
	n, appErr := svc.lookup(ctx, &input.NodeInput)
	if appErr != nil {
		return nil, appErr
	}
	_, span := input.Tracer.Start(input.TracerCtx, "apply-recipe")
	defer span.End()

	if err := n.ApplyRecipe(strings.TrimSpace(input.Recipe)); err != nil {
		svc.logger.With(
			zap.String(constants.APIFieldRequestID, ctx.GetString(constants.APIFieldRequestID)),
			zap.String(constants.APIFieldNodeID, input.NodeID),
		).Warn("recipe not applied", zap.Error(err))
		return nil, appErrorOf(err)
	}
	return ok(n.Snapshot(), 0), nil
}

// appErrorOf picks the most specific AppError in err's chain so that, for
// example, a malformed key is reported as a bad request rather than a
// generic threshold update failure.
func appErrorOf(err error) *cerrors.AppError {
	var last *cerrors.AppError
	for e := err; e != nil; {
		if a, isApp := e.(*cerrors.AppError); isApp {
			last = a
			e = a.Cause
			continue
		}
		break
	}
	if last == nil {
		return cerrors.ErrGenericInternalServer.WithCause(err)
	}
	return last
}
