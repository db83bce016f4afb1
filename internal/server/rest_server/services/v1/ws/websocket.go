package ws

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/okieraised/smartfarm-agent/internal/api_response"
	"github.com/okieraised/smartfarm-agent/internal/cerrors"
	"github.com/okieraised/smartfarm-agent/internal/constants"
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/log"
	"github.com/okieraised/smartfarm-agent/internal/livefeed"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type IWebsocketService interface {
	Subscribe(ctx *gin.Context, tracerCtx context.Context, tracer trace.Tracer) (*api_response.BaseOutput, *cerrors.AppError)
}

// WebsocketService upgrades live feed requests and hands the connection to
// the hub.
type WebsocketService struct {
	hub      *livefeed.Hub
	logger   *log.Logger
	upgrader websocket.Upgrader
}

func NewWebsocketService(options ...func(*WebsocketService)) *WebsocketService {
	svc := &WebsocketService{
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 5 * time.Second,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	for _, opt := range options {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = log.Default()
	}
	return svc
}

func WithFeedHub(hub *livefeed.Hub) func(*WebsocketService) {
	return func(svc *WebsocketService) {
		svc.hub = hub
	}
}

func (svc *WebsocketService) Subscribe(
	ctx *gin.Context,
	tracerCtx context.Context,
	tracer trace.Tracer,
) (*api_response.BaseOutput, *cerrors.AppError) {
	_, span := tracer.Start(tracerCtx, "upgrade-connection")
	defer span.End()

	lg := svc.logger.With(zap.String(constants.APIFieldRequestID, ctx.GetString(constants.APIFieldRequestID)))
	if svc.hub == nil {
		return nil, cerrors.ErrGenericInternalServer.WithMessage("live feed is not running")
	}

	conn, err := svc.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		// the upgrader has already written the HTTP error
		lg.Warn("websocket upgrade failed", zap.Error(err))
		return nil, nil
	}
	nodes := nodeFilter(ctx.Query("nodes"))
	lg.Info("live feed client connected", zap.String("remote", conn.RemoteAddr().String()), zap.Strings("nodes", nodes))
	svc.hub.ServeConn(conn, nodes...)

	return &api_response.BaseOutput{Code: cerrors.OK.Code, Message: cerrors.OK.Message}, nil
}

// nodeFilter splits a comma-separated node list, dropping blanks.
func nodeFilter(raw string) []string {
	var nodes []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			nodes = append(nodes, id)
		}
	}
	return nodes
}
