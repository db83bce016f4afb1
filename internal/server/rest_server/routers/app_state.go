package routers

import (
	"net/http"

	"github.com/okieraised/smartfarm-agent/internal/server/rest_server/services/v1/restful"
	"github.com/okieraised/smartfarm-agent/internal/server/rest_server/services/v1/ws"
)

type V1Rest struct {
	healthcheck *restful.HealthcheckService
	node        *restful.NodeService
	history     *restful.HistoryService
	journal     *restful.JournalService
}

func NewV1RestState() *V1Rest {
	return &V1Rest{}
}

func (svc *V1Rest) SetHealthcheckService(healthcheck *restful.HealthcheckService) {
	svc.healthcheck = healthcheck
}

func (svc *V1Rest) GetHealthcheckService() *restful.HealthcheckService {
	return svc.healthcheck
}

func (svc *V1Rest) SetNodeService(node *restful.NodeService) {
	svc.node = node
}

func (svc *V1Rest) GetNodeService() *restful.NodeService {
	return svc.node
}

func (svc *V1Rest) SetHistoryService(history *restful.HistoryService) {
	svc.history = history
}

func (svc *V1Rest) GetHistoryService() *restful.HistoryService {
	return svc.history
}

func (svc *V1Rest) SetJournalService(journal *restful.JournalService) {
	svc.journal = journal
}

func (svc *V1Rest) GetJournalService() *restful.JournalService {
	return svc.journal
}

type Websocket struct {
	websocket *ws.WebsocketService
}

func NewWebsocketState() *Websocket {
	return &Websocket{}
}

func (svc *Websocket) SetWebsocketService(websocket *ws.WebsocketService) {
	svc.websocket = websocket
}

func (svc *Websocket) GetWebsocketService() *ws.WebsocketService {
	return svc.websocket
}

type AppState struct {
	v1Rest    *V1Rest
	websocket *Websocket
	metrics   http.Handler
}

func NewAppState() *AppState {
	return &AppState{}
}

func (svc *AppState) SetV1RestState(v1Rest *V1Rest) {
	svc.v1Rest = v1Rest
}

func (svc *AppState) GetV1RestState() *V1Rest {
	return svc.v1Rest
}

func (svc *AppState) GetWebsocketState() *Websocket {
	return svc.websocket
}

func (svc *AppState) SetWebsocketState(ws *Websocket) {
	svc.websocket = ws
}

// SetMetricsHandler exposes the Prometheus scrape handler at /metrics.
func (svc *AppState) SetMetricsHandler(h http.Handler) {
	svc.metrics = h
}

func (svc *AppState) GetMetricsHandler() http.Handler {
	return svc.metrics
}
