// Package livefeed pushes alarms, actuations and snapshots to websocket
// subscribers.
package livefeed

import (
	"context"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/okieraised/smartfarm-agent/internal/automation"
	"github.com/okieraised/smartfarm-agent/internal/common"
	"github.com/okieraised/smartfarm-agent/internal/constants"
	"github.com/okieraised/smartfarm-agent/internal/device"
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/log"
	"go.uber.org/zap"
)

const broadcastBuffer = 256

type Hub struct {
	agentID string
	logger  *log.Logger

	clients    map[*Client]struct{}
	broadcast  chan common.FeedMessage
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	count      atomic.Int64

	onRegister func(*Client)
}

func NewHub(agentID string, logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		agentID:    agentID,
		logger:     logger.Named("livefeed"),
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan common.FeedMessage, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run serves the hub until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	h.logger.Info("live feed hub started")
	defer close(h.done)

	for {
		select {
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.count.Store(int64(len(h.clients)))
			if h.onRegister != nil {
				h.onRegister(c)
			}
			h.logger.Debug("client registered", zap.String("client_id", c.ID.String()), zap.Int("clients", len(h.clients)))
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.count.Store(int64(len(h.clients)))
				h.logger.Debug("client disconnected", zap.String("client_id", c.ID.String()))
			}
		case msg := <-h.broadcast:
			for c := range h.clients {
				if !c.wants(msg.Header.NodeID) {
					continue
				}
				select {
				case c.send <- msg:
				default:
					h.logger.Debug("client send buffer full, dropping message", zap.String("client_id", c.ID.String()))
				}
			}
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.count.Store(0)
			h.logger.Info("live feed hub stopped")
			return nil
		}
	}
}

// ServeConn attaches an upgraded websocket connection and blocks until the
// client goes away. nodes pre-subscribes the client; empty means every node.
func (h *Hub) ServeConn(conn *websocket.Conn, nodes ...string) {
	c := newClient(conn, h)
	if len(nodes) > 0 {
		c.subscribe(nodes)
	}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}
	go c.write()
	go c.pingLoop()
	c.read()
}

func (h *Hub) unregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) Clients() int {
	return int(h.count.Load())
}

// Publish queues msg for every interested client without blocking.
func (h *Hub) Publish(msg common.FeedMessage) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	default:
		h.logger.Debug("live feed backlog full, dropping message", zap.String("type", string(msg.Header.MessageType)))
	}
}

func (h *Hub) OnAlarm(_ context.Context, nodeID string, alarm device.Alarm) {
	h.Publish(common.NewFeedMessage(h.agentID, nodeID, constants.MsgTypeAlarm, alarm))
}

func (h *Hub) OnActuation(_ context.Context, a automation.Actuation) {
	h.Publish(common.NewFeedMessage(h.agentID, a.NodeID, constants.MsgTypeActuation, a))
}

func (h *Hub) PublishSnapshot(nodeID string, snapshot any) {
	h.Publish(common.NewFeedMessage(h.agentID, nodeID, constants.MsgTypeSnapshot, snapshot))
}
