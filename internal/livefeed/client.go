package livefeed

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/okieraised/smartfarm-agent/internal/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
	sendBuffer     = 32
)

// Client is one websocket subscriber. The hub owns the send channel; a
// client only reads from it.
type Client struct {
	ID   uuid.UUID
	Conn *websocket.Conn

	hub     *Hub
	send    chan common.FeedMessage
	writeMu sync.Mutex
	closed  chan struct{}
	once    sync.Once

	filterMu sync.RWMutex
	nodes    map[string]struct{}
}

func newClient(conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		ID:     uuid.New(),
		Conn:   conn,
		hub:    hub,
		send:   make(chan common.FeedMessage, sendBuffer),
		closed: make(chan struct{}),
	}
}

// wants reports whether the client subscribed to nodeID. No subscription
// means every node.
func (c *Client) wants(nodeID string) bool {
	c.filterMu.RLock()
	defer c.filterMu.RUnlock()
	if len(c.nodes) == 0 || nodeID == "" {
		return true
	}
	_, ok := c.nodes[nodeID]
	return ok
}

func (c *Client) subscribe(nodes []string) {
	set := make(map[string]struct{}, len(nodes))
	for _, id := range nodes {
		set[id] = struct{}{}
	}
	c.filterMu.Lock()
	c.nodes = set
	c.filterMu.Unlock()
}

func (c *Client) read() {
	defer func() {
		c.hub.unregisterClient(c)
		c.stop()
	}()

	log := c.hub.logger.With(zap.String("client_id", c.ID.String()))

	c.Conn.SetReadLimit(maxMessageSize)
	if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Info(errors.Wrap(err, "failed to set read deadline").Error())
	}
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg common.FeedMessage
		if err := c.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Info(errors.Wrap(err, "failed to read message").Error())
			}
			return
		}
		if err := msg.ValidateInbound(); err != nil {
			log.Debug("ignoring client message", zap.Error(err))
			continue
		}
		c.subscribe(msg.Payload.Nodes)
		log.Debug("client subscription updated", zap.Strings("nodes", msg.Payload.Nodes))
	}
}

func (c *Client) write() {
	log := c.hub.logger.With(zap.String("client_id", c.ID.String()))
	for message := range c.send {
		if err := c.writeJSON(message); err != nil {
			log.Info(errors.Wrap(err, "failed to send message").Error())
			c.stop()
			return
		}
	}
	if err := c.safeWrite(websocket.CloseMessage, []byte{}); err != nil {
		log.Debug(errors.Wrap(err, "failed to send close message").Error())
	}
	c.stop()
}

func (c *Client) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.safeWrite(websocket.PingMessage, nil); err != nil {
				c.hub.logger.Debug(errors.Wrapf(err, "client [%s] ping error", c.ID.String()).Error())
				c.stop()
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *Client) safeWrite(msgType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.Conn.WriteMessage(msgType, data)
}

func (c *Client) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.Conn.WriteJSON(v)
}

func (c *Client) stop() {
	c.once.Do(func() {
		close(c.closed)
		_ = c.Conn.Close()
	})
}
