package livefeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/okieraised/smartfarm-agent/internal/automation"
	"github.com/okieraised/smartfarm-agent/internal/common"
	"github.com/okieraised/smartfarm-agent/internal/constants"
	"github.com/okieraised/smartfarm-agent/internal/device"
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, *httptest.Server, <-chan *Client) {
	t.Helper()
	hub := NewHub("agent-test", log.Nop())
	registered := make(chan *Client, 4)
	hub.onRegister = func(c *Client) { registered <- c }

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = hub.Run(ctx) }()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		var nodes []string
		if q := r.URL.Query().Get("nodes"); q != "" {
			nodes = strings.Split(q, ",")
		}
		hub.ServeConn(conn, nodes...)
	}))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return hub, srv, registered
}

func dial(t *testing.T, srv *httptest.Server, registered <-chan *Client) (*websocket.Conn, *Client) {
	t.Helper()
	return dialQuery(t, srv, registered, "")
}

func dialQuery(t *testing.T, srv *httptest.Server, registered <-chan *Client, query string) (*websocket.Conn, *Client) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	select {
	case c := <-registered:
		return conn, c
	case <-time.After(2 * time.Second):
		t.Fatal("client was not registered")
		return nil, nil
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) common.FeedMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg common.FeedMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHub_Broadcast(t *testing.T) {
	hub, srv, registered := startHub(t)
	conn, _ := dial(t, srv, registered)
	assert.Equal(t, 1, hub.Clients())

	hub.OnAlarm(context.Background(), "A001", device.Alarm{DeviceID: "T1", Pin: "GPIO0(ADC)", Value: 31.5, High: true})

	msg := readMessage(t, conn)
	assert.Equal(t, constants.MsgTypeAlarm, msg.Header.MessageType)
	assert.Equal(t, "A001", msg.Header.NodeID)
	assert.Equal(t, "agent-test", msg.Header.AgentID)
	assert.Equal(t, constants.MsgVersion, msg.Header.Version)
	data, ok := msg.Payload.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "T1", data["id"])
	assert.Equal(t, true, data["is_max"])
}

func TestHub_Subscribe(t *testing.T) {
	hub, srv, registered := startHub(t)
	conn, client := dial(t, srv, registered)

	sub := common.FeedMessage{
		Header:  common.Header{MessageType: constants.MsgTypeSubscribe},
		Payload: common.FeedBody{Nodes: []string{"B001"}},
	}
	require.NoError(t, conn.WriteJSON(sub))
	require.Eventually(t, func() bool {
		return !client.wants("A001") && client.wants("B001")
	}, 2*time.Second, 10*time.Millisecond)

	hub.OnActuation(context.Background(), automation.Actuation{NodeID: "A001", ActuatorID: "FAN1"})
	hub.OnActuation(context.Background(), automation.Actuation{NodeID: "B001", ActuatorID: "FAN2"})

	msg := readMessage(t, conn)
	assert.Equal(t, constants.MsgTypeActuation, msg.Header.MessageType)
	assert.Equal(t, "B001", msg.Header.NodeID)
}

func TestHub_PreSubscribed(t *testing.T) {
	hub, srv, registered := startHub(t)
	conn, client := dialQuery(t, srv, registered, "/?nodes=B001")
	assert.False(t, client.wants("A001"))

	hub.OnAlarm(context.Background(), "A001", device.Alarm{DeviceID: "T1", High: true})
	hub.OnAlarm(context.Background(), "B001", device.Alarm{DeviceID: "L1", Low: true})

	msg := readMessage(t, conn)
	assert.Equal(t, "B001", msg.Header.NodeID)
}

func TestHub_Disconnect(t *testing.T) {
	hub, srv, registered := startHub(t)
	conn, _ := dial(t, srv, registered)
	assert.Equal(t, 1, hub.Clients())

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_PublishAfterStop(t *testing.T) {
	hub := NewHub("agent-test", log.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		_ = hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	for i := 0; i < broadcastBuffer+10; i++ {
		hub.PublishSnapshot("A001", map[string]any{"i": i})
	}
	assert.Equal(t, 0, hub.Clients())
}

func TestFeedMessage_ValidateInbound(t *testing.T) {
	ok := common.FeedMessage{Header: common.Header{MessageType: constants.MsgTypeSubscribe}, Payload: common.FeedBody{Nodes: []string{"A001"}}}
	assert.NoError(t, ok.ValidateInbound())

	bad := common.FeedMessage{Header: common.Header{MessageType: constants.MsgTypeAlarm}}
	assert.Error(t, bad.ValidateInbound())

	empty := common.FeedMessage{Header: common.Header{MessageType: constants.MsgTypeSubscribe}, Payload: common.FeedBody{Nodes: []string{""}}}
	assert.Error(t, empty.ValidateInbound())

	a := common.NewFeedMessage("agent", "A001", constants.MsgTypeSnapshot, nil)
	b := common.NewFeedMessage("agent", "A001", constants.MsgTypeSnapshot, nil)
	assert.Greater(t, b.Header.HeaderID, a.Header.HeaderID)
}
