package common

import (
	"sync/atomic"
	"time"

	"github.com/okieraised/smartfarm-agent/internal/constants"
	"github.com/pkg/errors"
)

type FeedMessage struct {
	Header  Header   `json:"header"`
	Payload FeedBody `json:"payload"`
}

// Header follows VDA5050-like metadata.
type Header struct {
	HeaderID     int64                 `json:"headerId"`         // monotonic increasing
	Version      string                `json:"version"`          // message version, e.g. "1.0.0"
	Manufacturer string                `json:"manufacturer"`     // who created the message
	AgentID      string                `json:"agentId"`          // unique ID of the agent
	NodeID       string                `json:"nodeId,omitempty"` // farm node the event belongs to
	Timestamp    time.Time             `json:"timestamp"`        // ISO 8601 timestamp
	MessageType  constants.MessageType `json:"messageType"`      // Alarm / Actuation / Snapshot / Subscribe
}

// FeedBody carries the event itself, or for Subscribe the node filter.
type FeedBody struct {
	Data  any      `json:"data,omitempty"`
	Nodes []string `json:"nodes,omitempty"`
}

var headerSeq atomic.Int64

func NewFeedMessage(agentID, nodeID string, typ constants.MessageType, data any) FeedMessage {
	return FeedMessage{
		Header: Header{
			HeaderID:     headerSeq.Add(1),
			Version:      constants.MsgVersion,
			Manufacturer: constants.MsgManufacturer,
			AgentID:      agentID,
			NodeID:       nodeID,
			Timestamp:    time.Now().UTC(),
			MessageType:  typ,
		},
		Payload: FeedBody{Data: data},
	}
}

// ValidateInbound checks a message sent by a feed client. Clients may only
// change their node subscription.
func (m *FeedMessage) ValidateInbound() error {
	if m.Header.MessageType != constants.MsgTypeSubscribe {
		return errors.Errorf("invalid message type: %s", m.Header.MessageType)
	}
	for _, id := range m.Payload.Nodes {
		if id == "" {
			return errors.New("empty node id in subscription")
		}
	}
	return nil
}
