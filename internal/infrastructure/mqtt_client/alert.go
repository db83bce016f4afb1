package mqtt_client

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
)

// Publisher is the subset of mqtt.Client used for alerts.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// AlertPublisher publishes node alarms on "<prefix>/<node_id>/alert", the
// topic layout the farm gateway subscribes to with "<prefix>/+/alert".
type AlertPublisher struct {
	client  Publisher
	prefix  string
	qos     byte
	timeout time.Duration
}

func NewAlertPublisher(client Publisher, prefix string, qos byte, timeout time.Duration) *AlertPublisher {
	return &AlertPublisher{
		client:  client,
		prefix:  strings.Trim(prefix, "/"),
		qos:     qos,
		timeout: timeout,
	}
}

func (p *AlertPublisher) AlertTopic(nodeID string) string {
	return p.prefix + "/" + nodeID + "/alert"
}

func (p *AlertPublisher) PublishAlert(ctx context.Context, nodeID string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshal alert")
	}

	tok := p.client.Publish(p.AlertTopic(nodeID), p.qos, false, body)
	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case <-tok.Done():
		return errors.Wrapf(tok.Error(), "publish alert for node %s", nodeID)
	case <-timer.C:
		return errors.Errorf("publish alert for node %s: timeout after %s", nodeID, p.timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
