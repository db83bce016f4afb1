package node_monitor

import (
	"context"

	"github.com/okieraised/smartfarm-agent/internal/device"
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/log"
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/metrics"
	"go.uber.org/zap"
)

// LogSink writes every alarm at warn level.
type LogSink struct {
	Logger *log.Logger
}

func (s LogSink) OnAlarm(_ context.Context, nodeID string, alarm device.Alarm) {
	l := s.Logger
	if l == nil {
		l = log.Default()
	}
	l.ForDevice(nodeID, alarm.DeviceID).Warn("sensor alarm",
		zap.String("pin", alarm.Pin),
		zap.Float64("value", alarm.Value),
		zap.Bool("is_min", alarm.Low),
		zap.Bool("is_max", alarm.High),
	)
}

// MetricsSink counts alarms per channel.
type MetricsSink struct {
	Metrics *metrics.Metrics
}

func (s MetricsSink) OnAlarm(_ context.Context, nodeID string, alarm device.Alarm) {
	s.Metrics.IncAlarm(nodeID, alarm.DeviceID, alarm.Low, alarm.High)
	s.Metrics.SetSensorValue(nodeID, alarm.DeviceID, alarm.Value)
}

type AlertPublisher interface {
	PublishAlert(ctx context.Context, nodeID string, payload any) error
}

// MQTTSink forwards alarms to the broker. Publish failures are logged and
// never block the tick beyond the publisher's own timeout.
type MQTTSink struct {
	Publisher AlertPublisher
	Logger    *log.Logger
}

func (s MQTTSink) OnAlarm(ctx context.Context, nodeID string, alarm device.Alarm) {
	if err := s.Publisher.PublishAlert(ctx, nodeID, alarm); err != nil {
		l := s.Logger
		if l == nil {
			l = log.Default()
		}
		l.ForDevice(nodeID, alarm.DeviceID).Warn("alarm publish failed", zap.Error(err))
	}
}
