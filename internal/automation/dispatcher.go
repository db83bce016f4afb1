// Package automation drives actuators from sensor alarms. A sensor names
// up to two actuators, one per alarm channel, which may live on any node in
// the registry.
package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/okieraised/smartfarm-agent/internal/cerrors"
	"github.com/okieraised/smartfarm-agent/internal/device"
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/local_cache"
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/log"
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/metrics"
	"github.com/okieraised/smartfarm-agent/internal/registry"
	"go.uber.org/zap"
)

// Actuation describes one state change issued by the dispatcher.
type Actuation struct {
	SourceNodeID string `json:"source_node_id"`
	SensorID     string `json:"sensor_id"`
	NodeID       string `json:"node_id"`
	ActuatorID   string `json:"actuator_id"`
	Pin          string `json:"pin"`
	State        string `json:"state"`
	Ack          string `json:"ack"`
	MsgID        string `json:"msg_id,omitempty"`
}

// ActuationSink observes successful actuations.
type ActuationSink interface {
	OnActuation(ctx context.Context, a Actuation)
}

type Options struct {
	Throttle       *local_cache.Cache
	ThrottleWindow time.Duration
	Metrics        *metrics.Metrics
	Logger         *log.Logger
	Sinks          []ActuationSink
}

type Option func(*Options)

// WithThrottle suppresses repeated "target not found" logs for the same
// target within window.
func WithThrottle(c *local_cache.Cache, window time.Duration) Option {
	return func(o *Options) {
		o.Throttle = c
		o.ThrottleWindow = window
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Options) { o.Metrics = m }
}

func WithLogger(l *log.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

func WithSinks(sinks ...ActuationSink) Option {
	return func(o *Options) { o.Sinks = append(o.Sinks, sinks...) }
}

type Dispatcher struct {
	registry *registry.Registry
	opts     Options
	logger   *log.Logger
}

func NewDispatcher(reg *registry.Registry, opts ...Option) *Dispatcher {
	o := Options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return &Dispatcher{
		registry: reg,
		opts:     o,
		logger:   o.Logger.Named("automation"),
	}
}

// ActiveState is the state written to a triggered actuator.
func ActiveState(sensorID, msgID string) string {
	return fmt.Sprintf("ACTIVE (By:%s Msg:%s)", sensorID, msgID)
}

// Target picks the actuator driven by alarm: the low channel wins when both
// are latched and it has a target.
func Target(alarm device.Alarm) (target, msgID string, ok bool) {
	switch {
	case alarm.Low && alarm.Automation.TargetMin != "":
		return alarm.Automation.TargetMin, alarm.Automation.MsgIDMin, true
	case alarm.High && alarm.Automation.TargetMax != "":
		return alarm.Automation.TargetMax, alarm.Automation.MsgIDMax, true
	default:
		return "", "", false
	}
}

// Dispatch activates the actuator targeted by alarm. It returns nil when
// the alarm has no target for its channel, and ErrAutomationTargetNotFound
// when no node in the registry owns the target. Callers log and move on.
func (d *Dispatcher) Dispatch(ctx context.Context, sourceNodeID string, alarm device.Alarm) (*Actuation, error) {
	target, msgID, ok := Target(alarm)
	if !ok {
		return nil, nil
	}

	for _, n := range d.registry.Enumerate() {
		act, found := n.Actuator(target)
		if !found {
			continue
		}
		state := ActiveState(alarm.DeviceID, msgID)
		a := Actuation{
			SourceNodeID: sourceNodeID,
			SensorID:     alarm.DeviceID,
			NodeID:       n.ID(),
			ActuatorID:   target,
			Pin:          act.Pin(),
			State:        state,
			Ack:          act.SetState(state),
			MsgID:        msgID,
		}
		d.opts.Metrics.IncActuation(n.ID(), target)
		d.logger.Info("actuator triggered",
			zap.String("sensor_id", alarm.DeviceID),
			zap.String("source_node_id", sourceNodeID),
			zap.String("node_id", n.ID()),
			zap.String("actuator_id", target),
			zap.String("pin", a.Pin),
			zap.String("ack", a.Ack),
		)
		for _, s := range d.opts.Sinks {
			s.OnActuation(ctx, a)
		}
		return &a, nil
	}

	d.opts.Metrics.IncDispatchMiss(target)
	if d.opts.Throttle.Allow("missing-target:"+target, d.opts.ThrottleWindow) {
		d.logger.Warn("automation target not found",
			zap.String("sensor_id", alarm.DeviceID),
			zap.String("source_node_id", sourceNodeID),
			zap.String("target", target),
		)
	}
	return nil, cerrors.ErrAutomationTargetNotFound.WithMessage("automation target %s not found", target)
}
