// Package node_monitor runs the per-node sampling loop: every tick each
// sensor is sampled, alarms are reported to the configured sinks and handed
// to the automation dispatcher.
package node_monitor

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/okieraised/smartfarm-agent/internal/automation"
	"github.com/okieraised/smartfarm-agent/internal/constants"
	"github.com/okieraised/smartfarm-agent/internal/device"
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/log"
	"github.com/okieraised/smartfarm-agent/internal/node"
	"github.com/okieraised/smartfarm-agent/internal/registry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// AlarmSink is notified of every active alarm found on a tick.
type AlarmSink interface {
	OnAlarm(ctx context.Context, nodeID string, alarm device.Alarm)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, sourceNodeID string, alarm device.Alarm) (*automation.Actuation, error)
}

type Config struct {
	IntervalMin time.Duration
	IntervalMax time.Duration
	Dispatcher  Dispatcher
	Sinks       []AlarmSink
	Logger      *log.Logger
}

type Option func(*Config)

func defaultConfig() Config {
	return Config{
		IntervalMin: constants.FarmDefaultMonitorIntervalMin,
		IntervalMax: constants.FarmDefaultMonitorIntervalMax,
	}
}

// WithIntervalRange sets the range the tick interval is drawn from.
func WithIntervalRange(min, max time.Duration) Option {
	return func(c *Config) {
		c.IntervalMin = min
		c.IntervalMax = max
	}
}

func WithDispatcher(d Dispatcher) Option {
	return func(c *Config) {
		c.Dispatcher = d
	}
}

func WithSinks(sinks ...AlarmSink) Option {
	return func(c *Config) {
		c.Sinks = append(c.Sinks, sinks...)
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

type Monitor struct {
	node     *node.Node
	conf     Config
	interval time.Duration
	logger   *log.Logger
}

func NewMonitor(n *node.Node, optFns ...Option) *Monitor {
	conf := defaultConfig()
	for _, fn := range optFns {
		if fn != nil {
			fn(&conf)
		}
	}
	if conf.Logger == nil {
		conf.Logger = log.Default()
	}
	return &Monitor{
		node:     n,
		conf:     conf,
		interval: jitter(conf.IntervalMin, conf.IntervalMax),
		logger:   conf.Logger.Named("monitor").ForNode(n.ID()),
	}
}

// jitter draws once from [min, max] so nodes do not tick in lockstep.
func jitter(min, max time.Duration) time.Duration {
	if max < min {
		min, max = max, min
	}
	if min <= 0 {
		min = time.Millisecond
	}
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int64N(int64(max-min)+1))
}

func (m *Monitor) Interval() time.Duration { return m.interval }

// Tick samples every sensor once and returns the alarms found.
func (m *Monitor) Tick(ctx context.Context) []device.Alarm {
	var alarms []device.Alarm
	for _, s := range m.node.Sensors() {
		alarm := s.AlarmStatus()
		if alarm == nil {
			continue
		}
		alarms = append(alarms, *alarm)

		for _, sink := range m.conf.Sinks {
			sink.OnAlarm(ctx, m.node.ID(), *alarm)
		}
		if m.conf.Dispatcher == nil {
			continue
		}
		if _, err := m.conf.Dispatcher.Dispatch(ctx, m.node.ID(), *alarm); err != nil {
			m.logger.Debug("alarm not dispatched", zap.String("device_id", alarm.DeviceID), zap.Error(err))
		}
	}
	return alarms
}

// Run ticks once immediately, then every interval until ctx is cancelled.
// An unprovisioned node returns at once.
func (m *Monitor) Run(ctx context.Context) error {
	if !m.node.Provisioned() {
		m.logger.Info("node not provisioned, monitoring skipped")
		return nil
	}
	m.logger.Info("monitoring started", zap.Duration("interval", m.interval))
	m.Tick(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitoring stopped")
			return nil
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// RunAll starts one monitor per registered node and waits for all of them.
func RunAll(ctx context.Context, reg *registry.Registry, optFns ...Option) error {
	g, gCtx := errgroup.WithContext(ctx)
	for _, n := range reg.Enumerate() {
		m := NewMonitor(n, optFns...)
		g.Go(func() error {
			return m.Run(gCtx)
		})
	}
	return g.Wait()
}
