// Package tsdb_exporter publishes the state of the farm: a live JSON file
// refreshed every few seconds, a CSV history appended at a slower pace and
// optional remote sinks.
package tsdb_exporter

import (
	"context"
	"encoding/json"
	"time"

	"github.com/okieraised/smartfarm-agent/internal/constants"
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/log"
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/metrics"
	"github.com/okieraised/smartfarm-agent/internal/registry"
	"github.com/okieraised/smartfarm-agent/internal/utilities"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Config struct {
	LivePath     string
	CSVPath      string
	LiveInterval time.Duration
	CSVInterval  time.Duration
	SinkTimeout  time.Duration
	Sinks        []Sink
	Clock        func() time.Time
	Metrics      *metrics.Metrics
	Logger       *log.Logger
}

type Option func(*Config)

func defaultConfig() Config {
	return Config{
		LivePath:     constants.ExporterDefaultLivePath,
		CSVPath:      constants.ExporterDefaultCSVPath,
		LiveInterval: constants.ExporterDefaultLiveInterval,
		CSVInterval:  constants.ExporterDefaultCSVInterval,
		SinkTimeout:  constants.ExporterDefaultTimeout,
		Clock:        time.Now,
	}
}

// WithPaths sets the live file and CSV history locations. An empty path
// disables that output.
func WithPaths(live, csv string) Option {
	return func(c *Config) {
		c.LivePath = live
		c.CSVPath = csv
	}
}

func WithIntervals(live, csv time.Duration) Option {
	return func(c *Config) {
		if live > 0 {
			c.LiveInterval = live
		}
		if csv > 0 {
			c.CSVInterval = csv
		}
	}
}

func WithSinkTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.SinkTimeout = d
		}
	}
}

func WithSinks(sinks ...Sink) Option {
	return func(c *Config) {
		c.Sinks = append(c.Sinks, sinks...)
	}
}

func WithClock(clock func() time.Time) Option {
	return func(c *Config) {
		if clock != nil {
			c.Clock = clock
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Config) {
		c.Metrics = m
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

type Exporter struct {
	registry *registry.Registry
	conf     Config
	logger   *log.Logger
	lastCSV  time.Time
}

func NewExporter(reg *registry.Registry, optFns ...Option) *Exporter {
	conf := defaultConfig()
	for _, fn := range optFns {
		if fn != nil {
			fn(&conf)
		}
	}
	if conf.Logger == nil {
		conf.Logger = log.Default()
	}
	return &Exporter{
		registry: reg,
		conf:     conf,
		logger:   conf.Logger.Named("exporter"),
	}
}

// Export collects one snapshot and writes it to every output. The CSV
// history is only appended once CSVInterval has elapsed since the last
// append (or since the first export). Failures are logged per output.
func (e *Exporter) Export(ctx context.Context) LiveSnapshot {
	now := e.conf.Clock()
	snap := Collect(e.registry, now)

	e.conf.Metrics.SetNodes(len(snap.Nodes))
	for _, r := range snap.Rows() {
		if r.Value != nil {
			e.conf.Metrics.SetSensorValue(r.NodeID, r.DeviceID, *r.Value)
		}
	}

	if e.conf.LivePath != "" {
		err := e.writeLive(snap)
		e.conf.Metrics.IncExport("live", err == nil)
		if err != nil {
			e.logger.Error("live snapshot write failed", zap.String("path", e.conf.LivePath), zap.Error(err))
		}
	}

	if e.lastCSV.IsZero() {
		e.lastCSV = now
	} else if e.conf.CSVPath != "" && now.Sub(e.lastCSV) >= e.conf.CSVInterval {
		e.lastCSV = now
		rows := snap.Rows()
		err := AppendHistory(e.conf.CSVPath, rows)
		e.conf.Metrics.IncExport("csv", err == nil)
		if err != nil {
			e.logger.Error("history append failed", zap.String("path", e.conf.CSVPath), zap.Error(err))
		} else {
			e.logger.Debug("history appended", zap.Int("rows", len(rows)))
		}
	}

	for _, s := range e.conf.Sinks {
		sctx, cancel := context.WithTimeout(ctx, e.conf.SinkTimeout)
		err := s.Export(sctx, snap)
		cancel()
		e.conf.Metrics.IncExport(s.Name(), err == nil)
		if err != nil {
			e.logger.Warn("sink export failed", zap.String("sink", s.Name()), zap.Error(err))
		}
	}
	return snap
}

func (e *Exporter) writeLive(snap LiveSnapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal live snapshot")
	}
	return errors.Wrapf(utilities.WriteFileAtomic(e.conf.LivePath, data), "write %s", e.conf.LivePath)
}

// Run exports every LiveInterval until ctx is cancelled.
func (e *Exporter) Run(ctx context.Context) error {
	e.logger.Info("exporter started",
		zap.Duration("live_interval", e.conf.LiveInterval),
		zap.Duration("csv_interval", e.conf.CSVInterval),
		zap.Int("sinks", len(e.conf.Sinks)),
	)

	ticker := time.NewTicker(e.conf.LiveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("exporter stopped")
			return nil
		case <-ticker.C:
			e.Export(ctx)
		}
	}
}
