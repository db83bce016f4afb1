// Package threshold_coordinator re-tunes node thresholds from the zone
// growth schedule. It wakes on a fixed cadence and acts on the first wake and
// at each checkpoint hour.
package threshold_coordinator

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/okieraised/smartfarm-agent/internal/constants"
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/log"
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/metrics"
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/tracer_client"
	"github.com/okieraised/smartfarm-agent/internal/recipe"
	"github.com/okieraised/smartfarm-agent/internal/registry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Config struct {
	Cadence         time.Duration
	CheckpointHours []int
	Clock           func() time.Time
	Metrics         *metrics.Metrics
	Logger          *log.Logger
}

type Option func(*Config)

func defaultConfig() Config {
	return Config{
		Cadence:         constants.FarmDefaultCoordinatorCadence,
		CheckpointHours: constants.FarmDefaultCheckpointHours,
		Clock:           time.Now,
	}
}

func WithCadence(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.Cadence = d
		}
	}
}

// WithCheckpointHours sets the hours of the day at which a cycle acts.
func WithCheckpointHours(hours ...int) Option {
	return func(c *Config) {
		c.CheckpointHours = hours
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

type Coordinator struct {
	registry *registry.Registry
	schedule recipe.ScheduleSource
	conf     Config
	logger   *log.Logger

	mu       sync.Mutex
	acted    bool
	lastHour int
	applied  map[string]string
}

func NewCoordinator(reg *registry.Registry, schedule recipe.ScheduleSource, optFns ...Option) *Coordinator {
	conf := defaultConfig()
	for _, fn := range optFns {
		if fn != nil {
			fn(&conf)
		}
	}
	if conf.Logger == nil {
		conf.Logger = log.Default()
	}
	return &Coordinator{
		registry: reg,
		schedule: schedule,
		conf:     conf,
		logger:   conf.Logger.Named("coordinator"),
		lastHour: -1,
		applied:  make(map[string]string),
	}
}

// Due reports whether a wake at now should act.
func (c *Coordinator) Due(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dueLocked(now)
}

func (c *Coordinator) dueLocked(now time.Time) bool {
	if !c.acted {
		return true
	}
	h := now.Hour()
	return h != c.lastHour && slices.Contains(c.conf.CheckpointHours, h)
}

// Applied returns the recipe key last applied to nodeID.
func (c *Coordinator) Applied(nodeID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key, ok := c.applied[nodeID]
	return key, ok
}

// Wake runs one cadence step: when due it runs a cycle, otherwise it does
// nothing. It reports whether a cycle ran to completion.
func (c *Coordinator) Wake(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.conf.Clock()
	if !c.dueLocked(now) {
		return false
	}
	if err := c.cycleLocked(ctx, now); err != nil {
		c.conf.Metrics.IncCoordinatorCycle(false)
		c.logger.Error("coordinator cycle failed, retrying on next wake", zap.Error(err))
		return false
	}
	c.conf.Metrics.IncCoordinatorCycle(true)
	c.acted = true
	c.lastHour = now.Hour()
	return true
}

// RunCycle reloads the schedule and applies each zone's current recipe to
// the nodes of that zone whose applied recipe differs. A node's memo moves
// only when its update succeeds.
func (c *Coordinator) RunCycle(ctx context.Context, now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cycleLocked(ctx, now)
}

func (c *Coordinator) cycleLocked(ctx context.Context, now time.Time) error {
	_, span := tracer_client.Tracer("threshold_coordinator").Start(ctx, "coordinator.cycle")
	defer span.End()

	zones, err := c.schedule.LoadSchedule()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "schedule load failed")
		return err
	}

	first := !c.acted
	updated := 0
	for _, zone := range zones {
		key, err := zone.RecipeKey(now)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "stage resolution failed")
			return err
		}
		target := key.String()

		for _, n := range c.registry.Enumerate() {
			if !strings.HasPrefix(n.ID(), zone.ID) || c.applied[n.ID()] == target {
				continue
			}
			ok := n.UpdateThresholds(target)
			c.conf.Metrics.IncThresholdUpdate(n.ID(), ok)
			if !ok {
				continue
			}
			c.applied[n.ID()] = target
			updated++
			span.AddEvent("recipe applied", trace.WithAttributes(
				tracer_client.AttrNodeID.String(n.ID()),
				tracer_client.AttrZone.String(zone.ID),
				tracer_client.AttrRecipe.String(target),
			))
			c.logger.Info("recipe applied",
				zap.String("node_id", n.ID()),
				zap.String("zone", zone.ID),
				zap.String("recipe", target),
				zap.Bool("initial", first),
				zap.Int("hour", now.Hour()),
			)
		}
	}
	span.SetAttributes(attribute.Int("zones", len(zones)), attribute.Int("updated", updated))
	return nil
}

// Run wakes once immediately and then every cadence until ctx is done.
func (c *Coordinator) Run(ctx context.Context) error {
	c.logger.Info("threshold coordinator started",
		zap.Duration("cadence", c.conf.Cadence),
		zap.Ints("checkpoint_hours", c.conf.CheckpointHours),
	)
	c.Wake(ctx)

	ticker := time.NewTicker(c.conf.Cadence)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("threshold coordinator stopped")
			return nil
		case <-ticker.C:
			c.Wake(ctx)
		}
	}
}
