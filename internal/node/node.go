// Package node implements a farm node: a bundle of sensors and actuators
// sharing an id, a fixed pin budget and a recipe catalog.
package node

import (
	"sort"
	"strings"
	"sync"

	"github.com/okieraised/smartfarm-agent/internal/cerrors"
	"github.com/okieraised/smartfarm-agent/internal/device"
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/log"
	"github.com/okieraised/smartfarm-agent/internal/recipe"
	"go.uber.org/zap"
)

// SamplerFactory picks the raw value source of a provisioned sensor.
type SamplerFactory func(nodeID string, cfg SensorConfig) device.Sampler

type Options struct {
	Catalog        recipe.CatalogSource
	Budget         PinBudget
	SamplerFactory SamplerFactory
	Logger         *log.Logger
}

type Option func(*Options)

func WithCatalog(c recipe.CatalogSource) Option {
	return func(o *Options) { o.Catalog = c }
}

func WithPinBudget(b PinBudget) Option {
	return func(o *Options) { o.Budget = b }
}

func WithSamplerFactory(f SamplerFactory) Option {
	return func(o *Options) { o.SamplerFactory = f }
}

func WithLogger(l *log.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

type Node struct {
	id      string
	catalog recipe.CatalogSource
	budget  PinBudget
	sampler SamplerFactory
	logger  *log.Logger

	mu          sync.RWMutex
	label       string
	zone        string
	provisioned bool
	sensors     map[string]*device.Sensor
	actuators   map[string]*device.Actuator
	freePins    PinBudget
}

func New(id string, opts ...Option) *Node {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.Budget == nil {
		o.Budget = DefaultPinBudget()
	}
	if o.Catalog == nil {
		o.Catalog = recipe.Catalog{}
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return &Node{
		id:        id,
		catalog:   o.Catalog,
		budget:    o.Budget.clone(),
		sampler:   o.SamplerFactory,
		logger:    o.Logger.ForNode(id),
		sensors:   map[string]*device.Sensor{},
		actuators: map[string]*device.Actuator{},
		freePins:  o.Budget.clone(),
	}
}

func (n *Node) ID() string { return n.id }

func (n *Node) Provisioned() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.provisioned
}

// Provision replaces the node's devices with the ones declared in cfg.
// Pins are allocated from a fresh copy of the node's budget, so the same cfg
// always yields the same pin map. On error the node is left as it was.
func (n *Node) Provision(cfg Config) error {
	pool := newPinPool(n.budget)
	sensors := make(map[string]*device.Sensor, len(cfg.Sensors))
	actuators := make(map[string]*device.Actuator, len(cfg.Actuators))
	seen := make(map[string]struct{}, len(cfg.Sensors)+len(cfg.Actuators))

	claim := func(id string) error {
		if id == "" {
			return cerrors.ErrProvisioning.WithMessage("node %s: device without id", n.id)
		}
		if _, dup := seen[id]; dup {
			return cerrors.ErrDuplicateDevice.WithMessage("node %s: duplicate device id %s", n.id, id)
		}
		seen[id] = struct{}{}
		return nil
	}

	for _, sc := range cfg.Sensors {
		if err := claim(sc.ID); err != nil {
			return err
		}
		medium, err := device.ParseMedium(sc.Type)
		if err != nil {
			return err
		}
		pin, err := pool.take(medium, sc.ID)
		if err != nil {
			return err
		}
		var sampler device.Sampler
		if n.sampler != nil {
			sampler = n.sampler(n.id, sc)
		}
		s, err := device.NewSensor(device.SensorSpec{
			ID:           sc.ID,
			Name:         nameOr(sc.Name, "Sensor"),
			Pin:          pin,
			Medium:       medium,
			ThresholdMin: sc.Min,
			ThresholdMax: sc.Max,
			Offset:       sc.Offset,
			FilterSize:   sc.FilterSize,
			Hysteresis:   sc.Hysteresis,
			Automation: device.Automation{
				TargetMin: sc.TargetMin,
				TargetMax: sc.TargetMax,
				MsgIDMin:  sc.MsgIDMin,
				MsgIDMax:  sc.MsgIDMax,
			},
			Sampler: sampler,
		})
		if err != nil {
			return err
		}
		sensors[sc.ID] = s
	}

	for _, ac := range cfg.Actuators {
		if err := claim(ac.ID); err != nil {
			return err
		}
		medium, err := device.ParseMedium(ac.Type)
		if err != nil {
			return err
		}
		pin, err := pool.take(medium, ac.ID)
		if err != nil {
			return err
		}
		actuators[ac.ID] = device.NewActuator(device.ActuatorSpec{
			ID:     ac.ID,
			Name:   nameOr(ac.Name, "Actuator"),
			Pin:    pin,
			Medium: medium,
		})
	}

	n.mu.Lock()
	n.sensors = sensors
	n.actuators = actuators
	n.freePins = pool.remaining()
	if cfg.Label != "" {
		n.label = cfg.Label
	}
	if cfg.Zone != "" {
		n.zone = cfg.Zone
	}
	n.mu.Unlock()

	if cfg.Recipe != "" {
		n.UpdateThresholds(cfg.Recipe)
	}

	n.mu.Lock()
	n.provisioned = true
	n.mu.Unlock()

	n.logger.Info("node provisioned",
		zap.Int("sensors", len(sensors)),
		zap.Int("actuators", len(actuators)),
		zap.String("recipe", cfg.Recipe),
	)
	return nil
}

// UpdateThresholds applies recipeKey and reports whether it succeeded.
// Failures are logged and leave every threshold untouched.
func (n *Node) UpdateThresholds(recipeKey string) bool {
	if err := n.ApplyRecipe(recipeKey); err != nil {
		n.logger.Warn("threshold update failed", zap.String("recipe", recipeKey), zap.Error(err))
		return false
	}
	return true
}

// ApplyRecipe loads the catalog, resolves recipeKey and overwrites the
// thresholds of every sensor whose name contains a catalog keyword.
func (n *Node) ApplyRecipe(recipeKey string) error {
	key, err := recipe.ParseKey(recipeKey)
	if err != nil {
		return cerrors.ErrThresholdUpdate.WithCause(err)
	}
	catalog, err := n.catalog.LoadCatalog()
	if err != nil {
		return cerrors.ErrThresholdUpdate.WithCause(err)
	}
	stage, err := catalog.Lookup(key)
	if err != nil {
		return cerrors.ErrThresholdUpdate.WithCause(err)
	}

	updated := 0
	for _, s := range n.Sensors() {
		limits, ok := stage.Match(s.Name())
		if !ok {
			continue
		}
		s.SetThresholds(limits.Min, limits.Max)
		updated++
	}
	n.logger.Debug("recipe applied", zap.String("recipe", key.String()), zap.Int("sensors", updated))
	return nil
}

// Sensors returns the node's sensors ordered by id.
func (n *Node) Sensors() []*device.Sensor {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]*device.Sensor, 0, len(n.sensors))
	for _, s := range n.sensors {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Actuators returns the node's actuators ordered by id.
func (n *Node) Actuators() []*device.Actuator {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]*device.Actuator, 0, len(n.actuators))
	for _, a := range n.actuators {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func (n *Node) Sensor(id string) (*device.Sensor, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	s, ok := n.sensors[id]
	return s, ok
}

func (n *Node) Actuator(id string) (*device.Actuator, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	a, ok := n.actuators[id]
	return a, ok
}

type PinInfo struct {
	Name       string            `json:"name"`
	Pin        string            `json:"pin"`
	Capability device.Capability `json:"type"`
}

func (n *Node) GetPinMap() map[string]PinInfo {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make(map[string]PinInfo, len(n.sensors)+len(n.actuators))
	for id, s := range n.sensors {
		out[id] = PinInfo{Name: s.Name(), Pin: s.Pin(), Capability: device.CapabilitySensor}
	}
	for id, a := range n.actuators {
		out[id] = PinInfo{Name: a.Name(), Pin: a.Pin(), Capability: device.CapabilityActuator}
	}
	return out
}

// FreePins lists the pins not allocated by the last provisioning.
func (n *Node) FreePins() PinBudget {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.freePins.clone()
}

type ActuatorState struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	State string `json:"state"`
}

type Snapshot struct {
	Sensors   []device.Status `json:"sensors"`
	Actuators []ActuatorState `json:"actuators"`
}

// Snapshot takes a fresh reading of every sensor and the current state of
// every actuator.
func (n *Node) Snapshot() Snapshot {
	sensors := n.Sensors()
	actuators := n.Actuators()
	snap := Snapshot{
		Sensors:   make([]device.Status, 0, len(sensors)),
		Actuators: make([]ActuatorState, 0, len(actuators)),
	}
	for _, s := range sensors {
		snap.Sensors = append(snap.Sensors, s.GetStatus())
	}
	for _, a := range actuators {
		snap.Actuators = append(snap.Actuators, ActuatorState{ID: a.ID(), Name: a.Name(), State: a.State()})
	}
	return snap
}

// Update lists the node-management fields that may change after
// provisioning. Nil fields are left alone.
type Update struct {
	Label *string `json:"label,omitempty"`
	Zone  *string `json:"zone,omitempty"`
}

func (n *Node) UpdateFields(u Update) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if u.Label != nil {
		n.label = strings.TrimSpace(*u.Label)
	}
	if u.Zone != nil {
		n.zone = strings.TrimSpace(*u.Zone)
	}
}

type Info struct {
	ID          string `json:"id"`
	Label       string `json:"label,omitempty"`
	Zone        string `json:"zone,omitempty"`
	Provisioned bool   `json:"provisioned"`
	Sensors     int    `json:"sensors"`
	Actuators   int    `json:"actuators"`
}

func (n *Node) Info() Info {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return Info{
		ID:          n.id,
		Label:       n.label,
		Zone:        n.zone,
		Provisioned: n.provisioned,
		Sensors:     len(n.sensors),
		Actuators:   len(n.actuators),
	}
}

func nameOr(name, def string) string {
	if strings.TrimSpace(name) == "" {
		return def
	}
	return name
}
