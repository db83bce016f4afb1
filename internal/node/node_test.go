package node

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/okieraised/smartfarm-agent/internal/cerrors"
	"github.com/okieraised/smartfarm-agent/internal/device"
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/log"
	"github.com/okieraised/smartfarm-agent/internal/recipe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

func tomatoCatalog() recipe.Catalog {
	return recipe.Catalog{
		"tomato": {
			"seedling": {{Keyword: "Temp", Limits: recipe.Limits{Min: f64(18), Max: f64(26)}}},
		},
	}
}

func testConfig() Config {
	return Config{
		ID: "A001",
		Sensors: []SensorConfig{
			{ID: "T1", Name: "Temp Sensor", Type: "analog", TargetMax: "FAN1", MsgIDMax: "too_hot"},
			{ID: "H1", Name: "Humidity Sensor", Type: "analog", Min: f64(40)},
			{ID: "L1", Name: "Leak Switch", Type: "digital"},
		},
		Actuators: []ActuatorConfig{
			{ID: "FAN1", Name: "Fan", Type: "digital"},
			{ID: "PUMP1", Type: "digital"},
		},
	}
}

func newTestNode(opts ...Option) *Node {
	return New("A001", append([]Option{WithLogger(log.Nop())}, opts...)...)
}

func TestNode_Provision(t *testing.T) {
	n := newTestNode()
	assert.False(t, n.Provisioned())

	require.NoError(t, n.Provision(testConfig()))
	assert.True(t, n.Provisioned())

	pins := n.GetPinMap()
	assert.Equal(t, map[string]PinInfo{
		"T1":    {Name: "Temp Sensor", Pin: "GPIO0(ADC)", Capability: device.CapabilitySensor},
		"H1":    {Name: "Humidity Sensor", Pin: "GPIO1(ADC)", Capability: device.CapabilitySensor},
		"L1":    {Name: "Leak Switch", Pin: "GPIO5", Capability: device.CapabilitySensor},
		"FAN1":  {Name: "Fan", Pin: "GPIO6", Capability: device.CapabilityActuator},
		"PUMP1": {Name: "Actuator", Pin: "GPIO7", Capability: device.CapabilityActuator},
	}, pins)

	free := n.FreePins()
	assert.Len(t, free[device.MediumAnalog], 3)
	assert.Len(t, free[device.MediumDigital], 13)

	s, ok := n.Sensor("T1")
	require.True(t, ok)
	assert.Equal(t, "FAN1", s.Automation().TargetMax)

	a, ok := n.Actuator("FAN1")
	require.True(t, ok)
	assert.Equal(t, "OFF", a.State())
}

func TestNode_Provision_Idempotent(t *testing.T) {
	n := newTestNode()
	require.NoError(t, n.Provision(testConfig()))
	first := n.GetPinMap()

	require.NoError(t, n.Provision(testConfig()))
	assert.Equal(t, first, n.GetPinMap())
	assert.Len(t, n.Sensors(), 3)
	assert.Len(t, n.Actuators(), 2)
}

func TestNode_Provision_ReplacesDevices(t *testing.T) {
	n := newTestNode()
	require.NoError(t, n.Provision(testConfig()))

	require.NoError(t, n.Provision(Config{ID: "A001", Sensors: []SensorConfig{{ID: "X1", Type: "digital"}}}))
	assert.Equal(t, map[string]PinInfo{
		"X1": {Name: "Sensor", Pin: "GPIO5", Capability: device.CapabilitySensor},
	}, n.GetPinMap())
}

func TestNode_Provision_Errors(t *testing.T) {
	budget := PinBudget{device.MediumAnalog: {"A0"}, device.MediumDigital: {"D0"}}

	tests := []struct {
		name string
		cfg  Config
		want *cerrors.AppError
	}{
		{
			name: "unknown medium",
			cfg:  Config{Sensors: []SensorConfig{{ID: "T1", Type: "pwm"}}},
			want: cerrors.ErrUnknownMedium,
		},
		{
			name: "analog pool exhausted",
			cfg:  Config{Sensors: []SensorConfig{{ID: "T1", Type: "analog"}, {ID: "T2", Type: "analog"}}},
			want: cerrors.ErrPinPoolExhausted,
		},
		{
			name: "digital pool shared by sensors and actuators",
			cfg: Config{
				Sensors:   []SensorConfig{{ID: "L1", Type: "digital"}},
				Actuators: []ActuatorConfig{{ID: "FAN1", Type: "digital"}},
			},
			want: cerrors.ErrPinPoolExhausted,
		},
		{
			name: "duplicate id",
			cfg: Config{
				Sensors:   []SensorConfig{{ID: "X", Type: "analog"}},
				Actuators: []ActuatorConfig{{ID: "X", Type: "digital"}},
			},
			want: cerrors.ErrDuplicateDevice,
		},
		{
			name: "negative hysteresis",
			cfg:  Config{Sensors: []SensorConfig{{ID: "T1", Type: "analog", Hysteresis: f64(-1)}}},
			want: cerrors.ErrInvalidHysteresis,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := newTestNode(WithPinBudget(budget))
			err := n.Provision(tt.cfg)
			assert.ErrorIs(t, err, tt.want)
			assert.False(t, n.Provisioned())
			assert.Empty(t, n.GetPinMap())
		})
	}
}

func TestNode_Provision_FailureKeepsPreviousDevices(t *testing.T) {
	n := newTestNode()
	require.NoError(t, n.Provision(testConfig()))
	before := n.GetPinMap()

	err := n.Provision(Config{Sensors: []SensorConfig{{ID: "T1", Type: "i2c"}}})
	assert.Error(t, err)
	assert.Equal(t, before, n.GetPinMap())
	assert.True(t, n.Provisioned())
}

func TestNode_Provision_InitialRecipe(t *testing.T) {
	n := newTestNode(WithCatalog(tomatoCatalog()))
	cfg := testConfig()
	cfg.Recipe = "tomato.seedling"
	require.NoError(t, n.Provision(cfg))

	s, _ := n.Sensor("T1")
	min, max := s.Thresholds()
	assert.Equal(t, 18.0, *min)
	assert.Equal(t, 26.0, *max)
}

func TestNode_UpdateThresholds(t *testing.T) {
	n := newTestNode(WithCatalog(tomatoCatalog()))
	require.NoError(t, n.Provision(testConfig()))

	assert.True(t, n.UpdateThresholds("tomato.seedling"))

	temp, _ := n.Sensor("T1")
	min, max := temp.Thresholds()
	require.NotNil(t, min)
	require.NotNil(t, max)
	assert.Equal(t, 18.0, *min)
	assert.Equal(t, 26.0, *max)

	// no keyword match, left untouched
	hum, _ := n.Sensor("H1")
	min, max = hum.Thresholds()
	assert.Equal(t, 40.0, *min)
	assert.Nil(t, max)
}

func TestNode_UpdateThresholds_Failure(t *testing.T) {
	n := newTestNode(WithCatalog(tomatoCatalog()))
	require.NoError(t, n.Provision(testConfig()))
	require.True(t, n.UpdateThresholds("tomato.seedling"))

	for _, key := range []string{"tomato.flowering", "lettuce.seedling", "tomato", "a.b.c", ""} {
		assert.False(t, n.UpdateThresholds(key), key)
	}
	temp, _ := n.Sensor("T1")
	min, max := temp.Thresholds()
	assert.Equal(t, 18.0, *min)
	assert.Equal(t, 26.0, *max)

	err := n.ApplyRecipe("tomato.flowering")
	assert.ErrorIs(t, err, cerrors.ErrThresholdUpdate)
	assert.ErrorIs(t, err, cerrors.ErrRecipeNotFound)

	err = n.ApplyRecipe("tomato")
	assert.ErrorIs(t, err, cerrors.ErrMalformedRecipeKey)
}

func TestNode_UpdateThresholds_CatalogFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog_crop.json")
	n := newTestNode(WithCatalog(recipe.FileCatalog{Path: path}))
	require.NoError(t, n.Provision(testConfig()))

	// missing file is a failure, not a panic
	assert.False(t, n.UpdateThresholds("tomato.seedling"))
	assert.ErrorIs(t, n.ApplyRecipe("tomato.seedling"), cerrors.ErrMissingDocument)

	require.NoError(t, os.WriteFile(path, []byte(`{"tomato":{"seedling":{"Temp":{"min":18,"max":26}}}}`), 0o644))
	assert.True(t, n.UpdateThresholds("tomato.seedling"))

	// edits are picked up on the next call
	require.NoError(t, os.WriteFile(path, []byte(`{"tomato":{"seedling":{"temp":{"min":20}}}}`), 0o644))
	assert.True(t, n.UpdateThresholds("tomato.seedling"))
	temp, _ := n.Sensor("T1")
	min, max := temp.Thresholds()
	assert.Equal(t, 20.0, *min)
	assert.Nil(t, max)
}

func TestNode_UpdateThresholds_CatalogOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog_crop.json")
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"tomato":{"seedling":{"temp":{"min":18,"max":26},"soil":{"min":30,"max":60}}}}`), 0o644))

	cfg := testConfig()
	cfg.Sensors = append(cfg.Sensors, SensorConfig{ID: "S1", Name: "Soil Temp", Type: "analog"})
	n := newTestNode(WithCatalog(recipe.FileCatalog{Path: path}))
	require.NoError(t, n.Provision(cfg))
	require.True(t, n.UpdateThresholds("tomato.seedling"))

	// "temp" comes first in the document, so it wins over "soil"
	soil, ok := n.Sensor("S1")
	require.True(t, ok)
	min, max := soil.Thresholds()
	require.NotNil(t, min)
	require.NotNil(t, max)
	assert.Equal(t, 18.0, *min)
	assert.Equal(t, 26.0, *max)
}

func TestNode_Snapshot(t *testing.T) {
	n := newTestNode(WithSamplerFactory(func(_ string, sc SensorConfig) device.Sampler {
		return device.SamplerFunc(func() float64 { return 12.25 })
	}))
	require.NoError(t, n.Provision(testConfig()))

	snap := n.Snapshot()
	require.Len(t, snap.Sensors, 3)
	assert.Equal(t, "H1", snap.Sensors[0].ID)
	assert.Equal(t, 12.25, *snap.Sensors[0].Value)
	assert.Equal(t, []ActuatorState{
		{ID: "FAN1", Name: "Fan", State: "OFF"},
		{ID: "PUMP1", Name: "Actuator", State: "OFF"},
	}, snap.Actuators)
}

func TestNode_UpdateFields(t *testing.T) {
	n := newTestNode()
	cfg := testConfig()
	cfg.Zone = "A_Zone"
	require.NoError(t, n.Provision(cfg))

	label := " Seoul_Node_01 "
	n.UpdateFields(Update{Label: &label})
	info := n.Info()
	assert.Equal(t, "Seoul_Node_01", info.Label)
	assert.Equal(t, "A_Zone", info.Zone)
	assert.Equal(t, 3, info.Sensors)
	assert.True(t, info.Provisioned)
}

func TestLoadConfigs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"id": "A001", "recipe": "tomato.seedling",
		 "sensors": [{"id": "T1", "name": "Temp", "type": "analog", "max": 30, "target_max": "FAN1", "hysteresis": 1}],
		 "actuators": [{"id": "FAN1", "name": "Fan", "type": "digital"}]}
	]`), 0o644))

	cfgs, err := LoadConfigs(path)
	require.NoError(t, err)
	require.Len(t, cfgs, 1)
	assert.Equal(t, "tomato.seedling", cfgs[0].Recipe)
	assert.Equal(t, 30.0, *cfgs[0].Sensors[0].Max)
	assert.Nil(t, cfgs[0].Sensors[0].Min)
	assert.Equal(t, 1.0, *cfgs[0].Sensors[0].Hysteresis)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`[{"sensors": []}]`), 0o644))
	_, err = LoadConfigs(bad)
	assert.ErrorIs(t, err, cerrors.ErrMalformedDocument)

	_, err = LoadConfigs(filepath.Join(dir, "nope.yaml"))
	assert.ErrorIs(t, err, cerrors.ErrMissingDocument)
}
