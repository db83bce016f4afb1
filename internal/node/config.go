package node

import (
	"github.com/okieraised/smartfarm-agent/internal/cerrors"
	"github.com/okieraised/smartfarm-agent/internal/utilities"
)

type SensorConfig struct {
	ID         string   `json:"id" yaml:"id"`
	Name       string   `json:"name" yaml:"name"`
	Type       string   `json:"type" yaml:"type"`
	Min        *float64 `json:"min,omitempty" yaml:"min"`
	Max        *float64 `json:"max,omitempty" yaml:"max"`
	TargetMin  string   `json:"target_min,omitempty" yaml:"target_min"`
	TargetMax  string   `json:"target_max,omitempty" yaml:"target_max"`
	MsgIDMin   string   `json:"msg_id_min,omitempty" yaml:"msg_id_min"`
	MsgIDMax   string   `json:"msg_id_max,omitempty" yaml:"msg_id_max"`
	Offset     float64  `json:"offset,omitempty" yaml:"offset"`
	FilterSize int      `json:"filter_size,omitempty" yaml:"filter_size"`
	Hysteresis *float64 `json:"hysteresis,omitempty" yaml:"hysteresis"`
}

type ActuatorConfig struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// Config declares one node: its devices and an optional initial recipe.
type Config struct {
	ID        string           `json:"id" yaml:"id"`
	Label     string           `json:"label,omitempty" yaml:"label"`
	Zone      string           `json:"zone,omitempty" yaml:"zone"`
	Recipe    string           `json:"recipe,omitempty" yaml:"recipe"`
	Sensors   []SensorConfig   `json:"sensors" yaml:"sensors"`
	Actuators []ActuatorConfig `json:"actuators" yaml:"actuators"`
}

// LoadConfigs reads the node declaration document (a JSON or YAML list).
func LoadConfigs(path string) ([]Config, error) {
	var cfgs []Config
	if err := utilities.DecodeFile(path, &cfgs); err != nil {
		return nil, err
	}
	for i, c := range cfgs {
		if c.ID == "" {
			return nil, cerrors.ErrMalformedDocument.WithMessage("%s: node #%d has no id", path, i)
		}
	}
	return cfgs, nil
}
