// Package device models the sensors and actuators hosted on a farm node.
//
// Sensor and Actuator are the two concrete variants; both satisfy Device,
// which only exposes identity and GetStatus. Sampling, thresholds and alarm
// state live on *Sensor, the command state on *Actuator.
package device

import (
	"math"
	"strings"

	"github.com/okieraised/smartfarm-agent/internal/cerrors"
)

type Medium string

const (
	MediumAnalog  Medium = "analog"
	MediumDigital Medium = "digital"
)

// ParseMedium accepts the medium names used in node configuration documents.
func ParseMedium(s string) (Medium, error) {
	switch Medium(strings.ToLower(strings.TrimSpace(s))) {
	case MediumAnalog:
		return MediumAnalog, nil
	case MediumDigital:
		return MediumDigital, nil
	default:
		return "", cerrors.ErrUnknownMedium.WithMessage("unknown device medium %q", s)
	}
}

type Capability string

const (
	CapabilitySensor   Capability = "Sensor"
	CapabilityActuator Capability = "Actuator"
)

type Device interface {
	ID() string
	Name() string
	Pin() string
	Medium() Medium
	Capability() Capability
	GetStatus() Status
}

// Status is the reporting view of a device. Value is set for sensors,
// State for actuators.
type Status struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Value      *float64   `json:"val,omitempty"`
	Pin        string     `json:"pin"`
	Medium     Medium     `json:"type"`
	Capability Capability `json:"capability"`
	State      string     `json:"state,omitempty"`
}

type identity struct {
	id     string
	name   string
	pin    string
	medium Medium
}

func (d identity) ID() string     { return d.id }
func (d identity) Name() string   { return d.name }
func (d identity) Pin() string    { return d.pin }
func (d identity) Medium() Medium { return d.medium }

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
