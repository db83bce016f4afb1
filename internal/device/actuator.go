package device

import (
	"fmt"
	"sync"
)

const InitialActuatorState = "OFF"

type ActuatorSpec struct {
	ID     string
	Name   string
	Pin    string
	Medium Medium
}

type Actuator struct {
	identity

	mu    sync.Mutex
	state string
}

func NewActuator(spec ActuatorSpec) *Actuator {
	return &Actuator{
		identity: identity{id: spec.ID, name: spec.Name, pin: spec.Pin, medium: spec.Medium},
		state:    InitialActuatorState,
	}
}

func (a *Actuator) Capability() Capability { return CapabilityActuator }

// SetState overwrites the state without validating the transition and
// returns the acknowledgment.
func (a *Actuator) SetState(state string) string {
	a.mu.Lock()
	a.state = state
	a.mu.Unlock()
	return fmt.Sprintf("State -> %s", state)
}

func (a *Actuator) State() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Actuator) GetStatus() Status {
	return Status{
		ID:         a.id,
		Name:       a.name,
		Pin:        a.pin,
		Medium:     a.medium,
		Capability: CapabilityActuator,
		State:      a.State(),
	}
}
