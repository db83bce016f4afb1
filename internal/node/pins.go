package node

import (
	"fmt"

	"github.com/okieraised/smartfarm-agent/internal/cerrors"
	"github.com/okieraised/smartfarm-agent/internal/device"
)

// PinBudget is the ordered list of pins a node offers per medium.
type PinBudget map[device.Medium][]string

// DefaultPinBudget is the ESP32-C3 layout: five ADC-capable pins followed by
// sixteen digital GPIOs.
func DefaultPinBudget() PinBudget {
	analog := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		analog = append(analog, fmt.Sprintf("GPIO%d(ADC)", i))
	}
	digital := make([]string, 0, 16)
	for i := 5; i <= 20; i++ {
		digital = append(digital, fmt.Sprintf("GPIO%d", i))
	}
	return PinBudget{
		device.MediumAnalog:  analog,
		device.MediumDigital: digital,
	}
}

func (b PinBudget) clone() PinBudget {
	out := make(PinBudget, len(b))
	for m, pins := range b {
		out[m] = append([]string(nil), pins...)
	}
	return out
}

// pinPool hands out pins in budget order; each pin is given out once.
type pinPool struct {
	free PinBudget
}

func newPinPool(budget PinBudget) *pinPool {
	return &pinPool{free: budget.clone()}
}

func (p *pinPool) take(m device.Medium, deviceID string) (string, error) {
	pins, ok := p.free[m]
	if !ok {
		return "", cerrors.ErrUnknownMedium.WithMessage("device %s: node has no %s pins", deviceID, m)
	}
	if len(pins) == 0 {
		return "", cerrors.ErrPinPoolExhausted.WithMessage("device %s: %s pin pool exhausted", deviceID, m)
	}
	p.free[m] = pins[1:]
	return pins[0], nil
}

func (p *pinPool) remaining() PinBudget {
	return p.free.clone()
}
