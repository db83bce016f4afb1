package device

import (
	"sync"

	"github.com/okieraised/smartfarm-agent/internal/cerrors"
	"github.com/okieraised/smartfarm-agent/internal/utilities"
)

const (
	DefaultFilterSize = 5
	DefaultHysteresis = 0.5
)

// Automation pairs a sensor's alarm channels with the actuators they drive.
type Automation struct {
	TargetMin string `json:"target_min,omitempty"`
	TargetMax string `json:"target_max,omitempty"`
	MsgIDMin  string `json:"msg_id_min,omitempty"`
	MsgIDMax  string `json:"msg_id_max,omitempty"`
}

// Alarm is emitted by AlarmStatus while at least one channel is latched.
type Alarm struct {
	DeviceID   string     `json:"id"`
	Pin        string     `json:"pin"`
	Value      float64    `json:"val"`
	Low        bool       `json:"is_min"`
	High       bool       `json:"is_max"`
	Automation Automation `json:"-"`
}

type SensorSpec struct {
	ID           string
	Name         string
	Pin          string
	Medium       Medium
	ThresholdMin *float64
	ThresholdMax *float64
	Offset       float64
	FilterSize   int
	// Hysteresis of nil selects DefaultHysteresis.
	Hysteresis *float64
	Automation Automation
	Sampler    Sampler
}

type Sensor struct {
	identity

	mu           sync.Mutex
	thresholdMin *float64
	thresholdMax *float64
	offset       float64
	hysteresis   float64
	filterSize   int
	buffer       []float64
	alarmLow     bool
	alarmHigh    bool
	automation   Automation
	sampler      Sampler
}

func NewSensor(spec SensorSpec) (*Sensor, error) {
	h := DefaultHysteresis
	if spec.Hysteresis != nil {
		h = *spec.Hysteresis
	}
	if h < 0 {
		return nil, cerrors.ErrInvalidHysteresis.WithMessage("sensor %s: hysteresis %v is negative", spec.ID, h)
	}
	size := spec.FilterSize
	if size <= 0 {
		size = DefaultFilterSize
	}
	sampler := spec.Sampler
	if sampler == nil {
		sampler = NewUniformSampler(0, 100)
	}
	return &Sensor{
		identity:     identity{id: spec.ID, name: spec.Name, pin: spec.Pin, medium: spec.Medium},
		thresholdMin: utilities.Clone(spec.ThresholdMin),
		thresholdMax: utilities.Clone(spec.ThresholdMax),
		offset:       spec.Offset,
		hysteresis:   h,
		filterSize:   size,
		buffer:       make([]float64, 0, size),
		automation:   spec.Automation,
		sampler:      sampler,
	}, nil
}

func (s *Sensor) Capability() Capability { return CapabilitySensor }

// ReadValue takes one calibrated sample and returns the moving average of
// the last FilterSize samples.
func (s *Sensor) ReadValue() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked()
}

func (s *Sensor) readLocked() float64 {
	raw := s.sampler.Sample() + s.offset
	if len(s.buffer) == s.filterSize {
		copy(s.buffer, s.buffer[1:])
		s.buffer = s.buffer[:len(s.buffer)-1]
	}
	s.buffer = append(s.buffer, raw)

	var sum float64
	for _, v := range s.buffer {
		sum += v
	}
	return sum / float64(len(s.buffer))
}

// Evaluate applies the hysteresis transition for value and returns the
// resulting (low, high) latches.
func (s *Sensor) Evaluate(value float64) (low, high bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evaluateLocked(value)
	return s.alarmLow, s.alarmHigh
}

func (s *Sensor) evaluateLocked(v float64) {
	if s.thresholdMin != nil {
		min := *s.thresholdMin
		if !s.alarmLow && v < min {
			s.alarmLow = true
		} else if s.alarmLow && v >= min+s.hysteresis {
			s.alarmLow = false
		}
	}
	if s.thresholdMax != nil {
		max := *s.thresholdMax
		if !s.alarmHigh && v > max {
			s.alarmHigh = true
		} else if s.alarmHigh && v <= max-s.hysteresis {
			s.alarmHigh = false
		}
	}
}

// AlarmStatus samples the sensor, runs the hysteresis rule and returns the
// alarm record, or nil when both channels are clear.
func (s *Sensor) AlarmStatus() *Alarm {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.readLocked()
	s.evaluateLocked(v)
	if !s.alarmLow && !s.alarmHigh {
		return nil
	}
	return &Alarm{
		DeviceID:   s.id,
		Pin:        s.pin,
		Value:      round2(v),
		Low:        s.alarmLow,
		High:       s.alarmHigh,
		Automation: s.automation,
	}
}

// AlarmState reports the latches without sampling.
func (s *Sensor) AlarmState() (low, high bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alarmLow, s.alarmHigh
}

func (s *Sensor) SetThresholds(min, max *float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.thresholdMin = utilities.Clone(min)
	s.thresholdMax = utilities.Clone(max)
}

func (s *Sensor) Thresholds() (min, max *float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return utilities.Clone(s.thresholdMin), utilities.Clone(s.thresholdMax)
}

func (s *Sensor) Hysteresis() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hysteresis
}

func (s *Sensor) Automation() Automation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.automation
}

// Samples returns a copy of the filter window, oldest first.
func (s *Sensor) Samples() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]float64(nil), s.buffer...)
}

// GetStatus takes a fresh filtered reading.
func (s *Sensor) GetStatus() Status {
	v := round2(s.ReadValue())
	return Status{
		ID:         s.id,
		Name:       s.name,
		Value:      &v,
		Pin:        s.pin,
		Medium:     s.medium,
		Capability: CapabilitySensor,
	}
}
