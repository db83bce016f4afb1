package device

import (
	"math/rand/v2"
	"sync"
)

// Sampler produces the raw (uncalibrated) reading of a sensor. The default
// implementation simulates a sensor; a hardware-backed Sampler plugs in here
// without touching the filtering or alarm logic.
type Sampler interface {
	Sample() float64
}

type SamplerFunc func() float64

func (f SamplerFunc) Sample() float64 { return f() }

// UniformSampler draws uniformly from [Min, Max).
type UniformSampler struct {
	Min float64
	Max float64
}

func NewUniformSampler(min, max float64) *UniformSampler {
	if max < min {
		min, max = max, min
	}
	return &UniformSampler{Min: min, Max: max}
}

func (s *UniformSampler) Sample() float64 {
	return s.Min + rand.Float64()*(s.Max-s.Min)
}

// SequenceSampler replays a fixed series of values and then repeats the
// last one. Useful for replaying recorded traces.
type SequenceSampler struct {
	mu     sync.Mutex
	values []float64
	next   int
}

func NewSequenceSampler(values ...float64) *SequenceSampler {
	return &SequenceSampler{values: append([]float64(nil), values...)}
}

func (s *SequenceSampler) Sample() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) == 0 {
		return 0
	}
	if s.next >= len(s.values) {
		return s.values[len(s.values)-1]
	}
	v := s.values[s.next]
	s.next++
	return v
}
