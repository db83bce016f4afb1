package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/okieraised/smartfarm-agent/internal/infrastructure/log"
	"github.com/okieraised/smartfarm-agent/internal/node"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRegistry_PutGetEnumerate(t *testing.T) {
	r := New(log.Nop())
	for _, id := range []string{"B001", "A002", "A001"} {
		r.Put(node.New(id, node.WithLogger(log.Nop())))
	}

	assert.Equal(t, 3, r.Len())

	n, ok := r.Get("A002")
	require.True(t, ok)
	assert.Equal(t, "A002", n.ID())

	_, ok = r.Get("C001")
	assert.False(t, ok)

	var ids []string
	for _, n := range r.Enumerate() {
		ids = append(ids, n.ID())
	}
	assert.Equal(t, []string{"A001", "A002", "B001"}, ids)
}

func TestRegistry_PutReusedID(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	r := New(&log.Logger{Logger: zap.New(core)})

	first := node.New("A001", node.WithLogger(log.Nop()))
	second := node.New("A001", node.WithLogger(log.Nop()))
	r.Put(first)
	r.Put(second)

	got, ok := r.Get("A001")
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, 1, logs.FilterMessage("node id reused, previous node replaced").Len())
}

func TestRegistry_ConcurrentReaders(t *testing.T) {
	r := New(log.Nop())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			r.Put(node.New(fmt.Sprintf("N%03d", i), node.WithLogger(log.Nop())))
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = r.Enumerate()
				_, _ = r.Get("N000")
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 8, r.Len())
}

func TestFromConfigs(t *testing.T) {
	cfgs := []node.Config{
		{
			ID:        "A001",
			Zone:      "A",
			Sensors:   []node.SensorConfig{{ID: "T1", Name: "Temp Sensor", Type: "analog"}},
			Actuators: []node.ActuatorConfig{{ID: "FAN1", Name: "Fan", Type: "digital"}},
		},
		{
			ID:      "B001",
			Sensors: []node.SensorConfig{{ID: "X1", Name: "Mystery", Type: "pwm"}},
		},
	}

	r, failed := FromConfigs(cfgs, log.Nop(), node.WithLogger(log.Nop()))
	assert.Equal(t, 1, failed)
	assert.Equal(t, 2, r.Len())

	a, ok := r.Get("A001")
	require.True(t, ok)
	assert.True(t, a.Provisioned())
	assert.Equal(t, "A", a.Info().Zone)

	b, ok := r.Get("B001")
	require.True(t, ok)
	assert.False(t, b.Provisioned())
	assert.Empty(t, b.Sensors())
}
