package tracer_client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	_, err := resolve(nil)
	assert.ErrorIs(t, err, ErrNoEndpoint)

	o, err := resolve([]Option{
		WithEndpoint("otel-collector:4317"),
		WithSampleRatio(3),
		WithTimeout(-time.Second),
		WithAgentID("greenhouse-1"),
	})
	require.NoError(t, err)
	assert.Equal(t, "smartfarm-agent", o.ServiceName)
	assert.Equal(t, 1.0, o.SampleRatio)
	assert.Equal(t, 10*time.Second, o.Timeout)
	assert.Equal(t, "greenhouse-1", o.AgentID)
}

func TestDisabledTracing(t *testing.T) {
	_, err := NewTracerClient()
	assert.ErrorIs(t, err, ErrNoEndpoint)

	_, span := Tracer("threshold_coordinator").Start(context.Background(), "coordinator.cycle")
	span.SetAttributes(AttrZone.String("A"), AttrRecipe.String("tomato.seedling"))
	span.End()
	assert.False(t, span.SpanContext().IsValid())
	assert.NoError(t, Shutdown(context.Background()))
}
