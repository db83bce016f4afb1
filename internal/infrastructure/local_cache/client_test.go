package local_cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_Allow(t *testing.T) {
	c, err := NewLocalCache()
	require.NoError(t, err)
	defer c.Close()

	assert.True(t, c.Allow("missing-target:FAN9", 100*time.Millisecond))
	assert.False(t, c.Allow("missing-target:FAN9", 100*time.Millisecond))
	assert.True(t, c.Allow("missing-target:PUMP2", 100*time.Millisecond))

	time.Sleep(150 * time.Millisecond)
	assert.True(t, c.Allow("missing-target:FAN9", 100*time.Millisecond))

	c.Forget("missing-target:FAN9")
	assert.True(t, c.Allow("missing-target:FAN9", time.Minute))
}

func TestCache_Nil(t *testing.T) {
	var c *Cache
	assert.True(t, c.Allow("k", time.Minute))
	assert.True(t, c.Allow("k", time.Minute))
	c.Forget("k")
	c.Close()
}

func TestCache_ZeroWindow(t *testing.T) {
	c, err := NewLocalCache(WithMaxKeys(100), WithMetrics())
	require.NoError(t, err)
	defer c.Close()

	assert.True(t, c.Allow("k", 0))
	assert.True(t, c.Allow("k", 0))
}
