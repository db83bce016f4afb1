package mqtt_client

import (
	"crypto/tls"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecureScheme(t *testing.T) {
	assert.True(t, secureScheme("mqtts://broker:8883"))
	assert.True(t, secureScheme("SSL://broker:8883"))
	assert.True(t, secureScheme("wss://broker/mqtt"))
	assert.False(t, secureScheme("tcp://broker:1883"))
	assert.False(t, secureScheme("broker:1883"))
}

func TestSettingsFromConfig(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("mqtt.alert_topic_prefix", "/farm/")
	viper.Set("mqtt.keep_alive_duration", "45s")

	s := SettingsFromConfig("greenhouse-1")
	assert.Equal(t, "farm/greenhouse-1/status", s.StatusTopic)
	assert.Equal(t, 45*time.Second, s.KeepAlive)
	assert.True(t, s.CleanSession)
	assert.False(t, s.InsecureTLS)
}

func TestClientOptions(t *testing.T) {
	s := Settings{StatusTopic: "smartfarm/agent-1/status", ConnectTimeout: time.Second}

	opts := clientOptions("tcp://broker:1883", "agent-1", s)
	assert.Equal(t, "agent-1", opts.ClientID)
	require.Len(t, opts.Servers, 1)
	assert.Equal(t, "broker:1883", opts.Servers[0].Host)
	assert.True(t, opts.WillEnabled)
	assert.Equal(t, "smartfarm/agent-1/status", opts.WillTopic)
	assert.Equal(t, []byte(StatusOffline), opts.WillPayload)
	assert.True(t, opts.WillRetained)
	assert.Nil(t, opts.TLSConfig)

	opts = clientOptions("mqtts://broker:8883", "agent-1", Settings{InsecureTLS: true})
	require.NotNil(t, opts.TLSConfig)
	assert.True(t, opts.TLSConfig.InsecureSkipVerify)
	assert.False(t, opts.WillEnabled)

	custom := &tls.Config{ServerName: "broker.farm"}
	withCustom := Settings{}
	WithTLSConfig(custom)(&withCustom)
	opts = clientOptions("mqtts://broker:8883", "agent-1", withCustom)
	assert.Same(t, custom, opts.TLSConfig)
}
