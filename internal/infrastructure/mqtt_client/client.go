package mqtt_client

import (
	"context"
	"crypto/tls"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/okieraised/smartfarm-agent/internal/config"
	"github.com/okieraised/smartfarm-agent/internal/constants"
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/log"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Settings is the broker session profile of one agent.
type Settings struct {
	CleanSession     bool
	AutoReconnect    bool
	ResumeSubs       bool
	InsecureTLS      bool
	WriteTimeout     time.Duration
	KeepAlive        time.Duration
	PingTimeout      time.Duration
	MaxReconnect     time.Duration
	ConnectTimeout   time.Duration
	RetryMaxInterval time.Duration
	// StatusTopic carries the retained availability of the agent: online
	// once connected, offline via the broker's last will.
	StatusTopic string
	TLSConfig   *tls.Config
}

type Option func(*Settings)

func WithTLSConfig(cfg *tls.Config) Option {
	return func(s *Settings) { s.TLSConfig = cfg }
}

// StatusTopic is "<prefix>/<client id>/status".
func StatusTopic(prefix, clientID string) string {
	return strings.Trim(prefix, "/") + "/" + clientID + "/status"
}

// SettingsFromConfig reads the mqtt.* keys.
func SettingsFromConfig(clientID string) Settings {
	return Settings{
		CleanSession:     config.Bool(config.MqttCleanSession, true),
		AutoReconnect:    config.Bool(config.MqttAutoReconnect, true),
		ResumeSubs:       config.Bool(config.MqttResumeSubs, true),
		InsecureTLS:      config.Bool(config.MqttTLSInsecureSkipVerify, false),
		WriteTimeout:     config.Duration(config.MqttWriteTimeout, constants.MqttDefaultWriteTimeout),
		KeepAlive:        config.Duration(config.MqttKeepAliveDuration, constants.MqttDefaultKeepAlive),
		PingTimeout:      config.Duration(config.MqttPingTimeout, constants.MqttDefaultPingTimeout),
		MaxReconnect:     config.Duration(config.MqttMaxConnectInterval, constants.MqttDefaultMaxReconnectInterval),
		ConnectTimeout:   config.Duration(config.MqttConnectTimeout, constants.MqttDefaultConnectTimeout),
		RetryMaxInterval: config.Duration(config.MqttConnectRetryInterval, constants.MqttDefaultConnectRetryInterval),
		StatusTopic: StatusTopic(
			config.String(config.MqttAlertTopicPrefix, constants.MqttDefaultAlertTopicPrefix),
			clientID,
		),
	}
}

func secureScheme(endpoint string) bool {
	scheme, _, ok := strings.Cut(strings.ToLower(endpoint), "://")
	if !ok {
		return false
	}
	switch scheme {
	case "mqtts", "ssl", "tls", "wss":
		return true
	}
	return false
}

func clientOptions(endpoint, clientID string, s Settings) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions().
		AddBroker(endpoint).
		SetClientID(clientID).
		SetCleanSession(s.CleanSession).
		SetAutoReconnect(s.AutoReconnect).
		SetResumeSubs(s.ResumeSubs).
		SetMaxReconnectInterval(s.MaxReconnect).
		SetWriteTimeout(s.WriteTimeout).
		SetKeepAlive(s.KeepAlive).
		SetPingTimeout(s.PingTimeout).
		SetConnectTimeout(s.ConnectTimeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Default().Warn("mqtt connection lost", zap.String("client_id", clientID), zap.Error(err))
		}).
		SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) {
			log.Default().Info("mqtt reconnecting", zap.String("client_id", clientID))
		})

	switch {
	case s.TLSConfig != nil:
		opts.SetTLSConfig(s.TLSConfig)
	case secureScheme(endpoint):
		opts.SetTLSConfig(&tls.Config{InsecureSkipVerify: s.InsecureTLS}) // #nosec G402
	}

	if s.StatusTopic != "" {
		topic := s.StatusTopic
		opts.SetWill(topic, StatusOffline, 1, true)
		opts.SetOnConnectHandler(func(c mqtt.Client) {
			tok := c.Publish(topic, 1, true, StatusOnline)
			if tok.WaitTimeout(s.WriteTimeout) && tok.Error() != nil {
				log.Default().Warn("mqtt status publish failed", zap.String("topic", topic), zap.Error(tok.Error()))
			}
		})
	}
	return opts
}

// NewMQTTClient connects to endpoint, retrying with exponential backoff
// until ctx is done or maxElapsed is spent.
func NewMQTTClient(ctx context.Context, endpoint, clientID string, maxElapsed time.Duration, optFns ...Option) (mqtt.Client, error) {
	s := SettingsFromConfig(clientID)
	for _, fn := range optFns {
		fn(&s)
	}
	c := mqtt.NewClient(clientOptions(endpoint, clientID, s))

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = s.RetryMaxInterval
	bo.MaxElapsedTime = maxElapsed

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		tok := c.Connect()
		if !tok.WaitTimeout(s.ConnectTimeout) {
			return errors.Errorf("mqtt connect timeout after %s", s.ConnectTimeout)
		}
		if err := tok.Error(); err != nil {
			log.Default().Warn("mqtt connect failed", zap.String("endpoint", endpoint), zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		return nil
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return nil, errors.Wrapf(err, "mqtt connect to %s", endpoint)
	}
	log.Default().Info("mqtt connected", zap.String("endpoint", endpoint), zap.String("client_id", clientID), zap.String("status_topic", s.StatusTopic))
	return c, nil
}

// Disconnect marks the agent offline before closing the session, since a
// clean disconnect suppresses the broker's last will.
func Disconnect(c mqtt.Client, statusTopic string, quiesce uint) {
	if statusTopic != "" && c.IsConnectionOpen() {
		c.Publish(statusTopic, 1, true, StatusOffline).WaitTimeout(time.Second)
	}
	c.Disconnect(quiesce)
}
