package log

import (
	"sync"

	"github.com/okieraised/smartfarm-agent/internal/config"
	"github.com/spf13/viper"
	"go.elastic.co/ecszap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the agent's structured logger. Children carry farm scope
// (node, device) as ECS labels.
type Logger struct {
	*zap.Logger
}

var (
	defaultOnce   sync.Once
	defaultLogger *zap.Logger
	defaultErr    error
)

func level() zap.AtomicLevel {
	lvl, err := zapcore.ParseLevel(viper.GetString(config.AgentLogLevel))
	if err != nil {
		lvl = zap.InfoLevel
	}
	return zap.NewAtomicLevelAt(lvl)
}

// BuildConfig returns the ECS encoder configuration. agent.log_format
// selects "console" for local runs; anything else is JSON.
func BuildConfig() zap.Config {
	cfg := zap.NewProductionConfig()
	if viper.GetString(config.AgentLogFormat) == "console" {
		cfg.Encoding = "console"
		cfg.Sampling = nil
	}
	enc := ecszap.ECSCompatibleEncoderConfig(cfg.EncoderConfig)
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	enc.EncodeCaller = zapcore.ShortCallerEncoder
	cfg.EncoderConfig = enc
	cfg.Level = level()
	if id := viper.GetString(config.AgentID); id != "" {
		cfg.InitialFields = map[string]any{"agent_id": id}
	}
	return cfg
}

// InitDefault builds the process-wide logger. Only the first call has any
// effect.
func InitDefault(opts ...zap.Option) error {
	defaultOnce.Do(func() {
		defaultLogger, defaultErr = BuildConfig().Build(opts...)
	})
	return defaultErr
}

// Default never returns nil: a logger that failed to build is replaced by
// a no-op one.
func Default() *Logger {
	if defaultLogger == nil {
		if err := InitDefault(); err != nil || defaultLogger == nil {
			return Nop()
		}
	}
	return &Logger{defaultLogger}
}

func Sync() error {
	if defaultLogger == nil {
		return nil
	}
	return defaultLogger.Sync()
}

func Nop() *Logger { return &Logger{zap.NewNop()} }

func (l *Logger) With(fields ...zap.Field) *Logger { return &Logger{l.Logger.With(fields...)} }

func (l *Logger) Named(name string) *Logger { return &Logger{l.Logger.Named(name)} }

// ForNode tags every entry with the node id.
func (l *Logger) ForNode(nodeID string) *Logger {
	return l.With(zap.String("node_id", nodeID))
}

// ForDevice tags every entry with the node and device ids.
func (l *Logger) ForDevice(nodeID, deviceID string) *Logger {
	return l.With(zap.String("node_id", nodeID), zap.String("device_id", deviceID))
}
