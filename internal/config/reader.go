package config

import (
	"time"

	"github.com/okieraised/smartfarm-agent/internal/utilities"
	"github.com/spf13/viper"
)

func Bool(key string, def bool) bool {
	if !viper.IsSet(key) {
		return def
	}
	return viper.GetBool(key)
}

func String(key, def string) string {
	if s := viper.GetString(key); s != "" {
		return s
	}
	return def
}

func Int(key string, def int) int {
	if !viper.IsSet(key) {
		return def
	}
	return viper.GetInt(key)
}

// Duration accepts "10s"/"500ms", a bare int (seconds), or a native duration.
func Duration(key string, def time.Duration) time.Duration {
	if !viper.IsSet(key) {
		return def
	}
	if d, err := utilities.Parse(viper.GetString(key)); err == nil && d > 0 {
		return d
	}
	if d := viper.GetDuration(key); d > 0 {
		return d
	}
	return def
}

// Hours reads a list of wall-clock hours, dropping values outside 0..23.
func Hours(key string, def []int) []int {
	if !viper.IsSet(key) {
		return def
	}
	var out []int
	for _, h := range viper.GetIntSlice(key) {
		if h >= 0 && h < 24 {
			out = append(out, h)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
