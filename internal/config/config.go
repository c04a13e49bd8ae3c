// Package config loads process-level settings for the demo commands —
// log level, metrics listen address, and per-role knobs — layering flags
// over environment variables via viper. The core bus package never
// imports this; BusConfig stays free of CLI concerns.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Shared holds the settings every demo command exposes regardless of
// role.
type Shared struct {
	LogLevel    string
	MetricsAddr string
}

// New returns a viper instance that reads PUBSUB_-prefixed environment
// variables (dashes folded to underscores) as a fallback for any flag not
// explicitly set on the command line.
func New(envPrefix string) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// LoadShared reads the common settings out of v.
func LoadShared(v *viper.Viper) Shared {
	return Shared{
		LogLevel:    v.GetString("log-level"),
		MetricsAddr: v.GetString("metrics-addr"),
	}
}
