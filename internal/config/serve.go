package config

import (
	"time"

	"github.com/spf13/pflag"
)

// ServeConfig extends Config with HTTP server settings.
type ServeConfig struct {
	Config
	Listen          string
	CORSOrigins     []string
	ShutdownTimeout time.Duration
}

// LoadServe loads the shared settings plus the serve-only ones.
func LoadServe(cfgFile string, flags *pflag.FlagSet) (ServeConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return ServeConfig{}, err
	}
	base, err := fromViper(v)
	if err != nil {
		return ServeConfig{}, err
	}
	return ServeConfig{
		Config:          base,
		Listen:          v.GetString("listen"),
		CORSOrigins:     getStringSlice(v, "cors-origin"),
		ShutdownTimeout: v.GetDuration("shutdown-timeout"),
	}, nil
}
