package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// envOverrides lists the settings that may be supplied through the
// environment. Unset variables leave the file configuration untouched.
type envOverrides struct {
	Level         string `env:"VOE_LEVEL"`
	OracleAddress string `env:"VOE_ORACLE_ADDR"`
	OracleTimeout string `env:"VOE_ORACLE_TIMEOUT"`
	DBPath        string `env:"VOE_DB_PATH"`
	PlotDir       string `env:"VOE_PLOT_DIR"`
	RedisAddress  string `env:"VOE_REDIS_ADDR"`
	LegacyRange   *bool  `env:"VOE_LEGACY_SUPPORT_RANGE"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// ApplyEnv overlays VOE_* environment variables onto c.
func (c *TuningConfig) ApplyEnv() error {
	var o envOverrides
	if err := ParseEnv(&o); err != nil {
		return err
	}
	set := func(dst **string, v string) {
		if v != "" {
			*dst = ptrString(v)
		}
	}
	set(&c.Level, o.Level)
	set(&c.OracleAddress, o.OracleAddress)
	set(&c.OracleTimeout, o.OracleTimeout)
	set(&c.DBPath, o.DBPath)
	set(&c.PlotDir, o.PlotDir)
	set(&c.RedisAddress, o.RedisAddress)
	if o.LegacyRange != nil {
		c.LegacySupportRange = ptrBool(*o.LegacyRange)
	}
	return c.Validate()
}
