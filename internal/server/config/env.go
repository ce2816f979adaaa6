package config

import (
	"github.com/caarlos0/env/v11"
)

// parseEnv overlays Config with POSTBOARD_* environment variables. Fields
// whose variable is unset keep their current value.
func parseEnv(config *Config) {
	if err := env.Parse(config); err != nil {
		panic(err)
	}
}
