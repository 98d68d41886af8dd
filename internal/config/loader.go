package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Loader handles configuration loading.
type Loader struct {
	configPath string
}

// NewLoader creates a new config loader. An empty path means defaults
// plus environment overrides only.
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
	}
}

// Load loads the configuration from file and environment.
func (l *Loader) Load() (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("PARLEY")
	v.AutomaticEnv()

	cfg := DefaultConfig()

	if l.configPath != "" {
		if _, err := os.Stat(l.configPath); err == nil {
			v.SetConfigFile(l.configPath)

			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}

			if err := v.Unmarshal(cfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal config: %w", err)
			}
		}
	}

	// Environment overrides for the fields hosts most often set.
	if endpoint := v.GetString("trace_endpoint"); endpoint != "" {
		cfg.Tracing.Endpoint = endpoint
	}
	if level := v.GetString("log_level"); level != "" {
		cfg.Logging.Level = level
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
