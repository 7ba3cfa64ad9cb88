package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the environment-variable namespace for configuration
// overrides, e.g. CLOUDAGENT_BEHAVIOUR_PRE_RECORD=3s.
const EnvPrefix = "CLOUDAGENT"

// Loader loads and validates Config from a YAML file with environment
// variable overrides, following the teacher's ConfigLoader idiom
// (internal/config/loader.go).
type Loader struct {
	viper *viper.Viper
}

// NewLoader creates a configuration loader.
func NewLoader() *Loader {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Loader{viper: v}
}

// Load reads configuration from configPath, falling back to defaults when
// the file does not exist, and validates the result.
func (l *Loader) Load(configPath string) (*Config, error) {
	applyDefaults(l.viper)

	if configPath != "" {
		l.viper.SetConfigFile(configPath)
		if err := l.viper.ReadInConfig(); err != nil {
			if os.IsNotExist(err) {
				// Defaults + environment only.
			} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				// Defaults + environment only.
			} else {
				return nil, fmt.Errorf("read config file %q: %w", configPath, err)
			}
		}
	}

	var cfg Config
	if err := l.viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
