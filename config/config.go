// Package config loads the harness configuration from defaults, an
// optional YAML file, VKGRT_* environment variables and bound flags.
package config

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config selects the environment the harness runs in. Window size is
// not configurable.
type Config struct {
	AppName    string        `mapstructure:"app_name"`
	Driver     string        `mapstructure:"driver"`
	Window     string        `mapstructure:"window"`
	Validation bool          `mapstructure:"validation"`
	Frames     int           `mapstructure:"frames"`
	Logging    LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

var (
	Drivers = []string{"vulkan", "soft"}
	Windows = []string{"sdl", "glfw", "headless"}
)

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		AppName:    "SDL2 + Vulkan",
		Driver:     "vulkan",
		Window:     "sdl",
		Validation: true,
		Frames:     0,
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration into a Config. Flags bound to v before the
// call take precedence over the file and the environment. An empty
// cfgFile searches the working directory for vkgrt.yaml.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	cfg := DefaultConfig()
	setDefaults(v, cfg)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("vkgrt")
	}

	v.SetEnvPrefix("VKGRT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "reading config")
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating config")
	}
	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !contains(Drivers, c.Driver) {
		return fmt.Errorf("driver must be one of: %v", Drivers)
	}
	if !contains(Windows, c.Window) {
		return fmt.Errorf("window must be one of: %v", Windows)
	}
	if c.Frames < 0 {
		return errors.New("frames must not be negative")
	}
	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		return errors.Wrap(err, "logging.level")
	}
	return nil
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("app_name", cfg.AppName)
	v.SetDefault("driver", cfg.Driver)
	v.SetDefault("window", cfg.Window)
	v.SetDefault("validation", cfg.Validation)
	v.SetDefault("frames", cfg.Frames)
	v.SetDefault("logging.level", cfg.Logging.Level)
}
