package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load(viper.New(), "")
	if err != nil {
		t.Fatal(err)
	}
	want := DefaultConfig()
	if *cfg != *want {
		t.Errorf("Load() = %+v, want %+v", cfg, want)
	}
}

func TestLoadEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("VKGRT_DRIVER", "soft")
	t.Setenv("VKGRT_FRAMES", "12")
	t.Setenv("VKGRT_LOGGING_LEVEL", "debug")
	cfg, err := Load(viper.New(), "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Driver != "soft" || cfg.Frames != 12 || cfg.Logging.Level != "debug" {
		t.Errorf("env not applied: %+v", cfg)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "harness.yaml")
	data := []byte("window: headless\nvalidation: false\nlogging:\n  level: warn\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(viper.New(), path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Window != "headless" || cfg.Validation || cfg.Logging.Level != "warn" {
		t.Errorf("file not applied: %+v", cfg)
	}
	if cfg.Driver != "vulkan" {
		t.Errorf("driver = %q, want default", cfg.Driver)
	}
}

func TestLoadFlagOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("VKGRT_DRIVER", "vulkan")
	v := viper.New()
	v.Set("driver", "soft")
	cfg, err := Load(v, "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Driver != "soft" {
		t.Errorf("driver = %q, want soft", cfg.Driver)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"driver", func(c *Config) { c.Driver = "metal" }},
		{"window", func(c *Config) { c.Window = "x11" }},
		{"frames", func(c *Config) { c.Frames = -1 }},
		{"level", func(c *Config) { c.Logging.Level = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.modify(c)
			if err := c.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}
