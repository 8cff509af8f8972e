package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/bcltools/bcltools/layout"
	"github.com/bcltools/bcltools/model"
	"gopkg.in/yaml.v3"
)

// Config is the on-disk form of the conversion settings. Command line flags
// override whatever the file sets.
type Config struct {
	Machine      string `yaml:"machine"`
	Lanes        int    `yaml:"lanes"`
	Output       string `yaml:"output"`
	HandlePolicy string `yaml:"handle_policy"`
	LogLevel     string `yaml:"log_level"`
	MetricsFile  string `yaml:"metrics_file"`
	Sync         bool   `yaml:"sync"`
}

// Load reads a YAML config file. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg := &Config{}
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrConfiguration, path, err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Normalize fills unset fields with their defaults.
func (cfg *Config) Normalize() {
	if cfg.Machine == "" {
		cfg.Machine = layout.ProfileA.String()
	}
	if cfg.Lanes == 0 {
		cfg.Lanes = 1
	}
	if cfg.HandlePolicy == "" {
		cfg.HandlePolicy = "auto"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	cfg.Machine = strings.ToLower(cfg.Machine)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
}

func (cfg *Config) Validate() error {
	profile, err := layout.ParseProfile(cfg.Machine)
	if err != nil {
		return err
	}
	if err := profile.Validate(); err != nil {
		return err
	}
	if err := layout.ValidateLanes(cfg.Lanes); err != nil {
		return err
	}
	switch cfg.LogLevel {
	case "trace", "debug", "info", "warn", "error", "off":
	default:
		return fmt.Errorf("%w: unknown log level %q", model.ErrConfiguration, cfg.LogLevel)
	}
	return nil
}
