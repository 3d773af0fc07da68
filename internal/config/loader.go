package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Root is a top-level configuration file type.
type Root interface {
	SiteConfig | MetricsdConfig
}

// root is the behavior shared by every Root.
type root interface {
	applyDefaults()
	Validate() error
}

// Load reads a YAML config file and expands environment variables.
func Load[T Root](path string) (*T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand ${VAR} environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg T
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads config and applies default values.
func LoadWithDefaults[T Root](path string) (*T, error) {
	cfg, err := Load[T](path)
	if err != nil {
		return nil, err
	}
	any(cfg).(root).applyDefaults()
	return cfg, nil
}

// LoadAndValidate loads config, applies defaults, and validates.
func LoadAndValidate[T Root](path string) (*T, error) {
	cfg, err := LoadWithDefaults[T](path)
	if err != nil {
		return nil, err
	}
	if err := any(cfg).(root).Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}
