// Package config provides configuration loading and management for spectrecon.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Reconstruction holds the OSEM defaults shown in the UI
	Reconstruction struct {
		// Iterations is the default number of OSEM iterations
		Iterations int `yaml:"iterations"`

		// Subsets is the default number of ordered subsets
		Subsets int `yaml:"subsets"`
	} `yaml:"reconstruction"`

	// Engine configures the external reconstruction toolkit
	Engine struct {
		// Command is the executable that runs the bridge
		Command string `yaml:"command"`

		// Args are passed before the generated window arguments
		Args []string `yaml:"args"`

		// Timeout bounds a single reconstruction; zero disables it
		Timeout time.Duration `yaml:"timeout"`

		// ScratchDir receives the engine's intermediate output
		ScratchDir string `yaml:"scratchDir"`

		// KeepScratch leaves intermediate output in place
		KeepScratch bool `yaml:"keepScratch"`
	} `yaml:"engine"`

	// Output parameters
	Output struct {
		// Directory is the parent folder for saved reconstructions
		Directory string `yaml:"directory"`

		// Previews writes PNG slice previews next to saved series
		Previews bool `yaml:"previews"`

		// PreviewScale is the upscaling factor applied to previews
		PreviewScale int `yaml:"previewScale"`
	} `yaml:"output"`

	// Logging parameters
	Logging struct {
		// Level is one of debug, info, warn, error
		Level string `yaml:"level"`

		// Directory receives log files when the terminal UI is running
		Directory string `yaml:"directory"`
	} `yaml:"logging"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Reconstruction.Iterations = 4
	cfg.Reconstruction.Subsets = 8

	cfg.Engine.Command = "python3"
	cfg.Engine.Args = []string{"scripts/pytomography_bridge.py"}

	cfg.Output.Directory = "."
	cfg.Output.Previews = false
	cfg.Output.PreviewScale = 4

	cfg.Logging.Level = "info"
	if home, err := os.UserHomeDir(); err == nil {
		cfg.Logging.Directory = filepath.Join(home, ".spectrecon", "logs")
	}

	return cfg
}

// DefaultPath returns the per-user configuration file location
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "spectrecon.yaml"
	}
	return filepath.Join(dir, "spectrecon", "config.yaml")
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later at run time
func (c *Config) Validate() error {
	if c.Reconstruction.Iterations <= 0 || c.Reconstruction.Subsets <= 0 {
		return fmt.Errorf("reconstruction iterations and subsets must be positive, got %d and %d",
			c.Reconstruction.Iterations, c.Reconstruction.Subsets)
	}
	if c.Engine.Command == "" {
		return errors.New("engine command is empty")
	}
	if c.Engine.Timeout < 0 {
		return fmt.Errorf("engine timeout must not be negative, got %s", c.Engine.Timeout)
	}
	if c.Output.PreviewScale < 1 {
		return fmt.Errorf("preview scale must be at least 1, got %d", c.Output.PreviewScale)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	return nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
