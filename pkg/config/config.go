// Package config provides configuration loading and management for fitscutout.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// NumWorkers is how many cutouts are produced concurrently in batch mode
		NumWorkers int `yaml:"numWorkers"`
	} `yaml:"processing"`

	// Output parameters
	Output struct {
		// Dir is the directory cutout files are written to
		Dir string `yaml:"dir"`

		// Bitpix is the pixel type of written cutouts, -32 or -64
		Bitpix int `yaml:"bitpix"`

		// Overwrite allows replacing existing output files
		Overwrite bool `yaml:"overwrite"`

		// Preview writes a grayscale image next to every cutout
		Preview bool `yaml:"preview"`

		// PreviewFormat is "png" or "jpeg"
		PreviewFormat string `yaml:"previewFormat"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`

	// Source table parameters
	Table struct {
		// HasHeader skips the first record of the source table
		HasHeader bool `yaml:"hasHeader"`
	} `yaml:"table"`

	// Header parameters
	Header struct {
		// Passthrough lists keys copied verbatim from the source when present
		Passthrough []string `yaml:"passthrough"`
	} `yaml:"header"`

	// Preview rendering parameters
	Preview struct {
		// LowPercentile and HighPercentile clip the preview stretch, in [0,1]
		LowPercentile  float64 `yaml:"lowPercentile"`
		HighPercentile float64 `yaml:"highPercentile"`
	} `yaml:"preview"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.NumWorkers = runtime.NumCPU()

	cfg.Output.Dir = "."
	cfg.Output.Bitpix = -32
	cfg.Output.Overwrite = false
	cfg.Output.Preview = false
	cfg.Output.PreviewFormat = "png"
	cfg.Output.Verbose = false

	cfg.Table.HasHeader = false

	cfg.Header.Passthrough = []string{"BUNIT", "EQUINOX", "BMAJ", "BMIN", "BPA", "CUNIT1", "CUNIT2"}

	cfg.Preview.LowPercentile = 0.005
	cfg.Preview.HighPercentile = 0.995

	return cfg
}

// Validate checks that the configuration values are usable
func (c *Config) Validate() error {
	if c.Processing.NumWorkers < 1 {
		return fmt.Errorf("processing.numWorkers must be at least 1, got %d", c.Processing.NumWorkers)
	}
	if c.Output.Bitpix != -32 && c.Output.Bitpix != -64 {
		return fmt.Errorf("output.bitpix must be -32 or -64, got %d", c.Output.Bitpix)
	}
	switch strings.ToLower(c.Output.PreviewFormat) {
	case "png", "jpeg", "jpg":
	default:
		return fmt.Errorf("output.previewFormat must be png or jpeg, got %q", c.Output.PreviewFormat)
	}
	lo, hi := c.Preview.LowPercentile, c.Preview.HighPercentile
	if lo < 0 || hi > 1 || lo >= hi {
		return fmt.Errorf("preview percentiles must satisfy 0 <= low < high <= 1, got %g and %g", lo, hi)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
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
