// Package config provides configuration loading and management for volview.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"volview/pkg/session"
	"volview/pkg/transfer"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Viewer holds the initial render state
	Viewer struct {
		// TableSize is the transfer function lookup table length
		TableSize int `yaml:"tableSize"`

		// IsoMin and IsoMax are the initial isovalue limits, 0 to 255
		IsoMin int `yaml:"isoMin"`
		IsoMax int `yaml:"isoMax"`

		// Color is the isovalue-mode volume color as RGB in [0, 1]
		Color []float64 `yaml:"color"`

		// ViewMode is "iso" or "tf"
		ViewMode string `yaml:"viewMode"`
	} `yaml:"viewer"`

	// Logging parameters
	Logging struct {
		// Level is debug, info, warn or error
		Level string `yaml:"level"`

		// Format is text or json
		Format string `yaml:"format"`
	} `yaml:"logging"`

	// Presets are named transfer functions selectable at runtime
	Presets []transfer.Preset `yaml:"presets"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Viewer.TableSize = transfer.DefaultSize
	cfg.Viewer.IsoMin = 0
	cfg.Viewer.IsoMax = session.MaxIsovalue
	cfg.Viewer.Color = []float64{1, 100.0 / 255, 100.0 / 255}
	cfg.Viewer.ViewMode = session.ViewIsovalue.String()

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"

	cfg.Presets = []transfer.Preset{transfer.Grayscale(), transfer.Bone()}

	return cfg
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

// Validate checks value ranges
func (c *Config) Validate() error {
	v := c.Viewer
	if v.TableSize < 2 {
		return fmt.Errorf("viewer.tableSize must be at least 2, got %d", v.TableSize)
	}
	if v.IsoMin < 0 || v.IsoMin > session.MaxIsovalue || v.IsoMax < 0 || v.IsoMax > session.MaxIsovalue {
		return fmt.Errorf("viewer isovalues must be within [0, %d], got %d..%d", session.MaxIsovalue, v.IsoMin, v.IsoMax)
	}
	if len(v.Color) != 3 {
		return fmt.Errorf("viewer.color needs 3 components, got %d", len(v.Color))
	}
	for _, c := range v.Color {
		if c < 0 || c > 1 {
			return fmt.Errorf("viewer.color component %g out of range [0, 1]", c)
		}
	}
	if _, err := session.ParseViewMode(v.ViewMode); err != nil {
		return fmt.Errorf("viewer.viewMode: %w", err)
	}

	if _, err := parseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	seen := make(map[string]bool, len(c.Presets))
	for _, p := range c.Presets {
		if p.Name == "" {
			return fmt.Errorf("preset without a name")
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate preset %q", p.Name)
		}
		seen[p.Name] = true
	}

	return nil
}

// PresetMap indexes the configured presets by name
func (c *Config) PresetMap() transfer.Presets {
	presets := make(transfer.Presets, len(c.Presets))
	for _, p := range c.Presets {
		presets[p.Name] = p
	}
	return presets
}

// SessionOptions converts the viewer section into session options
func (c *Config) SessionOptions(logger *slog.Logger) (session.Options, error) {
	mode, err := session.ParseViewMode(c.Viewer.ViewMode)
	if err != nil {
		return session.Options{}, err
	}
	if len(c.Viewer.Color) != 3 {
		return session.Options{}, fmt.Errorf("viewer.color needs 3 components, got %d", len(c.Viewer.Color))
	}

	return session.Options{
		TableSize: c.Viewer.TableSize,
		IsoMin:    c.Viewer.IsoMin,
		IsoMax:    c.Viewer.IsoMax,
		Color:     [3]float64{c.Viewer.Color[0], c.Viewer.Color[1], c.Viewer.Color[2]},
		Mode:      mode,
		Presets:   c.PresetMap(),
		Logger:    logger,
	}, nil
}

// NewLogger builds a slog logger writing to w as configured
func (c *Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.Logging.Level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	switch c.Logging.Format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("logging.level: %w", err)
	}
	return level, nil
}
