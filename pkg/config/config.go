package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// RenderDocConfig locates the capture library.
type RenderDocConfig struct {
	Library string `yaml:"library"` // empty = platform default (librenderdoc.so / renderdoc.dll)
}

// LogConfig sets the stderr log level.
type LogConfig struct {
	Level string `yaml:"level"` // debug|info|warn|error
}

// HeadlessConfig drives the stdin frame loop.
type HeadlessConfig struct {
	FPS             int `yaml:"fps"`
	InitialCaptures int `yaml:"initial_captures"` // frames captured right after startup
}

// TriggerConfig describes an optional serial port that sends capture commands.
type TriggerConfig struct {
	Port     string `yaml:"port"` // empty = no serial trigger
	BaudRate int    `yaml:"baud_rate"`
	DataBits int    `yaml:"data_bits"`
	StopBits int    `yaml:"stop_bits"` // 1, 15 (1.5) or 2
	Parity   string `yaml:"parity"`    // None|Odd|Even|Mark|Space
}

// Config aggregates all application configuration.
type Config struct {
	RenderDoc RenderDocConfig `yaml:"renderdoc"`
	Log       LogConfig       `yaml:"log"`
	Headless  HeadlessConfig  `yaml:"headless"`
	Trigger   TriggerConfig   `yaml:"trigger"`
}

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

var parities = map[string]bool{"None": true, "Odd": true, "Even": true, "Mark": true, "Space": true}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a YAML file and returns the configuration. An empty path
// returns Default().
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Headless.FPS == 0 {
		c.Headless.FPS = 60
	}
	if c.Trigger.BaudRate == 0 {
		c.Trigger.BaudRate = 115200
	}
	if c.Trigger.DataBits == 0 {
		c.Trigger.DataBits = 8
	}
	if c.Trigger.StopBits == 0 {
		c.Trigger.StopBits = 1
	}
	if c.Trigger.Parity == "" {
		c.Trigger.Parity = "None"
	}
}

// Validate checks value ranges after defaults are applied.
func (c *Config) Validate() error {
	if _, ok := logLevels[c.Log.Level]; !ok {
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	if c.Headless.FPS < 1 || c.Headless.FPS > 1000 {
		return fmt.Errorf("headless.fps must be between 1 and 1000, got %d", c.Headless.FPS)
	}
	if c.Headless.InitialCaptures < 0 {
		return fmt.Errorf("headless.initial_captures must be >= 0, got %d", c.Headless.InitialCaptures)
	}
	if c.Trigger.BaudRate <= 0 {
		return fmt.Errorf("trigger.baud_rate must be > 0, got %d", c.Trigger.BaudRate)
	}
	if c.Trigger.DataBits < 5 || c.Trigger.DataBits > 8 {
		return fmt.Errorf("trigger.data_bits must be between 5 and 8, got %d", c.Trigger.DataBits)
	}
	switch c.Trigger.StopBits {
	case 1, 15, 2:
	default:
		return fmt.Errorf("trigger.stop_bits must be 1, 15 or 2, got %d", c.Trigger.StopBits)
	}
	if !parities[c.Trigger.Parity] {
		return fmt.Errorf("trigger.parity must be None, Odd, Even, Mark or Space, got %q", c.Trigger.Parity)
	}
	return nil
}

// SlogLevel returns the configured log level. Unknown names map to info.
func (c *Config) SlogLevel() slog.Level {
	if l, ok := logLevels[c.Log.Level]; ok {
		return l
	}
	return slog.LevelInfo
}
