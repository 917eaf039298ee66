// Package config loads the client configuration: defaults, then an optional
// YAML file, then command-line overrides applied by the caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"framedrive/driver"
	"framedrive/logger"
	"framedrive/storage"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the data directory.
const FileName = "config.yaml"

var ErrInvalid = errors.New("invalid config")

type Config struct {
	// TickRate is the simulation step rate in steps per second.
	TickRate float64 `yaml:"tick_rate"`
	// MaxFrameTime clamps one frame's elapsed time; 0 disables the clamp.
	MaxFrameTime time.Duration `yaml:"max_frame_time"`

	// Module is the client module to run; empty means the built-in demo.
	Module        string        `yaml:"module"`
	ModuleTimeout time.Duration `yaml:"module_timeout"`

	Window    WindowConfig   `yaml:"window"`
	Headless  HeadlessConfig `yaml:"headless"`
	Stats     StatsConfig    `yaml:"stats"`
	Log       logger.Config  `yaml:"log"`
	PprofAddr string         `yaml:"pprof_addr"`
}

type WindowConfig struct {
	Title     string `yaml:"title"`
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	Resizable bool   `yaml:"resizable"`
}

type HeadlessConfig struct {
	Enabled bool `yaml:"enabled"`
	Width   int  `yaml:"width"`
	Height  int  `yaml:"height"`
	Hz      int  `yaml:"hz"`
	// Frames stops the run after this many frames; 0 runs until interrupted.
	Frames uint64 `yaml:"frames"`
	// FakeClock steps time by exactly one frame period per frame.
	FakeClock bool `yaml:"fake_clock"`
}

type StatsConfig struct {
	Overlay bool `yaml:"overlay"`
	// Addr serves the websocket stats stream when set, e.g. ":42069".
	Addr     string        `yaml:"addr"`
	Interval time.Duration `yaml:"interval"`
}

func Default() Config {
	return Config{
		TickRate:      driver.DefaultStepRate,
		MaxFrameTime:  driver.DefaultMaxFrameTime,
		ModuleTimeout: 10 * time.Second,
		Window: WindowConfig{
			Title:     "framedrive",
			Width:     1024,
			Height:    768,
			Resizable: true,
		},
		Headless: HeadlessConfig{
			Width:  800,
			Height: 600,
			Hz:     60,
		},
		Stats: StatsConfig{
			Overlay:  true,
			Interval: time.Second,
		},
		Log: logger.DefaultConfig(),
	}
}

// Load returns the defaults overlaid with the YAML file at path. An empty
// path looks for FileName on storage.SearchPath and is fine if none exists.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		found, err := storage.Find(FileName)
		if errors.Is(err, os.ErrNotExist) {
			return cfg, cfg.Validate()
		}
		if err != nil {
			return cfg, fmt.Errorf("find config: %w", err)
		}
		path = found
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := Decode(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Decode overlays YAML onto cfg. Unknown keys are an error.
func Decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Encode renders cfg as YAML that Decode reads back.
func Encode(cfg Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes cfg to FileName in the data directory and returns the path.
func Save(cfg Config) (string, error) {
	data, err := Encode(cfg)
	if err != nil {
		return "", err
	}
	if err := storage.WriteDataFile(FileName, data, 0o644); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}
	return storage.DataFile(FileName), nil
}

func (c Config) Validate() error {
	var errs []error
	if !(c.TickRate > 0) {
		errs = append(errs, fmt.Errorf("tick_rate must be positive, got %v", c.TickRate))
	}
	if c.MaxFrameTime < 0 {
		errs = append(errs, fmt.Errorf("max_frame_time must not be negative, got %s", c.MaxFrameTime))
	}
	if c.ModuleTimeout < 0 {
		errs = append(errs, fmt.Errorf("module_timeout must not be negative, got %s", c.ModuleTimeout))
	}
	if c.Headless.Enabled {
		if c.Headless.Width <= 0 || c.Headless.Height <= 0 {
			errs = append(errs, fmt.Errorf("headless size must be positive, got %dx%d", c.Headless.Width, c.Headless.Height))
		}
		if c.Headless.Hz <= 0 {
			errs = append(errs, fmt.Errorf("headless hz must be positive, got %d", c.Headless.Hz))
		}
	} else if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height))
	}
	if c.Stats.Interval < 0 {
		errs = append(errs, fmt.Errorf("stats interval must not be negative, got %s", c.Stats.Interval))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}
