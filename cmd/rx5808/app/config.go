package app

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fpv-tools/rx5808/internal/scan"
)

const (
	// Default GPIO line names. On a Raspberry Pi header these are the
	// same pins the receiver board has always been wired to: physical
	// pins 15 (data), 13 (select) and 11 (clock).
	defaultDataPin   = "GPIO22"
	defaultSelectPin = "GPIO27"
	defaultClockPin  = "GPIO17"

	defaultVideoDevice = "/dev/video0"
	defaultVideoWidth  = 720
	defaultVideoHeight = 480
	defaultFramerate   = 30
	defaultVideoFormat = "YUY2"
)

// Duration wraps time.Duration so config values can use "200ms" style
// notation.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	duration, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("app.Duration: failed to parse: %s", err)
	}

	*d = Duration(duration)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Config represents the main application configuration
type Config struct {
	Settings Settings     `yaml:"settings"`
	Pins     PinConfig    `yaml:"pins"`
	Video    VideoConfig  `yaml:"video"`
	Scan     ScanConfig   `yaml:"scan"`
	Report   ReportConfig `yaml:"report"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel"`
}

// Level parses the configured log level, defaulting to info.
func (s Settings) Level() (slog.Level, error) {
	switch strings.ToLower(s.LogLevel) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level '%s'", s.LogLevel)
	}
}

// PinConfig names the GPIO lines wired to the receiver module.
type PinConfig struct {
	Data   string `yaml:"data"`
	Select string `yaml:"select"`
	Clock  string `yaml:"clock"`
}

// VideoConfig describes the capture source attached to the receiver's
// composite output.
type VideoConfig struct {
	Device    string `yaml:"device"`
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	Framerate int    `yaml:"framerate"`
	Format    string `yaml:"format"`
}

// ScanConfig represents channel scan settings
type ScanConfig struct {
	SettleTime    Duration `yaml:"settleTime"`
	ProbeTimeout  Duration `yaml:"probeTimeout"`
	MinSignalSize int64    `yaml:"minSignalSize"`
	AutoSelect    *bool    `yaml:"autoSelect"`
}

// ReportConfig represents scan report settings
type ReportConfig struct {
	Path string `yaml:"path"`
}

// DefaultConfig returns a configuration with every value at its default.
func DefaultConfig() *Config {
	config := &Config{}
	config.applyDefaults()
	return config
}

// LoadConfig reads and validates a YAML configuration file. An empty
// path yields the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Pins.Data == "" {
		c.Pins.Data = defaultDataPin
	}
	if c.Pins.Select == "" {
		c.Pins.Select = defaultSelectPin
	}
	if c.Pins.Clock == "" {
		c.Pins.Clock = defaultClockPin
	}

	if c.Video.Device == "" {
		c.Video.Device = defaultVideoDevice
	}
	if c.Video.Width == 0 {
		c.Video.Width = defaultVideoWidth
	}
	if c.Video.Height == 0 {
		c.Video.Height = defaultVideoHeight
	}
	if c.Video.Framerate == 0 {
		c.Video.Framerate = defaultFramerate
	}
	if c.Video.Format == "" {
		c.Video.Format = defaultVideoFormat
	}

	if c.Scan.SettleTime == 0 {
		c.Scan.SettleTime = Duration(scan.DefaultSettleTime)
	}
	if c.Scan.ProbeTimeout == 0 {
		c.Scan.ProbeTimeout = Duration(scan.DefaultProbeTimeout)
	}
	if c.Scan.MinSignalSize == 0 {
		c.Scan.MinSignalSize = scan.DefaultThreshold
	}
	if c.Scan.AutoSelect == nil {
		enabled := true
		c.Scan.AutoSelect = &enabled
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if _, err := c.Settings.Level(); err != nil {
		return err
	}

	if c.Scan.MinSignalSize < 0 {
		return fmt.Errorf("scan.minSignalSize must not be negative")
	}
	if c.Scan.SettleTime < 0 {
		return fmt.Errorf("scan.settleTime must not be negative")
	}
	if c.Scan.ProbeTimeout <= 0 {
		return fmt.Errorf("scan.probeTimeout must be positive")
	}

	if c.Video.Width <= 0 || c.Video.Height <= 0 || c.Video.Framerate <= 0 {
		return fmt.Errorf("video geometry and framerate must be positive")
	}

	return nil
}
