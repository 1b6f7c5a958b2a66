// Package config loads the overlay's YAML configuration. Command-line flags
// override whatever the file sets.
package config

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const (
	EnvPath = "HANDY_CONFIG"

	DefaultDialTimeout  = 5 * time.Second
	DefaultTickInterval = time.Second
	MinTickInterval     = 10 * time.Millisecond
)

type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Overlay OverlayConfig `yaml:"overlay"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type BackendConfig struct {
	// Address is a socket path, unix:///path, ws://host/path or wss://host/path.
	Address     string        `yaml:"address"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

type OverlayConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"`
	Hotkey       bool          `yaml:"hotkey"`
	Sound        bool          `yaml:"sound"`
	GUI          bool          `yaml:"gui"`
}

type LogConfig struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

type MetricsConfig struct {
	// Listen is the host:port for the Prometheus endpoint. Empty disables it.
	Listen string `yaml:"listen"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			Address:     DefaultAddress(),
			DialTimeout: DefaultDialTimeout,
		},
		Overlay: OverlayConfig{
			TickInterval: DefaultTickInterval,
			Hotkey:       true,
			Sound:        true,
		},
		Log: LogConfig{Level: "info"},
	}
}

// DefaultAddress is the backend socket under XDG_RUNTIME_DIR, or the temp
// dir when that is unset.
func DefaultAddress() string {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "handy", "backend.sock")
}

// DefaultPath is <user config dir>/handy/config.yaml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "handy", "config.yaml"), nil
}

// Resolve picks the config file: the flag value, then $HANDY_CONFIG, then
// DefaultPath. explicit reports whether the file was asked for by name, in
// which case a missing file is an error.
func Resolve(flagPath string) (path string, explicit bool) {
	if flagPath != "" {
		return flagPath, true
	}
	if p := os.Getenv(EnvPath); p != "" {
		return p, true
	}
	p, err := DefaultPath()
	if err != nil {
		return "", false
	}
	return p, false
}

// LoadResolved loads the file Resolve picks. A missing default file yields
// Default().
func LoadResolved(flagPath string) (*Config, string, error) {
	path, explicit := Resolve(flagPath)
	if path == "" {
		return Default(), "", nil
	}
	if !explicit {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return Default(), "", nil
		}
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// Load reads the YAML configuration file at path and returns a validated [Config].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r over Default() and validates the
// result. Unknown keys are rejected.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate returns a joined error listing every invalid field.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Backend.Address == "" {
		errs = append(errs, errors.New("backend.address is required"))
	} else if scheme, _, ok := strings.Cut(cfg.Backend.Address, "://"); ok {
		switch scheme {
		case "unix", "ws", "wss":
		default:
			errs = append(errs, fmt.Errorf("backend.address scheme %q is invalid; valid values: unix, ws, wss", scheme))
		}
	}
	if cfg.Backend.DialTimeout < 0 {
		errs = append(errs, fmt.Errorf("backend.dial_timeout %s must not be negative", cfg.Backend.DialTimeout))
	}

	if cfg.Overlay.TickInterval < MinTickInterval {
		errs = append(errs, fmt.Errorf("overlay.tick_interval %s is below %s", cfg.Overlay.TickInterval, MinTickInterval))
	}

	if cfg.Log.Level != "" {
		if _, err := zerolog.ParseLevel(cfg.Log.Level); err != nil {
			errs = append(errs, fmt.Errorf("log.level %q is invalid; valid values: debug, info, warn, error", cfg.Log.Level))
		}
	}

	if cfg.Metrics.Listen != "" {
		if _, _, err := net.SplitHostPort(cfg.Metrics.Listen); err != nil {
			errs = append(errs, fmt.Errorf("metrics.listen %q: %w", cfg.Metrics.Listen, err))
		}
	}

	return errors.Join(errs...)
}
