package core

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const DefaultConfigFile = "anima.toml"

type AssetsConfig struct {
	// Directory is the project asset root; registry and asset paths are relative to it.
	Directory string `toml:"directory"`
	// Registry is the registry file name, relative to Directory.
	Registry string `toml:"registry"`
	// Workers is the decode pool size. Zero picks runtime.NumCPU().
	Workers    int    `toml:"workers"`
	Watch      bool   `toml:"watch"`
	AutoImport bool   `toml:"auto_import"`
	Tick       string `toml:"tick"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

type MetricsConfig struct {
	// Listen exposes /metrics when non-empty, e.g. ":9090".
	Listen string `toml:"listen"`
}

type Config struct {
	Assets  AssetsConfig  `toml:"assets"`
	Logging LoggingConfig `toml:"logging"`
	Metrics MetricsConfig `toml:"metrics"`
}

func DefaultConfig() *Config {
	return &Config{
		Assets: AssetsConfig{
			Directory:  "assets",
			Registry:   "AssetRegistry.json",
			Workers:    0,
			Watch:      true,
			AutoImport: true,
			Tick:       "16ms",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads a TOML file over the defaults. A missing file is not an
// error: the defaults are returned as-is.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Assets.Directory == "" {
		return fmt.Errorf("%w: assets.directory is required", ErrInvalidConfig)
	}
	if c.Assets.Registry == "" {
		return fmt.Errorf("%w: assets.registry is required", ErrInvalidConfig)
	}
	if c.Assets.Workers < 0 {
		return fmt.Errorf("%w: assets.workers must not be negative (got %d)", ErrInvalidConfig, c.Assets.Workers)
	}
	if _, err := c.TickInterval(); err != nil {
		return err
	}
	return nil
}

func (c *Config) TickInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Assets.Tick)
	if err != nil {
		return 0, fmt.Errorf("%w: assets.tick: %v", ErrInvalidConfig, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: assets.tick must be positive (got %s)", ErrInvalidConfig, d)
	}
	return d, nil
}

func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}
