// Package config holds the compiler options and loads them from YAML.
package config

import (
	"encoding/binary"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/raymyers/ralph-offload/pkg/logger"
)

// Config is the set of options one compilation runs with.
type Config struct {
	Inline         bool   `yaml:"inline"`
	ObjectInlining bool   `yaml:"object_inlining"`
	TunnelJumps    bool   `yaml:"tunnel_jumps"`
	ByteOrder      string `yaml:"byte_order"`
	Malloc         string `yaml:"malloc"`
	LogLevel       string `yaml:"log_level"`
	LogFormat      string `yaml:"log_format"`
}

// Default returns the options used when no file is given.
func Default() Config {
	return Config{
		Inline:      true,
		TunnelJumps: true,
		ByteOrder:   "little",
		Malloc:      "calloc",
		LogLevel:    "warn",
		LogFormat:   "text",
	}
}

// Load reads a YAML file over the defaults: keys the file omits keep their
// default value.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(data)
}

// Parse decodes YAML options over the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the option values.
func (c Config) Validate() error {
	if _, err := c.Order(); err != nil {
		return err
	}
	if c.Malloc == "" {
		return fmt.Errorf("config: malloc must name an allocation function")
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.LogFormat)
	}
	return nil
}

// Order returns the byte order of the wire protocol.
func (c Config) Order() (binary.ByteOrder, error) {
	switch c.ByteOrder {
	case "", "little":
		return binary.LittleEndian, nil
	case "big":
		return binary.BigEndian, nil
	}
	return nil, fmt.Errorf("config: unknown byte order %q", c.ByteOrder)
}

// Logger returns the logger configuration the options select.
func (c Config) Logger() logger.Config {
	lc := logger.DefaultConfig()
	if lvl, err := logger.ParseLevel(c.LogLevel); err == nil {
		lc.Level = lvl
	}
	if c.LogFormat != "" {
		lc.Format = c.LogFormat
	}
	return lc
}
