// Package config holds process-wide constants and the optional loxvm.yaml /
// loxvm.toml settings file read by the driver.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config represents the settings file. Command-line flags override it.
type Config struct {
	// PrintCode prints the disassembled chunk after compilation.
	PrintCode bool `yaml:"print_code" toml:"print_code"`

	// Trace prints every executed instruction with the stack.
	Trace bool `yaml:"trace" toml:"trace"`

	// Verbosity is the log level: -4 silent, -3 critical, -2 errors,
	// -1 warnings, 0 notices (the default), 1 info, 2 debug.
	Verbosity int `yaml:"verbosity" toml:"verbosity"`

	// Cache is the path of the SQLite bytecode cache. Empty disables caching.
	// Relative paths are resolved against the config file's directory.
	Cache string `yaml:"cache,omitempty" toml:"cache,omitempty"`

	// MaxStack bounds the VM operand stack.
	MaxStack int `yaml:"max_stack,omitempty" toml:"max_stack,omitempty"`
}

// Default returns the settings used when no config file exists.
func Default() *Config {
	return &Config{MaxStack: DefaultMaxStack}
}

// Load reads a config file, choosing the format by extension.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse parses config content. The path selects the format and is used in
// error messages.
func Parse(data []byte, path string) (*Config, error) {
	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%s: unsupported config format %q", path, ext)
	}

	if cfg.MaxStack == 0 {
		cfg.MaxStack = DefaultMaxStack
	}
	if cfg.Cache != "" && !filepath.IsAbs(cfg.Cache) {
		cfg.Cache = filepath.Join(filepath.Dir(path), cfg.Cache)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Discover looks for a config file in dir. It returns an empty path and nil
// error if there is none.
func Discover(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}
	for _, name := range ConfigFileNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", nil
}

// Validate checks the configuration for out-of-range values.
func (c *Config) Validate() error {
	if c.Verbosity < MinVerbosity || c.Verbosity > MaxVerbosity {
		return fmt.Errorf("verbosity must be between %d and %d, got %d", MinVerbosity, MaxVerbosity, c.Verbosity)
	}
	if c.MaxStack < 0 {
		return fmt.Errorf("max_stack must not be negative, got %d", c.MaxStack)
	}
	return nil
}
