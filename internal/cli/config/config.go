package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultServer  = "127.0.0.1:6379"
	DefaultAdmin   = "127.0.0.1:9121"
	DefaultOutput  = "table"
	DefaultTimeout = 5 * time.Second
)

// CLIConfig is the content of the CLI config file.
type CLIConfig struct {
	Server      string            `yaml:"server"`
	Admin       string            `yaml:"admin"`
	Output      string            `yaml:"output"`
	Timeout     time.Duration     `yaml:"timeout"`
	TLSCA       string            `yaml:"tls_ca,omitempty"`
	HistoryFile string            `yaml:"history_file,omitempty"`
	Connections map[string]string `yaml:"connections,omitempty"`
}

// Default returns the built-in settings.
func Default() *CLIConfig {
	return &CLIConfig{
		Server:      DefaultServer,
		Admin:       DefaultAdmin,
		Output:      DefaultOutput,
		Timeout:     DefaultTimeout,
		Connections: make(map[string]string),
	}
}

// DefaultPath returns ~/.memkv/cli.yaml, or "" without a home directory.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".memkv", "cli.yaml")
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*CLIConfig, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cli config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse cli config %s: %w", path, err)
	}
	if cfg.Connections == nil {
		cfg.Connections = make(map[string]string)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("cli config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, readable by the owner only.
func Save(cfg *CLIConfig, path string) error {
	if path == "" {
		return errors.New("cli config: no path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode cli config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate checks the settings that flags cannot repair later.
func (c *CLIConfig) Validate() error {
	var errs []error
	switch c.Output {
	case "", "table", "json", "yaml":
	default:
		errs = append(errs, fmt.Errorf("output: unknown format %q", c.Output))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout: must not be negative"))
	}
	for name, target := range c.Connections {
		if target == "" {
			errs = append(errs, fmt.Errorf("connections.%s: empty target", name))
		}
	}
	return errors.Join(errs...)
}

// Resolve returns the target saved under name, or name itself.
func (c *CLIConfig) Resolve(name string) string {
	if target, ok := c.Connections[name]; ok {
		return target
	}
	return name
}

// ConnectionNames returns the saved aliases, sorted.
func (c *CLIConfig) ConnectionNames() []string {
	names := make([]string, 0, len(c.Connections))
	for name := range c.Connections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
