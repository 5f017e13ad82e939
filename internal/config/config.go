package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the shell's startup configuration.
type Config struct {
	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// Plugin discovery
	Plugins PluginsConfig `yaml:"plugins"`

	// Scripts sourced before the first prompt
	Startup StartupConfig `yaml:"startup"`

	// Environment and variables loaded into the global frame
	Env  map[string]string `yaml:"env,omitempty"`
	Vars map[string]string `yaml:"vars,omitempty"`

	Shell ShellConfig `yaml:"shell"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
	File   string `yaml:"file"`
}

type PluginsConfig struct {
	Dirs []string `yaml:"dirs,omitempty"`
}

type StartupConfig struct {
	Scripts []string `yaml:"scripts,omitempty"`
}

type ShellConfig struct {
	// StartDir is the directory of the first filesystem shell. Empty means
	// the working directory.
	StartDir string `yaml:"start_dir"`
	Prompt   string `yaml:"prompt"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
		Env:  map[string]string{},
		Vars: map[string]string{},
		Shell: ShellConfig{
			Prompt: "> ",
		},
	}
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/nu/config.yaml, falling back
// to ~/.config/nu/config.yaml.
func DefaultConfigPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "nu", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "nu", "config.yaml")
	}
	return filepath.Join(home, ".config", "nu", "config.yaml")
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if level := os.Getenv("NU_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if paths := os.Getenv("NU_PLUGIN_PATH"); paths != "" {
		for _, dir := range filepath.SplitList(paths) {
			if dir != "" {
				c.Plugins.Dirs = append(c.Plugins.Dirs, dir)
			}
		}
	}
}

// ValidLogLevels lists the accepted logging levels.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validLevel := false
	for _, l := range ValidLogLevels {
		if strings.EqualFold(c.Logging.Level, l) {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.Logging.Level, ValidLogLevels)
	}

	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("invalid log format: %s (valid: json, console)", c.Logging.Format)
	}

	for name := range c.Env {
		if name == "" || strings.ContainsAny(name, "= ") {
			return fmt.Errorf("invalid environment variable name: %q", name)
		}
	}

	if c.Shell.StartDir != "" {
		info, err := os.Stat(c.Shell.StartDir)
		if err != nil {
			return fmt.Errorf("start directory: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("start directory %s is not a directory", c.Shell.StartDir)
		}
	}
	return nil
}

// SortedKeys returns the keys of m in order, so startup bindings are
// applied deterministically.
func SortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
