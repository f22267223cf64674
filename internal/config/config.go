// Package config provides configuration management for lpfix.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Policies for a find/replace fix whose search literal is gone and whose
// replacement is not present either.
const (
	OnMissingIgnore = "ignore"
	OnMissingWarn   = "warn"
	OnMissingFail   = "fail"
)

// Config represents the tool configuration.
type Config struct {
	Project ProjectConfig `yaml:"project" toml:"project"`
	Patch   PatchConfig   `yaml:"patch" toml:"patch"`
	Watch   WatchConfig   `yaml:"watch" toml:"watch"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
	Service ServiceConfig `yaml:"service" toml:"service"`
}

// ProjectConfig locates the learning platform checkout.
type ProjectConfig struct {
	Root string `yaml:"root" toml:"root"`
}

// PatchConfig controls how fixes are applied.
type PatchConfig struct {
	OnMissing string `yaml:"on_missing" toml:"on_missing"`
}

// WatchConfig contains drift watcher settings.
type WatchConfig struct {
	DebounceMs int `yaml:"debounce_ms" toml:"debounce_ms"`
}

// LoggingConfig contains log output settings.
type LoggingConfig struct {
	Level      string   `yaml:"level" toml:"level"`
	Format     string   `yaml:"format" toml:"format"`
	Output     []string `yaml:"output" toml:"output"`
	TimeFormat string   `yaml:"time_format" toml:"time_format"`
	MaxSizeMB  int      `yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int      `yaml:"max_backups" toml:"max_backups"`
}

// ServiceConfig contains process-level settings.
type ServiceConfig struct {
	DataDir string `yaml:"data_dir" toml:"data_dir"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Project: ProjectConfig{
			Root: ".",
		},
		Patch: PatchConfig{
			OnMissing: OnMissingWarn,
		},
		Watch: WatchConfig{
			DebounceMs: 300,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"console"},
		},
		Service: ServiceConfig{
			DataDir: DefaultDataDir(),
		},
	}
}

// DefaultDataDir returns the default data directory based on OS.
func DefaultDataDir() string {
	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "lpfix")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "AppData", "Roaming", "lpfix")
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "lpfix")
	default: // linux and others
		xdgData := os.Getenv("XDG_DATA_HOME")
		if xdgData != "" {
			return filepath.Join(xdgData, "lpfix")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".lpfix")
	}
}

// ConfigHome returns the XDG config directory.
func ConfigHome() string {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return configHome
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config")
	}
	return ""
}

// DefaultConfigPath returns the config file path.
// LPFIX_CONFIG wins over the XDG location.
func DefaultConfigPath() string {
	if p := os.Getenv("LPFIX_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(ConfigHome(), "lpfix", "config.yaml")
}

// Load loads configuration from a file. Files ending in .toml are decoded
// as TOML, everything else as YAML.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if no config file exists
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand environment variables in the config
	expanded := os.ExpandEnv(string(data))

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	} else if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg.Project.Root = ExpandPath(cfg.Project.Root)
	cfg.Service.DataDir = ExpandPath(cfg.Service.DataDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Patch.OnMissing {
	case OnMissingIgnore, OnMissingWarn, OnMissingFail:
	default:
		return fmt.Errorf("invalid patch.on_missing %q (want ignore, warn or fail)", c.Patch.OnMissing)
	}
	if c.Watch.DebounceMs < 0 {
		return fmt.Errorf("invalid watch.debounce_ms %d", c.Watch.DebounceMs)
	}
	return nil
}

// Save saves the configuration to a file, in TOML when the path ends in .toml.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	var data []byte
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		data = buf.Bytes()
	} else {
		var err error
		data, err = yaml.Marshal(c)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// LogPath returns the path to the log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.Service.DataDir, "logs", "lpfix.log")
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
