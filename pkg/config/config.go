package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	DefaultServer  = "http://localhost:5000"
	DefaultTimeout = 5 * time.Minute
	DefaultOutput  = "human"
)

// Environment variables that override the config file.
const (
	EnvServer  = "ZEROPATCH_SERVER"
	EnvTimeout = "ZEROPATCH_TIMEOUT"
	EnvOutput  = "ZEROPATCH_OUTPUT"
	EnvNoColor = "NO_COLOR"
)

var outputFormats = map[string]bool{"human": true, "json": true, "yaml": true}

// Config holds client settings. Zero values are filled by ApplyDefaults.
type Config struct {
	Server  string   `yaml:"server" toml:"server"`
	Timeout Duration `yaml:"timeout" toml:"timeout"`
	Output  string   `yaml:"output" toml:"output"`
	NoColor bool     `yaml:"no_color" toml:"no_color"`
}

// Duration accepts "30s"-style strings in both YAML and TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

// DefaultPath returns $XDG_CONFIG_HOME/zeropatch/config.yaml, falling back to ~/.config.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "zeropatch", "config.yaml")
}

// LoadFromFile reads a YAML or TOML file, picked by extension.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	return &cfg, nil
}

// Load resolves the effective configuration: file, then environment, then defaults.
// An explicit path must exist; a missing default file is ignored.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	cfg := &Config{}
	if path != "" {
		loaded, err := LoadFromFile(path)
		switch {
		case err == nil:
			cfg = loaded
		case !explicit && errors.Is(err, os.ErrNotExist):
			// no config file; env and defaults only
		default:
			return nil, err
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyEnv overrides fields from ZEROPATCH_* variables and NO_COLOR.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvServer); v != "" {
		c.Server = v
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvTimeout, err)
		}
		c.Timeout = Duration{d}
	}
	if v := os.Getenv(EnvOutput); v != "" {
		c.Output = v
	}
	if _, ok := os.LookupEnv(EnvNoColor); ok {
		c.NoColor = true
	}
	return nil
}

func (c *Config) ApplyDefaults() {
	if c.Server == "" {
		c.Server = DefaultServer
	}
	if c.Timeout.Duration == 0 {
		c.Timeout = Duration{DefaultTimeout}
	}
	if c.Output == "" {
		c.Output = DefaultOutput
	}
}

// Validate checks the settings the client depends on.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid server URL %q: must be http(s)://host[:port]", c.Server)
	}
	if c.Timeout.Duration <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout.Duration)
	}
	if !outputFormats[strings.ToLower(c.Output)] {
		return fmt.Errorf("unsupported output format %q (supported: human, json, yaml)", c.Output)
	}
	return nil
}
